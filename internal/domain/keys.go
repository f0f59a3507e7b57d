package domain

type CtxKey string

const (
	KeyUserID    CtxKey = "UserID"
	KeyUserEmail CtxKey = "Email"
	KeyIsStaff   CtxKey = "IsStaff"
	KeyProfileID CtxKey = "ProfileID"
	KeyRequestID CtxKey = "RequestID"
)
