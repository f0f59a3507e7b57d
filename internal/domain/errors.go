package domain

import "errors"

// Sentinel causes carried inside apperror.AppError so callers can match them with errors.Is.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidFile         = errors.New("invalid resume file")
	ErrInvalidTitle        = errors.New("invalid resume title")
	ErrResumeLimitExceeded = errors.New("resume limit exceeded")
	ErrStorage             = errors.New("object storage failure")
	ErrIntegrityViolation  = errors.New("concurrent modification conflict")
	ErrObjectNotFound      = errors.New("object not found in storage")
)
