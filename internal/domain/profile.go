package domain

import (
	"context"
	"time"
)

// Profile owns a user's résumés; its ID is the authorization scope of every résumé operation.
type Profile struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ProfileRepository interface {
	Exists(ctx context.Context, id int64) (bool, error)
	GetByUserID(ctx context.Context, userID int64) (*Profile, error)
	// Create inserts the profile for userID, returning the existing one if it is already there.
	Create(ctx context.Context, userID int64) (*Profile, error)
}
