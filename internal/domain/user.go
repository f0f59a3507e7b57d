package domain

import (
	"context"
	"time"
)

// User is the local record of an Auth0 identity.
type User struct {
	ID        int64     `json:"id"`
	Auth0ID   string    `json:"-"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	IsStaff   bool      `json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserRepository interface {
	GetByAuth0ID(ctx context.Context, auth0ID string) (*User, error)
	Create(ctx context.Context, user *User) error
	UpdateEmail(ctx context.Context, id int64, email string) error
}

// Principal is what the auth gate resolves a bearer token to.
type Principal struct {
	User    User    `json:"user"`
	Profile Profile `json:"profile"`
}

type AuthUsecase interface {
	// ResolveUser maps a verified token subject to its user and profile, provisioning both on first sight.
	ResolveUser(ctx context.Context, auth0ID, email string) (*Principal, error)
}
