package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userRepo struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) domain.UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (auth0_id, email, username, is_staff)
              VALUES ($1, $2, $3, $4)
              RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, user.Auth0ID, user.Email, user.Username, user.IsStaff).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.New(http.StatusConflict, "User already exists", fmt.Errorf("%w: %w", domain.ErrIntegrityViolation, err))
		}
		return err
	}
	return nil
}

func (r *userRepo) GetByAuth0ID(ctx context.Context, auth0ID string) (*domain.User, error) {
	query := `SELECT id, auth0_id, email, username, is_staff, created_at, updated_at FROM users WHERE auth0_id = $1`
	var user domain.User
	err := r.db.QueryRow(ctx, query, auth0ID).Scan(
		&user.ID, &user.Auth0ID, &user.Email, &user.Username, &user.IsStaff, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) UpdateEmail(ctx context.Context, id int64, email string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET email = $2, updated_at = NOW() WHERE id = $1`, id, email)
	return err
}
