package postgres

import (
	"context"
	"errors"

	"go-profile-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type profileRepo struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) domain.ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM user_profiles WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *profileRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRow(ctx, `SELECT id, user_id, created_at, updated_at FROM user_profiles WHERE user_id = $1`, userID).
		Scan(&p.ID, &p.UserID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Create relies on the unique user_id; a concurrent insert yields the existing row.
func (r *profileRepo) Create(ctx context.Context, userID int64) (*domain.Profile, error) {
	var p domain.Profile
	query := `INSERT INTO user_profiles (user_id) VALUES ($1)
              ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
              RETURNING id, user_id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, userID).Scan(&p.ID, &p.UserID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
