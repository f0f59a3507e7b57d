package postgres

import (
	"context"
	"errors"
	"fmt"

	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const resumeColumns = `id, profile_id, title, original_filename, storage_key, is_default, updated_at`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type resumeRepo struct {
	db *pgxpool.Pool
}

func NewResumeRepository(db *pgxpool.Pool) domain.ResumeRepository {
	return &resumeRepo{db: db}
}

func scanResume(row pgx.Row) (*domain.Resume, error) {
	var r domain.Resume
	err := row.Scan(&r.ID, &r.ProfileID, &r.Title, &r.OriginalFilename, &r.StorageKey, &r.IsDefault, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func listResumes(ctx context.Context, q querier, profileID int64) ([]domain.Resume, error) {
	rows, err := q.Query(ctx, `SELECT `+resumeColumns+` FROM resumes
		WHERE profile_id = $1 ORDER BY updated_at DESC, id DESC`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resumes := []domain.Resume{}
	for rows.Next() {
		r, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		resumes = append(resumes, *r)
	}
	return resumes, rows.Err()
}

func getResume(ctx context.Context, q querier, profileID, id int64) (*domain.Resume, error) {
	return scanResume(q.QueryRow(ctx, `SELECT `+resumeColumns+` FROM resumes
		WHERE id = $1 AND profile_id = $2`, id, profileID))
}

func getDefaultResume(ctx context.Context, q querier, profileID int64) (*domain.Resume, error) {
	return scanResume(q.QueryRow(ctx, `SELECT `+resumeColumns+` FROM resumes
		WHERE profile_id = $1 AND is_default`, profileID))
}

func (r *resumeRepo) ListByProfile(ctx context.Context, profileID int64) ([]domain.Resume, error) {
	return listResumes(ctx, r.db, profileID)
}

func (r *resumeRepo) GetByID(ctx context.Context, profileID, id int64) (*domain.Resume, error) {
	return getResume(ctx, r.db, profileID, id)
}

func (r *resumeRepo) GetDefault(ctx context.Context, profileID int64) (*domain.Resume, error) {
	return getDefaultResume(ctx, r.db, profileID)
}

// WithProfileLock locks the owning user_profiles row, so writers for one profile queue up
// even when the profile has no résumés yet.
func (r *resumeRepo) WithProfileLock(ctx context.Context, profileID int64, fn func(tx domain.ResumeTx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var locked int64
	err = tx.QueryRow(ctx, `SELECT id FROM user_profiles WHERE id = $1 FOR UPDATE`, profileID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NotFound("Profile not found").Wrap(domain.ErrNotFound)
		}
		return fmt.Errorf("lock profile %d: %w", profileID, err)
	}

	if err := fn(&resumeTx{tx: tx}); err != nil {
		return err
	}
	return mapWriteError(tx.Commit(ctx))
}

type resumeTx struct {
	tx pgx.Tx
}

func (t *resumeTx) GetByID(ctx context.Context, profileID, id int64) (*domain.Resume, error) {
	return getResume(ctx, t.tx, profileID, id)
}

func (t *resumeTx) GetByTitle(ctx context.Context, profileID int64, title string) (*domain.Resume, error) {
	return scanResume(t.tx.QueryRow(ctx, `SELECT `+resumeColumns+` FROM resumes
		WHERE profile_id = $1 AND title = $2`, profileID, title))
}

func (t *resumeTx) GetDefault(ctx context.Context, profileID int64) (*domain.Resume, error) {
	return getDefaultResume(ctx, t.tx, profileID)
}

func (t *resumeTx) MostRecent(ctx context.Context, profileID int64) (*domain.Resume, error) {
	return scanResume(t.tx.QueryRow(ctx, `SELECT `+resumeColumns+` FROM resumes
		WHERE profile_id = $1 ORDER BY updated_at DESC, id DESC LIMIT 1`, profileID))
}

func (t *resumeTx) Count(ctx context.Context, profileID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM resumes WHERE profile_id = $1`, profileID).Scan(&n)
	return n, err
}

func (t *resumeTx) Create(ctx context.Context, r *domain.Resume) error {
	query := `INSERT INTO resumes (profile_id, title, original_filename, storage_key, is_default, updated_at)
              VALUES ($1, $2, $3, $4, $5, clock_timestamp())
              RETURNING id, updated_at`
	err := t.tx.QueryRow(ctx, query, r.ProfileID, r.Title, r.OriginalFilename, r.StorageKey, r.IsDefault).
		Scan(&r.ID, &r.UpdatedAt)
	return mapWriteError(err)
}

func (t *resumeTx) ReplaceFile(ctx context.Context, r *domain.Resume) error {
	query := `UPDATE resumes SET storage_key = $3, original_filename = $4, updated_at = clock_timestamp()
              WHERE id = $1 AND profile_id = $2
              RETURNING updated_at`
	err := t.tx.QueryRow(ctx, query, r.ID, r.ProfileID, r.StorageKey, r.OriginalFilename).Scan(&r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("resume %d vanished under lock", r.ID)
	}
	return mapWriteError(err)
}

func (t *resumeTx) Delete(ctx context.Context, profileID, id int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM resumes WHERE id = $1 AND profile_id = $2`, id, profileID)
	return err
}

// SetDefault runs two statements because the partial unique index is checked per statement.
func (t *resumeTx) SetDefault(ctx context.Context, profileID, id int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE resumes SET is_default = FALSE
		WHERE profile_id = $1 AND is_default AND id <> $2`, profileID, id)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `UPDATE resumes SET is_default = TRUE, updated_at = clock_timestamp()
		WHERE id = $1 AND profile_id = $2`, id, profileID)
	return mapWriteError(err)
}

func (t *resumeTx) DeleteAll(ctx context.Context, profileID int64) ([]domain.Resume, error) {
	rows, err := t.tx.Query(ctx, `DELETE FROM resumes WHERE profile_id = $1 RETURNING `+resumeColumns, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var removed []domain.Resume
	for rows.Next() {
		r, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		removed = append(removed, *r)
	}
	return removed, rows.Err()
}
