package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/apperror"
	"go-profile-backend/pkg/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests run against a real database and are skipped unless DATABASE_URL is set.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	require.NoError(t, database.Migrate(dsn))

	pool, err := database.NewPostgresConnection(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// newProfile creates a throwaway user with a profile; deleting the user cascades to its résumés.
func newProfile(t *testing.T, pool *pgxpool.Pool) int64 {
	t.Helper()
	ctx := context.Background()

	user := &domain.User{Auth0ID: fmt.Sprintf("auth0|repo-test-%d", time.Now().UnixNano())}
	require.NoError(t, NewUserRepository(pool).Create(ctx, user))
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, user.ID)
	})

	profile, err := NewProfileRepository(pool).Create(ctx, user.ID)
	require.NoError(t, err)
	return profile.ID
}

func createResume(t *testing.T, repo domain.ResumeRepository, profileID int64, title string, isDefault bool) *domain.Resume {
	t.Helper()
	r := &domain.Resume{
		ProfileID:        profileID,
		Title:            title,
		OriginalFilename: title + ".pdf",
		StorageKey:       fmt.Sprintf("user_%d/%s_%d.pdf", profileID, title, time.Now().UnixNano()),
		IsDefault:        isDefault,
	}
	err := repo.WithProfileLock(context.Background(), profileID, func(tx domain.ResumeTx) error {
		return tx.Create(context.Background(), r)
	})
	require.NoError(t, err)
	return r
}

func TestResumeRepoSetDefaultSwitchesUnderPartialIndex(t *testing.T) {
	pool := testPool(t)
	profileID := newProfile(t, pool)
	repo := NewResumeRepository(pool)
	ctx := context.Background()

	first := createResume(t, repo, profileID, "first", true)
	second := createResume(t, repo, profileID, "second", false)

	err := repo.WithProfileLock(ctx, profileID, func(tx domain.ResumeTx) error {
		return tx.SetDefault(ctx, profileID, second.ID)
	})
	require.NoError(t, err)

	def, err := repo.GetDefault(ctx, profileID)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, second.ID, def.ID)

	rows, err := repo.ListByProfile(ctx, profileID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	defaults := 0
	for _, r := range rows {
		if r.IsDefault {
			defaults++
			assert.Equal(t, second.ID, r.ID)
		}
	}
	assert.Equal(t, 1, defaults)
	assert.NotEqual(t, first.ID, def.ID)
}

func TestResumeRepoSecondDefaultIsConflict(t *testing.T) {
	pool := testPool(t)
	profileID := newProfile(t, pool)
	repo := NewResumeRepository(pool)
	ctx := context.Background()

	createResume(t, repo, profileID, "first", true)

	err := repo.WithProfileLock(ctx, profileID, func(tx domain.ResumeTx) error {
		return tx.Create(ctx, &domain.Resume{
			ProfileID: profileID, Title: "second", OriginalFilename: "second.pdf",
			StorageKey: fmt.Sprintf("user_%d/second_%d.pdf", profileID, time.Now().UnixNano()), IsDefault: true,
		})
	})
	assert.ErrorIs(t, err, domain.ErrIntegrityViolation)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusConflict, appErr.Code)

	rows, err := repo.ListByProfile(ctx, profileID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestResumeRepoMostRecentOrdering(t *testing.T) {
	pool := testPool(t)
	profileID := newProfile(t, pool)
	repo := NewResumeRepository(pool)
	ctx := context.Background()

	older := createResume(t, repo, profileID, "older", true)
	newer := createResume(t, repo, profileID, "newer", false)

	mostRecent := func() *domain.Resume {
		var got *domain.Resume
		err := repo.WithProfileLock(ctx, profileID, func(tx domain.ResumeTx) error {
			var err error
			got, err = tx.MostRecent(ctx, profileID)
			return err
		})
		require.NoError(t, err)
		require.NotNil(t, got)
		return got
	}
	assert.Equal(t, newer.ID, mostRecent().ID)

	// replacing the file bumps updated_at
	older.StorageKey = fmt.Sprintf("user_%d/older_%d.pdf", profileID, time.Now().UnixNano())
	err := repo.WithProfileLock(ctx, profileID, func(tx domain.ResumeTx) error {
		return tx.ReplaceFile(ctx, older)
	})
	require.NoError(t, err)
	assert.Equal(t, older.ID, mostRecent().ID)

	// equal timestamps fall back to the higher id
	_, err = pool.Exec(ctx, `UPDATE resumes SET updated_at = '2024-01-01T00:00:00Z' WHERE profile_id = $1`, profileID)
	require.NoError(t, err)
	assert.Equal(t, max(older.ID, newer.ID), mostRecent().ID)
}

func TestWithProfileLockMissingProfile(t *testing.T) {
	pool := testPool(t)
	repo := NewResumeRepository(pool)

	called := false
	err := repo.WithProfileLock(context.Background(), -1, func(tx domain.ResumeTx) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Code)
}

func TestWithProfileLockSerializesWriters(t *testing.T) {
	pool := testPool(t)
	profileID := newProfile(t, pool)
	repo := NewResumeRepository(pool)
	ctx := context.Background()

	errFull := errors.New("limit reached")
	writers := domain.MaxResumesPerUser + 3

	var wg sync.WaitGroup
	results := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = repo.WithProfileLock(ctx, profileID, func(tx domain.ResumeTx) error {
				n, err := tx.Count(ctx, profileID)
				if err != nil {
					return err
				}
				if n >= domain.MaxResumesPerUser {
					return errFull
				}
				return tx.Create(ctx, &domain.Resume{
					ProfileID:        profileID,
					Title:            fmt.Sprintf("cv-%d", i),
					OriginalFilename: "cv.pdf",
					StorageKey:       fmt.Sprintf("user_%d/cv%d_%d.pdf", profileID, i, time.Now().UnixNano()),
					IsDefault:        n == 0,
				})
			})
		}(i)
	}
	wg.Wait()

	created, rejected := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			created++
		case errors.Is(err, errFull):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, domain.MaxResumesPerUser, created)
	assert.Equal(t, writers-domain.MaxResumesPerUser, rejected)

	rows, err := repo.ListByProfile(ctx, profileID)
	require.NoError(t, err)
	assert.Len(t, rows, domain.MaxResumesPerUser)
	defaults := 0
	for _, r := range rows {
		if r.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestDeleteAllReturnsRemovedRows(t *testing.T) {
	pool := testPool(t)
	profileID := newProfile(t, pool)
	repo := NewResumeRepository(pool)
	ctx := context.Background()

	a := createResume(t, repo, profileID, "a", true)
	b := createResume(t, repo, profileID, "b", false)

	var removed []domain.Resume
	err := repo.WithProfileLock(ctx, profileID, func(tx domain.ResumeTx) error {
		var err error
		removed, err = tx.DeleteAll(ctx, profileID)
		return err
	})
	require.NoError(t, err)

	ids := []int64{}
	for _, r := range removed {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []int64{a.ID, b.ID}, ids)

	rows, err := repo.ListByProfile(ctx, profileID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
