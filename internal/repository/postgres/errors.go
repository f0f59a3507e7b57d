package postgres

import (
	"errors"
	"fmt"
	"net/http"

	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/apperror"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes
const (
	pgUniqueViolation = "23505"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// mapWriteError turns unique violations into a retryable conflict and leaves other errors as they are.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return apperror.New(http.StatusConflict, "The resume was changed by another request. Please try again.",
			fmt.Errorf("%w: %w", domain.ErrIntegrityViolation, err))
	}
	return err
}
