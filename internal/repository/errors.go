package repository

import (
	"errors"
	"strings"

	"pictogram/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// DuplicateKey reports whether err is a unique violation and names the
// violated constraint (Postgres) or the offending columns (SQLite).
func DuplicateKey(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgUniqueViolation {
			return pgErr.ConstraintName, true
		}
		return "", false
	}
	msg := err.Error()
	if i := strings.Index(msg, "UNIQUE constraint failed: "); i >= 0 {
		return msg[i+len("UNIQUE constraint failed: "):], true
	}
	return "", false
}

// TranslateError turns a store duplicate-key error into a Conflict. Other
// errors are returned unchanged.
func TranslateError(err error) error {
	target, ok := DuplicateKey(err)
	if !ok {
		return err
	}
	switch {
	case strings.Contains(target, "users"):
		return models.NewConflictError("This user already exists.")
	case strings.Contains(target, "likes"):
		return models.NewConflictError("You cannot like a post twice.")
	case strings.Contains(target, "follows"):
		return models.NewConflictError("You are already following that user.")
	default:
		return models.NewConflictError("Duplicate value.")
	}
}

func internal(err error) error {
	if err == nil {
		return nil
	}
	return models.NewInternalError(err)
}
