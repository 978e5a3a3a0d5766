package accounts

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// mapUniqueViolation turns unique index failures on the users table into
// ErrEmailTaken or ErrUsernameTaken
func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}

	constraint, ok := uniqueViolation(err)
	if !ok {
		return err
	}

	switch {
	case strings.Contains(constraint, "email"):
		return ErrEmailTaken
	case strings.Contains(constraint, "username"):
		return ErrUsernameTaken
	default:
		return goerrors.Wrap(err, goerrors.CategoryConflict, "unique constraint violated").
			WithCode(goerrors.CodeConflict)
	}
}

func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return "", false
		}
		return pgErr.ConstraintName, true
	}

	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return msg, true
	}

	return "", false
}
