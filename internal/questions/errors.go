package questions

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrQuestionNotFound means the vote or moderation target does not exist.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrConcurrencyExhausted means every numbering attempt lost the race on
	// the (meeting_id, question_number) unique constraint. Retriable by the
	// caller; no partial row is ever committed.
	ErrConcurrencyExhausted = errors.New("question numbering retries exhausted")
)

// pgUniqueViolation is the PostgreSQL error code for unique-constraint
// violations (class 23).
const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique-constraint violation on
// the named constraint. The check is against the driver's typed error, not
// the message text.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraint
}
