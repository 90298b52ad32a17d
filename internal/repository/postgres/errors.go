package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrConstraint marks writes rejected by a table constraint (negative
// amounts, out-of-range scores, missing required columns).
var ErrConstraint = errors.New("constraint violation")

// Postgres SQLSTATE codes for integrity violations.
const (
	codeNotNull = "23502"
	codeUnique  = "23505"
	codeCheck   = "23514"
)

// classify wraps constraint failures with ErrConstraint and leaves every
// other error unchanged.
func classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeNotNull, codeUnique, codeCheck:
			return fmt.Errorf("%s: %w: %s (%s)", op, ErrConstraint, pqErr.Message, pqErr.Constraint)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
