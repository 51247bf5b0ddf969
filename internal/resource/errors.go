package resource

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a record is absent from the narrowed collection
	ErrNotFound = errors.New("record not found")

	// ErrForbidden is returned when a permission hook denies an operation
	ErrForbidden = errors.New("access denied")

	// ErrUniqueViolation is returned when a unique constraint is violated
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")

	// ErrCheckViolation is returned when a check constraint is violated
	ErrCheckViolation = errors.New("check constraint violation")

	// ErrNotNullViolation is returned when a NOT NULL constraint is violated
	ErrNotNullViolation = errors.New("not null constraint violation")
)

// FilterError reports an unknown or malformed filter parameter. It names
// the offending parameter so the client can correct it.
type FilterError struct {
	Param   string
	Message string
}

// Error implements the error interface
func (e *FilterError) Error() string {
	return fmt.Sprintf("%s: %s", e.Param, e.Message)
}

// NewFilterError creates a FilterError for the given parameter
func NewFilterError(param, message string) *FilterError {
	return &FilterError{Param: param, Message: message}
}

// ConvertDBError converts database-specific errors to resource errors
func ConvertDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", ErrForeignKeyViolation, pgErr.ConstraintName)
		case "23514": // check_violation
			return fmt.Errorf("%w: %s", ErrCheckViolation, pgErr.ConstraintName)
		case "23502": // not_null_violation
			return fmt.Errorf("%w: column %s", ErrNotNullViolation, pgErr.ColumnName)
		}
	}

	return err
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true for constraint violations attributable to a
// specific conflicting field; these surface as 409
func IsConflict(err error) bool {
	return errors.Is(err, ErrUniqueViolation) || errors.Is(err, ErrForeignKeyViolation)
}
