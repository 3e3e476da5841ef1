package orders

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError: the request shape is wrong. User-fixable.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// InvalidReferenceError: one or more foreign keys point at rows that do not
// exist. Carries the offending ids so callers can report them.
type InvalidReferenceError struct {
	Field string
	IDs   []int64
}

func (e *InvalidReferenceError) Error() string {
	parts := make([]string, 0, len(e.IDs))
	for _, id := range e.IDs {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return fmt.Sprintf("invalid %s ids: %s", e.Field, strings.Join(parts, ", "))
}

// ForbiddenError: authenticated but not entitled.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string {
	if e.Msg == "" {
		return "forbidden"
	}
	return e.Msg
}

type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

// UnauthorizedError: missing or invalid credential.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string {
	if e.Msg == "" {
		return "unauthorized"
	}
	return e.Msg
}

// TransactionError wraps a failure inside a database transaction. The whole
// unit has been rolled back; API callers see an opaque 500, ingestion runs
// treat it as fatal.
type TransactionError struct {
	Err error
}

func (e *TransactionError) Error() string { return "transaction failed: " + e.Err.Error() }
func (e *TransactionError) Unwrap() error { return e.Err }
