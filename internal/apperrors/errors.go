package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// --- Standard Error Definitions ---

// These sentinel errors define common application-level error conditions.
// They can be checked using errors.Is and wrapped with additional context
// by the layer that produces them.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrValidation indicates failure during data validation.
	ErrValidation = errors.New("validation failed")
	// ErrDatabase indicates a general database interaction error.
	ErrDatabase = errors.New("database error")
	// ErrNATS indicates a general NATS communication error.
	ErrNATS = errors.New("nats communication error")
	// ErrUnauthorized indicates a signature or token verification failure.
	ErrUnauthorized = errors.New("unauthorized access")
	// ErrDuplicate indicates a conflict due to duplicate data (e.g., unique constraint).
	ErrDuplicate = errors.New("duplicate resource")
	// ErrBadRequest indicates a malformed or invalid payload from the caller.
	ErrBadRequest = errors.New("bad request")
	// ErrUnresolvedConversation indicates an event referenced a conversation
	// with no owning demo. Acknowledged and skipped, never retried.
	ErrUnresolvedConversation = errors.New("conversation cannot be resolved to a demo")
)

// TableFailure records a single failed table write inside an ingestion batch.
type TableFailure struct {
	Table string
	Err   error
}

func (f TableFailure) Error() string {
	return fmt.Sprintf("table %s: %v", f.Table, f.Err)
}

// Unwrap returns the underlying write error.
func (f TableFailure) Unwrap() error {
	return f.Err
}

// PartialIngestionError aggregates per-table write failures for one event.
// Writes are independent; the presence of this error means at least one row
// was not persisted while others may have committed. It is a
// monitor-and-alert condition, never surfaced to the webhook caller.
type PartialIngestionError struct {
	Failures []TableFailure
}

// Error implements the error interface.
func (e *PartialIngestionError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("partial ingestion failure: %s", strings.Join(parts, "; "))
}

// Tables returns the names of the tables whose writes failed.
func (e *PartialIngestionError) Tables() []string {
	tables := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		tables = append(tables, f.Table)
	}
	return tables
}

// Add records a table failure. Nil errors are ignored so callers can add
// unconditionally inside a persistence loop.
func (e *PartialIngestionError) Add(table string, err error) {
	if err == nil {
		return
	}
	e.Failures = append(e.Failures, TableFailure{Table: table, Err: err})
}

// OrNil returns the aggregate as an error, or nil when nothing failed.
func (e *PartialIngestionError) OrNil() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e
}

// IsPartialIngestion checks if the error is or wraps a PartialIngestionError.
func IsPartialIngestion(err error) bool {
	var target *PartialIngestionError
	return errors.As(err, &target)
}

// --- Specific Standard Error Checkers ---

// IsNotFoundError checks if the error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if the error is or wraps ErrValidation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsDatabaseError checks if the error is or wraps ErrDatabase.
func IsDatabaseError(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsUnauthorizedError checks if the error is or wraps ErrUnauthorized.
func IsUnauthorizedError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsDuplicateError checks if the error is or wraps ErrDuplicate.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsBadRequestError checks if the error is or wraps ErrBadRequest.
func IsBadRequestError(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

// IsUnresolvedConversationError checks if the error is or wraps ErrUnresolvedConversation.
func IsUnresolvedConversationError(err error) bool {
	return errors.Is(err, ErrUnresolvedConversation)
}
