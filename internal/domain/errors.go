package domain

import (
	"fmt"
	"strings"
)

// The catalog write path spans two systems without a shared transaction, so
// every public operation resolves to exactly one of the error kinds below (or
// success). Lower-level store errors are wrapped, never passed through raw.

// ValidationError reports bad or missing input. It is always returned before
// any external call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a referenced catalog id that does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("catalog %s not found", e.ID)
}

// UploadError reports an object-store failure during an upload step. The
// uploads already made by the same call have been compensated by the time this
// error is returned.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("image upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a database write failure. New uploads made by the
// same call have been compensated by the time this error is returned.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("catalog persistence failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// CleanupError aggregates compensating deletes that failed. It is never
// surfaced to callers; the service logs the leaked storage ids and the
// operation's outcome stays determined by the primary step alone.
type CleanupError struct {
	StorageIDs []string
	Errs       []error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup failed for storage ids [%s]: %d errors",
		strings.Join(e.StorageIDs, ", "), len(e.Errs))
}
