package editor

import (
	"errors"
	"fmt"

	"github.com/roach88/jobtrail/internal/model"
	"github.com/roach88/jobtrail/internal/store"
)

var (
	// ErrNotFound is returned when the target record does not exist.
	ErrNotFound = store.ErrNotFound

	// ErrNotProvisional is returned by ReconcileID when the old id was
	// already server-assigned.
	ErrNotProvisional = errors.New("id is not provisional")

	// ErrInvalidServerID is returned by ReconcileID when the new id is
	// itself provisional.
	ErrInvalidServerID = errors.New("server id must not be provisional")

	// ErrIDConflict is returned when a record or queue entry already exists
	// at the target id.
	ErrIDConflict = errors.New("id already in use")

	// ErrImmutableID is returned by Update when fields try to change the id.
	ErrImmutableID = errors.New("id is immutable")

	// ErrProvisionalIDSupplied is returned by Create when the caller passes a
	// provisional id. Provisional ids are only issued by the allocator.
	ErrProvisionalIDSupplied = errors.New("provisional ids are allocated, not supplied")
)

// AllocationError reports that no provisional id could be issued. The
// create that needed it is aborted; no record or queue entry is written.
type AllocationError struct {
	Err error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate provisional id: %v", e.Err)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

// IsAllocationError returns true if err is or wraps an AllocationError.
func IsAllocationError(err error) bool {
	var ae *AllocationError
	return errors.As(err, &ae)
}

// IsConflict returns true if err is or wraps ErrIDConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrIDConflict)
}

// ErrorCode is a stable, machine-readable error category for CLI output and
// scenario expectations.
type ErrorCode string

const (
	CodeNotFound              ErrorCode = "NOT_FOUND"
	CodeNotProvisional        ErrorCode = "NOT_PROVISIONAL"
	CodeInvalidServerID       ErrorCode = "INVALID_SERVER_ID"
	CodeIDConflict            ErrorCode = "ID_CONFLICT"
	CodeImmutableID           ErrorCode = "IMMUTABLE_ID"
	CodeProvisionalIDSupplied ErrorCode = "PROVISIONAL_ID_SUPPLIED"
	CodeAllocationFailed      ErrorCode = "ALLOCATION_FAILED"
	CodeInvalidField          ErrorCode = "INVALID_FIELD"
	CodeUnknownCollection     ErrorCode = "UNKNOWN_COLLECTION"
	CodeUnknownIndex          ErrorCode = "UNKNOWN_INDEX"
	CodeStorage               ErrorCode = "STORAGE_ERROR"
	CodeInternal              ErrorCode = "INTERNAL_ERROR"
)

// Code classifies err. Returns "" for a nil error.
func Code(err error) ErrorCode {
	var fe *model.FieldError
	switch {
	case err == nil:
		return ""
	case IsAllocationError(err):
		return CodeAllocationFailed
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrNotProvisional):
		return CodeNotProvisional
	case errors.Is(err, ErrInvalidServerID):
		return CodeInvalidServerID
	case errors.Is(err, ErrIDConflict):
		return CodeIDConflict
	case errors.Is(err, ErrImmutableID):
		return CodeImmutableID
	case errors.Is(err, ErrProvisionalIDSupplied):
		return CodeProvisionalIDSupplied
	case errors.As(err, &fe), errors.Is(err, ErrSeedIDRequired):
		return CodeInvalidField
	case errors.Is(err, store.ErrUnknownCollection):
		return CodeUnknownCollection
	case errors.Is(err, store.ErrUnknownIndex):
		return CodeUnknownIndex
	case store.IsStorageError(err):
		return CodeStorage
	}
	return CodeInternal
}
