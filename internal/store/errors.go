package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when no record exists at the key.
	// It is the "absent" result, never a storage failure.
	ErrNotFound = errors.New("record not found")

	// ErrUnknownCollection is returned for a record kind the store does not hold.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrUnknownIndex is returned by GetByIndex for an undeclared index.
	ErrUnknownIndex = errors.New("unknown index")
)

// StorageError wraps a failure of the underlying storage engine (I/O, lock
// contention, constraint, quota). It is always surfaced to the caller and
// never retried inside the store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is or wraps a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	// Cancellation is the caller's doing, not an engine failure.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &StorageError{Op: op, Err: err}
}
