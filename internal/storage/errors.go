package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an update targets an id with no row.
var ErrNotFound = errors.New("bill not found")

// StorageError wraps a failure of the underlying database with the
// operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
