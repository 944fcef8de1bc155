package store

import (
	"errors"
	"fmt"

	"github.com/surrealdb/surrealoutline/pkg/models"
)

var (
	// ErrPersistence matches every *PersistenceError.
	ErrPersistence = errors.New("persistence failure")
	// ErrNotFound is returned when an update or delete names a missing row.
	ErrNotFound = errors.New("not found")
	// ErrConstraint is returned when a write names a block or page that does not exist.
	ErrConstraint = errors.New("reference constraint violated")
	// ErrReadOnly is returned by ReadOnlyStore for writes in read-only mode.
	ErrReadOnly = errors.New("operation denied: store is in read-only mode")
)

// PersistenceError wraps a storage failure during a page operation. The in-memory
// tree is not rolled back; callers reload the page.
type PersistenceError struct {
	Op     string
	PageID models.PageID
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%v: %s page %s: %v", ErrPersistence, e.Op, e.PageID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is returns true if the target is ErrPersistence
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// NotFound wraps ErrNotFound with the kind and id of the missing row.
func NotFound(kind string, id fmt.Stringer) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}
