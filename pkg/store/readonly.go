package store

import (
	"context"

	"github.com/surrealdb/surrealoutline/pkg/models"
)

// ReadOnlyStore wraps a BlockStore and rejects writes while isReadOnly reports true.
//
// The state is read on every call, so a caller can switch a running store between
// read-write and read-only without recreating it. Reads, Migrate and Close always
// pass through.
type ReadOnlyStore struct {
	BlockStore
	isReadOnly func() bool
}

// NewReadOnlyStore creates a new read-only wrapper for a store
func NewReadOnlyStore(store BlockStore, isReadOnly func() bool) *ReadOnlyStore {
	return &ReadOnlyStore{
		BlockStore: store,
		isReadOnly: isReadOnly,
	}
}

// AlwaysReadOnly is a predicate for stores that are never writable.
func AlwaysReadOnly() bool { return true }

// Unwrap returns the underlying store
func (r *ReadOnlyStore) Unwrap() BlockStore {
	return r.BlockStore
}

func (r *ReadOnlyStore) checkReadOnly() error {
	if r.isReadOnly() {
		return ErrReadOnly
	}
	return nil
}

func (r *ReadOnlyStore) InsertBlock(ctx context.Context, content string, parentID, nextSiblingID *models.BlockID, pageID *models.PageID) (models.BlockID, error) {
	if err := r.checkReadOnly(); err != nil {
		return 0, err
	}
	return r.BlockStore.InsertBlock(ctx, content, parentID, nextSiblingID, pageID)
}

func (r *ReadOnlyStore) UpdateBlock(ctx context.Context, patch models.BlockPatch) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.BlockStore.UpdateBlock(ctx, patch)
}

func (r *ReadOnlyStore) DeleteBlock(ctx context.Context, id models.BlockID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.BlockStore.DeleteBlock(ctx, id)
}

func (r *ReadOnlyStore) InsertPage(ctx context.Context, title string, rootBlockID *models.BlockID) (models.PageID, error) {
	if err := r.checkReadOnly(); err != nil {
		return 0, err
	}
	return r.BlockStore.InsertPage(ctx, title, rootBlockID)
}

func (r *ReadOnlyStore) UpdatePage(ctx context.Context, id models.PageID, patch models.PagePatch) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.BlockStore.UpdatePage(ctx, id, patch)
}

func (r *ReadOnlyStore) DeletePage(ctx context.Context, id models.PageID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.BlockStore.DeletePage(ctx, id)
}

func (r *ReadOnlyStore) Apply(ctx context.Context, cs models.ChangeSet) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.BlockStore.Apply(ctx, cs)
}
