package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealoutline/pkg/models"
	"github.com/surrealdb/surrealoutline/pkg/store"
	"github.com/surrealdb/surrealoutline/pkg/store/memory"
)

func TestReadOnlyStore(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	pageID, err := inner.InsertPage(ctx, "p", nil)
	require.NoError(t, err)

	var readOnly atomic.Bool
	readOnly.Store(true)
	st := store.NewReadOnlyStore(inner, readOnly.Load)
	require.Same(t, inner, st.Unwrap())

	_, err = st.InsertBlock(ctx, "x", nil, nil, nil)
	require.ErrorIs(t, err, store.ErrReadOnly)
	require.ErrorIs(t, st.UpdateBlock(ctx, models.BlockPatch{ID: 1}), store.ErrReadOnly)
	require.ErrorIs(t, st.DeleteBlock(ctx, 1), store.ErrReadOnly)
	_, err = st.InsertPage(ctx, "q", nil)
	require.ErrorIs(t, err, store.ErrReadOnly)
	require.ErrorIs(t, st.UpdatePage(ctx, pageID, models.PagePatch{}), store.ErrReadOnly)
	require.ErrorIs(t, st.DeletePage(ctx, pageID), store.ErrReadOnly)
	require.ErrorIs(t, st.Apply(ctx, models.NewChangeSet(pageID)), store.ErrReadOnly)

	page, err := st.GetPage(ctx, pageID)
	require.NoError(t, err)
	require.Equal(t, "p", page.Title)
	pages, err := st.ListPages(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 1)

	readOnly.Store(false)
	id, err := st.InsertBlock(ctx, "x", nil, nil, models.PageRef(pageID))
	require.NoError(t, err)
	require.Equal(t, models.BlockID(1), id)
}

func TestPersistenceError(t *testing.T) {
	cause := fmt.Errorf("disk: %w", store.ErrNotFound)
	err := error(&store.PersistenceError{Op: "save", PageID: 4, Err: cause})

	require.ErrorIs(t, err, store.ErrPersistence)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Equal(t, "persistence failure: save page 4: disk: not found", err.Error())

	var pe *store.PersistenceError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, models.PageID(4), pe.PageID)
}
