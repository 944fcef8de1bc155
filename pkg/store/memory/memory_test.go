package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealoutline/internal/testenv"
	"github.com/surrealdb/surrealoutline/pkg/models"
	"github.com/surrealdb/surrealoutline/pkg/store/memory"
)

func TestBlockStoreContract(t *testing.T) {
	testenv.RunBlockStoreTests(t, testenv.NewMemoryStore)
}

func TestFetchReturnsCopies(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	f := testenv.SeedFixture(ctx, t, st)

	rows, err := st.FetchBlocksForPage(ctx, f.Page)
	require.NoError(t, err)
	for i := range rows {
		rows[i].Content = "mutated"
		if rows[i].ParentID != nil {
			*rows[i].ParentID = 77
		}
	}

	again, err := st.FetchBlocksForPage(ctx, f.Page)
	require.NoError(t, err)
	for _, r := range again {
		require.NotEqual(t, "mutated", r.Content)
		if r.ParentID != nil {
			require.NotEqual(t, models.BlockID(77), *r.ParentID)
		}
	}
}

func TestDetachedRowsAreNotFetched(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	f := testenv.SeedFixture(ctx, t, st)

	id, err := st.InsertBlock(ctx, "detached", nil, nil, nil)
	require.NoError(t, err)

	rows, err := st.FetchBlocksForPage(ctx, f.Page)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	require.Len(t, st.Rows(), 6)
	require.Equal(t, id, st.Rows()[5].ID)
}

func TestConcurrentInserts(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	var wg sync.WaitGroup
	ids := make([]models.BlockID, 50)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := st.InsertBlock(ctx, "x", nil, nil, nil)
			require.NoError(t, err)
			ids[i] = id
		}()
	}
	wg.Wait()

	seen := make(map[models.BlockID]bool)
	for _, id := range ids {
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := memory.New().InsertPage(ctx, "late", nil)
	require.ErrorIs(t, err, context.Canceled)
}
