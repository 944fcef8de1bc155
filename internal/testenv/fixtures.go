package testenv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealoutline/pkg/models"
	"github.com/surrealdb/surrealoutline/pkg/store"
)

// Fixture is the page seeded by SeedFixture. Blocks[n] holds the store id of block
// n+1 of the layout below; on an empty store the ids are 1 to 5.
//
//	root
//	├── 5 "five"
//	└── 1 "one"
//	    ├── 2 "two"
//	    └── 3 "three"
//	        └── 4 "four"
type Fixture struct {
	Page   models.PageID
	Blocks [5]models.BlockID
}

// Block returns the store id of fixture block n, 1-based.
func (f Fixture) Block(n int) models.BlockID {
	return f.Blocks[n-1]
}

// Preorder returns the preorder id sequence of the fixture, root included.
func (f Fixture) Preorder() []models.BlockID {
	return []models.BlockID{models.RootBlockID, f.Block(5), f.Block(1), f.Block(2), f.Block(3), f.Block(4)}
}

// SeedFixture writes the fixture page through the store contract.
func SeedFixture(ctx context.Context, t *testing.T, st store.BlockStore) Fixture {
	t.Helper()
	var f Fixture
	var err error

	f.Page, err = st.InsertPage(ctx, "fixture", nil)
	require.NoError(t, err)
	page := models.PageRef(f.Page)

	insert := func(n int, content string, parent, next *models.BlockID) {
		t.Helper()
		f.Blocks[n-1], err = st.InsertBlock(ctx, content, parent, next, page)
		require.NoError(t, err)
	}
	insert(1, "one", nil, nil)
	insert(2, "two", models.Ref(f.Block(1)), nil)
	insert(3, "three", models.Ref(f.Block(1)), nil)
	insert(4, "four", models.Ref(f.Block(3)), nil)
	insert(5, "five", nil, models.Ref(f.Block(1)))

	require.NoError(t, st.UpdateBlock(ctx, models.BlockPatch{
		ID:            f.Block(2),
		NextSiblingID: models.Set(models.Ref(f.Block(3))),
	}))
	require.NoError(t, st.UpdatePage(ctx, f.Page, models.PagePatch{
		RootBlockID: models.Set(models.Ref(f.Block(5))),
	}))
	return f
}
