package testenv

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealoutline/pkg/models"
	"github.com/surrealdb/surrealoutline/pkg/outline"
	"github.com/surrealdb/surrealoutline/pkg/store"
)

// RunBlockStoreTests checks the store.BlockStore contract against stores made by
// newStore.
func RunBlockStoreTests(t *testing.T, newStore StoreFactory) {
	ctx := context.Background()

	t.Run("seed and fetch", func(t *testing.T) {
		st := newStore(t)
		f := SeedFixture(ctx, t, st)

		page, err := st.GetPage(ctx, f.Page)
		require.NoError(t, err)
		require.NotNil(t, page)
		assert.Equal(t, "fixture", page.Title)
		assert.Equal(t, models.Ref(f.Block(5)), page.RootBlockID)

		rows, err := st.FetchBlocksForPage(ctx, f.Page)
		require.NoError(t, err)
		require.Len(t, rows, 5)

		tree, err := outline.Build(*page, rows)
		require.NoError(t, err)
		assert.Equal(t, f.Preorder(), tree.IDs())
		assert.Nil(t, tree.RootMismatch())
	})

	t.Run("missing page", func(t *testing.T) {
		st := newStore(t)
		page, err := st.GetPage(ctx, 404)
		require.NoError(t, err)
		assert.Nil(t, page)

		rows, err := st.FetchBlocksForPage(ctx, 404)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("list pages", func(t *testing.T) {
		st := newStore(t)
		a, err := st.InsertPage(ctx, "a", nil)
		require.NoError(t, err)
		b, err := st.InsertPage(ctx, "b", nil)
		require.NoError(t, err)

		pages, err := st.ListPages(ctx)
		require.NoError(t, err)
		require.Len(t, pages, 2)
		assert.Equal(t, a, pages[0].ID)
		assert.Equal(t, b, pages[1].ID)
		assert.Nil(t, pages[0].RootBlockID)
	})

	t.Run("update block", func(t *testing.T) {
		st := newStore(t)
		f := SeedFixture(ctx, t, st)

		require.NoError(t, st.UpdateBlock(ctx, models.BlockPatch{ID: f.Block(4), Content: models.Set("renamed")}))
		require.NoError(t, st.UpdateBlock(ctx, models.BlockPatch{ID: f.Block(3), ParentID: models.Set[*models.BlockID](nil)}))

		rows := fetchByID(ctx, t, st, f.Page)
		assert.Equal(t, "renamed", rows[f.Block(4)].Content)
		assert.Equal(t, models.Ref(f.Block(3)), rows[f.Block(4)].ParentID)
		assert.Nil(t, rows[f.Block(3)].ParentID)
		assert.Equal(t, "three", rows[f.Block(3)].Content)

		// An empty patch only checks that the row exists.
		require.NoError(t, st.UpdateBlock(ctx, models.BlockPatch{ID: f.Block(1)}))
	})

	t.Run("unknown rows", func(t *testing.T) {
		st := newStore(t)
		require.ErrorIs(t, st.UpdateBlock(ctx, models.BlockPatch{ID: 999, Content: models.Set("x")}), store.ErrNotFound)
		require.ErrorIs(t, st.UpdateBlock(ctx, models.BlockPatch{ID: 999}), store.ErrNotFound)
		require.ErrorIs(t, st.DeleteBlock(ctx, 999), store.ErrNotFound)
		require.ErrorIs(t, st.UpdatePage(ctx, 999, models.PagePatch{Title: models.Set("x")}), store.ErrNotFound)
	})

	t.Run("missing references", func(t *testing.T) {
		st := newStore(t)
		_, err := st.InsertBlock(ctx, "orphan", models.Ref(999), nil, nil)
		require.ErrorIs(t, err, store.ErrConstraint)
		_, err = st.InsertBlock(ctx, "orphan", nil, nil, models.PageRef(999))
		require.ErrorIs(t, err, store.ErrConstraint)
	})

	t.Run("delete sets referrers to null", func(t *testing.T) {
		st := newStore(t)
		f := SeedFixture(ctx, t, st)

		require.NoError(t, st.DeleteBlock(ctx, f.Block(1)))
		rows := fetchByID(ctx, t, st, f.Page)
		require.Len(t, rows, 4)
		assert.Nil(t, rows[f.Block(5)].NextSiblingID)
		assert.Nil(t, rows[f.Block(2)].ParentID)
		assert.Nil(t, rows[f.Block(3)].ParentID)
		assert.Equal(t, models.Ref(f.Block(3)), rows[f.Block(4)].ParentID)

		// Promoted to the top level without a chain: two heads.
		page, err := st.GetPage(ctx, f.Page)
		require.NoError(t, err)
		_, err = outline.Build(*page, rowsOf(rows))
		require.ErrorIs(t, err, outline.ErrMultipleHeads)
	})

	t.Run("delete page keeps blocks", func(t *testing.T) {
		st := newStore(t)
		f := SeedFixture(ctx, t, st)
		other := SeedFixture(ctx, t, st)

		require.NoError(t, st.DeletePage(ctx, f.Page))
		page, err := st.GetPage(ctx, f.Page)
		require.NoError(t, err)
		assert.Nil(t, page)
		rows, err := st.FetchBlocksForPage(ctx, f.Page)
		require.NoError(t, err)
		assert.Empty(t, rows)
		assert.Len(t, fetchByID(ctx, t, st, other.Page), 5)

		// the rows are still there, detached
		require.NoError(t, st.DeleteBlock(ctx, f.Block(4)))
		require.ErrorIs(t, st.DeletePage(ctx, f.Page), store.ErrNotFound)
	})

	t.Run("apply change set", func(t *testing.T) {
		st := newStore(t)
		f := SeedFixture(ctx, t, st)
		page, err := st.GetPage(ctx, f.Page)
		require.NoError(t, err)
		rows, err := st.FetchBlocksForPage(ctx, f.Page)
		require.NoError(t, err)
		tree, err := outline.Build(*page, rows)
		require.NoError(t, err)

		require.NoError(t, tree.MoveBlock(f.Block(4), models.RootBlockID, 0))
		require.NoError(t, tree.RenameContent(f.Block(2), "two!"))
		_, err = tree.RemoveBlock(f.Block(3), outline.Keep)
		require.NoError(t, err)

		cs := outline.Diff(tree, f.Page, rows)
		require.NoError(t, st.Apply(ctx, cs))

		page, err = st.GetPage(ctx, f.Page)
		require.NoError(t, err)
		assert.Equal(t, models.Ref(f.Block(4)), page.RootBlockID)
		rows, err = st.FetchBlocksForPage(ctx, f.Page)
		require.NoError(t, err)
		rebuilt, err := outline.Build(*page, rows)
		require.NoError(t, err)
		assert.True(t, tree.Equal(rebuilt))
		assert.Nil(t, rebuilt.RootMismatch())
	})

	t.Run("apply is atomic", func(t *testing.T) {
		st := newStore(t)
		f := SeedFixture(ctx, t, st)
		before := fetchByID(ctx, t, st, f.Page)

		cs := models.NewChangeSet(f.Page)
		cs.Updates = []models.BlockPatch{
			{ID: f.Block(4), Content: models.Set("lost")},
			{ID: 999, Content: models.Set("missing")},
		}
		cs.Deletes = []models.BlockID{f.Block(2)}
		cs.RootBlockID = models.Set(models.Ref(f.Block(1)))
		require.ErrorIs(t, st.Apply(ctx, cs), store.ErrNotFound)

		assert.Equal(t, before, fetchByID(ctx, t, st, f.Page))
		page, err := st.GetPage(ctx, f.Page)
		require.NoError(t, err)
		assert.Equal(t, models.Ref(f.Block(5)), page.RootBlockID)
	})

	t.Run("apply clears page root", func(t *testing.T) {
		st := newStore(t)
		f := SeedFixture(ctx, t, st)
		page, err := st.GetPage(ctx, f.Page)
		require.NoError(t, err)
		rows, err := st.FetchBlocksForPage(ctx, f.Page)
		require.NoError(t, err)
		tree, err := outline.Build(*page, rows)
		require.NoError(t, err)

		for _, id := range tree.Children(models.RootBlockID) {
			_, err := tree.RemoveBlock(id, outline.DeleteSubtree)
			require.NoError(t, err)
		}
		require.NoError(t, st.Apply(ctx, outline.Diff(tree, f.Page, rows)))

		page, err = st.GetPage(ctx, f.Page)
		require.NoError(t, err)
		assert.Nil(t, page.RootBlockID)
		rows, err = st.FetchBlocksForPage(ctx, f.Page)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func fetchByID(ctx context.Context, t *testing.T, st store.BlockStore, page models.PageID) map[models.BlockID]models.Block {
	t.Helper()
	rows, err := st.FetchBlocksForPage(ctx, page)
	require.NoError(t, err)
	out := make(map[models.BlockID]models.Block, len(rows))
	for _, r := range rows {
		out[r.ID] = r
	}
	return out
}

func rowsOf(m map[models.BlockID]models.Block) []models.Block {
	out := make([]models.Block, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
