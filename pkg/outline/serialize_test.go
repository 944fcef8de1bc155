package outline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealoutline/pkg/models"
)

func TestSerialize(t *testing.T) {
	tree := sample(t)
	rows := Serialize(tree, 3)
	require.Len(t, rows, 5)

	byID := make(map[models.BlockID]models.Block, len(rows))
	for _, r := range rows {
		require.NotNil(t, r.PageID)
		require.Equal(t, models.PageID(3), *r.PageID)
		byID[r.ID] = r
	}

	assert.Nil(t, byID[1].ParentID)
	assert.Equal(t, models.Ref(5), byID[1].NextSiblingID)
	assert.Nil(t, byID[5].ParentID)
	assert.Nil(t, byID[5].NextSiblingID)
	assert.Equal(t, models.Ref(1), byID[2].ParentID)
	assert.Equal(t, models.Ref(3), byID[2].NextSiblingID)
	assert.Nil(t, byID[3].NextSiblingID)
	assert.Equal(t, models.Ref(3), byID[4].ParentID)
}

func TestSerializeParentsFirst(t *testing.T) {
	tree := sample(t)
	pos := make(map[models.BlockID]int)
	for i, r := range Serialize(tree, 1) {
		pos[r.ID] = i
	}
	for _, r := range Serialize(tree, 1) {
		if r.ParentID != nil {
			assert.Less(t, pos[*r.ParentID], pos[r.ID], "block %s before its parent", r.ID)
		}
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	tree := sample(t)
	_, err := tree.InsertChild(4, 0, "deep")
	require.NoError(t, err)
	require.NoError(t, tree.MoveBlock(5, 2, 0))
	_, err = tree.RemoveBlock(3, PromoteChildren)
	require.NoError(t, err)

	rebuilt, err := Build(models.Page{RootBlockID: tree.RootRef()}, Serialize(tree, 1))
	require.NoError(t, err)
	require.True(t, tree.Equal(rebuilt))
	require.Equal(t, tree.IDs(), rebuilt.IDs())
	require.Nil(t, rebuilt.RootMismatch())
}

func TestSerializeEmpty(t *testing.T) {
	require.Empty(t, Serialize(New(), 1))
}

func TestDiffWithoutPrevious(t *testing.T) {
	tree := sample(t)
	cs := Diff(tree, 2, nil)

	require.Equal(t, models.PageID(2), cs.PageID)
	require.Len(t, cs.Updates, 5)
	require.Empty(t, cs.Deletes)
	require.True(t, cs.RootBlockID.Set)
	require.Equal(t, models.Ref(1), cs.RootBlockID.Value)
	for _, p := range cs.Updates {
		assert.True(t, p.Content.Set)
		assert.True(t, p.ParentID.Set)
		assert.True(t, p.NextSiblingID.Set)
		assert.True(t, p.PageID.Set)
	}
}

func TestDiffUnchanged(t *testing.T) {
	tree := sample(t)
	cs := Diff(tree, 1, Serialize(tree, 1))
	require.Empty(t, cs.Updates)
	require.Empty(t, cs.Deletes)
	require.Equal(t, models.Ref(1), cs.RootBlockID.Value)
}

func TestDiffMove(t *testing.T) {
	tree := sample(t)
	previous := Serialize(tree, 1)

	// 2 moves under 5: 2 loses its parent and sibling, 5 is unchanged as the last
	// top-level block, 3 becomes the only child of 1.
	require.NoError(t, tree.MoveBlock(2, 5, 0))
	cs := Diff(tree, 1, previous)

	changed := make(map[models.BlockID]models.BlockPatch)
	for _, p := range cs.Updates {
		changed[p.ID] = p
	}
	require.Len(t, changed, 1)
	p := changed[2]
	assert.Equal(t, models.Ref(5), p.ParentID.Value)
	assert.Nil(t, p.NextSiblingID.Value)
	assert.False(t, p.Content.Set)
	require.Empty(t, cs.Deletes)
}

func TestDiffContentAndDeletes(t *testing.T) {
	tree := sample(t)
	previous := Serialize(tree, 1)

	require.NoError(t, tree.RenameContent(4, "changed"))
	_, err := tree.RemoveBlock(1, PromoteChildren)
	require.NoError(t, err)
	cs := Diff(tree, 1, previous)

	require.Equal(t, ids(1), cs.Deletes)
	require.Equal(t, models.Ref(2), cs.RootBlockID.Value)

	changed := make(map[models.BlockID]models.BlockPatch)
	for _, p := range cs.Updates {
		changed[p.ID] = p
	}
	require.Contains(t, changed, models.BlockID(2))
	require.Contains(t, changed, models.BlockID(3))
	require.NotContains(t, changed, models.BlockID(5))

	four := changed[4]
	require.True(t, four.Content.Set)
	require.Equal(t, "changed", four.Content.Value)
	require.False(t, four.ParentID.Set)
}

func TestDiffApplyReproducesRows(t *testing.T) {
	tree := sample(t)
	previous := Serialize(tree, 1)

	require.NoError(t, tree.MoveBlock(4, models.RootBlockID, 0))
	_, err := tree.InsertChild(5, 0, "new")
	require.NoError(t, err)
	_, err = tree.RemoveBlock(2, Keep)
	require.NoError(t, err)
	cs := Diff(tree, 1, previous)

	rows := make(map[models.BlockID]models.Block)
	for _, b := range previous {
		rows[b.ID] = b
	}
	for _, id := range cs.Deletes {
		delete(rows, id)
	}
	for _, p := range cs.Updates {
		b := rows[p.ID]
		b.ID = p.ID
		p.ApplyTo(&b)
		rows[p.ID] = b
	}

	want := Serialize(tree, 1)
	require.Len(t, rows, len(want))
	for _, w := range want {
		assert.Equal(t, w, rows[w.ID])
	}
}
