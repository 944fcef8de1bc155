package outline

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealoutline/pkg/models"
)

// row builds a block; 0 means null for parent and next.
func row(id, parent, next int64) models.Block {
	b := models.Block{ID: models.BlockID(id), Content: "block " + models.BlockID(id).String()}
	if parent != 0 {
		b.ParentID = models.Ref(models.BlockID(parent))
	}
	if next != 0 {
		b.NextSiblingID = models.Ref(models.BlockID(next))
	}
	return b
}

func ids(v ...int64) []models.BlockID {
	out := make([]models.BlockID, len(v))
	for i, id := range v {
		out[i] = models.BlockID(id)
	}
	return out
}

func TestBuildExample(t *testing.T) {
	rows := []models.Block{
		row(1, 0, 0),
		row(2, 1, 3),
		row(3, 1, 0),
		row(4, 3, 0),
	}
	tree, err := Build(models.Page{ID: 1}, rows)
	require.NoError(t, err)

	require.Equal(t, ids(0, 1, 2, 3, 4), tree.IDs())
	require.Equal(t, ids(1), tree.Children(models.RootBlockID))
	require.Equal(t, ids(2, 3), tree.Children(1))
	require.Equal(t, ids(4), tree.Children(3))
	require.Equal(t, 4, tree.Len())
	require.Nil(t, tree.RootMismatch())
	require.NoError(t, tree.Validate())
}

func TestBuildOrdersTopLevelByChain(t *testing.T) {
	// Block 5 is a top-level block placed before block 1.
	rows := []models.Block{
		row(1, 0, 0),
		row(2, 1, 3),
		row(3, 1, 0),
		row(4, 3, 0),
		row(5, 0, 1),
	}
	tree, err := Build(models.Page{}, rows)
	require.NoError(t, err)
	require.Equal(t, ids(0, 5, 1, 2, 3, 4), tree.IDs())
}

func TestBuildIgnoresRowOrder(t *testing.T) {
	rows := []models.Block{
		row(13, 10, 11),
		row(10, 0, 0),
		row(11, 10, 0),
		row(12, 10, 13),
	}
	tree, err := Build(models.Page{}, rows)
	require.NoError(t, err)
	require.Equal(t, ids(12, 13, 11), tree.Children(10))
}

func TestBuildEmptyPage(t *testing.T) {
	tree, err := Build(models.Page{}, nil)
	require.NoError(t, err)
	require.Equal(t, 0, tree.Len())
	require.Equal(t, ids(0), tree.IDs())
	_, ok := tree.FirstTopLevel()
	require.False(t, ok)
	require.Nil(t, tree.RootRef())
}

func TestBuildKeepsContent(t *testing.T) {
	rows := []models.Block{{ID: 7, Content: "hello"}}
	tree, err := Build(models.Page{}, rows)
	require.NoError(t, err)
	content, ok := tree.Content(7)
	require.True(t, ok)
	require.Equal(t, "hello", content)
}

func TestBuildIntegrityErrors(t *testing.T) {
	tests := []struct {
		name     string
		rows     []models.Block
		sentinel error
		kind     IntegrityKind
		parent   models.BlockID
		block    models.BlockID
	}{
		{
			name:     "self loop sibling",
			rows:     []models.Block{row(1, 0, 1)},
			sentinel: ErrCycleDetected,
			kind:     KindCycleDetected,
		},
		{
			name:     "two element sibling cycle",
			rows:     []models.Block{row(1, 0, 0), row(2, 1, 3), row(3, 1, 2)},
			sentinel: ErrCycleDetected,
			kind:     KindCycleDetected,
			parent:   1,
		},
		{
			name:     "head with trailing cycle",
			rows:     []models.Block{row(1, 0, 2), row(2, 0, 3), row(3, 0, 2)},
			sentinel: ErrCycleDetected,
			kind:     KindCycleDetected,
			block:    2,
		},
		{
			name:     "chain plus detached cycle",
			rows:     []models.Block{row(1, 0, 0), row(2, 0, 3), row(3, 0, 2)},
			sentinel: ErrCycleDetected,
			kind:     KindCycleDetected,
		},
		{
			name:     "multiple heads",
			rows:     []models.Block{row(1, 0, 0), row(2, 1, 0), row(3, 1, 0)},
			sentinel: ErrMultipleHeads,
			kind:     KindMultipleHeads,
			parent:   1,
		},
		{
			name:     "multiple top level heads",
			rows:     []models.Block{row(1, 0, 0), row(2, 0, 0)},
			sentinel: ErrMultipleHeads,
			kind:     KindMultipleHeads,
		},
		{
			name:     "dangling parent",
			rows:     []models.Block{row(1, 0, 0), row(2, 9, 0)},
			sentinel: ErrDanglingParent,
			kind:     KindDanglingParent,
			parent:   9,
			block:    2,
		},
		{
			name:     "dangling sibling",
			rows:     []models.Block{row(1, 0, 9)},
			sentinel: ErrDanglingSibling,
			kind:     KindDanglingSibling,
			block:    1,
		},
		{
			name:     "sibling under another parent",
			rows:     []models.Block{row(1, 0, 0), row(2, 1, 1)},
			sentinel: ErrForeignSibling,
			kind:     KindForeignSibling,
			parent:   1,
			block:    2,
		},
		{
			name:     "duplicate id",
			rows:     []models.Block{row(1, 0, 0), row(1, 0, 0)},
			sentinel: ErrDuplicateBlock,
			kind:     KindDuplicateBlock,
			block:    1,
		},
		{
			name:     "root sentinel id",
			rows:     []models.Block{row(0, 0, 0)},
			sentinel: ErrReservedID,
			kind:     KindReservedID,
		},
		{
			name:     "parent cycle",
			rows:     []models.Block{row(1, 0, 0), row(2, 3, 0), row(3, 2, 0)},
			sentinel: ErrCycleDetected,
			kind:     KindCycleDetected,
			parent:   3,
			block:    2,
		},
		{
			name:     "own parent",
			rows:     []models.Block{row(1, 0, 0), row(2, 2, 0)},
			sentinel: ErrCycleDetected,
			kind:     KindCycleDetected,
			parent:   2,
			block:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Build(models.Page{}, tt.rows)
			require.Nil(t, tree)
			require.Error(t, err)
			require.ErrorIs(t, err, ErrStructuralIntegrity)
			require.ErrorIs(t, err, tt.sentinel)

			var ie *IntegrityError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, tt.kind, ie.Kind)
			assert.Equal(t, tt.parent, ie.ParentID)
			assert.Equal(t, tt.block, ie.BlockID)
		})
	}
}

func TestBuildMultipleHeadsListsHeads(t *testing.T) {
	rows := []models.Block{row(1, 0, 0), row(4, 1, 0), row(2, 1, 3), row(3, 1, 0)}
	_, err := Build(models.Page{}, rows)

	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)
	require.Equal(t, ids(2, 4), ie.Heads)
	require.Contains(t, err.Error(), "parent 1")
}

func TestBuildErrorDoesNotDependOnRowOrder(t *testing.T) {
	// parent 1 has two heads, parent 2 a closed sibling loop; the lower parent wins
	rows := []models.Block{
		row(1, 0, 0),
		row(2, 1, 0), row(3, 1, 0),
		row(6, 2, 7), row(7, 2, 6),
		row(8, 0, 1),
	}
	rng := rand.New(rand.NewPCG(7, 11))
	for range 50 {
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		_, err := Build(models.Page{}, rows)
		var ie *IntegrityError
		require.ErrorAs(t, err, &ie)
		require.Equal(t, KindMultipleHeads, ie.Kind)
		require.Equal(t, models.BlockID(1), ie.ParentID)
		require.Equal(t, ids(2, 3), ie.Heads)
	}
}

func TestBuildRootMismatchIsNotFatal(t *testing.T) {
	rows := []models.Block{row(1, 0, 2), row(2, 0, 0)}

	tree, err := Build(models.Page{RootBlockID: models.Ref(2)}, rows)
	require.NoError(t, err)
	mismatch := tree.RootMismatch()
	require.NotNil(t, mismatch)
	require.Equal(t, models.BlockID(2), *mismatch.Stored)
	require.Equal(t, models.BlockID(1), *mismatch.Derived)

	tree, err = Build(models.Page{RootBlockID: models.Ref(1)}, rows)
	require.NoError(t, err)
	require.Nil(t, tree.RootMismatch())

	tree, err = Build(models.Page{RootBlockID: models.Ref(1)}, nil)
	require.NoError(t, err)
	require.NotNil(t, tree.RootMismatch())
	require.Nil(t, tree.RootMismatch().Derived)
}

func TestBuildDoesNotModifyRows(t *testing.T) {
	rows := []models.Block{row(1, 0, 0), row(2, 1, 0)}
	before := models.CloneBlocks(rows)
	_, err := Build(models.Page{}, rows)
	require.NoError(t, err)
	require.Equal(t, before, rows)
}

func TestBuildAllocatesAfterHighestID(t *testing.T) {
	tree, err := Build(models.Page{}, []models.Block{row(40, 0, 0)})
	require.NoError(t, err)
	id, err := tree.InsertChild(40, 0, "new")
	require.NoError(t, err)
	require.Equal(t, models.BlockID(41), id)
}

func TestBuildDeepChain(t *testing.T) {
	const depth = 10000
	rows := make([]models.Block, 0, depth)
	rows = append(rows, row(1, 0, 0))
	for i := int64(2); i <= depth; i++ {
		rows = append(rows, row(i, i-1, 0))
	}
	tree, err := Build(models.Page{}, rows)
	require.NoError(t, err)
	d, ok := tree.Depth(depth)
	require.True(t, ok)
	require.Equal(t, depth, d)
}
