package outline

import (
	"slices"

	"github.com/surrealdb/surrealoutline/pkg/models"
)

// Serialize flattens the tree into rows, parents before children. Top-level blocks
// get a nil ParentID; the last child of every parent gets a nil NextSiblingID.
func Serialize(t *Tree, pageID models.PageID) []models.Block {
	out := make([]models.Block, 0, t.Len())
	t.eachRow(pageID, func(row models.Block) {
		out = append(out, row)
	})
	return out
}

// Diff computes the row updates that turn previous into the flat representation of t.
//
// When previous is nil every block is emitted in full. Otherwise only blocks whose
// parent, next sibling, page or content changed are emitted, and blocks that appear
// in previous but not in the tree are listed as deletes. Structural fields are always
// emitted together; content only when it changed.
//
// The returned change set always carries the root block id derived from the tree.
func Diff(t *Tree, pageID models.PageID, previous []models.Block) models.ChangeSet {
	cs := models.NewChangeSet(pageID)
	cs.RootBlockID = models.Set(t.RootRef())

	var before map[models.BlockID]*models.Block
	if previous != nil {
		before = make(map[models.BlockID]*models.Block, len(previous))
		for i := range previous {
			before[previous[i].ID] = &previous[i]
		}
	}

	t.eachRow(pageID, func(row models.Block) {
		patch := models.BlockPatch{ID: row.ID}
		old, ok := before[row.ID]
		if !ok {
			patch.Content = models.Set(row.Content)
			setStructure(&patch, row)
			cs.Updates = append(cs.Updates, patch)
			return
		}
		if !models.SameRef(old.ParentID, row.ParentID) ||
			!models.SameRef(old.NextSiblingID, row.NextSiblingID) ||
			!models.SamePageRef(old.PageID, row.PageID) {
			setStructure(&patch, row)
		}
		if old.Content != row.Content {
			patch.Content = models.Set(row.Content)
		}
		if !patch.IsEmpty() {
			cs.Updates = append(cs.Updates, patch)
		}
	})

	for id := range before {
		if !t.Has(id) {
			cs.Deletes = append(cs.Deletes, id)
		}
	}
	slices.Sort(cs.Deletes)
	return cs
}

func setStructure(patch *models.BlockPatch, row models.Block) {
	patch.ParentID = models.Set(row.ParentID)
	patch.NextSiblingID = models.Set(row.NextSiblingID)
	patch.PageID = models.Set(row.PageID)
}

// Records is Serialize as a method.
func (t *Tree) Records(pageID models.PageID) []models.Block {
	return Serialize(t, pageID)
}

func (t *Tree) eachRow(pageID models.PageID, fn func(models.Block)) {
	for id := range t.Preorder() {
		n := t.nodes[id]
		for i, c := range n.children {
			row := models.Block{
				ID:      c,
				Content: t.nodes[c].content,
				PageID:  models.PageRef(pageID),
			}
			if !id.IsRoot() {
				row.ParentID = models.Ref(id)
			}
			if i+1 < len(n.children) {
				row.NextSiblingID = models.Ref(n.children[i+1])
			}
			fn(row)
		}
	}
}
