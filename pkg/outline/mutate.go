package outline

import (
	"fmt"
	"slices"
	"strings"

	"github.com/surrealdb/surrealoutline/pkg/models"
)

// RemovePolicy decides what happens to the descendants of a removed block.
type RemovePolicy int

const (
	// Keep removes a leaf block and refuses blocks that have children.
	Keep RemovePolicy = iota
	// PromoteChildren moves the children into the removed block's place.
	PromoteChildren
	// DeleteSubtree removes the block together with all of its descendants.
	DeleteSubtree
)

func (p RemovePolicy) String() string {
	switch p {
	case Keep:
		return "keep"
	case PromoteChildren:
		return "promote"
	case DeleteSubtree:
		return "delete-subtree"
	default:
		return fmt.Sprintf("remove_policy(%d)", int(p))
	}
}

// ParseRemovePolicy parses the names returned by RemovePolicy.String.
func ParseRemovePolicy(s string) (RemovePolicy, error) {
	switch strings.ToLower(s) {
	case "keep":
		return Keep, nil
	case "promote", "promote-children":
		return PromoteChildren, nil
	case "delete-subtree", "subtree":
		return DeleteSubtree, nil
	default:
		return Keep, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}

// InsertChild creates a block with the next free id and inserts it among the
// children of parent at index, clamped to [0, len(children)].
func (t *Tree) InsertChild(parent models.BlockID, index int, content string) (models.BlockID, error) {
	if !t.hasNode(parent) {
		return models.RootBlockID, mutationError("insert", KindUnknownBlock, parent)
	}
	id := t.allocate()
	t.insert(id, parent, index, content)
	return id, nil
}

// Attach inserts a block whose id was allocated elsewhere, usually by a store.
func (t *Tree) Attach(id, parent models.BlockID, index int, content string) error {
	if id <= models.RootBlockID || t.hasNode(id) {
		return mutationError("attach", KindInvalidBlock, id)
	}
	if !t.hasNode(parent) {
		return mutationError("attach", KindUnknownBlock, parent)
	}
	t.insert(id, parent, index, content)
	return nil
}

func (t *Tree) insert(id, parent models.BlockID, index int, content string) {
	t.add(id, parent, content)
	pn := t.nodes[parent]
	pn.children = slices.Insert(pn.children, clamp(index, len(pn.children)), id)
}

// MoveBlock detaches block and re-inserts it under newParent at newIndex. The index
// is taken after detaching and clamped to [0, len(children)], so moving a block
// within its own parent counts positions without the block itself.
//
// Moving a block under itself or one of its descendants fails with ErrCycleRejected.
func (t *Tree) MoveBlock(block, newParent models.BlockID, newIndex int) error {
	if block.IsRoot() {
		return mutationError("move", KindRootBlock, block)
	}
	if !t.Has(block) {
		return mutationError("move", KindUnknownBlock, block)
	}
	if !t.hasNode(newParent) {
		return mutationError("move", KindUnknownBlock, newParent)
	}
	if newParent == block || t.IsAncestor(block, newParent) {
		return mutationError("move", KindCycleRejected, block)
	}

	n := t.nodes[block]
	t.detach(n)
	pn := t.nodes[newParent]
	pn.children = slices.Insert(pn.children, clamp(newIndex, len(pn.children)), block)
	n.parent = newParent
	return nil
}

// RemoveBlock removes block according to policy and returns the ids that left the
// tree.
func (t *Tree) RemoveBlock(block models.BlockID, policy RemovePolicy) ([]models.BlockID, error) {
	if block.IsRoot() {
		return nil, mutationError("remove", KindRootBlock, block)
	}
	if !t.Has(block) {
		return nil, mutationError("remove", KindUnknownBlock, block)
	}
	n := t.nodes[block]
	pn := t.nodes[n.parent]

	switch policy {
	case Keep:
		if len(n.children) > 0 {
			return nil, mutationError("remove", KindHasChildren, block)
		}
		t.detach(n)
		delete(t.nodes, block)
		return []models.BlockID{block}, nil

	case PromoteChildren:
		at := slices.Index(pn.children, block)
		for _, c := range n.children {
			t.nodes[c].parent = n.parent
		}
		pn.children = slices.Replace(pn.children, at, at+1, n.children...)
		delete(t.nodes, block)
		return []models.BlockID{block}, nil

	case DeleteSubtree:
		removed := t.Subtree(block)
		t.detach(n)
		for _, id := range removed {
			delete(t.nodes, id)
		}
		return removed, nil

	default:
		return nil, mutationError("remove", KindInvalidPolicy, block)
	}
}

// RenameContent replaces the content of a block. The structure is untouched.
func (t *Tree) RenameContent(block models.BlockID, content string) error {
	if block.IsRoot() {
		return mutationError("rename", KindRootBlock, block)
	}
	if !t.Has(block) {
		return mutationError("rename", KindUnknownBlock, block)
	}
	t.nodes[block].content = content
	return nil
}

// ReorderChildren replaces the child order of parent. order must be a permutation of
// the current children.
func (t *Tree) ReorderChildren(parent models.BlockID, order []models.BlockID) error {
	pn, ok := t.nodes[parent]
	if !ok {
		return mutationError("reorder", KindUnknownBlock, parent)
	}
	if len(order) != len(pn.children) {
		return mutationError("reorder", KindInvalidIndex, parent)
	}
	seen := make(map[models.BlockID]bool, len(order))
	for _, id := range order {
		if seen[id] {
			return mutationError("reorder", KindInvalidIndex, parent)
		}
		seen[id] = true
		if n, ok := t.nodes[id]; !ok || id.IsRoot() || n.parent != parent {
			return mutationError("reorder", KindInvalidIndex, parent)
		}
	}
	pn.children = slices.Clone(order)
	return nil
}

func (t *Tree) detach(n *node) {
	pn := t.nodes[n.parent]
	if i := slices.Index(pn.children, n.id); i >= 0 {
		pn.children = slices.Delete(pn.children, i, i+1)
	}
}

func clamp(index, n int) int {
	return max(0, min(index, n))
}
