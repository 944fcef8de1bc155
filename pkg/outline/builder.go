package outline

import (
	"slices"

	"github.com/surrealdb/surrealoutline/pkg/models"
)

// Build reconstructs the ordered tree of a page from its flat rows.
//
// Rows are grouped by parent. Within a group the head is the only member that no
// other member names as its next sibling, and the child order is the chain walked
// from the head. The rows must describe exactly one tree: any violation aborts the
// build with an *IntegrityError and no tree is returned.
//
// Build runs in time and space linear in the number of rows. When a group is
// inconsistent the groups are checked again in ascending parent id order, members
// sorted, so that the reported error does not depend on the order of rows.
//
// A stored page.RootBlockID that disagrees with the first top-level block does not
// fail the build; it is reported by Tree.RootMismatch.
func Build(page models.Page, rows []models.Block) (*Tree, error) {
	byID := make(map[models.BlockID]*models.Block, len(rows))
	for i := range rows {
		row := &rows[i]
		if row.ID <= models.RootBlockID {
			return nil, &IntegrityError{Kind: KindReservedID, BlockID: row.ID}
		}
		if _, dup := byID[row.ID]; dup {
			return nil, &IntegrityError{Kind: KindDuplicateBlock, BlockID: row.ID}
		}
		byID[row.ID] = row
	}

	groups := make(map[models.BlockID][]models.BlockID)
	for i := range rows {
		row := &rows[i]
		parent := models.Deref(row.ParentID)
		if !parent.IsRoot() {
			if _, ok := byID[parent]; !ok {
				return nil, &IntegrityError{Kind: KindDanglingParent, ParentID: parent, BlockID: row.ID}
			}
		}
		groups[parent] = append(groups[parent], row.ID)
	}

	ordered, err := linearizeGroups(groups, byID, false)
	if err != nil {
		_, err = linearizeGroups(groups, byID, true)
		return nil, err
	}

	t := New()
	reached := 0
	stack := []models.BlockID{models.RootBlockID}
	for len(stack) > 0 {
		parent := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		pn := t.nodes[parent]
		for _, id := range ordered[parent] {
			t.add(id, parent, byID[id].Content)
			reached++
		}
		pn.children = slices.Clone(ordered[parent])
		stack = append(stack, ordered[parent]...)
	}

	if reached != len(rows) {
		// Whatever was not reached hangs below a parent chain that never arrives at
		// the root.
		var lowest models.BlockID
		for id := range byID {
			if t.hasNode(id) {
				continue
			}
			if lowest == models.RootBlockID || id < lowest {
				lowest = id
			}
		}
		return nil, &IntegrityError{
			Kind:     KindCycleDetected,
			ParentID: models.Deref(byID[lowest].ParentID),
			BlockID:  lowest,
		}
	}

	if page.RootBlockID != nil {
		derived := t.RootRef()
		if !models.SameRef(page.RootBlockID, derived) {
			t.rootMismatch = &RootMismatch{Stored: models.Ref(*page.RootBlockID), Derived: derived}
		}
	}
	return t, nil
}

// linearizeGroups orders every parent group. With sorted set, parents are visited in
// ascending id order and members are sorted first, which makes the first error found
// the same for any order of rows.
func linearizeGroups(groups map[models.BlockID][]models.BlockID, byID map[models.BlockID]*models.Block, sorted bool) (map[models.BlockID][]models.BlockID, error) {
	parents := make([]models.BlockID, 0, len(groups))
	for parent := range groups {
		parents = append(parents, parent)
	}
	if sorted {
		slices.Sort(parents)
	}

	ordered := make(map[models.BlockID][]models.BlockID, len(groups))
	for _, parent := range parents {
		members := groups[parent]
		if sorted {
			slices.Sort(members)
		}
		order, err := linearize(parent, members, byID)
		if err != nil {
			return nil, err
		}
		ordered[parent] = order
	}
	return ordered, nil
}

// linearize orders the members of one parent group by walking their sibling chain.
// The error reported for a broken group depends on the order of members.
func linearize(parent models.BlockID, members []models.BlockID, byID map[models.BlockID]*models.Block) ([]models.BlockID, error) {
	hasPredecessor := make(map[models.BlockID]bool, len(members))
	for _, id := range members {
		next := byID[id].NextSiblingID
		if next == nil {
			continue
		}
		sibling, ok := byID[*next]
		if !ok {
			return nil, &IntegrityError{Kind: KindDanglingSibling, ParentID: parent, BlockID: id}
		}
		if models.Deref(sibling.ParentID) != parent {
			return nil, &IntegrityError{Kind: KindForeignSibling, ParentID: parent, BlockID: id}
		}
		hasPredecessor[*next] = true
	}

	var heads []models.BlockID
	for _, id := range members {
		if !hasPredecessor[id] {
			heads = append(heads, id)
		}
	}
	switch {
	case len(heads) == 0:
		// Every member has a predecessor, so the chain is closed on itself.
		return nil, &IntegrityError{Kind: KindCycleDetected, ParentID: parent}
	case len(heads) > 1:
		return nil, &IntegrityError{Kind: KindMultipleHeads, ParentID: parent, Heads: heads}
	}

	order := make([]models.BlockID, 0, len(members))
	visited := make(map[models.BlockID]bool, len(members))
	for cur := heads[0]; ; {
		if visited[cur] {
			return nil, &IntegrityError{Kind: KindCycleDetected, ParentID: parent, BlockID: cur}
		}
		visited[cur] = true
		order = append(order, cur)
		next := byID[cur].NextSiblingID
		if next == nil {
			break
		}
		cur = *next
	}
	if len(order) != len(members) {
		return nil, &IntegrityError{Kind: KindCycleDetected, ParentID: parent}
	}
	return order, nil
}
