package outline

import (
	"fmt"

	"github.com/surrealdb/surrealoutline/pkg/models"
)

// Validate checks that the arena still describes a single tree: every block has
// exactly one parent that lists it exactly once, every block is reachable from the
// root, and no block is its own ancestor. Mutations keep these properties; Validate
// exists for tests and for the check command.
func (t *Tree) Validate() error {
	root, ok := t.nodes[models.RootBlockID]
	if !ok {
		return fmt.Errorf("%w: missing root", ErrStructuralIntegrity)
	}
	if !root.parent.IsRoot() {
		return fmt.Errorf("%w: root has parent %s", ErrStructuralIntegrity, root.parent)
	}

	seen := make(map[models.BlockID]int, len(t.nodes))
	seen[models.RootBlockID] = 1
	for id, n := range t.nodes {
		if id != n.id {
			return fmt.Errorf("%w: node %s stored under %s", ErrStructuralIntegrity, n.id, id)
		}
		for _, c := range n.children {
			cn, ok := t.nodes[c]
			if !ok {
				return fmt.Errorf("%w: %s lists missing child %s", ErrDanglingParent, id, c)
			}
			if cn.parent != id {
				return fmt.Errorf("%w: %s lists child %s whose parent is %s", ErrStructuralIntegrity, id, c, cn.parent)
			}
			seen[c]++
		}
	}
	for id := range t.nodes {
		switch seen[id] {
		case 1:
		case 0:
			return &IntegrityError{Kind: KindCycleDetected, ParentID: t.nodes[id].parent, BlockID: id}
		default:
			return &IntegrityError{Kind: KindDuplicateBlock, BlockID: id}
		}
	}

	// Every node is listed exactly once, so the walk from the root terminates.
	reached := 0
	for range t.Preorder() {
		reached++
	}
	if reached != len(t.nodes) {
		return fmt.Errorf("%w: %d of %d nodes reachable from the root", ErrCycleDetected, reached, len(t.nodes))
	}
	return nil
}
