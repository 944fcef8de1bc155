package outline

import (
	"iter"
	"slices"

	"github.com/surrealdb/surrealoutline/pkg/models"
)

type node struct {
	id       models.BlockID
	parent   models.BlockID
	content  string
	children []models.BlockID
}

// Tree is the ordered, in-memory outline of one page.
//
// All nodes live in a single table keyed by block id and a node refers to its
// children by id. The synthetic root is stored under models.RootBlockID; it is never
// reported as a block.
//
// A Tree is not safe for concurrent use.
type Tree struct {
	nodes  map[models.BlockID]*node
	nextID models.BlockID

	rootMismatch *RootMismatch
}

// RootMismatch records that a page's stored root block id disagrees with the first
// top-level block of the reconstructed tree.
type RootMismatch struct {
	Stored  *models.BlockID
	Derived *models.BlockID
}

// Node is a nested, read-only copy of a subtree.
type Node struct {
	ID       models.BlockID
	Content  string
	Children []Node
}

// New returns a tree holding only the synthetic root.
func New() *Tree {
	t := &Tree{
		nodes:  make(map[models.BlockID]*node),
		nextID: 1,
	}
	t.nodes[models.RootBlockID] = &node{id: models.RootBlockID, parent: models.RootBlockID}
	return t
}

// Len returns the number of blocks, not counting the synthetic root.
func (t *Tree) Len() int {
	return len(t.nodes) - 1
}

// Has reports whether id is a block of the tree. The root is not a block.
func (t *Tree) Has(id models.BlockID) bool {
	if id.IsRoot() {
		return false
	}
	_, ok := t.nodes[id]
	return ok
}

func (t *Tree) hasNode(id models.BlockID) bool {
	_, ok := t.nodes[id]
	return ok
}

// Content returns the content of a block.
func (t *Tree) Content(id models.BlockID) (string, bool) {
	if !t.Has(id) {
		return "", false
	}
	return t.nodes[id].content, true
}

// Parent returns the parent of a block; top-level blocks report models.RootBlockID.
func (t *Tree) Parent(id models.BlockID) (models.BlockID, bool) {
	if !t.Has(id) {
		return models.RootBlockID, false
	}
	return t.nodes[id].parent, true
}

// Children returns a copy of the ordered children of id. Pass models.RootBlockID for
// the top-level blocks.
func (t *Tree) Children(id models.BlockID) []models.BlockID {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	return slices.Clone(n.children)
}

// Index returns the position of a block among its siblings.
func (t *Tree) Index(id models.BlockID) (int, bool) {
	if !t.Has(id) {
		return 0, false
	}
	return slices.Index(t.nodes[t.nodes[id].parent].children, id), true
}

// Depth returns 1 for top-level blocks, 2 for their children and so on.
func (t *Tree) Depth(id models.BlockID) (int, bool) {
	if !t.Has(id) {
		return 0, false
	}
	depth := 0
	for cur := id; !cur.IsRoot(); cur = t.nodes[cur].parent {
		depth++
	}
	return depth, true
}

// IsAncestor reports whether ancestor is a proper ancestor of id. The root is an
// ancestor of every block.
func (t *Tree) IsAncestor(ancestor, id models.BlockID) bool {
	if !t.Has(id) || !t.hasNode(ancestor) || ancestor == id {
		return false
	}
	for cur := t.nodes[id].parent; ; cur = t.nodes[cur].parent {
		if cur == ancestor {
			return true
		}
		if cur.IsRoot() {
			return false
		}
	}
}

// FirstTopLevel returns the first child of the synthetic root, if any.
func (t *Tree) FirstTopLevel() (models.BlockID, bool) {
	root := t.nodes[models.RootBlockID]
	if len(root.children) == 0 {
		return models.RootBlockID, false
	}
	return root.children[0], true
}

// RootRef returns the first top-level block as a nullable reference, the value a
// page's root_block_id must hold.
func (t *Tree) RootRef() *models.BlockID {
	if id, ok := t.FirstTopLevel(); ok {
		return models.Ref(id)
	}
	return nil
}

// RootMismatch returns the mismatch found by Build, or nil.
func (t *Tree) RootMismatch() *RootMismatch {
	return t.rootMismatch
}

// Preorder yields every node depth first, parents before children, siblings in
// order. The synthetic root comes first with depth 0.
func (t *Tree) Preorder() iter.Seq2[models.BlockID, int] {
	return func(yield func(models.BlockID, int) bool) {
		type frame struct {
			id    models.BlockID
			depth int
		}
		stack := []frame{{id: models.RootBlockID}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(f.id, f.depth) {
				return
			}
			children := t.nodes[f.id].children
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, frame{id: children[i], depth: f.depth + 1})
			}
		}
	}
}

// IDs returns the preorder id sequence, root included.
func (t *Tree) IDs() []models.BlockID {
	out := make([]models.BlockID, 0, len(t.nodes))
	for id := range t.Preorder() {
		out = append(out, id)
	}
	return out
}

// Subtree returns id and all of its descendants in preorder.
func (t *Tree) Subtree(id models.BlockID) []models.BlockID {
	if !t.hasNode(id) {
		return nil
	}
	var out []models.BlockID
	stack := []models.BlockID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)
		children := t.nodes[cur].children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out
}

// Root returns a nested copy of the whole tree, starting at the synthetic root.
func (t *Tree) Root() Node {
	return t.view(models.RootBlockID)
}

func (t *Tree) view(id models.BlockID) Node {
	n := t.nodes[id]
	out := Node{ID: n.id, Content: n.content}
	for _, c := range n.children {
		out.Children = append(out.Children, t.view(c))
	}
	return out
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	out := &Tree{
		nodes:  make(map[models.BlockID]*node, len(t.nodes)),
		nextID: t.nextID,
	}
	for id, n := range t.nodes {
		out.nodes[id] = &node{
			id:       n.id,
			parent:   n.parent,
			content:  n.content,
			children: slices.Clone(n.children),
		}
	}
	if t.rootMismatch != nil {
		m := *t.rootMismatch
		out.rootMismatch = &m
	}
	return out
}

// Equal reports whether both trees hold the same blocks with the same content in the
// same shape.
func (t *Tree) Equal(other *Tree) bool {
	if len(t.nodes) != len(other.nodes) {
		return false
	}
	for id, n := range t.nodes {
		o, ok := other.nodes[id]
		if !ok || n.parent != o.parent || n.content != o.content || !slices.Equal(n.children, o.children) {
			return false
		}
	}
	return true
}

func (t *Tree) allocate() models.BlockID {
	id := t.nextID
	t.nextID++
	return id
}

func (t *Tree) add(id, parent models.BlockID, content string) *node {
	n := &node{id: id, parent: parent, content: content}
	t.nodes[id] = n
	if id >= t.nextID {
		t.nextID = id + 1
	}
	return n
}
