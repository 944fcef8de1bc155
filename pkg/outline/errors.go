package outline

import (
	"errors"
	"fmt"

	"github.com/surrealdb/surrealoutline/pkg/models"
)

// Sentinel errors for structural integrity violations found by Build.
// Every *IntegrityError matches ErrStructuralIntegrity and the sentinel of its kind.
var (
	ErrStructuralIntegrity = errors.New("structural integrity violation")

	ErrMultipleHeads   = errors.New("multiple sibling chain heads")
	ErrCycleDetected   = errors.New("cycle detected")
	ErrDanglingParent  = errors.New("dangling parent reference")
	ErrDanglingSibling = errors.New("dangling next sibling reference")
	ErrForeignSibling  = errors.New("next sibling has a different parent")
	ErrDuplicateBlock  = errors.New("duplicate block id")
	ErrReservedID      = errors.New("reserved block id")
)

// Sentinel errors for rejected mutations. Every *MutationError matches the sentinel
// of its kind.
var (
	ErrCycleRejected = errors.New("move would create a cycle")
	ErrHasChildren   = errors.New("block has children")
	ErrUnknownBlock  = errors.New("unknown block")
	ErrInvalidIndex  = errors.New("invalid index")
	ErrRootBlock     = errors.New("operation not allowed on the page root")
	ErrInvalidBlock  = errors.New("invalid block id")
	ErrInvalidPolicy = errors.New("invalid remove policy")
)

// IntegrityKind classifies an IntegrityError.
type IntegrityKind int

const (
	// KindMultipleHeads: more than one child of a parent is not referenced as a next sibling.
	KindMultipleHeads IntegrityKind = iota + 1
	// KindCycleDetected: a sibling chain loops, or blocks are their own ancestors.
	KindCycleDetected
	// KindDanglingParent: a block names a parent that is not part of the page.
	KindDanglingParent
	// KindDanglingSibling: a block names a next sibling that is not part of the page.
	KindDanglingSibling
	// KindForeignSibling: a block's next sibling belongs to another parent.
	KindForeignSibling
	// KindDuplicateBlock: two rows share an id.
	KindDuplicateBlock
	// KindReservedID: a row uses the root sentinel or a negative id.
	KindReservedID
)

func (k IntegrityKind) String() string {
	switch k {
	case KindMultipleHeads:
		return "multiple_heads"
	case KindCycleDetected:
		return "cycle_detected"
	case KindDanglingParent:
		return "dangling_parent"
	case KindDanglingSibling:
		return "dangling_sibling"
	case KindForeignSibling:
		return "foreign_sibling"
	case KindDuplicateBlock:
		return "duplicate_block"
	case KindReservedID:
		return "reserved_id"
	default:
		return fmt.Sprintf("integrity_kind(%d)", int(k))
	}
}

func (k IntegrityKind) sentinel() error {
	switch k {
	case KindMultipleHeads:
		return ErrMultipleHeads
	case KindCycleDetected:
		return ErrCycleDetected
	case KindDanglingParent:
		return ErrDanglingParent
	case KindDanglingSibling:
		return ErrDanglingSibling
	case KindForeignSibling:
		return ErrForeignSibling
	case KindDuplicateBlock:
		return ErrDuplicateBlock
	case KindReservedID:
		return ErrReservedID
	default:
		return nil
	}
}

// IntegrityError reports why a set of rows does not form a valid outline.
//
// ParentID names the parent group the violation was found in. BlockID names the
// offending block where there is one. For KindDanglingParent, ParentID is the missing
// parent and BlockID the block referencing it.
type IntegrityError struct {
	Kind     IntegrityKind
	ParentID models.BlockID
	BlockID  models.BlockID
	Heads    []models.BlockID
}

func (e *IntegrityError) Error() string {
	switch e.Kind {
	case KindMultipleHeads:
		return fmt.Sprintf("%v: parent %s has %d heads %v", ErrMultipleHeads, e.ParentID, len(e.Heads), e.Heads)
	case KindCycleDetected:
		if e.BlockID != models.RootBlockID {
			return fmt.Sprintf("%v: block %s under parent %s", ErrCycleDetected, e.BlockID, e.ParentID)
		}
		return fmt.Sprintf("%v: sibling chain of parent %s", ErrCycleDetected, e.ParentID)
	case KindDanglingParent:
		return fmt.Sprintf("%v: block %s references missing parent %s", ErrDanglingParent, e.BlockID, e.ParentID)
	case KindDanglingSibling, KindForeignSibling:
		return fmt.Sprintf("%v: block %s under parent %s", e.Kind.sentinel(), e.BlockID, e.ParentID)
	case KindDuplicateBlock, KindReservedID:
		return fmt.Sprintf("%v: %d", e.Kind.sentinel(), int64(e.BlockID))
	default:
		return fmt.Sprintf("%v: %s", ErrStructuralIntegrity, e.Kind)
	}
}

// Is returns true if the target is ErrStructuralIntegrity or the sentinel of e.Kind
func (e *IntegrityError) Is(target error) bool {
	return target == ErrStructuralIntegrity || target == e.Kind.sentinel()
}

// MutationKind classifies a MutationError.
type MutationKind int

const (
	KindCycleRejected MutationKind = iota + 1
	KindHasChildren
	KindUnknownBlock
	KindInvalidIndex
	KindRootBlock
	KindInvalidBlock
	KindInvalidPolicy
)

func (k MutationKind) sentinel() error {
	switch k {
	case KindCycleRejected:
		return ErrCycleRejected
	case KindHasChildren:
		return ErrHasChildren
	case KindUnknownBlock:
		return ErrUnknownBlock
	case KindInvalidIndex:
		return ErrInvalidIndex
	case KindRootBlock:
		return ErrRootBlock
	case KindInvalidBlock:
		return ErrInvalidBlock
	case KindInvalidPolicy:
		return ErrInvalidPolicy
	default:
		return nil
	}
}

// MutationError reports a rejected tree mutation. The tree is unchanged when one is
// returned.
type MutationError struct {
	Op      string
	Kind    MutationKind
	BlockID models.BlockID
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.BlockID, e.Kind.sentinel())
}

// Is returns true if the target is the sentinel of e.Kind
func (e *MutationError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func mutationError(op string, kind MutationKind, id models.BlockID) *MutationError {
	return &MutationError{Op: op, Kind: kind, BlockID: id}
}
