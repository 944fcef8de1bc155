package models

import (
	"fmt"
	"strconv"
)

// BlockID identifies a block within the store.
type BlockID int64

// RootBlockID is the id of the synthetic page root. It is never persisted.
const RootBlockID BlockID = 0

// IsRoot reports whether id is the synthetic root sentinel.
func (id BlockID) IsRoot() bool { return id == RootBlockID }

func (id BlockID) String() string {
	if id.IsRoot() {
		return "root"
	}
	return strconv.FormatInt(int64(id), 10)
}

// ParseBlockID parses a decimal block id. The sentinel spelling "root" is accepted
// so that command line callers can address the synthetic root as a parent.
func ParseBlockID(s string) (BlockID, error) {
	if s == "root" {
		return RootBlockID, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid block ID %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid block ID %q: must not be negative", s)
	}
	return BlockID(v), nil
}

// PageID identifies a page within the store.
type PageID int64

func (id PageID) String() string { return strconv.FormatInt(int64(id), 10) }

func ParsePageID(s string) (PageID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid page ID %q: %w", s, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid page ID %q: must be positive", s)
	}
	return PageID(v), nil
}

// Ref returns a pointer to a copy of id, for use in nullable fields.
func Ref(id BlockID) *BlockID { return &id }

// PageRef returns a pointer to a copy of id, for use in nullable fields.
func PageRef(id PageID) *PageID { return &id }

// Deref returns the id a nullable reference points at, or RootBlockID when it is nil.
// A nil parent therefore reads as the synthetic root.
func Deref(ref *BlockID) BlockID {
	if ref == nil {
		return RootBlockID
	}
	return *ref
}

// SameRef reports whether two nullable block references are equal.
func SameRef(a, b *BlockID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// SamePageRef reports whether two nullable page references are equal.
func SamePageRef(a, b *PageID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// FormatRef renders a nullable reference for logs and error messages.
func FormatRef(ref *BlockID) string {
	if ref == nil {
		return "null"
	}
	return ref.String()
}
