package models

import (
	"github.com/google/uuid"
)

// Field is an optional value. The zero Field leaves the target untouched; a set Field
// overwrites it, which for pointer types includes overwriting it with null.
type Field[T any] struct {
	Set   bool
	Value T
}

// Set returns a Field that overwrites its target with v.
func Set[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Get returns the value and whether it was set.
func (f Field[T]) Get() (T, bool) {
	return f.Value, f.Set
}

// BlockPatch describes an update of one block row. Unset fields are left as stored.
type BlockPatch struct {
	ID            BlockID
	Content       Field[string]
	ParentID      Field[*BlockID]
	NextSiblingID Field[*BlockID]
	PageID        Field[*PageID]
}

// IsEmpty reports whether the patch would not change anything.
func (p BlockPatch) IsEmpty() bool {
	return !p.Content.Set && !p.ParentID.Set && !p.NextSiblingID.Set && !p.PageID.Set
}

// ApplyTo writes the set fields of p into b.
func (p BlockPatch) ApplyTo(b *Block) {
	if p.Content.Set {
		b.Content = p.Content.Value
	}
	if p.ParentID.Set {
		b.ParentID = copyRef(p.ParentID.Value)
	}
	if p.NextSiblingID.Set {
		b.NextSiblingID = copyRef(p.NextSiblingID.Value)
	}
	if p.PageID.Set {
		if p.PageID.Value == nil {
			b.PageID = nil
		} else {
			b.PageID = PageRef(*p.PageID.Value)
		}
	}
}

// PagePatch describes an update of one page row. Unset fields are left as stored.
type PagePatch struct {
	Title       Field[string]
	RootBlockID Field[*BlockID]
}

// ApplyTo writes the set fields of p into page.
func (p PagePatch) ApplyTo(page *Page) {
	if p.Title.Set {
		page.Title = p.Title.Value
	}
	if p.RootBlockID.Set {
		page.RootBlockID = copyRef(p.RootBlockID.Value)
	}
}

// ChangeSet is everything one save of a page writes. Stores apply a ChangeSet
// atomically: all of it or none of it.
//
// Updates are ordered parent before child, left to right. Deletes name blocks that
// were part of the page and no longer are; they are applied after the updates so that
// no surviving row still references them.
type ChangeSet struct {
	BatchID     uuid.UUID
	PageID      PageID
	Updates     []BlockPatch
	Deletes     []BlockID
	RootBlockID Field[*BlockID]
	Title       Field[string]
}

// NewChangeSet returns an empty change set for a page with a fresh batch id.
func NewChangeSet(pageID PageID) ChangeSet {
	return ChangeSet{BatchID: uuid.New(), PageID: pageID}
}

// IsEmpty reports whether applying the change set would write nothing.
func (c ChangeSet) IsEmpty() bool {
	return len(c.Updates) == 0 && len(c.Deletes) == 0 && !c.RootBlockID.Set && !c.Title.Set
}

// PagePatch returns the page part of the change set.
func (c ChangeSet) PagePatch() PagePatch {
	return PagePatch{Title: c.Title, RootBlockID: c.RootBlockID}
}

func copyRef(ref *BlockID) *BlockID {
	if ref == nil {
		return nil
	}
	return Ref(*ref)
}
