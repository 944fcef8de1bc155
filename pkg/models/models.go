package models

// Page is the stored record of a page.
//
// RootBlockID mirrors the first top-level block of the page. The engine re-derives it
// from the tree after every build and structural mutation; the stored value is only
// trusted as a cross-check. The column has no foreign key constraint: pages and blocks
// would otherwise reference each other, and the engine rewrites the column in the same
// transaction as the block updates anyway.
type Page struct {
	ID          PageID   `gorm:"primaryKey;autoIncrement" json:"id" cbor:"id"`
	Title       string   `gorm:"not null" json:"title" cbor:"title"`
	RootBlockID *BlockID `gorm:"column:first_block" json:"root_block_id,omitempty" cbor:"root_block_id,omitempty"`
}

// TableName returns the table name for pages
func (Page) TableName() string {
	return "pages"
}

// Block is the stored record of one content block.
//
// Parent, NextSibling and Page exist only so that gorm creates the foreign keys with
// ON DELETE SET NULL. They are never loaded.
type Block struct {
	ID            BlockID  `gorm:"primaryKey;autoIncrement" json:"id" cbor:"id"`
	Content       string   `gorm:"type:text" json:"content" cbor:"content"`
	ParentID      *BlockID `gorm:"column:parent;index" json:"parent_id,omitempty" cbor:"parent_id,omitempty"`
	Parent        *Block   `gorm:"foreignKey:ParentID;constraint:OnDelete:SET NULL" json:"-" cbor:"-"`
	NextSiblingID *BlockID `gorm:"column:next_sibling" json:"next_sibling_id,omitempty" cbor:"next_sibling_id,omitempty"`
	NextSibling   *Block   `gorm:"foreignKey:NextSiblingID;constraint:OnDelete:SET NULL" json:"-" cbor:"-"`
	PageID        *PageID  `gorm:"column:page;index" json:"page_id,omitempty" cbor:"page_id,omitempty"`
	Page          *Page    `gorm:"foreignKey:PageID;constraint:OnDelete:SET NULL" json:"-" cbor:"-"`
}

// TableName returns the table name for blocks
func (Block) TableName() string {
	return "blocks"
}

// IsTopLevel reports whether the block is a child of the synthetic root.
func (b *Block) IsTopLevel() bool {
	return b.ParentID == nil
}

// Clone returns a copy of b that shares no pointers with it.
func (b Block) Clone() Block {
	out := Block{ID: b.ID, Content: b.Content}
	if b.ParentID != nil {
		out.ParentID = Ref(*b.ParentID)
	}
	if b.NextSiblingID != nil {
		out.NextSiblingID = Ref(*b.NextSiblingID)
	}
	if b.PageID != nil {
		out.PageID = PageRef(*b.PageID)
	}
	return out
}

// Clone returns a copy of p that shares no pointers with it.
func (p Page) Clone() Page {
	out := Page{ID: p.ID, Title: p.Title}
	if p.RootBlockID != nil {
		out.RootBlockID = Ref(*p.RootBlockID)
	}
	return out
}

// CloneBlocks deep-copies a slice of blocks.
func CloneBlocks(blocks []Block) []Block {
	if blocks == nil {
		return nil
	}
	out := make([]Block, len(blocks))
	for i := range blocks {
		out[i] = blocks[i].Clone()
	}
	return out
}
