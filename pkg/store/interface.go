// Package store defines the persistence contract of the outline engine.
//
// A [BlockStore] keeps two tables: pages and blocks. A block row carries nullable
// parent, next-sibling and page references; deleting a block sets every reference to
// it to null (ON DELETE SET NULL), it never cascades. The engine never relies on the
// order rows come back in.
//
// Implementations:
//
//   - [github.com/surrealdb/surrealoutline/pkg/store/memory.Store]: in-process maps,
//     used by tests and the demo
//   - [github.com/surrealdb/surrealoutline/pkg/store/gormstore.Store]: gorm on sqlite or
//     PostgreSQL
//
// [ReadOnlyStore] wraps either of them and rejects writes while a predicate says so.
//
// # Concurrency
//
// Stores are safe for concurrent use. Pages are independent, so saves of different
// pages may run in parallel; [BlockStore.Apply] is one transaction, so a crashed or
// failed save leaves the page as it was.
package store

import (
	"context"

	"github.com/surrealdb/surrealoutline/pkg/models"
)

// BlockStore is the storage collaborator of a page. Every call may block and takes a
// context.
type BlockStore interface {
	// InsertBlock creates a block row and returns the id the store assigned.
	InsertBlock(ctx context.Context, content string, parentID, nextSiblingID *models.BlockID, pageID *models.PageID) (models.BlockID, error)
	// UpdateBlock writes the set fields of patch. Unknown ids fail with ErrNotFound.
	UpdateBlock(ctx context.Context, patch models.BlockPatch) error
	// DeleteBlock removes a block and nulls every reference to it.
	DeleteBlock(ctx context.Context, id models.BlockID) error

	InsertPage(ctx context.Context, title string, rootBlockID *models.BlockID) (models.PageID, error)
	UpdatePage(ctx context.Context, id models.PageID, patch models.PagePatch) error
	// DeletePage removes a page row. Blocks that referenced it stay, with a null page
	// reference. Unknown ids fail with ErrNotFound.
	DeletePage(ctx context.Context, id models.PageID) error
	// GetPage returns nil, nil when the page does not exist.
	GetPage(ctx context.Context, id models.PageID) (*models.Page, error)
	ListPages(ctx context.Context) ([]models.Page, error)
	// FetchBlocksForPage returns every block whose page reference is id, in no
	// particular order.
	FetchBlocksForPage(ctx context.Context, pageID models.PageID) ([]models.Block, error)

	// Apply writes a change set atomically: block updates, then deletes, then the
	// page's title and root block id.
	Apply(ctx context.Context, cs models.ChangeSet) error

	Migrate(ctx context.Context) error
	Close() error
}
