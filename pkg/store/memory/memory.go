// Package memory provides an in-process [store.BlockStore].
//
// It follows the relational schema closely: ids are assigned from per-table
// sequences, references must name existing rows, and deleting a block nulls every
// reference to it. Apply works on copies of the tables and swaps them in only when
// every step succeeded.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/surrealdb/surrealoutline/pkg/models"
	"github.com/surrealdb/surrealoutline/pkg/store"
)

type tables struct {
	blocks map[models.BlockID]models.Block
	pages  map[models.PageID]models.Page
}

// Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	data      tables
	nextBlock models.BlockID
	nextPage  models.PageID
}

var _ store.BlockStore = (*Store)(nil)

func New() *Store {
	return &Store{
		data: tables{
			blocks: make(map[models.BlockID]models.Block),
			pages:  make(map[models.PageID]models.Page),
		},
		nextBlock: 1,
		nextPage:  1,
	}
}

func (s *Store) InsertBlock(ctx context.Context, content string, parentID, nextSiblingID *models.BlockID, pageID *models.PageID) (models.BlockID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b := models.Block{ID: s.nextBlock, Content: content, ParentID: parentID, NextSiblingID: nextSiblingID, PageID: pageID}
	b = b.Clone()
	if err := s.data.checkRefs(b); err != nil {
		return 0, err
	}
	s.data.blocks[b.ID] = b
	s.nextBlock++
	return b.ID, nil
}

func (s *Store) UpdateBlock(ctx context.Context, patch models.BlockPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.updateBlock(patch)
}

func (s *Store) DeleteBlock(ctx context.Context, id models.BlockID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.deleteBlock(id)
}

func (s *Store) InsertPage(ctx context.Context, title string, rootBlockID *models.BlockID) (models.PageID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := models.Page{ID: s.nextPage, Title: title, RootBlockID: rootBlockID}
	s.data.pages[p.ID] = p.Clone()
	s.nextPage++
	return p.ID, nil
}

func (s *Store) UpdatePage(ctx context.Context, id models.PageID, patch models.PagePatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.updatePage(id, patch)
}

func (s *Store) DeletePage(ctx context.Context, id models.PageID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.pages[id]; !ok {
		return store.NotFound("page", id)
	}
	delete(s.data.pages, id)
	for bid, b := range s.data.blocks {
		if b.PageID != nil && *b.PageID == id {
			b.PageID = nil
			s.data.blocks[bid] = b
		}
	}
	return nil
}

func (s *Store) GetPage(ctx context.Context, id models.PageID) (*models.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data.pages[id]
	if !ok {
		return nil, nil
	}
	p = p.Clone()
	return &p, nil
}

func (s *Store) ListPages(ctx context.Context) ([]models.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Page, 0, len(s.data.pages))
	for _, p := range s.data.pages {
		out = append(out, p.Clone())
	}
	slices.SortFunc(out, func(a, b models.Page) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) FetchBlocksForPage(ctx context.Context, pageID models.PageID) ([]models.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Block
	for _, b := range s.data.blocks {
		if b.PageID != nil && *b.PageID == pageID {
			out = append(out, b.Clone())
		}
	}
	return out, nil
}

// Apply writes cs on copies of the tables and swaps them in when every step succeeded.
func (s *Store) Apply(ctx context.Context, cs models.ChangeSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := tables{
		blocks: maps.Clone(s.data.blocks),
		pages:  maps.Clone(s.data.pages),
	}
	for _, patch := range cs.Updates {
		if err := tx.updateBlock(patch); err != nil {
			return err
		}
	}
	for _, id := range cs.Deletes {
		if err := tx.deleteBlock(id); err != nil {
			return err
		}
	}
	if cs.RootBlockID.Set || cs.Title.Set {
		if err := tx.updatePage(cs.PageID, cs.PagePatch()); err != nil {
			return err
		}
	}
	s.data = tx
	return nil
}

func (s *Store) Migrate(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

// Rows returns a copy of every block row, ordered by id. Tests use it to inspect
// rows that no page references.
func (s *Store) Rows() []models.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Block, 0, len(s.data.blocks))
	for _, b := range s.data.blocks {
		out = append(out, b.Clone())
	}
	slices.SortFunc(out, func(a, b models.Block) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (t tables) updateBlock(patch models.BlockPatch) error {
	b, ok := t.blocks[patch.ID]
	if !ok {
		return store.NotFound("block", patch.ID)
	}
	patch.ApplyTo(&b)
	if err := t.checkRefs(b); err != nil {
		return err
	}
	t.blocks[b.ID] = b
	return nil
}

// deleteBlock removes a block and sets every parent and next sibling reference to
// it to null. Page roots are left alone, as pages.first_block has no foreign key.
func (t tables) deleteBlock(id models.BlockID) error {
	if _, ok := t.blocks[id]; !ok {
		return store.NotFound("block", id)
	}
	delete(t.blocks, id)
	for bid, b := range t.blocks {
		changed := false
		if b.ParentID != nil && *b.ParentID == id {
			b.ParentID = nil
			changed = true
		}
		if b.NextSiblingID != nil && *b.NextSiblingID == id {
			b.NextSiblingID = nil
			changed = true
		}
		if changed {
			t.blocks[bid] = b
		}
	}
	return nil
}

func (t tables) updatePage(id models.PageID, patch models.PagePatch) error {
	p, ok := t.pages[id]
	if !ok {
		return store.NotFound("page", id)
	}
	patch.ApplyTo(&p)
	t.pages[id] = p
	return nil
}

func (t tables) checkRefs(b models.Block) error {
	if b.ParentID != nil {
		if _, ok := t.blocks[*b.ParentID]; !ok && *b.ParentID != b.ID {
			return fmt.Errorf("block %s: parent %s: %w", b.ID, *b.ParentID, store.ErrConstraint)
		}
	}
	if b.NextSiblingID != nil {
		if _, ok := t.blocks[*b.NextSiblingID]; !ok && *b.NextSiblingID != b.ID {
			return fmt.Errorf("block %s: next sibling %s: %w", b.ID, *b.NextSiblingID, store.ErrConstraint)
		}
	}
	if b.PageID != nil {
		if _, ok := t.pages[*b.PageID]; !ok {
			return fmt.Errorf("block %s: page %s: %w", b.ID, *b.PageID, store.ErrConstraint)
		}
	}
	return nil
}
