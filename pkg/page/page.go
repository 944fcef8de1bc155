// Package page ties an outline tree to the rows it was built from.
//
// A [Page] is loaded from a [store.BlockStore], mutated in memory through the
// [outline.Tree] operations, and written back by [Page.Save] as one change set. The
// page keeps the rows of its last load or save and diffs against them, so a save only
// writes blocks that changed.
//
// [Service] adds a page cache and parallel loading on top.
package page

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/surrealdb/surrealoutline/pkg/models"
	"github.com/surrealdb/surrealoutline/pkg/outline"
	"github.com/surrealdb/surrealoutline/pkg/store"
)

// ErrStale is returned by a page whose last save failed. Reload it before using it
// again.
var ErrStale = errors.New("page is stale after a failed save")

// Page is a loaded page. It is not safe for concurrent use.
type Page struct {
	st  store.BlockStore
	log zerolog.Logger

	stored   models.Page
	title    string
	tree     *outline.Tree
	rows     []models.Block
	mismatch *outline.RootMismatch
	stale    bool
	// inserted holds the rows created by InsertChild since the last save. They are
	// detached in the store until a save links them into the page.
	inserted map[models.BlockID]struct{}
}

// Load fetches a page and its blocks and builds the tree. Missing pages fail with
// store.ErrNotFound, storage failures with a *store.PersistenceError and corrupt rows
// with an *outline.IntegrityError.
func Load(ctx context.Context, st store.BlockStore, id models.PageID, log zerolog.Logger) (*Page, error) {
	p := &Page{st: st, log: log.With().Stringer("page", id).Logger()}
	if err := p.load(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Page) load(ctx context.Context, id models.PageID) (err error) {
	start := time.Now()
	defer func() {
		pageBuildDuration.Observe(time.Since(start).Seconds())
		var ie *outline.IntegrityError
		switch {
		case err == nil:
			pageBuilds.WithLabelValues("ok").Inc()
		case errors.As(err, &ie):
			pageBuilds.WithLabelValues("integrity_error").Inc()
			integrityErrors.WithLabelValues(ie.Kind.String()).Inc()
		default:
			pageBuilds.WithLabelValues("store_error").Inc()
		}
	}()

	record, err := p.st.GetPage(ctx, id)
	if err != nil {
		return &store.PersistenceError{Op: "load", PageID: id, Err: err}
	}
	if record == nil {
		return store.NotFound("page", id)
	}
	rows, err := p.st.FetchBlocksForPage(ctx, id)
	if err != nil {
		return &store.PersistenceError{Op: "load", PageID: id, Err: err}
	}

	tree, err := outline.Build(*record, rows)
	if err != nil {
		p.log.Error().Err(err).Int("rows", len(rows)).Msg("page failed to build")
		return fmt.Errorf("page %s: %w", id, err)
	}

	p.stored = *record
	p.title = record.Title
	p.tree = tree
	p.rows = rows
	p.mismatch = tree.RootMismatch()
	p.stale = false
	if p.mismatch != nil {
		rootMismatches.Inc()
		p.log.Warn().
			Str("stored", models.FormatRef(p.mismatch.Stored)).
			Str("derived", models.FormatRef(p.mismatch.Derived)).
			Msg("stored root block disagrees with tree")
	}
	p.log.Debug().Int("blocks", tree.Len()).Msg("page loaded")
	return nil
}

func (p *Page) ID() models.PageID { return p.stored.ID }

func (p *Page) Title() string { return p.title }

// Record returns the page record as it would be saved: the root block id is always
// derived from the tree.
func (p *Page) Record() models.Page {
	return models.Page{ID: p.stored.ID, Title: p.title, RootBlockID: p.tree.RootRef()}
}

// Tree returns the page's tree for reading. Blocks added with Tree.InsertChild get
// ids the store never assigned and make Save fail; use Page.InsertChild.
func (p *Page) Tree() *outline.Tree { return p.tree }

// RootMismatch reports the disagreement between the stored root block id and the tree
// found by the last load, until a save or ReconcileRoot writes the derived value.
func (p *Page) RootMismatch() *outline.RootMismatch { return p.mismatch }

// Stale reports whether the last save failed.
func (p *Page) Stale() bool { return p.stale }

// Dirty reports whether Save would write anything.
func (p *Page) Dirty() bool {
	return !p.changes().IsEmpty()
}

// InsertChild creates a block in the store and inserts it under parent at index,
// clamped to the children. The row is created detached and only becomes part of the
// page when the page is saved.
func (p *Page) InsertChild(ctx context.Context, parent models.BlockID, index int, content string) (models.BlockID, error) {
	if p.stale {
		return 0, ErrStale
	}
	if !parent.IsRoot() && !p.tree.Has(parent) {
		return 0, &outline.MutationError{Op: "insert", Kind: outline.KindUnknownBlock, BlockID: parent}
	}
	id, err := p.st.InsertBlock(ctx, content, nil, nil, nil)
	if err != nil {
		return 0, &store.PersistenceError{Op: "insert", PageID: p.ID(), Err: err}
	}
	if err := p.tree.Attach(id, parent, index, content); err != nil {
		if derr := p.st.DeleteBlock(ctx, id); derr != nil {
			p.log.Warn().Err(derr).Stringer("block", id).Msg("failed to delete unused block row")
		}
		return 0, err
	}
	if p.inserted == nil {
		p.inserted = make(map[models.BlockID]struct{})
	}
	p.inserted[id] = struct{}{}
	return id, nil
}

func (p *Page) MoveBlock(block, newParent models.BlockID, newIndex int) error {
	if p.stale {
		return ErrStale
	}
	return p.tree.MoveBlock(block, newParent, newIndex)
}

// RemoveBlock removes block from the tree and returns the removed ids. The rows are
// deleted on save, including rows of blocks inserted since the last save.
func (p *Page) RemoveBlock(block models.BlockID, policy outline.RemovePolicy) ([]models.BlockID, error) {
	if p.stale {
		return nil, ErrStale
	}
	return p.tree.RemoveBlock(block, policy)
}

func (p *Page) RenameContent(block models.BlockID, content string) error {
	if p.stale {
		return ErrStale
	}
	return p.tree.RenameContent(block, content)
}

func (p *Page) ReorderChildren(parent models.BlockID, order []models.BlockID) error {
	if p.stale {
		return ErrStale
	}
	return p.tree.ReorderChildren(parent, order)
}

func (p *Page) SetTitle(title string) error {
	if p.stale {
		return ErrStale
	}
	p.title = title
	return nil
}

// changes is the change set Save would apply. The page fields are only set when they
// differ from the stored record.
func (p *Page) changes() models.ChangeSet {
	cs := outline.Diff(p.tree, p.stored.ID, p.rows)
	extra := false
	for id := range p.inserted {
		if !p.tree.Has(id) {
			cs.Deletes = append(cs.Deletes, id)
			extra = true
		}
	}
	if extra {
		slices.Sort(cs.Deletes)
	}
	if models.SameRef(p.stored.RootBlockID, cs.RootBlockID.Value) {
		cs.RootBlockID = models.Field[*models.BlockID]{}
	}
	if p.title != p.stored.Title {
		cs.Title = models.Set(p.title)
	}
	return cs
}

// Save writes every change since the last load or save in one transaction. When the
// store fails the page is marked stale and the error is a *store.PersistenceError;
// nothing was written.
func (p *Page) Save(ctx context.Context) error {
	if p.stale {
		return ErrStale
	}
	cs := p.changes()
	if cs.IsEmpty() {
		return nil
	}
	log := p.log.With().Str("batch", cs.BatchID.String()).Logger()

	if err := p.st.Apply(ctx, cs); err != nil {
		p.stale = true
		pageSaves.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("save failed, page must be reloaded")
		return &store.PersistenceError{Op: "save", PageID: p.ID(), Err: err}
	}

	pageSaves.WithLabelValues("ok").Inc()
	blockUpdatesWritten.Add(float64(len(cs.Updates)))
	blockDeletesWritten.Add(float64(len(cs.Deletes)))
	p.rows = outline.Serialize(p.tree, p.ID())
	p.stored = p.Record()
	p.mismatch = nil
	p.inserted = nil
	log.Debug().Int("updates", len(cs.Updates)).Int("deletes", len(cs.Deletes)).Msg("page saved")
	return nil
}

// Reload discards local state and rebuilds the page from the store. It is safe to
// call any number of times.
func (p *Page) Reload(ctx context.Context) error {
	if err := p.DiscardInserts(ctx); err != nil {
		return err
	}
	return p.load(ctx, p.ID())
}

// DiscardInserts deletes the rows created by InsertChild that no save has linked
// into the page yet. The blocks stay in the in-memory tree, so a page that is kept
// after this must be reloaded. Rows that are already gone are ignored.
func (p *Page) DiscardInserts(ctx context.Context) error {
	var errs []error
	for _, id := range slices.Sorted(maps.Keys(p.inserted)) {
		err := p.st.DeleteBlock(ctx, id)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			errs = append(errs, err)
			continue
		}
		delete(p.inserted, id)
	}
	if len(errs) > 0 {
		return &store.PersistenceError{Op: "discard", PageID: p.ID(), Err: errors.Join(errs...)}
	}
	if len(p.inserted) == 0 {
		p.inserted = nil
	}
	p.log.Debug().Msg("discarded unsaved block rows")
	return nil
}

// ReconcileRoot writes the root block id derived from the stored rows when the
// stored one disagreed with them at load time. Unsaved changes are not written. It
// reports whether it wrote anything.
func (p *Page) ReconcileRoot(ctx context.Context) (bool, error) {
	if p.stale {
		return false, ErrStale
	}
	if p.mismatch == nil {
		return false, nil
	}
	derived := p.mismatch.Derived
	err := p.st.UpdatePage(ctx, p.ID(), models.PagePatch{RootBlockID: models.Set(derived)})
	if err != nil {
		return false, &store.PersistenceError{Op: "reconcile", PageID: p.ID(), Err: err}
	}
	p.log.Info().
		Str("stored", models.FormatRef(p.stored.RootBlockID)).
		Str("derived", models.FormatRef(derived)).
		Msg("reconciled root block")
	p.stored.RootBlockID = derived
	p.mismatch = nil
	return true, nil
}
