package surrealoutline

import (
	"context"
	"errors"
	"fmt"

	"github.com/surrealdb/surrealoutline/pkg/models"
	"github.com/surrealdb/surrealoutline/pkg/outline"
	"github.com/surrealdb/surrealoutline/pkg/page"
	"github.com/surrealdb/surrealoutline/pkg/snapshot"
)

// ErrCheckFailed is returned by Check when at least one page has a problem.
var ErrCheckFailed = errors.New("integrity check failed")

// Migrate creates or updates the tables. It is safe to run any number of times.
func (a *App) Migrate(ctx context.Context) error {
	a.log.Info().Msg("running database migrations")
	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	a.log.Info().Msg("migrations completed")
	return nil
}

// Demo creates a page with a block and a child block and prints it.
func (a *App) Demo(ctx context.Context) error {
	if err := a.Migrate(ctx); err != nil {
		return err
	}
	p, err := a.pages.CreatePage(ctx, "demo")
	if err != nil {
		return err
	}
	parent, err := p.InsertChild(ctx, models.RootBlockID, 0, "Hello, world!")
	if err != nil {
		return err
	}
	if _, err := p.InsertChild(ctx, parent, 0, "This is a child block"); err != nil {
		return err
	}
	if err := a.pages.Save(ctx, p); err != nil {
		return err
	}
	return renderPage(a.out, p, true)
}

func (a *App) ListPages(ctx context.Context) error {
	pages, err := a.store.ListPages(ctx)
	if err != nil {
		return err
	}
	for _, p := range pages {
		fmt.Fprintf(a.out, "%s\t%s\troot=%s\n", p.ID, p.Title, models.FormatRef(p.RootBlockID))
	}
	return nil
}

func (a *App) NewPage(ctx context.Context, title string) error {
	p, err := a.pages.CreatePage(ctx, title)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, p.ID())
	return nil
}

func (a *App) Print(ctx context.Context, id models.PageID, showIDs bool) error {
	p, err := a.pages.Open(ctx, id)
	if err != nil {
		return err
	}
	return renderPage(a.out, p, showIDs)
}

// Check builds every page and prints one line per page. Pages that fail to build or
// whose stored root block is wrong make it fail with ErrCheckFailed.
func (a *App) Check(ctx context.Context) error {
	reports, err := a.pages.Check(ctx)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range reports {
		switch {
		case r.Err != nil:
			fmt.Fprintf(a.out, "page %s %q: %v\n", r.Page.ID, r.Page.Title, r.Err)
		case r.RootMismatch != nil:
			fmt.Fprintf(a.out, "page %s %q: root mismatch, stored %s, derived %s\n",
				r.Page.ID, r.Page.Title,
				models.FormatRef(r.RootMismatch.Stored), models.FormatRef(r.RootMismatch.Derived))
		default:
			fmt.Fprintf(a.out, "page %s %q: ok, %d blocks\n", r.Page.ID, r.Page.Title, r.Blocks)
		}
		if !r.OK() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d pages", ErrCheckFailed, failed, len(reports))
	}
	return nil
}

// Reconcile writes the derived root block id of the given pages, or of every page when
// ids is empty.
func (a *App) Reconcile(ctx context.Context, ids []models.PageID) error {
	if len(ids) == 0 {
		pages, err := a.store.ListPages(ctx)
		if err != nil {
			return err
		}
		for _, p := range pages {
			ids = append(ids, p.ID)
		}
	}
	pages, err := a.pages.OpenMany(ctx, ids)
	if err != nil {
		return err
	}
	for _, p := range pages {
		mismatch := p.RootMismatch()
		wrote, err := p.ReconcileRoot(ctx)
		if err != nil {
			return err
		}
		if !wrote {
			fmt.Fprintf(a.out, "page %s: root ok\n", p.ID())
			continue
		}
		fmt.Fprintf(a.out, "page %s: root %s -> %s\n",
			p.ID(), models.FormatRef(mismatch.Stored), models.FormatRef(mismatch.Derived))
	}
	return nil
}

// Insert creates a block under parent and prints its id.
func (a *App) Insert(ctx context.Context, id models.PageID, parent models.BlockID, index int, content string) error {
	var block models.BlockID
	err := a.edit(ctx, id, func(p *page.Page) (err error) {
		block, err = p.InsertChild(ctx, parent, index, content)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, block)
	return nil
}

func (a *App) Move(ctx context.Context, id models.PageID, block, parent models.BlockID, index int) error {
	return a.edit(ctx, id, func(p *page.Page) error {
		return p.MoveBlock(block, parent, index)
	})
}

// Remove removes a block and prints the ids of the removed blocks.
func (a *App) Remove(ctx context.Context, id models.PageID, block models.BlockID, policy outline.RemovePolicy) error {
	var removed []models.BlockID
	err := a.edit(ctx, id, func(p *page.Page) (err error) {
		removed, err = p.RemoveBlock(block, policy)
		return err
	})
	if err != nil {
		return err
	}
	for _, r := range removed {
		fmt.Fprintln(a.out, r)
	}
	return nil
}

func (a *App) Rename(ctx context.Context, id models.PageID, block models.BlockID, content string) error {
	return a.edit(ctx, id, func(p *page.Page) error {
		return p.RenameContent(block, content)
	})
}

func (a *App) Reorder(ctx context.Context, id models.PageID, parent models.BlockID, order []models.BlockID) error {
	return a.edit(ctx, id, func(p *page.Page) error {
		return p.ReorderChildren(parent, order)
	})
}

func (a *App) Retitle(ctx context.Context, id models.PageID, title string) error {
	return a.edit(ctx, id, func(p *page.Page) error {
		return p.SetTitle(title)
	})
}

// Export writes a snapshot of a page to path.
func (a *App) Export(ctx context.Context, id models.PageID, path string) error {
	p, err := a.pages.Open(ctx, id)
	if err != nil {
		return err
	}
	s := snapshot.Take(p.Record(), p.Tree())
	if err := snapshot.WriteFile(path, s); err != nil {
		return err
	}
	a.log.Info().Stringer("page", id).Str("path", path).Int("blocks", len(s.Blocks)).Msg("page exported")
	fmt.Fprintf(a.out, "exported page %s to %s, %d blocks\n", id, path, len(s.Blocks))
	return nil
}

// Import creates a new page from a snapshot file and prints its id.
func (a *App) Import(ctx context.Context, path string) error {
	s, err := snapshot.ReadFile(path)
	if err != nil {
		return err
	}
	id, ids, err := snapshot.Import(ctx, a.store, s)
	if err != nil {
		return err
	}
	a.log.Info().Stringer("page", id).Str("path", path).Int("blocks", len(ids)).Msg("page imported")
	fmt.Fprintln(a.out, id)
	return nil
}
