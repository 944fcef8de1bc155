package page

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/surrealdb/surrealoutline/pkg/models"
	"github.com/surrealdb/surrealoutline/pkg/outline"
	"github.com/surrealdb/surrealoutline/pkg/store"
)

const (
	DefaultCacheSize = 256
	DefaultJobs      = 4
)

type ServiceConfig struct {
	// CacheSize is the number of built pages kept in memory.
	CacheSize int
	// Jobs caps the pages loaded in parallel by OpenMany and Check.
	Jobs   int
	Logger zerolog.Logger
}

// Service opens, caches and saves pages of one store.
//
// The service itself is safe for concurrent use. The pages it returns are shared
// between callers of Open and are not; callers that mutate the same page from several
// goroutines must coordinate.
type Service struct {
	st    store.BlockStore
	log   zerolog.Logger
	jobs  int
	cache *lru.Cache[models.PageID, *Page]
	// loads collapses concurrent cache misses for one page into a single build.
	loads singleflight.Group
}

func NewService(st store.BlockStore, config ServiceConfig) (*Service, error) {
	size := config.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	jobs := config.Jobs
	if jobs <= 0 {
		jobs = DefaultJobs
	}
	cache, err := lru.New[models.PageID, *Page](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create page cache: %w", err)
	}
	return &Service{st: st, log: config.Logger, jobs: jobs, cache: cache}, nil
}

// Store returns the store the service reads from and writes to.
func (s *Service) Store() store.BlockStore { return s.st }

// CreatePage inserts an empty page and returns it loaded.
func (s *Service) CreatePage(ctx context.Context, title string) (*Page, error) {
	id, err := s.st.InsertPage(ctx, title, nil)
	if err != nil {
		return nil, &store.PersistenceError{Op: "create", Err: err}
	}
	s.log.Info().Stringer("page", id).Str("title", title).Msg("page created")
	return s.Open(ctx, id)
}

// Open returns the cached page or loads it.
func (s *Service) Open(ctx context.Context, id models.PageID) (*Page, error) {
	if p, ok := s.cache.Get(id); ok {
		cacheLookups.WithLabelValues("hit").Inc()
		return p, nil
	}

	v, err, _ := s.loads.Do(id.String(), func() (any, error) {
		if p, ok := s.cache.Get(id); ok {
			cacheLookups.WithLabelValues("hit").Inc()
			return p, nil
		}
		cacheLookups.WithLabelValues("miss").Inc()
		p, err := Load(ctx, s.st, id, s.log)
		if err != nil {
			return nil, err
		}
		s.cache.Add(id, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Page), nil
}

// OpenMany opens pages in parallel, at most Jobs at a time. The result is in the
// order of ids. The first error cancels the remaining loads.
func (s *Service) OpenMany(ctx context.Context, ids []models.PageID) ([]*Page, error) {
	out := make([]*Page, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.jobs)
	for i, id := range ids {
		g.Go(func() error {
			p, err := s.Open(ctx, id)
			if err != nil {
				return err
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Save saves p. A page whose save failed is abandoned: rows it inserted since its
// last save are deleted and it is dropped from the cache, so the next Open reloads
// it.
func (s *Service) Save(ctx context.Context, p *Page) error {
	err := p.Save(ctx)
	if err != nil && (errors.Is(err, store.ErrPersistence) || errors.Is(err, ErrStale)) {
		s.Abandon(ctx, p)
	}
	return err
}

// Abandon throws away the unsaved edits of p: it deletes the rows p inserted since
// its last save and drops p from the cache. Failures to delete are logged, the rows
// stay detached and belong to no page.
func (s *Service) Abandon(ctx context.Context, p *Page) {
	if err := p.DiscardInserts(ctx); err != nil {
		s.log.Warn().Err(err).Stringer("page", p.ID()).Msg("failed to delete unsaved block rows")
	}
	s.Discard(p.ID())
}

// Discard drops a page from the cache.
func (s *Service) Discard(id models.PageID) {
	s.cache.Remove(id)
}

// Report is the outcome of checking one page.
type Report struct {
	Page         models.Page
	Blocks       int
	Err          error
	RootMismatch *outline.RootMismatch
}

// OK reports whether the page built and its stored root agrees with the tree.
func (r Report) OK() bool {
	return r.Err == nil && r.RootMismatch == nil
}

// Check builds every page of the store, bypassing the cache, and reports integrity
// errors and root mismatches per page. Only storage failures fail the whole check.
func (s *Service) Check(ctx context.Context) ([]Report, error) {
	pages, err := s.st.ListPages(ctx)
	if err != nil {
		return nil, &store.PersistenceError{Op: "check", Err: err}
	}

	reports := make([]Report, len(pages))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.jobs)
	for i, record := range pages {
		g.Go(func() error {
			r := Report{Page: record}
			p, err := Load(ctx, s.st, record.ID, s.log)
			switch {
			case err == nil:
				r.Blocks = p.Tree().Len()
				r.RootMismatch = p.RootMismatch()
				if verr := p.Tree().Validate(); verr != nil {
					r.Err = verr
				}
			case errors.Is(err, outline.ErrStructuralIntegrity):
				r.Err = err
			default:
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
