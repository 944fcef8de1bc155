package surrealoutline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/surrealdb/surrealoutline/pkg/logger"
	"github.com/surrealdb/surrealoutline/pkg/models"
	"github.com/surrealdb/surrealoutline/pkg/page"
	"github.com/surrealdb/surrealoutline/pkg/store"
	"github.com/surrealdb/surrealoutline/pkg/store/gormstore"
	"github.com/surrealdb/surrealoutline/pkg/store/memory"
)

// Config holds application configuration.
type Config struct {
	// DatabaseURL selects the store: sqlite://, postgres:// or memory://.
	DatabaseURL   string
	SlowThreshold time.Duration

	LogLevel zerolog.Level
	// LogFile, when set, receives the logs instead of stderr.
	LogFile string

	ReadOnly  bool // When true, all writes are rejected
	CacheSize int
	Jobs      int

	// MetricsFile, when set, receives the metrics in the Prometheus text format.
	MetricsFile string
}

// App holds the application state of one command run.
type App struct {
	config   *Config
	logs     *logger.LogData
	log      zerolog.Logger
	store    store.BlockStore
	pages    *page.Service
	out      io.Writer
	readOnly atomic.Bool
}

// New opens the store and builds the page service. Logs go to stderr unless
// config.LogFile is set; command output goes to out.
func New(config *Config, out, stderr io.Writer) (*App, error) {
	logs, err := logger.New().
		WithLevel(config.LogLevel).
		FromBuffer(stderr).
		FromPath(config.LogFile).
		WithComponent("surrealoutline").
		Make()
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	backend, err := openStore(config, logs.Logger)
	if err != nil {
		logs.Close()
		return nil, err
	}

	app := &App{
		config: config,
		logs:   logs,
		log:    logs.Logger,
		out:    out,
	}
	app.readOnly.Store(config.ReadOnly)
	app.store = store.NewReadOnlyStore(backend, app.IsReadOnly)

	app.pages, err = page.NewService(app.store, page.ServiceConfig{
		CacheSize: config.CacheSize,
		Jobs:      config.Jobs,
		Logger:    app.log,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func openStore(config *Config, log zerolog.Logger) (store.BlockStore, error) {
	if config.DatabaseURL == "memory" || strings.HasPrefix(config.DatabaseURL, "memory://") {
		log.Debug().Msg("using in-memory store")
		return memory.New(), nil
	}
	st, err := gormstore.Open(config.DatabaseURL, gormstore.Options{
		SlowThreshold: config.SlowThreshold,
		Logger:        log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}

// Close closes the store and the log file.
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	errs = append(errs, a.logs.Close())
	return errors.Join(errs...)
}

// Store returns the store behind the read-only guard.
func (a *App) Store() store.BlockStore {
	return a.store
}

// Pages returns the page service.
func (a *App) Pages() *page.Service {
	return a.pages
}

// SetReadOnly toggles rejection of writes at runtime.
func (a *App) SetReadOnly(readOnly bool) {
	a.readOnly.Store(readOnly)
	a.log.Info().Bool("read_only", readOnly).Msg("read-only mode changed")
}

func (a *App) IsReadOnly() bool {
	return a.readOnly.Load()
}

// edit opens a page, applies fn and saves the page.
func (a *App) edit(ctx context.Context, id models.PageID, fn func(*page.Page) error) error {
	p, err := a.pages.Open(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(p); err != nil {
		// nothing was saved; drop the partly edited page
		a.pages.Abandon(ctx, p)
		return err
	}
	return a.pages.Save(ctx, p)
}
