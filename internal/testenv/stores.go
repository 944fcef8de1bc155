package testenv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealoutline/pkg/store"
	"github.com/surrealdb/surrealoutline/pkg/store/gormstore"
	"github.com/surrealdb/surrealoutline/pkg/store/memory"
)

const (
	// EnvPostgresURL names a PostgreSQL database to run the gorm store tests against
	// in addition to sqlite. The tests drop and recreate the pages and blocks tables.
	EnvPostgresURL = "OUTLINE_TEST_POSTGRES_URL"
)

// StoreFactory returns a fresh, migrated, empty store closed when the test ends.
type StoreFactory func(t *testing.T) store.BlockStore

// NewMemoryStore is a StoreFactory for the in-memory store.
func NewMemoryStore(t *testing.T) store.BlockStore {
	return memory.New()
}

// NewSqliteStore is a StoreFactory for a gorm store on a sqlite file in a temporary
// directory.
func NewSqliteStore(t *testing.T) store.BlockStore {
	t.Helper()
	dburl := "sqlite://" + filepath.Join(t.TempDir(), "outline.db")
	return openGormStore(t, dburl)
}

// NewPostgresStore is a StoreFactory for a gorm store on the database named by
// EnvPostgresURL. The test is skipped when the variable is unset.
func NewPostgresStore(t *testing.T) store.BlockStore {
	t.Helper()
	dburl := os.Getenv(EnvPostgresURL)
	if dburl == "" {
		t.Skipf("%s not set", EnvPostgresURL)
	}
	st := openGormStore(t, dburl)
	db := st.(*gormstore.Store).DB()
	require.NoError(t, db.Exec("DROP TABLE IF EXISTS blocks, pages").Error)
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// Stores returns every store implementation that can run in this environment.
func Stores() map[string]StoreFactory {
	return map[string]StoreFactory{
		"memory":   NewMemoryStore,
		"sqlite":   NewSqliteStore,
		"postgres": NewPostgresStore,
	}
}

func openGormStore(t *testing.T, dburl string) store.BlockStore {
	t.Helper()
	st, err := gormstore.Open(dburl, gormstore.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}
