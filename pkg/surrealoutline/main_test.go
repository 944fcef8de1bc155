package surrealoutline_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealoutline/internal/testenv"
	"github.com/surrealdb/surrealoutline/pkg/models"
	"github.com/surrealdb/surrealoutline/pkg/outline"
	"github.com/surrealdb/surrealoutline/pkg/store"
	"github.com/surrealdb/surrealoutline/pkg/surrealoutline"
)

type cliEnv struct {
	t   *testing.T
	url string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	env := cliEnv{t: t, url: "sqlite://" + filepath.Join(t.TempDir(), "outline.db")}
	env.mustRun("migrate")
	return env
}

func (e cliEnv) run(args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	full := append([]string{"surrealoutline", "--database-url", e.url}, args...)
	err := surrealoutline.Run(context.Background(), full, &stdout, &stderr)
	return stdout.String(), err
}

func (e cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "surrealoutline %s", strings.Join(args, " "))
	return out
}

// requireOrder checks that the labels appear in out in the given order.
func requireOrder(t *testing.T, out string, labels ...string) {
	t.Helper()
	last := -1
	for _, l := range labels {
		i := strings.Index(out, l)
		require.Greater(t, i, last, "%q out of order in\n%s", l, out)
		last = i
	}
}

func TestCommands(t *testing.T) {
	env := newCLIEnv(t)

	assert.Equal(t, "1\n", env.mustRun("new-page", "notes"))
	assert.Equal(t, "1\n", env.mustRun("insert", "1", "root", "first"))
	assert.Equal(t, "2\n", env.mustRun("insert", "1", "root", "second"))
	assert.Equal(t, "3\n", env.mustRun("insert", "--index", "0", "1", "1", "child"))

	out := env.mustRun("print", "--ids", "1")
	assert.True(t, strings.HasPrefix(out, "notes (page 1)\n"), out)
	requireOrder(t, out, "[1] first", "[3] child", "[2] second")

	assert.Equal(t, "1\tnotes\troot=1\n", env.mustRun("pages"))

	_, err := env.run("move", "1", "1", "3")
	require.ErrorIs(t, err, outline.ErrCycleRejected)

	env.mustRun("move", "1", "3", "root")
	env.mustRun("reorder", "1", "root", "3", "2", "1")
	env.mustRun("rename", "1", "2", "SECOND")
	env.mustRun("title", "1", "renamed")
	requireOrder(t, env.mustRun("print", "1"), "renamed (page 1)", "child", "SECOND", "first")
	assert.Equal(t, "1\trenamed\troot=3\n", env.mustRun("pages"))

	assert.Equal(t, "1\n", env.mustRun("remove", "1", "1"))
	assert.Equal(t, "page 1 \"renamed\": ok, 2 blocks\n", env.mustRun("check"))
}

func TestRemovePolicies(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("new-page", "p")
	env.mustRun("insert", "1", "root", "a")
	env.mustRun("insert", "1", "1", "b")
	env.mustRun("insert", "1", "2", "c")

	_, err := env.run("remove", "1", "1")
	require.ErrorIs(t, err, outline.ErrHasChildren)
	_, err = env.run("remove", "--policy", "sideways", "1", "1")
	require.ErrorIs(t, err, outline.ErrInvalidPolicy)

	assert.Equal(t, "1\n", env.mustRun("remove", "--policy", "promote", "1", "1"))
	assert.Equal(t, "2\n3\n", env.mustRun("remove", "--policy", "delete-subtree", "1", "2"))
	assert.Equal(t, "1\tp\troot=null\n", env.mustRun("pages"))
}

func TestExportImport(t *testing.T) {
	for _, name := range []string{"page.cbor", "page.json"} {
		t.Run(name, func(t *testing.T) {
			env := newCLIEnv(t)
			env.mustRun("new-page", "source")
			env.mustRun("insert", "1", "root", "alpha")
			env.mustRun("insert", "1", "1", "beta")
			env.mustRun("insert", "1", "root", "gamma")

			path := filepath.Join(t.TempDir(), name)
			out := env.mustRun("export", "1", path)
			assert.Contains(t, out, "3 blocks")

			assert.Equal(t, "2\n", env.mustRun("import", path))
			requireOrder(t, env.mustRun("print", "--ids", "2"), "source (page 2)", "] alpha", "] beta", "] gamma")
			assert.Contains(t, env.mustRun("check"), "page 2 \"source\": ok, 3 blocks")
		})
	}
}

func TestReadOnly(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("new-page", "p")

	_, err := env.run("--read-only", "insert", "1", "root", "x")
	require.ErrorIs(t, err, store.ErrReadOnly)
	_, err = env.run("--read-only", "new-page", "q")
	require.ErrorIs(t, err, store.ErrReadOnly)

	assert.Equal(t, "p (page 1)\n", env.mustRun("--read-only", "print", "1"))
}

func TestDemo(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := surrealoutline.Run(context.Background(),
		[]string{"surrealoutline", "--database-url", "memory://", "demo"}, &stdout, &stderr)
	require.NoError(t, err)
	out := stdout.String()
	requireOrder(t, out, "demo (page 1)", "[1] Hello, world!", "[2] This is a child block")
	assert.Empty(t, stderr.String())
}

func TestEnvironmentConfig(t *testing.T) {
	t.Setenv("OUTLINE_DATABASE_URL", "memory://")
	t.Setenv("OUTLINE_LOG_LEVEL", "debug")

	var stdout, stderr bytes.Buffer
	require.NoError(t, surrealoutline.Run(context.Background(), []string{"surrealoutline", "demo"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Hello, world!")
	assert.Contains(t, stderr.String(), `"message":"page created"`)

	t.Setenv("OUTLINE_LOG_LEVEL", "loud")
	err := surrealoutline.Run(context.Background(), []string{"surrealoutline", "demo"}, &stdout, &stderr)
	require.ErrorContains(t, err, "failed to parse configuration")
}

func TestMetricsFile(t *testing.T) {
	env := newCLIEnv(t)
	dir := t.TempDir()

	saved := filepath.Join(dir, "saved.prom")
	env.mustRun("--metrics-file", saved, "new-page", "p")
	env.mustRun("--metrics-file", saved, "insert", "1", "root", "x")
	data, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Contains(t, string(data), `outline_page_builds_total{result="ok"}`)
	assert.Contains(t, string(data), `outline_page_saves_total{result="ok"}`)
	assert.Contains(t, string(data), "outline_block_updates_written_total")

	failed := filepath.Join(dir, "failed.prom")
	_, err = env.run("--metrics-file", failed, "print", "7")
	require.ErrorIs(t, err, store.ErrNotFound)
	data, err = os.ReadFile(failed)
	require.NoError(t, err)
	assert.Contains(t, string(data), `outline_page_builds_total{result="store_error"}`)
}

func TestArgumentErrors(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("insert", "1", "root")
	require.ErrorContains(t, err, "expected arguments <page> <parent> <content>")
	_, err = env.run("print", "one")
	require.ErrorContains(t, err, "invalid page ID")
	_, err = env.run("print", "7")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func newApp(t *testing.T) *surrealoutline.App {
	t.Helper()
	var out bytes.Buffer
	app, err := surrealoutline.New(&surrealoutline.Config{
		DatabaseURL: "memory://",
		LogLevel:    zerolog.Disabled,
	}, &out, &out)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func TestCheckAndReconcile(t *testing.T) {
	ctx := context.Background()
	app := newApp(t)
	st := app.Store()

	testenv.SeedFixture(ctx, t, st)
	wrongRoot := testenv.SeedFixture(ctx, t, st)
	require.NoError(t, st.UpdatePage(ctx, wrongRoot.Page, models.PagePatch{
		RootBlockID: models.Set(models.Ref(wrongRoot.Block(2))),
	}))

	err := app.Check(ctx)
	require.ErrorIs(t, err, surrealoutline.ErrCheckFailed)
	assert.Contains(t, err.Error(), "1 of 2 pages")

	require.NoError(t, app.Reconcile(ctx, nil))
	require.NoError(t, app.Check(ctx))

	stored, err := st.GetPage(ctx, wrongRoot.Page)
	require.NoError(t, err)
	assert.Equal(t, models.Ref(wrongRoot.Block(5)), stored.RootBlockID)
}

func TestSetReadOnly(t *testing.T) {
	ctx := context.Background()
	app := newApp(t)

	app.SetReadOnly(true)
	assert.True(t, app.IsReadOnly())
	require.ErrorIs(t, app.NewPage(ctx, "x"), store.ErrReadOnly)

	app.SetReadOnly(false)
	require.NoError(t, app.NewPage(ctx, "x"))
}
