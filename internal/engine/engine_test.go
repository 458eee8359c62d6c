package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livestore/internal/config"
	"github.com/roach88/livestore/internal/errs"
	"github.com/roach88/livestore/internal/plan"
	"github.com/roach88/livestore/internal/tasks"
	"github.com/roach88/livestore/internal/testutil"
	"github.com/roach88/livestore/internal/value"
	"github.com/roach88/livestore/internal/watch"
)

func newTestEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	e, err := New(context.Background(), cfg,
		WithDatabase(filepath.Join(t.TempDir(), "engine.db")),
		WithMigrations(tasks.Migrations, tasks.MigrationsDir))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestNew_WiresDefaultConfig(t *testing.T) {
	e := newTestEngine(t, config.Default())

	assert.Len(t, e.Routes().Routes(), 5)
	assert.Equal(t, 4, e.Workers().Workers())
	assert.Equal(t, watch.StrategyPerResource, e.Watch().Strategy())
	assert.Equal(t, 60*time.Second, e.Pool().Grace())
	assert.Equal(t, []string{"note", "task"}, e.Schema().Tables())

	table, err := e.TableOf("/tasks/1/notes")
	require.NoError(t, err)
	assert.Equal(t, "note", table)

	_, err = e.TableOf("/users")
	assert.True(t, errs.HasCode(err, errs.CodeUnknownRoute))
}

func TestEngine_WritesReachWatchers(t *testing.T) {
	e := newTestEngine(t, config.Default())
	ctx := context.Background()

	rec := testutil.NewRecorder[int]()
	sub, err := watch.Watch(e.Watch(), "/tasks", plan.Count(), rec.Observe)
	require.NoError(t, err)
	rec.WaitFor(t, 1, 5*time.Second)

	row, err := e.Schema().Row("task", map[string]any{"title": "Buy milk"})
	require.NoError(t, err)
	id, ok, err := e.Resolver().Insert(ctx, "/tasks", plan.Values(row))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/tasks/1", string(id))

	got := rec.WaitFor(t, 2, 5*time.Second)
	assert.Equal(t, []int{0, 1}, got)

	sub.Cancel()
	assert.Equal(t, 0, e.Watch().Len())
}

func TestEngine_ConfiguredRouteDefaults(t *testing.T) {
	e := newTestEngine(t, config.Default())
	ctx := context.Background()

	_, _, err := e.Resolver().Insert(ctx, "/tasks", plan.Values(value.Row{"title": value.Text("x")}))
	require.NoError(t, err)

	records, err := e.Records(ctx, "/tasks/1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, map[string]any{
		"id":       int64(1),
		"title":    "x",
		"finished": false,
		"version":  int64(1),
	}, records[0])

	table, rows, err := e.Rows(ctx, "/tasks/state/false")
	require.NoError(t, err)
	assert.Equal(t, "task", table)
	assert.Len(t, rows, 1)
}

func TestNew_MigrationsFromConfigDirectory(t *testing.T) {
	dir := t.TempDir()
	data, err := tasks.Migrations.ReadFile("migrations/00001_create_task.sql")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "00001_create_task.sql"), data, 0o644))

	cfg := config.Default()
	cfg.Database = filepath.Join(t.TempDir(), "dir.db")
	cfg.Migrations = dir
	cfg.Routes = cfg.Routes[:2]

	e, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()

	_, ok, err := e.Resolver().Insert(context.Background(), "/tasks", plan.Values(value.Row{"title": value.Text("x")}))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNew_Errors(t *testing.T) {
	cfg := config.Default()
	cfg.Database = ""
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = config.Default()
	cfg.Routes = append(cfg.Routes, config.Route{Path: "/tasks", Table: "task"})
	_, err = New(context.Background(), cfg, WithDatabase(filepath.Join(t.TempDir(), "dup.db")))
	assert.True(t, errs.HasCode(err, errs.CodeDuplicateRoute))
}

func TestEngine_CloseIsIdempotent(t *testing.T) {
	e := newTestEngine(t, config.Default())
	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
}

func TestEngine_RunClosesOnCancel(t *testing.T) {
	e := newTestEngine(t, config.Default())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
