package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livestore/internal/route"
	"github.com/roach88/livestore/internal/value"
)

func TestRegisterRoutes(t *testing.T) {
	reg := route.NewRegistry()
	rs, err := RegisterRoutes(reg)
	require.NoError(t, err)

	assert.Equal(t, "/tasks", rs.All.Pattern())
	assert.Equal(t, "/tasks/#", rs.ByID.Pattern())
	assert.Equal(t, "/tasks/state/*", rs.ByState.Pattern())
	assert.Equal(t, "/tasks/after/#", rs.After.Pattern())
	assert.Equal(t, "/tasks/#/notes", rs.Notes.Pattern())

	for id, want := range map[route.Identifier]*route.Route{
		"/tasks":            rs.All,
		"/tasks/1":          rs.ByID,
		"/tasks/state/true": rs.ByState,
		"/tasks/after/3":    rs.After,
		"/tasks/1/notes":    rs.Notes,
	} {
		got, err := reg.Match(id)
		require.NoError(t, err, "id %s", id)
		assert.Same(t, want, got, "id %s", id)
	}

	_, err = RegisterRoutes(reg)
	assert.Error(t, err, "registering twice collides")
}

func TestModel_RoundTrip(t *testing.T) {
	w, err := Model.Write(Task{Title: "Buy milk"})
	require.NoError(t, err)
	assert.Equal(t, value.Row{"title": value.Text("Buy milk"), "finished": value.Bool(false)}, w.Row())

	got, err := Model.Decode(value.Row{
		"id": value.Int(1), "title": value.Text("Buy milk"),
		"finished": value.Int(1), "version": value.Int(2),
	})
	require.NoError(t, err)
	assert.Equal(t, Task{ID: 1, Title: "Buy milk", Finished: true, Version: 2}, got)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := Migrations.ReadDir(MigrationsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLookup(t *testing.T) {
	p, err := route.ParsePattern("/tasks/{id}/notes", Lookup)
	require.NoError(t, err)
	assert.Equal(t, "/tasks/#/notes", p.String())
}
