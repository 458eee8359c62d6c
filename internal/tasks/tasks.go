// Package tasks is the reference schema used by the CLI, the HTTP API and
// the tests: a task table and its per-task notes, with typed columns, a
// model and the routes that address them.
package tasks

import (
	"embed"
	"fmt"

	"github.com/roach88/livestore/internal/column"
	"github.com/roach88/livestore/internal/plan"
	"github.com/roach88/livestore/internal/route"
	"github.com/roach88/livestore/internal/value"
)

// Migrations holds the goose migrations for the schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations holding the files.
const MigrationsDir = "migrations"

// Table names.
const (
	Table     = "task"
	NoteTable = "note"
)

// Task columns.
var (
	ID       = column.Int64("id")
	Title    = column.Text("title")
	Finished = column.Bool("finished")
	Version  = column.Int64("version")
)

// Note columns.
var (
	NoteID   = column.Int64("id")
	NoteTask = column.Int64("task_id")
	NoteBody = column.Text("body")
)

// Task is one row of the task table.
type Task struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Finished bool   `json:"finished"`
	Version  int64  `json:"version"`
}

// Note is one row of the note table.
type Note struct {
	ID     int64  `json:"id"`
	TaskID int64  `json:"task_id"`
	Body   string `json:"body"`
}

// Model maps Task onto the task table. Encode omits a zero ID so inserts
// take the next rowid.
var Model = plan.Model[Task]{
	Table:   Table,
	Columns: []string{ID.Name(), Title.Name(), Finished.Name(), Version.Name()},
	Decode:  decodeTask,
	Encode: func(t Task) (value.Row, error) {
		as := []column.Assignment{Title.Set(t.Title), Finished.Set(t.Finished)}
		if t.Version != 0 {
			as = append(as, Version.Set(t.Version))
		}
		if t.ID != 0 {
			as = append(as, ID.Set(t.ID))
		}
		return column.Row(as...), nil
	},
}

func decodeTask(r value.Row) (Task, error) {
	var (
		t   Task
		err error
	)
	if t.ID, err = ID.Get(r); err != nil {
		return Task{}, err
	}
	if t.Title, err = Title.Get(r); err != nil {
		return Task{}, err
	}
	if t.Finished, err = Finished.Get(r); err != nil {
		return Task{}, err
	}
	if t.Version, err = Version.Get(r); err != nil {
		return Task{}, err
	}
	return t, nil
}

// NoteModel maps Note onto the note table.
var NoteModel = plan.Model[Note]{
	Table:   NoteTable,
	Columns: []string{NoteID.Name(), NoteTask.Name(), NoteBody.Name()},
	Decode: func(r value.Row) (Note, error) {
		var (
			n   Note
			err error
		)
		if n.ID, err = NoteID.Get(r); err != nil {
			return Note{}, err
		}
		if n.TaskID, err = NoteTask.Get(r); err != nil {
			return Note{}, err
		}
		if n.Body, err = NoteBody.Get(r); err != nil {
			return Note{}, err
		}
		return n, nil
	},
	Encode: func(n Note) (value.Row, error) {
		return column.Row(NoteTask.Set(n.TaskID), NoteBody.Set(n.Body)), nil
	},
}

// Routes are the registered task routes.
type Routes struct {
	All     *route.Route // /tasks
	ByID    *route.Route // /tasks/{id}
	ByState *route.Route // /tasks/state/{finished}
	After   *route.Route // /tasks/after/{id:gt}
	Notes   *route.Route // /tasks/{task_id}/notes
}

// Defaults applied to task inserts.
var Defaults = value.Row{
	Finished.Name(): value.Bool(false),
	Version.Name():  value.Int(1),
}

// RegisterRoutes registers the task routes on reg.
func RegisterRoutes(reg *route.Registry) (*Routes, error) {
	var (
		rs  Routes
		err error
	)
	if rs.All, err = reg.Register(Table, route.Path("tasks"),
		route.WithName("tasks"), route.WithOrder(ID.Asc()), route.WithDefaults(Defaults)); err != nil {
		return nil, fmt.Errorf("register tasks routes: %w", err)
	}
	if rs.ByID, err = reg.Register(Table, route.Path("tasks").IsEqualTo(ID),
		route.WithName("task"), route.WithDefaults(Defaults)); err != nil {
		return nil, fmt.Errorf("register tasks routes: %w", err)
	}
	if rs.ByState, err = reg.Register(Table, route.Path("tasks", "state").IsEqualTo(Finished),
		route.WithName("tasks-by-state"), route.WithOrder(ID.Asc())); err != nil {
		return nil, fmt.Errorf("register tasks routes: %w", err)
	}
	if rs.After, err = reg.Register(Table, route.Path("tasks", "after").IsGreaterThan(ID),
		route.WithName("tasks-after"), route.WithOrder(ID.Asc())); err != nil {
		return nil, fmt.Errorf("register tasks routes: %w", err)
	}
	if rs.Notes, err = reg.Register(NoteTable, route.Path("tasks").IsEqualTo(NoteTask).Literal("notes"),
		route.WithName("task-notes"), route.WithOrder(NoteID.Asc())); err != nil {
		return nil, fmt.Errorf("register tasks routes: %w", err)
	}
	return &rs, nil
}

// Lookup resolves task and note column names, for route.ParsePattern.
func Lookup(name string) (column.Arg, bool) {
	switch name {
	case ID.Name():
		return ID, true
	case Title.Name():
		return Title, true
	case Finished.Name():
		return Finished, true
	case Version.Name():
		return Version, true
	case NoteTask.Name():
		return NoteTask, true
	case NoteBody.Name():
		return NoteBody, true
	}
	return nil, false
}
