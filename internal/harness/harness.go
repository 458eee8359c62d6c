package harness

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/livestore/internal/changes"
	"github.com/roach88/livestore/internal/config"
	"github.com/roach88/livestore/internal/engine"
	"github.com/roach88/livestore/internal/errs"
	"github.com/roach88/livestore/internal/plan"
	"github.com/roach88/livestore/internal/resolver"
	"github.com/roach88/livestore/internal/route"
	"github.com/roach88/livestore/internal/tasks"
)

// Harness executes scenario steps against one engine.
type Harness struct {
	engine *engine.Engine

	mu       sync.Mutex
	notified []string
}

// Run executes scenario against a fresh in-memory engine configured with
// the bundled task schema.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	eng, err := engine.New(ctx, config.Default(),
		engine.WithDatabase(":memory:"),
		engine.WithMigrations(tasks.Migrations, tasks.MigrationsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	defer eng.Close()
	return RunOn(ctx, eng, scenario)
}

// RunOn executes scenario against eng.
func RunOn(ctx context.Context, eng *engine.Engine, scenario *Scenario) (*Result, error) {
	h := &Harness{engine: eng}
	handle := eng.Bus().Register("/", true, h.record)
	defer eng.Bus().Unregister(handle)

	for i, step := range scenario.Setup {
		ev := h.execute(ctx, step)
		if ev.Error != "" {
			return nil, fmt.Errorf("setup step %d: %s %s: %s", i, step.Op, step.Target, ev.Error)
		}
		h.drain()
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		ev := h.execute(ctx, step)
		ev.Seq = int64(i + 1)
		ev.Notified = h.drain()
		for _, msg := range checkExpect(ev, step.Expect) {
			result.AddError(fmt.Sprintf("step %d (%s %s): %s", i+1, step.Op, step.Target, msg))
		}
		result.Trace = append(result.Trace, ev)
	}

	for _, msg := range EvaluateAssertions(ctx, eng, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) record(c changes.Change) {
	h.mu.Lock()
	h.notified = append(h.notified, string(c.ID))
	h.mu.Unlock()
}

func (h *Harness) drain() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.notified
	h.notified = nil
	if out == nil {
		out = []string{}
	}
	return out
}

// execute runs one step. Failures are reported in the event, not returned.
func (h *Harness) execute(ctx context.Context, step Step) TraceEvent {
	ev := TraceEvent{Op: step.Op, Target: step.Target}
	if err := h.apply(ctx, step, &ev); err != nil {
		ev.Present = false
		ev.Identifier = ""
		ev.Count = nil
		ev.Rows = nil
		ev.Error = errorCode(err)
	}
	return ev
}

func (h *Harness) apply(ctx context.Context, step Step, ev *TraceEvent) error {
	id := route.Identifier(step.Target)
	table, err := h.engine.TableOf(id)
	if err != nil {
		return err
	}
	schema := h.engine.Schema()
	res := h.engine.Resolver()
	where, err := schema.Where(table, step.Where)
	if err != nil {
		return errs.New(errs.CodeInvalidArgument, "%v", err)
	}

	switch step.Op {
	case OpInsert:
		row, err := schema.Row(table, step.Values)
		if err != nil {
			return errs.New(errs.CodeInvalidArgument, "%v", err)
		}
		newID, ok, err := res.Insert(ctx, id, plan.Values(row))
		if err != nil {
			return err
		}
		ev.Present, ev.Identifier = ok, string(newID)
	case OpUpdate, OpDelete:
		var (
			n  int64
			ok bool
		)
		if step.Op == OpUpdate {
			row, rowErr := schema.Row(table, step.Values)
			if rowErr != nil {
				return errs.New(errs.CodeInvalidArgument, "%v", rowErr)
			}
			n, ok, err = res.Update(ctx, id, plan.Values(row), where)
		} else {
			n, ok, err = res.Delete(ctx, id, where)
		}
		if err != nil {
			return err
		}
		count := int(n)
		ev.Present, ev.Count = ok, &count
	case OpQuery:
		rows, err := h.engine.Records(ctx, id, resolver.Where(where))
		if err != nil {
			return err
		}
		count := len(rows)
		ev.Present, ev.Count, ev.Rows = count > 0, &count, rows
	case OpExists:
		found, err := res.Exists(ctx, id, where)
		if err != nil {
			return err
		}
		ev.Present = found
	default:
		return errs.New(errs.CodeInvalidArgument, "unknown op %q", step.Op)
	}
	return nil
}

// errorCode reports coded errors by code and anything else by message.
func errorCode(err error) string {
	var e *errs.Error
	if errors.As(err, &e) {
		return string(e.Code)
	}
	return err.Error()
}

// checkExpect compares ev against expect and returns mismatches.
func checkExpect(ev TraceEvent, expect *Expect) []string {
	if expect == nil {
		if ev.Error != "" {
			return []string{fmt.Sprintf("unexpected error %s", ev.Error)}
		}
		return nil
	}
	var out []string
	if ev.Error != expect.Error {
		out = append(out, fmt.Sprintf("error: expected %q, got %q", expect.Error, ev.Error))
	}
	if expect.Present != nil && *expect.Present != ev.Present {
		out = append(out, fmt.Sprintf("present: expected %v, got %v", *expect.Present, ev.Present))
	}
	if expect.Identifier != "" && expect.Identifier != ev.Identifier {
		out = append(out, fmt.Sprintf("identifier: expected %s, got %s", expect.Identifier, ev.Identifier))
	}
	if expect.Count != nil {
		got := 0
		if ev.Count != nil {
			got = *ev.Count
		}
		if got != *expect.Count {
			out = append(out, fmt.Sprintf("count: expected %d, got %d", *expect.Count, got))
		}
	}
	if expect.Rows != nil {
		if msg := matchRows(ev.Rows, expect.Rows); msg != "" {
			out = append(out, msg)
		}
	}
	return out
}
