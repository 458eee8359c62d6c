package harness

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/livestore/internal/engine"
	"github.com/roach88/livestore/internal/resolver"
	"github.com/roach88/livestore/internal/route"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s -> notified %v\n", ev.Seq, ev.Op, ev.Target, ev.Notified)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns failure messages.
func EvaluateAssertions(ctx context.Context, eng *engine.Engine, result *Result, assertions []Assertion) []string {
	var out []string
	for i, a := range assertions {
		if err := evaluate(ctx, eng, result, a); err != nil {
			out = append(out, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return out
}

func evaluate(ctx context.Context, eng *engine.Engine, result *Result, a Assertion) error {
	switch a.Type {
	case AssertNotified:
		return assertNotified(result, a, true)
	case AssertNotNotified:
		return assertNotified(result, a, false)
	case AssertNotifyCount:
		return assertNotifyCount(result, a)
	case AssertFinalState:
		return assertFinalState(ctx, eng, result, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertNotified(result *Result, a Assertion, want bool) error {
	id := string(route.Identifier(a.Identifier).Normalize())
	got := slices.Contains(result.Notifications(), id)
	if got == want {
		return nil
	}
	expected, actual := "notification for "+id, "none"
	if !want {
		expected, actual = "no notification for "+id, "notified"
	}
	return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Trace: result.Trace}
}

func assertNotifyCount(result *Result, a Assertion) error {
	n := len(result.Notifications())
	if n == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d notifications", *a.Count),
		Actual:   fmt.Sprintf("%d notifications", n),
		Trace:    result.Trace,
	}
}

func assertFinalState(ctx context.Context, eng *engine.Engine, result *Result, a Assertion) error {
	id := route.Identifier(a.Target)
	table, err := eng.TableOf(id)
	if err != nil {
		return err
	}
	where, err := eng.Schema().Where(table, a.Where)
	if err != nil {
		return err
	}
	rows, err := eng.Records(ctx, id, resolver.Where(where))
	if err != nil {
		return err
	}
	if a.Count != nil && len(rows) != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d rows at %s", *a.Count, a.Target),
			Actual:   fmt.Sprintf("%d rows", len(rows)),
		}
	}
	if a.Rows != nil {
		if msg := matchRows(rows, a.Rows); msg != "" {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("rows %v", a.Rows), Actual: msg}
		}
	}
	return nil
}

// matchRows reports the first difference between got and the subset
// expectations in want, or "" when every expected row matches.
func matchRows(got, want []map[string]any) string {
	if len(got) != len(want) {
		return fmt.Sprintf("rows: expected %d, got %d", len(want), len(got))
	}
	for i := range want {
		for col, v := range want[i] {
			actual, ok := got[i][col]
			if !ok {
				return fmt.Sprintf("rows[%d].%s: missing", i, col)
			}
			if !reflect.DeepEqual(normalize(v), normalize(actual)) {
				return fmt.Sprintf("rows[%d].%s: expected %v, got %v", i, col, v, actual)
			}
		}
	}
	return ""
}

// normalize widens integers so YAML ints compare equal to stored int64s.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	}
	return v
}
