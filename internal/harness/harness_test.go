package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "task_lifecycle.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "task_lifecycle", s.Name)
	assert.Len(t, s.Flow, 9)
	assert.Len(t, s.Assertions, 4)
	assert.Equal(t, "Buy milk", s.Flow[0].Values["title"])
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "name: x\ndescription: y\nflows: []\n", "failed to parse YAML"},
		{"missing name", "description: y\nflow: [{op: query, target: /tasks}]\n", "name is required"},
		{"missing description", "name: x\nflow: [{op: query, target: /tasks}]\n", "description is required"},
		{"empty flow", "name: x\ndescription: y\nflow: []\n", "flow list is required"},
		{"unknown op", "name: x\ndescription: y\nflow: [{op: upsert, target: /tasks}]\n", "unknown op"},
		{"missing target", "name: x\ndescription: y\nflow: [{op: query}]\n", "target is required"},
		{"update without values", "name: x\ndescription: y\nflow: [{op: update, target: /tasks}]\n", "update requires values"},
		{"delete with values", "name: x\ndescription: y\nflow: [{op: delete, target: /tasks, values: {title: a}}]\n", "does not take values"},
		{"bad assertion", "name: x\ndescription: y\nflow: [{op: query, target: /tasks}]\nassertions: [{type: notified}]\n", "requires identifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_TaskLifecycleGolden(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "task_lifecycle.yaml"))
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []string{"/tasks/1", "/tasks/2", "/tasks/1/notes", "/tasks/1", "/tasks/1/notes", "/tasks"},
		result.Notifications())
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	s := &Scenario{
		Name:        "mismatch",
		Description: "wrong expectations",
		Flow: []Step{
			{Op: OpInsert, Target: "/tasks", Values: map[string]any{"title": "a"},
				Expect: &Expect{Identifier: "/tasks/9"}},
			{Op: OpUpdate, Target: "/tasks/1", Values: map[string]any{"finished": true},
				Expect: &Expect{Count: intPtr(2), Present: boolPtr(false)}},
			{Op: OpQuery, Target: "/tasks",
				Expect: &Expect{Rows: []map[string]any{{"title": "b"}}}},
			{Op: OpQuery, Target: "/nowhere"},
		},
	}
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "identifier: expected /tasks/9, got /tasks/1")
	assert.Contains(t, result.Errors[1], "present: expected false, got true")
	assert.Contains(t, result.Errors[2], "count: expected 2, got 1")
	assert.Contains(t, result.Errors[3], `rows[0].title: expected b, got a`)
	assert.Contains(t, result.Errors[4], "unexpected error UNKNOWN_ROUTE")
}

func TestRun_SetupIsNotTraced(t *testing.T) {
	s := &Scenario{
		Name:        "setup",
		Description: "setup rows are visible but untraced",
		Setup: []Step{
			{Op: OpInsert, Target: "/tasks", Values: map[string]any{"title": "seeded"}},
		},
		Flow: []Step{
			{Op: OpExists, Target: "/tasks/1", Expect: &Expect{Present: boolPtr(true)}},
		},
		Assertions: []Assertion{
			{Type: AssertNotifyCount, Count: intPtr(0)},
			{Type: AssertNotNotified, Identifier: "/tasks/1"},
		},
	}
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Empty(t, result.Trace[0].Notified)
}

func TestRun_SetupFailureAborts(t *testing.T) {
	s := &Scenario{
		Name:        "bad-setup",
		Description: "setup against an unknown route",
		Setup:       []Step{{Op: OpInsert, Target: "/users", Values: map[string]any{"name": "x"}}},
		Flow:        []Step{{Op: OpQuery, Target: "/tasks"}},
	}
	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNKNOWN_ROUTE")
}

func TestAssertions_Failures(t *testing.T) {
	s := &Scenario{
		Name:        "assertions",
		Description: "every assertion type failing",
		Flow: []Step{
			{Op: OpInsert, Target: "/tasks", Values: map[string]any{"title": "a"}},
		},
		Assertions: []Assertion{
			{Type: AssertNotified, Identifier: "/tasks/2"},
			{Type: AssertNotNotified, Identifier: "/tasks/1"},
			{Type: AssertNotifyCount, Count: intPtr(3)},
			{Type: AssertFinalState, Target: "/tasks", Count: intPtr(2)},
			{Type: AssertFinalState, Target: "/tasks", Rows: []map[string]any{{"title": "z"}}},
		},
	}
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "notification for /tasks/2")
	assert.Contains(t, result.Errors[1], "no notification for /tasks/1")
	assert.Contains(t, result.Errors[2], "3 notifications")
	assert.Contains(t, result.Errors[3], "2 rows at /tasks")
	assert.Contains(t, result.Errors[4], "rows[0].title")
}

func TestMatchRows_NormalizesIntegers(t *testing.T) {
	got := []map[string]any{{"id": int64(1), "title": "a"}}
	assert.Empty(t, matchRows(got, []map[string]any{{"id": 1}}))
	assert.Contains(t, matchRows(got, []map[string]any{{"missing": 1}}), "missing")
	assert.Contains(t, matchRows(got, nil), "expected 0, got 1")
}
