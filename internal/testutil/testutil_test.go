package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livestore/internal/queryir"
)

func TestOpenTaskStore_Migrated(t *testing.T) {
	s := OpenTaskStore(t)
	ids := SeedTasks(t, s, 3)
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

func TestCountingQuerier(t *testing.T) {
	q := NewCountingQuerier(OpenTaskStore(t))

	rows, err := q.Query(context.Background(), queryir.Select{From: "task"})
	require.NoError(t, err)
	require.NoError(t, rows.Close())

	assert.Equal(t, 1, q.Count("task"))
	q.Reset()
	assert.Zero(t, q.Count("task"))
}

func TestRecorder(t *testing.T) {
	r := NewRecorder[int]()
	_, ok := r.Last()
	assert.False(t, ok)

	go r.Observe(1)
	got := r.WaitFor(t, 1, time.Second)
	assert.Equal(t, []int{1}, got)

	last, ok := r.Last()
	assert.True(t, ok)
	assert.Equal(t, 1, last)
	r.Quiet(t, 1, 10*time.Millisecond)
}
