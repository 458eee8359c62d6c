// Package testutil holds helpers shared by package tests: migrated task
// stores, query counters, delivery recorders and fake data.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-faker/faker/v4"

	"github.com/roach88/livestore/internal/queryir"
	"github.com/roach88/livestore/internal/store"
	"github.com/roach88/livestore/internal/tasks"
)

// OpenTaskStore opens a store under t.TempDir with the task schema
// migrated. The store is closed when the test ends.
func OpenTaskStore(t testing.TB) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background(), tasks.Migrations, tasks.MigrationsDir); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	return s
}

// SeedTasks inserts n tasks with fake titles and returns their rowids.
func SeedTasks(t testing.TB, s *store.Store, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		w, err := tasks.Model.Write(tasks.Task{Title: faker.Sentence(), Version: 1})
		if err != nil {
			t.Fatalf("encode task: %v", err)
		}
		id, ok, err := s.Insert(context.Background(), tasks.Table, w.Row())
		if err != nil || !ok {
			t.Fatalf("insert task: ok=%v err=%v", ok, err)
		}
		ids = append(ids, id)
	}
	return ids
}

// CountingQuerier wraps a store and counts SELECTs per table.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type CountingQuerier struct {
	Store *store.Store

	mu     sync.Mutex
	counts map[string]int
}

// NewCountingQuerier wraps s.
func NewCountingQuerier(s *store.Store) *CountingQuerier {
	return &CountingQuerier{Store: s, counts: make(map[string]int)}
}

// Query counts the call and forwards it.
func (q *CountingQuerier) Query(ctx context.Context, sel queryir.Select) (*store.Rows, error) {
	q.mu.Lock()
	q.counts[sel.From]++
	q.mu.Unlock()
	return q.Store.Query(ctx, sel)
}

// Count returns the number of queries against table.
func (q *CountingQuerier) Count(table string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.counts[table]
}

// Reset zeroes every counter.
func (q *CountingQuerier) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	clear(q.counts)
}
