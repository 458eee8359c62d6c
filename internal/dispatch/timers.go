package dispatch

import (
	"container/heap"
	"sync"
	"time"
)

type timedCommand struct {
	at  time.Time
	seq uint64
	cmd func()
}

// timerHeap orders scheduled commands by fire time, then post order.
type timerHeap []timedCommand

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)   { *h = append(*h, x.(timedCommand)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = timedCommand{}
	*h = old[:n-1]
	return x
}

// schedule is the loop's set of delayed commands.
type schedule struct {
	mu   sync.Mutex
	seq  uint64
	heap timerHeap
}

func (s *schedule) add(at time.Time, cmd func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	heap.Push(&s.heap, timedCommand{at: at, seq: s.seq, cmd: cmd})
}

// due pops every command whose fire time is not after now.
func (s *schedule) due(now time.Time) []func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []func()
	for len(s.heap) > 0 && !s.heap[0].at.After(now) {
		out = append(out, heap.Pop(&s.heap).(timedCommand).cmd)
	}
	return out
}

// next returns the earliest fire time.
func (s *schedule) next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.heap) == 0 {
		return time.Time{}, false
	}
	return s.heap[0].at, true
}

func (s *schedule) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.heap)
}
