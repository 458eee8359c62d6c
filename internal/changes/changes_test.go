package changes

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livestore/internal/route"
)

type recordingSink struct {
	mu  sync.Mutex
	ids []route.Identifier
}

func (s *recordingSink) Notify(id route.Identifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
}

func (s *recordingSink) got() []route.Identifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]route.Identifier(nil), s.ids...)
}

func TestImmediate_ForwardsOncePerCall(t *testing.T) {
	sink := &recordingSink{}
	n := NewImmediate(sink)

	n.NotifyChange("/tasks/1")
	n.NotifyChange("/tasks/1")

	assert.Equal(t, []route.Identifier{"/tasks/1", "/tasks/1"}, sink.got())
}

func TestDelayed_DeduplicatesOnSendAll(t *testing.T) {
	sink := &recordingSink{}
	n := NewDelayed(sink)

	n.NotifyChange("/u1")
	n.NotifyChange("/u2")
	n.NotifyChange("/u1")
	assert.Empty(t, sink.got(), "nothing is forwarded before SendAll")
	assert.Equal(t, 2, n.Pending())

	n.SendAll()
	assert.ElementsMatch(t, []route.Identifier{"/u1", "/u2"}, sink.got())
	assert.Zero(t, n.Pending())

	n.SendAll()
	assert.Len(t, sink.got(), 2, "SendAll clears the buffer")
}

func TestDelayed_DiscardForwardsNothing(t *testing.T) {
	sink := &recordingSink{}
	n := NewDelayed(sink)

	n.NotifyChange("/u1")
	n.NotifyChange("/u2")
	n.Discard()
	n.SendAll()

	assert.Empty(t, sink.got())
}

func TestBus_Observation(t *testing.T) {
	tests := []struct {
		name        string
		listen      route.Identifier
		descendants bool
		change      route.Identifier
		want        bool
	}{
		{"exact", "/tasks/1", false, "/tasks/1", true},
		{"unspecified", "/tasks/1", false, "", true},
		{"descendant wanted", "/tasks", true, "/tasks/1", true},
		{"descendant not wanted", "/tasks", false, "/tasks/1", false},
		{"ancestor change", "/tasks/1", false, "/tasks", true},
		{"sibling", "/tasks/1", true, "/tasks/2", false},
		{"other table", "/tasks", true, "/users/1", false},
		{"normalized", "tasks/1/", false, "/tasks/1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBus()
			fired := 0
			b.Register(tt.listen, tt.descendants, func(Change) { fired++ })
			b.Notify(tt.change)
			if tt.want {
				assert.Equal(t, 1, fired)
			} else {
				assert.Zero(t, fired)
			}
		})
	}
}

func TestBus_Unregister(t *testing.T) {
	b := NewBus()
	fired := 0
	h := b.Register("/tasks", true, func(Change) { fired++ })
	require.Equal(t, 1, b.Len())

	assert.True(t, b.Unregister(h))
	assert.False(t, b.Unregister(h))
	b.Notify("/tasks/1")
	assert.Zero(t, fired)
	assert.Zero(t, b.Len())
}

func TestBus_ListenerMayUnregisterItself(t *testing.T) {
	b := NewBus()
	var h Handle
	fired := 0
	h = b.Register("/tasks", false, func(Change) {
		fired++
		b.Unregister(h)
	})

	b.Notify("/tasks")
	b.Notify("/tasks")
	assert.Equal(t, 1, fired)
}

func TestBus_CarriesIdentifier(t *testing.T) {
	b := NewBus()
	var got Change
	b.Register("/tasks", true, func(c Change) { got = c })
	b.Notify("/tasks/7")
	assert.Equal(t, route.Identifier("/tasks/7"), got.ID)
}
