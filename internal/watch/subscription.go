package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/livestore/internal/async"
	"github.com/roach88/livestore/internal/changes"
	"github.com/roach88/livestore/internal/dispatch"
	"github.com/roach88/livestore/internal/errs"
	"github.com/roach88/livestore/internal/route"
)

// State is a subscription's lifecycle state.
type State int

const (
	StateRegistered State = iota
	StateStarted
	StateStopped
	StateCancelled
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Subscription is an observer's live binding to a resource identifier.
type Subscription struct {
	id         route.Identifier
	table      string
	manager    *Manager
	dispatcher *dispatch.Dispatcher
	regID      string

	// query runs the memoized statement and returns the delivery closure.
	query func(ctx context.Context) (func(), error)

	mu        sync.Mutex
	state     State
	inFlight  bool
	dirty     bool
	handle    changes.Handle
	listening bool
}

var _ dispatch.Registration = (*Subscription)(nil)

// Identifier returns the watched identifier.
func (s *Subscription) Identifier() route.Identifier { return s.id }

// Table returns the table behind the identifier's route.
func (s *Subscription) Table() string { return s.table }

// Dispatcher returns the dispatcher delivering results.
func (s *Subscription) Dispatcher() *dispatch.Dispatcher { return s.dispatcher }

// State returns the current lifecycle state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins listening and runs the query once for an initial result.
// Starting a started subscription is a no-op.
func (s *Subscription) Start() error {
	s.mu.Lock()
	switch s.state {
	case StateCancelled:
		s.mu.Unlock()
		return errs.New(errs.CodeClosed, "subscription cancelled").WithIdentifier(string(s.id))
	case StateStarted:
		s.mu.Unlock()
		return nil
	}
	s.state = StateStarted
	if s.manager.strategy == StrategyPerSubscription && !s.listening {
		s.handle = s.manager.bus.Register(s.id, true, s.onChange)
		s.listening = true
	}
	s.mu.Unlock()

	if !s.dispatcher.Running() {
		s.dispatcher.Start()
	}
	s.requestQuery()
	return nil
}

// Stop stops listening. Results of a query already in flight are dropped.
func (s *Subscription) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Subscription) stopLocked() {
	if s.state != StateStarted {
		return
	}
	s.state = StateStopped
	if s.listening {
		s.manager.bus.Unregister(s.handle)
		s.listening = false
	}
}

// Detach implements dispatch.Registration. The dispatcher loop exited, so
// the subscription stops listening.
func (s *Subscription) Detach() {
	s.Stop()
}

// Cancel stops the subscription for good and releases its dispatcher
// registration. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	if s.state == StateCancelled {
		s.mu.Unlock()
		return
	}
	s.stopLocked()
	s.state = StateCancelled
	s.mu.Unlock()

	m := s.manager
	if m.strategy == StrategyPerResource {
		m.detach(s)
	}
	m.pool.Release(s.dispatcher, s.regID)
	m.forget(s)
	slog.Debug("subscription cancelled", "identifier", string(s.id))
}

func (s *Subscription) started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateStarted
}

// onChange filters a change for relevance and requests a query.
func (s *Subscription) onChange(c changes.Change) {
	if !s.started() || !s.relevant(c.ID) {
		return
	}
	s.requestQuery()
}

// relevant reports whether a change on id can affect this subscription.
// Identifiers no route resolves are treated as relevant.
func (s *Subscription) relevant(id route.Identifier) bool {
	if id.Unspecified() {
		return true
	}
	rt, err := s.manager.routes.Match(id)
	if err != nil {
		slog.Warn("change on unresolvable identifier, re-querying",
			"identifier", string(id), "subscription", string(s.id), "error", err)
		return true
	}
	return rt.Table() == s.table
}

// requestQuery runs the query unless one is in flight, in which case a
// single follow-up is queued.
func (s *Subscription) requestQuery() {
	s.mu.Lock()
	if s.inFlight {
		s.dirty = true
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	s.mu.Unlock()

	s.launch()
}

func (s *Subscription) launch() {
	r := async.Go(s.manager.workers, func(ctx context.Context) (func(), bool, error) {
		deliver, err := s.query(ctx)
		if err != nil {
			return nil, false, err
		}
		return deliver, true, nil
	})
	r.OnResult(func(deliver func(), _ bool) {
		s.dispatcher.Execute(func() {
			if s.started() {
				deliver()
			}
		})
		s.finish()
	}).OnError(func(err error) {
		slog.Warn("watch query failed", "identifier", string(s.id), "error", err)
		s.finish()
	})
}

// finish ends the in-flight query and launches the coalesced follow-up.
func (s *Subscription) finish() {
	s.mu.Lock()
	if !s.dirty || s.state != StateStarted {
		s.inFlight = false
		s.dirty = false
		s.mu.Unlock()
		return
	}
	s.dirty = false
	s.mu.Unlock()

	s.launch()
}
