// Package store owns the authoritative versioned state.
//
// The Store is the only mutator of state.VersionedState. Each dispatched
// action is reduced against the current state; listeners are notified only
// when the result differs, with a version one greater than the last.
package store

import (
	"slices"
	"sync"

	"github.com/pusher/chatkit-go/action"
	"github.com/pusher/chatkit-go/log"
	"github.com/pusher/chatkit-go/metrics"
	"github.com/pusher/chatkit-go/reducer"
	"github.com/pusher/chatkit-go/state"
)

// Listener receives every state the store publishes.
// Implementations must be comparable (typically a pointer) so that
// registration can be deduplicated.
type Listener interface {
	DidUpdateState(state.VersionedState)
}

// Registry is the registration half of the Store, consumed by buffers and
// connectivity monitors.
type Registry interface {
	Register(Listener) state.VersionedState
	Unregister(Listener)
}

// Dispatcher is the dispatch half of the Store.
type Dispatcher interface {
	Dispatch(action.Action)
}

var (
	_ Registry   = (*Store)(nil)
	_ Dispatcher = (*Store)(nil)
)

// Store applies actions and broadcasts state changes.
//
// Dispatch is safe to call from any goroutine and from within a listener.
// Actions are applied strictly in arrival order by whichever caller is
// currently draining the queue, so listeners observe versions in strictly
// increasing order with no repeats.
type Store struct {
	mu        sync.Mutex
	current   state.VersionedState
	listeners []Listener
	queue     []action.Action
	draining  bool

	logger    *log.Logger
	collector *metrics.Collector
}

// New creates a store at version 0 with an empty state.
// logger and collector may be nil.
func New(logger *log.Logger, collector *metrics.Collector) *Store {
	return NewWithState(state.VersionedState{}, logger, collector)
}

// NewWithState creates a store seeded with initial, e.g. a restored snapshot.
func NewWithState(initial state.VersionedState, logger *log.Logger, collector *metrics.Collector) *Store {
	if initial.AuxiliaryState == nil {
		initial.AuxiliaryState = state.AuxiliaryState{}
	}
	return &Store{
		current:   initial,
		logger:    logger.With(map[string]any{"component": "store"}),
		collector: collector,
	}
}

// State returns the current snapshot.
func (s *Store) State() state.VersionedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Register adds l and returns the current snapshot.
// Registering the same listener twice keeps a single registration.
func (s *Store) Register(l Listener) state.VersionedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.listeners, l) {
		s.listeners = append(s.listeners, l)
	}
	return s.current
}

// Unregister removes l. It is a no-op if l is not registered.
func (s *Store) Unregister(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = slices.DeleteFunc(s.listeners, func(x Listener) bool { return x == l })
}

// Dispatch reduces a into the current state and broadcasts the result if
// anything changed.
func (s *Store) Dispatch(a action.Action) {
	s.mu.Lock()
	s.queue = append(s.queue, a)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true

	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]

		published, changed := s.apply(next)
		if !changed {
			continue
		}
		listeners := slices.Clone(s.listeners)

		s.mu.Unlock()
		for _, l := range listeners {
			l.DidUpdateState(published)
		}
		s.mu.Lock()
	}

	s.queue = nil
	s.draining = false
	s.mu.Unlock()
}

// apply must be called with mu held.
func (s *Store) apply(a action.Action) (state.VersionedState, bool) {
	name := action.Name(a)
	s.collector.IncActionsDispatched(name)

	prev := s.current
	chat, aux := reducer.Reduce(a, prev.ChatState, prev.AuxiliaryState)
	if chat.Equal(prev.ChatState) && aux.Equal(prev.AuxiliaryState) {
		s.collector.IncBroadcastsSkipped()
		s.logger.Debug("action left state unchanged", map[string]any{
			"action":  name,
			"version": prev.Version,
		})
		return prev, false
	}

	s.current = state.VersionedState{
		ChatState:      chat,
		AuxiliaryState: aux,
		Version:        prev.Version + 1,
		Signature:      a.Signature(),
	}
	s.collector.IncBroadcasts()
	s.logger.Debug("state updated", map[string]any{
		"action":    name,
		"version":   s.current.Version,
		"signature": s.current.Signature.String(),
	})
	return s.current, true
}
