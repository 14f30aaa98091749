package repository

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/pusher/chatkit-go/buffer"
	"github.com/pusher/chatkit-go/connectivity"
	"github.com/pusher/chatkit-go/log"
	"github.com/pusher/chatkit-go/metrics"
	"github.com/pusher/chatkit-go/state"
	"github.com/pusher/chatkit-go/store"
)

// Observer receives every distinct repository state.
type Observer func(State)

type observer struct {
	id uuid.UUID
	fn Observer
}

// Options holds optional collaborators.
type Options struct {
	// Logger is an optional logger. If nil, no logging is emitted.
	Logger    *log.Logger
	Collector *metrics.Collector
}

// JoinedRoomsRepository is the observable list of rooms the current user
// has joined.
type JoinedRoomsRepository struct {
	mu          sync.Mutex
	transformer JoinedRoomsTransformer
	buffer      *buffer.Buffer
	monitor     *connectivity.Monitor

	data       *state.VersionedState
	connection state.ConnectionState
	current    State
	observers  []observer
	closed     bool

	logger *log.Logger
}

// NewJoinedRoomsRepository builds a repository over registry.
func NewJoinedRoomsRepository(registry store.Registry, opts Options) *JoinedRoomsRepository {
	r := &JoinedRoomsRepository{
		logger: opts.Logger.With(map[string]any{"component": "joined_rooms"}),
	}

	// Callbacks may arrive as soon as the buffer registers; they block on mu
	// until construction is complete.
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = buffer.New(registry, JoinedRoomsFilter{}, r.bufferDidUpdate, buffer.Config{
		Logger:    opts.Logger,
		Collector: opts.Collector,
	})
	r.monitor = connectivity.New(registry, state.UserSubscriptionType(), r.connectionDidChange, opts.Logger)

	if seed, ok := r.buffer.CurrentState(); ok {
		r.data = &seed
	}
	r.connection = r.monitor.ConnectionState()
	r.current = r.compute(nil)
	return r
}

// State returns the current repository state.
func (r *JoinedRoomsRepository) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Observe registers fn for state changes and returns a function that
// removes it. fn is not called with the current state.
func (r *JoinedRoomsRepository) Observe(fn Observer) (cancel func()) {
	id := uuid.New()
	r.mu.Lock()
	r.observers = append(r.observers, observer{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.observers = slices.DeleteFunc(r.observers, func(o observer) bool { return o.id == id })
	}
}

// Close detaches the repository from the store. Observers are dropped and
// the state becomes closed.
func (r *JoinedRoomsRepository) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.observers = nil
	r.current = State{Kind: Closed}
	r.mu.Unlock()

	r.buffer.Close()
	r.monitor.Close()
}

func (r *JoinedRoomsRepository) bufferDidUpdate(s state.VersionedState) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	reason := r.transformer.ChangeReason(&s, r.data)
	r.data = &s
	r.publish(reason)
}

func (r *JoinedRoomsRepository) connectionDidChange(c state.ConnectionState) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.connection = c
	r.publish(nil)
}

// publish must be called with mu held; it releases mu before notifying.
func (r *JoinedRoomsRepository) publish(reason *ChangeReason) {
	next := r.compute(reason)
	changed := !next.Equal(r.current)
	r.current = next
	observers := slices.Clone(r.observers)
	r.mu.Unlock()

	if !changed {
		r.logger.Debug("repository state unchanged", map[string]any{"state": next.String()})
		return
	}
	r.logger.Debug("repository state changed", map[string]any{"state": next.String()})
	for _, o := range observers {
		o.fn(next)
	}
}

// compute must be called with mu held.
func (r *JoinedRoomsRepository) compute(reason *ChangeReason) State {
	if r.data == nil {
		return merge(nil, false, r.connection, reason)
	}
	return merge(r.transformer.TransformRooms(r.data.ChatState), true, r.connection, reason)
}
