// Package buffer gates store broadcasts until a repository's substate is
// complete.
//
// A state that references entities the repository needs but which are only
// partially known is held in a single pending slot. When a later complete
// state arrives, the pending state is released with the later state's data
// and its own signature and version (supplementation).
package buffer

import (
	"sync"

	"github.com/pusher/chatkit-go/log"
	"github.com/pusher/chatkit-go/metrics"
	"github.com/pusher/chatkit-go/state"
	"github.com/pusher/chatkit-go/store"
)

// Filter decides which states matter to a repository.
type Filter interface {
	// HasModifiedSubstate reports whether the repository's substate differs
	// between old and new.
	HasModifiedSubstate(old, new state.VersionedState) bool
	// HasCompleteSubstate reports whether every entity the substate
	// references is known well enough to be shown.
	HasCompleteSubstate(s state.VersionedState) bool
	// HasRelevantSignature reports whether the repository reacts to sig.
	HasRelevantSignature(sig state.Signature) bool
}

// Config holds optional collaborators.
type Config struct {
	// Logger is an optional logger. If nil, no logging is emitted.
	Logger *log.Logger
	// Collector is optional.
	Collector *metrics.Collector
}

// Buffer is a store listener that releases only complete states.
type Buffer struct {
	mu       sync.Mutex
	registry store.Registry
	filter   Filter
	onUpdate func(state.VersionedState)

	current *state.VersionedState
	// pending holds at most one state: the newest incomplete relevant one.
	pending *state.VersionedState
	closed  bool

	logger    *log.Logger
	collector *metrics.Collector
}

var _ store.Listener = (*Buffer)(nil)

// New registers a buffer with registry and seeds it from the current
// snapshot. The seed is never reported to onUpdate.
//
// Panics if registry or filter is nil.
func New(registry store.Registry, filter Filter, onUpdate func(state.VersionedState), cfg Config) *Buffer {
	if registry == nil || filter == nil {
		panic("buffer: registry and filter are required")
	}
	if onUpdate == nil {
		onUpdate = func(state.VersionedState) {}
	}
	b := &Buffer{
		registry:  registry,
		filter:    filter,
		onUpdate:  onUpdate,
		logger:    cfg.Logger.With(map[string]any{"component": "buffer"}),
		collector: cfg.Collector,
	}

	// Hold the lock across Register so no broadcast overtakes the seed.
	b.mu.Lock()
	defer b.mu.Unlock()
	snapshot := registry.Register(b)
	b.seed(snapshot)
	return b
}

// seed must be called with mu held.
func (b *Buffer) seed(s state.VersionedState) {
	// A snapshot carrying the repository's data counts as relevant even when
	// the last change to the store was unrelated, e.g. a connectivity update.
	relevant := b.filter.HasRelevantSignature(s.Signature) ||
		b.filter.HasModifiedSubstate(state.VersionedState{}, s)
	if !relevant {
		return
	}
	if b.filter.HasCompleteSubstate(s) {
		b.current = &s
		return
	}
	b.pending = &s
	b.collector.IncBufferHeld()
}

// DidUpdateState implements store.Listener.
func (b *Buffer) DidUpdateState(s state.VersionedState) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	out := b.process(s)
	b.mu.Unlock()

	for _, released := range out {
		b.onUpdate(released)
	}
}

// process must be called with mu held. It returns the states to release in
// order.
func (b *Buffer) process(s state.VersionedState) []state.VersionedState {
	var base state.VersionedState
	if b.current != nil {
		base = *b.current
	}
	relevant := b.filter.HasRelevantSignature(s.Signature)

	if !b.filter.HasCompleteSubstate(s) {
		if relevant && b.filter.HasModifiedSubstate(base, s) {
			if b.pending != nil {
				b.logger.Debug("pending state superseded", map[string]any{
					"superseded": b.pending.Version,
					"version":    s.Version,
				})
				s.Signature = carriedSignature(b.pending.Signature, s.Signature)
			}
			b.pending = &s
			b.collector.IncBufferHeld()
			b.logger.Debug("state held pending supplementation", map[string]any{
				"version":   s.Version,
				"signature": s.Signature.String(),
			})
		}
		return nil
	}

	var out []state.VersionedState
	if b.pending != nil {
		supplemented := Supplement(*b.pending, s)
		b.pending = nil
		b.collector.IncBufferResolved()
		b.logger.Debug("pending state supplemented", map[string]any{
			"version":      supplemented.Version,
			"signature":    supplemented.Signature.String(),
			"supplemented": s.Version,
		})
		out = append(out, supplemented)
	}
	if relevant && b.filter.HasModifiedSubstate(base, s) {
		out = append(out, s)
	}

	if len(out) > 0 {
		last := out[len(out)-1]
		b.current = &last
	}
	return out
}

// carriedSignature returns the signature a superseding pending state is
// held under. An addition that was never released stays an addition while
// later changes touch only the same room; otherwise next wins.
func carriedSignature(held, next state.Signature) state.Signature {
	if held.Kind != state.AddedToRoom || held.RoomIdentifier != next.RoomIdentifier {
		return next
	}
	switch next.Kind {
	case state.RoomUpdated, state.ReadStateUpdated:
		return held
	default:
		return next
	}
}

// Supplement returns supplementing's data under pending's signature and
// version.
func Supplement(pending, supplementing state.VersionedState) state.VersionedState {
	supplementing.Signature = pending.Signature
	supplementing.Version = pending.Version
	return supplementing
}

// CurrentState returns the last released state, if any.
func (b *Buffer) CurrentState() (state.VersionedState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return state.VersionedState{}, false
	}
	return *b.current, true
}

// Pending returns the state awaiting supplementation, if any.
func (b *Buffer) Pending() (state.VersionedState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return state.VersionedState{}, false
	}
	return *b.pending, true
}

// Close unregisters from the store. Broadcasts already in flight are ignored.
func (b *Buffer) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.pending = nil
	b.mu.Unlock()

	b.registry.Unregister(b)
}
