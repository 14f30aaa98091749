// Package connectivity tracks the connection state of one subscription
// independently of chat content.
package connectivity

import (
	"sync"

	"github.com/pusher/chatkit-go/log"
	"github.com/pusher/chatkit-go/state"
	"github.com/pusher/chatkit-go/store"
)

// Monitor follows the auxiliary state of a single subscription type.
// A subscription absent from the auxiliary state is initializing.
type Monitor struct {
	mu       sync.Mutex
	registry store.Registry
	typ      state.SubscriptionType
	onChange func(state.ConnectionState)
	current  state.ConnectionState
	closed   bool
	logger   *log.Logger
}

var _ store.Listener = (*Monitor)(nil)

// New registers a monitor with registry. onChange fires only when the
// connection state of typ actually changes; the initial value is not
// reported. logger may be nil.
func New(registry store.Registry, typ state.SubscriptionType, onChange func(state.ConnectionState), logger *log.Logger) *Monitor {
	if registry == nil {
		panic("connectivity: registry is required")
	}
	if onChange == nil {
		onChange = func(state.ConnectionState) {}
	}
	m := &Monitor{
		registry: registry,
		typ:      typ,
		onChange: onChange,
		logger:   logger.With(map[string]any{"component": "connectivity", "subscription": typ.String()}),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = connectionState(registry.Register(m), typ)
	return m
}

func connectionState(s state.VersionedState, typ state.SubscriptionType) state.ConnectionState {
	if c, ok := s.AuxiliaryState[typ]; ok {
		return c
	}
	return state.InitializingState(nil)
}

// DidUpdateState implements store.Listener.
func (m *Monitor) DidUpdateState(s state.VersionedState) {
	next := connectionState(s, m.typ)

	m.mu.Lock()
	if m.closed || next.Equal(m.current) {
		m.mu.Unlock()
		return
	}
	prev := m.current
	m.current = next
	m.mu.Unlock()

	m.logger.Debug("connection state changed", map[string]any{
		"from": prev.String(),
		"to":   next.String(),
	})
	m.onChange(next)
}

// ConnectionState returns the current connection state.
func (m *Monitor) ConnectionState() state.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Close unregisters from the store.
func (m *Monitor) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.registry.Unregister(m)
}
