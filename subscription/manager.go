package subscription

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/pusher/chatkit-go/log"
)

// Manager multiplexes many callers onto one Subscription per path.
// The first Acquire for a path creates and subscribes; the last release
// unsubscribes and forgets it.
type Manager struct {
	transport Transport
	logger    *log.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	sub   *Subscription
	fan   *fanOut
	count int
}

// NewManager creates a manager over transport. logger may be nil.
func NewManager(transport Transport, logger *log.Logger) *Manager {
	return &Manager{
		transport: transport,
		logger:    logger,
		entries:   make(map[string]*entry),
	}
}

// Acquire registers delegate on the subscription for path and subscribes.
// completion reports the outcome for this caller only. The returned release
// function is idempotent.
func (m *Manager) Acquire(path string, delegate Delegate, completion Completion) (release func()) {
	id := uuid.New()

	m.mu.Lock()
	e, ok := m.entries[path]
	if !ok {
		fan := &fanOut{}
		e = &entry{sub: New(path, m.transport, fan, m.logger), fan: fan}
		m.entries[path] = e
	}
	e.count++
	e.fan.add(id, delegate)
	sub := e.sub
	m.mu.Unlock()

	sub.Subscribe(completion)

	var once sync.Once
	return func() {
		once.Do(func() { m.release(path, id) })
	}
}

func (m *Manager) release(path string, id uuid.UUID) {
	m.mu.Lock()
	e, ok := m.entries[path]
	if !ok {
		m.mu.Unlock()
		return
	}
	e.fan.remove(id)
	e.count--
	if e.count > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.entries, path)
	m.mu.Unlock()

	e.sub.Unsubscribe()
}

// RefCount returns the number of live registrations for path.
func (m *Manager) RefCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[path]; ok {
		return e.count
	}
	return 0
}

// Subscription returns the shared subscription for path, if any.
func (m *Manager) Subscription(path string) (*Subscription, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[path]
	if !ok {
		return nil, false
	}
	return e.sub, true
}

// fanOut delivers to every registered delegate in registration order.
type fanOut struct {
	mu        sync.Mutex
	delegates []registered
}

type registered struct {
	id       uuid.UUID
	delegate Delegate
}

func (f *fanOut) add(id uuid.UUID, d Delegate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delegates = append(f.delegates, registered{id: id, delegate: d})
}

func (f *fanOut) remove(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delegates = slices.DeleteFunc(f.delegates, func(r registered) bool { return r.id == id })
}

func (f *fanOut) snapshot() []registered {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.delegates)
}

func (f *fanOut) OnEvent(body []byte) {
	for _, r := range f.snapshot() {
		r.delegate.OnEvent(body)
	}
}

func (f *fanOut) OnError(err error) {
	for _, r := range f.snapshot() {
		r.delegate.OnError(err)
	}
}
