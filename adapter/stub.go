package adapter

import (
	"context"
	"sync"
)

// StubAdapter records published events in memory.
type StubAdapter struct {
	// Err, if set, is returned from every Publish.
	Err error

	mu     sync.Mutex
	events []RoomsChangedEvent
	closed bool
}

var _ Adapter = (*StubAdapter)(nil)

// Publish records a copy of event.
func (s *StubAdapter) Publish(ctx context.Context, event *RoomsChangedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

// Close marks the stub closed.
func (s *StubAdapter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Events returns the events published so far.
func (s *StubAdapter) Events() []RoomsChangedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RoomsChangedEvent(nil), s.events...)
}

// Closed reports whether Close was called.
func (s *StubAdapter) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
