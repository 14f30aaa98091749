package connectivity_test

import (
	"errors"
	"testing"

	"github.com/pusher/chatkit-go/action"
	"github.com/pusher/chatkit-go/connectivity"
	"github.com/pusher/chatkit-go/state"
	"github.com/pusher/chatkit-go/store"
)

func setConnection(s *store.Store, typ state.SubscriptionType, c state.ConnectionState) {
	s.Dispatch(action.SubscriptionStateUpdated{Type: typ, State: c})
}

func TestMonitor_DefaultsToInitializing(t *testing.T) {
	s := store.New(nil, nil)
	m := connectivity.New(s, state.UserSubscriptionType(), nil, nil)
	defer m.Close()

	if got := m.ConnectionState(); !got.Equal(state.InitializingState(nil)) {
		t.Errorf("expected initializing, got %v", got)
	}
}

func TestMonitor_SeedsFromStore(t *testing.T) {
	s := store.New(nil, nil)
	setConnection(s, state.UserSubscriptionType(), state.ConnectedState())

	var calls int
	m := connectivity.New(s, state.UserSubscriptionType(), func(state.ConnectionState) { calls++ }, nil)
	defer m.Close()

	if got := m.ConnectionState(); got.Kind != state.Connected {
		t.Errorf("expected connected, got %v", got)
	}
	if calls != 0 {
		t.Errorf("expected no callback for the seed, got %d", calls)
	}
}

func TestMonitor_FiresOnlyOnChange(t *testing.T) {
	s := store.New(nil, nil)
	var seen []state.ConnectionState
	m := connectivity.New(s, state.UserSubscriptionType(), func(c state.ConnectionState) {
		seen = append(seen, c)
	}, nil)
	defer m.Close()

	user := state.UserSubscriptionType()
	setConnection(s, user, state.ConnectedState())
	// Another subscription's change is not ours.
	setConnection(s, state.RoomSubscriptionType("r1"), state.DegradedState(errors.New("x")))
	setConnection(s, user, state.DegradedState(errors.New("timeout")))
	setConnection(s, user, state.ClosedState(nil))

	if len(seen) != 3 {
		t.Fatalf("expected 3 changes, got %d: %v", len(seen), seen)
	}
	want := []state.ConnectionKind{state.Connected, state.Degraded, state.Closed}
	for i, k := range want {
		if seen[i].Kind != k {
			t.Errorf("change %d: expected %v, got %v", i, k, seen[i].Kind)
		}
	}
}

func TestMonitor_Close(t *testing.T) {
	s := store.New(nil, nil)
	var calls int
	m := connectivity.New(s, state.UserSubscriptionType(), func(state.ConnectionState) { calls++ }, nil)
	m.Close()
	m.Close()

	setConnection(s, state.UserSubscriptionType(), state.ConnectedState())
	if calls != 0 {
		t.Errorf("expected no callbacks after close, got %d", calls)
	}
}
