package runtime_test

import (
	"errors"
	"testing"

	"github.com/pusher/chatkit-go/runtime"
	"github.com/pusher/chatkit-go/state"
	"github.com/pusher/chatkit-go/store"
	"github.com/pusher/chatkit-go/subscription"
)

func connection(s *store.Store) state.ConnectionState {
	c, ok := s.State().AuxiliaryState[state.UserSubscriptionType()]
	if !ok {
		return state.InitializingState(nil)
	}
	return c
}

func TestEventDispatcher_ConnectionStates(t *testing.T) {
	blip := errors.New("blip")
	ended := &subscription.EndError{Err: subscription.ErrEndedWhileSubscribed, StatusCode: 500}

	tests := []struct {
		name  string
		steps func(d *runtime.EventDispatcher)
		want  state.ConnectionState
	}{
		{
			name:  "error before first event stays initializing",
			steps: func(d *runtime.EventDispatcher) { d.OnError(blip) },
			want:  state.InitializingState(blip),
		},
		{
			name: "first event connects",
			steps: func(d *runtime.EventDispatcher) {
				d.OnError(blip)
				d.OnEvent([]byte(initialStateBody))
			},
			want: state.ConnectedState(),
		},
		{
			name: "error after connect degrades",
			steps: func(d *runtime.EventDispatcher) {
				d.OnEvent([]byte(initialStateBody))
				d.OnError(blip)
			},
			want: state.DegradedState(blip),
		},
		{
			name: "end of stream closes",
			steps: func(d *runtime.EventDispatcher) {
				d.OnEvent([]byte(initialStateBody))
				d.OnError(ended)
			},
			want: state.ClosedState(ended),
		},
		{
			name:  "unsubscribe while subscribing closes cleanly",
			steps: func(d *runtime.EventDispatcher) { d.OnError(subscription.ErrUnsubscribeCalledWhileSubscribing) },
			want:  state.ClosedState(nil),
		},
		{
			name:  "explicit close",
			steps: func(d *runtime.EventDispatcher) { d.Closed() },
			want:  state.ClosedState(nil),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.New(nil, nil)
			d := runtime.NewEventDispatcher(state.UserSubscriptionType(), s, nil, nil)
			tt.steps(d)
			if got := connection(s); !got.Equal(tt.want) {
				t.Errorf("connection = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEventDispatcher_DispatchesDecodedEvents(t *testing.T) {
	s := store.New(nil, nil)
	d := runtime.NewEventDispatcher(state.UserSubscriptionType(), s, nil, nil)

	d.OnEvent([]byte(initialStateBody))

	got := s.State()
	if len(got.ChatState.JoinedRooms) != 2 {
		t.Fatalf("rooms = %d, want 2", len(got.ChatState.JoinedRooms))
	}
	// initial state, then the connected transition.
	if got.Version != 2 {
		t.Errorf("version = %d, want 2", got.Version)
	}
	if got.Signature.Kind != state.SubscriptionStateUpdated {
		t.Errorf("signature = %v", got.Signature)
	}
}
