package action_test

import (
	"testing"

	"github.com/pusher/chatkit-go/action"
	"github.com/pusher/chatkit-go/state"
	"github.com/pusher/chatkit-go/types"
)

func TestAction_Signature(t *testing.T) {
	tests := []struct {
		name string
		a    action.Action
		want state.Signature
	}{
		{"initial_state", action.InitialState{}, state.Signature{Kind: state.InitialState}},
		{"added_to_room", action.AddedToRoom{Room: types.Room{ID: "r1"}}, state.SignatureFor(state.AddedToRoom, "r1")},
		{"removed_from_room", action.RemovedFromRoom{RoomID: "r2"}, state.SignatureFor(state.RemovedFromRoom, "r2")},
		{"room_updated", action.RoomUpdated{Room: types.Room{ID: "r3"}}, state.SignatureFor(state.RoomUpdated, "r3")},
		{"room_deleted", action.RoomDeleted{RoomID: "r4"}, state.SignatureFor(state.RoomDeleted, "r4")},
		{"read_state_updated", action.ReadStateUpdated{ReadState: types.ReadState{RoomID: "r5"}}, state.SignatureFor(state.ReadStateUpdated, "r5")},
		{"subscription_state_updated", action.SubscriptionStateUpdated{}, state.Signature{Kind: state.SubscriptionStateUpdated}},
		{"users_fetched", action.UsersFetched{}, state.Signature{Kind: state.UsersFetched}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Signature(); got != tt.want {
				t.Errorf("Signature() = %v, want %v", got, tt.want)
			}
			if got := action.Name(tt.a); got != tt.name {
				t.Errorf("Name() = %q, want %q", got, tt.name)
			}
		})
	}
}
