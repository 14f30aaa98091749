package repository

import (
	"github.com/pusher/chatkit-go/buffer"
	"github.com/pusher/chatkit-go/state"
)

// JoinedRoomsFilter selects the joined rooms substate: the rooms themselves,
// the current user and the users referenced as room creators.
type JoinedRoomsFilter struct{}

var _ buffer.Filter = JoinedRoomsFilter{}

// HasModifiedSubstate reports whether the joined rooms, the current user or
// any referenced creator differ between old and new.
func (JoinedRoomsFilter) HasModifiedSubstate(old, new state.VersionedState) bool {
	if !old.ChatState.JoinedRooms.Equal(new.ChatState.JoinedRooms) {
		return true
	}
	if !old.ChatState.CurrentUser.Equal(new.ChatState.CurrentUser) {
		return true
	}
	for _, r := range new.ChatState.JoinedRooms {
		id := r.CreatorIdentifier
		if id == "" {
			continue
		}
		if !old.ChatState.Users.Get(id).Equal(new.ChatState.Users.Get(id)) {
			return true
		}
	}
	return false
}

// HasCompleteSubstate requires a populated current user and a populated
// creator for every joined room. Members may remain unknown.
func (JoinedRoomsFilter) HasCompleteSubstate(s state.VersionedState) bool {
	if !s.ChatState.CurrentUser.IsPopulated() {
		return false
	}
	for _, r := range s.ChatState.JoinedRooms {
		if r.Kind != state.Populated {
			return false
		}
		if r.CreatorIdentifier == "" {
			continue
		}
		if !s.ChatState.Users.Get(r.CreatorIdentifier).IsPopulated() {
			return false
		}
	}
	return true
}

// HasRelevantSignature accepts the six joined-room signatures only.
func (JoinedRoomsFilter) HasRelevantSignature(sig state.Signature) bool {
	switch sig.Kind {
	case state.InitialState,
		state.AddedToRoom,
		state.RemovedFromRoom,
		state.RoomUpdated,
		state.RoomDeleted,
		state.ReadStateUpdated:
		return true
	case state.Unsigned, state.SubscriptionStateUpdated, state.UsersFetched:
		return false
	default:
		return false
	}
}
