// Package action defines the tagged union of changes the store can apply.
//
// An Action is built only from a successfully decoded wire event or from a
// subscription lifecycle transition. It is consumed once by the reducer.
package action

import (
	"github.com/pusher/chatkit-go/state"
	"github.com/pusher/chatkit-go/types"
)

// Action is a sealed interface. Every implementation lives in this package.
type Action interface {
	// Signature is the signature a state produced by this action carries.
	Signature() state.Signature
	action()
}

// InitialState replaces the whole chat state with a server snapshot.
type InitialState types.InitialStatePayload

// AddedToRoom inserts or replaces a single joined room.
type AddedToRoom types.AddedToRoomPayload

// RemovedFromRoom removes a joined room.
type RemovedFromRoom types.RemovedFromRoomPayload

// RoomUpdated replaces the mutable fields of a joined room.
type RoomUpdated types.RoomUpdatedPayload

// RoomDeleted removes a deleted room.
type RoomDeleted types.RoomDeletedPayload

// ReadStateUpdated changes the unread count of a joined room.
type ReadStateUpdated types.ReadStateUpdatedPayload

// SubscriptionStateUpdated records a connection state transition.
type SubscriptionStateUpdated struct {
	Type  state.SubscriptionType
	State state.ConnectionState
}

// UsersFetched upserts fully fetched user records.
type UsersFetched struct {
	Users []types.User
}

func (InitialState) Signature() state.Signature {
	return state.Signature{Kind: state.InitialState}
}

func (a AddedToRoom) Signature() state.Signature {
	return state.SignatureFor(state.AddedToRoom, a.Room.ID)
}

func (a RemovedFromRoom) Signature() state.Signature {
	return state.SignatureFor(state.RemovedFromRoom, a.RoomID)
}

func (a RoomUpdated) Signature() state.Signature {
	return state.SignatureFor(state.RoomUpdated, a.Room.ID)
}

func (a RoomDeleted) Signature() state.Signature {
	return state.SignatureFor(state.RoomDeleted, a.RoomID)
}

func (a ReadStateUpdated) Signature() state.Signature {
	return state.SignatureFor(state.ReadStateUpdated, a.ReadState.RoomID)
}

func (SubscriptionStateUpdated) Signature() state.Signature {
	return state.Signature{Kind: state.SubscriptionStateUpdated}
}

func (UsersFetched) Signature() state.Signature {
	return state.Signature{Kind: state.UsersFetched}
}

func (InitialState) action()             {}
func (AddedToRoom) action()              {}
func (RemovedFromRoom) action()          {}
func (RoomUpdated) action()              {}
func (RoomDeleted) action()              {}
func (ReadStateUpdated) action()         {}
func (SubscriptionStateUpdated) action() {}
func (UsersFetched) action()             {}

// Name returns a stable name for logs and metrics.
func Name(a Action) string {
	switch a.(type) {
	case InitialState:
		return string(types.EventNameInitialState)
	case AddedToRoom:
		return string(types.EventNameAddedToRoom)
	case RemovedFromRoom:
		return string(types.EventNameRemovedFromRoom)
	case RoomUpdated:
		return string(types.EventNameRoomUpdated)
	case RoomDeleted:
		return string(types.EventNameRoomDeleted)
	case ReadStateUpdated:
		return string(types.EventNameReadStateUpdated)
	case SubscriptionStateUpdated:
		return "subscription_state_updated"
	case UsersFetched:
		return "users_fetched"
	default:
		return "unknown"
	}
}
