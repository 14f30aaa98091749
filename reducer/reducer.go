// Package reducer folds actions into chat state.
//
// Every function here is pure: it never mutates its input and returns the
// input unchanged when the action does not apply (unknown room, etc.).
package reducer

import (
	"slices"

	"github.com/pusher/chatkit-go/action"
	"github.com/pusher/chatkit-go/state"
)

// Reduce applies a to the chat and auxiliary state.
// Actions that only concern connectivity leave chat untouched and vice versa.
func Reduce(a action.Action, chat state.ChatState, aux state.AuxiliaryState) (state.ChatState, state.AuxiliaryState) {
	if a, ok := a.(action.SubscriptionStateUpdated); ok {
		return chat, SubscriptionStateUpdated(a, aux)
	}
	return ReduceChat(a, chat), aux
}

// ReduceChat dispatches a to the matching chat reducer.
// Unhandled actions return chat unchanged.
func ReduceChat(a action.Action, chat state.ChatState) state.ChatState {
	switch a := a.(type) {
	case action.InitialState:
		return InitialState(a, chat)
	case action.AddedToRoom:
		return AddedToRoom(a, chat)
	case action.RemovedFromRoom:
		return RemovedFromRoom(a, chat)
	case action.RoomUpdated:
		return RoomUpdated(a, chat)
	case action.RoomDeleted:
		return RoomDeleted(a, chat)
	case action.ReadStateUpdated:
		return ReadStateUpdated(a, chat)
	case action.UsersFetched:
		return UsersFetched(a, chat)
	case action.SubscriptionStateUpdated:
		return chat
	default:
		return chat
	}
}

// InitialState replaces the current user and rebuilds rooms and users.
func InitialState(a action.InitialState, _ state.ChatState) state.ChatState {
	currentUser := userState(a.CurrentUser)

	summaries := make(map[string]state.ReadSummaryState, len(a.ReadStates))
	for _, rs := range a.ReadStates {
		summaries[rs.RoomID] = state.PopulatedReadSummary(rs.UnreadCount)
	}
	members := make(map[string][]string, len(a.Memberships))
	for _, m := range a.Memberships {
		members[m.RoomID] = m.UserIDs
	}

	rooms := make(state.RoomListState, len(a.Rooms))
	for _, r := range a.Rooms {
		rooms[r.ID] = roomState(r, members[r.ID], summaries[r.ID])
	}

	users := make(state.UserListState, 1)
	if !currentUser.IsEmpty() {
		users[currentUser.Identifier] = currentUser
	}

	return state.ChatState{
		CurrentUser: currentUser,
		JoinedRooms: rooms,
		Users:       users,
	}
}

// AddedToRoom inserts or replaces one room, leaving the others untouched.
func AddedToRoom(a action.AddedToRoom, chat state.ChatState) state.ChatState {
	if a.Room.ID == "" {
		return chat
	}
	room := roomState(a.Room, a.Membership.UserIDs, state.PopulatedReadSummary(a.ReadState.UnreadCount))
	chat.JoinedRooms = chat.JoinedRooms.With(room)
	return chat
}

// RemovedFromRoom removes the room. An unknown room is a no-op.
func RemovedFromRoom(a action.RemovedFromRoom, chat state.ChatState) state.ChatState {
	chat.JoinedRooms = chat.JoinedRooms.Without(a.RoomID)
	return chat
}

// RoomDeleted removes the room. An unknown room is a no-op.
func RoomDeleted(a action.RoomDeleted, chat state.ChatState) state.ChatState {
	chat.JoinedRooms = chat.JoinedRooms.Without(a.RoomID)
	return chat
}

// RoomUpdated replaces the mutable fields of an existing room.
// Identifier, creator, members and read summary are preserved.
func RoomUpdated(a action.RoomUpdated, chat state.ChatState) state.ChatState {
	existing, ok := chat.JoinedRooms[a.Room.ID]
	if !ok {
		return chat
	}
	updated := roomState(a.Room, existing.MemberIdentifiers, existing.ReadSummary)
	updated.Identifier = existing.Identifier
	if existing.CreatorIdentifier != "" {
		updated.CreatorIdentifier = existing.CreatorIdentifier
	}
	chat.JoinedRooms = chat.JoinedRooms.With(updated)
	return chat
}

// ReadStateUpdated changes only the unread count of an existing room.
func ReadStateUpdated(a action.ReadStateUpdated, chat state.ChatState) state.ChatState {
	existing, ok := chat.JoinedRooms[a.ReadState.RoomID]
	if !ok {
		return chat
	}
	existing.ReadSummary = state.PopulatedReadSummary(a.ReadState.UnreadCount)
	chat.JoinedRooms = chat.JoinedRooms.With(existing)
	return chat
}

// UsersFetched upserts populated users. A fetched record for the current
// user also populates CurrentUser.
func UsersFetched(a action.UsersFetched, chat state.ChatState) state.ChatState {
	for _, u := range a.Users {
		user := userState(u)
		if user.IsEmpty() {
			continue
		}
		chat.Users = chat.Users.With(user)
		if chat.CurrentUser.Identifier == user.Identifier {
			chat.CurrentUser = user
		}
	}
	return chat
}

// SubscriptionStateUpdated records the connection state of one subscription.
func SubscriptionStateUpdated(a action.SubscriptionStateUpdated, aux state.AuxiliaryState) state.AuxiliaryState {
	return aux.With(a.Type, a.State)
}

func sortedMembers(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
