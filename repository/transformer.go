package repository

import (
	"maps"
	"slices"
	"time"

	"github.com/pusher/chatkit-go/model"
	"github.com/pusher/chatkit-go/state"
)

// ChangeKind names what happened to a room.
type ChangeKind int

const (
	RoomAdded ChangeKind = iota
	RoomRemoved
	RoomChanged
	RoomDeleted
	RoomReadStateChanged
)

// String returns the snake_case name used in notifications.
func (k ChangeKind) String() string {
	switch k {
	case RoomAdded:
		return "added_to_room"
	case RoomRemoved:
		return "removed_from_room"
	case RoomChanged:
		return "room_updated"
	case RoomDeleted:
		return "room_deleted"
	case RoomReadStateChanged:
		return "read_state_updated"
	default:
		return "unknown"
	}
}

// ChangeReason explains the transition into a repository state.
type ChangeReason struct {
	Kind ChangeKind
	// Room is the room after the change, or the removed room.
	Room model.Room
	// Previous is set for RoomChanged and RoomReadStateChanged.
	Previous *model.Room
}

// Equal compares two reasons. Two nil reasons are equal.
func (c *ChangeReason) Equal(other *ChangeReason) bool {
	if c == nil || other == nil {
		return c == nil && other == nil
	}
	if c.Kind != other.Kind || !c.Room.Equal(other.Room) {
		return false
	}
	if c.Previous == nil || other.Previous == nil {
		return c.Previous == nil && other.Previous == nil
	}
	return c.Previous.Equal(*other.Previous)
}

// JoinedRoomsTransformer projects store state into public rooms.
type JoinedRoomsTransformer struct{}

// TransformRoom projects one room. The creator is not resolved.
func (JoinedRoomsTransformer) TransformRoom(r state.RoomState) model.Room {
	return model.Room{
		Identifier:            r.Identifier,
		Name:                  r.Name,
		IsPrivate:             r.IsPrivate,
		PushNotificationTitle: r.PushNotificationTitle,
		CreatorIdentifier:     r.CreatorIdentifier,
		MemberIdentifiers:     slices.Clone(r.MemberIdentifiers),
		UnreadCount:           r.ReadSummary.UnreadCount,
		LastMessageAt:         optionalTime(r.LastMessageAt),
		CustomData:            maps.Clone(r.CustomData),
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
		DeletedAt:             optionalTime(r.DeletedAt),
	}
}

// TransformUser projects a populated user.
func (JoinedRoomsTransformer) TransformUser(u state.UserState) model.User {
	return model.User{
		Identifier: u.Identifier,
		Name:       u.Name,
		AvatarURL:  u.AvatarURL,
		CustomData: maps.Clone(u.CustomData),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// TransformRooms projects every joined room, resolving creators from the
// user list. Rooms are ordered by most recent activity, then identifier.
func (t JoinedRoomsTransformer) TransformRooms(chat state.ChatState) []model.Room {
	rooms := make([]model.Room, 0, len(chat.JoinedRooms))
	for _, id := range chat.JoinedRooms.Identifiers() {
		rooms = append(rooms, t.transformResolved(chat, chat.JoinedRooms[id]))
	}
	slices.SortStableFunc(rooms, func(a, b model.Room) int {
		return activity(b).Compare(activity(a))
	})
	return rooms
}

func (t JoinedRoomsTransformer) transformResolved(chat state.ChatState, r state.RoomState) model.Room {
	room := t.TransformRoom(r)
	if creator := chat.Users.Get(r.CreatorIdentifier); creator.IsPopulated() {
		u := t.TransformUser(creator)
		room.Creator = &u
	}
	return room
}

// ChangeReason derives why current differs from previous. previous may be
// nil. The result is nil when the signature names no room or the room is
// missing where the change requires it.
func (t JoinedRoomsTransformer) ChangeReason(current, previous *state.VersionedState) *ChangeReason {
	if current == nil {
		return nil
	}
	var prevChat state.ChatState
	if previous != nil {
		prevChat = previous.ChatState
	}
	chat := current.ChatState
	id := current.Signature.RoomIdentifier

	lookup := func(c state.ChatState) (model.Room, bool) {
		r, ok := c.JoinedRooms[id]
		if !ok {
			return model.Room{}, false
		}
		return t.transformResolved(c, r), true
	}

	switch current.Signature.Kind {
	case state.AddedToRoom:
		if room, ok := lookup(chat); ok {
			return &ChangeReason{Kind: RoomAdded, Room: room}
		}
	case state.RemovedFromRoom:
		if room, ok := lookup(prevChat); ok {
			return &ChangeReason{Kind: RoomRemoved, Room: room}
		}
	case state.RoomDeleted:
		if room, ok := lookup(prevChat); ok {
			return &ChangeReason{Kind: RoomDeleted, Room: room}
		}
	case state.RoomUpdated, state.ReadStateUpdated:
		room, ok := lookup(chat)
		prev, prevOK := lookup(prevChat)
		if !ok || !prevOK {
			return nil
		}
		kind := RoomChanged
		if current.Signature.Kind == state.ReadStateUpdated {
			kind = RoomReadStateChanged
		}
		return &ChangeReason{Kind: kind, Room: room, Previous: &prev}
	case state.Unsigned, state.InitialState, state.SubscriptionStateUpdated, state.UsersFetched:
		return nil
	}
	return nil
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func activity(r model.Room) time.Time {
	if r.LastMessageAt != nil {
		return *r.LastMessageAt
	}
	return r.CreatedAt
}
