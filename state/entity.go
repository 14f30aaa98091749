// Package state defines the normalized, versioned state tree owned by the store.
//
// All values in this package are treated as immutable once published.
// Producers build new values; they never mutate one that a listener may hold.
package state

import (
	"reflect"
	"slices"
	"time"
)

// EntityKind is the tri-state of a referenced entity.
type EntityKind int

const (
	// Empty means nothing is known about the entity.
	Empty EntityKind = iota
	// Partial means only the identifier is known.
	Partial
	// Populated means the full record is known.
	Populated
)

// String returns the lowercase name of the kind.
func (k EntityKind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Partial:
		return "partial"
	case Populated:
		return "populated"
	default:
		return "unknown"
	}
}

// UserState is a user that may be empty, partial or populated.
// Only Identifier is meaningful for partial users.
type UserState struct {
	Kind       EntityKind
	Identifier string
	Name       string
	AvatarURL  string
	CustomData map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PartialUser returns a user known only by identifier.
func PartialUser(identifier string) UserState {
	return UserState{Kind: Partial, Identifier: identifier}
}

// IsEmpty reports whether nothing is known about the user.
func (u UserState) IsEmpty() bool { return u.Kind == Empty }

// IsPopulated reports whether the full user record is known.
func (u UserState) IsPopulated() bool { return u.Kind == Populated }

// Equal compares two user states field by field.
func (u UserState) Equal(other UserState) bool {
	if u.Kind != other.Kind || u.Identifier != other.Identifier {
		return false
	}
	if u.Kind != Populated {
		return true
	}
	return u.Name == other.Name &&
		u.AvatarURL == other.AvatarURL &&
		u.CreatedAt.Equal(other.CreatedAt) &&
		u.UpdatedAt.Equal(other.UpdatedAt) &&
		customDataEqual(u.CustomData, other.CustomData)
}

// UserListState is the set of known users keyed by identifier.
type UserListState map[string]UserState

// Get returns the user with the given identifier, or an empty user.
func (l UserListState) Get(identifier string) UserState {
	if u, ok := l[identifier]; ok {
		return u
	}
	return UserState{}
}

// With returns a copy of the list with u inserted or replaced.
func (l UserListState) With(u UserState) UserListState {
	out := make(UserListState, len(l)+1)
	for k, v := range l {
		out[k] = v
	}
	out[u.Identifier] = u
	return out
}

// Equal compares two user lists.
func (l UserListState) Equal(other UserListState) bool {
	if len(l) != len(other) {
		return false
	}
	for id, u := range l {
		o, ok := other[id]
		if !ok || !u.Equal(o) {
			return false
		}
	}
	return true
}

// ReadSummaryState is the read summary of a room.
type ReadSummaryState struct {
	Kind        EntityKind
	UnreadCount int
}

// PopulatedReadSummary returns a summary with a known unread count.
func PopulatedReadSummary(unread int) ReadSummaryState {
	return ReadSummaryState{Kind: Populated, UnreadCount: unread}
}

// RoomState is a joined room that may be empty, partial or populated.
type RoomState struct {
	Kind                  EntityKind
	Identifier            string
	Name                  string
	IsPrivate             bool
	PushNotificationTitle string
	CreatorIdentifier     string
	// MemberIdentifiers is sorted and references users that may be absent
	// from the user list.
	MemberIdentifiers []string
	ReadSummary       ReadSummaryState
	CustomData        map[string]any
	LastMessageAt     time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         time.Time
}

// PartialRoom returns a room known only by identifier.
func PartialRoom(identifier string) RoomState {
	return RoomState{Kind: Partial, Identifier: identifier}
}

// Equal compares two room states field by field.
func (r RoomState) Equal(other RoomState) bool {
	if r.Kind != other.Kind || r.Identifier != other.Identifier {
		return false
	}
	if r.Kind != Populated {
		return true
	}
	return r.Name == other.Name &&
		r.IsPrivate == other.IsPrivate &&
		r.PushNotificationTitle == other.PushNotificationTitle &&
		r.CreatorIdentifier == other.CreatorIdentifier &&
		slices.Equal(r.MemberIdentifiers, other.MemberIdentifiers) &&
		r.ReadSummary == other.ReadSummary &&
		r.LastMessageAt.Equal(other.LastMessageAt) &&
		r.CreatedAt.Equal(other.CreatedAt) &&
		r.UpdatedAt.Equal(other.UpdatedAt) &&
		r.DeletedAt.Equal(other.DeletedAt) &&
		customDataEqual(r.CustomData, other.CustomData)
}

// RoomListState is the set of joined rooms keyed by identifier.
type RoomListState map[string]RoomState

// With returns a copy of the list with r inserted or replaced.
func (l RoomListState) With(r RoomState) RoomListState {
	out := make(RoomListState, len(l)+1)
	for k, v := range l {
		out[k] = v
	}
	out[r.Identifier] = r
	return out
}

// Without returns a copy of the list with the identifier removed.
// The receiver is returned unchanged if the identifier is absent.
func (l RoomListState) Without(identifier string) RoomListState {
	if _, ok := l[identifier]; !ok {
		return l
	}
	out := make(RoomListState, len(l))
	for k, v := range l {
		if k != identifier {
			out[k] = v
		}
	}
	return out
}

// Identifiers returns the room identifiers in ascending order.
func (l RoomListState) Identifiers() []string {
	ids := make([]string, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Equal compares two room lists.
func (l RoomListState) Equal(other RoomListState) bool {
	if len(l) != len(other) {
		return false
	}
	for id, r := range l {
		o, ok := other[id]
		if !ok || !r.Equal(o) {
			return false
		}
	}
	return true
}

// ChatState is the normalized snapshot of chat content.
type ChatState struct {
	CurrentUser UserState
	JoinedRooms RoomListState
	Users       UserListState
}

// Equal compares two chat states.
func (c ChatState) Equal(other ChatState) bool {
	return c.CurrentUser.Equal(other.CurrentUser) &&
		c.JoinedRooms.Equal(other.JoinedRooms) &&
		c.Users.Equal(other.Users)
}

// nil and empty custom data are equivalent.
func customDataEqual(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
