// Package types defines the wire model of the chat subscription stream.
//
// Field names follow the server's JSON contract and must not be renamed.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"encoding/json"
	"time"
)

// ProtocolVersion is the subscription protocol version this module speaks.
const ProtocolVersion = "v6"

// EventName is the discriminator carried by every subscription event.
type EventName string

// Event names delivered on the user subscription.
const (
	EventNameInitialState     EventName = "initial_state"
	EventNameAddedToRoom      EventName = "added_to_room"
	EventNameRemovedFromRoom  EventName = "removed_from_room"
	EventNameRoomUpdated      EventName = "room_updated"
	EventNameRoomDeleted      EventName = "room_deleted"
	EventNameReadStateUpdated EventName = "read_state_updated"
)

// IsKnown returns true if the event name is one the reducer pipeline handles.
func (e EventName) IsKnown() bool {
	switch e {
	case EventNameInitialState,
		EventNameAddedToRoom,
		EventNameRemovedFromRoom,
		EventNameRoomUpdated,
		EventNameRoomDeleted,
		EventNameReadStateUpdated:
		return true
	default:
		return false
	}
}

// EventEnvelope wraps every event on the subscription stream.
type EventEnvelope struct {
	// EventName is the event discriminator.
	EventName EventName `json:"event_name"`
	// Timestamp is the server time the event was produced.
	Timestamp time.Time `json:"timestamp"`
	// Data is the event-specific payload, decoded according to EventName.
	Data json.RawMessage `json:"data"`
}

// User is the wire representation of a user record.
type User struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	AvatarURL  string         `json:"avatar_url,omitempty"`
	CustomData map[string]any `json:"custom_data,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Room is the wire representation of a room record.
type Room struct {
	ID                            string         `json:"id"`
	Name                          string         `json:"name"`
	CreatedByID                   string         `json:"created_by_id"`
	Private                       bool           `json:"private"`
	PushNotificationTitleOverride *string        `json:"push_notification_title_override,omitempty"`
	CustomData                    map[string]any `json:"custom_data,omitempty"`
	LastMessageAt                 *time.Time     `json:"last_message_at,omitempty"`
	CreatedAt                     time.Time      `json:"created_at"`
	UpdatedAt                     time.Time      `json:"updated_at"`
	DeletedAt                     *time.Time     `json:"deleted_at,omitempty"`
}

// Membership lists the members of a single room.
type Membership struct {
	RoomID  string   `json:"room_id"`
	UserIDs []string `json:"user_ids"`
}

// Cursor is the read position of a user in a room.
type Cursor struct {
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Position  int64     `json:"position"`
	Type      int       `json:"cursor_type"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReadState carries the unread count for a room.
type ReadState struct {
	RoomID      string  `json:"room_id"`
	UnreadCount int     `json:"unread_count"`
	Cursor      *Cursor `json:"cursor,omitempty"`
}

// InitialStatePayload is the data of an initial_state event.
type InitialStatePayload struct {
	CurrentUser User         `json:"current_user"`
	Rooms       []Room       `json:"rooms"`
	ReadStates  []ReadState  `json:"read_states"`
	Memberships []Membership `json:"memberships"`
}

// AddedToRoomPayload is the data of an added_to_room event.
type AddedToRoomPayload struct {
	Room       Room       `json:"room"`
	Membership Membership `json:"membership"`
	ReadState  ReadState  `json:"read_state"`
}

// RemovedFromRoomPayload is the data of a removed_from_room event.
type RemovedFromRoomPayload struct {
	RoomID string `json:"room_id"`
}

// RoomUpdatedPayload is the data of a room_updated event.
type RoomUpdatedPayload struct {
	Room Room `json:"room"`
}

// RoomDeletedPayload is the data of a room_deleted event.
type RoomDeletedPayload struct {
	RoomID string `json:"room_id"`
}

// ReadStateUpdatedPayload is the data of a read_state_updated event.
type ReadStateUpdatedPayload struct {
	ReadState ReadState `json:"read_state"`
}
