// Package adapter defines the boundary for publishing joined-rooms changes
// to downstream systems.
//
// The runtime owns adapter lifecycle; callers provide configuration only.
package adapter

import (
	"context"
	"time"

	"github.com/pusher/chatkit-go/repository"
	"github.com/pusher/chatkit-go/types"
)

// EventTypeRoomsChanged is the event_type of every published event.
const EventTypeRoomsChanged = "rooms_changed"

// RoomsChangedEvent is the payload published when the joined rooms of a
// client change.
type RoomsChangedEvent struct {
	EventType       string `json:"event_type"` // always "rooms_changed"
	ClientVersion   string `json:"client_version"`
	ClientID        string `json:"client_id"`
	InstanceLocator string `json:"instance_locator,omitempty"`
	State           string `json:"state"`                   // initializing, connected, degraded, closed
	ChangeReason    string `json:"change_reason,omitempty"` // added_to_room, room_updated, etc.
	RoomID          string `json:"room_id,omitempty"`
	RoomCount       int    `json:"room_count"`
	UnreadCount     int    `json:"unread_count"`
	Error           string `json:"error,omitempty"`
	Timestamp       string `json:"timestamp"` // ISO 8601
}

// NewRoomsChangedEvent builds the event for one repository state.
func NewRoomsChangedEvent(clientID, instanceLocator string, s repository.State, at time.Time) *RoomsChangedEvent {
	ev := &RoomsChangedEvent{
		EventType:       EventTypeRoomsChanged,
		ClientVersion:   types.Version,
		ClientID:        clientID,
		InstanceLocator: instanceLocator,
		State:           s.Kind.String(),
		RoomCount:       len(s.Rooms),
		Timestamp:       at.UTC().Format(time.RFC3339Nano),
	}
	for _, r := range s.Rooms {
		ev.UnreadCount += r.UnreadCount
	}
	if s.ChangeReason != nil {
		ev.ChangeReason = s.ChangeReason.Kind.String()
		ev.RoomID = s.ChangeReason.Room.Identifier
	}
	if s.Err != nil {
		ev.Error = s.Err.Error()
	}
	return ev
}

// Adapter publishes rooms-changed events to a downstream system.
type Adapter interface {
	// Publish sends one event downstream.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *RoomsChangedEvent) error

	// Close releases adapter resources.
	Close() error
}
