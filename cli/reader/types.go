// Package reader is the read side of the chatkit CLI.
//
// Read-only commands never touch a live client. They read archived
// snapshots or session reports and shape them into the response types
// below, which are shared by table, json, yaml and TUI output.
package reader

import (
	"fmt"
	"strconv"
	"time"
)

// RoomsResponse lists the joined rooms of one snapshot.
type RoomsResponse struct {
	InstanceLocator string     `json:"instance_locator"`
	ClientID        string     `json:"client_id,omitempty"`
	Version         uint64     `json:"version"`
	Signature       string     `json:"signature"`
	CapturedAt      time.Time  `json:"captured_at"`
	Connection      string     `json:"connection"`
	Rooms           []RoomItem `json:"rooms"`
}

// RoomItem is one room, ordered by most recent activity.
type RoomItem struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Private       bool       `json:"private"`
	CreatedByID   string     `json:"created_by_id"`
	CreatorName   string     `json:"creator_name,omitempty"`
	Members       int        `json:"members"`
	Unread        int        `json:"unread_count"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// TableHeader implements render.Tabular.
func (r *RoomsResponse) TableHeader() []string {
	return []string{"id", "name", "private", "creator", "members", "unread", "last_message"}
}

// TableRows implements render.Tabular.
func (r *RoomsResponse) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Rooms))
	for _, room := range r.Rooms {
		creator := room.CreatorName
		if creator == "" {
			creator = room.CreatedByID
		}
		rows = append(rows, []string{
			room.ID,
			room.Name,
			strconv.FormatBool(room.Private),
			creator,
			strconv.Itoa(room.Members),
			strconv.Itoa(room.Unread),
			formatTime(room.LastMessageAt),
		})
	}
	return rows
}

// UsersResponse lists the known users of one snapshot.
type UsersResponse struct {
	Version     uint64     `json:"version"`
	CurrentUser string     `json:"current_user"`
	Users       []UserItem `json:"users"`
}

// UserItem is one known user.
type UserItem struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	State   string `json:"state"`
	Current bool   `json:"current"`
}

// TableHeader implements render.Tabular.
func (r *UsersResponse) TableHeader() []string {
	return []string{"id", "name", "state", "current"}
}

// TableRows implements render.Tabular.
func (r *UsersResponse) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Users))
	for _, u := range r.Users {
		rows = append(rows, []string{u.ID, u.Name, u.State, strconv.FormatBool(u.Current)})
	}
	return rows
}

// SnapshotStats summarizes one snapshot.
type SnapshotStats struct {
	Version        uint64           `json:"version"`
	Signature      string           `json:"signature"`
	Rooms          int              `json:"rooms"`
	PrivateRooms   int              `json:"private_rooms"`
	UnreadRooms    int              `json:"unread_rooms"`
	UnreadTotal    int              `json:"unread_total"`
	Users          int              `json:"users"`
	PopulatedUsers int              `json:"populated_users"`
	Connections    []ConnectionItem `json:"connections"`
}

// ConnectionItem is the archived state of one subscription.
type ConnectionItem struct {
	Subscription string `json:"subscription"`
	State        string `json:"state"`
	Error        string `json:"error,omitempty"`
}

// SnapshotItem is one archived snapshot.
type SnapshotItem struct {
	Version uint64 `json:"version"`
}

// SessionStats is the counter view of a session report.
type SessionStats struct {
	ClientID   string `json:"client_id"`
	State      string `json:"state"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Rooms      int    `json:"rooms"`

	EventsReceived     int64 `json:"events_received"`
	DecodeErrors       int64 `json:"decode_errors"`
	SubscriptionErrors int64 `json:"subscription_errors"`
	ActionsDispatched  int64 `json:"actions_dispatched"`
	Broadcasts         int64 `json:"broadcasts"`
	BroadcastsSkipped  int64 `json:"broadcasts_skipped"`
	BufferHeld         int64 `json:"buffer_held"`
	BufferResolved     int64 `json:"buffer_resolved"`
	UsersFetched       int64 `json:"users_fetched"`
	UserFetchFailures  int64 `json:"user_fetch_failures"`

	Published int64 `json:"notifications_published"`
	Failed    int64 `json:"notifications_failed"`
	Dropped   int64 `json:"notifications_dropped"`
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func subscriptionName(kind, roomID string) string {
	if roomID == "" {
		return kind
	}
	return fmt.Sprintf("%s:%s", kind, roomID)
}
