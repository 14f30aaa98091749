// Package snapshot archives store states so a session can be inspected
// after the fact.
//
// A snapshot is one msgpack document holding the chat state, the
// connection state of every subscription, the store version and the
// signature of the action that produced it.
package snapshot

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pusher/chatkit-go/state"
)

// FormatVersion is the document format written by Encode.
const FormatVersion = 1

// Meta identifies where a snapshot came from.
type Meta struct {
	InstanceLocator string    `msgpack:"instance_locator"`
	ClientID        string    `msgpack:"client_id"`
	CapturedAt      time.Time `msgpack:"captured_at"`
}

// Document is the archived form of a state.
type Document struct {
	FormatVersion int `msgpack:"format_version"`
	Meta          Meta `msgpack:"meta"`

	Version       uint64 `msgpack:"version"`
	SignatureKind string `msgpack:"signature_kind"`
	SignatureRoom string `msgpack:"signature_room,omitempty"`

	CurrentUser User         `msgpack:"current_user"`
	Rooms       []Room       `msgpack:"rooms"`
	Users       []User       `msgpack:"users"`
	Connections []Connection `msgpack:"connections"`
}

// User is an archived user.
type User struct {
	Kind       string         `msgpack:"kind"`
	ID         string         `msgpack:"id"`
	Name       string         `msgpack:"name,omitempty"`
	AvatarURL  string         `msgpack:"avatar_url,omitempty"`
	CustomData map[string]any `msgpack:"custom_data,omitempty"`
	CreatedAt  time.Time      `msgpack:"created_at"`
	UpdatedAt  time.Time      `msgpack:"updated_at"`
}

// Room is an archived room.
type Room struct {
	Kind                  string         `msgpack:"kind"`
	ID                    string         `msgpack:"id"`
	Name                  string         `msgpack:"name"`
	Private               bool           `msgpack:"private"`
	PushNotificationTitle string         `msgpack:"push_notification_title,omitempty"`
	CreatedByID           string         `msgpack:"created_by_id"`
	MemberIDs             []string       `msgpack:"member_ids"`
	ReadSummaryKind       string         `msgpack:"read_summary_kind"`
	UnreadCount           int            `msgpack:"unread_count"`
	CustomData            map[string]any `msgpack:"custom_data,omitempty"`
	LastMessageAt         time.Time      `msgpack:"last_message_at"`
	CreatedAt             time.Time      `msgpack:"created_at"`
	UpdatedAt             time.Time      `msgpack:"updated_at"`
	DeletedAt             time.Time      `msgpack:"deleted_at"`
}

// Connection is the archived connection state of one subscription.
type Connection struct {
	Subscription string `msgpack:"subscription"` // "user" or "room"
	RoomID       string `msgpack:"room_id,omitempty"`
	State        string `msgpack:"state"`
	Error        string `msgpack:"error,omitempty"`
}

// Encode serializes s with meta.
func Encode(s state.VersionedState, meta Meta) ([]byte, error) {
	data, err := msgpack.Marshal(FromState(s, meta))
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return data, nil
}

// Decode parses a document written by Encode.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	if doc.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("snapshot: unsupported format version %d", doc.FormatVersion)
	}
	return &doc, nil
}

// FromState converts a store state to its archived form. Rooms and users
// are sorted by identifier.
func FromState(s state.VersionedState, meta Meta) *Document {
	doc := &Document{
		FormatVersion: FormatVersion,
		Meta:          meta,
		Version:       s.Version,
		SignatureKind: s.Signature.Kind.String(),
		SignatureRoom: s.Signature.RoomIdentifier,
		CurrentUser:   fromUser(s.ChatState.CurrentUser),
	}

	for _, id := range s.ChatState.JoinedRooms.Identifiers() {
		doc.Rooms = append(doc.Rooms, fromRoom(s.ChatState.JoinedRooms[id]))
	}
	for _, id := range sortedKeys(s.ChatState.Users) {
		doc.Users = append(doc.Users, fromUser(s.ChatState.Users[id]))
	}
	for typ, c := range s.AuxiliaryState {
		conn := Connection{Subscription: "user", State: c.Kind.String()}
		if typ.Kind == state.RoomSubscription {
			conn.Subscription = "room"
			conn.RoomID = typ.RoomIdentifier
		}
		if c.Err != nil {
			conn.Error = c.Err.Error()
		}
		doc.Connections = append(doc.Connections, conn)
	}
	sortConnections(doc.Connections)
	return doc
}

// State rebuilds the store state. Connection errors come back as plain
// errors carrying the archived message.
func (d *Document) State() (state.VersionedState, error) {
	kind, ok := state.ParseSignatureKind(d.SignatureKind)
	if !ok {
		return state.VersionedState{}, fmt.Errorf("snapshot: unknown signature kind %q", d.SignatureKind)
	}

	current, err := d.CurrentUser.state()
	if err != nil {
		return state.VersionedState{}, err
	}
	chat := state.ChatState{
		CurrentUser: current,
		JoinedRooms: make(state.RoomListState, len(d.Rooms)),
		Users:       make(state.UserListState, len(d.Users)),
	}
	for _, r := range d.Rooms {
		rs, err := r.state()
		if err != nil {
			return state.VersionedState{}, err
		}
		chat.JoinedRooms[r.ID] = rs
	}
	for _, u := range d.Users {
		us, err := u.state()
		if err != nil {
			return state.VersionedState{}, err
		}
		chat.Users[u.ID] = us
	}

	aux := make(state.AuxiliaryState, len(d.Connections))
	for _, c := range d.Connections {
		typ := state.UserSubscriptionType()
		if c.Subscription == "room" {
			typ = state.RoomSubscriptionType(c.RoomID)
		}
		ck, err := parseConnectionKind(c.State)
		if err != nil {
			return state.VersionedState{}, err
		}
		var cerr error
		if c.Error != "" {
			cerr = errors.New(c.Error)
		}
		aux[typ] = state.ConnectionState{Kind: ck, Err: cerr}
	}

	return state.VersionedState{
		ChatState:      chat,
		AuxiliaryState: aux,
		Version:        d.Version,
		Signature:      state.Signature{Kind: kind, RoomIdentifier: d.SignatureRoom},
	}, nil
}

func fromUser(u state.UserState) User {
	return User{
		Kind:       u.Kind.String(),
		ID:         u.Identifier,
		Name:       u.Name,
		AvatarURL:  u.AvatarURL,
		CustomData: u.CustomData,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func (u User) state() (state.UserState, error) {
	kind, err := parseEntityKind(u.Kind)
	if err != nil {
		return state.UserState{}, err
	}
	return state.UserState{
		Kind:       kind,
		Identifier: u.ID,
		Name:       u.Name,
		AvatarURL:  u.AvatarURL,
		CustomData: u.CustomData,
		CreatedAt:  u.CreatedAt.UTC(),
		UpdatedAt:  u.UpdatedAt.UTC(),
	}, nil
}

func fromRoom(r state.RoomState) Room {
	return Room{
		Kind:                  r.Kind.String(),
		ID:                    r.Identifier,
		Name:                  r.Name,
		Private:               r.IsPrivate,
		PushNotificationTitle: r.PushNotificationTitle,
		CreatedByID:           r.CreatorIdentifier,
		MemberIDs:             r.MemberIdentifiers,
		ReadSummaryKind:       r.ReadSummary.Kind.String(),
		UnreadCount:           r.ReadSummary.UnreadCount,
		CustomData:            r.CustomData,
		LastMessageAt:         r.LastMessageAt,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
		DeletedAt:             r.DeletedAt,
	}
}

func (r Room) state() (state.RoomState, error) {
	kind, err := parseEntityKind(r.Kind)
	if err != nil {
		return state.RoomState{}, err
	}
	summary, err := parseEntityKind(r.ReadSummaryKind)
	if err != nil {
		return state.RoomState{}, err
	}
	return state.RoomState{
		Kind:                  kind,
		Identifier:            r.ID,
		Name:                  r.Name,
		IsPrivate:             r.Private,
		PushNotificationTitle: r.PushNotificationTitle,
		CreatorIdentifier:     r.CreatedByID,
		MemberIdentifiers:     r.MemberIDs,
		ReadSummary:           state.ReadSummaryState{Kind: summary, UnreadCount: r.UnreadCount},
		CustomData:            r.CustomData,
		LastMessageAt:         utc(r.LastMessageAt),
		CreatedAt:             utc(r.CreatedAt),
		UpdatedAt:             utc(r.UpdatedAt),
		DeletedAt:             utc(r.DeletedAt),
	}, nil
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}

func parseEntityKind(s string) (state.EntityKind, error) {
	for _, k := range []state.EntityKind{state.Empty, state.Partial, state.Populated} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("snapshot: unknown entity kind %q", s)
}

func parseConnectionKind(s string) (state.ConnectionKind, error) {
	for _, k := range []state.ConnectionKind{state.Initializing, state.Connected, state.Degraded, state.Closed} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("snapshot: unknown connection state %q", s)
}

func sortedKeys(users state.UserListState) []string {
	return slices.Sorted(maps.Keys(users))
}

func sortConnections(conns []Connection) {
	slices.SortFunc(conns, func(a, b Connection) int {
		return cmp.Or(cmp.Compare(a.Subscription, b.Subscription), cmp.Compare(a.RoomID, b.RoomID))
	})
}
