package reader

import (
	"context"
	"time"
)

// StubReader returns fixed responses. Commands use it in tests; Err, when
// set, is returned from every method.
type StubReader struct {
	Rooms *RoomsResponse
	Users *UsersResponse
	Snap  *SnapshotStats
	Items []SnapshotItem
	Err   error
}

// NewStubReader creates a stub with one room, two users and version 3.
func NewStubReader() *StubReader {
	last := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return &StubReader{
		Rooms: &RoomsResponse{
			InstanceLocator: "v1:test:stub",
			Version:         3,
			Signature:       "initialState",
			Connection:      "connected",
			Rooms: []RoomItem{{
				ID: "r1", Name: "general", CreatedByID: "bob", CreatorName: "Bob",
				Members: 2, Unread: 1, LastMessageAt: &last,
			}},
		},
		Users: &UsersResponse{
			Version:     3,
			CurrentUser: "alice",
			Users: []UserItem{
				{ID: "alice", Name: "Alice", State: "populated", Current: true},
				{ID: "bob", Name: "Bob", State: "populated"},
			},
		},
		Snap: &SnapshotStats{
			Version: 3, Signature: "initialState", Rooms: 1, UnreadRooms: 1, UnreadTotal: 1,
			Users: 2, PopulatedUsers: 2,
			Connections: []ConnectionItem{{Subscription: "user", State: "connected"}},
		},
		Items: []SnapshotItem{{Version: 1}, {Version: 3}},
	}
}

// InspectRooms implements Reader.
func (s *StubReader) InspectRooms(context.Context, uint64) (*RoomsResponse, error) {
	return s.Rooms, s.Err
}

// InspectUsers implements Reader.
func (s *StubReader) InspectUsers(context.Context, uint64) (*UsersResponse, error) {
	return s.Users, s.Err
}

// Stats implements Reader.
func (s *StubReader) Stats(context.Context, uint64) (*SnapshotStats, error) {
	return s.Snap, s.Err
}

// ListSnapshots implements Reader.
func (s *StubReader) ListSnapshots(context.Context) ([]SnapshotItem, error) {
	return s.Items, s.Err
}

var _ Reader = (*StubReader)(nil)
