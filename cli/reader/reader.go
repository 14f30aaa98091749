package reader

import (
	"context"
	"errors"
	"math"

	"github.com/pusher/chatkit-go/repository"
	"github.com/pusher/chatkit-go/snapshot"
	"github.com/pusher/chatkit-go/state"
)

// Latest selects the newest archived snapshot.
const Latest uint64 = math.MaxUint64

// Reader abstracts read-only snapshot access for CLI commands.
type Reader interface {
	InspectRooms(ctx context.Context, version uint64) (*RoomsResponse, error)
	InspectUsers(ctx context.Context, version uint64) (*UsersResponse, error)
	Stats(ctx context.Context, version uint64) (*SnapshotStats, error)
	ListSnapshots(ctx context.Context) ([]SnapshotItem, error)
}

// ArchiveReader reads snapshots from an archive.
type ArchiveReader struct {
	archive *snapshot.Archive
}

// NewArchiveReader creates a reader over a.
func NewArchiveReader(a *snapshot.Archive) *ArchiveReader {
	return &ArchiveReader{archive: a}
}

func (r *ArchiveReader) document(ctx context.Context, version uint64) (*snapshot.Document, error) {
	if version == Latest {
		return r.archive.Latest(ctx)
	}
	return r.archive.Get(ctx, version)
}

// InspectRooms implements Reader.
func (r *ArchiveReader) InspectRooms(ctx context.Context, version uint64) (*RoomsResponse, error) {
	doc, err := r.document(ctx, version)
	if err != nil {
		return nil, err
	}
	return RoomsFromDocument(doc)
}

// InspectUsers implements Reader.
func (r *ArchiveReader) InspectUsers(ctx context.Context, version uint64) (*UsersResponse, error) {
	doc, err := r.document(ctx, version)
	if err != nil {
		return nil, err
	}
	return UsersFromDocument(doc), nil
}

// Stats implements Reader.
func (r *ArchiveReader) Stats(ctx context.Context, version uint64) (*SnapshotStats, error) {
	doc, err := r.document(ctx, version)
	if err != nil {
		return nil, err
	}
	return StatsFromDocument(doc), nil
}

// ListSnapshots implements Reader.
func (r *ArchiveReader) ListSnapshots(ctx context.Context) ([]SnapshotItem, error) {
	versions, err := r.archive.Versions(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]SnapshotItem, 0, len(versions))
	for _, v := range versions {
		items = append(items, SnapshotItem{Version: v})
	}
	return items, nil
}

// DocumentReader serves a single decoded snapshot, e.g. one read from a
// file. Any version selects that snapshot.
type DocumentReader struct {
	doc *snapshot.Document
}

// NewDocumentReader creates a reader over doc.
func NewDocumentReader(doc *snapshot.Document) *DocumentReader {
	return &DocumentReader{doc: doc}
}

// InspectRooms implements Reader.
func (r *DocumentReader) InspectRooms(context.Context, uint64) (*RoomsResponse, error) {
	return RoomsFromDocument(r.doc)
}

// InspectUsers implements Reader.
func (r *DocumentReader) InspectUsers(context.Context, uint64) (*UsersResponse, error) {
	return UsersFromDocument(r.doc), nil
}

// Stats implements Reader.
func (r *DocumentReader) Stats(context.Context, uint64) (*SnapshotStats, error) {
	return StatsFromDocument(r.doc), nil
}

// ListSnapshots implements Reader.
func (r *DocumentReader) ListSnapshots(context.Context) ([]SnapshotItem, error) {
	return []SnapshotItem{{Version: r.doc.Version}}, nil
}

var (
	_ Reader = (*ArchiveReader)(nil)
	_ Reader = (*DocumentReader)(nil)
)

// RoomsFromDocument projects the joined rooms of doc the same way a live
// repository would.
func RoomsFromDocument(doc *snapshot.Document) (*RoomsResponse, error) {
	if doc == nil {
		return nil, errors.New("no snapshot")
	}
	vs, err := doc.State()
	if err != nil {
		return nil, err
	}

	resp := &RoomsResponse{
		InstanceLocator: doc.Meta.InstanceLocator,
		ClientID:        doc.Meta.ClientID,
		Version:         doc.Version,
		Signature:       vs.Signature.String(),
		CapturedAt:      doc.Meta.CapturedAt,
		Connection:      userConnection(vs).String(),
		Rooms:           []RoomItem{},
	}
	for _, room := range (repository.JoinedRoomsTransformer{}).TransformRooms(vs.ChatState) {
		item := RoomItem{
			ID:            room.Identifier,
			Name:          room.Name,
			Private:       room.IsPrivate,
			CreatedByID:   room.CreatorIdentifier,
			Members:       len(room.MemberIdentifiers),
			Unread:        room.UnreadCount,
			LastMessageAt: room.LastMessageAt,
		}
		if room.Creator != nil {
			item.CreatorName = room.Creator.Name
		}
		resp.Rooms = append(resp.Rooms, item)
	}
	return resp, nil
}

// UsersFromDocument lists every archived user, sorted by identifier.
func UsersFromDocument(doc *snapshot.Document) *UsersResponse {
	resp := &UsersResponse{
		Version:     doc.Version,
		CurrentUser: doc.CurrentUser.ID,
		Users:       make([]UserItem, 0, len(doc.Users)),
	}
	for _, u := range doc.Users {
		resp.Users = append(resp.Users, UserItem{
			ID:      u.ID,
			Name:    u.Name,
			State:   u.Kind,
			Current: u.ID != "" && u.ID == doc.CurrentUser.ID,
		})
	}
	return resp
}

// StatsFromDocument counts rooms, unread messages, users and connections.
func StatsFromDocument(doc *snapshot.Document) *SnapshotStats {
	stats := &SnapshotStats{
		Version:     doc.Version,
		Signature:   doc.SignatureKind,
		Rooms:       len(doc.Rooms),
		Users:       len(doc.Users),
		Connections: make([]ConnectionItem, 0, len(doc.Connections)),
	}
	if doc.SignatureRoom != "" {
		stats.Signature += "(" + doc.SignatureRoom + ")"
	}
	for _, r := range doc.Rooms {
		if r.Private {
			stats.PrivateRooms++
		}
		if r.UnreadCount > 0 {
			stats.UnreadRooms++
			stats.UnreadTotal += r.UnreadCount
		}
	}
	for _, u := range doc.Users {
		if u.Kind == state.Populated.String() {
			stats.PopulatedUsers++
		}
	}
	for _, c := range doc.Connections {
		stats.Connections = append(stats.Connections, ConnectionItem{
			Subscription: subscriptionName(c.Subscription, c.RoomID),
			State:        c.State,
			Error:        c.Error,
		})
	}
	return stats
}

func userConnection(vs state.VersionedState) state.ConnectionState {
	if c, ok := vs.AuxiliaryState[state.UserSubscriptionType()]; ok {
		return c
	}
	return state.InitializingState(nil)
}
