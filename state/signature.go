package state

import "fmt"

// SignatureKind tags which kind of change produced a VersionedState.
// Consumers must switch exhaustively over these kinds.
type SignatureKind int

const (
	Unsigned SignatureKind = iota
	InitialState
	AddedToRoom
	RemovedFromRoom
	RoomUpdated
	RoomDeleted
	ReadStateUpdated
	SubscriptionStateUpdated
	UsersFetched
)

var signatureNames = map[SignatureKind]string{
	Unsigned:                 "unsigned",
	InitialState:             "initialState",
	AddedToRoom:              "addedToRoom",
	RemovedFromRoom:          "removedFromRoom",
	RoomUpdated:              "roomUpdated",
	RoomDeleted:              "roomDeleted",
	ReadStateUpdated:         "readStateUpdated",
	SubscriptionStateUpdated: "subscriptionStateUpdated",
	UsersFetched:             "usersFetched",
}

// String returns the camelCase name of the kind.
func (k SignatureKind) String() string {
	if name, ok := signatureNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseSignatureKind is the inverse of SignatureKind.String.
func ParseSignatureKind(name string) (SignatureKind, bool) {
	for k, n := range signatureNames {
		if n == name {
			return k, true
		}
	}
	return Unsigned, false
}

// Signature identifies what kind of change produced a state and which room,
// if any, it concerns. Signatures are comparable with ==.
type Signature struct {
	Kind           SignatureKind
	RoomIdentifier string
}

// HasRoom reports whether the signature kind carries a room identifier.
func (s Signature) HasRoom() bool {
	switch s.Kind {
	case AddedToRoom, RemovedFromRoom, RoomUpdated, RoomDeleted, ReadStateUpdated:
		return true
	default:
		return false
	}
}

// String renders the signature as kind or kind(room).
func (s Signature) String() string {
	if s.HasRoom() {
		return fmt.Sprintf("%s(%s)", s.Kind, s.RoomIdentifier)
	}
	return s.Kind.String()
}

// SignatureFor returns a room-bearing signature.
func SignatureFor(kind SignatureKind, roomIdentifier string) Signature {
	return Signature{Kind: kind, RoomIdentifier: roomIdentifier}
}
