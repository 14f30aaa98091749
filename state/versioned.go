package state

import "fmt"

// SubscriptionKind distinguishes the subscriptions tracked in AuxiliaryState.
type SubscriptionKind int

const (
	// UserSubscription is the per-user stream carrying joined rooms.
	UserSubscription SubscriptionKind = iota
	// RoomSubscription is a per-room stream.
	RoomSubscription
)

// SubscriptionType keys the auxiliary connection map.
type SubscriptionType struct {
	Kind           SubscriptionKind
	RoomIdentifier string
}

// UserSubscriptionType is the key of the user subscription.
func UserSubscriptionType() SubscriptionType {
	return SubscriptionType{Kind: UserSubscription}
}

// RoomSubscriptionType is the key of the subscription for one room.
func RoomSubscriptionType(roomIdentifier string) SubscriptionType {
	return SubscriptionType{Kind: RoomSubscription, RoomIdentifier: roomIdentifier}
}

// String returns "user" or "room(<id>)".
func (t SubscriptionType) String() string {
	if t.Kind == RoomSubscription {
		return fmt.Sprintf("room(%s)", t.RoomIdentifier)
	}
	return "user"
}

// ConnectionKind is the connection state of a subscription.
type ConnectionKind int

const (
	Initializing ConnectionKind = iota
	Connected
	Degraded
	Closed
)

// String returns the lowercase name of the kind.
func (k ConnectionKind) String() string {
	switch k {
	case Initializing:
		return "initializing"
	case Connected:
		return "connected"
	case Degraded:
		return "degraded"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectionState is a connection kind plus the error that caused it, if any.
// Connected never carries an error.
type ConnectionState struct {
	Kind ConnectionKind
	Err  error
}

// InitializingState returns initializing(err). err may be nil.
func InitializingState(err error) ConnectionState {
	return ConnectionState{Kind: Initializing, Err: err}
}

// ConnectedState returns connected.
func ConnectedState() ConnectionState {
	return ConnectionState{Kind: Connected}
}

// DegradedState returns degraded(err).
func DegradedState(err error) ConnectionState {
	return ConnectionState{Kind: Degraded, Err: err}
}

// ClosedState returns closed(err). err may be nil.
func ClosedState(err error) ConnectionState {
	return ConnectionState{Kind: Closed, Err: err}
}

// Equal compares kinds and error messages.
func (c ConnectionState) Equal(other ConnectionState) bool {
	return c.Kind == other.Kind && ErrorsEqual(c.Err, other.Err)
}

// String renders the state as kind or kind(error).
func (c ConnectionState) String() string {
	if c.Err == nil {
		return c.Kind.String()
	}
	return fmt.Sprintf("%s(%v)", c.Kind, c.Err)
}

// ErrorsEqual compares errors by message. Two nil errors are equal.
func ErrorsEqual(a, b error) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Error() == b.Error()
}

// AuxiliaryState maps each subscription to its connection state.
type AuxiliaryState map[SubscriptionType]ConnectionState

// With returns a copy of the map with t set to c.
func (a AuxiliaryState) With(t SubscriptionType, c ConnectionState) AuxiliaryState {
	out := make(AuxiliaryState, len(a)+1)
	for k, v := range a {
		out[k] = v
	}
	out[t] = c
	return out
}

// Equal compares two auxiliary states.
func (a AuxiliaryState) Equal(other AuxiliaryState) bool {
	if len(a) != len(other) {
		return false
	}
	for k, v := range a {
		o, ok := other[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// VersionedState is the unit of truth passed through the pipeline.
type VersionedState struct {
	ChatState      ChatState
	AuxiliaryState AuxiliaryState
	// Version increases by one for every store mutation.
	Version   uint64
	Signature Signature
}

// Equal compares every field, including version and signature.
func (v VersionedState) Equal(other VersionedState) bool {
	return v.Version == other.Version &&
		v.Signature == other.Signature &&
		v.ChatState.Equal(other.ChatState) &&
		v.AuxiliaryState.Equal(other.AuxiliaryState)
}
