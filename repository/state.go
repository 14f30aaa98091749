// Package repository exposes observable projections of the store.
//
// A repository composes a buffer (completeness gate), a connectivity
// monitor, a filter and a transformer into a single public state machine:
// initializing, connected, degraded or closed.
package repository

import (
	"fmt"

	"github.com/pusher/chatkit-go/model"
	"github.com/pusher/chatkit-go/state"
)

// Kind is the top-level repository state.
type Kind int

const (
	Initializing Kind = iota
	Connected
	Degraded
	Closed
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
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

// State is the public state of a joined rooms repository.
//
//   - Initializing: Err may be set; Rooms is nil.
//   - Connected: Rooms and ChangeReason are set.
//   - Degraded: Rooms, Err and ChangeReason are set.
//   - Closed: Err may be set; Rooms is nil.
type State struct {
	Kind         Kind
	Rooms        []model.Room
	Err          error
	ChangeReason *ChangeReason
}

// Equal compares kind, rooms and error. The change reason describes the
// transition into a state, not the state itself, and is not compared.
func (s State) Equal(other State) bool {
	return s.Kind == other.Kind &&
		model.RoomsEqual(s.Rooms, other.Rooms) &&
		state.ErrorsEqual(s.Err, other.Err)
}

// String renders a short summary, e.g. "connected(3 rooms)".
func (s State) String() string {
	switch s.Kind {
	case Connected:
		return fmt.Sprintf("connected(%d rooms)", len(s.Rooms))
	case Degraded:
		return fmt.Sprintf("degraded(%d rooms, %v)", len(s.Rooms), s.Err)
	default:
		if s.Err != nil {
			return fmt.Sprintf("%s(%v)", s.Kind, s.Err)
		}
		return s.Kind.String()
	}
}

// merge combines buffered data with the connection state.
// data is nil while the buffer has not released a complete state.
func merge(rooms []model.Room, hasData bool, conn state.ConnectionState, reason *ChangeReason) State {
	if conn.Kind == state.Closed {
		return State{Kind: Closed, Err: conn.Err}
	}
	if !hasData {
		return State{Kind: Initializing, Err: conn.Err}
	}
	switch conn.Kind {
	case state.Connected:
		return State{Kind: Connected, Rooms: rooms, ChangeReason: reason}
	case state.Degraded:
		return State{Kind: Degraded, Rooms: rooms, Err: conn.Err, ChangeReason: reason}
	case state.Initializing:
		if conn.Err != nil {
			return State{Kind: Degraded, Rooms: rooms, Err: conn.Err, ChangeReason: reason}
		}
		return State{Kind: Connected, Rooms: rooms, ChangeReason: reason}
	case state.Closed:
		return State{Kind: Closed, Err: conn.Err}
	default:
		return State{Kind: Initializing, Err: conn.Err}
	}
}
