// Package wire decodes subscription events into actions and frames
// recorded subscription traffic.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pusher/chatkit-go/action"
	"github.com/pusher/chatkit-go/types"
)

// DecodeErrorKind classifies event decoding errors.
type DecodeErrorKind int

const (
	// DecodeErrorEnvelope indicates the envelope itself is malformed.
	DecodeErrorEnvelope DecodeErrorKind = iota
	// DecodeErrorPayload indicates the data field does not match the event.
	DecodeErrorPayload
	// DecodeErrorUnknownEvent indicates an event name this client ignores.
	DecodeErrorUnknownEvent
)

// String returns the lowercase name of the kind.
func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeErrorEnvelope:
		return "envelope"
	case DecodeErrorPayload:
		return "payload"
	case DecodeErrorUnknownEvent:
		return "unknown_event"
	default:
		return "unknown"
	}
}

// DecodeError represents an event that could not become an action.
type DecodeError struct {
	Kind      DecodeErrorKind
	EventName types.EventName
	Msg       string
	Err       error
}

func (e *DecodeError) Error() string {
	prefix := e.Msg
	if e.EventName != "" {
		prefix = fmt.Sprintf("%s (%s)", e.Msg, e.EventName)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return prefix
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsUnknownEvent returns true if err is a DecodeError for an unhandled event
// name. Callers typically skip such events quietly.
func IsUnknownEvent(err error) bool {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr.Kind == DecodeErrorUnknownEvent
	}
	return false
}

// DecodeEnvelope decodes the outer event envelope.
func DecodeEnvelope(body []byte) (types.EventEnvelope, error) {
	var env types.EventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return types.EventEnvelope{}, &DecodeError{
			Kind: DecodeErrorEnvelope,
			Msg:  "failed to decode event envelope",
			Err:  err,
		}
	}
	if env.EventName == "" {
		return types.EventEnvelope{}, &DecodeError{
			Kind: DecodeErrorEnvelope,
			Msg:  "event envelope missing event_name",
		}
	}
	return env, nil
}

// Decode decodes a raw event body into an action.
func Decode(body []byte) (action.Action, error) {
	env, err := DecodeEnvelope(body)
	if err != nil {
		return nil, err
	}
	return DecodeAction(env)
}

// DecodeAction decodes the envelope's data according to its event name.
func DecodeAction(env types.EventEnvelope) (action.Action, error) {
	if !env.EventName.IsKnown() {
		return nil, &DecodeError{
			Kind:      DecodeErrorUnknownEvent,
			EventName: env.EventName,
			Msg:       "unhandled event",
		}
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, payloadError(env.EventName, "event data is missing", nil)
	}

	switch env.EventName {
	case types.EventNameInitialState:
		var p types.InitialStatePayload
		if err := unmarshal(env.EventName, data, &p); err != nil {
			return nil, err
		}
		if p.CurrentUser.ID == "" {
			return nil, payloadError(env.EventName, "current_user.id is required", nil)
		}
		for _, r := range p.Rooms {
			if r.ID == "" {
				return nil, payloadError(env.EventName, "room id is required", nil)
			}
		}
		return action.InitialState(p), nil

	case types.EventNameAddedToRoom:
		var p types.AddedToRoomPayload
		if err := unmarshal(env.EventName, data, &p); err != nil {
			return nil, err
		}
		if p.Room.ID == "" {
			return nil, payloadError(env.EventName, "room.id is required", nil)
		}
		return action.AddedToRoom(p), nil

	case types.EventNameRemovedFromRoom:
		var p types.RemovedFromRoomPayload
		if err := unmarshal(env.EventName, data, &p); err != nil {
			return nil, err
		}
		if p.RoomID == "" {
			return nil, payloadError(env.EventName, "room_id is required", nil)
		}
		return action.RemovedFromRoom(p), nil

	case types.EventNameRoomUpdated:
		var p types.RoomUpdatedPayload
		if err := unmarshal(env.EventName, data, &p); err != nil {
			return nil, err
		}
		if p.Room.ID == "" {
			return nil, payloadError(env.EventName, "room.id is required", nil)
		}
		return action.RoomUpdated(p), nil

	case types.EventNameRoomDeleted:
		var p types.RoomDeletedPayload
		if err := unmarshal(env.EventName, data, &p); err != nil {
			return nil, err
		}
		if p.RoomID == "" {
			return nil, payloadError(env.EventName, "room_id is required", nil)
		}
		return action.RoomDeleted(p), nil

	case types.EventNameReadStateUpdated:
		var p types.ReadStateUpdatedPayload
		if err := unmarshal(env.EventName, data, &p); err != nil {
			return nil, err
		}
		if p.ReadState.RoomID == "" {
			return nil, payloadError(env.EventName, "read_state.room_id is required", nil)
		}
		return action.ReadStateUpdated(p), nil

	default:
		return nil, &DecodeError{
			Kind:      DecodeErrorUnknownEvent,
			EventName: env.EventName,
			Msg:       "unhandled event",
		}
	}
}

func unmarshal(name types.EventName, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return payloadError(name, "failed to decode event data", err)
	}
	return nil
}

func payloadError(name types.EventName, msg string, err error) *DecodeError {
	return &DecodeError{Kind: DecodeErrorPayload, EventName: name, Msg: msg, Err: err}
}
