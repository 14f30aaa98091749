package runtime

import (
	"errors"

	"github.com/pusher/chatkit-go/action"
	"github.com/pusher/chatkit-go/log"
	"github.com/pusher/chatkit-go/metrics"
	"github.com/pusher/chatkit-go/state"
	"github.com/pusher/chatkit-go/store"
	"github.com/pusher/chatkit-go/subscription"
	"github.com/pusher/chatkit-go/wire"
)

// StateReader exposes the latest published store state.
type StateReader interface {
	State() state.VersionedState
}

// EventDispatcher is the subscription delegate that turns a server stream
// into store actions. Every successfully decoded event becomes one action;
// subscription lifecycle changes become SubscriptionStateUpdated actions
// for typ.
type EventDispatcher struct {
	typ        state.SubscriptionType
	store      StateReader
	dispatcher store.Dispatcher
	collector  *metrics.Collector
	logger     *log.Logger
}

var _ subscription.Delegate = (*EventDispatcher)(nil)

// NewEventDispatcher creates a dispatcher for the subscription typ.
// collector and logger may be nil.
func NewEventDispatcher(typ state.SubscriptionType, s *store.Store, collector *metrics.Collector, logger *log.Logger) *EventDispatcher {
	return &EventDispatcher{
		typ:        typ,
		store:      s,
		dispatcher: s,
		collector:  collector,
		logger:     logger.With(map[string]any{"component": "dispatcher", "subscription": typ.String()}),
	}
}

// OnEvent decodes body and dispatches it. Undecodable events are counted
// and dropped; they never reach the store.
func (d *EventDispatcher) OnEvent(body []byte) {
	d.collector.IncEventsReceived()

	a, err := wire.Decode(body)
	if err != nil {
		d.collector.IncDecodeErrors()
		if wire.IsUnknownEvent(err) {
			d.logger.Debug("ignoring unknown event", map[string]any{"error": err.Error()})
		} else {
			d.logger.Warn("dropping undecodable event", map[string]any{"error": err.Error()})
		}
		d.markConnected()
		return
	}

	d.dispatcher.Dispatch(a)
	d.markConnected()
}

// OnError maps a subscription failure to a connection state.
//
//   - an end of stream or an unsubscribe closes the connection
//   - any other error degrades a connection that had been established
//   - before that, it leaves the connection initializing with the error
func (d *EventDispatcher) OnError(err error) {
	var next state.ConnectionState
	switch {
	case subscription.IsEnd(err):
		d.collector.IncSubscriptionEnds()
		next = state.ClosedState(err)
	case errors.Is(err, subscription.ErrUnsubscribeCalledWhileSubscribing):
		next = state.ClosedState(nil)
	default:
		d.collector.IncSubscriptionErrors()
		switch d.current().Kind {
		case state.Connected, state.Degraded:
			next = state.DegradedState(err)
		default:
			next = state.InitializingState(err)
		}
	}
	d.logger.Info("connection state changed", map[string]any{"state": next.String()})
	d.update(next)
}

// Closed records a deliberate shutdown.
func (d *EventDispatcher) Closed() {
	d.update(state.ClosedState(nil))
}

func (d *EventDispatcher) markConnected() {
	if d.current().Kind == state.Connected {
		return
	}
	d.update(state.ConnectedState())
}

func (d *EventDispatcher) current() state.ConnectionState {
	c, ok := d.store.State().AuxiliaryState[d.typ]
	if !ok {
		return state.InitializingState(nil)
	}
	return c
}

func (d *EventDispatcher) update(c state.ConnectionState) {
	d.dispatcher.Dispatch(action.SubscriptionStateUpdated{Type: d.typ, State: c})
}
