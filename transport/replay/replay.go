// Package replay plays captured transport callbacks back as a live
// subscription, and captures them from a live transport.
package replay

import (
	"errors"
	"sync"
	"time"

	"github.com/pusher/chatkit-go/log"
	"github.com/pusher/chatkit-go/subscription"
	"github.com/pusher/chatkit-go/wire"
)

// Transport replays one recording to every subscription it opens.
type Transport struct {
	records []wire.Record
	// Pace, if positive, sleeps between records.
	pace   time.Duration
	logger *log.Logger

	finished     chan struct{}
	finishedOnce sync.Once
}

var _ subscription.Transport = (*Transport)(nil)

// Option configures a replay Transport.
type Option func(*Transport)

// WithPace delays each record by d.
func WithPace(d time.Duration) Option {
	return func(t *Transport) { t.pace = d }
}

// WithLogger sets the logger. A nil logger is silent.
func WithLogger(l *log.Logger) Option {
	return func(t *Transport) { t.logger = l.With(map[string]any{"component": "replay"}) }
}

// New creates a replay transport over records.
func New(records []wire.Record, opts ...Option) *Transport {
	t := &Transport{records: records, finished: make(chan struct{})}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SubscribeWithResume delivers the recording on a new goroutine. A recording
// without an end record leaves the stream open until End.
func (t *Transport) SubscribeWithResume(path string, h subscription.Handlers) subscription.Handle {
	handle := &Handle{done: make(chan struct{}), stop: make(chan struct{})}
	go func() {
		defer close(handle.done)
		defer t.finishedOnce.Do(func() { close(t.finished) })
		t.logger.Debug("replaying", map[string]any{"path": path, "records": len(t.records)})
		for i, rec := range t.records {
			if i > 0 && t.pace > 0 {
				select {
				case <-handle.stop:
					return
				case <-time.After(t.pace):
				}
			}
			if handle.isEnded() {
				return
			}
			switch rec.Kind {
			case wire.RecordEvent:
				h.OnEvent(rec.EventID, rec.Headers, rec.Body)
			case wire.RecordError:
				h.OnError(errors.New(rec.Error))
			case wire.RecordEnd:
				h.OnEnd(rec.StatusCode, rec.Headers, rec.Body)
				return
			default:
				t.logger.Warn("skipping record of unknown kind", map[string]any{"kind": string(rec.Kind), "index": i})
			}
		}
	}()
	return handle
}

// Finished is closed once the first playback has delivered every record or
// was ended.
func (t *Transport) Finished() <-chan struct{} {
	return t.finished
}

// Handle is a replaying subscription.
type Handle struct {
	done chan struct{}
	stop chan struct{}
	once sync.Once
}

var _ subscription.Handle = (*Handle)(nil)

// End stops delivery after the record in flight.
func (h *Handle) End() {
	h.once.Do(func() { close(h.stop) })
}

// Done is closed once every record has been delivered or End was called.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) isEnded() bool {
	select {
	case <-h.stop:
		return true
	default:
		return false
	}
}
