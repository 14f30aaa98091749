package replay

import (
	"io"
	"sync"
	"time"

	"github.com/pusher/chatkit-go/subscription"
	"github.com/pusher/chatkit-go/wire"
)

// Recorder wraps a transport and writes every callback it delivers as a
// framed record, so the session can be replayed later.
type Recorder struct {
	inner subscription.Transport
	now   func() time.Time

	mu    sync.Mutex
	enc   *wire.FrameEncoder
	count int
	err   error
}

var _ subscription.Transport = (*Recorder)(nil)

// NewRecorder records callbacks of inner to w.
func NewRecorder(inner subscription.Transport, w io.Writer) *Recorder {
	return &Recorder{inner: inner, enc: wire.NewFrameEncoder(w), now: time.Now}
}

// SubscribeWithResume subscribes on the inner transport and records each
// callback before forwarding it.
func (r *Recorder) SubscribeWithResume(path string, h subscription.Handlers) subscription.Handle {
	return r.inner.SubscribeWithResume(path, subscription.Handlers{
		OnEvent: func(id string, headers map[string]string, body []byte) {
			r.write(wire.Record{Kind: wire.RecordEvent, EventID: id, Headers: headers, Body: body})
			h.OnEvent(id, headers, body)
		},
		OnEnd: func(status int, headers map[string]string, body []byte) {
			r.write(wire.Record{Kind: wire.RecordEnd, StatusCode: status, Headers: headers, Body: body})
			h.OnEnd(status, headers, body)
		},
		OnError: func(err error) {
			r.write(wire.Record{Kind: wire.RecordError, Error: err.Error()})
			h.OnError(err)
		},
	})
}

func (r *Recorder) write(rec wire.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	rec.ReceivedAt = r.now().UTC()
	if err := r.enc.WriteRecord(rec); err != nil {
		r.err = err
		return
	}
	r.count++
}

// Count returns the number of records written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Err returns the first write error, after which recording stops.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
