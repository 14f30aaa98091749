package subscription

import "sync"

// StubTransport is a Transport for tests. It records every subscribe call
// and lets the test drive the registered handlers.
type StubTransport struct {
	mu    sync.Mutex
	calls []*StubHandle

	// OnSubscribe, if set, runs inside SubscribeWithResume before it returns.
	OnSubscribe func(path string, h Handlers)
}

var _ Transport = (*StubTransport)(nil)

// StubHandle is the handle returned by StubTransport.
type StubHandle struct {
	Path     string
	Handlers Handlers

	mu    sync.Mutex
	ended int
}

// End records the call.
func (h *StubHandle) End() {
	h.mu.Lock()
	h.ended++
	h.mu.Unlock()
}

// Ended reports how many times End was called.
func (h *StubHandle) Ended() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ended
}

// SubscribeWithResume implements Transport.
func (t *StubTransport) SubscribeWithResume(path string, h Handlers) Handle {
	handle := &StubHandle{Path: path, Handlers: h}
	t.mu.Lock()
	t.calls = append(t.calls, handle)
	onSubscribe := t.OnSubscribe
	t.mu.Unlock()

	if onSubscribe != nil {
		onSubscribe(path, h)
	}
	return handle
}

// Calls returns the handles created so far, oldest first.
func (t *StubTransport) Calls() []*StubHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*StubHandle(nil), t.calls...)
}

// Last returns the most recent handle, or nil.
func (t *StubTransport) Last() *StubHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.calls) == 0 {
		return nil
	}
	return t.calls[len(t.calls)-1]
}

// Event delivers an event on the handle.
func (h *StubHandle) Event(body string) {
	h.Handlers.OnEvent("", nil, []byte(body))
}

// Error delivers a transport error on the handle.
func (h *StubHandle) Error(err error) {
	h.Handlers.OnError(err)
}

// EndStream delivers an end-of-stream on the handle.
func (h *StubHandle) EndStream(statusCode int) {
	h.Handlers.OnEnd(statusCode, nil, nil)
}

// StubDelegate is a Delegate that records what it receives.
type StubDelegate struct {
	mu     sync.Mutex
	events [][]byte
	errs   []error
}

var _ Delegate = (*StubDelegate)(nil)

// OnEvent implements Delegate.
func (d *StubDelegate) OnEvent(body []byte) {
	d.mu.Lock()
	d.events = append(d.events, body)
	d.mu.Unlock()
}

// OnError implements Delegate.
func (d *StubDelegate) OnError(err error) {
	d.mu.Lock()
	d.errs = append(d.errs, err)
	d.mu.Unlock()
}

// Events returns the bodies received so far.
func (d *StubDelegate) Events() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.events...)
}

// Errors returns the errors received so far.
func (d *StubDelegate) Errors() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]error(nil), d.errs...)
}
