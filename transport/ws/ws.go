// Package ws implements a resumable subscription transport over WebSocket.
//
// Each text message is a JSON array in the subscription framing:
//
//	[0, ""]                            keep-alive
//	[1, "<event id>", {headers}, body] event
//	[255, <status>, {headers}, body]   end of stream
//
// When the connection drops without an end-of-stream, the transport redials
// with exponential backoff and sends the last event id it saw in the
// Last-Event-ID header so the server can resume the stream.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/pusher/chatkit-go/iox"
	"github.com/pusher/chatkit-go/log"
	"github.com/pusher/chatkit-go/subscription"
)

// Message types of the subscription framing.
const (
	MessageKeepAlive   = 0
	MessageEvent       = 1
	MessageEndOfStream = 255
)

// LastEventIDHeader carries the resume token on redial.
const LastEventIDHeader = "Last-Event-ID"

// Config configures the transport.
type Config struct {
	// URL is the ws:// or wss:// base URL; subscription paths are appended.
	URL string
	// Token is sent as a bearer token, if set.
	Token string
	// Headers are custom HTTP headers added to each handshake.
	Headers map[string]string
	// HandshakeTimeout bounds each dial (default 10s).
	HandshakeTimeout time.Duration
	// ReadLimit is the maximum message size in bytes (default 1 MiB).
	ReadLimit int64
	// Resume redials after an unexpected disconnect (default true).
	Resume bool
	// MaxRetries caps consecutive failed dials; zero means unlimited.
	MaxRetries int
	// InitialBackoff is the delay before the first redial (default 500ms).
	InitialBackoff time.Duration
	// MaxBackoff caps the redial delay (default 30s).
	MaxBackoff time.Duration
}

// DefaultConfig returns sensible defaults. URL must still be set.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		ReadLimit:        1 << 20,
		Resume:           true,
		InitialBackoff:   500 * time.Millisecond,
		MaxBackoff:       30 * time.Second,
	}
}

// Transport opens WebSocket subscriptions.
type Transport struct {
	config Config
	logger *log.Logger
}

var _ subscription.Transport = (*Transport)(nil)

// New validates cfg and fills unset durations with defaults.
// logger may be nil.
func New(cfg Config, logger *log.Logger) (*Transport, error) {
	if cfg.URL == "" {
		return nil, errors.New("ws transport requires a URL")
	}
	if !strings.HasPrefix(cfg.URL, "ws://") && !strings.HasPrefix(cfg.URL, "wss://") &&
		!strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return nil, fmt.Errorf("ws transport URL must be ws(s):// or http(s)://, got %q", cfg.URL)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must be >= 0, got %d", cfg.MaxRetries)
	}
	defaults := DefaultConfig()
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = defaults.ReadLimit
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaults.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaults.MaxBackoff
	}
	return &Transport{
		config: cfg,
		logger: logger.With(map[string]any{"component": "ws"}),
	}, nil
}

// SubscribeWithResume dials path in the background and returns immediately.
func (t *Transport) SubscribeWithResume(path string, h subscription.Handlers) subscription.Handle {
	ctx, cancel := context.WithCancel(context.Background())
	handle := &Handle{cancel: cancel, done: make(chan struct{})}
	url := strings.TrimRight(t.config.URL, "/") + "/" + strings.TrimLeft(path, "/")

	go func() {
		defer close(handle.done)
		t.run(ctx, url, handle, h)
	}()
	return handle
}

// Handle is an active WebSocket subscription.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	ended  bool
	lastID string
}

var _ subscription.Handle = (*Handle)(nil)

// End cancels the subscription without waiting for it to stop.
func (h *Handle) End() {
	h.mu.Lock()
	h.ended = true
	h.mu.Unlock()
	h.cancel()
}

// Done is closed once the background connection loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// LastEventID returns the resume token of the last delivered event.
func (h *Handle) LastEventID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastID
}

func (h *Handle) isEnded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ended
}

func (t *Transport) run(ctx context.Context, url string, handle *Handle, h subscription.Handlers) {
	failures := 0
	for {
		conn, err := t.dial(ctx, url, handle.LastEventID())
		if err != nil {
			if ctx.Err() != nil || handle.isEnded() {
				return
			}
			var rejected *HandshakeError
			if errors.As(err, &rejected) {
				h.OnEnd(rejected.StatusCode, rejected.Headers, nil)
				return
			}
			h.OnError(err)
			failures++
			if !t.config.Resume || (t.config.MaxRetries > 0 && failures > t.config.MaxRetries) {
				return
			}
			if !t.sleep(ctx, failures) {
				return
			}
			continue
		}
		failures = 0

		resume, err := t.read(ctx, conn, handle, h)
		if !resume {
			return
		}
		if ctx.Err() != nil || handle.isEnded() {
			return
		}
		h.OnError(err)
		if !t.config.Resume {
			return
		}
		t.logger.Info("resuming subscription", map[string]any{
			"url":           url,
			"last_event_id": handle.LastEventID(),
		})
		if !t.sleep(ctx, 1) {
			return
		}
	}
}

// HandshakeError is returned when the server rejects the upgrade with an
// HTTP status. It is reported to the subscription as an end of stream.
type HandshakeError struct {
	StatusCode int
	Headers    map[string]string
	Err        error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake rejected with status %d: %v", e.StatusCode, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

func (t *Transport) dial(ctx context.Context, url, lastEventID string) (*websocket.Conn, error) {
	header := http.Header{}
	for k, v := range t.config.Headers {
		header.Set(k, v)
	}
	if t.config.Token != "" {
		header.Set("Authorization", "Bearer "+t.config.Token)
	}
	if lastEventID != "" {
		header.Set(LastEventIDHeader, lastEventID)
	}

	dialCtx, cancel := context.WithTimeout(ctx, t.config.HandshakeTimeout)
	defer cancel()

	conn, resp, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{HTTPHeader: header})
	if resp != nil && resp.Body != nil {
		iox.DrainClose(resp.Body)
	}
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, &HandshakeError{StatusCode: resp.StatusCode, Headers: flatten(resp.Header), Err: err}
		}
		return nil, fmt.Errorf("ws: dial %s: %w", url, err)
	}
	conn.SetReadLimit(t.config.ReadLimit)
	return conn, nil
}

// read delivers messages until the connection ends. It returns resume=true
// with the cause when the stream dropped without an end of stream.
func (t *Transport) read(ctx context.Context, conn *websocket.Conn, handle *Handle, h subscription.Handlers) (resume bool, err error) {
	defer func() { _ = conn.CloseNow() }()

	for {
		mt, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				var ce websocket.CloseError
				errors.As(err, &ce)
				h.OnEnd(0, nil, []byte(ce.Reason))
				return false, nil
			}
			return true, fmt.Errorf("ws: connection lost: %w", err)
		}
		if mt != websocket.MessageText && mt != websocket.MessageBinary {
			continue
		}

		msg, err := ParseMessage(data)
		if err != nil {
			t.logger.Warn("dropping malformed message", map[string]any{"error": err.Error()})
			continue
		}
		if handle.isEnded() {
			return false, nil
		}

		switch msg.Type {
		case MessageKeepAlive:
		case MessageEvent:
			handle.mu.Lock()
			if msg.EventID != "" {
				handle.lastID = msg.EventID
			}
			handle.mu.Unlock()
			h.OnEvent(msg.EventID, msg.Headers, msg.Body)
		case MessageEndOfStream:
			_ = conn.Close(websocket.StatusNormalClosure, "end of stream")
			h.OnEnd(msg.StatusCode, msg.Headers, msg.Body)
			return false, nil
		}
	}
}

func (t *Transport) sleep(ctx context.Context, attempt int) bool {
	backoff := t.config.InitialBackoff * time.Duration(1<<uint(min(attempt-1, 16)))
	if backoff > t.config.MaxBackoff {
		backoff = t.config.MaxBackoff
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(backoff):
		return true
	}
}

// Message is one decoded frame of the subscription framing.
type Message struct {
	Type       int
	EventID    string
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// ParseMessage decodes a subscription frame.
func ParseMessage(data []byte) (Message, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return Message{}, fmt.Errorf("message is not a JSON array: %w", err)
	}
	if len(parts) == 0 {
		return Message{}, errors.New("message is empty")
	}

	var msg Message
	if err := json.Unmarshal(parts[0], &msg.Type); err != nil {
		return Message{}, fmt.Errorf("message type: %w", err)
	}

	switch msg.Type {
	case MessageKeepAlive:
		return msg, nil
	case MessageEvent:
		if len(parts) != 4 {
			return Message{}, fmt.Errorf("event message has %d elements, want 4", len(parts))
		}
		if err := json.Unmarshal(parts[1], &msg.EventID); err != nil {
			return Message{}, fmt.Errorf("event id: %w", err)
		}
	case MessageEndOfStream:
		if len(parts) != 4 {
			return Message{}, fmt.Errorf("end of stream message has %d elements, want 4", len(parts))
		}
		if err := json.Unmarshal(parts[1], &msg.StatusCode); err != nil {
			return Message{}, fmt.Errorf("status code: %w", err)
		}
	default:
		return Message{}, fmt.Errorf("unknown message type %d", msg.Type)
	}

	if err := json.Unmarshal(parts[2], &msg.Headers); err != nil {
		return Message{}, fmt.Errorf("headers: %w", err)
	}
	msg.Body = []byte(parts[3])
	return msg, nil
}

// EncodeEvent builds an event frame. Used by test servers and fixtures.
func EncodeEvent(eventID string, headers map[string]string, body json.RawMessage) ([]byte, error) {
	if headers == nil {
		headers = map[string]string{}
	}
	return json.Marshal([]any{MessageEvent, eventID, headers, body})
}

// EncodeEndOfStream builds an end-of-stream frame.
func EncodeEndOfStream(statusCode int, headers map[string]string, body json.RawMessage) ([]byte, error) {
	if headers == nil {
		headers = map[string]string{}
	}
	if body == nil {
		body = json.RawMessage("{}")
	}
	return json.Marshal([]any{MessageEndOfStream, statusCode, headers, body})
}

func flatten(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
