// Package webhook POSTs rooms-changed events to an HTTP endpoint.
//
// Every delivery carries a delivery id that stays the same across retries.
// When a secret is configured the body is signed with HMAC-SHA256.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pusher/chatkit-go/adapter"
	"github.com/pusher/chatkit-go/iox"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 3
	DefaultBackoff = 500 * time.Millisecond
)

// Delivery headers.
const (
	DeliveryHeader  = "X-Chatkit-Delivery"
	SignatureHeader = "X-Chatkit-Signature"
)

// Config configures the webhook adapter.
type Config struct {
	// URL is the HTTP endpoint to POST to (required).
	URL string
	// Headers are custom HTTP headers added to each request.
	Headers map[string]string
	// Secret, if set, signs each body; the hex HMAC-SHA256 is sent as
	// "sha256=<hex>" in SignatureHeader.
	Secret string
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration
	// Retries is how many more times a failed delivery is sent (default 3).
	Retries int
	// Backoff is the wait before the first retry; it doubles each time
	// (default 500ms).
	Backoff time.Duration
}

// Adapter publishes rooms-changed events via HTTP POST.
type Adapter struct {
	config Config
	client *http.Client
}

// New creates a webhook adapter from cfg.
func New(cfg Config) (*Adapter, error) {
	switch {
	case cfg.URL == "":
		return nil, errors.New("webhook adapter requires a URL")
	case cfg.Retries < 0:
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	return &Adapter{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Publish POSTs event as JSON. Network errors and temporary statuses (see
// StatusError.Temporary) are retried up to Config.Retries times under one
// delivery id; any other status fails at once.
func (a *Adapter) Publish(ctx context.Context, event *adapter.RoomsChangedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}
	delivery := uuid.NewString()

	wait := a.config.Backoff
	for retry := 0; ; retry++ {
		err = a.post(ctx, delivery, body)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("webhook: delivery %s: %w", delivery, ctx.Err())
		}
		var status *StatusError
		if errors.As(err, &status) && !status.Temporary() {
			return fmt.Errorf("webhook: delivery %s rejected: %w", delivery, err)
		}
		if retry == a.config.Retries {
			return fmt.Errorf("webhook: delivery %s gave up after %d attempts: %w", delivery, retry+1, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("webhook: delivery %s: %w", delivery, ctx.Err())
		case <-timer.C:
		}
		wait *= 2
	}
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Temporary reports whether the endpoint may accept the same delivery
// later: server errors, 408 and 429.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (a *Adapter) post(ctx context.Context, delivery string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range a.config.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set(DeliveryHeader, delivery)
	if a.config.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(a.config.Secret, body))
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer iox.DrainClose(resp.Body)
	if resp.StatusCode/100 != 2 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
