// Package fetch retrieves entities that events reference but do not carry,
// such as the creator of a room the current user was added to.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pusher/chatkit-go/iox"
	"github.com/pusher/chatkit-go/types"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// maxBodySize bounds a user response.
const maxBodySize = 1 << 20

// ErrUserNotFound is returned when the service has no such user.
var ErrUserNotFound = errors.New("user not found")

// Fetcher retrieves users by identifier.
type Fetcher interface {
	FetchUser(ctx context.Context, id string) (types.User, error)
}

// Config configures the HTTP fetcher.
type Config struct {
	// BaseURL is the instance URL; users are read from BaseURL/users/{id} (required).
	BaseURL string
	// Token is sent as a bearer token, if set.
	Token string
	// Headers are custom HTTP headers added to each request.
	Headers map[string]string
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure (default 3).
	Retries int
}

// HTTPFetcher reads users from the chat service's REST API.
type HTTPFetcher struct {
	config Config
	client *http.Client
}

var _ Fetcher = (*HTTPFetcher)(nil)

// New creates an HTTP fetcher from the given config.
// Returns an error if the base URL is empty or malformed.
func New(cfg Config) (*HTTPFetcher, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("fetcher requires a base URL")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("fetcher: invalid base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	return &HTTPFetcher{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// FetchUser GETs one user. Retries with exponential backoff on 5xx
// responses and network errors; 4xx responses fail immediately, and 404
// maps to ErrUserNotFound.
func (f *HTTPFetcher) FetchUser(ctx context.Context, id string) (types.User, error) {
	if id == "" {
		return types.User{}, errors.New("fetch: empty user id")
	}
	endpoint := strings.TrimRight(f.config.BaseURL, "/") + "/users/" + url.PathEscape(id)

	var lastErr error
	attempts := 1 + f.config.Retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return types.User{}, fmt.Errorf("fetch: context canceled: %w", err)
		}
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return types.User{}, fmt.Errorf("fetch: context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		user, err := f.doRequest(ctx, endpoint)
		if err == nil {
			if user.ID != id {
				return types.User{}, fmt.Errorf("fetch: asked for user %q, got %q", id, user.ID)
			}
			return user, nil
		}
		lastErr = err

		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 {
			if statusErr.Code == http.StatusNotFound {
				return types.User{}, fmt.Errorf("fetch: user %q: %w", id, ErrUserNotFound)
			}
			return types.User{}, fmt.Errorf("fetch: non-retriable error: %w", err)
		}
	}

	return types.User{}, fmt.Errorf("fetch: failed after %d attempts: %w", attempts, lastErr)
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

func (f *HTTPFetcher) doRequest(ctx context.Context, endpoint string) (types.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.User{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range f.config.Headers {
		req.Header.Set(k, v)
	}
	if f.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.config.Token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return types.User{}, fmt.Errorf("request failed: %w", err)
	}
	defer iox.DrainClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return types.User{}, &StatusError{Code: resp.StatusCode}
	}

	var user types.User
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&user); err != nil {
		return types.User{}, fmt.Errorf("decode user: %w", err)
	}
	return user, nil
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Placeholder fabricates a user named after its identifier. It lets a
// recording whose rooms reference unknown users still reach a complete
// state when no user service is reachable.
type Placeholder struct{}

var _ Fetcher = Placeholder{}

// FetchUser returns a user whose name is its identifier.
func (Placeholder) FetchUser(_ context.Context, id string) (types.User, error) {
	return types.User{ID: id, Name: id}, nil
}
