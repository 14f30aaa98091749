package fetch

import (
	"context"
	"fmt"
	"sync"

	"github.com/pusher/chatkit-go/types"
)

// StubFetcher serves users from a map and records every call.
// Unknown ids fail with ErrUserNotFound unless Err is set.
type StubFetcher struct {
	// Users are the users the stub knows.
	Users map[string]types.User
	// Err, if set, is returned for every call.
	Err error

	mu    sync.Mutex
	calls []string
}

var _ Fetcher = (*StubFetcher)(nil)

// FetchUser implements Fetcher.
func (s *StubFetcher) FetchUser(ctx context.Context, id string) (types.User, error) {
	s.mu.Lock()
	s.calls = append(s.calls, id)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return types.User{}, err
	}
	if s.Err != nil {
		return types.User{}, s.Err
	}
	u, ok := s.Users[id]
	if !ok {
		return types.User{}, fmt.Errorf("stub: user %q: %w", id, ErrUserNotFound)
	}
	return u, nil
}

// Calls returns the ids requested so far, in order.
func (s *StubFetcher) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}
