package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pusher/chatkit-go/action"
	"github.com/pusher/chatkit-go/fetch"
	"github.com/pusher/chatkit-go/log"
	"github.com/pusher/chatkit-go/metrics"
	"github.com/pusher/chatkit-go/state"
	"github.com/pusher/chatkit-go/store"
	"github.com/pusher/chatkit-go/types"
)

// DefaultFetchTimeout bounds a single user fetch.
const DefaultFetchTimeout = 10 * time.Second

const (
	// DefaultFetchAttempts is how many times a transiently failing user
	// fetch is tried before a placeholder is used.
	DefaultFetchAttempts = 3
	// DefaultFetchRetryDelay is the wait before the second attempt. It
	// doubles for each further attempt.
	DefaultFetchRetryDelay = time.Second
)

// UserSupplementer is a store listener that fetches users the state refers
// to but does not hold, and dispatches them as UsersFetched. The current
// user and the creator of every joined room are considered.
//
// Each identifier is fetched at most once at a time. A user the service
// reports as not found, or that still fails after DefaultFetchAttempts, is
// dispatched as a fetch.Placeholder record so that states waiting on it in
// a buffer are released.
type UserSupplementer struct {
	fetcher    fetch.Fetcher
	dispatcher store.Dispatcher
	timeout    time.Duration
	attempts   int
	retryDelay time.Duration
	collector  *metrics.Collector
	logger     *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

var _ store.Listener = (*UserSupplementer)(nil)

// NewUserSupplementer creates a supplementer. It does nothing until
// registered with a store.
func NewUserSupplementer(fetcher fetch.Fetcher, dispatcher store.Dispatcher, timeout time.Duration, collector *metrics.Collector, logger *log.Logger) *UserSupplementer {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &UserSupplementer{
		fetcher:    fetcher,
		dispatcher: dispatcher,
		timeout:    timeout,
		attempts:   DefaultFetchAttempts,
		retryDelay: DefaultFetchRetryDelay,
		collector:  collector,
		logger:     logger.With(map[string]any{"component": "supplementer"}),
		ctx:        ctx,
		cancel:     cancel,
		inflight:   make(map[string]struct{}),
	}
}

// DidUpdateState starts fetching any user s refers to but lacks.
func (u *UserSupplementer) DidUpdateState(s state.VersionedState) {
	wanted := MissingUsers(s.ChatState)
	if len(wanted) == 0 {
		return
	}

	u.mu.Lock()
	if u.ctx.Err() != nil {
		u.mu.Unlock()
		return
	}
	var ids []string
	for _, id := range wanted {
		if _, busy := u.inflight[id]; busy {
			continue
		}
		u.inflight[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		u.mu.Unlock()
		return
	}
	u.wg.Add(1)
	u.mu.Unlock()

	go u.fetchAll(ids)
}

func (u *UserSupplementer) fetchAll(ids []string) {
	defer u.wg.Done()

	var users []types.User
	placeholders := 0
	for _, id := range ids {
		user, err := u.fetch(id)
		if err != nil {
			if u.ctx.Err() != nil {
				break
			}
			user, _ = fetch.Placeholder{}.FetchUser(u.ctx, id)
			placeholders++
			u.logger.Warn("using placeholder user", map[string]any{"user_id": id, "error": err.Error()})
		}
		users = append(users, user)
	}

	if len(users) > 0 && u.ctx.Err() == nil {
		u.collector.AddUsersFetched(len(users) - placeholders)
		u.logger.Debug("users fetched", map[string]any{"count": len(users), "placeholders": placeholders})
		u.dispatcher.Dispatch(action.UsersFetched{Users: users})
	}

	u.mu.Lock()
	for _, id := range ids {
		delete(u.inflight, id)
	}
	u.mu.Unlock()
}

// fetch tries id up to u.attempts times. ErrUserNotFound ends the attempts
// early, as does Close.
func (u *UserSupplementer) fetch(id string) (types.User, error) {
	delay := u.retryDelay
	var err error
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(u.ctx, u.timeout)
		var user types.User
		user, err = u.fetcher.FetchUser(ctx, id)
		cancel()
		if err == nil {
			return user, nil
		}
		u.collector.IncUserFetchFailures()
		if errors.Is(err, fetch.ErrUserNotFound) || attempt >= u.attempts {
			return types.User{}, err
		}

		u.logger.Debug("user fetch failed, retrying", map[string]any{
			"user_id": id,
			"attempt": attempt,
			"error":   err.Error(),
		})
		select {
		case <-u.ctx.Done():
			return types.User{}, err
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// Wait blocks until every fetch started so far has finished or ctx is done.
func (u *UserSupplementer) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		u.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels in-flight fetches and waits for them to return.
func (u *UserSupplementer) Close() {
	u.mu.Lock()
	u.cancel()
	u.mu.Unlock()
	u.wg.Wait()
}

// MissingUsers returns, in first-seen order, the identifiers of users that
// chat refers to but does not hold in populated form.
func MissingUsers(chat state.ChatState) []string {
	var ids []string
	seen := make(map[string]struct{})
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if chat.CurrentUser.Kind == state.Partial {
		add(chat.CurrentUser.Identifier)
	}
	for _, roomID := range chat.JoinedRooms.Identifiers() {
		creator := chat.JoinedRooms[roomID].CreatorIdentifier
		if creator != "" && !chat.Users.Get(creator).IsPopulated() {
			add(creator)
		}
	}
	return ids
}
