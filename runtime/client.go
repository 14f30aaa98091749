// Package runtime wires the state pipeline to a live subscription.
//
// A Client owns one Store and the user subscription feeding it. Everything
// it needs is passed in through Dependencies; there are no package globals.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pusher/chatkit-go/adapter"
	"github.com/pusher/chatkit-go/fetch"
	"github.com/pusher/chatkit-go/log"
	"github.com/pusher/chatkit-go/metrics"
	"github.com/pusher/chatkit-go/repository"
	"github.com/pusher/chatkit-go/state"
	"github.com/pusher/chatkit-go/store"
	"github.com/pusher/chatkit-go/subscription"
)

// DefaultUserPath is the path of the user subscription.
const DefaultUserPath = "/users"

// ErrClientClosed is returned by operations on a closed Client.
var ErrClientClosed = errors.New("client is closed")

// Dependencies are the collaborators a Client is built from.
type Dependencies struct {
	// Transport opens subscriptions (required).
	Transport subscription.Transport
	// Fetcher supplies users referenced by events. If nil, unknown users
	// are filled in with fetch.Placeholder.
	Fetcher fetch.Fetcher
	// Adapter, if set, receives a notification for every joined-rooms state.
	// The client closes it once, from Close.
	Adapter adapter.Adapter
	// Logger is an optional logger. If nil, no logging is emitted.
	Logger *log.Logger
	// Collector is an optional metrics collector.
	Collector *metrics.Collector
}

// Config configures a Client.
type Config struct {
	InstanceLocator string
	// UserPath is the user subscription path (default "/users").
	UserPath string
	// FetchTimeout bounds each user fetch (default 10s).
	FetchTimeout time.Duration
}

// Client is one connected chat session.
type Client struct {
	id     string
	config Config
	deps   Dependencies
	logger *log.Logger

	store        *store.Store
	manager      *subscription.Manager
	dispatcher   *EventDispatcher
	supplementer *UserSupplementer

	mu        sync.Mutex
	release   func()
	repos     []*repository.JoinedRoomsRepository
	notifiers []*Notifier
	closed    bool
}

// NewClient builds a client. Nothing is subscribed until Connect.
func NewClient(cfg Config, deps Dependencies) (*Client, error) {
	if deps.Transport == nil {
		return nil, errors.New("client requires a transport")
	}
	if cfg.UserPath == "" {
		cfg.UserPath = DefaultUserPath
	}

	id := uuid.NewString()
	logger := deps.Logger.With(map[string]any{"client_id": id})

	c := &Client{
		id:      id,
		config:  cfg,
		deps:    deps,
		logger:  logger,
		store:   store.New(logger, deps.Collector),
		manager: subscription.NewManager(deps.Transport, logger),
	}
	c.dispatcher = NewEventDispatcher(state.UserSubscriptionType(), c.store, deps.Collector, logger)
	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = fetch.Placeholder{}
	}
	c.supplementer = NewUserSupplementer(fetcher, c.store, cfg.FetchTimeout, deps.Collector, logger)
	c.store.Register(c.supplementer)
	return c, nil
}

// ID returns the client's unique identifier.
func (c *Client) ID() string { return c.id }

// Store returns the client's store.
func (c *Client) Store() *store.Store { return c.store }

// Connect subscribes to the user subscription and waits for its first
// event. Calling Connect again after success returns nil immediately.
// If ctx ends first the subscription keeps trying; Close stops it.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.release != nil {
		c.mu.Unlock()
		return c.waitSubscribed(ctx)
	}
	result := make(chan error, 1)
	release := c.manager.Acquire(c.config.UserPath, c.dispatcher, func(err error) {
		result <- err
	})
	c.release = release
	c.mu.Unlock()

	c.logger.Info("connecting", map[string]any{"path": c.config.UserPath})

	select {
	case err := <-result:
		if err != nil {
			c.mu.Lock()
			if !c.closed {
				c.release = nil
			}
			c.mu.Unlock()
			release()
			return fmt.Errorf("connect: %w", err)
		}
		c.logger.Info("connected", nil)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) waitSubscribed(ctx context.Context) error {
	sub, ok := c.manager.Subscription(c.config.UserPath)
	if !ok {
		return errors.New("connect: subscription is gone")
	}
	result := make(chan error, 1)
	sub.Subscribe(func(err error) { result <- err })
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// JoinedRooms builds a repository over the client's store. When an adapter
// is configured, the repository's states are also published through it.
// Repositories are closed with the client.
func (c *Client) JoinedRooms() (*repository.JoinedRoomsRepository, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClientClosed
	}

	repo := repository.NewJoinedRoomsRepository(c.store, repository.Options{
		Logger:    c.logger,
		Collector: c.deps.Collector,
	})
	c.repos = append(c.repos, repo)

	if c.deps.Adapter != nil {
		c.notifiers = append(c.notifiers, NewNotifier(repo, c.deps.Adapter, NotifierConfig{
			ClientID:        c.id,
			InstanceLocator: c.config.InstanceLocator,
			Logger:          c.logger,
		}))
	}
	return repo, nil
}

// WaitIdle blocks until user fetches started so far have completed.
func (c *Client) WaitIdle(ctx context.Context) error {
	return c.supplementer.Wait(ctx)
}

// Close unsubscribes, marks the connection closed, stops fetches and closes
// every repository and notifier. The adapter is closed last, after every
// notifier has drained. Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	release := c.release
	c.release = nil
	repos := c.repos
	notifiers := c.notifiers
	c.mu.Unlock()

	if release != nil {
		release()
	}
	c.dispatcher.Closed()
	c.supplementer.Close()
	c.store.Unregister(c.supplementer)

	var errs []error
	for _, n := range notifiers {
		n.Close()
		if st := n.Stats(); st.Failed > 0 || st.Dropped > 0 {
			c.logger.Warn("notifier lost events", map[string]any{"failed": st.Failed, "dropped": st.Dropped})
		}
	}
	if c.deps.Adapter != nil {
		if err := c.deps.Adapter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close adapter: %w", err))
		}
	}
	for _, r := range repos {
		r.Close()
	}
	c.logger.Info("client closed", nil)
	return errors.Join(errs...)
}
