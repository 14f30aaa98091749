// Package subscription implements the subscribe/resume lifecycle of one
// server stream on top of an opaque Transport.
package subscription

import (
	"sync"

	"github.com/google/uuid"

	"github.com/pusher/chatkit-go/log"
)

// Status is the lifecycle state of a Subscription.
type Status int

const (
	// NotSubscribed has no transport handle and no pending completions.
	NotSubscribed Status = iota
	// SubscribingStageOne has issued the request but holds no handle yet.
	SubscribingStageOne
	// SubscribingStageTwo holds a handle and awaits the first event.
	SubscribingStageTwo
	// Subscribed has received at least one event.
	Subscribed
)

// String returns the camelCase name of the status.
func (s Status) String() string {
	switch s {
	case NotSubscribed:
		return "notSubscribed"
	case SubscribingStageOne:
		return "subscribingStageOne"
	case SubscribingStageTwo:
		return "subscribingStageTwo"
	case Subscribed:
		return "subscribed"
	default:
		return "unknown"
	}
}

// IsSubscribing reports whether the status is either subscribing stage.
func (s Status) IsSubscribing() bool {
	return s == SubscribingStageOne || s == SubscribingStageTwo
}

// Subscription is the state machine for one path.
//
// State is mutated before the delegate or any completion is invoked, and
// callbacks are always invoked without holding the lock, so either may call
// back into the Subscription.
type Subscription struct {
	id        string
	path      string
	transport Transport
	delegate  Delegate
	logger    *log.Logger

	mu          sync.Mutex
	status      Status
	handle      Handle
	completions []Completion
	// attempt invalidates callbacks from torn-down transport handles.
	attempt uint64
}

// New creates a subscription in the NotSubscribed state. logger may be nil.
func New(path string, transport Transport, delegate Delegate, logger *log.Logger) *Subscription {
	if transport == nil || delegate == nil {
		panic("subscription: transport and delegate are required")
	}
	id := uuid.NewString()
	return &Subscription{
		id:        id,
		path:      path,
		transport: transport,
		delegate:  delegate,
		logger:    logger.With(map[string]any{"component": "subscription", "path": path, "subscription_id": id}),
	}
}

// Path returns the subscribed resource path.
func (s *Subscription) Path() string { return s.path }

// Status returns the current lifecycle state.
func (s *Subscription) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Subscribe starts the subscription if needed. completion is called once:
// immediately with nil if already subscribed, otherwise when the first event
// arrives or the attempt fails. completion may be nil.
func (s *Subscription) Subscribe(completion Completion) {
	if completion == nil {
		completion = func(error) {}
	}

	s.mu.Lock()
	switch s.status {
	case Subscribed:
		s.mu.Unlock()
		completion(nil)
		return
	case SubscribingStageOne, SubscribingStageTwo:
		s.completions = append(s.completions, completion)
		s.mu.Unlock()
		return
	case NotSubscribed:
	}

	s.attempt++
	attempt := s.attempt
	s.status = SubscribingStageOne
	s.completions = []Completion{completion}
	s.mu.Unlock()

	s.logger.Debug("subscribing", map[string]any{"attempt": attempt})
	handle := s.transport.SubscribeWithResume(s.path, s.handlers(attempt))

	s.mu.Lock()
	if s.attempt != attempt || s.status == NotSubscribed {
		// Unsubscribed, failed or ended while the request was in flight.
		s.mu.Unlock()
		handle.End()
		return
	}
	switch s.status {
	case SubscribingStageOne:
		s.status = SubscribingStageTwo
		s.handle = handle
	case Subscribed:
		if s.handle == nil {
			s.handle = handle
		}
	case NotSubscribed, SubscribingStageTwo:
	}
	s.mu.Unlock()
}

// Unsubscribe tears down any transport handle and returns to NotSubscribed.
// Pending completions fail with ErrUnsubscribeCalledWhileSubscribing.
// Unsubscribe is idempotent.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	s.attempt++
	prev := s.status
	handle := s.handle
	completions := s.completions
	s.reset()
	s.mu.Unlock()

	if handle != nil {
		handle.End()
	}
	if prev == NotSubscribed {
		return
	}
	s.logger.Debug("unsubscribed", map[string]any{"from": prev.String()})
	if prev.IsSubscribing() {
		s.delegate.OnError(ErrUnsubscribeCalledWhileSubscribing)
		fail(completions, ErrUnsubscribeCalledWhileSubscribing)
	}
}

// reset must be called with mu held.
func (s *Subscription) reset() {
	s.status = NotSubscribed
	s.handle = nil
	s.completions = nil
}

func (s *Subscription) handlers(attempt uint64) Handlers {
	return Handlers{
		OnEvent: func(_ string, _ map[string]string, body []byte) {
			s.onEvent(attempt, body)
		},
		OnEnd: func(statusCode int, headers map[string]string, body []byte) {
			s.onEnd(attempt, statusCode, headers, body)
		},
		OnError: func(err error) {
			s.onError(attempt, err)
		},
	}
}

func (s *Subscription) onEvent(attempt uint64, body []byte) {
	s.mu.Lock()
	if s.attempt != attempt {
		s.mu.Unlock()
		return
	}
	switch s.status {
	case SubscribingStageOne, SubscribingStageTwo:
		completions := s.completions
		s.completions = nil
		s.status = Subscribed
		s.mu.Unlock()

		s.logger.Info("subscribed", nil)
		s.delegate.OnEvent(body)
		for _, c := range completions {
			c(nil)
		}
	case Subscribed:
		s.mu.Unlock()
		s.delegate.OnEvent(body)
	case NotSubscribed:
		s.mu.Unlock()
		s.logger.Debug("event dropped while not subscribed", nil)
	}
}

func (s *Subscription) onError(attempt uint64, err error) {
	s.mu.Lock()
	if s.attempt != attempt {
		s.mu.Unlock()
		return
	}
	switch s.status {
	case SubscribingStageOne, SubscribingStageTwo:
		handle := s.handle
		completions := s.completions
		s.reset()
		s.mu.Unlock()

		if handle != nil {
			handle.End()
		}
		s.logger.Warn("subscribe failed", map[string]any{"error": err.Error()})
		s.delegate.OnError(err)
		fail(completions, err)
	case Subscribed:
		s.mu.Unlock()
		s.logger.Warn("subscription error", map[string]any{"error": err.Error()})
		s.delegate.OnError(err)
	case NotSubscribed:
		s.mu.Unlock()
		s.logger.Debug("error dropped while not subscribed", map[string]any{"error": err.Error()})
	}
}

func (s *Subscription) onEnd(attempt uint64, statusCode int, headers map[string]string, body []byte) {
	s.mu.Lock()
	if s.attempt != attempt {
		s.mu.Unlock()
		return
	}
	prev := s.status
	completions := s.completions
	s.reset()
	s.mu.Unlock()

	endErr := &EndError{StatusCode: statusCode, Headers: headers, Body: body}
	switch prev {
	case NotSubscribed:
		endErr.Err = ErrEndedWhileNotSubscribed
	case SubscribingStageOne, SubscribingStageTwo:
		endErr.Err = ErrEndedWhileSubscribing
	case Subscribed:
		endErr.Err = ErrEndedWhileSubscribed
	}

	s.logger.Warn("subscription ended", map[string]any{
		"from":        prev.String(),
		"status_code": statusCode,
	})
	s.delegate.OnError(endErr)
	if prev.IsSubscribing() {
		fail(completions, endErr)
	}
}

func fail(completions []Completion, err error) {
	for _, c := range completions {
		c(err)
	}
}
