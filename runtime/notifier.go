package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/pusher/chatkit-go/adapter"
	"github.com/pusher/chatkit-go/log"
	"github.com/pusher/chatkit-go/repository"
)

// DefaultNotifyQueueSize is the number of events a Notifier buffers.
const DefaultNotifyQueueSize = 64

// DefaultPublishTimeout bounds one adapter Publish.
const DefaultPublishTimeout = 30 * time.Second

// NotifierConfig configures a Notifier.
type NotifierConfig struct {
	ClientID        string
	InstanceLocator string
	// QueueSize bounds pending events; further events are dropped.
	QueueSize int
	// PublishTimeout bounds each publish.
	PublishTimeout time.Duration
	Logger         *log.Logger
}

// NotifierStats counts notifier outcomes.
type NotifierStats struct {
	Published int64 `json:"published"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// Notifier forwards every state of a joined-rooms repository to an adapter
// on a single background worker, preserving order.
type Notifier struct {
	adapter adapter.Adapter
	config  NotifierConfig
	logger  *log.Logger
	now     func() time.Time

	queue  chan *adapter.RoomsChangedEvent
	done   chan struct{}
	cancel func()

	mu     sync.Mutex
	closed bool
	stats  NotifierStats
}

// NewNotifier starts forwarding states of repo to a.
func NewNotifier(repo *repository.JoinedRoomsRepository, a adapter.Adapter, cfg NotifierConfig) *Notifier {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultNotifyQueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	n := &Notifier{
		adapter: a,
		config:  cfg,
		logger:  cfg.Logger.With(map[string]any{"component": "notifier"}),
		now:     time.Now,
		queue:   make(chan *adapter.RoomsChangedEvent, cfg.QueueSize),
		done:    make(chan struct{}),
	}
	go n.run()
	n.cancel = repo.Observe(n.observe)
	return n
}

func (n *Notifier) observe(s repository.State) {
	ev := adapter.NewRoomsChangedEvent(n.config.ClientID, n.config.InstanceLocator, s, n.now())

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- ev:
	default:
		n.stats.Dropped++
		n.logger.Warn("notification queue full, dropping event", map[string]any{"state": ev.State})
	}
}

func (n *Notifier) run() {
	defer close(n.done)
	for ev := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), n.config.PublishTimeout)
		err := n.adapter.Publish(ctx, ev)
		cancel()

		n.mu.Lock()
		if err != nil {
			n.stats.Failed++
		} else {
			n.stats.Published++
		}
		n.mu.Unlock()

		if err != nil {
			n.logger.Error("failed to publish rooms change", map[string]any{"error": err.Error()})
		}
	}
}

// Stats returns a copy of the notifier counters.
func (n *Notifier) Stats() NotifierStats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stats
}

// Close stops observing and returns once everything queued has been
// published. The adapter is shared and stays open.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	n.cancel()
	<-n.done
}
