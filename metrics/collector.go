// Package metrics provides per-client counters for the sync pipeline.
//
// The Collector is a leaf package with no internal dependencies. Every
// increment method is nil-receiver safe so components can be built without
// metrics.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Subscription
	EventsReceived     int64
	DecodeErrors       int64
	SubscriptionErrors int64
	SubscriptionEnds   int64

	// Store
	ActionsDispatched int64
	Broadcasts        int64
	BroadcastsSkipped int64
	ActionsByName     map[string]int64

	// Buffer
	BufferHeld     int64
	BufferResolved int64

	// Supplementation
	UsersFetched      int64
	UserFetchFailures int64

	// Dimensions (informational, set at construction)
	InstanceLocator string
	ClientID        string
	Transport       string
}

// Collector accumulates counters for one client.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	eventsReceived     int64
	decodeErrors       int64
	subscriptionErrors int64
	subscriptionEnds   int64

	actionsDispatched int64
	broadcasts        int64
	broadcastsSkipped int64
	actionsByName     map[string]int64

	bufferHeld     int64
	bufferResolved int64

	usersFetched      int64
	userFetchFailures int64

	instanceLocator string
	clientID        string
	transport       string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(instanceLocator, clientID, transport string) *Collector {
	return &Collector{
		actionsByName:   make(map[string]int64),
		instanceLocator: instanceLocator,
		clientID:        clientID,
		transport:       transport,
	}
}

func (c *Collector) add(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Subscription ---

// IncEventsReceived records a raw event delivered by the transport.
func (c *Collector) IncEventsReceived() {
	if c == nil {
		return
	}
	c.add(&c.eventsReceived, 1)
}

// IncDecodeErrors records an event that failed to decode.
func (c *Collector) IncDecodeErrors() {
	if c == nil {
		return
	}
	c.add(&c.decodeErrors, 1)
}

// IncSubscriptionErrors records a transport error.
func (c *Collector) IncSubscriptionErrors() {
	if c == nil {
		return
	}
	c.add(&c.subscriptionErrors, 1)
}

// IncSubscriptionEnds records an end-of-stream from the transport.
func (c *Collector) IncSubscriptionEnds() {
	if c == nil {
		return
	}
	c.add(&c.subscriptionEnds, 1)
}

// --- Store ---

// IncActionsDispatched records an action applied by the store, by name.
func (c *Collector) IncActionsDispatched(name string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.actionsDispatched++
	c.actionsByName[name]++
	c.mu.Unlock()
}

// IncBroadcasts records a state change delivered to listeners.
func (c *Collector) IncBroadcasts() {
	if c == nil {
		return
	}
	c.add(&c.broadcasts, 1)
}

// IncBroadcastsSkipped records an action that left state unchanged.
func (c *Collector) IncBroadcastsSkipped() {
	if c == nil {
		return
	}
	c.add(&c.broadcastsSkipped, 1)
}

// --- Buffer ---

// IncBufferHeld records a state held pending supplementation.
func (c *Collector) IncBufferHeld() {
	if c == nil {
		return
	}
	c.add(&c.bufferHeld, 1)
}

// IncBufferResolved records a pending state released by supplementation.
func (c *Collector) IncBufferResolved() {
	if c == nil {
		return
	}
	c.add(&c.bufferResolved, 1)
}

// --- Supplementation ---

// AddUsersFetched records n users fetched to complete partial references.
func (c *Collector) AddUsersFetched(n int) {
	if c == nil {
		return
	}
	c.add(&c.usersFetched, int64(n))
}

// IncUserFetchFailures records a failed user fetch.
func (c *Collector) IncUserFetchFailures() {
	if c == nil {
		return
	}
	c.add(&c.userFetchFailures, 1)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byName := make(map[string]int64, len(c.actionsByName))
	for k, v := range c.actionsByName {
		byName[k] = v
	}

	return Snapshot{
		EventsReceived:     c.eventsReceived,
		DecodeErrors:       c.decodeErrors,
		SubscriptionErrors: c.subscriptionErrors,
		SubscriptionEnds:   c.subscriptionEnds,

		ActionsDispatched: c.actionsDispatched,
		Broadcasts:        c.broadcasts,
		BroadcastsSkipped: c.broadcastsSkipped,
		ActionsByName:     byName,

		BufferHeld:     c.bufferHeld,
		BufferResolved: c.bufferResolved,

		UsersFetched:      c.usersFetched,
		UserFetchFailures: c.userFetchFailures,

		InstanceLocator: c.instanceLocator,
		ClientID:        c.clientID,
		Transport:       c.transport,
	}
}
