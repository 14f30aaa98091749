package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "chatkit"

var counterDescs = struct {
	eventsReceived, decodeErrors, subscriptionErrors, subscriptionEnds *prometheus.Desc
	actionsDispatched, broadcasts, broadcastsSkipped                   *prometheus.Desc
	bufferHeld, bufferResolved, usersFetched, userFetchFailures        *prometheus.Desc
}{
	eventsReceived:     newDesc("events_received_total", "Raw events delivered by the transport.", nil),
	decodeErrors:       newDesc("decode_errors_total", "Events that failed to decode.", nil),
	subscriptionErrors: newDesc("subscription_errors_total", "Transport errors reported to the subscription.", nil),
	subscriptionEnds:   newDesc("subscription_ends_total", "End-of-stream notifications from the transport.", nil),
	actionsDispatched:  newDesc("actions_dispatched_total", "Actions applied by the store.", []string{"action"}),
	broadcasts:         newDesc("broadcasts_total", "State changes delivered to store listeners.", nil),
	broadcastsSkipped:  newDesc("broadcasts_skipped_total", "Actions that left state unchanged.", nil),
	bufferHeld:         newDesc("buffer_held_total", "States held pending supplementation.", nil),
	bufferResolved:     newDesc("buffer_resolved_total", "Pending states released by supplementation.", nil),
	usersFetched:       newDesc("users_fetched_total", "Users fetched to complete partial references.", nil),
	userFetchFailures:  newDesc("user_fetch_failures_total", "Failed user fetches.", nil),
}

func newDesc(name, help string, variable []string) *prometheus.Desc {
	return prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", name),
		help,
		append(variable, "instance_locator", "transport"),
		nil,
	)
}

// Exporter exposes a Collector to a Prometheus registry.
type Exporter struct {
	collector *Collector
}

var _ prometheus.Collector = (*Exporter)(nil)

// NewExporter wraps c. Register the result with a prometheus.Registerer.
func NewExporter(c *Collector) *Exporter {
	return &Exporter{collector: c}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- counterDescs.eventsReceived
	ch <- counterDescs.decodeErrors
	ch <- counterDescs.subscriptionErrors
	ch <- counterDescs.subscriptionEnds
	ch <- counterDescs.actionsDispatched
	ch <- counterDescs.broadcasts
	ch <- counterDescs.broadcastsSkipped
	ch <- counterDescs.bufferHeld
	ch <- counterDescs.bufferResolved
	ch <- counterDescs.usersFetched
	ch <- counterDescs.userFetchFailures
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	s := e.collector.Snapshot()
	labels := []string{s.InstanceLocator, s.Transport}

	counter := func(desc *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
	}
	counter(counterDescs.eventsReceived, s.EventsReceived)
	counter(counterDescs.decodeErrors, s.DecodeErrors)
	counter(counterDescs.subscriptionErrors, s.SubscriptionErrors)
	counter(counterDescs.subscriptionEnds, s.SubscriptionEnds)
	counter(counterDescs.broadcasts, s.Broadcasts)
	counter(counterDescs.broadcastsSkipped, s.BroadcastsSkipped)
	counter(counterDescs.bufferHeld, s.BufferHeld)
	counter(counterDescs.bufferResolved, s.BufferResolved)
	counter(counterDescs.usersFetched, s.UsersFetched)
	counter(counterDescs.userFetchFailures, s.UserFetchFailures)

	for name, v := range s.ActionsByName {
		ch <- prometheus.MustNewConstMetric(
			counterDescs.actionsDispatched, prometheus.CounterValue, float64(v),
			append([]string{name}, labels...)...,
		)
	}
}
