package metrics_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pusher/chatkit-go/metrics"
)

func TestExporter_Collect(t *testing.T) {
	c := metrics.NewCollector("v1:us1:abc", "client-1", "ws")
	c.IncEventsReceived()
	c.IncEventsReceived()
	c.IncActionsDispatched("initial_state")

	exp := metrics.NewExporter(c)

	expected := `
# HELP chatkit_events_received_total Raw events delivered by the transport.
# TYPE chatkit_events_received_total counter
chatkit_events_received_total{instance_locator="v1:us1:abc",transport="ws"} 2
# HELP chatkit_actions_dispatched_total Actions applied by the store.
# TYPE chatkit_actions_dispatched_total counter
chatkit_actions_dispatched_total{action="initial_state",instance_locator="v1:us1:abc",transport="ws"} 1
`
	err := testutil.CollectAndCompare(exp, strings.NewReader(expected),
		"chatkit_events_received_total", "chatkit_actions_dispatched_total")
	if err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestExporter_Registers(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	exp := metrics.NewExporter(metrics.NewCollector("", "", "replay"))

	if err := reg.Register(exp); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// 10 unlabelled counters; actions_dispatched has no series until an action is seen.
	if got := testutil.CollectAndCount(exp); got != 10 {
		t.Errorf("expected 10 series, got %d", got)
	}
}
