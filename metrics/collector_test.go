package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("v1:us1:abc", "client-1", "ws")

	c.IncEventsReceived()
	c.IncEventsReceived()
	c.IncEventsReceived()
	c.IncDecodeErrors()
	c.IncSubscriptionErrors()
	c.IncSubscriptionErrors()
	c.IncSubscriptionEnds()
	c.IncActionsDispatched("initial_state")
	c.IncActionsDispatched("added_to_room")
	c.IncActionsDispatched("added_to_room")
	c.IncBroadcasts()
	c.IncBroadcasts()
	c.IncBroadcastsSkipped()
	c.IncBufferHeld()
	c.IncBufferResolved()
	c.AddUsersFetched(4)
	c.IncUserFetchFailures()

	s := c.Snapshot()

	if s.EventsReceived != 3 {
		t.Errorf("EventsReceived = %d, want 3", s.EventsReceived)
	}
	if s.DecodeErrors != 1 {
		t.Errorf("DecodeErrors = %d, want 1", s.DecodeErrors)
	}
	if s.SubscriptionErrors != 2 {
		t.Errorf("SubscriptionErrors = %d, want 2", s.SubscriptionErrors)
	}
	if s.SubscriptionEnds != 1 {
		t.Errorf("SubscriptionEnds = %d, want 1", s.SubscriptionEnds)
	}
	if s.ActionsDispatched != 3 {
		t.Errorf("ActionsDispatched = %d, want 3", s.ActionsDispatched)
	}
	if s.ActionsByName["added_to_room"] != 2 {
		t.Errorf("ActionsByName[added_to_room] = %d, want 2", s.ActionsByName["added_to_room"])
	}
	if s.Broadcasts != 2 {
		t.Errorf("Broadcasts = %d, want 2", s.Broadcasts)
	}
	if s.BroadcastsSkipped != 1 {
		t.Errorf("BroadcastsSkipped = %d, want 1", s.BroadcastsSkipped)
	}
	if s.BufferHeld != 1 || s.BufferResolved != 1 {
		t.Errorf("Buffer counters = %d/%d, want 1/1", s.BufferHeld, s.BufferResolved)
	}
	if s.UsersFetched != 4 {
		t.Errorf("UsersFetched = %d, want 4", s.UsersFetched)
	}
	if s.UserFetchFailures != 1 {
		t.Errorf("UserFetchFailures = %d, want 1", s.UserFetchFailures)
	}
}

func TestCollector_Dimensions(t *testing.T) {
	s := NewCollector("v1:us1:abc", "client-1", "replay").Snapshot()

	if s.InstanceLocator != "v1:us1:abc" {
		t.Errorf("InstanceLocator = %q, want %q", s.InstanceLocator, "v1:us1:abc")
	}
	if s.ClientID != "client-1" {
		t.Errorf("ClientID = %q, want %q", s.ClientID, "client-1")
	}
	if s.Transport != "replay" {
		t.Errorf("Transport = %q, want %q", s.Transport, "replay")
	}
}

func TestCollector_NilReceiver(t *testing.T) {
	var c *Collector

	// None of these should panic
	c.IncEventsReceived()
	c.IncDecodeErrors()
	c.IncSubscriptionErrors()
	c.IncSubscriptionEnds()
	c.IncActionsDispatched("x")
	c.IncBroadcasts()
	c.IncBroadcastsSkipped()
	c.IncBufferHeld()
	c.IncBufferResolved()
	c.AddUsersFetched(1)
	c.IncUserFetchFailures()

	s := c.Snapshot()
	if s.EventsReceived != 0 || s.ActionsByName != nil {
		t.Errorf("expected zero snapshot from nil collector, got %+v", s)
	}
}

func TestCollector_SnapshotIsolation(t *testing.T) {
	c := NewCollector("", "", "")
	c.IncActionsDispatched("room_updated")

	s := c.Snapshot()
	s.ActionsByName["room_updated"] = 100

	if got := c.Snapshot().ActionsByName["room_updated"]; got != 1 {
		t.Errorf("snapshot map aliased collector state: got %d, want 1", got)
	}
}

func TestCollector_ConcurrentIncrements(t *testing.T) {
	c := NewCollector("", "", "")

	const goroutines = 50
	const increments = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range increments {
				c.IncEventsReceived()
				c.IncActionsDispatched("read_state_updated")
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * increments)
	if s.EventsReceived != want {
		t.Errorf("EventsReceived = %d, want %d", s.EventsReceived, want)
	}
	if s.ActionsByName["read_state_updated"] != want {
		t.Errorf("ActionsByName = %d, want %d", s.ActionsByName["read_state_updated"], want)
	}
}
