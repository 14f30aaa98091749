package runtime_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/pusher/chatkit-go/adapter"
	"github.com/pusher/chatkit-go/fetch"
	"github.com/pusher/chatkit-go/metrics"
	"github.com/pusher/chatkit-go/repository"
	"github.com/pusher/chatkit-go/runtime"
	"github.com/pusher/chatkit-go/subscription"
	"github.com/pusher/chatkit-go/types"
)

const initialStateBody = `{"event_name":"initial_state","timestamp":"2017-04-14T14:00:42Z","data":{
	"current_user":{"id":"alice","name":"Alice"},
	"rooms":[
		{"id":"r1","name":"First","created_by_id":"alice"},
		{"id":"r2","name":"Second","created_by_id":"alice"}
	],
	"read_states":[{"room_id":"r1","unread_count":3},{"room_id":"r2","unread_count":0}],
	"memberships":[{"room_id":"r1","user_ids":["alice"]},{"room_id":"r2","user_ids":["alice"]}]
}}`

const addedByBobBody = `{"event_name":"added_to_room","timestamp":"2017-04-14T14:00:42Z","data":{
	"room":{"id":"r3","name":"Bob's","created_by_id":"bob"},
	"membership":{"room_id":"r3","user_ids":["alice","bob"]},
	"read_state":{"room_id":"r3","unread_count":1}
}}`

type harness struct {
	transport *subscription.StubTransport
	fetcher   *fetch.StubFetcher
	adapter   *adapter.StubAdapter
	collector *metrics.Collector
	client    *runtime.Client
}

func mustNewHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		transport: &subscription.StubTransport{},
		fetcher:   &fetch.StubFetcher{Users: map[string]types.User{"bob": {ID: "bob", Name: "Bob"}}},
		adapter:   &adapter.StubAdapter{},
		collector: metrics.NewCollector("v1:test:1", "", "stub"),
	}
	h.transport.OnSubscribe = func(_ string, hs subscription.Handlers) {
		hs.OnEvent("1", nil, []byte(initialStateBody))
	}
	c, err := runtime.NewClient(runtime.Config{InstanceLocator: "v1:test:1"}, runtime.Dependencies{
		Transport: h.transport,
		Fetcher:   h.fetcher,
		Adapter:   h.adapter,
		Collector: h.collector,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	h.client = c
	return h
}

func (h *harness) connect(t *testing.T) *repository.JoinedRoomsRepository {
	t.Helper()
	repo, err := h.client.JoinedRooms()
	if err != nil {
		t.Fatalf("JoinedRooms: %v", err)
	}
	if err := h.client.Connect(t.Context()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return repo
}

func TestNewClient_RequiresTransport(t *testing.T) {
	if _, err := runtime.NewClient(runtime.Config{}, runtime.Dependencies{}); err == nil {
		t.Fatal("expected error without transport")
	}
}

func TestClient_ConnectDeliversInitialState(t *testing.T) {
	h := mustNewHarness(t)
	repo := h.connect(t)

	got := repo.State()
	if got.Kind != repository.Connected {
		t.Fatalf("state = %v, want connected", got)
	}
	if len(got.Rooms) != 2 {
		t.Fatalf("rooms = %d, want 2", len(got.Rooms))
	}
	if h.transport.Last().Path != runtime.DefaultUserPath {
		t.Errorf("path = %q", h.transport.Last().Path)
	}

	// A second Connect reuses the live subscription.
	if err := h.client.Connect(t.Context()); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	if n := len(h.transport.Calls()); n != 1 {
		t.Errorf("subscribe calls = %d, want 1", n)
	}
}

func TestClient_SupplementsUnknownCreator(t *testing.T) {
	h := mustNewHarness(t)
	repo := h.connect(t)

	h.transport.Last().Event(addedByBobBody)
	if err := h.client.WaitIdle(t.Context()); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}

	got := repo.State()
	if len(got.Rooms) != 3 {
		t.Fatalf("rooms = %d, want 3 after supplementation", len(got.Rooms))
	}
	found := false
	for _, r := range got.Rooms {
		if r.Identifier != "r3" {
			continue
		}
		found = true
		if r.Creator == nil || r.Creator.Name != "Bob" {
			t.Errorf("creator = %+v, want Bob", r.Creator)
		}
	}
	if !found {
		t.Fatal("room r3 missing")
	}
	if calls := h.fetcher.Calls(); len(calls) != 1 || calls[0] != "bob" {
		t.Errorf("fetch calls = %v, want [bob]", calls)
	}
	if snap := h.collector.Snapshot(); snap.UsersFetched != 1 || snap.BufferResolved != 1 {
		t.Errorf("users fetched = %d, buffer resolved = %d", snap.UsersFetched, snap.BufferResolved)
	}
}

func TestClient_DropsUndecodableEvents(t *testing.T) {
	h := mustNewHarness(t)
	repo := h.connect(t)
	before := h.client.Store().State().Version

	h.transport.Last().Event(`not json`)
	h.transport.Last().Event(`{"event_name":"typing_start","data":{}}`)

	if v := h.client.Store().State().Version; v != before {
		t.Errorf("version = %d, want %d", v, before)
	}
	if len(repo.State().Rooms) != 2 {
		t.Errorf("rooms changed after undecodable events")
	}
	if snap := h.collector.Snapshot(); snap.DecodeErrors != 2 || snap.EventsReceived != 3 {
		t.Errorf("decode errors = %d, events = %d", snap.DecodeErrors, snap.EventsReceived)
	}
}

func TestClient_ConnectionTransitions(t *testing.T) {
	h := mustNewHarness(t)
	repo := h.connect(t)

	h.transport.Last().Error(errors.New("network blip"))
	got := repo.State()
	if got.Kind != repository.Degraded || got.Err == nil || len(got.Rooms) != 2 {
		t.Fatalf("after error: %v, want degraded with rooms", got)
	}

	h.transport.Last().Event(`{"event_name":"read_state_updated","data":{"read_state":{"room_id":"r1","unread_count":0}}}`)
	if got := repo.State(); got.Kind != repository.Connected {
		t.Fatalf("after event: %v, want connected", got)
	}

	h.transport.Last().EndStream(404)
	got = repo.State()
	if got.Kind != repository.Closed {
		t.Fatalf("after end: %v, want closed", got)
	}
	if !errors.Is(got.Err, subscription.ErrEndedWhileSubscribed) {
		t.Errorf("err = %v, want ErrEndedWhileSubscribed", got.Err)
	}
}

func TestClient_ConnectFailsWhenStreamEnds(t *testing.T) {
	transport := &subscription.StubTransport{
		OnSubscribe: func(_ string, hs subscription.Handlers) {
			hs.OnEnd(401, nil, nil)
		},
	}
	c, err := runtime.NewClient(runtime.Config{}, runtime.Dependencies{Transport: transport})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer func() { _ = c.Close() }()

	err = c.Connect(t.Context())
	if !errors.Is(err, subscription.ErrEndedWhileSubscribing) {
		t.Fatalf("err = %v, want ErrEndedWhileSubscribing", err)
	}
	var endErr *subscription.EndError
	if !errors.As(err, &endErr) || endErr.StatusCode != 401 {
		t.Errorf("err = %v, want status 401", err)
	}
}

func TestClient_CloseNotifiesAndTearsDown(t *testing.T) {
	h := mustNewHarness(t)
	repo := h.connect(t)

	if err := h.client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := h.client.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if got := repo.State(); got.Kind != repository.Closed {
		t.Errorf("repo state = %v, want closed", got)
	}
	if h.transport.Last().Ended() == 0 {
		t.Error("transport handle not ended")
	}
	if !h.adapter.Closed() {
		t.Error("adapter not closed")
	}

	events := h.adapter.Events()
	if len(events) < 2 {
		t.Fatalf("notifications = %d, want at least 2", len(events))
	}
	if first := events[0]; first.State != "connected" || first.RoomCount != 2 {
		t.Errorf("first notification = %+v", first)
	}
	if last := events[len(events)-1]; last.State != "closed" {
		t.Errorf("last notification = %+v, want closed", last)
	}

	if _, err := h.client.JoinedRooms(); !errors.Is(err, runtime.ErrClientClosed) {
		t.Errorf("JoinedRooms after Close: %v", err)
	}
	if err := h.client.Connect(t.Context()); !errors.Is(err, runtime.ErrClientClosed) {
		t.Errorf("Connect after Close: %v", err)
	}
}

func TestClient_UnknownCreatorDoesNotStallRepository(t *testing.T) {
	h := mustNewHarness(t)
	repo := h.connect(t)

	// carol is unknown to the user service.
	h.transport.Last().Event(`{"event_name":"added_to_room","data":{
		"room":{"id":"r4","name":"Carol's","created_by_id":"carol"},
		"membership":{"room_id":"r4","user_ids":["alice","carol"]},
		"read_state":{"room_id":"r4","unread_count":0}
	}}`)
	if err := h.client.WaitIdle(t.Context()); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	h.transport.Last().Event(`{"event_name":"read_state_updated","data":{"read_state":{"room_id":"r1","unread_count":42}}}`)
	if err := h.client.WaitIdle(t.Context()); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}

	got := repo.State()
	if len(got.Rooms) != 3 {
		t.Fatalf("rooms = %d, want 3", len(got.Rooms))
	}
	for _, r := range got.Rooms {
		switch r.Identifier {
		case "r1":
			if r.UnreadCount != 42 {
				t.Errorf("r1 unread = %d, want 42", r.UnreadCount)
			}
		case "r4":
			if r.Creator == nil || r.Creator.Name != "carol" {
				t.Errorf("r4 creator = %+v, want carol placeholder", r.Creator)
			}
		}
	}
}

func TestClient_WithoutFetcherUsesPlaceholders(t *testing.T) {
	transport := &subscription.StubTransport{
		OnSubscribe: func(_ string, hs subscription.Handlers) {
			hs.OnEvent("1", nil, []byte(initialStateBody))
		},
	}
	c, err := runtime.NewClient(runtime.Config{}, runtime.Dependencies{Transport: transport})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer func() { _ = c.Close() }()
	repo, err := c.JoinedRooms()
	if err != nil {
		t.Fatalf("JoinedRooms: %v", err)
	}
	if err := c.Connect(t.Context()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	transport.Last().Event(addedByBobBody)
	if err := c.WaitIdle(t.Context()); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	if n := len(repo.State().Rooms); n != 3 {
		t.Errorf("rooms = %d, want 3", n)
	}
}

// countingAdapter fails a second Close the way a real adapter would.
type countingAdapter struct {
	adapter.StubAdapter
	mu     sync.Mutex
	closes int
}

func (a *countingAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closes++
	if a.closes > 1 {
		return errors.New("already closed")
	}
	return a.StubAdapter.Close()
}

func TestClient_ClosesSharedAdapterOnce(t *testing.T) {
	transport := &subscription.StubTransport{
		OnSubscribe: func(_ string, hs subscription.Handlers) {
			hs.OnEvent("1", nil, []byte(initialStateBody))
		},
	}
	a := &countingAdapter{}
	c, err := runtime.NewClient(runtime.Config{}, runtime.Dependencies{Transport: transport, Adapter: a})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	for range 2 {
		if _, err := c.JoinedRooms(); err != nil {
			t.Fatalf("JoinedRooms: %v", err)
		}
	}
	if err := c.Connect(t.Context()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if a.closes != 1 {
		t.Errorf("adapter closes = %d, want 1", a.closes)
	}
	// Both repositories published their connected and closed states before
	// the adapter went away.
	var closed int
	for _, ev := range a.Events() {
		if ev.State == "closed" {
			closed++
		}
	}
	if closed != 2 {
		t.Errorf("closed notifications = %d, want 2", closed)
	}
}
