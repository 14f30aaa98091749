package replay_test

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/pusher/chatkit-go/subscription"
	"github.com/pusher/chatkit-go/transport/replay"
	"github.com/pusher/chatkit-go/wire"
)

type captured struct {
	mu     sync.Mutex
	events []string
	errs   []string
	status int
}

func (c *captured) handlers() subscription.Handlers {
	return subscription.Handlers{
		OnEvent: func(id string, _ map[string]string, body []byte) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.events = append(c.events, id+":"+string(body))
		},
		OnEnd: func(status int, _ map[string]string, _ []byte) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.status = status
		},
		OnError: func(err error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.errs = append(c.errs, err.Error())
		},
	}
}

func wait(t *testing.T, h subscription.Handle) {
	t.Helper()
	select {
	case <-h.(*replay.Handle).Done():
	case <-time.After(5 * time.Second):
		t.Fatal("replay did not finish")
	}
}

func TestTransport_DeliversInOrderAndStopsAtEnd(t *testing.T) {
	records := []wire.Record{
		{Kind: wire.RecordEvent, EventID: "1", Body: []byte(`a`)},
		{Kind: wire.RecordError, Error: "blip"},
		{Kind: wire.RecordEvent, EventID: "2", Body: []byte(`b`)},
		{Kind: wire.RecordEnd, StatusCode: 410},
		{Kind: wire.RecordEvent, EventID: "3", Body: []byte(`never`)},
	}
	var c captured
	h := replay.New(records).SubscribeWithResume("/users", c.handlers())
	wait(t, h)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) != 2 || c.events[0] != "1:a" || c.events[1] != "2:b" {
		t.Errorf("events = %v", c.events)
	}
	if len(c.errs) != 1 || c.errs[0] != "blip" {
		t.Errorf("errors = %v", c.errs)
	}
	if c.status != 410 {
		t.Errorf("status = %d, want 410", c.status)
	}
}

func TestTransport_EndStopsPacedReplay(t *testing.T) {
	records := []wire.Record{
		{Kind: wire.RecordEvent, EventID: "1", Body: []byte(`a`)},
		{Kind: wire.RecordEvent, EventID: "2", Body: []byte(`b`)},
	}
	var c captured
	h := replay.New(records, replay.WithPace(time.Hour)).SubscribeWithResume("/users", c.handlers())

	deadline := time.Now().Add(5 * time.Second)
	for {
		c.mu.Lock()
		n := len(c.events)
		c.mu.Unlock()
		if n == 1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}
	h.End()
	h.End()
	wait(t, h)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) != 1 {
		t.Errorf("events = %v, want only the first", c.events)
	}
}

func TestRecorder_RoundTripsThroughReplay(t *testing.T) {
	source := []wire.Record{
		{Kind: wire.RecordEvent, EventID: "1", Body: []byte(`{"n":1}`)},
		{Kind: wire.RecordError, Error: "connection lost"},
		{Kind: wire.RecordEnd, StatusCode: 404, Headers: map[string]string{"x": "y"}},
	}
	var buf bytes.Buffer
	rec := replay.NewRecorder(replay.New(source), &buf)

	var c captured
	wait(t, rec.SubscribeWithResume("/users", c.handlers()))

	if err := rec.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if rec.Count() != 3 {
		t.Fatalf("Count = %d, want 3", rec.Count())
	}

	got, err := wire.ReadAll(&buf)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("records = %d, want 3", len(got))
	}
	if got[0].Kind != wire.RecordEvent || string(got[0].Body) != `{"n":1}` {
		t.Errorf("record 0 = %+v", got[0])
	}
	if got[1].Kind != wire.RecordError || got[1].Error != "connection lost" {
		t.Errorf("record 1 = %+v", got[1])
	}
	if got[2].Kind != wire.RecordEnd || got[2].StatusCode != 404 || got[2].Headers["x"] != "y" {
		t.Errorf("record 2 = %+v", got[2])
	}
	if got[0].ReceivedAt.IsZero() {
		t.Error("ReceivedAt not stamped")
	}
}

func TestTransport_FinishedAfterFirstPlayback(t *testing.T) {
	tr := replay.New([]wire.Record{{Kind: wire.RecordEvent, EventID: "1", Body: []byte(`a`)}})

	select {
	case <-tr.Finished():
		t.Fatal("Finished closed before any subscription")
	default:
	}

	var c captured
	tr.SubscribeWithResume("/users", c.handlers())
	select {
	case <-tr.Finished():
	case <-time.After(5 * time.Second):
		t.Fatal("Finished not closed")
	}
}
