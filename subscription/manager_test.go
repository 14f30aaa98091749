package subscription_test

import (
	"errors"
	"testing"

	"github.com/pusher/chatkit-go/subscription"
)

func TestManager_SharesOneSubscriptionPerPath(t *testing.T) {
	transport := &subscription.StubTransport{}
	m := subscription.NewManager(transport, nil)

	a, b := &subscription.StubDelegate{}, &subscription.StubDelegate{}
	ca, cb := &completions{}, &completions{}
	releaseA := m.Acquire("/users", a, ca.fn())
	releaseB := m.Acquire("/users", b, cb.fn())

	if n := len(transport.Calls()); n != 1 {
		t.Fatalf("expected one transport request, got %d", n)
	}
	if got := m.RefCount("/users"); got != 2 {
		t.Errorf("expected ref count 2, got %d", got)
	}

	transport.Last().Event(`{}`)
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Errorf("expected both delegates to receive the event")
	}
	if len(ca.all()) != 1 || len(cb.all()) != 1 {
		t.Errorf("expected both completions to fire")
	}

	releaseA()
	releaseA()
	if got := m.RefCount("/users"); got != 1 {
		t.Errorf("expected ref count 1 after an idempotent release, got %d", got)
	}
	transport.Last().Event(`{}`)
	if len(a.Events()) != 1 || len(b.Events()) != 2 {
		t.Errorf("expected only the remaining delegate to receive events")
	}
	if transport.Last().Ended() != 0 {
		t.Error("expected subscription to stay open while referenced")
	}

	releaseB()
	if got := m.RefCount("/users"); got != 0 {
		t.Errorf("expected ref count 0, got %d", got)
	}
	if transport.Last().Ended() != 1 {
		t.Error("expected the last release to unsubscribe")
	}
	if _, ok := m.Subscription("/users"); ok {
		t.Error("expected the entry to be forgotten")
	}
}

func TestManager_SeparatePaths(t *testing.T) {
	transport := &subscription.StubTransport{}
	m := subscription.NewManager(transport, nil)

	m.Acquire("/users", &subscription.StubDelegate{}, nil)
	m.Acquire("/rooms/r1", &subscription.StubDelegate{}, nil)

	if n := len(transport.Calls()); n != 2 {
		t.Errorf("expected 2 transport requests, got %d", n)
	}
}

func TestManager_ReacquireAfterFailure(t *testing.T) {
	transport := &subscription.StubTransport{}
	m := subscription.NewManager(transport, nil)
	d := &subscription.StubDelegate{}

	m.Acquire("/users", d, nil)
	transport.Last().Error(errors.New("refused"))

	c := &completions{}
	m.Acquire("/users", d, c.fn())
	if n := len(transport.Calls()); n != 2 {
		t.Fatalf("expected a retry request, got %d", n)
	}
	if got := m.RefCount("/users"); got != 2 {
		t.Errorf("expected ref count 2, got %d", got)
	}
}
