package runtime_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/pusher/chatkit-go/action"
	"github.com/pusher/chatkit-go/fetch"
	"github.com/pusher/chatkit-go/runtime"
	"github.com/pusher/chatkit-go/state"
	"github.com/pusher/chatkit-go/types"
)

type recordingDispatcher struct {
	mu      sync.Mutex
	actions []action.Action
}

func (d *recordingDispatcher) Dispatch(a action.Action) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actions = append(d.actions, a)
}

func (d *recordingDispatcher) fetched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var ids []string
	for _, a := range d.actions {
		if uf, ok := a.(action.UsersFetched); ok {
			for _, u := range uf.Users {
				ids = append(ids, u.ID)
			}
		}
	}
	return ids
}

func chatWithCreators(creators ...string) state.ChatState {
	alice := state.UserState{Kind: state.Populated, Identifier: "alice"}
	rooms := state.RoomListState{}
	for i, c := range creators {
		id := string(rune('a'+i)) + "-room"
		rooms[id] = state.RoomState{Kind: state.Populated, Identifier: id, CreatorIdentifier: c}
	}
	return state.ChatState{
		CurrentUser: alice,
		JoinedRooms: rooms,
		Users:       state.UserListState{"alice": alice},
	}
}

func TestMissingUsers(t *testing.T) {
	tests := []struct {
		name string
		chat state.ChatState
		want []string
	}{
		{"empty", state.ChatState{}, nil},
		{"all known", chatWithCreators("alice", "alice"), nil},
		{"unknown creators deduplicated", chatWithCreators("bob", "carol", "bob"), []string{"bob", "carol"}},
		{"partial current user", state.ChatState{CurrentUser: state.PartialUser("zed")}, []string{"zed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runtime.MissingUsers(tt.chat)
			if !slices.Equal(got, tt.want) {
				t.Errorf("MissingUsers = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserSupplementer_FetchesAndDispatches(t *testing.T) {
	fetcher := &fetch.StubFetcher{Users: map[string]types.User{
		"bob":   {ID: "bob"},
		"carol": {ID: "carol"},
	}}
	d := &recordingDispatcher{}
	s := runtime.NewUserSupplementer(fetcher, d, 0, nil, nil)
	defer s.Close()

	s.DidUpdateState(state.VersionedState{ChatState: chatWithCreators("bob", "carol")})
	if err := s.Wait(t.Context()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	got := d.fetched()
	slices.Sort(got)
	if !slices.Equal(got, []string{"bob", "carol"}) {
		t.Errorf("fetched = %v", got)
	}
}

func (d *recordingDispatcher) users() []types.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	var users []types.User
	for _, a := range d.actions {
		if uf, ok := a.(action.UsersFetched); ok {
			users = append(users, uf.Users...)
		}
	}
	return users
}

// flakyFetcher fails the first failures calls, then succeeds.
type flakyFetcher struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyFetcher) FetchUser(_ context.Context, id string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return types.User{}, errors.New("unavailable")
	}
	return types.User{ID: id, Name: "Real " + id}, nil
}

func TestUserSupplementer_DispatchesPlaceholderForUnknownUser(t *testing.T) {
	fetcher := &fetch.StubFetcher{}
	d := &recordingDispatcher{}
	s := runtime.NewUserSupplementer(fetcher, d, 0, nil, nil)
	defer s.Close()

	s.DidUpdateState(state.VersionedState{ChatState: chatWithCreators("ghost")})
	if err := s.Wait(t.Context()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	// Not found is final: no retries.
	if calls := fetcher.Calls(); len(calls) != 1 {
		t.Errorf("calls = %v, want a single attempt", calls)
	}
	users := d.users()
	if len(users) != 1 || users[0].ID != "ghost" || users[0].Name != "ghost" {
		t.Errorf("dispatched = %+v, want a ghost placeholder", users)
	}
}

func TestUserSupplementer_PlaceholderAfterExhaustedRetries(t *testing.T) {
	fetcher := &fetch.StubFetcher{Err: errors.New("unavailable")}
	d := &recordingDispatcher{}
	s := runtime.NewUserSupplementer(fetcher, d, 0, nil, nil)
	runtime.SetFetchRetry(s, 3, time.Millisecond)
	defer s.Close()

	s.DidUpdateState(state.VersionedState{ChatState: chatWithCreators("bob")})
	if err := s.Wait(t.Context()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if calls := fetcher.Calls(); len(calls) != 3 {
		t.Errorf("calls = %v, want three attempts", calls)
	}
	if got := d.fetched(); !slices.Equal(got, []string{"bob"}) {
		t.Errorf("fetched = %v, want [bob]", got)
	}
}

func TestUserSupplementer_RetriesTransientFailures(t *testing.T) {
	fetcher := &flakyFetcher{failures: 1}
	d := &recordingDispatcher{}
	s := runtime.NewUserSupplementer(fetcher, d, 0, nil, nil)
	runtime.SetFetchRetry(s, 3, time.Millisecond)
	defer s.Close()

	s.DidUpdateState(state.VersionedState{ChatState: chatWithCreators("bob")})
	if err := s.Wait(t.Context()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if fetcher.calls != 2 {
		t.Errorf("calls = %d, want 2", fetcher.calls)
	}
	users := d.users()
	if len(users) != 1 || users[0].Name != "Real bob" {
		t.Errorf("dispatched = %+v, want the fetched record", users)
	}
}

func TestUserSupplementer_CloseStopsRetrying(t *testing.T) {
	fetcher := &fetch.StubFetcher{Err: errors.New("unavailable")}
	d := &recordingDispatcher{}
	s := runtime.NewUserSupplementer(fetcher, d, 0, nil, nil)
	runtime.SetFetchRetry(s, 5, time.Hour)

	s.DidUpdateState(state.VersionedState{ChatState: chatWithCreators("bob")})
	s.Close()

	if calls := fetcher.Calls(); len(calls) > 1 {
		t.Errorf("calls = %v, want at most one attempt before Close", calls)
	}
	if len(d.fetched()) != 0 {
		t.Error("nothing should be dispatched after Close")
	}
}

func TestUserSupplementer_IgnoresStatesAfterClose(t *testing.T) {
	fetcher := &fetch.StubFetcher{}
	s := runtime.NewUserSupplementer(fetcher, &recordingDispatcher{}, 0, nil, nil)
	s.Close()

	s.DidUpdateState(state.VersionedState{ChatState: chatWithCreators("bob")})
	if len(fetcher.Calls()) != 0 {
		t.Error("fetch after Close")
	}
}
