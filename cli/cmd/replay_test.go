package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pusher/chatkit-go/cli/config"
	"github.com/pusher/chatkit-go/log"
	"github.com/pusher/chatkit-go/repository"
	"github.com/pusher/chatkit-go/snapshot"
	"github.com/pusher/chatkit-go/wire"
)

const initialStateLine = `{"event_name":"initial_state","timestamp":"2017-04-14T14:00:42Z","data":{"current_user":{"id":"alice","name":"Alice"},"rooms":[{"id":"r1","name":"general","created_by_id":"alice"},{"id":"r2","name":"random","created_by_id":"bob"}],"read_states":[{"room_id":"r1","unread_count":2}],"memberships":[{"room_id":"r1","user_ids":["alice"]},{"room_id":"r2","user_ids":["alice","bob"]}]}}`

const unknownEventLine = `{"event_name":"typing_indicator","timestamp":"2017-04-14T14:00:43Z","data":{}}`

func writeRecording(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write recording: %v", err)
	}
	return path
}

func mustNewMemoryArchive(t *testing.T) *snapshot.Archive {
	t.Helper()
	a, err := snapshot.NewArchiveWithFactory(lode.NewMemoryFactory(), "v1:test:replay")
	if err != nil {
		t.Fatalf("NewArchiveWithFactory: %v", err)
	}
	return a
}

func TestReadRecording_JSONLines(t *testing.T) {
	path := writeRecording(t, "session.jsonl", "# comment", initialStateLine, "", unknownEventLine)
	records, err := readRecording(path)
	if err != nil {
		t.Fatalf("readRecording: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Kind != wire.RecordEvent {
		t.Errorf("kind = %q", records[0].Kind)
	}
}

func TestReadRecording_Missing(t *testing.T) {
	if _, err := readRecording(filepath.Join(t.TempDir(), "nope.rec")); err == nil {
		t.Fatal("expected error for missing recording")
	}
}

func TestDecodeRecords(t *testing.T) {
	rows := decodeRecords([]wire.Record{
		{Kind: wire.RecordEvent, EventID: "1", Body: []byte(initialStateLine)},
		{Kind: wire.RecordEvent, EventID: "2", Body: []byte(unknownEventLine)},
		{Kind: wire.RecordError, Error: "socket closed"},
		{Kind: wire.RecordEnd, StatusCode: 410},
	})
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	if rows[0].Action == "" || rows[0].Error != "" {
		t.Errorf("initial state row = %+v", rows[0])
	}
	if rows[1].Action != "" || rows[1].Error == "" {
		t.Errorf("unknown event row = %+v", rows[1])
	}
	if rows[2].Error != "socket closed" {
		t.Errorf("error row = %+v", rows[2])
	}
	if rows[3].Status != 410 || rows[3].Kind != "end" {
		t.Errorf("end row = %+v", rows[3])
	}
}

func TestRunReplay_ConnectsAndArchives(t *testing.T) {
	cfg := &config.Config{InstanceLocator: "v1:test:replay"}
	records := []wire.Record{
		{Kind: wire.RecordEvent, EventID: "1", Body: []byte(initialStateLine)},
		{Kind: wire.RecordEvent, EventID: "2", Body: []byte(unknownEventLine)},
	}
	archive := mustNewMemoryArchive(t)
	var out bytes.Buffer

	res, err := runReplay(t.Context(), cfg, records, replayOptions{
		Timeout: 5 * time.Second,
		Archive: archive,
	}, &out, log.NewNop())
	if err != nil {
		t.Fatalf("runReplay: %v", err)
	}

	if res.State.Kind != repository.Connected {
		t.Fatalf("state = %v, want connected", res.State)
	}
	if len(res.State.Rooms) != 2 {
		t.Errorf("rooms = %d, want 2", len(res.State.Rooms))
	}
	if !strings.Contains(out.String(), "connected(2 rooms)") {
		t.Errorf("transitions = %q", out.String())
	}
	if res.Report == nil || res.Report.State != "connected" {
		t.Errorf("report = %+v", res.Report)
	}
	if res.Report.Metrics.DecodeErrors != 1 {
		t.Errorf("decode errors = %d, want 1", res.Report.Metrics.DecodeErrors)
	}

	if res.Archived == "" {
		t.Fatal("snapshot not archived")
	}
	doc, err := archive.Latest(t.Context())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if doc.Meta.ClientID != res.Report.ClientID {
		t.Errorf("archived client = %q, want %q", doc.Meta.ClientID, res.Report.ClientID)
	}
	if len(doc.Rooms) != 2 {
		t.Errorf("archived rooms = %d, want 2", len(doc.Rooms))
	}
}

func TestRunReplay_EndOfStreamCloses(t *testing.T) {
	cfg := &config.Config{InstanceLocator: "v1:test:replay"}
	records := []wire.Record{
		{Kind: wire.RecordEvent, EventID: "1", Body: []byte(initialStateLine)},
		{Kind: wire.RecordEnd, StatusCode: 410},
	}
	var out bytes.Buffer

	res, err := runReplay(t.Context(), cfg, records, replayOptions{
		Timeout: 5 * time.Second,
		Quiet:   true,
	}, &out, log.NewNop())
	if err != nil {
		t.Fatalf("runReplay: %v", err)
	}
	if res.State.Kind != repository.Closed {
		t.Errorf("state = %v, want closed", res.State)
	}
	if out.Len() != 0 {
		t.Errorf("quiet replay printed %q", out.String())
	}
	if exitForState(res.State) == nil {
		t.Error("closed state should not exit cleanly")
	}
}

func TestRunReplay_EmptyRecordingStaysInitializing(t *testing.T) {
	cfg := &config.Config{InstanceLocator: "v1:test:replay"}
	res, err := runReplay(t.Context(), cfg, nil, replayOptions{Timeout: 5 * time.Second, Quiet: true}, &bytes.Buffer{}, log.NewNop())
	if err != nil {
		t.Fatalf("runReplay: %v", err)
	}
	if res.State.Kind != repository.Initializing {
		t.Errorf("state = %v, want initializing", res.State)
	}
}
