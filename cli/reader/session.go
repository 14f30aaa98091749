package reader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pusher/chatkit-go/runtime"
)

// ReadSessionReport loads a report written by "chatkit replay --report".
func ReadSessionReport(path string) (*SessionStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open session report: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseSessionReport(f)
}

// ParseSessionReport decodes a session report and flattens its counters.
func ParseSessionReport(r io.Reader) (*SessionStats, error) {
	var report runtime.SessionReport
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("invalid session report: %w", err)
	}
	if report.ClientID == "" {
		return nil, errors.New("invalid session report: missing client_id")
	}

	stats := &SessionStats{
		ClientID:   report.ClientID,
		State:      report.State,
		Error:      report.Error,
		DurationMs: report.DurationMs,
		Rooms:      len(report.Rooms),
	}
	if m := report.Metrics; m != nil {
		stats.EventsReceived = m.EventsReceived
		stats.DecodeErrors = m.DecodeErrors
		stats.SubscriptionErrors = m.SubscriptionErrors
		stats.ActionsDispatched = m.ActionsDispatched
		stats.Broadcasts = m.Broadcasts
		stats.BroadcastsSkipped = m.BroadcastsSkipped
		stats.BufferHeld = m.BufferHeld
		stats.BufferResolved = m.BufferResolved
		stats.UsersFetched = m.UsersFetched
		stats.UserFetchFailures = m.UserFetchFailures
	}
	if n := report.Notifications; n != nil {
		stats.Published = n.Published
		stats.Failed = n.Failed
		stats.Dropped = n.Dropped
	}
	return stats, nil
}
