package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pusher/chatkit-go/metrics"
	"github.com/pusher/chatkit-go/model"
	"github.com/pusher/chatkit-go/repository"
	"github.com/pusher/chatkit-go/types"
)

// SessionReport is the structured JSON report written by --report.
type SessionReport struct {
	ClientID        string `json:"client_id"`
	ClientVersion   string `json:"client_version"`
	InstanceLocator string `json:"instance_locator,omitempty"`
	DurationMs      int64  `json:"duration_ms"`

	State      string       `json:"state"`
	Error      string       `json:"error,omitempty"`
	StoreState *ReportStore `json:"store"`
	Rooms      []model.Room `json:"rooms"`

	Notifications *NotifierStats    `json:"notifications,omitempty"`
	Metrics       *metrics.Snapshot `json:"metrics"`
}

// ReportStore describes the last store state.
type ReportStore struct {
	Version   uint64 `json:"version"`
	Signature string `json:"signature"`
	Rooms     int    `json:"rooms"`
	Users     int    `json:"users"`
}

// BuildSessionReport composes a report for c from the given repository
// state and metrics snapshot.
func BuildSessionReport(c *Client, repo repository.State, snap metrics.Snapshot, duration time.Duration) *SessionReport {
	vs := c.Store().State()
	report := &SessionReport{
		ClientID:        c.ID(),
		ClientVersion:   types.Version,
		InstanceLocator: c.config.InstanceLocator,
		DurationMs:      duration.Milliseconds(),
		State:           repo.Kind.String(),
		StoreState: &ReportStore{
			Version:   vs.Version,
			Signature: vs.Signature.String(),
			Rooms:     len(vs.ChatState.JoinedRooms),
			Users:     len(vs.ChatState.Users),
		},
		Rooms:   repo.Rooms,
		Metrics: &snap,
	}
	if report.Rooms == nil {
		report.Rooms = []model.Room{}
	}
	if repo.Err != nil {
		report.Error = repo.Err.Error()
	}

	c.mu.Lock()
	if len(c.notifiers) > 0 {
		var total NotifierStats
		for _, n := range c.notifiers {
			s := n.Stats()
			total.Published += s.Published
			total.Failed += s.Failed
			total.Dropped += s.Dropped
		}
		report.Notifications = &total
	}
	c.mu.Unlock()

	return report
}

// WriteSessionReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteSessionReport(report *SessionReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}
	if path == "-" {
		if err := writeSessionReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	if err := writeSessionReportTo(report, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return f.Close()
}

func writeSessionReportTo(report *SessionReport, w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
