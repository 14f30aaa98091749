package log_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/pusher/chatkit-go/log"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLoggerWithWriter(log.Context{
		InstanceLocator: "v1:us1:abc",
		ClientID:        "client-1",
	}, &buf, zapcore.DebugLevel)

	logger.Info("connected", map[string]any{"path": "/users"})

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	entry := lines[0]
	if entry["level"] != "info" {
		t.Errorf("expected level info, got %v", entry["level"])
	}
	if entry["message"] != "connected" {
		t.Errorf("expected message connected, got %v", entry["message"])
	}
	if entry["instance_locator"] != "v1:us1:abc" {
		t.Errorf("expected instance_locator, got %v", entry["instance_locator"])
	}
	if entry["client_id"] != "client-1" {
		t.Errorf("expected client_id, got %v", entry["client_id"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("expected timestamp key")
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["path"] != "/users" {
		t.Errorf("expected fields.path, got %v", entry["fields"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLoggerWithWriter(log.Context{}, &buf, zapcore.WarnLevel)

	logger.Debug("hidden", nil)
	logger.Info("hidden", nil)
	logger.Warn("shown", nil)
	logger.Error("shown", nil)

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLoggerWithWriter(log.Context{}, &buf, zapcore.DebugLevel).
		With(map[string]any{"component": "buffer"})

	logger.Debug("held", nil)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["component"] != "buffer" {
		t.Errorf("expected component field, got %v", lines)
	}
}

func TestLogger_NilIsSilent(t *testing.T) {
	var logger *log.Logger
	logger.Info("nothing", nil)
	if logger.With(map[string]any{"a": 1}) != nil {
		t.Error("expected nil logger from nil With")
	}
	if err := logger.Sync(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"", zapcore.InfoLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := log.ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
