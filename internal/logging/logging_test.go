package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_WritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	l := New("info", &buf)
	l.Info("hello", "user", "alice")

	var out map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if got := out["service"]; got != serviceName {
		t.Errorf("service = %v, want %q", got, serviceName)
	}
	if got := out["msg"]; got != "hello" {
		t.Errorf("msg = %v, want hello", got)
	}
	if got := out["user"]; got != "alice" {
		t.Errorf("user = %v, want alice", got)
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("warn", &buf)
	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info written at warn level: %q", buf.String())
	}
	l.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOpen_CreatesDirAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "threadline.log")

	for i := 0; i < 2; i++ {
		l, closer, err := Open(path, "info")
		if err != nil {
			t.Fatalf("Open returned error: %v", err)
		}
		l.Info("line")
		if err := closer.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Fatalf("log has %d lines, want 2", n)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, _, err := Open("  ", "info"); err == nil {
		t.Fatalf("Open returned nil error, want error")
	}
}
