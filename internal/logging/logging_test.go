package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"rewario/internal/config"
)

func TestJSONLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	log.Info().Msg("hidden")
	log.Warn().Str("task_id", "task-1").Msg("shown")
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["message"] != "shown" || entry["task_id"] != "task-1" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LogConfig{Level: "loud", Format: "json"}, &buf)
	log.Debug().Msg("debug")
	log.Info().Msg("info")
	if bytes.Contains(buf.Bytes(), []byte("debug")) || !bytes.Contains(buf.Bytes(), []byte("info")) {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
