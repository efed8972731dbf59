package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"log/slog"
)

func TestDefaultLogDirPathSuffix(t *testing.T) {
	path, err := DefaultLogDirPath()
	if err != nil {
		t.Fatalf("DefaultLogDirPath() error = %v", err)
	}
	if got, want := path, filepath.Join("mmstudio", "logs"); !strings.HasSuffix(got, want) {
		t.Fatalf("DefaultLogDirPath() = %q, want suffix %q", got, want)
	}
}

func TestFileSinkWritesJSONLAndRotates(t *testing.T) {
	tmp := t.TempDir()
	sink := &fileSink{
		dir:        tmp,
		sessionTag: "20260829-120000",
		maxBytes:   180,
	}
	if err := sink.rotateLocked(); err != nil {
		t.Fatalf("rotateLocked() error = %v", err)
	}

	event := Event{
		Time:    time.Unix(1700000000, 123456789),
		Level:   slog.LevelDebug,
		Message: "acquisition frame stored",
		Fields: map[string]any{
			"frame":    7,
			"sequence": "abc",
		},
	}

	for i := 0; i < 6; i++ {
		if err := sink.WriteEvent(event); err != nil {
			t.Fatalf("WriteEvent() error = %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected rotation to create multiple files, got %d", len(entries))
	}

	data, err := os.ReadFile(filepath.Join(tmp, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	first := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)[0]
	var line jsonLogLine
	if err := json.Unmarshal([]byte(first), &line); err != nil {
		t.Fatalf("Unmarshal() error = %v, line = %q", err, first)
	}
	if line.Level != "DEBUG" || line.Message != "acquisition frame stored" {
		t.Fatalf("unexpected log line: %#v", line)
	}
}

func TestLoggerSubscribeFanOut(t *testing.T) {
	logger := New(false)
	logger.SetTerminalOutputEnabled(false)

	var got []Event
	unsubscribe := logger.Subscribe(func(event Event) {
		got = append(got, event)
	})

	logger.Info("core connected", Field("devices", 4))
	logger.Debug("hidden while debug disabled")
	unsubscribe()
	logger.Info("after unsubscribe")

	if len(got) != 1 {
		t.Fatalf("expected one published event, got %d", len(got))
	}
	if got[0].Message != "core connected" {
		t.Fatalf("unexpected event: %#v", got[0])
	}
}
