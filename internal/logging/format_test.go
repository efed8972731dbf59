package logging

import (
	"strings"
	"testing"
	"time"

	"log/slog"
)

type structPayload struct {
	Device string `json:"device"`
	Value  int    `json:"value"`
}

func TestPrettyJSONString_PlainStringIgnored(t *testing.T) {
	if _, ok := prettyJSONString("device unavailable: Camera"); ok {
		t.Fatalf("expected plain strings to stay inline")
	}
}

func TestPrettyJSONString_StructField(t *testing.T) {
	pretty, ok := prettyJSONString(structPayload{Device: "ZStage", Value: 2})
	if !ok {
		t.Fatalf("expected struct to be rendered as pretty JSON")
	}
	if pretty == "" || pretty[0] != '{' {
		t.Fatalf("expected pretty JSON object, got %q", pretty)
	}
}

func TestOrderedFieldKeys_JSONBlocksLast(t *testing.T) {
	fields := map[string]any{
		"device": "Camera",
		"index":  map[string]any{"t": 3, "c": 0},
		"error":  "timeout",
	}
	keys := orderedFieldKeys(fields)
	if len(keys) != 3 {
		t.Fatalf("unexpected keys length: %d", len(keys))
	}
	if keys[len(keys)-1] != "index" {
		t.Fatalf("expected index block last, got %v", keys)
	}
}

func TestFormatEventLine(t *testing.T) {
	event := Event{
		Time:    time.Date(2026, 2, 21, 12, 30, 45, 0, time.UTC),
		Level:   slog.LevelWarn,
		Message: "stage move failed",
		Fields:  map[string]any{"device": "XYStage"},
	}
	line := FormatEventLine(event)
	if !strings.Contains(line, "[WARN] stage move failed device=XYStage") {
		t.Fatalf("FormatEventLine() = %q", line)
	}
}

func TestTruncateCollapsesAndClips(t *testing.T) {
	if got := Truncate("  \n "); got != "<empty>" {
		t.Fatalf("Truncate(blank) = %q", got)
	}
	long := strings.Repeat("x", clipLimit+20)
	if got := Truncate(long); len(got) != clipLimit+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("Truncate(long) length = %d", len(got))
	}
}
