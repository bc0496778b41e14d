package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")

	l.Debug("debug line")
	l.Info("info line")
	l.Warn("warn line", "node", "n1")
	l.Error("error line", errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Fatalf("expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN] warn line | node=n1") {
		t.Fatalf("missing warn line: %q", out)
	}
	if !strings.Contains(out, "[ERROR] error line | error=boom") {
		t.Fatalf("missing error line: %q", out)
	}
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug").With("component", "aggregator")

	l.Info("started", "capacity", 32)

	if !strings.Contains(buf.String(), "started | component=aggregator capacity=32") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestParseLevel_DefaultsToInfo(t *testing.T) {
	if got := parseLevel("verbose"); got != INFO {
		t.Fatalf("parseLevel() = %v, want INFO", got)
	}
}
