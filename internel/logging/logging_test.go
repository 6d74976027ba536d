package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in    string
		level slog.Level
		ok    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	}
	for _, tc := range testCases {
		level, err := ParseLevel(tc.in)
		if (err == nil) != tc.ok {
			t.Errorf("[%s] Expected ok=%v, but got %v", tc.in, tc.ok, err)
		}
		if level != tc.level {
			t.Errorf("[%s] Expected %v, but got %v", tc.in, tc.level, level)
		}
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("jack client ready", "sample_rate", 48000)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected debug records to be dropped, but got %q", out)
	}
	if !strings.Contains(out, "sample_rate=48000") {
		t.Errorf("Expected the attribute in %q", out)
	}
	if strings.Contains(out, "source=") {
		t.Errorf("Expected no source outside debug, but got %q", out)
	}

	buf.Reset()
	New(&buf, slog.LevelDebug).Debug("shown")
	if !strings.Contains(buf.String(), "source=") {
		t.Errorf("Expected a source location in debug, but got %q", buf.String())
	}
}
