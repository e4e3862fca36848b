package obslog

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWritesStructuredLineToFile(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false)
	logger.Info("hello world", "key", "value")

	out := buf.String()
	if !strings.Contains(out, "hello world") {
		t.Fatalf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "key=value") {
		t.Fatalf("expected attr in output, got %q", out)
	}
	if !strings.Contains(out, "INFO:") {
		t.Fatalf("expected level in output, got %q", out)
	}
}

func TestNewWithNilFileDiscardsWithoutPanicking(t *testing.T) {
	logger := New(nil, false)
	logger.Info("should not panic")
}

func TestWithAttrsPreservesFileSink(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false)
	child := logger.With("component", "flash")
	child.Warn("erasing sector")

	out := buf.String()
	if !strings.Contains(out, "component=flash") {
		t.Fatalf("expected inherited attr, got %q", out)
	}
	if !strings.Contains(out, "WARN:") {
		t.Fatalf("expected WARN level, got %q", out)
	}
}

func TestHandlerEnabledRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}, false)
	if h.Enabled(nil, slog.LevelInfo) {
		t.Fatalf("expected Info to be disabled at Warn level")
	}
	if !h.Enabled(nil, slog.LevelError) {
		t.Fatalf("expected Error to be enabled at Warn level")
	}
}
