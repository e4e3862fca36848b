package datalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kingai-tools/aldlflash/internal/aldl"
	"github.com/kingai-tools/aldlflash/internal/session"
	"github.com/kingai-tools/aldlflash/internal/transport/simulator"
)

// fakeSink records rows in memory instead of touching disk.
type fakeSink struct {
	mu     sync.Mutex
	rows   [][]string
	closed bool
}

func (s *fakeSink) WriteRow(timestamp string, elapsed float64, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, append([]string{timestamp}, values...))
	return nil
}

func (s *fakeSink) Flush() error { return nil }

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSink) rowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func newTestEngine(t *testing.T) *session.Engine {
	t.Helper()
	image := make([]byte, 131072)
	ecu := simulator.New(aldl.DeviceF7, image)
	if err := ecu.Open(); err != nil {
		t.Fatalf("ecu.Open: %v", err)
	}
	cfg := session.DefaultConfig()
	cfg.MaxRetries = 1
	cfg.Timeout = 200 * time.Millisecond
	e := session.New(ecu, cfg, nil)
	e.State = session.Connected
	return e
}

func TestLoggerStartStopCollectsSamples(t *testing.T) {
	e := newTestEngine(t)
	logger := New(e, []string{"RPM", "ECT Temp"})
	sink := &fakeSink{}

	if err := logger.Start(context.Background(), sink); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	logger.Stop()

	if sink.rowCount() == 0 {
		t.Fatalf("expected at least one row recorded")
	}
	if !sink.closed {
		t.Fatalf("expected sink to be closed after Stop")
	}
	if logger.Latest() == nil {
		t.Fatalf("expected Latest() to return the most recent sample")
	}
}

func TestLoggerStartTwiceFails(t *testing.T) {
	e := newTestEngine(t)
	logger := New(e, nil)
	sink := &fakeSink{}

	if err := logger.Start(context.Background(), sink); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer logger.Stop()

	if err := logger.Start(context.Background(), sink); err == nil {
		t.Fatalf("expected error starting an already-running logger")
	}
}

func TestDefaultLogPathPattern(t *testing.T) {
	at := time.Date(2026, 7, 31, 14, 5, 9, 0, time.UTC)
	path, err := DefaultLogPath("/tmp", at)
	if err != nil {
		t.Fatalf("DefaultLogPath: %v", err)
	}
	want := filepath.Join("/tmp", "datalog_20260731_140509.csv")
	if path != want {
		t.Fatalf("unexpected path: got %s want %s", path, want)
	}
}

func TestCSVSinkFlushesEveryNRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	sink, err := NewCSVSink(path, []string{"RPM"}, 2)
	if err != nil {
		t.Fatalf("NewCSVSink: %v", err)
	}
	defer sink.Close()

	for i := 0; i < 3; i++ {
		if err := sink.WriteRow("t", float64(i), []string{"1"}); err != nil {
			t.Fatalf("WriteRow: %v", err)
		}
	}
	if sink.rowCount != 3 {
		t.Fatalf("expected 3 rows tracked, got %d", sink.rowCount)
	}

	// The flush at the second row put the header and two rows on disk;
	// the third row is still buffered.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if lines := strings.Count(string(raw), "\n"); lines != 3 {
		t.Fatalf("expected header plus 2 flushed rows on disk, got %d lines", lines)
	}
}
