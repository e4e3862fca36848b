package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.conf")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesKeyValueAndEquals(t *testing.T) {
	path := writeConfig(t, "# comment\nDEVICE_ID 0xF7\nBAUD=8192\n")
	set, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	line, ok := set.Get("device_id")
	if !ok || line.Value != "0xF7" {
		t.Fatalf("unexpected DEVICE_ID line: %+v ok=%v", line, ok)
	}
	line, ok = set.Get("BAUD")
	if !ok || line.Equal != "8192" {
		t.Fatalf("unexpected BAUD line: %+v ok=%v", line, ok)
	}
}

func TestLoadIgnoresCommentsAndBlankLines(t *testing.T) {
	path := writeConfig(t, "\n# just a comment\n   \nMAX_RETRIES 5\n")
	set, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n := set.Int("MAX_RETRIES", -1); n != 5 {
		t.Fatalf("expected 5, got %d", n)
	}
}

func TestIntFallsBackToDefault(t *testing.T) {
	path := writeConfig(t, "TIMEOUT_MS notanumber\n")
	set, _ := Load(path)
	if n := set.Int("TIMEOUT_MS", 42); n != 42 {
		t.Fatalf("expected default 42 for unparseable int, got %d", n)
	}
	if n := set.Int("MISSING", 7); n != 7 {
		t.Fatalf("expected default 7 for missing key, got %d", n)
	}
}

func TestBoolVariants(t *testing.T) {
	path := writeConfig(t, "A on\nB 1\nC false\nD\n")
	set, _ := Load(path)
	if !set.Bool("A", false) {
		t.Fatalf("expected A true")
	}
	if !set.Bool("B", false) {
		t.Fatalf("expected B true")
	}
	if set.Bool("C", true) {
		t.Fatalf("expected C false")
	}
	if !set.Bool("D", false) {
		t.Fatalf("expected bare key D to default true")
	}
	if !set.Bool("MISSING", true) {
		t.Fatalf("expected default true for missing key")
	}
}

func TestExtraCommaSeparatedValues(t *testing.T) {
	path := writeConfig(t, "LIST a, b, c\n")
	set, _ := Load(path)
	line, ok := set.Get("LIST")
	if !ok {
		t.Fatalf("expected LIST to be present")
	}
	if len(line.Extra) != 2 || line.Extra[0] != "b" || line.Extra[1] != "c" {
		t.Fatalf("unexpected Extra: %+v", line.Extra)
	}
}

func TestLastOccurrenceWins(t *testing.T) {
	path := writeConfig(t, "BAUD 1200\nBAUD 8192\n")
	set, _ := Load(path)
	if n := set.Int("BAUD", 0); n != 8192 {
		t.Fatalf("expected last occurrence 8192, got %d", n)
	}
}
