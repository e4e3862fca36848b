package calconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kingai-tools/aldlflash/internal/calibration"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tables.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

func TestLoadParsesTable(t *testing.T) {
	path := writeYAML(t, `
osid: "060A"
tables:
  boost_target:
    name: Boost Target
    rom_offset: 31248
    rows: 10
    cols: 10
    element_size: 1
`)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.OSID != "060A" {
		t.Fatalf("unexpected OSID: %s", f.OSID)
	}
	td, ok := f.Tables["boost_target"]
	if !ok {
		t.Fatalf("expected boost_target table")
	}
	if td.Rows != 10 || td.Cols != 10 || td.ElementSize != 1 {
		t.Fatalf("unexpected table descriptor: %+v", td)
	}
}

func TestLoadDefaultsElementSizeToOne(t *testing.T) {
	path := writeYAML(t, `
tables:
  spark:
    rows: 2
    cols: 2
`)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Tables["spark"].ElementSize != 1 {
		t.Fatalf("expected default element_size 1, got %d", f.Tables["spark"].ElementSize)
	}
}

func TestLoadRejectsInvalidRowsCols(t *testing.T) {
	path := writeYAML(t, `
tables:
  bad:
    rows: 0
    cols: 5
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for zero rows")
	}
}

func TestLoadRejectsInvalidElementSize(t *testing.T) {
	path := writeYAML(t, `
tables:
  bad:
    rows: 2
    cols: 2
    element_size: 4
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for invalid element_size")
	}
}

func TestMergeOverridesBase(t *testing.T) {
	base := map[string]calibration.TableDescriptor{
		"spark_hi_oct": {Name: "base spark", Rows: 1, Cols: 1},
	}
	f := &File{Tables: map[string]calibration.TableDescriptor{
		"spark_hi_oct": {Name: "overridden spark", Rows: 2, Cols: 2},
		"new_table":    {Name: "new", Rows: 3, Cols: 3},
	}}
	merged := f.Merge(base)
	if merged["spark_hi_oct"].Name != "overridden spark" {
		t.Fatalf("expected override to win, got %+v", merged["spark_hi_oct"])
	}
	if _, ok := merged["new_table"]; !ok {
		t.Fatalf("expected new_table to be present")
	}
}
