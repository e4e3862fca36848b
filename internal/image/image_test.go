package image

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kingai-tools/aldlflash/internal/calibration"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writeTemp: %v", err)
	}
	return path
}

func TestLoadRejectsWrongSize(t *testing.T) {
	path := writeTemp(t, "bad.bin", make([]byte, 100))
	if _, err := Load(path, true); err == nil {
		t.Fatalf("expected error loading undersized file")
	}
}

func TestLoadPadsCalFile(t *testing.T) {
	cal := make([]byte, CalSize)
	cal[0] = 0xAB
	path := writeTemp(t, "cal.bin", cal)

	img, err := Load(path, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !img.Padded() {
		t.Fatalf("expected Padded() true")
	}
	if img.Bytes()[CalOffset] != 0xAB {
		t.Fatalf("cal bytes not copied to CalOffset")
	}
	if img.Bytes()[0] != 0xFF {
		t.Fatalf("region outside cal window should be erased (0xFF)")
	}
}

func TestLoadRejectsCalFileWhenPaddingDisallowed(t *testing.T) {
	path := writeTemp(t, "cal.bin", make([]byte, CalSize))
	if _, err := Load(path, false); err == nil {
		t.Fatalf("expected error: cal padding disallowed")
	}
}

func TestChecksumRoundTrip(t *testing.T) {
	path := writeTemp(t, "full.bin", make([]byte, Size))
	img, err := Load(path, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// An all-zero image's stored checksum (0) already matches its computed
	// checksum (sum of zeros is 0), so mutate one summed byte first to get
	// a meaningful before/after.
	img.data[checksumRangeLow] = 0x7F
	if img.VerifyChecksum() {
		t.Fatalf("expected stale checksum to fail verification after mutation")
	}
	old, newCS := img.FixChecksum()
	if old != 0 {
		t.Fatalf("expected old checksum 0 before fixing, got %d", old)
	}
	if !img.VerifyChecksum() {
		t.Fatalf("VerifyChecksum should pass immediately after FixChecksum")
	}
	if newCS != img.Checksum() {
		t.Fatalf("FixChecksum return value should match Checksum()")
	}
}

func TestChecksumExcludesSkipWindow(t *testing.T) {
	path := writeTemp(t, "full.bin", make([]byte, Size))
	img, _ := Load(path, false)
	before := img.Checksum()
	// Mutate a byte inside the skip window; checksum must not change.
	img.data[checksumSkipStart] = 0x42
	after := img.Checksum()
	if before != after {
		t.Fatalf("checksum changed after mutating skip window: %d -> %d", before, after)
	}
	// Mutate a byte inside the summed range but outside the skip window.
	img.data[checksumRangeLow+10] = 0x42
	after2 := img.Checksum()
	if after2 == before {
		t.Fatalf("checksum should change after mutating summed range")
	}
}

func TestDiffSectors(t *testing.T) {
	pathA := writeTemp(t, "a.bin", make([]byte, Size))
	imgA, _ := Load(pathA, false)

	bufB := make([]byte, Size)
	bufB[3*sectorSize] = 0x01 // touch sector 3
	pathB := writeTemp(t, "b.bin", bufB)
	imgB, _ := Load(pathB, false)

	diff := DiffSectors(imgA, imgB)
	if len(diff) != 1 || diff[0] != 3 {
		t.Fatalf("expected diff [3], got %v", diff)
	}
}

func TestReadWriteTableRoundTrip(t *testing.T) {
	path := writeTemp(t, "full.bin", make([]byte, Size))
	img, _ := Load(path, false)

	td := calibration.TableDescriptor{
		Name:        "test",
		ROMOffset:   0x5000,
		Rows:        2,
		Cols:        3,
		ElementSize: 2,
	}
	values := [][]int{
		{1, 2, 3},
		{1000, 2000, 3000},
	}
	img.WriteTable(td, values)
	got := img.ReadTable(td)
	for r := range values {
		for c := range values[r] {
			if got[r][c] != values[r][c] {
				t.Fatalf("mismatch at [%d][%d]: want %d got %d", r, c, values[r][c], got[r][c])
			}
		}
	}
}

func TestOSID(t *testing.T) {
	buf := make([]byte, Size)
	buf[0x2000] = 0x06
	buf[0x2001] = 0x0A
	path := writeTemp(t, "full.bin", buf)
	img, _ := Load(path, false)
	if img.OSID() != "$060A" {
		t.Fatalf("unexpected OSID: %s", img.OSID())
	}
}
