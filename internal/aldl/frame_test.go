package aldl

import (
	"errors"
	"testing"

	"github.com/kingai-tools/aldlflash/internal/aldlerr"
	"github.com/kingai-tools/aldlflash/internal/telemetry"
)

func TestChecksumRoundTrip(t *testing.T) {
	f := BuildSilence(DeviceF7)
	if !VerifyChecksum(f[:]) {
		t.Fatalf("freshly built frame failed checksum verification")
	}
}

func TestChecksumOfZeroBodyIsNonZero(t *testing.T) {
	// Device, mode and data bytes are all zero, but the length byte makes
	// the bytes before the checksum sum to 0x56, so the checksum byte is
	// its non-zero complement (0xAA).
	buf := []byte{0x00, 0x56, 0x00, 0x00}
	cs := Checksum(buf)
	if cs == 0 {
		t.Fatalf("checksum of a frame with an all-zero body must not be 0x00, got %02X", cs)
	}
}

func TestParseRejectsShortBuffer(t *testing.T) {
	_, err := Parse([]byte{0xF7})
	if err == nil {
		t.Fatalf("expected error for short buffer")
	}
	var ae *aldlerr.Error
	if !errors.As(err, &ae) || !errors.Is(err, aldlerr.ErrFrameMalformed) {
		t.Fatalf("expected ErrFrameMalformed, got %v", err)
	}
}

func TestParseRejectsBadChecksum(t *testing.T) {
	f := BuildSilence(DeviceF7)
	buf := f[:]
	wire := WireLength(buf)
	corrupted := make([]byte, wire)
	copy(corrupted, buf[:wire])
	corrupted[2] ^= 0xFF // flip the mode byte without fixing the checksum

	_, err := Parse(corrupted)
	if !errors.Is(err, aldlerr.ErrFrameMalformed) {
		t.Fatalf("expected ErrFrameMalformed, got %v", err)
	}
}

func TestParseAcceptsValidFrame(t *testing.T) {
	f := BuildEnterProgramming(DeviceF7)
	wire := WireLength(f[:])
	parsed, err := Parse(f[:wire])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed[2] != Mode5EnterProg {
		t.Fatalf("mode byte mismatch: got %02X", parsed[2])
	}
}

func TestSeedToKey(t *testing.T) {
	// key = (37709 - (seed_lo*256 + seed_hi)) mod 65536
	got := SeedToKey(0x00, 0x00)
	if got != 37709 {
		t.Fatalf("seed 0,0 -> want 37709, got %d", got)
	}

	// Pick a seed large enough to force the wraparound branch.
	got = SeedToKey(0xFF, 0xFF)
	seed := int(0xFF)*256 + int(0xFF)
	want := uint16((37709 - seed + 65536) % 65536)
	if got != want {
		t.Fatalf("seed 0xFF,0xFF -> want %d, got %d", want, got)
	}
}

func TestBuildWriteCalRAMLengthByte(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	f := BuildWriteCalRAM(DeviceF7, 0x1234, data)
	if !VerifyChecksum(f[:]) {
		t.Fatalf("checksum invalid")
	}
	wire := WireLength(f[:])
	// device + length + mode + addr(2) + data(3) + checksum = 9
	if wire != 1+1+1+2+len(data)+1 {
		t.Fatalf("unexpected wire length %d", wire)
	}
}

func TestBuildFlashWrite24BitAddress(t *testing.T) {
	data := []byte{0xAA, 0xBB}
	f := BuildFlashWrite(DeviceF7, 0x012345, data)
	if f[3] != 0x01 || f[4] != 0x23 || f[5] != 0x45 {
		t.Fatalf("24-bit address not split correctly: %02X %02X %02X", f[3], f[4], f[5])
	}
	if !VerifyChecksum(f[:]) {
		t.Fatalf("checksum invalid")
	}
}

func TestDecodeSensorStream(t *testing.T) {
	params := []telemetry.ParameterDescriptor{
		{Name: "RPM", PacketOffset: 0, Size: 2, Scale: 25.0, Offset: 0},
		{Name: "ECT Temp", PacketOffset: 2, Size: 1, Scale: 0.75, Offset: -40},
	}
	data := []byte{0x01, 0x00, 100} // RPM raw=256 -> 6400; ECT raw=100 -> 35.0
	out := DecodeSensorStream(data, params)
	if out["RPM"] != 6400 {
		t.Fatalf("RPM decode mismatch: got %v", out["RPM"])
	}
	if out["ECT Temp"] != 35 {
		t.Fatalf("ECT Temp decode mismatch: got %v", out["ECT Temp"])
	}
}

func TestDecodeSensorStreamSkipsOutOfRange(t *testing.T) {
	params := []telemetry.ParameterDescriptor{
		{Name: "Oversized", PacketOffset: 10, Size: 2, Scale: 1, Offset: 0},
	}
	out := DecodeSensorStream([]byte{0x01, 0x02}, params)
	if _, ok := out["Oversized"]; ok {
		t.Fatalf("expected out-of-range parameter to be skipped")
	}
}

func TestEraseMapForKnownModes(t *testing.T) {
	if len(EraseMapFor(ModeCAL)) != 1 {
		t.Fatalf("ModeCAL erase plan should have exactly 1 step")
	}
	if len(EraseMapFor(ModeBIN)) != 7 {
		t.Fatalf("ModeBIN erase plan should have exactly 7 steps")
	}
	if len(EraseMapFor(ModePROM)) != 8 {
		t.Fatalf("ModePROM erase plan should have exactly 8 steps")
	}
}

func TestWriteRangesCoverFileOffsets(t *testing.T) {
	r := WriteRanges[ModeBIN]
	if r.Start != 0x2000 || r.End != 0x1BFFF {
		t.Fatalf("unexpected BIN write range: %v", r)
	}
}
