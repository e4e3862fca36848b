package flash

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/kingai-tools/aldlflash/internal/aldl"
	"github.com/kingai-tools/aldlflash/internal/image"
	"github.com/kingai-tools/aldlflash/internal/session"
	"github.com/kingai-tools/aldlflash/internal/transport/simulator"
)

func newTestOrchestrator(t *testing.T, backing []byte) (*Orchestrator, *simulator.ECU) {
	t.Helper()
	ecu := simulator.New(aldl.DeviceF7, backing)
	if err := ecu.Open(); err != nil {
		t.Fatalf("ecu.Open: %v", err)
	}
	cfg := session.DefaultConfig()
	cfg.MaxRetries = 1
	cfg.Timeout = 200 * time.Millisecond
	cfg.WriteChunkSize = 64
	e := session.New(ecu, cfg, nil)
	e.State = session.Connected
	return New(e), ecu
}

func TestReadImageReturnsECUBackingStore(t *testing.T) {
	backing := make([]byte, image.Size)
	backing[0x2000] = 0x06
	backing[0x2001] = 0x0A
	backing[0x10000] = 0xEE

	orch, _ := newTestOrchestrator(t, backing)
	img, err := orch.ReadImage(context.Background())
	if err != nil {
		t.Fatalf("ReadImage: %v", err)
	}
	if !bytes.Equal(img.Bytes(), backing) {
		t.Fatalf("read image does not match ECU backing store")
	}
}

func TestWriteImageProgramsBankedRanges(t *testing.T) {
	backing := make([]byte, image.Size)
	orch, _ := newTestOrchestrator(t, backing)

	srcBuf := make([]byte, image.Size)
	for i := range srcBuf {
		srcBuf[i] = 0xFF
	}
	tmp := t.TempDir() + "/src.bin"
	if err := os.WriteFile(tmp, srcBuf, 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	src, err := image.Load(tmp, false)
	if err != nil {
		t.Fatalf("image.Load: %v", err)
	}
	src.FixChecksum()

	if err := orch.WriteImage(context.Background(), src, aldl.ModeCAL, true); err != nil {
		t.Fatalf("WriteImage: %v", err)
	}

	// ModeCAL's write range is [0x4000, 0x7FFF], all within Bank72 with
	// zero PCM offset, so the backing store must reflect the written byte.
	if backing[0x4000] != 0xFF {
		t.Fatalf("expected backing store to be programmed at 0x4000, got %02X", backing[0x4000])
	}
}
