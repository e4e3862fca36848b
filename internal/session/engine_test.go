package session

import (
	"context"
	"testing"
	"time"

	"github.com/kingai-tools/aldlflash/internal/aldl"
	"github.com/kingai-tools/aldlflash/internal/transport/simulator"
)

// newTestEngine wires an Engine directly to an open simulator.ECU,
// bypassing Connect's heartbeat/echo detection (which waits out real
// timeouts against a transport that never emits unsolicited bytes).
func newTestEngine(t *testing.T) (*Engine, *simulator.ECU) {
	t.Helper()
	image := make([]byte, 131072)
	ecu := simulator.New(aldl.DeviceF7, image)
	if err := ecu.Open(); err != nil {
		t.Fatalf("ecu.Open: %v", err)
	}
	cfg := DefaultConfig()
	cfg.MaxRetries = 1
	cfg.Timeout = 200 * time.Millisecond
	e := New(ecu, cfg, nil)
	e.State = Connected
	return e, ecu
}

func TestSilenceAndUnsilence(t *testing.T) {
	e, ecu := newTestEngine(t)
	ctx := context.Background()

	if err := e.Silence(ctx); err != nil {
		t.Fatalf("Silence: %v", err)
	}
	if e.State != Silenced {
		t.Fatalf("expected Silenced state, got %v", e.State)
	}
	if !ecu.Silenced() {
		t.Fatalf("simulator did not record silence")
	}

	if err := e.Unsilence(ctx); err != nil {
		t.Fatalf("Unsilence: %v", err)
	}
	if ecu.Silenced() {
		t.Fatalf("simulator still silenced after Unsilence")
	}
}

func TestUnlockSecurity(t *testing.T) {
	e, ecu := newTestEngine(t)
	ctx := context.Background()

	if err := e.UnlockSecurity(ctx); err != nil {
		t.Fatalf("UnlockSecurity: %v", err)
	}
	if e.State != Unlocked {
		t.Fatalf("expected Unlocked state, got %v", e.State)
	}
	if !ecu.Unlocked() {
		t.Fatalf("simulator did not record unlock")
	}
}

func TestRequestMode1Decoding(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	values, err := e.RequestMode1(ctx, 0)
	if err != nil {
		t.Fatalf("RequestMode1: %v", err)
	}
	if _, ok := values["RPM"]; !ok {
		t.Fatalf("expected RPM in decoded stream, got %v", values)
	}
}

func TestReadRAMRoundTrip(t *testing.T) {
	image := make([]byte, 131072)
	image[0x100] = 0xDE
	image[0x101] = 0xAD
	ecu := simulator.New(aldl.DeviceF7, image)
	_ = ecu.Open()
	cfg := DefaultConfig()
	cfg.MaxRetries = 1
	e := New(ecu, cfg, nil)
	e.State = Connected

	data, err := e.ReadRAM(context.Background(), 0x100, 2, false)
	if err != nil {
		t.Fatalf("ReadRAM: %v", err)
	}
	if len(data) != 2 || data[0] != 0xDE || data[1] != 0xAD {
		t.Fatalf("unexpected ReadRAM result: %v", data)
	}
}

func TestWriteCalRAM(t *testing.T) {
	image := make([]byte, 131072)
	ecu := simulator.New(aldl.DeviceF7, image)
	_ = ecu.Open()
	cfg := DefaultConfig()
	cfg.MaxRetries = 1
	e := New(ecu, cfg, nil)
	e.State = Connected

	if err := e.WriteCalRAM(context.Background(), 0x200, []byte{0x01, 0x02}); err != nil {
		t.Fatalf("WriteCalRAM: %v", err)
	}
	if image[0x200] != 0x01 || image[0x201] != 0x02 {
		t.Fatalf("write did not land in image: %v %v", image[0x200], image[0x201])
	}
}

func TestCancelledTransactionAbortsImmediately(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Cancel()

	resp := e.transact(context.Background(), func() []byte {
		f := aldl.BuildSilence(aldl.DeviceF7)
		return f[:]
	}(), time.Second, 3)
	if resp != nil {
		t.Fatalf("expected nil response after Cancel, got %v", resp)
	}
}
