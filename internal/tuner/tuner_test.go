package tuner

import (
	"context"
	"testing"

	"github.com/kingai-tools/aldlflash/internal/aldl"
	"github.com/kingai-tools/aldlflash/internal/calibration"
	"github.com/kingai-tools/aldlflash/internal/session"
	"github.com/kingai-tools/aldlflash/internal/transport/simulator"
)

func testTable() calibration.TableDescriptor {
	return calibration.TableDescriptor{
		Name:        "test_spark",
		ROMOffset:   0x8000,
		Rows:        2,
		Cols:        4,
		ElementSize: 1,
	}
}

func newTestTuner(t *testing.T, rom []byte) (*Tuner, *simulator.ECU) {
	t.Helper()
	image := make([]byte, 131072)
	ecu := simulator.New(aldl.DeviceF7, image)
	_ = ecu.Open()
	cfg := session.DefaultConfig()
	cfg.MaxRetries = 1
	e := session.New(ecu, cfg, nil)
	e.State = session.Connected
	return New(e, testTable(), rom), ecu
}

func baselineROM() []byte {
	rom := make([]byte, 131072)
	table := testTable()
	for i := 0; i < table.Rows*table.Cols; i++ {
		rom[table.ROMOffset+i] = 20
	}
	return rom
}

func TestSetCellRejectsExcessiveDelta(t *testing.T) {
	tu, _ := newTestTuner(t, baselineROM())
	if err := tu.SetCell(0, 0, 20+defaultMaxDelta+1); err == nil {
		t.Fatalf("expected error for delta exceeding max")
	}
}

func TestSetCellAcceptsWithinDelta(t *testing.T) {
	tu, _ := newTestTuner(t, baselineROM())
	if err := tu.SetCell(0, 0, 20+defaultMaxDelta); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tu.GetCell(0, 0); got != 30 {
		t.Fatalf("expected staged value 30, got %d", got)
	}
}

func TestSetCellOutOfRange(t *testing.T) {
	tu, _ := newTestTuner(t, baselineROM())
	if err := tu.SetCell(99, 99, 20); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestSendUpdatesCoalescesContiguousRun(t *testing.T) {
	tu, ecu := newTestTuner(t, baselineROM())
	if err := tu.SetCell(0, 0, 25); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	if err := tu.SetCell(0, 1, 26); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	if err := tu.SendUpdates(context.Background()); err != nil {
		t.Fatalf("SendUpdates: %v", err)
	}
	// Mode 10 writes address cells by their offset within the table, not by
	// ROM offset — the patched OS's shadow base is implicit on the ECU side.
	if ecu.Image[0] != 25 || ecu.Image[1] != 26 {
		t.Fatalf("ECU image not updated: %v %v", ecu.Image[0], ecu.Image[1])
	}
}

func TestSetMaxDelta(t *testing.T) {
	tu, _ := newTestTuner(t, baselineROM())
	tu.SetMaxDelta(1)
	if err := tu.SetCell(0, 0, 25); err == nil {
		t.Fatalf("expected error: delta 5 exceeds new max 1")
	}
	if err := tu.SetCell(0, 0, 21); err != nil {
		t.Fatalf("unexpected error at boundary: %v", err)
	}
}

func TestCheckSafetyKnockRevertStreak(t *testing.T) {
	tu, _ := newTestTuner(t, baselineROM())
	ctx := context.Background()

	// Three consecutive over-threshold knock samples should trip a revert.
	ok := tu.CheckSafety(ctx, map[string]float64{"Knock Retard": 6})
	if !ok {
		t.Fatalf("expected first over-threshold sample to still pass")
	}
	ok = tu.CheckSafety(ctx, map[string]float64{"Knock Retard": 6})
	if !ok {
		t.Fatalf("expected second over-threshold sample to still pass")
	}
	ok = tu.CheckSafety(ctx, map[string]float64{"Knock Retard": 6})
	if ok {
		t.Fatalf("expected third consecutive over-threshold sample to trip revert")
	}
	if !tu.SafetyReverted {
		t.Fatalf("expected SafetyReverted to be set")
	}
}

func TestCheckSafetyCoolantLimit(t *testing.T) {
	tu, _ := newTestTuner(t, baselineROM())
	ok := tu.CheckSafety(context.Background(), map[string]float64{"ECT Temp": 120})
	if ok {
		t.Fatalf("expected coolant-over-limit sample to fail safety check")
	}
}

func TestCheckSafetyRPMLimit(t *testing.T) {
	tu, _ := newTestTuner(t, baselineROM())
	ok := tu.CheckSafety(context.Background(), map[string]float64{"RPM": 6000})
	if ok {
		t.Fatalf("expected RPM-over-limit sample to fail safety check")
	}
}

func TestRevertToROMRestoresShadow(t *testing.T) {
	tu, ecu := newTestTuner(t, baselineROM())
	_ = tu.SetCell(0, 0, 25)
	if err := tu.RevertToROM(context.Background()); err != nil {
		t.Fatalf("RevertToROM: %v", err)
	}
	if tu.GetCell(0, 0) != 20 {
		t.Fatalf("expected shadow reverted to ROM baseline 20, got %d", tu.GetCell(0, 0))
	}
	if ecu.Image[0] != 20 {
		t.Fatalf("expected ECU image reverted to 20, got %d", ecu.Image[0])
	}
}
