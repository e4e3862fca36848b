/*
 * aldlflash - Live calibration tuner.
 *
 * Copyright 2026, KingAi Tools Contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package tuner implements real-time calibration tuning over ALDL: a RAM
// shadow of one calibration table, bounded per-cell deltas from the ROM
// baseline, coalesced Mode 10 writes, and a knock/coolant/RPM safety
// watchdog that can revert the whole table back to ROM values.
//
// It requires a patched OS image with an RT_WRITE handler installed —
// ordinary production calibrations do not honor Mode 10 cell writes.
package tuner

import (
	"context"
	"fmt"
	"sort"

	"github.com/kingai-tools/aldlflash/internal/calibration"
	"github.com/kingai-tools/aldlflash/internal/session"
	"github.com/kingai-tools/aldlflash/internal/tuner/ring"
)

// RTFlag marks a Mode 10 write as a real-time cell write rather than a
// malfunction-clear command; bit 7 set distinguishes the two in the
// patched OS's handler.
const RTFlag = 0x80

const (
	defaultMaxDelta     = 10
	knockHistoryDepth   = 10
	knockRevertStreak   = 3
	knockRevertThresh   = 5.0
	coolantSafetyLimitC = 110.0
	rpmSafetyLimit      = 5500.0
	maxRunBytes         = 50
)

// Run is one contiguous span of dirty shadow bytes, ready to ship as a
// single Mode 10 write.
type Run struct {
	StartOffset int
	Data        []byte
}

// Tuner holds one calibration table's RAM shadow and ROM baseline plus the
// safety watchdog state that gates live writes.
type Tuner struct {
	Engine *session.Engine
	Table  calibration.TableDescriptor

	shadow  []byte
	rom     []byte
	dirty   map[int]struct{}
	maxDelta int

	knock          *ring.Buffer
	SafetyReverted bool
}

// New builds a Tuner for table, with the table's byte range loaded from
// romImage starting at table.ROMOffset.
func New(e *session.Engine, table calibration.TableDescriptor, romImage []byte) *Tuner {
	size := table.ByteSize()
	t := &Tuner{
		Engine:   e,
		Table:    table,
		shadow:   make([]byte, size),
		rom:      make([]byte, size),
		dirty:    make(map[int]struct{}),
		maxDelta: defaultMaxDelta,
		knock:    ring.New(knockHistoryDepth),
	}
	copy(t.shadow, romImage[table.ROMOffset:table.ROMOffset+size])
	copy(t.rom, romImage[table.ROMOffset:table.ROMOffset+size])
	return t
}

// SetMaxDelta overrides the default ±10 per-cell delta bound (spec.md §9
// configurable max-delta).
func (t *Tuner) SetMaxDelta(d int) {
	if d > 0 {
		t.maxDelta = d
	}
}

// SetCell stages a new value for one cell, rejecting it if its delta from
// the ROM baseline exceeds maxDelta.
func (t *Tuner) SetCell(row, col, value int) error {
	offset := row*t.Table.Cols + col
	if offset < 0 || offset >= len(t.shadow) {
		return fmt.Errorf("tuner: cell [%d,%d] out of range", row, col)
	}
	if value < 0 || value > 255 {
		return fmt.Errorf("tuner: value %d out of byte range", value)
	}
	romVal := int(t.rom[offset])
	delta := value - romVal
	if delta < 0 {
		delta = -delta
	}
	if delta > t.maxDelta {
		return fmt.Errorf("tuner: cell [%d,%d] delta %d exceeds max %d", row, col, delta, t.maxDelta)
	}
	t.shadow[offset] = byte(value)
	t.dirty[offset] = struct{}{}
	return nil
}

// GetCell returns the current shadow value for one cell.
func (t *Tuner) GetCell(row, col int) int {
	offset := row*t.Table.Cols + col
	if offset < 0 || offset >= len(t.shadow) {
		return 0
	}
	return int(t.shadow[offset])
}

// SendUpdates coalesces every dirty cell into contiguous runs and ships
// each as a Mode 10 write, clearing the dirty set only on full success.
func (t *Tuner) SendUpdates(ctx context.Context) error {
	if len(t.dirty) == 0 {
		return nil
	}

	offsets := make([]int, 0, len(t.dirty))
	for o := range t.dirty {
		offsets = append(offsets, o)
	}
	sort.Ints(offsets)

	for _, run := range t.findRuns(offsets) {
		// Address is the run's start offset within the table itself — the
		// patched OS's RT_WRITE handler knows the shadow's base in RAM, so
		// the wire address must not be ROM-offset-relative.
		if err := t.Engine.WriteCalRAM(ctx, uint16(run.StartOffset), run.Data); err != nil {
			return fmt.Errorf("tuner: write failed for offset $%04X: %w", run.StartOffset, err)
		}
	}
	t.dirty = make(map[int]struct{})
	return nil
}

// findRuns coalesces sorted dirty offsets into contiguous spans no longer
// than maxRunBytes, matching the reference tool's batching rule.
func (t *Tuner) findRuns(offsets []int) []Run {
	if len(offsets) == 0 {
		return nil
	}
	var runs []Run
	start, end := offsets[0], offsets[0]
	for _, o := range offsets[1:] {
		if o == end+1 && (o-start) < maxRunBytes {
			end = o
			continue
		}
		runs = append(runs, Run{StartOffset: start, Data: append([]byte(nil), t.shadow[start:end+1]...)})
		start, end = o, o
	}
	runs = append(runs, Run{StartOffset: start, Data: append([]byte(nil), t.shadow[start:end+1]...)})
	return runs
}

// CheckSafety inspects one decoded sensor sample against the knock/
// coolant/RPM watchdog thresholds. It returns false whenever a write
// should be refused; a knock-retard streak additionally triggers an
// automatic revert to ROM values.
func (t *Tuner) CheckSafety(ctx context.Context, sample map[string]float64) bool {
	knock := sample["Knock Retard"]
	t.knock.Push(knock)

	if t.knock.Len() >= knockRevertStreak {
		recent := t.knock.Last(knockRevertStreak)
		allOver := true
		for _, k := range recent {
			if k <= knockRevertThresh {
				allOver = false
				break
			}
		}
		if allOver {
			_ = t.RevertToROM(ctx)
			return false
		}
	}

	if coolant, ok := sample["ECT Temp"]; ok && coolant > coolantSafetyLimitC {
		return false
	}
	if rpm, ok := sample["RPM"]; ok && rpm > rpmSafetyLimit {
		return false
	}
	return true
}

// RevertToROM resets the shadow to the ROM baseline, marks every cell
// dirty, and pushes the revert out to the ECU.
func (t *Tuner) RevertToROM(ctx context.Context) error {
	copy(t.shadow, t.rom)
	t.dirty = make(map[int]struct{}, len(t.shadow))
	for i := range t.shadow {
		t.dirty[i] = struct{}{}
	}
	t.SafetyReverted = true
	return t.SendUpdates(ctx)
}
