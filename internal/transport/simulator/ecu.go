/*
 * aldlflash - In-process virtual ECU used by tests.
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

// Package simulator is an in-process deterministic stand-in for a real ECU,
// used by the session/flash/tuner test suites instead of real hardware.
//
// It mirrors the shape of the teacher's emu/test_dev.TestDev: a single
// command (here, one frame) is decoded and answered synchronously, with the
// prepared reply handed back on the next Read rather than on a callback.
// There is no goroutine and no channel here because the protocol this
// package answers is strictly half-duplex request/response, unlike the
// teacher's channel-program device which must interleave multiple commands.
package simulator

import (
	"context"
	"time"

	"github.com/kingai-tools/aldlflash/internal/aldl"
	"github.com/kingai-tools/aldlflash/internal/aldlerr"
)

const (
	fixedSeedHi = 0x12
	fixedSeedLo = 0x34
)

// simMode1 is the fixed 60-byte sensor snapshot the Python LoopbackTransport
// returns for Mode 1 message 0: RPM raw 0x0020 (32 x 25 scale -> 800 RPM,
// an idle figure), ECT raw 120, battery raw 140, IAC raw 30.
var simMode1 = func() []byte {
	data := make([]byte, 60)
	data[0] = 0x00
	data[1] = 0x20
	data[5] = 120
	data[29] = 140
	data[42] = 30
	return data
}()

// ECU is a fully in-memory virtual engine controller: it holds a 128 KiB
// image, a session-state mirror, and answers ALDL frames exactly the way
// the real ECU's kernel would, so the session/flash/tuner packages can be
// exercised without a serial cable.
type ECU struct {
	DeviceID aldl.DeviceID
	Image    []byte // 131072 bytes, caller-owned

	open      bool
	silenced  bool
	unlocked  bool
	seedSent  bool
	pending   []byte // bytes queued for the next Read
	inputBuf  []byte // bytes written but not yet decoded as a full frame
}

// New constructs an ECU simulator over a caller-supplied image buffer.
func New(dev aldl.DeviceID, image []byte) *ECU {
	return &ECU{DeviceID: dev, Image: image}
}

// Open implements transport.Transport.
func (e *ECU) Open() error {
	e.open = true
	return nil
}

// Close implements transport.Transport.
func (e *ECU) Close() error {
	e.open = false
	return nil
}

// IsOpen implements transport.Transport.
func (e *ECU) IsOpen() bool {
	return e.open
}

// FlushInput implements transport.Transport.
func (e *ECU) FlushInput() error {
	e.inputBuf = nil
	return nil
}

// FlushOutput implements transport.Transport.
func (e *ECU) FlushOutput() error {
	return nil
}

// BytesAvailable implements transport.Transport.
func (e *ECU) BytesAvailable() (int, error) {
	return len(e.pending), nil
}

// Write decodes the request frame and synchronously prepares the reply the
// next Read will deliver — the teacher's TestDev does this same
// prepare-on-command, deliver-on-poll split, just across a channel+event
// timer instead of a direct call.
func (e *ECU) Write(p []byte) (int, error) {
	if !e.open {
		return 0, aldlerr.New("simulator.Write", aldlerr.ErrTransportNotOpen, nil)
	}
	e.inputBuf = append(e.inputBuf, p...)
	if len(e.inputBuf) < 2 {
		return len(p), nil
	}
	wireLen := aldl.WireLength(e.inputBuf)
	if wireLen <= 0 || len(e.inputBuf) < wireLen {
		return len(p), nil
	}
	frame := e.inputBuf[:wireLen]
	e.inputBuf = e.inputBuf[wireLen:]
	e.pending = append(e.pending, e.respond(frame)...)
	return len(p), nil
}

// Read implements transport.Transport; deadline/ctx are accepted for
// interface compliance but the simulator never actually blocks.
func (e *ECU) Read(_ context.Context, n int, _ time.Time) ([]byte, error) {
	if len(e.pending) == 0 {
		return nil, nil
	}
	if n > len(e.pending) {
		n = len(e.pending)
	}
	out := e.pending[:n]
	e.pending = e.pending[n:]
	return out, nil
}

func (e *ECU) ack56(mode byte) []byte {
	return e.build(0x56, mode, nil)
}

func (e *ECU) ack57ok(mode byte) []byte {
	return e.build(0x57, mode, []byte{0xAA})
}

func (e *ECU) build(lenByte, mode byte, data []byte) []byte {
	f := make([]byte, 3+len(data)+1)
	f[0] = byte(e.DeviceID)
	f[1] = lenByte
	f[2] = mode
	copy(f[3:], data)
	aldl.ApplyChecksum(f)
	return f
}

// respond dispatches one decoded request frame to its simulated ACK,
// matching LoopbackTransport._simulate_response mode-for-mode.
func (e *ECU) respond(frame []byte) []byte {
	mode := frame[2]
	switch mode {
	case aldl.Mode8Silence:
		e.silenced = true
		return e.ack56(aldl.Mode8Silence)

	case aldl.Mode9Unsilence:
		e.silenced = false
		return e.ack56(aldl.Mode9Unsilence)

	case aldl.Mode13Security:
		sub := frame[3]
		if sub == 0x01 {
			e.seedSent = true
			return e.build(0x59, aldl.Mode13Security, []byte{0x01, fixedSeedHi, fixedSeedLo})
		}
		// sub == 0x02: key response. Any key is accepted by this
		// simulator (it always hands out the same fixed seed, so the
		// caller is expected to have computed the matching key).
		e.unlocked = true
		return e.build(0x58, aldl.Mode13Security, []byte{0x02, 0xAA})

	case aldl.Mode5EnterProg:
		return e.ack57ok(aldl.Mode5EnterProg)

	case aldl.Mode6Upload:
		return e.ack57ok(aldl.Mode6Upload)

	case aldl.Mode1DataStream:
		f := make([]byte, 3+len(simMode1)+1)
		f[0] = byte(e.DeviceID)
		f[1] = byte(0x56 + len(simMode1))
		f[2] = aldl.Mode1DataStream
		copy(f[3:], simMode1)
		aldl.ApplyChecksum(f)
		return f

	case aldl.Mode2ReadRAM:
		return e.respondRead(frame)

	case aldl.Mode16FlashWrite:
		return e.respondFlashWrite(frame)

	case aldl.Mode10WriteCalRAM:
		addr := int(frame[3])<<8 | int(frame[4])
		data := frame[5 : len(frame)-1]
		e.writeImage(addr, data)
		return e.ack57ok(aldl.Mode10WriteCalRAM)

	default:
		return e.ack57ok(mode)
	}
}

func (e *ECU) respondRead(frame []byte) []byte {
	extended := frame[1] == 0x59
	var addr int
	var blockLen int
	if extended {
		addr = int(frame[3])<<16 | int(frame[4])<<8 | int(frame[5])
		blockLen = len(frame) - 7 // minus device/len/mode/3-byte-addr/checksum
	} else {
		addr = int(frame[3])<<8 | int(frame[4])
		blockLen = len(frame) - 6
	}
	if blockLen <= 0 {
		blockLen = 64
	}
	block := e.readImage(addr, blockLen)
	f := make([]byte, 3+len(block)+1)
	f[0] = byte(e.DeviceID)
	f[1] = byte(0x55 + len(block) + 1)
	f[2] = aldl.Mode2ReadRAM
	copy(f[3:], block)
	aldl.ApplyChecksum(f)
	return f
}

func (e *ECU) respondFlashWrite(frame []byte) []byte {
	addr := int(frame[3])<<16 | int(frame[4])<<8 | int(frame[5])
	data := frame[6 : len(frame)-1]
	e.writeImage(addr, data)
	return e.ack57ok(aldl.Mode16FlashWrite)
}

func (e *ECU) readImage(addr, n int) []byte {
	if e.Image == nil || addr < 0 || addr >= len(e.Image) {
		return make([]byte, n)
	}
	end := addr + n
	if end > len(e.Image) {
		end = len(e.Image)
	}
	out := make([]byte, n)
	copy(out, e.Image[addr:end])
	return out
}

func (e *ECU) writeImage(addr int, data []byte) {
	if e.Image == nil || addr < 0 {
		return
	}
	end := addr + len(data)
	if end > len(e.Image) {
		end = len(e.Image)
	}
	if addr >= end {
		return
	}
	copy(e.Image[addr:end], data[:end-addr])
}

// Silenced reports the simulator's current bus-silence state, for test
// assertions.
func (e *ECU) Silenced() bool { return e.silenced }

// Unlocked reports the simulator's current security state, for test
// assertions.
func (e *ECU) Unlocked() bool { return e.unlocked }
