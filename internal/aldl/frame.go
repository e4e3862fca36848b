/*
 * aldlflash - ALDL frame codec.
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

// Package aldl builds, parses, and checksums ALDL request/response frames.
// Every function here is pure: no transport, no timing, no retries — that
// discipline belongs to internal/session.
package aldl

import (
	"fmt"

	"github.com/kingai-tools/aldlflash/internal/aldlerr"
	"github.com/kingai-tools/aldlflash/internal/telemetry"
)

// FrameSize is the OSE-compatible scratch buffer size; frames never grow
// past it even though most wire payloads are far shorter.
const FrameSize = 201

// Frame is a fixed scratch buffer: byte 0 device id, byte 1 encoded length,
// byte 2 mode, payload, trailing checksum byte.
type Frame [FrameSize]byte

// DeviceID identifies one ECU family. Only one is addressed per session.
type DeviceID byte

const (
	DeviceF4 DeviceID = 0xF4 // VR, early
	DeviceF5 DeviceID = 0xF5 // VS/VT, mid
	DeviceF7 DeviceID = 0xF7 // VX/VY, target family (default)
)

// Mode byte values, per spec.md §6.1.
const (
	Mode1DataStream   = 0x01
	Mode2ReadRAM      = 0x02
	Mode5EnterProg    = 0x05
	Mode6Upload       = 0x06
	Mode8Silence      = 0x08
	Mode9Unsilence    = 0x09
	Mode10WriteCalRAM = 0x0A
	Mode13Security    = 0x0D
	Mode16FlashWrite  = 0x10
)

// lengthOffset is the OSE convention: Frame[1] = wire_byte_count + 82, so
// wire_bytes = Frame[1]-82, checksum_index = Frame[1]-83, payload_len =
// Frame[1]-85.
const lengthOffset = 85

// WireLength returns the number of bytes to actually place on the wire.
func WireLength(buf []byte) int {
	return int(buf[1]) - 82
}

// checksumIndex returns the index of the checksum byte within buf.
func checksumIndex(buf []byte) int {
	return int(buf[1]) - 83
}

// Checksum computes the ALDL checksum: the two's-complement of the sum of
// all bytes before the checksum position, mod 256. A zero sum is mapped to
// 256 first, and (256-256)&0xFF is still 0x00, so a frame whose preceding
// bytes sum to 0 mod 256 carries a 0x00 checksum byte (which is what
// VerifyChecksum accepts for it).
func Checksum(buf []byte) byte {
	csPos := checksumIndex(buf)
	total := 0
	for i := 0; i < csPos; i++ {
		total = (total + int(buf[i])) & 0xFF
	}
	if total == 0 {
		total = 256
	}
	return byte((256 - total) & 0xFF)
}

// ApplyChecksum computes and writes the checksum byte into buf in place.
func ApplyChecksum(buf []byte) {
	buf[checksumIndex(buf)] = Checksum(buf)
}

// VerifyChecksum reports whether the sum of every byte through the checksum
// byte itself is congruent to 0 mod 256.
func VerifyChecksum(buf []byte) bool {
	csPos := checksumIndex(buf)
	total := 0
	for i := 0; i <= csPos; i++ {
		total = (total + int(buf[i])) & 0xFF
	}
	return total == 0
}

// SeedToKey implements the Mode 13 seed/key obfuscation. Note the swapped
// byte order in the subtrahend — this is the published algorithm, not a
// typo: key = (37709 - (seed_lo*256 + seed_hi)) mod 65536.
func SeedToKey(seedHi, seedLo byte) uint16 {
	const magic = 37709
	seed := int(seedLo)*256 + int(seedHi)
	key := magic - seed
	if key < 0 {
		key += 65536
	}
	return uint16(key & 0xFFFF)
}

func buildSimple(dev DeviceID, mode byte, data []byte) Frame {
	var f Frame
	f[0] = byte(dev)
	f[1] = byte(lengthOffset + 1 + len(data))
	f[2] = mode
	copy(f[3:], data)
	ApplyChecksum(f[:])
	return f
}

// BuildDataStreamRequest builds a Mode 1 request for the given message
// selector (0 for the default 60-byte stream).
func BuildDataStreamRequest(dev DeviceID, message byte) Frame {
	return buildSimple(dev, Mode1DataStream, []byte{message})
}

// BuildReadMemory builds a Mode 2 RAM/ROM read request. extended selects a
// 24-bit address (3 bytes) over the default 16-bit (2 bytes) form.
func BuildReadMemory(dev DeviceID, addr uint32, extended bool) Frame {
	var f Frame
	f[0] = byte(dev)
	if extended {
		f[1] = 0x59
		f[2] = Mode2ReadRAM
		f[3] = byte(addr >> 16)
		f[4] = byte(addr >> 8)
		f[5] = byte(addr)
	} else {
		f[1] = 0x58
		f[2] = Mode2ReadRAM
		f[3] = byte(addr >> 8)
		f[4] = byte(addr)
	}
	ApplyChecksum(f[:])
	return f
}

// BuildSeedSubcommand builds the Mode 13/01 seed request.
func BuildSeedSubcommand(dev DeviceID) Frame {
	return buildSimple(dev, Mode13Security, []byte{0x01})
}

// BuildKeySubcommand builds the Mode 13/02 key reply.
func BuildKeySubcommand(dev DeviceID, key uint16) Frame {
	var f Frame
	f[0] = byte(dev)
	f[1] = 0x59
	f[2] = Mode13Security
	f[3] = 0x02
	f[4] = byte(key >> 8)
	f[5] = byte(key)
	ApplyChecksum(f[:])
	return f
}

// BuildEnterProgramming builds the Mode 5 request.
func BuildEnterProgramming(dev DeviceID) Frame {
	var f Frame
	f[0] = byte(dev)
	f[1] = 0x56
	f[2] = Mode5EnterProg
	ApplyChecksum(f[:])
	return f
}

// BuildSilence builds the Mode 8 bus-silence request.
func BuildSilence(dev DeviceID) Frame {
	var f Frame
	f[0] = byte(dev)
	f[1] = 0x56
	f[2] = Mode8Silence
	ApplyChecksum(f[:])
	return f
}

// BuildUnsilence builds the Mode 9 bus-unsilence request.
func BuildUnsilence(dev DeviceID) Frame {
	var f Frame
	f[0] = byte(dev)
	f[1] = 0x56
	f[2] = Mode9Unsilence
	ApplyChecksum(f[:])
	return f
}

// BuildUploadBlock finalizes the checksum of a pre-populated kernel block.
// The caller has already placed the block's own device/length/mode bytes
// at indices 0..N — blocks are opaque machine code, not something this
// codec constructs field-by-field.
func BuildUploadBlock(block []byte) Frame {
	var f Frame
	copy(f[:], block)
	ApplyChecksum(f[:])
	return f
}

// BuildWriteCalRAM builds a Mode 10 write with a 16-bit address, used by
// the live tuner to push cell updates into the patched OS's RAM shadow.
func BuildWriteCalRAM(dev DeviceID, addr uint16, data []byte) Frame {
	var f Frame
	f[0] = byte(dev)
	f[1] = byte(lengthOffset + len(data) + 3)
	f[2] = Mode10WriteCalRAM
	f[3] = byte(addr >> 8)
	f[4] = byte(addr)
	copy(f[5:], data)
	ApplyChecksum(f[:])
	return f
}

// BuildFlashWrite builds a Mode 16 write with a 24-bit address, the shape
// the flash orchestrator uses for every programming chunk.
func BuildFlashWrite(dev DeviceID, addr uint32, data []byte) Frame {
	var f Frame
	f[0] = byte(dev)
	f[1] = byte(lengthOffset + len(data) + 4)
	f[2] = Mode16FlashWrite
	f[3] = byte(addr >> 16)
	f[4] = byte(addr >> 8)
	f[5] = byte(addr)
	copy(f[6:], data)
	ApplyChecksum(f[:])
	return f
}

// Parse validates a received buffer as a frame: the length byte must be at
// least 0x55 and the resulting body length must fall in (0, 200]; the
// checksum must verify. On success it returns a Frame holding exactly the
// wire bytes (the remainder is zero-filled).
func Parse(buf []byte) (Frame, error) {
	const op = "aldl.Parse"
	var f Frame
	if len(buf) < 2 {
		return f, aldlerr.New(op, aldlerr.ErrFrameMalformed, fmt.Errorf("short buffer: %d bytes", len(buf)))
	}
	if buf[1] < 0x55 {
		return f, aldlerr.New(op, aldlerr.ErrFrameMalformed, fmt.Errorf("invalid length byte 0x%02X", buf[1]))
	}
	wireLen := WireLength(buf)
	if wireLen <= 0 || wireLen > 200 {
		return f, aldlerr.New(op, aldlerr.ErrFrameMalformed, fmt.Errorf("invalid wire length %d", wireLen))
	}
	if len(buf) < wireLen {
		return f, aldlerr.New(op, aldlerr.ErrFrameMalformed, fmt.Errorf("truncated frame: want %d have %d", wireLen, len(buf)))
	}
	copy(f[:], buf[:wireLen])
	if !VerifyChecksum(f[:]) {
		return f, aldlerr.New(op, aldlerr.ErrFrameMalformed, fmt.Errorf("bad checksum"))
	}
	return f, nil
}

// DecodeSensorStream walks params against a Mode 1 payload (the bytes after
// the mode byte) and returns the decoded, named, scaled values.
func DecodeSensorStream(data []byte, params []telemetry.ParameterDescriptor) map[string]float64 {
	result := make(map[string]float64, len(params))
	for _, p := range params {
		if p.PacketOffset+p.Size > len(data) {
			continue
		}
		var raw int
		switch p.Size {
		case 1:
			raw = int(data[p.PacketOffset])
		case 2:
			raw = int(data[p.PacketOffset])<<8 | int(data[p.PacketOffset+1])
		default:
			continue
		}
		value := float64(raw)*p.Scale + p.Offset
		result[p.Name] = quantize3(value)
	}
	return result
}

func quantize3(v float64) float64 {
	const f = 1000.0
	if v >= 0 {
		return float64(int64(v*f+0.5)) / f
	}
	return float64(int64(v*f-0.5)) / f
}
