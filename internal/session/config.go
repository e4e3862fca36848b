/*
 * aldlflash - Session timing and retry configuration.
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

package session

import "time"

// Config mirrors the reference tool's CommConfig dataclass: every timing
// and retry knob that governs one ECU conversation.
type Config struct {
	DeviceID            byte
	Baud                int
	Timeout             time.Duration
	InterFrameDelay     time.Duration
	MaxRetries          int
	WriteChunkSize      int
	HighSpeedRead       bool
	IgnoreEcho          bool
	EchoByteCount       int
	BCMDeviceID         byte
	AutoChecksumFix     bool
}

// Fixed protocol timing constants, reproduced from the reference tool
// rather than derived — they encode real bus and flash-chip timing
// requirements, not stylistic choices.
const (
	DefaultBaud                = 8192
	DefaultTimeout             = 2000 * time.Millisecond
	DefaultInterFrameDelay     = 10 * time.Millisecond
	DefaultMaxRetries          = 10
	DefaultWriteChunkSize      = 32

	EchoDetectTimeout  = 500 * time.Millisecond
	SilenceWait        = 50 * time.Millisecond
	HeartbeatTimeout   = 3000 * time.Millisecond
	Mode5Timeout       = 5000 * time.Millisecond
	Mode6UploadTimeout = 10000 * time.Millisecond
	EraseTimeout       = 30000 * time.Millisecond
	WriteFrameTimeout  = 5000 * time.Millisecond
	ChecksumTimeout    = 30000 * time.Millisecond
	CleanupTimeout     = 5000 * time.Millisecond
	CleanupDelay       = 750 * time.Millisecond
)

// DefaultConfig matches the reference tool's CommConfig() defaults for the
// VX/VY F7 device family.
func DefaultConfig() Config {
	return Config{
		DeviceID:        0xF7,
		Baud:            DefaultBaud,
		Timeout:         DefaultTimeout,
		InterFrameDelay: DefaultInterFrameDelay,
		MaxRetries:      DefaultMaxRetries,
		WriteChunkSize:  DefaultWriteChunkSize,
		IgnoreEcho:      false,
		BCMDeviceID:     0x08,
		AutoChecksumFix: true,
	}
}
