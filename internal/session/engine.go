/*
 * aldlflash - ECU communication engine.
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

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kingai-tools/aldlflash/internal/aldl"
	"github.com/kingai-tools/aldlflash/internal/aldlerr"
	"github.com/kingai-tools/aldlflash/internal/telemetry"
	"github.com/kingai-tools/aldlflash/internal/transport"
)

// ProgressFunc reports (current, total, label) during a long operation —
// erase, write, kernel upload — the Go equivalent of the reference tool's
// "progress" event.
type ProgressFunc func(current, total int, label string)

// Engine is one ECU conversation: framing, retries, silence detection, and
// the high-level protocol operations built on top of a transport.Transport.
// It carries no goroutines of its own; cancellation is cooperative via a
// shared atomic flag checked at every retry and wait boundary, the same
// discipline the reference tool applies with its threading.Event.
type Engine struct {
	Transport transport.Transport
	Config    Config
	State     State
	Log       *slog.Logger
	Progress  ProgressFunc

	cancel atomic.Bool
}

// New builds an Engine over an already-constructed transport.
func New(t transport.Transport, cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{Transport: t, Config: cfg, Log: log, State: Disconnected}
}

// Cancel requests that any in-flight or future transaction abort at its
// next checkpoint.
func (e *Engine) Cancel() { e.cancel.Store(true) }

// ResetCancel clears a prior cancellation request.
func (e *Engine) ResetCancel() { e.cancel.Store(false) }

// Cancelled reports whether a cancellation is currently in effect.
func (e *Engine) Cancelled() bool { return e.cancel.Load() }

func (e *Engine) reportProgress(current, total int, label string) {
	if e.Progress != nil {
		e.Progress(current, total, label)
	}
}

// ── Low-level frame I/O ──────────────────────────────────────────────────

func (e *Engine) txFrame(ctx context.Context, frame []byte) bool {
	wireLen := aldl.WireLength(frame)
	wire := frame[:wireLen]

	e.Log.Debug("tx frame", "len", wireLen)

	if !e.waitSilence(ctx) {
		e.Log.Warn("bus congestion — could not get clear slot")
		return false
	}

	time.Sleep(e.Config.InterFrameDelay)

	if err := e.Transport.FlushInput(); err != nil {
		e.Log.Warn("flush input failed", "err", err)
	}
	if _, err := e.Transport.Write(wire); err != nil {
		e.Log.Warn("write failed", "err", err)
		return false
	}

	if e.Config.IgnoreEcho && e.Config.EchoByteCount > 0 {
		deadline := time.Now().Add(EchoDetectTimeout)
		echo, err := e.Transport.Read(ctx, e.Config.EchoByteCount, deadline)
		e.Log.Debug("echo consumed", "len", len(echo), "err", err)
	}
	return true
}

func (e *Engine) rxFrame(ctx context.Context, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)

	header, err := e.Transport.Read(ctx, 1, deadline)
	if err != nil || len(header) == 0 {
		return nil, nil
	}

	lengthRaw, err := e.Transport.Read(ctx, 1, deadline)
	if err != nil || len(lengthRaw) == 0 {
		return nil, nil
	}
	lengthByte := lengthRaw[0]
	if lengthByte < 0x55 {
		e.Log.Warn("invalid length byte — discarding", "byte", lengthByte)
		return nil, nil
	}

	wireLen := int(lengthByte) - 82
	remaining := wireLen - 2
	if remaining <= 0 || remaining > 200 {
		e.Log.Warn("invalid frame length", "remaining", remaining)
		return nil, nil
	}

	body, err := e.Transport.Read(ctx, remaining, deadline)
	if err != nil || len(body) < remaining {
		e.Log.Warn("incomplete frame", "want", remaining, "got", len(body))
		return nil, nil
	}

	frame := make([]byte, aldl.FrameSize)
	frame[0] = header[0]
	frame[1] = lengthByte
	copy(frame[2:], body)

	if !aldl.VerifyChecksum(frame[:wireLen]) {
		e.Log.Warn("checksum error on rx frame")
		return nil, nil
	}
	e.Log.Debug("rx frame", "len", wireLen)
	return frame, nil
}

// transact sends frame and waits for a validated response, retrying up to
// retries times. A nil return means every attempt failed or cancellation
// was observed.
func (e *Engine) transact(ctx context.Context, frame []byte, timeout time.Duration, retries int) []byte {
	for attempt := 0; attempt <= retries; attempt++ {
		if e.Cancelled() {
			return nil
		}
		if !e.txFrame(ctx, frame) {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		resp := func() []byte {
			r, _ := e.rxFrame(ctx, timeout)
			return r
		}()
		if resp != nil {
			return resp
		}
		e.Log.Info("no response, retrying", "attempt", attempt+1, "retries", retries)
	}
	e.Log.Error("transaction failed after retries", "retries", retries)
	return nil
}

func (e *Engine) waitSilence(ctx context.Context) bool {
	deadline := time.Now().Add(e.Config.Timeout)
	for time.Now().Before(deadline) {
		if e.Cancelled() {
			return false
		}
		if err := e.Transport.FlushInput(); err != nil {
			e.Log.Debug("flush during silence wait failed", "err", err)
		}
		time.Sleep(SilenceWait)
		n, err := e.Transport.BytesAvailable()
		if err == nil && n == 0 {
			return true
		}
	}
	return false
}

func (e *Engine) echoCountFor(frame []byte) {
	if e.Config.IgnoreEcho {
		e.Config.EchoByteCount = aldl.WireLength(frame)
	}
}

// ── Connection lifecycle ────────────────────────────────────────────────

// Connect opens the transport and listens briefly for the ECU heartbeat
// and cable-echo behavior before any protocol exchange begins.
func (e *Engine) Connect(ctx context.Context) error {
	const op = "session.Connect"
	if err := e.Transport.Open(); err != nil {
		e.State = Error
		return aldlerr.New(op, aldlerr.ErrTransportIO, err)
	}
	e.State = Connected
	e.Log.Info("connected")

	e.detectHeartbeat(ctx)
	e.detectEcho(ctx)
	return nil
}

// Disconnect closes the transport and resets state regardless of any
// close error, since a failed close still means the link is unusable.
func (e *Engine) Disconnect() {
	_ = e.Transport.Close()
	e.State = Disconnected
}

func (e *Engine) detectHeartbeat(ctx context.Context) bool {
	e.Log.Info("listening for ecm heartbeat")
	deadline := time.Now().Add(HeartbeatTimeout)
	for time.Now().Before(deadline) {
		data, err := e.Transport.Read(ctx, 1, time.Now().Add(500*time.Millisecond))
		if err == nil && len(data) > 0 && data[0] == e.Config.DeviceID {
			e.Log.Info("heartbeat detected", "byte", data[0])
			_ = e.Transport.FlushInput()
			return true
		}
	}
	e.Log.Warn("no heartbeat detected")
	return false
}

func (e *Engine) detectEcho(ctx context.Context) bool {
	_ = e.Transport.FlushInput()
	test := []byte{0xFF, 0x55}
	if _, err := e.Transport.Write(test); err != nil {
		return false
	}
	time.Sleep(100 * time.Millisecond)
	resp, _ := e.Transport.Read(ctx, 2, time.Now().Add(EchoDetectTimeout))
	if len(resp) == 2 && resp[0] == test[0] && resp[1] == test[1] {
		e.Config.IgnoreEcho = true
		e.Config.EchoByteCount = 2
		e.Log.Info("echo detected")
		return true
	}
	e.Config.IgnoreEcho = false
	e.Config.EchoByteCount = 0
	e.Log.Info("no echo detected")
	return false
}

// ── High-level operations ───────────────────────────────────────────────

// Silence sends Mode 8 to the BCM (if configured) then the target ECU,
// putting the bus into a state where only our requests receive responses.
func (e *Engine) Silence(ctx context.Context) error {
	const op = "session.Silence"
	if e.Config.BCMDeviceID != 0 {
		f := aldl.BuildSilence(aldl.DeviceID(e.Config.BCMDeviceID))
		e.echoCountFor(f[:])
		e.transact(ctx, f[:], time.Second, 2)
	}

	f := aldl.BuildSilence(aldl.DeviceID(e.Config.DeviceID))
	e.echoCountFor(f[:])
	resp := e.transact(ctx, f[:], 2*time.Second, 5)
	if resp != nil && resp[2] == aldl.Mode8Silence {
		e.State = Silenced
		e.Log.Info("bus chatter disabled")
		return nil
	}
	return aldlerr.New(op, aldlerr.ErrProtocolDenied, nil)
}

// Unsilence sends Mode 9 to restore normal bus chatter.
func (e *Engine) Unsilence(ctx context.Context) error {
	f := aldl.BuildUnsilence(aldl.DeviceID(e.Config.DeviceID))
	e.echoCountFor(f[:])
	e.transact(ctx, f[:], 2*time.Second, 3)
	e.State = Connected
	e.Log.Info("bus chatter re-enabled")
	return nil
}

// UnlockSecurity runs the Mode 13 seed/key handshake. A zero seed means
// the ECU is already unlocked.
func (e *Engine) UnlockSecurity(ctx context.Context) error {
	const op = "session.UnlockSecurity"
	f := aldl.BuildSeedSubcommand(aldl.DeviceID(e.Config.DeviceID))
	e.echoCountFor(f[:])
	resp := e.transact(ctx, f[:], 3*time.Second, e.Config.MaxRetries)
	if resp == nil {
		return aldlerr.New(op, aldlerr.ErrFrameTimeout, nil)
	}

	seedHi, seedLo := resp[4], resp[5]
	if seedHi == 0 && seedLo == 0 {
		e.State = Unlocked
		e.Log.Info("already unlocked")
		return nil
	}

	key := aldl.SeedToKey(seedHi, seedLo)
	e.Log.Info("key computed", "key", key)

	kf := aldl.BuildKeySubcommand(aldl.DeviceID(e.Config.DeviceID), key)
	e.echoCountFor(kf[:])
	resp = e.transact(ctx, kf[:], 3*time.Second, e.Config.MaxRetries)
	if resp == nil {
		return aldlerr.New(op, aldlerr.ErrFrameTimeout, nil)
	}
	if len(resp) > 4 && resp[4] == 0xAA {
		e.State = Unlocked
		e.Log.Info("security unlocked")
		return nil
	}
	return aldlerr.New(op, aldlerr.ErrProtocolDenied, nil)
}

// EnterProgramming sends Mode 5.
func (e *Engine) EnterProgramming(ctx context.Context) error {
	const op = "session.EnterProgramming"
	f := aldl.BuildEnterProgramming(aldl.DeviceID(e.Config.DeviceID))
	e.echoCountFor(f[:])
	resp := e.transact(ctx, f[:], Mode5Timeout, e.Config.MaxRetries)
	if resp != nil && len(resp) > 3 && resp[3] == 0xAA {
		e.State = Programming
		e.Log.Info("programming mode active")
		return nil
	}
	return aldlerr.New(op, aldlerr.ErrProtocolDenied, nil)
}

// UploadKernel sends the 3-block Mode 6 flash kernel.
func (e *Engine) UploadKernel(ctx context.Context) error {
	const op = "session.UploadKernel"
	blocks := kernelBlocks(e.Config.HighSpeedRead)
	for i, block := range blocks {
		e.reportProgress(i, len(blocks), "Uploading kernel")
		f := aldl.BuildUploadBlock(block)
		e.echoCountFor(f[:])
		resp := e.transact(ctx, f[:], Mode6UploadTimeout, e.Config.MaxRetries)
		if resp == nil || resp[3] != 0xAA {
			return aldlerr.New(op, aldlerr.ErrProtocolDenied, nil)
		}
		if e.Cancelled() {
			return aldlerr.New(op, aldlerr.ErrCancelled, nil)
		}
	}
	e.State = KernelLoaded
	e.Log.Info("flash kernel uploaded and running")
	return nil
}

// ReadFlashInfo asks the running kernel for the flash chip's manufacturer
// and device identifier.
func (e *Engine) ReadFlashInfo(ctx context.Context) (manuf, device byte, err error) {
	const op = "session.ReadFlashInfo"
	f := aldl.BuildUploadBlock(flashInfoBlob)
	e.echoCountFor(f[:])
	resp := e.transact(ctx, f[:], Mode6UploadTimeout, e.Config.MaxRetries)
	if resp == nil {
		return 0, 0, aldlerr.New(op, aldlerr.ErrFrameTimeout, nil)
	}
	return resp[3], resp[4], nil
}

// EraseSector erases one (bank, sector) unit.
func (e *Engine) EraseSector(ctx context.Context, bank, sector byte) error {
	const op = "session.EraseSector"
	f := aldl.BuildUploadBlock(eraseSectorFrame(bank, sector))
	e.echoCountFor(f[:])
	resp := e.transact(ctx, f[:], EraseTimeout, 3)
	if resp == nil || resp[3] != 0xAA {
		return aldlerr.New(op, aldlerr.ErrProtocolDenied, nil)
	}
	return nil
}

// EraseSectors erases a full erase plan, reporting progress and honoring
// cancellation between steps.
func (e *Engine) EraseSectors(ctx context.Context, plan []aldl.EraseStep) error {
	const op = "session.EraseSectors"
	total := len(plan)
	for i, step := range plan {
		if e.Cancelled() {
			return aldlerr.New(op, aldlerr.ErrCancelled, nil)
		}
		e.reportProgress(i, total, "Erasing")
		if err := e.EraseSector(ctx, step.Bank, step.Sector); err != nil {
			return err
		}
	}
	return nil
}

// SetWriteBank uploads the write-bank-setup frame selecting the active
// flash bank for subsequent Mode 16 writes.
func (e *Engine) SetWriteBank(ctx context.Context, bank byte) error {
	const op = "session.SetWriteBank"
	f := aldl.BuildUploadBlock(writeBankFrame(bank))
	e.echoCountFor(f[:])
	resp := e.transact(ctx, f[:], Mode6UploadTimeout, e.Config.MaxRetries)
	if resp == nil || resp[3] != 0xAA {
		return aldlerr.New(op, aldlerr.ErrProtocolDenied, nil)
	}
	return nil
}

// WriteFlashChunk writes one chunk at a PCM-windowed address via Mode 16.
func (e *Engine) WriteFlashChunk(ctx context.Context, pcmAddr uint32, data []byte) error {
	const op = "session.WriteFlashChunk"
	f := aldl.BuildFlashWrite(aldl.DeviceID(e.Config.DeviceID), pcmAddr, data)
	e.echoCountFor(f[:])
	resp := e.transact(ctx, f[:], WriteFrameTimeout, 1)
	if resp == nil || len(resp) <= 3 || resp[3] != 0xAA {
		return aldlerr.New(op, aldlerr.ErrProtocolDenied, nil)
	}
	return nil
}

// VerifyChecksum asks the running kernel to compute the on-PCM checksum
// and report pass/fail.
func (e *Engine) VerifyChecksum(ctx context.Context) (ok bool, ecuHi, ecuLo byte, err error) {
	const op = "session.VerifyChecksum"
	f := aldl.BuildUploadBlock(checksumBinBlob)
	e.echoCountFor(f[:])
	resp := e.transact(ctx, f[:], ChecksumTimeout, e.Config.MaxRetries)
	if resp == nil {
		return false, 0, 0, aldlerr.New(op, aldlerr.ErrFrameTimeout, nil)
	}
	if resp[3] == 0xAA {
		return true, 0, 0, nil
	}
	hi, lo := byte(0), byte(0)
	if len(resp) > 4 {
		hi = resp[4]
	}
	if len(resp) > 5 {
		lo = resp[5]
	}
	return false, hi, lo, nil
}

// CleanupAndReset uploads the cleanup routine, which bumps the PCM back to
// its resident OS, then waits out the reset delay.
func (e *Engine) CleanupAndReset(ctx context.Context) error {
	f := aldl.BuildUploadBlock(cleanupBlob)
	e.echoCountFor(f[:])
	e.transact(ctx, f[:], CleanupTimeout, e.Config.MaxRetries)
	time.Sleep(CleanupDelay)
	e.State = Connected
	return nil
}

// RequestMode1 requests one Mode 1 data-stream sample and decodes it
// against the known parameter table.
func (e *Engine) RequestMode1(ctx context.Context, message byte) (map[string]float64, error) {
	const op = "session.RequestMode1"
	f := aldl.BuildDataStreamRequest(aldl.DeviceID(e.Config.DeviceID), message)
	e.echoCountFor(f[:])
	resp := e.transact(ctx, f[:], e.Config.Timeout, e.Config.MaxRetries)
	if resp == nil {
		return nil, aldlerr.New(op, aldlerr.ErrFrameTimeout, nil)
	}
	dataLen := int(resp[1]) - 85 - 1
	if dataLen < 0 || 3+dataLen > len(resp) {
		return nil, aldlerr.New(op, aldlerr.ErrFrameMalformed, nil)
	}
	return aldl.DecodeSensorStream(resp[3:3+dataLen], telemetry.Parameters), nil
}

// ReadRAM issues a Mode 2 read for n bytes at addr.
func (e *Engine) ReadRAM(ctx context.Context, addr uint32, n int, extended bool) ([]byte, error) {
	const op = "session.ReadRAM"
	f := aldl.BuildReadMemory(aldl.DeviceID(e.Config.DeviceID), addr, extended)
	e.echoCountFor(f[:])
	resp := e.transact(ctx, f[:], e.Config.Timeout, e.Config.MaxRetries)
	if resp == nil {
		return nil, aldlerr.New(op, aldlerr.ErrFrameTimeout, nil)
	}
	dataLen := int(resp[1]) - 85 - 1
	if dataLen < 0 || 3+dataLen > len(resp) {
		return nil, aldlerr.New(op, aldlerr.ErrFrameMalformed, nil)
	}
	if n > 0 && n < dataLen {
		dataLen = n
	}
	return resp[3 : 3+dataLen], nil
}

// WriteCalRAM issues a Mode 10 write, used by the live tuner to push
// shadow-table cell updates into RAM.
func (e *Engine) WriteCalRAM(ctx context.Context, addr uint16, data []byte) error {
	const op = "session.WriteCalRAM"
	f := aldl.BuildWriteCalRAM(aldl.DeviceID(e.Config.DeviceID), addr, data)
	e.echoCountFor(f[:])
	resp := e.transact(ctx, f[:], e.Config.Timeout, e.Config.MaxRetries)
	if resp == nil || len(resp) <= 3 || resp[3] != 0xAA {
		return aldlerr.New(op, aldlerr.ErrProtocolDenied, nil)
	}
	return nil
}
