/*
 * aldlflash - Full read/write flash orchestration.
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

// Package flash composes internal/session's protocol operations into the
// two whole-image workflows a user actually invokes: a full read and a
// full write, each with their own retry and recovery policy layered above
// the per-transaction retries session.Engine already performs.
package flash

import (
	"context"
	"fmt"

	"github.com/kingai-tools/aldlflash/internal/aldl"
	"github.com/kingai-tools/aldlflash/internal/aldlerr"
	"github.com/kingai-tools/aldlflash/internal/image"
	"github.com/kingai-tools/aldlflash/internal/session"
)

const readBlockSize = 64

// maxFullWriteAttempts bounds the erase+write retry loop: the whole image
// is erased and written at most this many times in total (the first
// attempt plus two retries) before giving up, matching the reference
// tool's full_write behavior.
const maxFullWriteAttempts = 3

// Orchestrator drives a session.Engine through the two full-image
// workflows.
type Orchestrator struct {
	Engine *session.Engine
}

// New wraps an already-connected session.Engine.
func New(e *session.Engine) *Orchestrator {
	return &Orchestrator{Engine: e}
}

// ReadImage performs a full 128 KiB read: silence, unlock, enter
// programming, upload the kernel, then stream 64-byte blocks end to end.
func (o *Orchestrator) ReadImage(ctx context.Context) (*image.Image, error) {
	const op = "flash.ReadImage"
	e := o.Engine

	if err := e.Silence(ctx); err != nil {
		return nil, aldlerr.New(op, aldlerr.ErrProtocolDenied, err)
	}
	if err := e.UnlockSecurity(ctx); err != nil {
		_ = e.CleanupAndReset(ctx)
		_ = e.Unsilence(ctx)
		return nil, aldlerr.New(op, aldlerr.ErrProtocolDenied, err)
	}
	if err := e.EnterProgramming(ctx); err != nil {
		_ = e.CleanupAndReset(ctx)
		_ = e.Unsilence(ctx)
		return nil, aldlerr.New(op, aldlerr.ErrProtocolDenied, err)
	}
	if err := e.UploadKernel(ctx); err != nil {
		_ = e.CleanupAndReset(ctx)
		_ = e.Unsilence(ctx)
		return nil, aldlerr.New(op, aldlerr.ErrProtocolDenied, err)
	}
	if _, _, err := e.ReadFlashInfo(ctx); err != nil {
		e.Log.Warn("flash info read failed, continuing anyway", "err", err)
	}

	img := &image.Image{}
	buf := img.Bytes()
	for addr := 0; addr < image.Size; addr += readBlockSize {
		if e.Cancelled() {
			_ = e.CleanupAndReset(ctx)
			_ = e.Unsilence(ctx)
			return nil, aldlerr.New(op, aldlerr.ErrCancelled, nil)
		}
		n := readBlockSize
		if addr+n > image.Size {
			n = image.Size - addr
		}
		block, err := e.ReadRAM(ctx, uint32(addr), n, addr >= 0x10000)
		if err != nil {
			_ = e.CleanupAndReset(ctx)
			_ = e.Unsilence(ctx)
			return nil, aldlerr.New(op, aldlerr.ErrFrameTimeout, err)
		}
		copy(buf[addr:addr+n], block)
	}

	if err := e.CleanupAndReset(ctx); err != nil {
		return nil, aldlerr.New(op, aldlerr.ErrProtocolDenied, err)
	}
	_ = e.Unsilence(ctx)
	return img, nil
}

// WriteImage performs a full write of img under the given mode: validates
// the checksum (auto-fixing it if configured to), erases the mode's
// sectors, writes every bank intersecting the mode's range, verifies, and
// resets. The erase+write is attempted up to maxFullWriteAttempts times in
// total before giving up.
func (o *Orchestrator) WriteImage(ctx context.Context, img *image.Image, mode aldl.WriteMode, autoFixChecksum bool) error {
	const op = "flash.WriteImage"
	e := o.Engine

	if !img.VerifyChecksum() {
		if !autoFixChecksum {
			return aldlerr.New(op, aldlerr.ErrChecksumMismatch, nil)
		}
		old, newCS := img.FixChecksum()
		e.Log.Info("checksum auto-fixed", "old", old, "new", newCS)
	}

	if err := e.Silence(ctx); err != nil {
		return aldlerr.New(op, aldlerr.ErrProtocolDenied, err)
	}
	if err := e.UnlockSecurity(ctx); err != nil {
		_ = e.CleanupAndReset(ctx)
		_ = e.Unsilence(ctx)
		return aldlerr.New(op, aldlerr.ErrProtocolDenied, err)
	}
	if err := e.EnterProgramming(ctx); err != nil {
		_ = e.CleanupAndReset(ctx)
		_ = e.Unsilence(ctx)
		return aldlerr.New(op, aldlerr.ErrProtocolDenied, err)
	}
	if err := e.UploadKernel(ctx); err != nil {
		_ = e.CleanupAndReset(ctx)
		_ = e.Unsilence(ctx)
		return aldlerr.New(op, aldlerr.ErrProtocolDenied, err)
	}
	if _, _, err := e.ReadFlashInfo(ctx); err != nil {
		e.Log.Warn("flash info read failed, continuing anyway", "err", err)
	}

	writeRange := aldl.WriteRanges[mode]
	erasePlan := aldl.EraseMapFor(mode)

	var lastErr error
	for attempt := 1; attempt <= maxFullWriteAttempts; attempt++ {
		if e.Cancelled() {
			lastErr = aldlerr.New(op, aldlerr.ErrCancelled, nil)
			break
		}
		if err := e.EraseSectors(ctx, erasePlan); err != nil {
			lastErr = err
			continue
		}
		if err := o.writeData(ctx, img.Bytes(), writeRange.Start, writeRange.End); err != nil {
			lastErr = err
			e.Log.Warn("write attempt failed, retrying", "attempt", attempt, "err", err)
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		_ = e.CleanupAndReset(ctx)
		_ = e.Unsilence(ctx)
		return aldlerr.New(op, aldlerr.ErrProtocolDenied, lastErr)
	}

	ok, ecuHi, ecuLo, err := e.VerifyChecksum(ctx)
	if err != nil {
		_ = e.CleanupAndReset(ctx)
		_ = e.Unsilence(ctx)
		return aldlerr.New(op, aldlerr.ErrChecksumMismatch, err)
	}
	if !ok {
		_ = e.CleanupAndReset(ctx)
		_ = e.Unsilence(ctx)
		return aldlerr.New(op, aldlerr.ErrChecksumMismatch,
			fmt.Errorf("ecu reported checksum 0x%02X%02X", ecuHi, ecuLo))
	}

	if err := e.CleanupAndReset(ctx); err != nil {
		return aldlerr.New(op, aldlerr.ErrProtocolDenied, err)
	}
	_ = e.Unsilence(ctx)
	return nil
}

// writeData walks BankWriteMap, intersecting each bank window with
// [start, end] and streaming chunk_size bytes at a time through the
// running kernel, remapping file addresses to PCM-windowed addresses per
// bank.
func (o *Orchestrator) writeData(ctx context.Context, data []byte, start, end int) error {
	const op = "flash.writeData"
	e := o.Engine
	chunkSize := e.Config.WriteChunkSize
	if chunkSize <= 0 {
		chunkSize = session.DefaultWriteChunkSize
	}

	for _, win := range aldl.BankWriteMap {
		wStart := max(start, win.FileStart)
		wEnd := min(end, win.FileEnd)
		if wStart > wEnd {
			continue
		}

		if err := e.SetWriteBank(ctx, win.Bank); err != nil {
			return aldlerr.New(op, aldlerr.ErrProtocolDenied, err)
		}

		fileAddr := wStart
		for fileAddr <= wEnd {
			if e.Cancelled() {
				return aldlerr.New(op, aldlerr.ErrCancelled, nil)
			}
			chunkEnd := fileAddr + chunkSize - 1
			if chunkEnd > wEnd {
				chunkEnd = wEnd
			}
			chunk := data[fileAddr : chunkEnd+1]
			pcmAddr := uint32(fileAddr - win.PCMBaseOffset)

			maxRetries := e.Config.MaxRetries
			if maxRetries <= 0 {
				maxRetries = session.DefaultMaxRetries
			}
			var chunkErr error
			for attempt := 1; attempt <= maxRetries; attempt++ {
				if e.Cancelled() {
					return aldlerr.New(op, aldlerr.ErrCancelled, nil)
				}
				chunkErr = e.WriteFlashChunk(ctx, pcmAddr, chunk)
				if chunkErr == nil {
					break
				}
				e.Log.Warn("chunk write failed, retrying", "addr", pcmAddr, "attempt", attempt, "err", chunkErr)
			}
			if chunkErr != nil {
				return aldlerr.New(op, aldlerr.ErrProtocolDenied, chunkErr)
			}
			fileAddr += len(chunk)
		}
	}
	return nil
}
