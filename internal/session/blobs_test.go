/*
 * aldlflash - Embedded flash-kernel machine code.
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

import "testing"

// Round-trip self-check: every patch index must land inside its blob, and
// the three kernel-block lengths are fixed hardware facts (171/172/156 bytes)
// that a transcription error would silently violate.
func TestBlobLengths(t *testing.T) {
	if len(execBlock0) != 171 {
		t.Fatalf("execBlock0 length = %d, want 171", len(execBlock0))
	}
	if len(execBlock1) != 172 {
		t.Fatalf("execBlock1 length = %d, want 172", len(execBlock1))
	}
	if len(execBlock2) != 156 {
		t.Fatalf("execBlock2 length = %d, want 156", len(execBlock2))
	}
	if patchIdxBlock0HighSpeed >= len(execBlock0) {
		t.Fatalf("block0 patch index %d out of range %d", patchIdxBlock0HighSpeed, len(execBlock0))
	}
	if patchIdxBlock1HighSpeed >= len(execBlock1) {
		t.Fatalf("block1 patch index %d out of range %d", patchIdxBlock1HighSpeed, len(execBlock1))
	}
	if patchIdxEraseBank >= len(eraseSectorTemplate) || patchIdxEraseSector >= len(eraseSectorTemplate) {
		t.Fatalf("erase sector patch indices out of range %d", len(eraseSectorTemplate))
	}
	if patchIdxWriteBank >= len(writeBankTemplate) {
		t.Fatalf("write bank patch index %d out of range %d", patchIdxWriteBank, len(writeBankTemplate))
	}
}

func TestKernelBlocksPatching(t *testing.T) {
	hi := kernelBlocks(true)
	if hi[0][patchIdxBlock0HighSpeed] != highSpeedByte0 {
		t.Errorf("high-speed block0 patch byte = 0x%02X, want 0x%02X", hi[0][patchIdxBlock0HighSpeed], highSpeedByte0)
	}
	if hi[1][patchIdxBlock1HighSpeed] != highSpeedByte1 {
		t.Errorf("high-speed block1 patch byte = 0x%02X, want 0x%02X", hi[1][patchIdxBlock1HighSpeed], highSpeedByte1)
	}

	normal := kernelBlocks(false)
	if normal[0][patchIdxBlock0HighSpeed] != normalByte0 {
		t.Errorf("normal block0 patch byte = 0x%02X, want 0x%02X", normal[0][patchIdxBlock0HighSpeed], normalByte0)
	}
	if normal[1][patchIdxBlock1HighSpeed] != normalByte1 {
		t.Errorf("normal block1 patch byte = 0x%02X, want 0x%02X", normal[1][patchIdxBlock1HighSpeed], normalByte1)
	}

	// Patching must not mutate the package-level templates.
	if execBlock0[patchIdxBlock0HighSpeed] != normalByte0 || execBlock1[patchIdxBlock1HighSpeed] != normalByte1 {
		t.Fatalf("kernelBlocks mutated the package-level templates")
	}
}

func TestEraseSectorFrame(t *testing.T) {
	f := eraseSectorFrame(0x48, 0x20)
	if f[patchIdxEraseBank] != 0x48 || f[patchIdxEraseSector] != 0x20 {
		t.Fatalf("erase frame patch mismatch: bank=0x%02X sector=0x%02X", f[patchIdxEraseBank], f[patchIdxEraseSector])
	}
	if len(f) != len(eraseSectorTemplate) {
		t.Fatalf("erase frame length changed: %d vs %d", len(f), len(eraseSectorTemplate))
	}
}

func TestWriteBankFrame(t *testing.T) {
	f := writeBankFrame(0x58)
	if f[patchIdxWriteBank] != 0x58 {
		t.Fatalf("write bank frame patch mismatch: 0x%02X", f[patchIdxWriteBank])
	}
}
