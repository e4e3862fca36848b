/*
 * aldlflash - Calibration image model.
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

// Package image models the 128 KiB calibration/OS binary: loading,
// checksumming, sector diffing, and table read/write.
//
// Unlike the teacher's emu/memory package (a package-global singleton
// array), Image is a value type: the spec requires comparing two
// independently loaded images (DiffSectors), which a singleton cannot
// express. See DESIGN.md Open Question OQ-1.
package image

import (
	"fmt"
	"os"

	"github.com/kingai-tools/aldlflash/internal/aldlerr"
	"github.com/kingai-tools/aldlflash/internal/calibration"
)

// Size is the full 128 KiB image length.
const Size = 131072

// CalSize is the stand-alone calibration file length that gets padded.
const CalSize = 16384

// CalOffset is where a padded cal file lands inside the full image.
const CalOffset = 0x4000

const (
	checksumOffsetHi  = 0x4006
	checksumOffsetLo  = 0x4007
	checksumSkipStart = 0x4000
	checksumSkipEnd   = 0x4007 // inclusive
	checksumRangeLow  = 0x2000
	checksumRangeHigh = 0x20000 // exclusive
	sectorSize        = 0x4000
	sectorCount       = 8
)

// Image is a 128 KiB calibration/OS binary.
type Image struct {
	data   [Size]byte
	padded bool // true if loaded from a 16 KiB cal file and auto-padded
}

// Load reads a file and validates its size. A 16 KiB calibration-only file
// is padded to the full 128 KiB image when allowCalPadding is true: the
// calibration region receives the file bytes, everywhere else is set to
// 0xFF (the erased-flash state), matching the original tool's behavior.
func Load(path string, allowCalPadding bool) (*Image, error) {
	const op = "image.Load"
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, aldlerr.New(op, aldlerr.ErrTransportIO, err)
	}
	img := &Image{}
	switch {
	case len(raw) == Size:
		copy(img.data[:], raw)
	case len(raw) == CalSize && allowCalPadding:
		for i := range img.data {
			img.data[i] = 0xFF
		}
		copy(img.data[CalOffset:CalOffset+CalSize], raw)
		img.padded = true
	default:
		return nil, aldlerr.New(op, aldlerr.ErrFrameMalformed,
			fmt.Errorf("invalid bin size: %d bytes (expected %d or %d)", len(raw), Size, CalSize))
	}
	return img, nil
}

// Padded reports whether this image was produced by 16 KiB cal padding.
func (img *Image) Padded() bool {
	return img.padded
}

// Bytes returns the full 128 KiB backing slice.
func (img *Image) Bytes() []byte {
	return img.data[:]
}

// Save writes the image verbatim.
func (img *Image) Save(path string) error {
	if err := os.WriteFile(path, img.data[:], 0o644); err != nil {
		return aldlerr.New("image.Save", aldlerr.ErrTransportIO, err)
	}
	return nil
}

// Checksum sums image[a] for a in [0x2000, 0x20000) excluding
// [0x4000, 0x4008), mod 65536.
func (img *Image) Checksum() uint16 {
	var total uint32
	for a := checksumRangeLow; a < checksumRangeHigh; a++ {
		if a >= checksumSkipStart && a <= checksumSkipEnd {
			continue
		}
		total += uint32(img.data[a])
	}
	return uint16(total & 0xFFFF)
}

// FixChecksum computes the checksum and writes it big-endian at
// $4006-$4007, returning (old, new).
func (img *Image) FixChecksum() (old, new uint16) {
	old = uint16(img.data[checksumOffsetHi])<<8 | uint16(img.data[checksumOffsetLo])
	new = img.Checksum()
	img.data[checksumOffsetHi] = byte(new >> 8)
	img.data[checksumOffsetLo] = byte(new)
	return old, new
}

// VerifyChecksum reports whether the stored checksum matches the computed
// one.
func (img *Image) VerifyChecksum() bool {
	stored := uint16(img.data[checksumOffsetHi])<<8 | uint16(img.data[checksumOffsetLo])
	return stored == img.Checksum()
}

// OSID extracts the two-byte OS identifier at $2000-$2001.
func (img *Image) OSID() string {
	return fmt.Sprintf("$%02X%02X", img.data[0x2000], img.data[0x2001])
}

// DiffSectors returns the indices in [0,8) where a's and b's 16 KiB sectors
// differ.
func DiffSectors(a, b *Image) []int {
	var changed []int
	for s := 0; s < sectorCount; s++ {
		start := s * sectorSize
		end := start + sectorSize
		if string(a.data[start:end]) != string(b.data[start:end]) {
			changed = append(changed, s)
		}
	}
	return changed
}

// ReadTable walks a calibration table out of the image as a 2D matrix,
// big-endian for 2-byte elements.
func (img *Image) ReadTable(t calibration.TableDescriptor) [][]int {
	result := make([][]int, t.Rows)
	offset := t.ROMOffset
	for r := 0; r < t.Rows; r++ {
		row := make([]int, t.Cols)
		for c := 0; c < t.Cols; c++ {
			switch t.ElementSize {
			case 1:
				row[c] = int(img.data[offset])
			case 2:
				row[c] = int(img.data[offset])<<8 | int(img.data[offset+1])
			}
			offset += t.ElementSize
		}
		result[r] = row
	}
	return result
}

// WriteTable is the inverse of ReadTable.
func (img *Image) WriteTable(t calibration.TableDescriptor, values [][]int) {
	offset := t.ROMOffset
	for r := 0; r < t.Rows; r++ {
		for c := 0; c < t.Cols; c++ {
			v := values[r][c]
			switch t.ElementSize {
			case 1:
				img.data[offset] = byte(v)
			case 2:
				img.data[offset] = byte(v >> 8)
				img.data[offset+1] = byte(v)
			}
			offset += t.ElementSize
		}
	}
}
