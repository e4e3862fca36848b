/*
 * aldlflash - Fixed hardware facts: flash banks, sectors, write ranges.
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

package aldl

// Flash bank bytes for the AMD 29F010 bank-switched window ($8000-$FFFF).
const (
	Bank72 = 0x48 // sectors 0-3, lower 64KB
	Bank88 = 0x58 // sectors 4-5, middle 32KB
	Bank80 = 0x50 // sectors 6-7, upper 32KB
)

// Sector base addresses within each bank window. Values repeat across
// banks by design: the sector byte only has meaning paired with a bank.
const (
	Sector0 = 0x20
	Sector1 = 0x40
	Sector2 = 0x80
	Sector3 = 0xC0
	Sector4 = 0x80
	Sector5 = 0xC0
	Sector6 = 0x80
	Sector7 = 0xC0
)

// EraseStep names one (bank, sector) erase unit.
type EraseStep struct {
	Bank   byte
	Sector byte
}

// Erase maps per write mode, reproduced literally from the bank/sector
// layout above rather than computed, since the mapping is a fixed hardware
// fact and not derivable from a formula.
var (
	EraseMapCAL = []EraseStep{
		{Bank72, Sector1},
	}
	EraseMapBIN = []EraseStep{
		{Bank72, Sector0},
		{Bank72, Sector1},
		{Bank72, Sector2},
		{Bank72, Sector3},
		{Bank88, Sector4},
		{Bank88, Sector5},
		{Bank80, Sector6},
	}
	EraseMapPROM = []EraseStep{
		{Bank72, Sector0},
		{Bank72, Sector1},
		{Bank72, Sector2},
		{Bank72, Sector3},
		{Bank88, Sector4},
		{Bank88, Sector5},
		{Bank80, Sector6},
		{Bank80, Sector7},
	}
)

// WriteMode selects the flash region a full write programs.
type WriteMode int

const (
	ModeCAL WriteMode = iota
	ModeBIN
	ModePROM
)

// WriteRange is a file-offset [Start, End] pair, inclusive, matching the
// Python original's WRITE_RANGES.
type WriteRange struct {
	Start, End int
}

// WriteRanges maps a write mode to its inclusive file-offset range.
var WriteRanges = map[WriteMode]WriteRange{
	ModeCAL:  {0x4000, 0x7FFF},
	ModeBIN:  {0x2000, 0x1BFFF},
	ModePROM: {0x2000, 0x1FFFF},
}

// EraseMapFor returns the erase plan for a write mode.
func EraseMapFor(mode WriteMode) []EraseStep {
	switch mode {
	case ModeCAL:
		return EraseMapCAL
	case ModeBIN:
		return EraseMapBIN
	case ModePROM:
		return EraseMapPROM
	default:
		return nil
	}
}

// BankWindow names one physical bank's file-offset coverage and the PCM
// window-address remapping applied when writing through the uploaded
// kernel: pcm_addr = file_addr - PCMBaseOffset.
type BankWindow struct {
	Bank          byte
	FileStart     int
	FileEnd       int
	PCMBaseOffset int
}

// BankWriteMap is the three-tuple table spec.md §9 requires stay literal.
var BankWriteMap = []BankWindow{
	{Bank72, 0x0000, 0xFFFF, 0},
	{Bank88, 0x10000, 0x17FFF, 0x8000},
	{Bank80, 0x18000, 0x1FFFF, 0x10000},
}
