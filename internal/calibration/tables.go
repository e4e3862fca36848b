/*
 * aldlflash - Calibration table descriptors.
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

// Package calibration describes the fixed 2D calibration tables known for
// the VY V6 $060A ECU, reverse-engineered offsets carried as code constants
// rather than user configuration — see internal/calconfig for the loadable
// variant used to describe a table this package does not know about.
package calibration

// TableDescriptor names one 2D calibration table inside a 128 KiB image.
type TableDescriptor struct {
	Name         string
	ROMOffset    int
	Rows, Cols   int
	ElementSize  int // 1 or 2 bytes per cell
	XAxisName    string
	YAxisName    string
	Units        string
	Conversion   string
	XAxisValues  []float64
	YAxisValues  []float64
}

// ByteSize returns the table's footprint in the image.
func (t TableDescriptor) ByteSize() int {
	return t.Rows * t.Cols * t.ElementSize
}

// Tables is the fixed set of known calibration tables for the VY V6 $060A
// OS, taken from XDF analysis of the target calibration.
var Tables = map[string]TableDescriptor{
	"spark_hi_oct": {
		Name: "Main Hi-Oct Spark <4800", ROMOffset: 0x614E, Rows: 17, Cols: 17, ElementSize: 1,
		XAxisName: "RPM", YAxisName: "CYLAIR50", Units: "°BTDC", Conversion: "X/256*90-35",
		XAxisValues: []float64{400, 600, 800, 1000, 1200, 1400, 1600, 1800, 2000, 2200, 2400, 2600, 2800, 3200, 3600, 4000, 4800},
		YAxisValues: []float64{50, 100, 150, 200, 250, 300, 350, 400, 450, 500, 550, 600, 650, 700, 750, 800, 850},
	},
	"spark_lo_oct": {
		Name: "Main Lo-Oct Spark <4800", ROMOffset: 0x6272, Rows: 17, Cols: 17, ElementSize: 1,
		XAxisName: "RPM", YAxisName: "CYLAIR50", Units: "°BTDC", Conversion: "X/256*90-35",
		XAxisValues: []float64{400, 600, 800, 1000, 1200, 1400, 1600, 1800, 2000, 2200, 2400, 2600, 2800, 3200, 3600, 4000, 4800},
		YAxisValues: []float64{50, 100, 150, 200, 250, 300, 350, 400, 450, 500, 550, 600, 650, 700, 750, 800, 850},
	},
	"fuel_trim": {
		Name: "Fuel Trim Factor", ROMOffset: 0x59D5, Rows: 16, Cols: 17, ElementSize: 1,
		XAxisName: "RPM", YAxisName: "CYLAIR50", Units: "mult", Conversion: "X/128",
	},
	"open_loop_afr": {
		Name: "Open Loop AFR", ROMOffset: 0x7234, Rows: 17, Cols: 14, ElementSize: 1,
		XAxisName: "RPM", YAxisName: "CYLAIR50", Units: "AFR", Conversion: "6.4*256/X",
	},
	"airflow_gear14": {
		Name: "Airflow vs RPM Gear 1-4", ROMOffset: 0x63C2, Rows: 12, Cols: 14, ElementSize: 1,
		XAxisName: "RPM", YAxisName: "TPS", Units: "g/s",
	},
	"spark_hi_oct_high": {
		Name: "Main Hi-Oct Spark >4800", ROMOffset: 0x785D, Rows: 5, Cols: 17, ElementSize: 1,
		XAxisName: "RPM", YAxisName: "CYLAIR50", Units: "°BTDC",
	},
	"tcc_duty": {
		Name: "TCC Duty Cycle", ROMOffset: 0x68C2, Rows: 8, Cols: 17, ElementSize: 1,
		Units: "%",
	},
}
