/*
 * aldlflash - Mode 1 data-stream parameter table.
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

// Package telemetry carries the fixed Mode 1 Message 0 parameter layout for
// the VS/VX/VY V6 Delco ECU family: a compile-time constant sequence of
// descriptors, walked once per decoded sample rather than looked up
// dynamically.
package telemetry

// ParameterDescriptor names one decoded value within a Mode 1 response
// payload: its byte offset, width, and the linear conversion to engineering
// units (value = raw*Scale + Offset).
type ParameterDescriptor struct {
	Name         string
	RAMAddr      uint16
	PacketOffset int
	Size         int // 1 or 2 bytes
	Signed       bool
	Units        string
	Scale        float64
	Offset       float64
}

// Parameters is the fixed Mode 1 Message 0 layout, reproduced from the
// VS_Mode1 definition table at $50FE.
var Parameters = []ParameterDescriptor{
	{"RPM", 0x0089, 0, 2, false, "RPM", 25.0, 0},
	{"Desired Idle", 0x1835, 2, 2, false, "RPM", 25.0, 0},
	{"ECT Voltage", 0x1908, 4, 1, false, "V", 5.0 / 255, 0},
	{"ECT Temp", 0x190A, 5, 1, false, "°C", 0.75, -40},
	{"IAT Voltage", 0x1901, 6, 1, false, "V", 5.0 / 255, 0},
	{"IAT Temp", 0x1904, 7, 1, false, "°C", 0.75, -40},
	{"MAF Freq", 0x014F, 8, 2, false, "Hz", 1.0, 0},
	{"MAF", 0x011C, 10, 2, false, "g/s", 1.0, 0},
	{"TPS Voltage", 0x017A, 12, 1, false, "V", 5.0 / 255, 0},
	{"TPS %", 0x1B77, 13, 1, false, "%", 1.0 / 2.55, 0},
	{"LH O2", 0x0061, 14, 1, false, "mV", 4.44, 0},
	{"LH O2 Xcount", 0x1827, 15, 1, false, "", 1.0, 0},
	{"RH O2", 0x0060, 16, 1, false, "mV", 4.44, 0},
	{"RH O2 Xcount", 0x1826, 17, 1, false, "", 1.0, 0},
	{"Inj PW", 0x0153, 18, 2, false, "ms", 0.01526, 0},
	{"Inj Voltage", 0x1843, 20, 1, false, "V", 0.1, 0},
	{"LH STFT", 0x0124, 21, 1, false, "%", 1.0 / 1.28, -100.0},
	{"RH STFT", 0x0123, 22, 1, false, "%", 1.0 / 1.28, -100.0},
	{"LH LTFT", 0x0077, 23, 1, false, "%", 1.0 / 1.28, -100.0},
	{"RH LTFT", 0x0072, 24, 1, false, "%", 1.0 / 1.28, -100.0},
	{"BLM Cell", 0x006F, 25, 1, false, "", 1.0, 0},
	{"STFT Change", 0x0302, 26, 1, false, "", 1.0, 0},
	{"LTFT Var", 0x0303, 27, 1, false, "", 1.0, 0},
	{"AFR", 0x182A, 28, 1, false, ":1", 0.1, 0},
	{"Battery V", 0x006A, 29, 1, false, "V", 0.1, 0},
	{"Ref Voltage", 0x1841, 30, 1, false, "V", 0.02, 0},
	{"Status 32", 0x0030, 31, 1, false, "", 1.0, 0},
	{"Status 33", 0x0031, 32, 1, false, "", 1.0, 0},
	{"Status 34", 0x0032, 33, 1, false, "", 1.0, 0},
	{"Status 35", 0x0033, 34, 1, false, "", 1.0, 0},
	{"Knock Retard", 0x0188, 35, 1, false, "°", 0.351, 0},
	{"EPROM ID Hi", 0x2000, 36, 1, false, "", 1.0, 0},
	{"EPROM ID Lo", 0x2001, 37, 1, false, "", 1.0, 0},
	{"mg/s/cyl", 0x0067, 38, 1, false, "mg/s", 1.0, 0},
	{"Wheel Speed", 0x0208, 39, 1, false, "km/h", 1.0, 0},
	{"Idle Var", 0x1A3D, 40, 2, false, "RPM", 1.0, 0},
	{"IAC Steps", 0x001D, 42, 1, false, "steps", 1.0, 0},
	{"Spark Advance", 0x01A7, 43, 2, false, "°", 90.0 / 256, -35.0},
	{"Eng Perf 100", 0x0352, 45, 1, false, "%", 1.0 / 2.55, 0},
	{"Eng Perf 50", 0x0354, 46, 1, false, "%", 1.0 / 2.55, 0},
	{"EGR Pintle", 0x18F8, 47, 1, false, "V", 5.0 / 255, 0},
	{"EGR Feedback", 0x18F2, 48, 1, false, "V", 5.0 / 255, 0},
	{"EGR Desired", 0x18F1, 49, 1, false, "V", 5.0 / 255, 0},
	{"Canister Purge", 0x189B, 50, 1, false, "%", 1.0 / 2.55, 0},
	{"Fuel Consump", 0x0175, 51, 2, false, "L/100k", 1.0, 0},
	{"Run Time", 0x001E, 53, 2, false, "sec", 1.0, 0},
	{"Crank Time", 0x017F, 55, 2, false, "ms", 1.0, 0},
}

// ByName indexes Parameters for lookup by name, built once at package init
// the way a fixed lookup table is built from a fixed list.
var ByName = func() map[string]ParameterDescriptor {
	m := make(map[string]ParameterDescriptor, len(Parameters))
	for _, p := range Parameters {
		m[p.Name] = p
	}
	return m
}()
