/*
 * aldlflash - Optional GPIO bus-enable line for ALDL cable adapters.
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

// Package ptt asserts an optional GPIO "bus-enable" line some ALDL cable
// adapters expose, which must be held active before the 8192-baud
// handshake starts and released on disconnect. It plays the same role as
// a radio's push-to-talk line: assert a GPIO, then talk serial — the
// shape of problem the reference tool's PTT code solves with direct
// sysfs/RTS-DTR toggling. This package instead uses the modern
// character-device GPIO API (go-gpiocdev), since sysfs GPIO is deprecated
// on current kernels.
package ptt

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// EnableLine holds one requested GPIO output line used to enable the ALDL
// cable's bus driver.
type EnableLine struct {
	line   *gpiocdev.Line
	invert bool
}

// Open requests offset on chipName (e.g. "gpiochip0") as an output,
// initially deasserted. When invert is true, 0 means asserted.
func Open(chipName string, offset int, invert bool) (*EnableLine, error) {
	initial := 0
	if invert {
		initial = 1
	}
	line, err := gpiocdev.RequestLine(chipName, offset,
		gpiocdev.AsOutput(initial),
		gpiocdev.WithConsumer("aldlflash-ptt"),
	)
	if err != nil {
		return nil, fmt.Errorf("ptt: request %s:%d: %w", chipName, offset, err)
	}
	return &EnableLine{line: line, invert: invert}, nil
}

// Assert activates the bus-enable line.
func (e *EnableLine) Assert() error {
	return e.set(true)
}

// Deassert releases the bus-enable line.
func (e *EnableLine) Deassert() error {
	return e.set(false)
}

func (e *EnableLine) set(on bool) error {
	v := 1
	if on == e.invert {
		v = 0
	}
	if err := e.line.SetValue(v); err != nil {
		return fmt.Errorf("ptt: set value: %w", err)
	}
	return nil
}

// Close releases the GPIO line, deasserting it first.
func (e *EnableLine) Close() error {
	_ = e.Deassert()
	return e.line.Close()
}
