/*
 * aldlflash - Direct-USB CDC-ACM transport variant.
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

// Package usbdirect is a second real transport.Transport variant for
// adapters exposing a USB CDC-ACM device node directly (as opposed to a
// legacy UART). Some FTDI/CH340 clones mishandle the non-standard 8192
// baud ALDL rate through the normal termios path; a CDC-ACM device node
// doesn't have that problem since its "baud rate" is advisory only. This
// is a thin wrapper over serialport.Port, not a second wire protocol — the
// framing, retries, and everything above the byte link stay identical.
package usbdirect

import (
	"context"
	"time"

	"github.com/kingai-tools/aldlflash/internal/transport/serialport"
)

// Port is a CDC-ACM-flavored transport.Transport, reusing serialport.Port
// with the advisory baud rate set once at open and never renegotiated.
type Port struct {
	inner *serialport.Port
}

// New returns an unopened Port for the named CDC-ACM device node (e.g.
// "/dev/ttyACM0").
func New(path string, baud int) *Port {
	return &Port{inner: serialport.New(path, baud)}
}

// Open implements transport.Transport.
func (p *Port) Open() error { return p.inner.Open() }

// Close implements transport.Transport.
func (p *Port) Close() error { return p.inner.Close() }

// IsOpen implements transport.Transport.
func (p *Port) IsOpen() bool { return p.inner.IsOpen() }

// FlushInput implements transport.Transport.
func (p *Port) FlushInput() error { return p.inner.FlushInput() }

// FlushOutput implements transport.Transport.
func (p *Port) FlushOutput() error { return p.inner.FlushOutput() }

// BytesAvailable implements transport.Transport.
func (p *Port) BytesAvailable() (int, error) { return p.inner.BytesAvailable() }

// Write implements transport.Transport.
func (p *Port) Write(data []byte) (int, error) { return p.inner.Write(data) }

// Read implements transport.Transport.
func (p *Port) Read(ctx context.Context, n int, deadline time.Time) ([]byte, error) {
	return p.inner.Read(ctx, n, deadline)
}
