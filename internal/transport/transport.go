/*
 * aldlflash - Transport capability abstraction.
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

// Package transport defines the byte-level link the session engine drives.
// Implementations never retry and never reframe; that discipline belongs
// entirely to internal/session, the same separation the teacher keeps
// between a Device (answers one command) and its channel (sequences them).
package transport

import (
	"context"
	"time"
)

// Transport is a half-duplex byte link: open, write, read-with-deadline,
// flush, and byte-availability query.
type Transport interface {
	Open() error
	Close() error
	Write(p []byte) (int, error)
	// Read blocks for up to deadline, returning whatever bytes arrived —
	// possibly fewer than n, never more.
	Read(ctx context.Context, n int, deadline time.Time) ([]byte, error)
	FlushInput() error
	FlushOutput() error
	IsOpen() bool
	BytesAvailable() (int, error)
}
