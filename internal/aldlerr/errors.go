/*
 * aldlflash - Error taxonomy for the ALDL flash/tune engine.
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

// Package aldlerr defines the error-kind taxonomy shared by every layer of
// the flasher: transport, framing, session, flash, and tuner.
package aldlerr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Compare with errors.Is, never with ==, since every
// returned error is wrapped in an *Error carrying call-site context.
var (
	ErrTransportNotOpen = errors.New("transport not open")
	ErrTransportIO      = errors.New("transport i/o failure")
	ErrFrameTimeout     = errors.New("no response within deadline")
	ErrFrameMalformed   = errors.New("malformed frame")
	ErrResponseMismatch = errors.New("response mode or ack byte mismatch")
	ErrProtocolDenied   = errors.New("protocol request denied by ECU")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrSafetyViolation  = errors.New("safety watchdog tripped")
	ErrCancelled        = errors.New("operation cancelled")
)

// Error wraps a sentinel kind with the operation that produced it and,
// optionally, the lower-level error that caused it.
type Error struct {
	Kind error  // one of the sentinels above
	Op   string // operation name, e.g. "session.UnlockSecurity"
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is reports whether target matches the Kind sentinel, so callers can use
// errors.Is(err, aldlerr.ErrFrameTimeout) without caring about wrapping depth.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// New builds an *Error for op with the given kind and optional cause.
func New(op string, kind error, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}
