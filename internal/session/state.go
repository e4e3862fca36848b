/*
 * aldlflash - Session state machine.
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

// Package session drives one ECU conversation: framing, retries, silence
// detection, and the connect/unlock/program/flash/tune state machine built
// on top of internal/aldl and internal/transport.
package session

// State is one node of the session state machine in spec.md §3.3.
type State int

const (
	Disconnected State = iota
	Connected
	Silenced
	Unlocked
	Programming
	KernelLoaded
	Flashing
	Datalog
	LiveTune
	Error
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Silenced:
		return "silenced"
	case Unlocked:
		return "unlocked"
	case Programming:
		return "programming"
	case KernelLoaded:
		return "kernel_loaded"
	case Flashing:
		return "flashing"
	case Datalog:
		return "datalog"
	case LiveTune:
		return "live_tune"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}
