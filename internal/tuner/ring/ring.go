/*
 * aldlflash - Fixed-depth ring buffer for knock-retard history.
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

// Package ring is a small fixed-depth circular buffer of float64 samples,
// used by the live tuner to hold a short rolling window of a single sensor
// value (knock retard). Unlike the teacher's emu/event doubly-linked event
// list — built for arbitrary insert/cancel at arbitrary future times — this
// buffer only ever needs "push one, look at the last few", so it is a
// plain fixed-size slice rather than a list.
package ring

// Buffer holds up to Depth most-recent float64 samples, oldest evicted
// first.
type Buffer struct {
	depth  int
	values []float64
}

// New creates a Buffer holding at most depth samples.
func New(depth int) *Buffer {
	if depth < 1 {
		depth = 1
	}
	return &Buffer{depth: depth, values: make([]float64, 0, depth)}
}

// Push appends v, evicting the oldest sample if the buffer is full.
func (b *Buffer) Push(v float64) {
	if len(b.values) == b.depth {
		copy(b.values, b.values[1:])
		b.values = b.values[:len(b.values)-1]
	}
	b.values = append(b.values, v)
}

// Len reports how many samples are currently held.
func (b *Buffer) Len() int {
	return len(b.values)
}

// Last returns the n most recent samples, oldest first, or fewer if the
// buffer does not yet hold n.
func (b *Buffer) Last(n int) []float64 {
	if n > len(b.values) {
		n = len(b.values)
	}
	start := len(b.values) - n
	out := make([]float64, n)
	copy(out, b.values[start:])
	return out
}
