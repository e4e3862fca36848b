/*
 * aldlflash - Continuous Mode 1 data-stream logger.
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

// Package datalog polls session.Engine.RequestMode1 back to back and
// records the decoded samples to a Sink, keeping a small bounded in-memory
// history for live display.
package datalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kingai-tools/aldlflash/internal/session"
)

const bufferDepth = 10000

// DefaultParams mirrors the reference tool's default logged-parameter
// selection: the set a tuner actually watches while driving.
var DefaultParams = []string{
	"RPM", "ECT Temp", "IAT Temp", "TPS %", "MAF",
	"Spark Advance", "Knock Retard", "AFR", "LH O2", "RH O2",
	"LH STFT", "RH STFT", "LH LTFT", "RH LTFT",
	"Battery V", "IAC Steps", "Inj PW", "Run Time",
}

// Logger drives a background poll loop recording Mode 1 samples to a Sink.
type Logger struct {
	Engine *session.Engine
	Params []string
	OnData func(map[string]float64)

	mu          sync.Mutex
	buffer      []map[string]float64
	sampleCount int
	startTime   time.Time
	running     bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// New builds a Logger over an already-connected engine, logging params (or
// DefaultParams if nil).
func New(e *session.Engine, params []string) *Logger {
	if params == nil {
		params = DefaultParams
	}
	return &Logger{Engine: e, Params: params}
}

// Start begins the background poll loop writing to sink, until Stop is
// called or ctx is cancelled.
func (l *Logger) Start(ctx context.Context, sink Sink) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("datalog: already running")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.running = true
	l.sampleCount = 0
	l.startTime = time.Now()
	l.done = make(chan struct{})
	l.mu.Unlock()

	go l.loop(loopCtx, sink)
	return nil
}

// Stop signals the poll loop to exit and waits for it to finish.
func (l *Logger) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	cancel := l.cancel
	done := l.done
	l.mu.Unlock()

	cancel()
	<-done

	l.mu.Lock()
	l.running = false
	l.mu.Unlock()
}

func (l *Logger) loop(ctx context.Context, sink Sink) {
	defer close(l.done)
	defer sink.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if l.Engine.Cancelled() {
			return
		}

		data, err := l.Engine.RequestMode1(ctx, 0)
		if err != nil || data == nil {
			time.Sleep(50 * time.Millisecond)
			continue
		}

		l.mu.Lock()
		l.sampleCount++
		elapsed := time.Since(l.startTime).Seconds()
		l.appendLocked(data)
		l.mu.Unlock()

		values := make([]string, len(l.Params))
		for i, p := range l.Params {
			if v, ok := data[p]; ok {
				values[i] = fmt.Sprintf("%v", v)
			}
		}
		ts := time.Now().Format("15:04:05.000")
		if err := sink.WriteRow(ts, elapsed, values); err != nil {
			return
		}

		if l.OnData != nil {
			l.OnData(data)
		}
	}
}

func (l *Logger) appendLocked(data map[string]float64) {
	if len(l.buffer) >= bufferDepth {
		copy(l.buffer, l.buffer[1:])
		l.buffer = l.buffer[:len(l.buffer)-1]
	}
	l.buffer = append(l.buffer, data)
}

// Latest returns the most recent sample, or nil if none has arrived yet.
func (l *Logger) Latest() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.buffer) == 0 {
		return nil
	}
	return l.buffer[len(l.buffer)-1]
}

// SampleRate reports the mean samples-per-second observed since Start.
func (l *Logger) SampleRate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	elapsed := time.Since(l.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(l.sampleCount) / elapsed
}
