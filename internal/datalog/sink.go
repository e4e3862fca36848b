/*
 * aldlflash - Data-log sinks.
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

package datalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/lestrrat-go/strftime"
)

// Sink receives one decoded Mode 1 sample per call, already matched
// against Params in order.
type Sink interface {
	WriteRow(timestamp string, elapsedSeconds float64, values []string) error
	Flush() error
	Close() error
}

// CSVSink appends rows to a CSV file, flushing every flushEvery rows the
// same way the reference tool flushes its file handle every 10 samples.
type CSVSink struct {
	f          *os.File
	w          *csv.Writer
	flushEvery int
	rowCount   int
}

// NewCSVSink creates path (overwriting it) and writes the header row.
func NewCSVSink(path string, params []string, flushEvery int) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("datalog: open %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	header := append([]string{"Timestamp", "Elapsed_s"}, params...)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("datalog: write header: %w", err)
	}
	if flushEvery <= 0 {
		flushEvery = 10
	}
	return &CSVSink{f: f, w: w, flushEvery: flushEvery}, nil
}

// WriteRow implements Sink.
func (s *CSVSink) WriteRow(timestamp string, elapsedSeconds float64, values []string) error {
	row := append([]string{timestamp, fmt.Sprintf("%.3f", elapsedSeconds)}, values...)
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.rowCount++
	if s.rowCount%s.flushEvery == 0 {
		return s.Flush()
	}
	return nil
}

// Flush implements Sink.
func (s *CSVSink) Flush() error {
	s.w.Flush()
	return s.w.Error()
}

// Close implements Sink.
func (s *CSVSink) Close() error {
	s.w.Flush()
	return s.f.Close()
}

// DefaultLogPath renders a timestamped CSV filename under dir using the
// reference tool's "datalog_YYYYMMDD_HHMMSS.csv" pattern, expressed as a
// strftime layout (the library this codebase uses for every other
// timestamp-to-filename case).
func DefaultLogPath(dir string, at time.Time) (string, error) {
	f, err := strftime.New("datalog_%Y%m%d_%H%M%S.csv")
	if err != nil {
		return "", fmt.Errorf("datalog: bad strftime layout: %w", err)
	}
	return dir + string(os.PathSeparator) + f.FormatString(at), nil
}
