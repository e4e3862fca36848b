/*
 * aldlflash - Configuration file parser.
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

// Package config is a small hand-rolled line-oriented reader for session,
// flash, and tuner defaults, grounded on the teacher's
// config/configparser package: '#' starts a comment, each remaining line
// is "key value..." with optional "key=value" options, rather than the
// teacher's device-registry grammar (there is no device list here, just a
// flat option set).
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// Set holds every option line found in a config file, keyed by its
// uppercased option name, in the order encountered for options that
// repeat (most callers only care about the last value, via Get).
type Set struct {
	order []string
	lines map[string][]Line
}

// Line is one "key value..." config line.
type Line struct {
	Key   string
	Value string   // first token following the key; empty when the key is followed by '='
	Equal string   // value after '=', if present
	Extra []string // comma-separated trailing values
}

// Load reads path and returns its parsed option set.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	set := &Set{lines: make(map[string][]Line)}
	reader := bufio.NewReader(f)
	lineNo := 0
	for {
		raw, err := reader.ReadString('\n')
		lineNo++
		if len(raw) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		l := &cursor{text: raw}
		line, perr := l.parse()
		if perr != nil {
			return nil, fmt.Errorf("config: line %d: %w", lineNo, perr)
		}
		if line == nil {
			if err != nil && errors.Is(err, io.EOF) {
				break
			}
			continue
		}
		key := strings.ToUpper(line.Key)
		if _, seen := set.lines[key]; !seen {
			set.order = append(set.order, key)
		}
		set.lines[key] = append(set.lines[key], *line)
		if err != nil && errors.Is(err, io.EOF) {
			break
		}
	}
	return set, nil
}

// Get returns the last occurrence of key (case-insensitive), if present.
func (s *Set) Get(key string) (Line, bool) {
	rows, ok := s.lines[strings.ToUpper(key)]
	if !ok || len(rows) == 0 {
		return Line{}, false
	}
	return rows[len(rows)-1], true
}

// String returns the raw Value for key, or def if not set.
func (s *Set) String(key, def string) string {
	if l, ok := s.Get(key); ok && l.Value != "" {
		return l.Value
	}
	return def
}

// Int parses the raw Value for key as an integer, or def if unset/invalid.
func (s *Set) Int(key string, def int) int {
	if l, ok := s.Get(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(l.Value)); err == nil {
			return n
		}
	}
	return def
}

// Bool treats presence of key with no value, or value "true"/"1"/"on", as
// true.
func (s *Set) Bool(key string, def bool) bool {
	l, ok := s.Get(key)
	if !ok {
		return def
	}
	v := strings.ToLower(strings.TrimSpace(l.Value))
	return v == "" || v == "true" || v == "1" || v == "on"
}

// cursor walks one raw config line.
type cursor struct {
	text string
	pos  int
}

func (c *cursor) isEOL() bool {
	if c.pos >= len(c.text) {
		return true
	}
	return c.text[c.pos] == '#'
}

func (c *cursor) skipSpace() {
	for c.pos < len(c.text) && unicode.IsSpace(rune(c.text[c.pos])) {
		c.pos++
	}
}

func (c *cursor) parse() (*Line, error) {
	c.skipSpace()
	if c.isEOL() {
		return nil, nil
	}

	key := c.readIdent()
	if key == "" {
		return nil, fmt.Errorf("expected option name")
	}

	c.skipSpace()
	line := &Line{Key: key}

	if !c.isEOL() && c.text[c.pos] == '=' {
		c.pos++
		line.Equal = c.readToken()
		c.skipSpace()
	} else if !c.isEOL() {
		line.Value = c.readToken()
		c.skipSpace()
	}

	for !c.isEOL() && c.pos < len(c.text) && c.text[c.pos] == ',' {
		c.pos++
		c.skipSpace()
		line.Extra = append(line.Extra, c.readToken())
		c.skipSpace()
	}

	return line, nil
}

func (c *cursor) readIdent() string {
	start := c.pos
	for c.pos < len(c.text) {
		r := rune(c.text[c.pos])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		c.pos++
	}
	return c.text[start:c.pos]
}

func (c *cursor) readToken() string {
	c.skipSpace()
	start := c.pos
	for c.pos < len(c.text) {
		r := rune(c.text[c.pos])
		if unicode.IsSpace(r) || r == '#' || r == ',' {
			break
		}
		c.pos++
	}
	return c.text[start:c.pos]
}
