/*
 * aldlflash - YAML-loaded calibration table descriptors.
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

// Package calconfig loads calibration.TableDescriptor values from a YAML
// file, for tables a particular calibration carries that internal/calibration's
// built-in set does not know about (a different OSID, an XDF-discovered
// table not yet promoted into code). This is the one place the codebase
// reaches for gopkg.in/yaml.v3 rather than the hand-rolled internal/config
// reader, because a 2D table with named axes and per-axis value lists is
// naturally nested data, not flat key/value options.
package calconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kingai-tools/aldlflash/internal/calibration"
)

// tableYAML mirrors calibration.TableDescriptor's shape for YAML decoding;
// kept distinct so the on-disk field names and tags never leak into the
// calibration package itself.
type tableYAML struct {
	Name        string    `yaml:"name"`
	ROMOffset   int       `yaml:"rom_offset"`
	Rows        int       `yaml:"rows"`
	Cols        int       `yaml:"cols"`
	ElementSize int       `yaml:"element_size"`
	XAxisName   string    `yaml:"x_axis_name"`
	YAxisName   string    `yaml:"y_axis_name"`
	Units       string    `yaml:"units"`
	Conversion  string    `yaml:"conversion"`
	XAxisValues []float64 `yaml:"x_axis_values"`
	YAxisValues []float64 `yaml:"y_axis_values"`
}

// document is the top-level shape of a calibration table file:
//
//	osid: "12200411"
//	tables:
//	  boost_target:
//	    name: Boost Target
//	    rom_offset: 0x7A10
//	    rows: 10
//	    cols: 10
//	    element_size: 1
type document struct {
	OSID   string               `yaml:"osid"`
	Tables map[string]tableYAML `yaml:"tables"`
}

// File is a parsed calibration table file: the OS ID it was written
// against and the table descriptors it defines.
type File struct {
	OSID   string
	Tables map[string]calibration.TableDescriptor
}

// Load reads and validates a YAML table-descriptor file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("calconfig: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("calconfig: parse %s: %w", path, err)
	}

	out := &File{OSID: doc.OSID, Tables: make(map[string]calibration.TableDescriptor, len(doc.Tables))}
	for key, t := range doc.Tables {
		if t.Rows <= 0 || t.Cols <= 0 {
			return nil, fmt.Errorf("calconfig: table %q: rows/cols must be positive", key)
		}
		if t.ElementSize != 1 && t.ElementSize != 2 {
			if t.ElementSize != 0 {
				return nil, fmt.Errorf("calconfig: table %q: element_size must be 1 or 2", key)
			}
			t.ElementSize = 1
		}
		out.Tables[key] = calibration.TableDescriptor{
			Name:        t.Name,
			ROMOffset:   t.ROMOffset,
			Rows:        t.Rows,
			Cols:        t.Cols,
			ElementSize: t.ElementSize,
			XAxisName:   t.XAxisName,
			YAxisName:   t.YAxisName,
			Units:       t.Units,
			Conversion:  t.Conversion,
			XAxisValues: t.XAxisValues,
			YAxisValues: t.YAxisValues,
		}
	}
	return out, nil
}

// Merge layers the tables in f on top of base, with f's entries winning on
// key collision, and returns the combined set.
func (f *File) Merge(base map[string]calibration.TableDescriptor) map[string]calibration.TableDescriptor {
	out := make(map[string]calibration.TableDescriptor, len(base)+len(f.Tables))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range f.Tables {
		out[k] = v
	}
	return out
}
