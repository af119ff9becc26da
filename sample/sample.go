/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

// package sample parses the file that maps sequencing run accessions to sample
// names.

package sample

import (
	"io"
	"os"
	"strings"

	"github.com/wtsi-ssg/seroamp/internal/input"
)

// accession sample_name [ignored...]
const minCols = 2

// Sample is one line of a sample mapping file.
type Sample struct {
	Accession string
	Name      string
}

// Registry holds Samples in the order they appeared in the mapping file.
type Registry []Sample

// Load opens and parses the mapping file at path.
func Load(path string) (Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parse(f, path)
}

// Parse parses tab separated accession,sample_name lines from r. Empty lines
// are skipped. Any other line without both columns results in an
// *input.MalformedInputError.
func Parse(r io.Reader) (Registry, error) {
	return parse(r, "-")
}

func parse(r io.Reader, path string) (Registry, error) {
	lr := input.NewLineReader(r, path)

	var reg Registry

	for lr.Next() {
		line := lr.Text()
		if line == "" {
			continue
		}

		cols := strings.Split(line, "\t")
		if len(cols) < minCols {
			return nil, lr.Malformed("expected accession<TAB>sample_name")
		}

		if cols[1] == "" {
			return nil, lr.Malformed("empty sample name")
		}

		reg = append(reg, Sample{Accession: cols[0], Name: cols[1]})
	}

	return reg, lr.Err()
}

// Names returns the sample names in registry order.
func (r Registry) Names() []string {
	names := make([]string, len(r))

	for i, s := range r {
		names[i] = s.Name
	}

	return names
}

// Unique returns the sample names in registry order, skipping repeats.
func (r Registry) Unique() []string {
	seen := make(map[string]bool, len(r))
	names := make([]string, 0, len(r))

	for _, s := range r {
		if seen[s.Name] {
			continue
		}

		seen[s.Name] = true
		names = append(names, s.Name)
	}

	return names
}

// Duplicates returns the sample names that appear more than once, in the order
// of their first repeat.
func (r Registry) Duplicates() []string {
	counts := make(map[string]int, len(r))

	var dups []string

	for _, s := range r {
		counts[s.Name]++

		if counts[s.Name] == 2 {
			dups = append(dups, s.Name)
		}
	}

	return dups
}
