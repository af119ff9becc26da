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

// package matrix joins samples and primer pairs against parsed SeqSero and
// isPcr results, giving one row per sample with one cell per primer pair.

package matrix

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wtsi-ssg/seroamp/ispcr"
	"github.com/wtsi-ssg/seroamp/primer"
	"github.com/wtsi-ssg/seroamp/sample"
	"github.com/wtsi-ssg/seroamp/seqsero"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrUnknownPolicy = Error("unknown duplicate hit policy")
	ErrRowWidth      = Error("row has a different number of cells to primer pairs")
)

const (
	// Absent is the cell value for a primer pair with no hits.
	Absent = "none"

	joinSep = ","
)

// Policy decides how multiple hits for the same primer pair in one sample end
// up in a row.
type Policy int

const (
	// Join puts all the hits in one cell, ordered by length, separated by
	// commas.
	Join Policy = iota

	// Longest keeps only the longest hit.
	Longest

	// Shortest keeps only the shortest hit.
	Shortest

	// Expand gives each hit its own cell, in discovery order. Rows can then
	// be wider than the header; use Check() to find out.
	Expand
)

var policyNames = [...]string{"join", "longest", "shortest", "expand"}

// ParsePolicy converts a policy name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	for i, name := range policyNames {
		if strings.EqualFold(s, name) {
			return Policy(i), nil
		}
	}

	return Join, ErrUnknownPolicy
}

func (p Policy) String() string {
	if p < Join || p > Expand {
		return "unknown"
	}

	return policyNames[p]
}

// Row is one sample's line of the report.
type Row struct {
	Sample   string
	Serotype string
	Cells    []string
}

// Width returns the number of cells in the row.
func (r Row) Width() int {
	return len(r.Cells)
}

// Build returns a Row for every sample in reg, in reg order. Each row's cells
// follow schema order, with Absent for primer pairs that had no hits in that
// sample. Samples with no results at all still get a row.
func Build(reg sample.Registry, schema primer.Schema, preds seqsero.Predictions,
	hits ispcr.Hits, policy Policy) []Row {
	rows := make([]Row, len(reg))

	for i, s := range reg {
		rows[i] = buildRow(s.Name, schema, preds, hits.ByPrimer(s.Name), policy)
	}

	return rows
}

func buildRow(name string, schema primer.Schema, preds seqsero.Predictions,
	groups map[string][]ispcr.Hit, policy Policy) Row {
	cells := make([]string, 0, len(schema))

	for _, pair := range schema {
		group := groups[pair.Name]
		if len(group) == 0 {
			cells = append(cells, Absent)

			continue
		}

		cells = append(cells, policy.cells(group)...)
	}

	return Row{
		Sample:   name,
		Serotype: preds.Serotype(name),
		Cells:    cells,
	}
}

// cells formats a non-empty group of hits for the same primer pair.
func (p Policy) cells(group []ispcr.Hit) []string {
	if p == Expand {
		return formatAll(group)
	}

	sorted := ordered(group)

	switch p {
	case Longest:
		return []string{longest(sorted).Cell()}
	case Shortest:
		return []string{sorted[0].Cell()}
	default:
		return []string{strings.Join(formatAll(sorted), joinSep)}
	}
}

// ordered returns a copy of the hits sorted by Size, then Length, so that the
// result doesn't depend on the order isPcr reported them.
func ordered(group []ispcr.Hit) []ispcr.Hit {
	sorted := make([]ispcr.Hit, len(group))
	copy(sorted, group)

	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := sorted[i].Size(), sorted[j].Size()
		if si != sj {
			return si < sj
		}

		return sorted[i].Length < sorted[j].Length
	})

	return sorted
}

// longest returns the first hit with the greatest Size from sorted hits.
func longest(sorted []ispcr.Hit) ispcr.Hit {
	last := sorted[len(sorted)-1]

	for _, hit := range sorted {
		if hit.Size() == last.Size() {
			return hit
		}
	}

	return last
}

func formatAll(hits []ispcr.Hit) []string {
	cells := make([]string, len(hits))

	for i, hit := range hits {
		cells[i] = hit.Cell()
	}

	return cells
}

// Check returns an error naming the first row whose width doesn't match the
// number of primer pairs in schema. Only rows built with Expand can fail.
func Check(rows []Row, schema primer.Schema) error {
	for _, row := range rows {
		if row.Width() != len(schema) {
			return fmt.Errorf("%w: sample %s has %d cells, expected %d",
				ErrRowWidth, row.Sample, row.Width(), len(schema))
		}
	}

	return nil
}
