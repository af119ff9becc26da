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

// package ispcr extracts amplicon hits from isPcr FASTA output.
//
// Each amplicon isPcr finds is written as a FASTA record whose header looks
// like:
//
//	>contig_id primer_pair_name product_length forward_primer reverse_primer
//
// Only the header lines matter to us; the sequence lines are skipped.

package ispcr

import (
	"io"
	"math"
	"strings"

	"github.com/wtsi-ssg/seroamp/internal/input"
)

const (
	headerPrefix = '>'
	minFields    = 3
	primerField  = 1
	lengthField  = 2
)

// Hit is one amplicon reported for a sample. Length is kept exactly as isPcr
// wrote it (eg. "412" or "412bp").
type Hit struct {
	Sample string
	Primer string
	Length string
}

// Size returns the numeric value of the leading digits of Length, or 0 if it
// doesn't start with a digit. Values too big for an int are math.MaxInt.
func (h Hit) Size() int {
	n := 0

	for _, c := range h.Length {
		if c < '0' || c > '9' {
			break
		}

		d := int(c - '0')
		if n > (math.MaxInt-d)/10 {
			return math.MaxInt
		}

		n = n*10 + d
	}

	return n
}

// Cell returns the hit formatted for the report, eg. "p1(412)".
func (h Hit) Cell() string {
	return h.Primer + "(" + h.Length + ")"
}

// Parse returns a Hit for every header line in r, in the order found. sample
// is recorded in each Hit, and path is used in errors. A header line with
// fewer than 3 fields gives an *input.MalformedInputError.
func Parse(r io.Reader, sample, path string) ([]Hit, error) {
	lr := input.NewLineReader(r, path)

	var hits []Hit

	for lr.Next() {
		line := lr.Text()
		if line == "" || line[0] != headerPrefix {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < minFields {
			return nil, lr.Malformed("amplicon header needs contig, primer pair and length")
		}

		hits = append(hits, Hit{
			Sample: sample,
			Primer: fields[primerField],
			Length: fields[lengthField],
		})
	}

	return hits, lr.Err()
}

// Hits maps sample names to their hits in discovery order.
type Hits map[string][]Hit

// Collect parses the isPcr output of each named sample, the path of which is
// given by pathFor. Each name is only parsed once. A sample whose file doesn't
// exist is treated according to policy: Fail returns an
// *input.MissingDependencyError, Tolerate gives the sample no hits.
func Collect(names []string, pathFor func(string) string, policy input.MissingPolicy) (Hits, error) {
	hits := make(Hits, len(names))

	for _, name := range names {
		if _, done := hits[name]; done {
			continue
		}

		found, err := collectOne(name, pathFor(name), policy)
		if err != nil {
			return nil, err
		}

		hits[name] = found
	}

	return hits, nil
}

func collectOne(name, path string, policy input.MissingPolicy) ([]Hit, error) {
	rc, err := input.OpenForSample(name, path, policy)
	if err != nil || rc == nil {
		return []Hit{}, err
	}
	defer rc.Close()

	found, err := Parse(rc, name, path)
	if found == nil && err == nil {
		found = []Hit{}
	}

	return found, err
}

// ByPrimer groups the named sample's hits by primer pair name, keeping
// discovery order within each group.
func (h Hits) ByPrimer(sample string) map[string][]Hit {
	groups := make(map[string][]Hit)

	for _, hit := range h[sample] {
		groups[hit.Primer] = append(groups[hit.Primer], hit)
	}

	return groups
}

// Count returns the total number of hits across all samples.
func (h Hits) Count() int {
	n := 0

	for _, hits := range h {
		n += len(hits)
	}

	return n
}
