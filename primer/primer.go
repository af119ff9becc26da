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

// package primer parses isPcr primer pair files. The order of pairs in the
// file is the column order of the final report.

package primer

import (
	"io"
	"os"
	"strings"

	"github.com/wtsi-ssg/seroamp/internal/input"
)

// name forward reverse
const minFields = 3

// Pair is a named primer pair.
type Pair struct {
	Name    string
	Forward string
	Reverse string
}

// Schema holds Pairs in file order.
type Schema []Pair

// Load opens and parses the primer pair file at path.
func Load(path string) (Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parse(f, path)
}

// Parse parses whitespace separated "name forward reverse" lines from r. Empty
// lines are skipped and the order of the remaining lines is kept exactly.
func Parse(r io.Reader) (Schema, error) {
	return parse(r, "-")
}

func parse(r io.Reader, path string) (Schema, error) {
	lr := input.NewLineReader(r, path)

	var schema Schema

	for lr.Next() {
		fields := strings.Fields(lr.Text())
		if len(fields) == 0 {
			continue
		}

		if len(fields) < minFields {
			return nil, lr.Malformed("expected name forward_primer reverse_primer")
		}

		schema = append(schema, Pair{
			Name:    fields[0],
			Forward: fields[1],
			Reverse: fields[2],
		})
	}

	return schema, lr.Err()
}

// Names returns the pair names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))

	for i, p := range s {
		names[i] = p.Name
	}

	return names
}
