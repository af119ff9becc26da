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

// package report writes the serotype/amplicon matrix as tab separated text,
// and reads it back for display.
//
// The format is a header line, with an empty first cell, then "SeqSero", then
// each primer pair name, followed by a line per sample with the sample name,
// its serotype and its cells. Reports are appended to, so a file can hold the
// output of several runs, each starting with its own header.

package report

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/wtsi-ssg/seroamp/internal/input"
	"github.com/wtsi-ssg/seroamp/matrix"
	"github.com/wtsi-ssg/seroamp/primer"
)

type Error string

func (e Error) Error() string { return string(e) }

const ErrNoHeader = Error("report rows found before any header")

const (
	// SerotypeColumn is the header of the serotype column.
	SerotypeColumn = "SeqSero"

	sep         = "\t"
	appendFlags = os.O_APPEND | os.O_CREATE | os.O_WRONLY
	filePerms   = 0644
)

// Header returns the header cells for the given schema.
func Header(schema primer.Schema) []string {
	return append([]string{"", SerotypeColumn}, schema.Names()...)
}

// Write writes the header and rows to w.
func Write(w io.Writer, schema primer.Schema, rows []matrix.Row) error {
	if _, err := io.WriteString(w, strings.Join(Header(schema), sep)+"\n"); err != nil {
		return err
	}

	for _, row := range rows {
		if _, err := io.WriteString(w, formatRow(row)); err != nil {
			return err
		}
	}

	return nil
}

func formatRow(row matrix.Row) string {
	cols := append([]string{row.Sample, row.Serotype}, row.Cells...)

	return strings.Join(cols, sep) + "\n"
}

// Append writes the header and rows to the end of the file at path, creating
// it if necessary. Existing content is never truncated. Returns the number of
// bytes written.
func Append(path string, schema primer.Schema, rows []matrix.Row) (int, error) {
	var buf bytes.Buffer

	if err := Write(&buf, schema, rows); err != nil {
		return 0, err
	}

	f, err := os.OpenFile(path, appendFlags, filePerms)
	if err != nil {
		return 0, err
	}

	n, err := f.Write(buf.Bytes())
	if err != nil {
		f.Close()

		return n, err
	}

	return n, f.Close()
}

// Section is the header and rows written by one run.
type Section struct {
	Header []string
	Rows   [][]string
}

// Read parses a report, returning a Section per header found, in file order.
func Read(r io.Reader) ([]*Section, error) {
	lr := input.NewLineReader(r, "-")

	var (
		sections []*Section
		current  *Section
	)

	for lr.Next() {
		line := lr.Text()
		if line == "" {
			continue
		}

		cols := strings.Split(line, sep)

		if isHeader(cols) {
			current = &Section{Header: cols}
			sections = append(sections, current)

			continue
		}

		if current == nil {
			return nil, ErrNoHeader
		}

		current.Rows = append(current.Rows, cols)
	}

	return sections, lr.Err()
}

func isHeader(cols []string) bool {
	return len(cols) > 1 && cols[0] == "" && cols[1] == SerotypeColumn
}

// Load opens and reads the report at path.
func Load(path string) ([]*Section, error) {
	rc, err := input.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return Read(rc)
}

// Table renders the section as an aligned text table.
func (s *Section) Table(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	header := make([]string, len(s.Header))
	copy(header, s.Header)
	header[0] = "Sample"

	table.SetHeader(header)
	table.AppendBulk(s.Rows)
	table.Render()
}
