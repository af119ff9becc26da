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

package input

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// LineReader reads lines without their line endings, keeping count of the
// line number so that parse errors can say where they happened. Unlike a
// bufio.Scanner it has no maximum line length, since amplicon sequences can
// be written on a single line.
type LineReader struct {
	r    *bufio.Reader
	path string
	text string
	line int
	err  error
}

// NewLineReader returns a LineReader for r. path is only used in errors.
func NewLineReader(r io.Reader, path string) *LineReader {
	return &LineReader{
		r:    bufio.NewReader(r),
		path: path,
	}
}

// Next reads the next line, returning false at the end of input or on error.
// A final line without a trailing newline is still returned.
func (l *LineReader) Next() bool {
	line, err := l.r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			l.err = err

			return false
		}

		if line == "" {
			return false
		}
	}

	l.line++
	l.text = strings.TrimRight(line, "\r\n")

	return true
}

// Text returns the current line.
func (l *LineReader) Text() string {
	return l.text
}

// Line returns the 1-based number of the current line.
func (l *LineReader) Line() int {
	return l.line
}

// Malformed returns a *MalformedInputError for the current line.
func (l *LineReader) Malformed(reason string) *MalformedInputError {
	return &MalformedInputError{Path: l.path, Line: l.line, Reason: reason}
}

// Err returns any read error encountered by Next().
func (l *LineReader) Err() error {
	return l.err
}
