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

// package input holds what the parsers share: the error types they return,
// gzip-aware opening of tool output files and a line reader.

package input

import "fmt"

type Error string

func (e Error) Error() string { return string(e) }

const ErrUnknownPolicy = Error("unknown missing file policy")

// MalformedInputError is returned when a line of an input file can't be
// parsed. Line is 1-based.
type MalformedInputError struct {
	Path   string
	Line   int
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input %s line %d: %s", e.Path, e.Line, e.Reason)
}

// MissingDependencyError is returned when an output file that an upstream
// stage should have made for a sample could not be opened.
type MissingDependencyError struct {
	Sample string
	Path   string
	Err    error
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("sample %s is missing upstream output %s: %s", e.Sample, e.Path, e.Err)
}

func (e *MissingDependencyError) Unwrap() error {
	return e.Err
}
