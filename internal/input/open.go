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
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
)

const gzipSuffix = ".gz"

// MissingPolicy says what a Collect function should do when a sample's output
// file does not exist.
type MissingPolicy int

const (
	// Fail returns a *MissingDependencyError.
	Fail MissingPolicy = iota

	// Tolerate treats the sample as having produced no results.
	Tolerate
)

// ParsePolicy converts "fail" or "tolerate" to a MissingPolicy.
func ParsePolicy(s string) (MissingPolicy, error) {
	switch strings.ToLower(s) {
	case "fail":
		return Fail, nil
	case "tolerate":
		return Tolerate, nil
	}

	return Fail, ErrUnknownPolicy
}

func (p MissingPolicy) String() string {
	if p == Tolerate {
		return "tolerate"
	}

	return "fail"
}

// IsCompressed returns true if the given path will be decompressed by Open().
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, gzipSuffix)
}

// Open opens the given path for reading. Paths ending in .gz are
// decompressed as they are read. Close the returned ReadCloser when done.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	if !IsCompressed(path) {
		return f, nil
	}

	zr, err := pgzip.NewReader(f)
	if err != nil {
		f.Close()

		return nil, err
	}

	return &gzipFile{Reader: zr, f: f}, nil
}

type gzipFile struct {
	*pgzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()

	if errc := g.f.Close(); err == nil {
		err = errc
	}

	return err
}

// OpenForSample opens a sample's upstream output file. When it can't be
// opened you get a *MissingDependencyError, unless the file simply doesn't
// exist and policy is Tolerate, in which case you get a nil ReadCloser and nil
// error.
func OpenForSample(sample, path string, policy MissingPolicy) (io.ReadCloser, error) {
	rc, err := Open(path)
	if err == nil {
		return rc, nil
	}

	if policy == Tolerate && errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	return nil, &MissingDependencyError{Sample: sample, Path: path, Err: err}
}
