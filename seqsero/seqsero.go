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

// package seqsero extracts serotype predictions from SeqSero output files.

package seqsero

import (
	"io"
	"strings"

	"github.com/wtsi-ssg/seroamp/internal/input"
)

const (
	// PredictionKey is the first tab separated field of the lines we want.
	PredictionKey = "Predicted serotype(s):"

	// NoPrediction is reported for samples without a confident prediction.
	NoPrediction = "N/A"
)

// Predictions maps sample names to their predicted serotypes, in the order they
// appeared in the sample's SeqSero output.
type Predictions map[string][]string

// Parse returns the value of every "Predicted serotype(s):" line in r. Lines
// that have the key but no value are ignored.
func Parse(r io.Reader) ([]string, error) {
	lr := input.NewLineReader(r, "-")

	var found []string

	for lr.Next() {
		key, value, ok := strings.Cut(lr.Text(), "\t")
		if !ok || key != PredictionKey {
			continue
		}

		value, _, _ = strings.Cut(value, "\t")
		found = append(found, value)
	}

	return found, lr.Err()
}

// Collect parses the SeqSero output of each named sample, the path of which is
// given by pathFor. Each name is only parsed once. A sample whose file doesn't
// exist is treated according to policy: Tolerate gives it no predictions, Fail
// returns an *input.MissingDependencyError.
func Collect(names []string, pathFor func(string) string, policy input.MissingPolicy) (Predictions, error) {
	preds := make(Predictions, len(names))

	for _, name := range names {
		if _, done := preds[name]; done {
			continue
		}

		found, err := collectOne(name, pathFor(name), policy)
		if err != nil {
			return nil, err
		}

		preds[name] = found
	}

	return preds, nil
}

func collectOne(name, path string, policy input.MissingPolicy) ([]string, error) {
	rc, err := input.OpenForSample(name, path, policy)
	if err != nil || rc == nil {
		return nil, err
	}
	defer rc.Close()

	return Parse(rc)
}

// Serotype returns the first prediction for the named sample, or NoPrediction
// if there are none. Predictions starting "N/A" are normalised to exactly
// NoPrediction.
func (p Predictions) Serotype(name string) string {
	found := p[name]
	if len(found) == 0 || strings.HasPrefix(found[0], NoPrediction) {
		return NoPrediction
	}

	return found[0]
}
