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

// package wait lets you wait for files written on other hosts to become
// visible, eg. on network filesystems that cache directory listings.

package wait

import (
	"context"
	"fmt"
	"os"
	"time"

	bs "github.com/wtsi-ssg/wr/backoff/time"
	"github.com/wtsi-ssg/wr/retry"
)

type Error string

func (e Error) Error() string { return string(e) }

const ErrMissingFiles = Error("files did not appear in time")

// ForFiles waits the given timeLimit for all the given paths to exist,
// checking again with a backoff while any are missing. Returns an error
// wrapping ErrMissingFiles that names the first missing path if some are still
// missing at the time limit.
func ForFiles(paths []string, timeLimit time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeLimit)
	defer cancel()

	var err error

	op := func() error {
		paths, err = missing(paths)

		return err
	}

	status := retry.Do(ctx, op, &retry.UntilNoError{}, bs.SecondsRangeBackoff(), "Waiting for files")
	if status.Err == nil {
		return nil
	}

	if err == nil {
		return status.Err
	}

	return err
}

// missing returns the given paths that don't exist, along with an error if
// there were any. Other stat errors are returned immediately, with the failing
// path and those not yet checked still counted as missing.
func missing(paths []string) ([]string, error) {
	var absent []string

	for i, path := range paths {
		_, err := os.Stat(path)
		if os.IsNotExist(err) {
			absent = append(absent, path)

			continue
		}

		if err != nil {
			return append(absent, paths[i:]...), err
		}
	}

	if len(absent) > 0 {
		return absent, fmt.Errorf("%w: %d including %s", ErrMissingFiles, len(absent), absent[0])
	}

	return nil, nil
}
