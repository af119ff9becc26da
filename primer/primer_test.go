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

package primer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-ssg/seroamp/internal/input"
)

func TestParse(t *testing.T) {
	Convey("Given a primer pair file", t, func() {
		data := "zeta AAA TTT\nalpha GGG CCC\n\nmid ACGT TGCA\n"

		Convey("You get the pairs in file order, unsorted", func() {
			schema, err := Parse(strings.NewReader(data))
			So(err, ShouldBeNil)
			So(schema, ShouldResemble, Schema{
				{Name: "zeta", Forward: "AAA", Reverse: "TTT"},
				{Name: "alpha", Forward: "GGG", Reverse: "CCC"},
				{Name: "mid", Forward: "ACGT", Reverse: "TGCA"},
			})
			So(schema.Names(), ShouldResemble, []string{"zeta", "alpha", "mid"})
		})

		Convey("You can load it from disk", func() {
			path := filepath.Join(t.TempDir(), "primers.txt")
			err := os.WriteFile(path, []byte(data), 0600)
			So(err, ShouldBeNil)

			schema, err := Load(path)
			So(err, ShouldBeNil)
			So(len(schema), ShouldEqual, 3)
		})
	})

	Convey("Lines with fewer than 3 fields are malformed", t, func() {
		path := filepath.Join(t.TempDir(), "bad.txt")
		err := os.WriteFile(path, []byte("p1 AAA TTT\np2 GGG\n"), 0600)
		So(err, ShouldBeNil)

		_, err = Load(path)
		So(err, ShouldNotBeNil)

		var merr *input.MalformedInputError
		So(errors.As(err, &merr), ShouldBeTrue)
		So(merr.Line, ShouldEqual, 2)
		So(merr.Path, ShouldEqual, path)
	})
}
