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

package seqsero

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-ssg/seroamp/internal/input"
)

const exampleOutput = `This NGS-based mode is still in development
Input files:	s1_1.fastq.gz	s1_2.fastq.gz
O antigen prediction:	4
H1 antigen prediction(fliC):	i
H2 antigen prediction(fljB):	1,2
Predicted antigenic profile:	4:i:1,2
Predicted serotype(s):	Typhimurium
Note: the serotype prediction is based on antigens found
`

func TestParse(t *testing.T) {
	Convey("Given SeqSero output, you get the predicted serotype", t, func() {
		found, err := Parse(strings.NewReader(exampleOutput))
		So(err, ShouldBeNil)
		So(found, ShouldResemble, []string{"Typhimurium"})
	})

	Convey("Multiple prediction lines accumulate in order", t, func() {
		found, err := Parse(strings.NewReader(
			"Predicted serotype(s):\tEnteritidis\r\nother\nPredicted serotype(s):\tDublin\n"))
		So(err, ShouldBeNil)
		So(found, ShouldResemble, []string{"Enteritidis", "Dublin"})
	})

	Convey("Lines that only contain the key, or a similar key, are ignored", t, func() {
		found, err := Parse(strings.NewReader(
			"Predicted serotype(s):\nPredicted serotype(s): Dublin\n Predicted serotype(s):\tX\n"))
		So(err, ShouldBeNil)
		So(found, ShouldBeNil)
	})
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	pathFor := func(name string) string {
		return filepath.Join(dir, name+"_seqsero.out")
	}

	err := os.WriteFile(pathFor("s1"), []byte(exampleOutput), 0600)
	if err != nil {
		t.Fatal(err)
	}

	err = os.WriteFile(pathFor("s2"), []byte("Predicted serotype(s):\tN/A (O antigen not found)\n"), 0600)
	if err != nil {
		t.Fatal(err)
	}

	Convey("With the tolerate policy, missing files give no prediction", t, func() {
		preds, err := Collect([]string{"s1", "s2", "s3", "s1"}, pathFor, input.Tolerate)
		So(err, ShouldBeNil)
		So(len(preds), ShouldEqual, 3)
		So(preds["s3"], ShouldBeNil)

		So(preds.Serotype("s1"), ShouldEqual, "Typhimurium")
		So(preds.Serotype("s2"), ShouldEqual, NoPrediction)
		So(preds.Serotype("s3"), ShouldEqual, NoPrediction)
		So(preds.Serotype("unknown"), ShouldEqual, NoPrediction)
	})

	Convey("With the fail policy, missing files are an error naming the sample", t, func() {
		_, err := Collect([]string{"s1", "s3"}, pathFor, input.Fail)
		So(err, ShouldNotBeNil)

		var merr *input.MissingDependencyError
		So(errors.As(err, &merr), ShouldBeTrue)
		So(merr.Sample, ShouldEqual, "s3")
		So(merr.Path, ShouldEqual, pathFor("s3"))
	})

	Convey("Only the first prediction is used as the serotype", t, func() {
		preds := Predictions{"a": {"Dublin", "Enteritidis"}, "b": {"N/A", "Dublin"}, "c": {"N/Ax"}}
		So(preds.Serotype("a"), ShouldEqual, "Dublin")
		So(preds.Serotype("b"), ShouldEqual, NoPrediction)
		So(preds.Serotype("c"), ShouldEqual, NoPrediction)
	})
}
