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

package aggregate

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/inconshreveable/log15"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-ssg/seroamp/config"
	"github.com/wtsi-ssg/seroamp/internal/input"
	"github.com/wtsi-ssg/seroamp/matrix"
	"github.com/wtsi-ssg/seroamp/wait"
)

const expectedReport = "\tSeqSero\tp1\tp2\n" +
	"s1\tTyphimurium\tp1(412)\tnone\n" +
	"s2\tN/A\tnone\tnone\n"

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0600); err != nil {
			t.Fatal(err)
		}
	}
}

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()

	v, err := config.NewViper("")
	if err != nil {
		t.Fatal(err)
	}

	v.Set(config.KeySeqSeroDir, dir)
	v.Set(config.KeyISPCRDir, dir)
	v.Set(config.KeyOutput, filepath.Join(dir, "results.out"))

	cfg, err := config.FromViper(v)
	if err != nil {
		t.Fatal(err)
	}

	return cfg
}

func TestRun(t *testing.T) {
	Convey("Given sample, primer and tool output files", t, func() {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{
			"samples.tsv":    "SRR1\ts1\nSRR2\ts2\n",
			"primers.txt":    "p1 AAA TTT\np2 GGG CCC\n",
			"s1_seqsero.out": "Predicted antigenic profile:\t4:i:1,2\nPredicted serotype(s):\tTyphimurium\n",
			"s2_seqsero.out": "nothing useful\n",
			"s1_is.out":      ">ctg1 p1 412\nACGTACGT\n",
			"s2_is.out":      "",
		})

		cfg := testConfig(t, dir)
		samples := filepath.Join(dir, "samples.tsv")
		primers := filepath.Join(dir, "primers.txt")

		buff := new(bytes.Buffer)
		logger := log15.New()
		logger.SetHandler(log15.StreamHandler(buff, log15.LogfmtFormat()))

		Convey("Run writes the expected report", func() {
			res, err := Run(cfg, samples, primers, logger)
			So(err, ShouldBeNil)
			So(len(res.Rows), ShouldEqual, 2)
			So(res.Written, ShouldEqual, len(expectedReport))

			b, err := os.ReadFile(cfg.Output)
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, expectedReport)

			So(buff.String(), ShouldContainSubstring, `msg="stage complete" run=samples.tsv stage=samples items=2`)
			So(buff.String(), ShouldContainSubstring, `stage=ispcr items=1`)
			So(buff.String(), ShouldContainSubstring, `msg="run complete"`)

			Convey("and running again appends identical rows", func() {
				res2, err := Run(cfg, samples, primers, logger)
				So(err, ShouldBeNil)
				So(res2.Rows, ShouldResemble, res.Rows)

				b, err := os.ReadFile(cfg.Output)
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, expectedReport+expectedReport)
			})
		})

		Convey("A missing isPcr file fails the run without writing anything", func() {
			So(os.Remove(filepath.Join(dir, "s2_is.out")), ShouldBeNil)

			_, err := Run(cfg, samples, primers, logger)
			So(err, ShouldNotBeNil)

			var merr *input.MissingDependencyError
			So(errors.As(err, &merr), ShouldBeTrue)
			So(merr.Sample, ShouldEqual, "s2")

			_, err = os.Stat(cfg.Output)
			So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)

			So(buff.String(), ShouldContainSubstring, `msg="stage failed" run=samples.tsv stage=ispcr`)
			So(buff.String(), ShouldContainSubstring, `msg="run failed"`)

			Convey("unless missing isPcr files are tolerated", func() {
				cfg.MissingISPCR = input.Tolerate

				res, err := Run(cfg, samples, primers, logger)
				So(err, ShouldBeNil)
				So(res.Rows[1].Cells, ShouldResemble, []string{matrix.Absent, matrix.Absent})
			})

			Convey("and waiting for it gives up at the time limit", func() {
				cfg.Wait = 10 * time.Millisecond

				_, err := Run(cfg, samples, primers, logger)
				So(err, ShouldNotBeNil)
				So(errors.Is(err, wait.ErrMissingFiles), ShouldBeTrue)
				So(buff.String(), ShouldContainSubstring, `msg="stage failed" run=samples.tsv stage=wait`)
			})

			Convey("but waiting lets it appear late", func() {
				cfg.Wait = 10 * time.Second

				go func() {
					<-time.After(100 * time.Millisecond)
					os.WriteFile(filepath.Join(dir, "s2_is.out"), nil, 0600) //nolint:errcheck
				}()

				res, err := Run(cfg, samples, primers, logger)
				So(err, ShouldBeNil)
				So(res.Rows, ShouldHaveLength, 2)
				So(buff.String(), ShouldContainSubstring, `stage=wait items=2`)
			})
		})

		Convey("A missing SeqSero file is tolerated by default but can be made fatal", func() {
			So(os.Remove(filepath.Join(dir, "s1_seqsero.out")), ShouldBeNil)

			res, err := Run(cfg, samples, primers, logger)
			So(err, ShouldBeNil)
			So(res.Rows[0].Serotype, ShouldEqual, "N/A")

			cfg.MissingSeqSero = input.Fail
			_, err = Run(cfg, samples, primers, logger)

			var merr *input.MissingDependencyError
			So(errors.As(err, &merr), ShouldBeTrue)
			So(merr.Sample, ShouldEqual, "s1")
		})

		Convey("A malformed primer file fails the run", func() {
			writeFiles(t, dir, map[string]string{"primers.txt": "p1 AAA\n"})

			_, err := Run(cfg, samples, primers, logger)

			var merr *input.MalformedInputError
			So(errors.As(err, &merr), ShouldBeTrue)
			So(merr.Line, ShouldEqual, 1)
		})

		Convey("Duplicate hits are joined by default, or expanded with a warning", func() {
			writeFiles(t, dir, map[string]string{"s1_is.out": ">ctg1 p1 900\nAC\n>ctg2 p1 412\nAC\n"})

			res, err := Run(cfg, samples, primers, logger)
			So(err, ShouldBeNil)
			So(res.Rows[0].Cells, ShouldResemble, []string{"p1(412),p1(900)", matrix.Absent})

			cfg.Duplicates = matrix.Expand
			res, err = Run(cfg, samples, primers, logger)
			So(err, ShouldBeNil)
			So(res.Rows[0].Cells, ShouldResemble, []string{"p1(900)", "p1(412)", matrix.Absent})
			So(buff.String(), ShouldContainSubstring, `msg="rows are wider than the header"`)
		})

		Convey("Duplicate sample names are warned about", func() {
			writeFiles(t, dir, map[string]string{"samples.tsv": "SRR1\ts1\nSRR3\ts1\n"})

			res, err := Run(cfg, samples, primers, logger)
			So(err, ShouldBeNil)
			So(len(res.Rows), ShouldEqual, 2)
			So(buff.String(), ShouldContainSubstring, `sample names appear more than once`)
		})
	})
}
