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

package tidy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const (
	date        = "20260901"
	unique      = "cci4fafnu1ia052l75sg"
	report      = "results.out"
	contigs     = "contigs"
	userOnly    = 0700
	groupRW     = 0770
	reportData  = "\tSeqSero\tp1\ns1\tTyphimurium\tp1(412)\n"
	contigsData = ">k141_1\nACGT\n"
)

func TestTidy(t *testing.T) {
	Convey("Given a working directory with a report and contigs", t, func() {
		tmpDir := t.TempDir()
		srcDir := filepath.Join(tmpDir, "work", unique)
		destDir := filepath.Join(tmpDir, "final")

		So(os.MkdirAll(filepath.Join(srcDir, contigs), userOnly), ShouldBeNil)
		So(os.WriteFile(filepath.Join(srcDir, report), []byte(reportData), 0600), ShouldBeNil)
		So(os.WriteFile(filepath.Join(srcDir, contigs, "s1.contigs.fa"), []byte(contigsData), 0600), ShouldBeNil)
		So(os.WriteFile(filepath.Join(srcDir, "s1_1.fastq.gz"), nil, 0600), ShouldBeNil)

		u := &Up{SrcDir: srcDir, DestDir: destDir, DestDirPerms: groupRW, Report: report, Date: date}

		finalReport := filepath.Join(destDir, date+"_"+unique+"."+report)
		finalContigs := filepath.Join(destDir, date+"_"+unique+"."+contigs)

		Convey("Up moves the report to a dated name in a new dest dir and deletes the source", func() {
			moved, err := u.Up()
			So(err, ShouldBeNil)
			So(moved, ShouldResemble, []string{finalReport})

			b, err := os.ReadFile(finalReport)
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, reportData)

			_, err = os.Stat(srcDir)
			So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)

			_, err = os.Stat(finalContigs)
			So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)

			Convey("and running it again does nothing", func() {
				moved, err := u.Up()
				So(err, ShouldBeNil)
				So(moved, ShouldBeEmpty)

				b, err := os.ReadFile(finalReport)
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, reportData)
			})

			Convey("and the report's read-write permissions match the dest dir", func() {
				destInfo, err := os.Stat(destDir)
				So(err, ShouldBeNil)

				info, err := os.Stat(finalReport)
				So(err, ShouldBeNil)
				So(info.Mode()&modeRW, ShouldEqual, destInfo.Mode()&modeRW)
			})
		})

		Convey("Up keeps the contigs if asked", func() {
			u.Contigs = contigs

			moved, err := u.Up()
			So(err, ShouldBeNil)
			So(moved, ShouldResemble, []string{finalReport, finalContigs})

			b, err := os.ReadFile(filepath.Join(finalContigs, "s1.contigs.fa"))
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, contigsData)

			destInfo, err := os.Stat(destDir)
			So(err, ShouldBeNil)

			info, err := os.Stat(filepath.Join(finalContigs, "s1.contigs.fa"))
			So(err, ShouldBeNil)
			So(info.Mode()&modeRW, ShouldEqual, destInfo.Mode()&modeRW)
		})

		Convey("Up can be run again after being interrupted", func() {
			u.Contigs = contigs

			So(os.MkdirAll(destDir, groupRW), ShouldBeNil)
			So(os.Rename(filepath.Join(srcDir, report), finalReport), ShouldBeNil)
			So(os.Rename(filepath.Join(srcDir, contigs), finalContigs), ShouldBeNil)

			moved, err := u.Up()
			So(err, ShouldBeNil)
			So(len(moved), ShouldEqual, 2)

			_, err = os.Stat(srcDir)
			So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
		})

		Convey("Up fails without deleting anything if there is no report", func() {
			So(os.Remove(filepath.Join(srcDir, report)), ShouldBeNil)

			_, err := u.Up()
			So(errors.Is(err, ErrNoReport), ShouldBeTrue)

			_, err = os.Stat(srcDir)
			So(err, ShouldBeNil)
		})

		Convey("Up fails if the source dir doesn't exist and nothing was moved", func() {
			So(os.RemoveAll(srcDir), ShouldBeNil)

			_, err := u.Up()
			So(err, ShouldNotBeNil)
		})
	})
}
