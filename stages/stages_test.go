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

package stages

import (
	"errors"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-ssg/seroamp/config"
	"github.com/wtsi-ssg/seroamp/sample"
)

func TestStages(t *testing.T) {
	Convey("Given a Builder with the default config", t, func() {
		v, err := config.NewViper("")
		So(err, ShouldBeNil)

		cfg, err := config.FromViper(v)
		So(err, ShouldBeNil)

		cfg.Tools.Threads = 4

		primers := filepath.Join(t.TempDir(), "primers.txt")
		b, err := NewBuilder(cfg, primers)
		So(err, ShouldBeNil)

		s := sample.Sample{Accession: "SRR1234567", Name: "s1"}

		command := func(name string) string {
			stage, errs := b.Stage(name)
			So(errs, ShouldBeNil)

			return stage.Command(b, s)
		}

		Convey("Stages come after the stages they depend on", func() {
			seen := make(map[string]bool)

			for _, stage := range b.Stages() {
				for _, after := range stage.After {
					So(seen[after], ShouldBeTrue)
				}

				seen[stage.Name] = true
			}

			So(len(seen), ShouldEqual, 6)
		})

		Convey("Only the seqsero and ispcr stages are results", func() {
			var results []string

			for _, stage := range b.Stages() {
				if stage.Result {
					results = append(results, stage.Name)
				}
			}

			So(results, ShouldResemble, []string{SeqSero, ISPCR})
		})

		Convey("Multi-threaded stages ask for that many cores", func() {
			stage, err := b.Stage(Assemble)
			So(err, ShouldBeNil)
			So(stage.Cores, ShouldEqual, 4)
		})

		Convey("Unknown stages can't be found", func() {
			_, err := b.Stage("foo")
			So(errors.Is(err, ErrUnknownStage), ShouldBeTrue)
		})

		Convey("The download command fetches the .sra file from NCBI", func() {
			So(SRAPath(s.Accession), ShouldEqual, "/sra/sra-instant/reads/ByRun/sra/SRR/SRR123/SRR1234567/SRR1234567.sra")
			So(command(Download), ShouldEqual, "ascp -i asperaweb_id_dsa.openssh -k1 -Tr -l50m "+
				"anonftp@ftp-trace.ncbi.nlm.nih.gov:/sra/sra-instant/reads/ByRun/sra/SRR/SRR123/SRR1234567/SRR1234567.sra s1.sra")
		})

		Convey("The fastq command splits the .sra in to gzipped paired reads", func() {
			So(command(Fastq), ShouldEqual, "fastq-dump --split-3 --gzip s1.sra && rm -f s1.sra")
		})

		Convey("The seqsero command writes where the report looks for it", func() {
			So(command(SeqSero), ShouldEqual, "SeqSero.py -m 2 -i s1_1.fastq.gz s1_2.fastq.gz > s1_seqsero.out")

			cfg.SeqSeroDir = "/out"
			So(command(SeqSero), ShouldEqual, "SeqSero.py -m 2 -i s1_1.fastq.gz s1_2.fastq.gz > /out/s1_seqsero.out")
		})

		Convey("The trim command runs trimmomatic in paired end mode and discards unpaired reads", func() {
			So(command(Trim), ShouldEqual, "java -jar trimmomatic.jar PE -threads 4 -phred33 "+
				"s1_1.fastq.gz s1_2.fastq.gz "+
				"s1_1.trimmedP.fastq.gz s1_1.trimmedS.fastq.gz s1_2.trimmedP.fastq.gz s1_2.trimmedS.fastq.gz "+
				"ILLUMINACLIP:NexteraPE-PE.fa:2:30:10 LEADING:3 TRAILING:3 SLIDINGWINDOW:4:15 MINLEN:36 "+
				"&& rm -f s1_1.trimmedS.fastq.gz s1_2.trimmedS.fastq.gz")
		})

		Convey("The assemble command leaves only the contigs behind", func() {
			So(command(Assemble), ShouldEqual, "rm -rf s1_megahit && "+
				"megahit --presets bulk -t 4 -1 s1_1.trimmedP.fastq.gz -2 s1_2.trimmedP.fastq.gz -o s1_megahit && "+
				"mkdir -p contigs && mv s1_megahit/final.contigs.fa contigs/s1.contigs.fa && rm -r s1_megahit")
		})

		Convey("The ispcr command runs the primers against the contigs", func() {
			So(command(ISPCR), ShouldEqual, "isPcr contigs/s1.contigs.fa "+primers+" s1_is.out")
		})

		Convey("Configured tools are used", func() {
			cfg.Tools.ISPCR = "/software/bin/isPcr"
			cfg.ISPCRSuffix = "_is.out.gz"
			So(command(ISPCR), ShouldStartWith, "/software/bin/isPcr ")
			So(command(ISPCR), ShouldEndWith, " s1_is.out.gz")
		})
	})

	Convey("Relative primer paths are made absolute", t, func() {
		b, err := NewBuilder(&config.Config{}, "primers.txt")
		So(err, ShouldBeNil)
		So(filepath.IsAbs(b.primers), ShouldBeTrue)
	})

	Convey("You can validate samples for use in commands", t, func() {
		So(Validate(sample.Registry{{Accession: "SRR1234567", Name: "s-1.a_b"}}), ShouldBeNil)

		err := Validate(sample.Registry{
			{Accession: "SRR1", Name: "ok"},
			{Accession: "SRR1234567", Name: "bad name"},
			{Accession: "SRR;rm", Name: "s$(x)"},
		})
		So(err, ShouldNotBeNil)
		So(errors.Is(err, ErrShortAcc), ShouldBeTrue)
		So(errors.Is(err, ErrUnsafeName), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "4 errors occurred")
	})
}
