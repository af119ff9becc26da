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

// package stages describes the per-sample steps that produce the SeqSero and
// isPcr outputs a report is made from: download the reads from SRA, convert
// them to fastq, predict the serotype, trim, assemble and run in silico PCR on
// the contigs.
//
// Each Stage builds a shell command for a sample; running the commands is left
// to the caller (eg. by adding them to wr's queue).

package stages

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/wtsi-ssg/seroamp/config"
	"github.com/wtsi-ssg/seroamp/sample"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrUnsafeName   = Error("not safe to use in a shell command")
	ErrShortAcc     = Error("accession must be at least 6 characters")
	ErrUnknownStage = Error("unknown stage")
)

// stage names.
const (
	Download = "download"
	Fastq    = "fastq"
	SeqSero  = "seqsero"
	Trim     = "trim"
	Assemble = "assemble"
	ISPCR    = "ispcr"
)

const (
	sraHost         = "anonftp@ftp-trace.ncbi.nlm.nih.gov"
	sraRunPath      = "/sra/sra-instant/reads/ByRun/sra"
	minAccessionLen = 6
	trimSteps       = "LEADING:3 TRAILING:3 SLIDINGWINDOW:4:15 MINLEN:36"
	clipSettings    = "2:30:10"
)

var safeName = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Stage is one step of the per-sample pipeline.
type Stage struct {
	Name string

	// After names the stages that must complete for the same sample before
	// this one can start.
	After []string

	// Result is true for stages whose output a report is made from.
	Result bool

	// RAM (eg. "16G"), Time and Cores are the expected resource usage of one
	// sample's run of this stage.
	RAM   string
	Time  time.Duration
	Cores int

	command func(*Builder, sample.Sample) string
}

// Builder makes the stage commands for samples using the tools and paths in
// a Config.
type Builder struct {
	cfg     *config.Config
	primers string
}

// NewBuilder returns a Builder that will use the tools and output locations
// in cfg, and the given primer pair file for isPcr. The primer path is made
// absolute since commands are run in a different working directory.
func NewBuilder(cfg *config.Config, primersPath string) (*Builder, error) {
	primers, err := filepath.Abs(primersPath)
	if err != nil {
		return nil, err
	}

	return &Builder{cfg: cfg, primers: primers}, nil
}

// Stages returns the pipeline stages in an order where every stage comes
// after the stages it depends on.
func (b *Builder) Stages() []*Stage {
	threads := b.cfg.Tools.Threads

	return []*Stage{
		{
			Name: Download, RAM: "1G", Time: 2 * time.Hour, Cores: 1,
			command: (*Builder).download,
		},
		{
			Name: Fastq, After: []string{Download}, RAM: "2G", Time: time.Hour, Cores: 1,
			command: (*Builder).fastq,
		},
		{
			Name: SeqSero, After: []string{Fastq}, Result: true, RAM: "4G", Time: time.Hour, Cores: 1,
			command: (*Builder).seqsero,
		},
		{
			Name: Trim, After: []string{Fastq}, RAM: "8G", Time: time.Hour, Cores: threads,
			command: (*Builder).trim,
		},
		{
			Name: Assemble, After: []string{Trim}, RAM: "32G", Time: 8 * time.Hour, Cores: threads,
			command: (*Builder).assemble,
		},
		{
			Name: ISPCR, After: []string{Assemble}, Result: true, RAM: "1G", Time: 30 * time.Minute, Cores: 1,
			command: (*Builder).ispcr,
		},
	}
}

// Stage returns the named stage.
func (b *Builder) Stage(name string) (*Stage, error) {
	for _, stage := range b.Stages() {
		if stage.Name == name {
			return stage, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownStage, name)
}

// Command returns the shell command that runs this stage for the given
// sample. You should Validate() your samples first.
func (s *Stage) Command(b *Builder, smpl sample.Sample) string {
	return s.command(b, smpl)
}

// Validate checks that every sample's accession and name can be used in the
// stage commands: they must be made of letters, digits, dots, underscores and
// dashes only, and accessions must be long enough to form an SRA path. All
// problems are reported together.
func Validate(reg sample.Registry) error {
	var merr *multierror.Error

	for _, s := range reg {
		if !safeName.MatchString(s.Accession) {
			merr = multierror.Append(merr, fmt.Errorf("accession %q: %w", s.Accession, ErrUnsafeName))
		} else if len(s.Accession) < minAccessionLen {
			merr = multierror.Append(merr, fmt.Errorf("accession %q: %w", s.Accession, ErrShortAcc))
		}

		if !safeName.MatchString(s.Name) {
			merr = multierror.Append(merr, fmt.Errorf("sample name %q: %w", s.Name, ErrUnsafeName))
		}
	}

	return merr.ErrorOrNil()
}

// SRAPath returns the location of an accession's .sra file on the NCBI
// server.
func SRAPath(accession string) string {
	return strings.Join([]string{
		sraRunPath, accession[:3], accession[:minAccessionLen], accession, accession + ".sra",
	}, "/")
}

func (b *Builder) download(s sample.Sample) string {
	t := b.cfg.Tools

	return fmt.Sprintf("%s -i %s -k1 -Tr -l%s %s:%s %s.sra",
		t.Ascp, t.AscpKey, t.AscpRate, sraHost, SRAPath(s.Accession), s.Name)
}

func (b *Builder) fastq(s sample.Sample) string {
	return fmt.Sprintf("%s --split-3 --gzip %s.sra && rm -f %s.sra", b.cfg.Tools.FastqDump, s.Name, s.Name)
}

func (b *Builder) seqsero(s sample.Sample) string {
	r1, r2 := reads(s.Name, "fastq.gz")

	return fmt.Sprintf("%s -m 2 -i %s %s > %s", b.cfg.Tools.SeqSero, r1, r2, b.cfg.SeqSeroPath(s.Name))
}

// reads returns the paths of the first and second paired end read files of
// the given sample with the given suffix.
func reads(name, suffix string) (string, string) {
	return fmt.Sprintf("%s_1.%s", name, suffix), fmt.Sprintf("%s_2.%s", name, suffix)
}

func (b *Builder) trim(s sample.Sample) string {
	t := b.cfg.Tools
	r1, r2 := reads(s.Name, "fastq.gz")
	p1, p2 := reads(s.Name, "trimmedP.fastq.gz")
	u1, u2 := reads(s.Name, "trimmedS.fastq.gz")

	return fmt.Sprintf("%s -jar %s PE -threads %d -phred33 %s %s %s %s %s %s ILLUMINACLIP:%s:%s %s && rm -f %s %s",
		t.Java, t.Trimmomatic, t.Threads, r1, r2, p1, u1, p2, u2, t.Adapters, clipSettings, trimSteps, u1, u2)
}

func (b *Builder) assemble(s sample.Sample) string {
	p1, p2 := reads(s.Name, "trimmedP.fastq.gz")
	outDir := s.Name + "_megahit"
	contigs := b.cfg.ContigsPath(s.Name)

	return fmt.Sprintf("rm -rf %s && %s --presets bulk -t %d -1 %s -2 %s -o %s && mkdir -p %s && "+
		"mv %s %s && rm -r %s",
		outDir, b.cfg.Tools.Megahit, b.cfg.Tools.Threads, p1, p2, outDir, filepath.Dir(contigs),
		filepath.Join(outDir, "final.contigs.fa"), contigs, outDir)
}

func (b *Builder) ispcr(s sample.Sample) string {
	return fmt.Sprintf("%s %s %s %s", b.cfg.Tools.ISPCR, b.cfg.ContigsPath(s.Name), b.primers, b.cfg.ISPCRPath(s.Name))
}
