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

// package aggregate turns a sample mapping file, a primer pair file and the
// per-sample SeqSero and isPcr outputs in to an appended report.

package aggregate

import (
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/inconshreveable/log15"
	"github.com/wtsi-ssg/seroamp/config"
	"github.com/wtsi-ssg/seroamp/ispcr"
	"github.com/wtsi-ssg/seroamp/matrix"
	"github.com/wtsi-ssg/seroamp/primer"
	"github.com/wtsi-ssg/seroamp/report"
	"github.com/wtsi-ssg/seroamp/reporter"
	"github.com/wtsi-ssg/seroamp/sample"
	"github.com/wtsi-ssg/seroamp/seqsero"
	"github.com/wtsi-ssg/seroamp/wait"
)

// stage names, as they appear in logs.
const (
	StageSamples = "samples"
	StagePrimers = "primers"
	StageWait    = "wait"
	StageSeqSero = "seqsero"
	StageISPCR   = "ispcr"
	StageMatrix  = "matrix"
	StageReport  = "report"
)

// Result holds everything a Run produced.
type Result struct {
	Registry    sample.Registry
	Schema      primer.Schema
	Predictions seqsero.Predictions
	Hits        ispcr.Hits
	Rows        []matrix.Row
	Written     int
}

type run struct {
	cfg    *config.Config
	logger log15.Logger
	res    *Result
}

// Run reads the sample mapping file and primer pair file at the given paths,
// parses every sample's SeqSero and isPcr output as located by cfg, builds the
// matrix and appends it to cfg.Output. If cfg.Wait is set, outputs that must
// exist are first given that long to appear. Each of those is a stage whose outcome
// is logged to logger.
//
// Nothing is written unless every sample's files were parsed, so a failed run
// never leaves a partial report behind.
func Run(cfg *config.Config, samplesPath, primersPath string, logger log15.Logger) (*Result, error) {
	r := &run{cfg: cfg, logger: logger, res: &Result{}}
	rep := reporter.New(filepath.Base(samplesPath), logger)

	defer rep.ReportFinal()

	for _, stage := range []struct {
		name string
		f    reporter.StageFunc
	}{
		{StageSamples, func() (int, error) { return r.loadSamples(samplesPath) }},
		{StagePrimers, func() (int, error) { return r.loadPrimers(primersPath) }},
		{StageWait, r.waitForOutputs},
		{StageSeqSero, r.collectPredictions},
		{StageISPCR, r.collectHits},
		{StageMatrix, r.build},
		{StageReport, r.write},
	} {
		if err := rep.Stage(stage.name, stage.f); err != nil {
			return nil, err
		}
	}

	return r.res, nil
}

func (r *run) loadSamples(path string) (int, error) {
	reg, err := sample.Load(path)
	if err != nil {
		return 0, err
	}

	if dups := reg.Duplicates(); len(dups) > 0 {
		r.logger.Warn("sample names appear more than once; each occurrence gets its own row",
			"names", dups)
	}

	r.res.Registry = reg

	return len(reg), nil
}

func (r *run) loadPrimers(path string) (int, error) {
	schema, err := primer.Load(path)
	if err != nil {
		return 0, err
	}

	r.res.Schema = schema

	return len(schema), nil
}

func (r *run) waitForOutputs() (int, error) {
	if r.cfg.Wait == 0 {
		return 0, nil
	}

	paths := r.cfg.RequiredPaths(r.res.Registry.Unique())

	return len(paths), wait.ForFiles(paths, r.cfg.Wait)
}

func (r *run) collectPredictions() (int, error) {
	preds, err := seqsero.Collect(r.res.Registry.Unique(), r.cfg.SeqSeroPath, r.cfg.MissingSeqSero)
	if err != nil {
		return 0, err
	}

	for _, name := range r.res.Registry.Unique() {
		r.logger.Debug("serotype", "sample", name, "predictions", preds[name])
	}

	r.res.Predictions = preds

	return len(preds), nil
}

func (r *run) collectHits() (int, error) {
	hits, err := ispcr.Collect(r.res.Registry.Unique(), r.cfg.ISPCRPath, r.cfg.MissingISPCR)
	if err != nil {
		return 0, err
	}

	for _, name := range r.res.Registry.Unique() {
		r.logger.Debug("amplicons", "sample", name, "hits", len(hits[name]))
	}

	r.res.Hits = hits

	return hits.Count(), nil
}

func (r *run) build() (int, error) {
	rows := matrix.Build(r.res.Registry, r.res.Schema, r.res.Predictions, r.res.Hits, r.cfg.Duplicates)

	if err := matrix.Check(rows, r.res.Schema); err != nil {
		if r.cfg.Duplicates != matrix.Expand {
			return 0, err
		}

		r.logger.Warn("rows are wider than the header", "err", err)
	}

	r.res.Rows = rows

	return len(rows), nil
}

func (r *run) write() (int, error) {
	n, err := report.Append(r.cfg.Output, r.res.Schema, r.res.Rows)
	if err != nil {
		return 0, err
	}

	r.res.Written = n

	r.logger.Info("appended report", "path", r.cfg.Output, "size", humanize.Bytes(uint64(n)))

	return len(r.res.Rows), nil
}
