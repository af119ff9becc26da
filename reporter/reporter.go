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

// package reporter is used to report on the success or failure, and timings,
// of the named stages of a run.

package reporter

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/inconshreveable/log15"
)

const nanosecondsInSecond = 1000000000

// Outcome is what happened when a stage was run.
type Outcome struct {
	Stage    string
	Items    int
	Duration time.Duration
	Err      error
}

// Failed returns true if the stage returned an error.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// StageFunc does the work of a stage, returning how many items (eg. samples,
// lines or rows) it dealt with.
type StageFunc func() (int, error)

// Reporter runs stages, logging each one's outcome as it completes.
type Reporter struct {
	run      string       // the name of the run, output with every report.
	logger   log15.Logger // where your reports will be logged to.
	outcomes []Outcome
	sync.Mutex
}

// New returns a Reporter that will log stage outcomes of the named run to
// logger.
func New(run string, logger log15.Logger) *Reporter {
	return &Reporter{
		run:    run,
		logger: logger,
	}
}

// Stage calls f, timing it and recording its Outcome under the given name.
// Successes are logged at Info level and failures at Error level. Returns
// f's error.
func (r *Reporter) Stage(name string, f StageFunc) error {
	t := time.Now()
	items, err := f()
	o := Outcome{Stage: name, Items: items, Duration: time.Since(t), Err: err}

	r.Lock()
	r.outcomes = append(r.outcomes, o)
	r.Unlock()

	if o.Failed() {
		r.logger.Error("stage failed",
			"run", r.run,
			"stage", name,
			"time", o.Duration,
			"err", err)

		return err
	}

	r.logger.Info("stage complete",
		"run", r.run,
		"stage", name,
		"items", humanize.Comma(int64(items)),
		"time", o.Duration,
		"items/s", itemsPerSecond(items, o.Duration))

	return nil
}

// Outcomes returns the Outcomes of the stages run so far, in the order they
// were run.
func (r *Reporter) Outcomes() []Outcome {
	r.Lock()
	defer r.Unlock()

	outcomes := make([]Outcome, len(r.outcomes))
	copy(outcomes, r.outcomes)

	return outcomes
}

// ReportFinal logs a summary of all the stages run: how many succeeded, how
// many failed, and how long they took in total.
func (r *Reporter) ReportFinal() {
	r.Lock()
	defer r.Unlock()

	var (
		total  time.Duration
		failed []string
	)

	for _, o := range r.outcomes {
		total += o.Duration

		if o.Failed() {
			failed = append(failed, o.Stage)
		}
	}

	if len(failed) > 0 {
		r.logger.Warn("run failed",
			"run", r.run,
			"stages", len(r.outcomes),
			"failed", fmt.Sprintf("%v", failed),
			"time", total)

		return
	}

	r.logger.Info("run complete",
		"run", r.run,
		"stages", len(r.outcomes),
		"time", total)
}

// itemsPerSecond returns items/d.Seconds rounded to 2 decimal places, or n/a
// if either is 0.
func itemsPerSecond(items int, d time.Duration) string {
	if items == 0 || d == 0 {
		return "n/a"
	}

	return fmt.Sprintf("%.2f", float64(items)/float64(d.Nanoseconds())*nanosecondsInSecond)
}
