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

// package scheduler turns pipeline stage commands in to wr jobs and adds them
// to wr's queue.

package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/VertebrateResequencing/wr/jobqueue"
	jqs "github.com/VertebrateResequencing/wr/jobqueue/scheduler"
	"github.com/inconshreveable/log15"
	"github.com/rs/xid"
	"github.com/wtsi-ssg/wr/clog"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrDuplicateJobs = Error("some jobs were already in the queue")
	ErrZeroMemory    = Error("memory requirement must be greater than 0")
	ErrNotConnected  = Error("not connected to wr manager")
)

const (
	jobRetries   uint8 = 3
	queueKey           = "scheduler_queue"
	minimalRAM         = 100
	minimalTime        = 10 * time.Second
	minimalCores       = 1
	minimalDisk        = 1
)

// Options say how a Scheduler connects to wr and what jobs it makes.
type Options struct {
	// Deployment is the wr deployment to connect to, production or
	// development.
	Deployment string

	// Cwd is the directory jobs run in. Blank means the current directory.
	Cwd string

	// Queue, if set, forces jobs on to that queue.
	Queue string

	// Timeout is how long to wait to connect to wr manager.
	Timeout time.Duration

	// Sudo prefixes job commands with "sudo ".
	Sudo bool
}

// Spec describes one job for Scheduler.Job().
type Spec struct {
	Cmd      string
	RepGroup string
	ReqGroup string

	// Groups are the dependency groups the job is in. Blanks are ignored.
	Groups []string

	// After are the dependency groups whose jobs must all complete before this
	// job starts. Blanks are ignored.
	After []string

	// Req is what the job needs. Nil means MinimalRequirements() that wr may
	// learn to override.
	Req *jqs.Requirements
}

// Scheduler makes wr jobs and adds them to wr's queue.
type Scheduler struct {
	opts Options
	exe  string
	jq   *jobqueue.Client
}

// New returns a Scheduler connected to wr manager. Logs from the connection go
// to logger.
func New(opts Options, logger log15.Logger) (*Scheduler, error) {
	cwd, err := checkCwd(opts.Cwd)
	if err != nil {
		return nil, err
	}

	opts.Cwd = cwd

	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}

	ctx := clog.ContextWithLogHandler(context.Background(), logger.GetHandler())

	jq, err := jobqueue.ConnectUsingConfig(ctx, opts.Deployment, opts.Timeout)
	if err != nil {
		return nil, err
	}

	return &Scheduler{opts: opts, exe: exe, jq: jq}, nil
}

// NewDryRun returns a Scheduler that makes jobs the way New()'s does, but
// can't Submit() them. Its jobs have the Cwd given in opts without it being
// checked, and its SelfCommand()s have a blank executable.
func NewDryRun(opts Options) *Scheduler {
	return &Scheduler{opts: opts}
}

// checkCwd returns cwd if it exists, or the current directory if cwd is blank.
func checkCwd(cwd string) (string, error) {
	if cwd == "" {
		return os.Getwd()
	}

	if _, err := os.Stat(cwd); err != nil {
		return "", err
	}

	return cwd, nil
}

// SelfCommand returns a command line that runs our own executable with the
// formatted arguments, eg. SelfCommand("report -o %s", out).
func (s *Scheduler) SelfCommand(format string, a ...any) string {
	return s.exe + " " + fmt.Sprintf(format, a...)
}

// MinimalRequirements returns the Requirements of a short, small job.
func MinimalRequirements() *jqs.Requirements {
	return &jqs.Requirements{
		RAM:   minimalRAM,
		Time:  minimalTime,
		Cores: minimalCores,
		Disk:  minimalDisk,
	}
}

// Requirements returns Requirements for a job expected to use up to the given
// amount of memory, eg. "16G" or "500M", for the given time on the given number
// of cores.
func Requirements(ram string, t time.Duration, cores int) (*jqs.Requirements, error) {
	mb, err := bytefmt.ToMegabytes(ram)
	if err != nil {
		return nil, fmt.Errorf("bad memory requirement %q: %w", ram, err)
	}

	if mb == 0 {
		return nil, ErrZeroMemory
	}

	req := MinimalRequirements()
	req.RAM = int(mb)
	req.Time = t
	req.Cores = float64(cores)

	return req, nil
}

// Job makes a job from the given spec that runs in our Cwd (which matters) and
// gets retried 3 times.
//
// A spec with Requirements gets an override of 1 so wr uses them as given.
// The spec's Requirements are never altered; when we have a forced queue it is
// added to a copy.
func (s *Scheduler) Job(spec Spec) *jobqueue.Job {
	cmd := spec.Cmd
	if s.opts.Sudo {
		cmd = "sudo " + cmd
	}

	req, override := spec.Req, uint8(1)
	if req == nil {
		req, override = MinimalRequirements(), 0
	} else {
		req = req.Clone()
	}

	if s.opts.Queue != "" {
		if req.Other == nil {
			req.Other = make(map[string]string)
		}

		req.Other[queueKey] = s.opts.Queue
	}

	return &jobqueue.Job{
		Cmd:          cmd,
		Cwd:          s.opts.Cwd,
		CwdMatters:   true,
		RepGroup:     spec.RepGroup,
		ReqGroup:     spec.ReqGroup,
		Requirements: req,
		DepGroups:    nonBlank(spec.Groups),
		Dependencies: dependencies(spec.After),
		Retries:      jobRetries,
		Override:     override,
	}
}

// nonBlank returns the non-blank members of strs, or nil if there are none.
func nonBlank(strs []string) []string {
	var kept []string

	for _, str := range strs {
		if str != "" {
			kept = append(kept, str)
		}
	}

	return kept
}

// dependencies returns a Dependency on each of the non-blank groups, or nil if
// there are none.
func dependencies(groups []string) jobqueue.Dependencies {
	var deps jobqueue.Dependencies

	for _, group := range nonBlank(groups) {
		deps = append(deps, &jobqueue.Dependency{DepGroup: group})
	}

	return deps
}

// Submit adds the given jobs to wr's queue with our current environment.
// Identical jobs that were archived get added again, but it is an error
// (ErrDuplicateJobs) for any to still be in the queue.
func (s *Scheduler) Submit(jobs ...*jobqueue.Job) error {
	if s.jq == nil {
		return ErrNotConnected
	}

	inserts, _, err := s.jq.Add(jobs, os.Environ(), false)
	if err != nil {
		return err
	}

	if inserts != len(jobs) {
		return ErrDuplicateJobs
	}

	return nil
}

// Close disconnects from wr manager. You should defer this after New().
func (s *Scheduler) Close() error {
	if s.jq == nil {
		return nil
	}

	return s.jq.Disconnect()
}

// UniqueString returns a 20 character string that won't be returned again,
// for naming a run's dependency groups and working directory.
func UniqueString() string {
	return xid.New().String()
}
