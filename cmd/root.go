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

// package cmd is the cobra file that enables subcommands and handles
// command-line args.

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/VertebrateResequencing/wr/jobqueue"
	"github.com/inconshreveable/log15"
	"github.com/spf13/cobra"
	"github.com/wtsi-ssg/seroamp/config"
	"github.com/wtsi-ssg/seroamp/scheduler"
)

const userOnlyPerm = 0700

// jobsFD is the file descriptor jobs are written to instead of being added to
// wr's queue, when runJobs is set.
const jobsFD = 3

// appLogger is used for logging events in our commands.
var appLogger = log15.New()

// these variables are accessible by all subcommands.
var deployment string
var sudo bool
var configFile string
var logFile string

// runJobs, if set at build time, makes commands that would add jobs to wr's
// queue write them as JSON to file descriptor 3 instead.
var runJobs string

const connectTimeout = 10 * time.Second

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "seroamp",
	Short: "seroamp tabulates Salmonella serotype predictions and in silico PCR products.",
	Long: `seroamp tabulates Salmonella serotype predictions and in silico PCR products.

Given a sample mapping file (SRA accession<TAB>sample name per line) and a
primer pair file (name forward reverse per line), it combines each sample's
SeqSero output with its isPcr output in to one row of a tab separated report:
the sample name, the predicted serotype (or N/A), then for each primer pair
either [pair]([product length]) or 'none'.

If you already have the SeqSero and isPcr outputs:
$ seroamp report [mapping file] [primer file]

To pretty print a report:
$ seroamp show [report]

To download, assemble and analyse every sample from scratch using wr, with the
report moved to a final location once done:
$ seroamp multi -w [/working/directory] -f [/final/output/dir] [mapping file] [primer file]

Settings can come from command line flags, a YAML --config file, or SEROAMP_*
environment variables (eg. SEROAMP_TOOLS_MEGAHIT for the tools.megahit setting).`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logFile != "" {
			logToFile(logFile)
		}
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once to
// the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		die(err.Error())
	}
}

func init() {
	// set up logging to stderr
	appLogger.SetHandler(log15.LvlFilterHandler(log15.LvlInfo, log15.StderrHandler))

	// global flags
	RootCmd.PersistentFlags().StringVar(&deployment,
		"deployment",
		"production",
		"the deployment your wr manager was started with")

	RootCmd.PersistentFlags().BoolVar(&sudo,
		"sudo",
		false,
		"created jobs will run with sudo")

	RootCmd.PersistentFlags().StringVar(&configFile,
		"config",
		"",
		"YAML file of settings")

	RootCmd.PersistentFlags().StringVar(&logFile,
		"log",
		"",
		"log to this file instead of STDERR")
}

func logToFile(path string) {
	fh, err := log15.FileHandler(path, log15.LogfmtFormat())
	if err != nil {
		warn("Could not log to file [%s]: %s", path, err)

		return
	}

	appLogger.SetHandler(fh)
}

// info is a convenience to log a message at the Info level.
func info(msg string, a ...interface{}) {
	appLogger.Info(fmt.Sprintf(msg, a...))
}

// warn is a convenience to log a message at the Warn level.
func warn(msg string, a ...interface{}) {
	appLogger.Warn(fmt.Sprintf(msg, a...))
}

// die is a convenience to log a message at the Error level and exit non zero.
func die(msg string, a ...interface{}) {
	appLogger.Error(fmt.Sprintf(msg, a...))
	os.Exit(1)
}

// configFlag describes a command line flag that sets a config key.
type configFlag struct {
	name      string
	shorthand string
	key       string
	usage     string
}

// configFlags are the flags commands can offer to override settings.
var configFlags = []configFlag{
	{"seqsero_dir", "", config.KeySeqSeroDir, "directory containing SeqSero outputs"},
	{"seqsero_suffix", "", config.KeySeqSeroSuffix, "suffix of SeqSero output files after the sample name"},
	{"missing_seqsero", "", config.KeySeqSeroMissing, "what to do if a SeqSero output is missing: tolerate|fail"},
	{"ispcr_dir", "", config.KeyISPCRDir, "directory containing isPcr outputs"},
	{"ispcr_suffix", "", config.KeyISPCRSuffix, "suffix of isPcr output files after the sample name"},
	{"missing_ispcr", "", config.KeyISPCRMissing, "what to do if an isPcr output is missing: fail|tolerate"},
	{"output", "o", config.KeyOutput, "report file to append to"},
	{"duplicates", "", config.KeyDuplicates,
		"how to show multiple products of one primer pair: join|longest|shortest|expand"},
	{"contigs_dir", "", config.KeyContigsDir, "directory assembled contigs are kept in"},
	{"wait", "", config.KeyWait, "how long to wait for outputs that must exist to appear, eg. 2m"},
}

// addConfigFlags adds the named configFlags to the given command, with
// defaults matching the config defaults.
func addConfigFlags(cmd *cobra.Command, names ...string) {
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}

	for _, f := range configFlags {
		if !wanted[f.name] {
			continue
		}

		cmd.Flags().StringP(f.name, f.shorthand, config.Default(f.key), f.usage)
	}
}

// loadConfig returns a Config made from our defaults, the --config file,
// SEROAMP_* environment variables and any of the configFlags the given command
// has that were set, in increasing order of precedence. Exits on error.
func loadConfig(cmd *cobra.Command) *config.Config {
	v, err := config.NewViper(configFile)
	if err != nil {
		die("%s", err)
	}

	for _, f := range configFlags {
		flag := cmd.Flags().Lookup(f.name)
		if flag == nil {
			continue
		}

		if err = v.BindPFlag(f.key, flag); err != nil {
			die("%s", err)
		}
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		die("bad settings: %s", err)
	}

	return cfg
}

// newScheduler returns a new Scheduler, exiting on error. It also returns a
// function you should defer. If runJobs is set, the Scheduler is not connected
// to wr manager.
func newScheduler(cwd, queue string) (*scheduler.Scheduler, func()) {
	opts := scheduler.Options{
		Deployment: deployment,
		Cwd:        cwd,
		Queue:      queue,
		Timeout:    connectTimeout,
		Sudo:       sudo,
	}

	if runJobs != "" {
		return scheduler.NewDryRun(opts), func() {}
	}

	s, err := scheduler.New(opts, appLogger)
	if err != nil {
		die("%s", err)
	}

	return s, func() {
		err = s.Close()
		if err != nil {
			warn("failed to disconnect from wr manager: %s", err)
		}
	}
}

// repGrp returns a rep_grp that can be used for a seroamp job we will create.
func repGrp(cmd, path, unique string) string {
	return fmt.Sprintf("seroamp-%s-%s-%s-%s", cmd, filepath.Base(path), dateStamp(), unique)
}

// dateStamp returns today's date in the form YYYYMMDD.
func dateStamp() string {
	t := time.Now()

	return t.Format("20060102")
}

// addJobsToQueue adds the jobs to wr's queue, or writes them to jobsFD if
// runJobs is set.
func addJobsToQueue(s *scheduler.Scheduler, jobs ...*jobqueue.Job) {
	if runJobs != "" {
		writeJobs(jobs)

		return
	}

	if err := s.Submit(jobs...); err != nil {
		die("failed to add jobs to wr's queue: %s", err)
	}
}

// writeJobs writes the given jobs as JSON to jobsFD.
func writeJobs(jobs []*jobqueue.Job) {
	f := os.NewFile(jobsFD, "jobs")
	if f == nil {
		die("file descriptor %d is not open for writing jobs to", jobsFD)
	}

	if err := json.NewEncoder(f).Encode(jobs); err != nil {
		die("failed to write jobs: %s", err)
	}
}
