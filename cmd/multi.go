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

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/VertebrateResequencing/wr/jobqueue"
	jqs "github.com/VertebrateResequencing/wr/jobqueue/scheduler"
	"github.com/spf13/cobra"
	"github.com/wtsi-ssg/seroamp/config"
	"github.com/wtsi-ssg/seroamp/internal/input"
	"github.com/wtsi-ssg/seroamp/primer"
	"github.com/wtsi-ssg/seroamp/sample"
	"github.com/wtsi-ssg/seroamp/scheduler"
	"github.com/wtsi-ssg/seroamp/stages"
)

const (
	reportTime = 10 * time.Minute
	reportRAM  = "1G"
	reportWait = 2 * time.Minute
)

// options for this cmd.
var workDir string
var finalDir string
var forcedQueue string
var keepContigs bool
var stageRAM map[string]string

// multiConfigFlags are the configFlags the multi and cron commands offer.
var multiConfigFlags = append([]string{"contigs_dir"}, reportFlags...)

// multiCmd represents the multi command.
var multiCmd = &cobra.Command{
	Use:   "multi",
	Short: "Analyse samples from scratch using wr",
	Long: `Analyse samples from scratch using wr.

wr manager must have been started before running this. If the manager can run
commands on multiple nodes, be sure to set wr's ManagerHost config option to
the host you started the manager on.

Given a sample mapping file and a primer pair file, this adds jobs to wr's
queue that, for each sample:
  download: fetch the sample's accession from SRA using ascp
  fastq:    split it in to gzipped paired end reads using fastq-dump
  seqsero:  predict the serotype from the reads using SeqSero
  trim:     trim the reads using Trimmomatic
  assemble: assemble the trimmed reads in to contigs using megahit
  ispcr:    find the primer pair products in the contigs using isPcr

Once every sample's seqsero and ispcr jobs have completed, a 'seroamp report'
job tabulates the results.

The tools run are configured in your --config file, eg.
tools:
  ascp: /path/to/ascp
  ascp_key: /path/to/asperaweb_id_dsa.openssh
  trimmomatic: /path/to/trimmomatic.jar
  adapters: /path/to/NexteraPE-PE.fa
  threads: 32

All outputs go to a unique subdirectory of the given --working_directory, so you
can start running this before a previous run has completed on the same inputs,
and there won't be conflicts.

If --final_output is given, once the report has been made it is moved there by
'seroamp tidy', named [date]_[unique].[report name], and the unique working
directory is deleted. With --keep_contigs, the contigs directory is also kept.

(When jobs are added to wr's queue they are given a --rep_grp of
seroamp-[stage]-[mapping file basename]-[date]-[unique], so you can use
'wr status -i seroamp -z -o s' to get information on how long everything or
particular stages took, or which samples failed which stage.)

Each stage has a default memory requirement; override it with eg.
--ram assemble=64G.`,
	Run: func(cmd *cobra.Command, args []string) {
		checkMultiArgs(args)

		if err := doMultiScheduling(cmd, args); err != nil {
			die("%s", err)
		}
	},
}

func init() {
	RootCmd.AddCommand(multiCmd)

	// flags specific to this sub-command
	addMultiFlags(multiCmd)
}

// addMultiFlags adds the flags used by the multi command to the given command.
func addMultiFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&workDir, "working_directory", "w", "", "base directory for intermediate results")
	cmd.Flags().StringVarP(&finalDir, "final_output", "f", "", "final output directory")
	cmd.Flags().StringVarP(&forcedQueue, "queue", "q", "", "force a particular queue to be used when scheduling jobs")
	cmd.Flags().BoolVar(&keepContigs, "keep_contigs", false, "move the contigs to --final_output as well")
	cmd.Flags().StringToStringVar(&stageRAM, "ram", nil, "memory override per stage, eg. assemble=64G")
	addConfigFlags(cmd, multiConfigFlags...)
}

// checkMultiArgs ensures we have the required args for the multi sub-command.
func checkMultiArgs(args []string) {
	if workDir == "" {
		die("--working_directory is required")
	}

	if keepContigs && finalDir == "" {
		die("--keep_contigs needs --final_output")
	}

	if len(args) != 2 {
		die("exactly 2 arguments, a sample mapping file and a primer pair file, must be supplied")
	}
}

// doMultiScheduling does the main work of the multi sub-command.
func doMultiScheduling(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)

	if keepContigs && filepath.IsAbs(cfg.ContigsDir) {
		return fmt.Errorf("--contigs_dir must be relative to be kept: %s", cfg.ContigsDir)
	}

	if err := checkStageSuffixes(cfg); err != nil {
		return err
	}

	mapping, primers, reg, err := loadMultiInputs(args)
	if err != nil {
		return err
	}

	b, err := stages.NewBuilder(cfg, primers)
	if err != nil {
		return err
	}

	reqs, err := stageRequirements(b, stageRAM)
	if err != nil {
		return err
	}

	unique := scheduler.UniqueString()
	outputRoot := filepath.Join(workDir, unique)

	if err = os.MkdirAll(outputRoot, userOnlyPerm); err != nil {
		return err
	}

	s, d := newScheduler(outputRoot, forcedQueue)
	defer d()

	scheduleStageJobs(s, b, reg, mapping, unique, reqs)

	if err = scheduleReportJob(s, cfg, mapping, primers, unique); err != nil {
		return err
	}

	if finalDir != "" {
		if err = scheduleTidyJob(s, cfg, outputRoot, mapping, unique); err != nil {
			return err
		}
	}

	info("scheduled jobs for %d samples in %s", len(reg.Unique()), outputRoot)

	return nil
}

// checkStageSuffixes returns an error if the stages would write output named
// as compressed, since they write plain text.
func checkStageSuffixes(cfg *config.Config) error {
	for flag, suffix := range map[string]string{
		"--seqsero_suffix": cfg.SeqSeroSuffix,
		"--ispcr_suffix":   cfg.ISPCRSuffix,
	} {
		if input.IsCompressed(suffix) {
			return fmt.Errorf("%s can't be compressed when multi makes the outputs: %s", flag, suffix)
		}
	}

	return nil
}

// loadMultiInputs returns the absolute paths of the mapping and primer files
// in args, having checked they can be parsed and that the samples can be used
// in stage commands.
func loadMultiInputs(args []string) (string, string, sample.Registry, error) {
	mapping, err := filepath.Abs(args[0])
	if err != nil {
		return "", "", nil, err
	}

	primers, err := filepath.Abs(args[1])
	if err != nil {
		return "", "", nil, err
	}

	reg, err := sample.Load(mapping)
	if err != nil {
		return "", "", nil, err
	}

	if err = stages.Validate(reg); err != nil {
		return "", "", nil, err
	}

	if dups := reg.Duplicates(); len(dups) > 0 {
		warn("these samples appear more than once and will only be analysed once: %v", dups)
	}

	_, err = primer.Load(primers)

	return mapping, primers, reg, err
}

// stageRequirements returns the Requirements of each stage, using the given
// memory overrides keyed on stage name.
func stageRequirements(b *stages.Builder, ramOverrides map[string]string) (map[string]*jqs.Requirements, error) {
	for name := range ramOverrides {
		if _, err := b.Stage(name); err != nil {
			return nil, err
		}
	}

	reqs := make(map[string]*jqs.Requirements)

	for _, stage := range b.Stages() {
		ram := stage.RAM
		if override, ok := ramOverrides[stage.Name]; ok {
			ram = override
		}

		req, err := scheduler.Requirements(ram, stage.Time, stage.Cores)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage.Name, err)
		}

		reqs[stage.Name] = req
	}

	return reqs, nil
}

// scheduleStageJobs adds a job to wr's queue for each stage of each uniquely
// named sample. A sample's jobs depend on the jobs of the stages they come
// after, and the result stage jobs are all in the results dependency group.
func scheduleStageJobs(s *scheduler.Scheduler, b *stages.Builder, reg sample.Registry,
	mapping, unique string, reqs map[string]*jqs.Requirements) {
	samples := firstOfEachName(reg)
	jobs := make([]*jobqueue.Job, 0, len(samples)*len(b.Stages()))

	for i, smpl := range samples {
		for _, stage := range b.Stages() {
			depGroups := []string{stageDepGroup(unique, stage.Name, i)}
			if stage.Result {
				depGroups = append(depGroups, resultsDepGroup(unique))
			}

			deps := make([]string, len(stage.After))
			for j, after := range stage.After {
				deps[j] = stageDepGroup(unique, after, i)
			}

			jobs = append(jobs, s.Job(scheduler.Spec{
				Cmd:      stage.Command(b, smpl),
				RepGroup: repGrp(stage.Name, mapping, unique),
				ReqGroup: "seroamp-" + stage.Name,
				Groups:   depGroups,
				After:    deps,
				Req:      reqs[stage.Name],
			}))
		}
	}

	addJobsToQueue(s, jobs...)
}

// firstOfEachName returns the samples in reg, skipping any that have the same
// name as an earlier sample.
func firstOfEachName(reg sample.Registry) []sample.Sample {
	seen := make(map[string]bool, len(reg))
	samples := make([]sample.Sample, 0, len(reg))

	for _, s := range reg {
		if seen[s.Name] {
			continue
		}

		seen[s.Name] = true

		samples = append(samples, s)
	}

	return samples
}

// stageDepGroup returns the dependency group of the given stage's job for the
// i'th sample.
func stageDepGroup(unique, stage string, i int) string {
	return fmt.Sprintf("%s.%s.%d", unique, stage, i)
}

// resultsDepGroup returns the dependency group of all the jobs whose outputs
// the report is made from.
func resultsDepGroup(unique string) string {
	return unique + ".results"
}

// reportDepGroup returns the dependency group of the report job.
func reportDepGroup(unique string) string {
	return unique + ".report"
}

// reportName returns the name of the report file in the working directory.
func reportName(cfg *config.Config) string {
	return filepath.Base(cfg.Output)
}

// waitFor returns how long the report job should wait for its inputs, which
// is never less than reportWait because they are written on other hosts.
func waitFor(cfg *config.Config) time.Duration {
	if cfg.Wait > reportWait {
		return cfg.Wait
	}

	return reportWait
}

// scheduleReportJob adds a job to wr's queue that makes the report once all
// the result stage jobs have completed.
func scheduleReportJob(s *scheduler.Scheduler, cfg *config.Config, mapping, primers, unique string) error {
	req, err := scheduler.Requirements(reportRAM, reportTime+waitFor(cfg), 1)
	if err != nil {
		return err
	}

	cmd := s.SelfCommand("report --seqsero_dir %s --seqsero_suffix %s --missing_seqsero %s "+
		"--ispcr_dir %s --ispcr_suffix %s --missing_ispcr %s --duplicates %s --wait %s -o %s %s %s",
		cfg.SeqSeroDir, cfg.SeqSeroSuffix, cfg.MissingSeqSero,
		cfg.ISPCRDir, cfg.ISPCRSuffix, cfg.MissingISPCR, cfg.Duplicates, waitFor(cfg),
		reportName(cfg), mapping, primers)

	addJobsToQueue(s, s.Job(scheduler.Spec{
		Cmd:      cmd,
		RepGroup: repGrp("report", mapping, unique),
		ReqGroup: "seroamp-report",
		Groups:   []string{reportDepGroup(unique)},
		After:    []string{resultsDepGroup(unique)},
		Req:      req,
	}))

	return nil
}

// scheduleTidyJob adds a job to wr's queue that moves the report (and contigs
// if desired) to the final location and then deletes the working directory.
func scheduleTidyJob(s *scheduler.Scheduler, cfg *config.Config, outputRoot, mapping, unique string) error {
	destDir, err := filepath.Abs(finalDir)
	if err != nil {
		return err
	}

	cmd := s.SelfCommand("tidy -f %s -d %s -o %s", destDir, dateStamp(), reportName(cfg))
	if keepContigs {
		cmd += " --keep_contigs --contigs_dir " + cfg.ContigsDir
	}

	addJobsToQueue(s, s.Job(scheduler.Spec{
		Cmd:      cmd + " " + outputRoot,
		RepGroup: repGrp("tidy", mapping, unique),
		ReqGroup: "seroamp-tidy",
		After:    []string{reportDepGroup(unique)},
	}))

	return nil
}
