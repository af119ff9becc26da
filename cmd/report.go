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
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/wtsi-ssg/seroamp/aggregate"
)

// reportFlags are the configFlags the report command offers.
var reportFlags = []string{
	"seqsero_dir", "seqsero_suffix", "missing_seqsero",
	"ispcr_dir", "ispcr_suffix", "missing_ispcr",
	"output", "duplicates", "wait",
}

// reportCmd represents the report command.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Tabulate SeqSero and isPcr results",
	Long: `Tabulate SeqSero and isPcr results.

Given a sample mapping file and a primer pair file, finds each sample's SeqSero
output ([seqsero_dir]/[sample][seqsero_suffix]) and isPcr output
([ispcr_dir]/[sample][ispcr_suffix]) and appends to the --output file a header
line followed by one row per sample in the mapping file:

[sample]<TAB>[serotype]<TAB>[pair 1 cell]<TAB>[pair 2 cell]...

The serotype is the first 'Predicted serotype(s):' value in the SeqSero output,
or N/A if there isn't one. Each primer pair cell is [pair]([length]) if isPcr
predicted a product for that pair, or 'none' if not.

Outputs with names ending in .gz are decompressed as they are read.

If a primer pair produced more than one product, --duplicates decides what is
shown:
  join:     all of them, shortest first, separated by commas (the default)
  longest:  just the longest
  shortest: just the shortest
  expand:   each in its own column, which makes the row longer than the header

By default a missing SeqSero output is treated as no prediction, while a missing
isPcr output is an error; change this with --missing_seqsero and
--missing_ispcr. Outputs that must exist can be given time to appear with
--wait, which helps when they were written on another host and the filesystem
is slow to show them.

Nothing is appended unless every output could be read, so a failed run doesn't
leave a partial report behind. Existing --output file contents are never
overwritten.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 2 {
			die("exactly 2 arguments, a sample mapping file and a primer pair file, must be supplied")
		}

		cfg := loadConfig(cmd)

		if err := cfg.ValidateInputDirs(); err != nil {
			die("%s", err)
		}

		res, err := aggregate.Run(cfg, args[0], args[1], appLogger)
		if err != nil {
			die("%s", err)
		}

		info("appended %s rows for %s primer pairs to %s",
			humanize.Comma(int64(len(res.Rows))), humanize.Comma(int64(len(res.Schema))), cfg.Output)
	},
}

func init() {
	RootCmd.AddCommand(reportCmd)

	// flags specific to this sub-command
	addConfigFlags(reportCmd, reportFlags...)
}
