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
	"github.com/spf13/cobra"
	"github.com/wtsi-ssg/seroamp/tidy"
)

// finalDirPerms are used if the --final_output directory has to be made.
const finalDirPerms = 0770

// options for this cmd.
var tidyDir string
var tidyDate string
var tidyContigs bool

// tidyCmd represents the tidy command.
var tidyCmd = &cobra.Command{
	Use:   "tidy",
	Short: "Move a finished report to its final location",
	Long: `Move a finished report to its final location.

'seroamp multi -f' schedules this to run once its report job has completed. It
takes the unique directory multi made inside its --working_directory, moves the
--output report from there in to --final_output as
[date]_[unique].[report name], and then deletes the unique directory along with
the intermediate files of every stage.

[unique] is the unique directory's basename and [date] defaults to today as
YYYYMMDD. Assembled contigs are deleted with everything else unless you use
--keep_contigs, in which case the --contigs_dir directory is moved to
[date]_[unique].[contigs dir name] as well.

Moved files get the owner, group and read/write permissions of --final_output,
so that the people who use the reports can read them.

If a previous tidy was interrupted, running it again finishes the job without
touching anything it already moved.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			die("exactly 1 unique working directory from 'seroamp multi' must be supplied")
		}

		if tidyDir == "" {
			die("--final_output is required")
		}

		cfg := loadConfig(cmd)

		up := &tidy.Up{
			SrcDir:       args[0],
			DestDir:      tidyDir,
			DestDirPerms: finalDirPerms,
			Report:       reportName(cfg),
			Date:         tidyDate,
		}

		if tidyContigs {
			up.Contigs = cfg.ContigsDir
		}

		moved, err := up.Up()
		if err != nil {
			die("could not tidy %s: %s", args[0], err)
		}

		if len(moved) == 0 {
			info("%s was already tidied", args[0])
		}

		for _, path := range moved {
			info("moved to %s", path)
		}
	},
}

func init() {
	RootCmd.AddCommand(tidyCmd)

	// flags specific to this sub-command
	tidyCmd.Flags().StringVarP(&tidyDir, "final_output", "f", "", "directory to move the report to")
	tidyCmd.Flags().StringVarP(&tidyDate, "date", "d", dateStamp(), "YYYYMMDD date to prefix moved names with")
	tidyCmd.Flags().BoolVar(&tidyContigs, "keep_contigs", false, "move the --contigs_dir directory as well")
	addConfigFlags(tidyCmd, "output", "contigs_dir")
}
