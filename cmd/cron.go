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
	"context"
	"os"
	"time"

	"github.com/adhocore/gronx"
	"github.com/adhocore/gronx/pkg/tasker"
	"github.com/spf13/cobra"
)

const defaultCrontab = "0 8 * * 1"

// options for this cmd.
var crontab string
var cronAlways bool

// cronCmd represents the cron command.
var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Run multi on a regular basis",
	Long: `Run multi on a regular basis.

This command takes the same arguments as 'seroamp multi' and runs multi with
those arguments on the given --crontab schedule, which defaults to 8am every
Monday.

Because every run appends a row for every sample to the report, a scheduled run
is skipped if the sample mapping file hasn't been modified since the last run
that was scheduled. Use --always to run every time regardless.

This command will just run in the foreground forever until killed. You should
probably use the daemonize program to daemonize this instead.
`,
	Run: func(cmd *cobra.Command, args []string) {
		checkMultiArgs(args)

		if !gronx.New().IsValid(crontab) {
			die("--crontab is invalid: %s", crontab)
		}

		watch := &mappingWatch{path: args[0]}

		taskr := tasker.New(tasker.Option{})
		taskr.Task(crontab, func(ctx context.Context) (int, error) {
			defer logNextRun()

			if !cronAlways {
				changed, err := watch.changed()
				if err != nil {
					warn("scheduled multi skipped: %s", err)

					return 1, err
				}

				if !changed {
					info("scheduled multi skipped: %s is unchanged", args[0])

					return 0, nil
				}
			}

			if err := doMultiScheduling(cmd, args); err != nil {
				warn("scheduled multi failed: %s", err)
				watch.reset()

				return 1, err
			}

			return 0, nil
		})

		logNextRun()
		taskr.Run()
	},
}

func init() {
	RootCmd.AddCommand(cronCmd)

	// flags specific to this sub-command
	addMultiFlags(cronCmd)
	cronCmd.Flags().StringVarP(&crontab, "crontab", "c",
		defaultCrontab,
		"crontab describing when to run, first 5 columns only")
	cronCmd.Flags().BoolVar(&cronAlways, "always", false,
		"run even if the sample mapping file is unchanged")
}

// nextTick returns the next time after now that the given crontab fires.
func nextTick(expr string) (time.Time, error) {
	return gronx.NextTick(expr, false)
}

// logNextRun logs when the crontab next fires.
func logNextRun() {
	next, err := nextTick(crontab)
	if err != nil {
		warn("could not work out the next run time: %s", err)

		return
	}

	info("next multi run at %s", next.Format(time.RFC1123))
}

// mappingWatch tracks the modification time of a sample mapping file between
// scheduled runs.
type mappingWatch struct {
	path string
	last time.Time
}

// changed returns true if the file was modified after the time it had when
// changed last returned true, or if this is the first call.
func (m *mappingWatch) changed() (bool, error) {
	fi, err := os.Stat(m.path)
	if err != nil {
		return false, err
	}

	if !m.last.IsZero() && !fi.ModTime().After(m.last) {
		return false, nil
	}

	m.last = fi.ModTime()

	return true, nil
}

// reset makes the next changed() call return true.
func (m *mappingWatch) reset() {
	m.last = time.Time{}
}
