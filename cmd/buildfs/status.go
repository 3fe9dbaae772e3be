// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/buildfs/pkg/state"
	"gitlab.com/tozd/go/errors"
)

func newStatusCmd(o *rootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [task...]",
		Short: "Show which tasks are up to date",
		Long: `Show every task of the task file with the reason it would or would not run.
Nothing is written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := o.load(ctx, true)
			if err != nil {
				return err
			}
			tasks, err := a.cfg.Select(args...)
			if err != nil {
				return err
			}

			data := pterm.TableData{{"Task", "Kind", "State", "Last run", "Reason"}}
			for _, t := range tasks {
				definition, err := state.HashDefinition(t)
				if err != nil {
					return err
				}
				prev, _ := a.store.Task(t.Name)
				staleness, err := state.Check(ctx, a.host, prev, definition)
				if err != nil {
					return errors.Errorf("checking %s: %w", t.Name, err)
				}

				lastRun := "never"
				if prev != nil {
					lastRun = prev.LastUpdated.Local().Format(time.DateTime)
				}
				st := pterm.FgYellow.Sprint("stale")
				if staleness.UpToDate {
					st = pterm.FgGreen.Sprint("up to date")
				}
				data = append(data, []string{t.Name, t.Kind(), st, lastRun, staleness.Reason})
			}

			table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return errors.Errorf("rendering status: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
	return cmd
}
