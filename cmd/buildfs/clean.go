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

	"github.com/spf13/cobra"
	"github.com/walteh/buildfs/pkg/log"
)

func newCleanCmd(o *rootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [task...]",
		Short: "Remove what tasks produced and forget them",
		Long: `Remove the files recorded as outputs of the named tasks (every task when
none are named) and drop them from the lock file. Files edited since the task
wrote them are kept.`,
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

			console := log.FromContext(ctx)
			total := 0
			for _, t := range tasks {
				n, err := a.store.Clean(ctx, a.host, a.host, t.Name)
				if err != nil {
					return err
				}
				if n > 0 {
					console.Info(fmt.Sprintf("%s: removed %d files", t.Name, n))
				}
				total += n
			}
			if err := a.store.Save(ctx); err != nil {
				return err
			}
			console.Successf("removed %d files", total)
			return nil
		},
	}
	return cmd
}
