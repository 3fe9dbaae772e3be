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
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/walteh/buildfs/pkg/deps"
	"github.com/walteh/buildfs/pkg/location"
	"github.com/walteh/buildfs/pkg/operation"
	"github.com/walteh/buildfs/pkg/status"
	"github.com/walteh/buildfs/pkg/wildcard"
	"gitlab.com/tozd/go/errors"
)

func newCopyCmd(o *rootOpts) *cobra.Command {
	var patterns []string

	cmd := &cobra.Command{
		Use:   "copy <source> <target>",
		Short: "Copy a file or directory between locations",
		Long: `Copy a file or directory from source to target. Either side may be in
either domain.

It will:
1. Fingerprint the source
2. Collect the entries matching --wildcard (everything by default)
3. Merge them into the target without deleting anything already there`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			source, err := location.Parse(args[0])
			if err != nil {
				return errors.Errorf("source: %w", err)
			}
			target, err := location.Parse(args[1])
			if err != nil {
				return errors.Errorf("target: %w", err)
			}
			set, err := wildcard.NewSet(patterns...)
			if err != nil {
				return errors.Errorf("wildcards: %w", err)
			}

			a, err := o.load(ctx, false)
			if err != nil {
				return err
			}
			engine, err := operation.New(operation.Options{Host: a.host})
			if err != nil {
				return err
			}

			res, err := engine.Copy(ctx, source, target, set)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), res.Report, o.verbose)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&patterns, "wildcard", "w", nil, "doublestar pattern selecting directory entries (repeatable)")
	return cmd
}

func newPrepareCmd(o *rootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare <output> <path>=<location>...",
		Short: "Lay out inputs under an output directory",
		Long: `Place each input location at its relative path under the output directory.
Files are copied; directory inputs become empty directories.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			output, err := location.Parse(args[0])
			if err != nil {
				return errors.Errorf("output: %w", err)
			}
			inputs, err := parseInputs(args[1:])
			if err != nil {
				return err
			}

			a, err := o.load(ctx, false)
			if err != nil {
				return err
			}
			engine, err := operation.New(operation.Options{Host: a.host})
			if err != nil {
				return err
			}

			res, err := engine.Prepare(ctx, output, inputs, nil)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), res.Report, o.verbose)
			return nil
		},
	}
	return cmd
}

func newMirrorCmd(o *rootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror <location>",
		Short: "Print a local path holding the content of a location",
		Long: `Print a local path whose content equals the location. Local locations are
printed as they are; execution locations are copied below the mirror root.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			loc, err := location.Parse(args[0])
			if err != nil {
				return err
			}

			a, err := o.load(ctx, false)
			if err != nil {
				return err
			}
			engine, err := operation.New(operation.Options{Host: a.host, Deps: deps.Discard})
			if err != nil {
				return err
			}

			p, err := engine.Mirror(ctx, loc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
	return cmd
}

// parseInputs reads path=location pairs in argument order
func parseInputs(args []string) (*operation.InputMap, error) {
	inputs := operation.NewInputMap()
	for _, arg := range args {
		rel, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, errors.Errorf("input %q: expected <path>=<location>: %w", arg, operation.ErrInvalidArgument)
		}
		loc, err := location.Parse(raw)
		if err != nil {
			return nil, errors.Errorf("input %q: %w", arg, err)
		}
		if err := inputs.Add(rel, loc); err != nil {
			return nil, err
		}
	}
	return inputs, nil
}

// printReport writes one line per change followed by the totals
func printReport(w io.Writer, report *status.Report, verbose bool) {
	f := status.NewDefaultFileFormatter()
	if report != nil {
		for _, c := range report.Changes() {
			if c.Status == status.StatusUnchanged && !verbose {
				continue
			}
			fmt.Fprintln(w, f.FormatChange(c))
		}
	}
	fmt.Fprintln(w, f.FormatSummary(report))
}
