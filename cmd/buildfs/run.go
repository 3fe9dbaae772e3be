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
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/buildfs/pkg/config"
	"github.com/walteh/buildfs/pkg/deps"
	"github.com/walteh/buildfs/pkg/location"
	"github.com/walteh/buildfs/pkg/log"
	"github.com/walteh/buildfs/pkg/operation"
	"github.com/walteh/buildfs/pkg/state"
	"github.com/walteh/buildfs/pkg/status"
	"gitlab.com/tozd/go/errors"
)

func newRunCmd(o *rootOpts) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "run [task...]",
		Short: "Run the tasks of the task file",
		Long: `Run every task of the task file, or only the named ones.

It will:
1. Load the task file and the lock file
2. Skip tasks whose recorded inputs, outputs and matches are unchanged
3. Run the rest, sequentially or with --async concurrently
4. Record what every task read and wrote in the lock file`,
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
			console.Header(a.cfg.String())

			ops := make([]operation.Operation, 0, len(tasks))
			for _, t := range tasks {
				ops = append(ops, &taskOperation{app: a, task: t, force: o.force})
			}

			runner := operation.NewRunner(zerolog.Ctx(ctx), o.async || a.cfg.Async, limit)
			runErr := runner.Run(ctx, ops...)

			// completed tasks are recorded even when another one failed
			if err := a.store.Save(ctx); err != nil {
				if runErr != nil {
					console.Warningf("lock file not saved: %v", err)
					return runErr
				}
				return err
			}
			if runErr != nil {
				return runErr
			}
			console.Success("all tasks complete")
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "jobs", 0, "maximum concurrent tasks with --async (0 is unbounded)")
	return cmd
}

// 🎮 taskOperation runs one task of the task file when it is stale and
// records the result
type taskOperation struct {
	app   *app
	task  config.Task
	force bool
}

func (t *taskOperation) Name() string { return t.task.Name }

func (t *taskOperation) Execute(ctx context.Context) error {
	logger := zerolog.Ctx(ctx).With().Str("task", t.task.Name).Logger()
	ctx = logger.WithContext(ctx)
	console := log.FromContext(ctx)

	definition, err := state.HashDefinition(t.task)
	if err != nil {
		return err
	}
	prev, _ := t.app.store.Task(t.task.Name)

	if !t.force {
		staleness, err := state.Check(ctx, t.app.host, prev, definition)
		if err != nil {
			return errors.Errorf("checking state: %w", err)
		}
		if staleness.UpToDate {
			console.LogSkipped(ctx, log.TaskOperation{Name: t.task.Name, Kind: t.task.Kind()}, staleness.Reason)
			return nil
		}
		logger.Debug().Str("reason", staleness.Reason).Msg("task is stale")
	}

	rec := deps.NewRecorder()
	engine, err := operation.New(operation.Options{Host: t.app.host, Deps: rec})
	if err != nil {
		return err
	}

	var (
		target location.Location
		report *status.Report
		owned  []string
		result string
	)

	switch {
	case t.task.Copy != nil:
		op, err := t.copyOperation(engine)
		if err != nil {
			return err
		}
		if err := op.Execute(ctx); err != nil {
			return err
		}
		target, report, result = op.Target, op.Result.Report, op.Result.Target.String()
	case t.task.Prepare != nil:
		op, err := t.prepareOperation(engine, prev)
		if err != nil {
			return err
		}
		if err := op.Execute(ctx); err != nil {
			return err
		}
		target, report, owned, result = op.Output, op.Result.Report, op.Result.Paths, op.Output.String()
	case t.task.Mirror != nil:
		op, err := t.mirrorOperation(engine)
		if err != nil {
			return err
		}
		if err := op.Execute(ctx); err != nil {
			return err
		}
		target, result = op.Location, op.Result
	default:
		return errors.Errorf("task %s has no action: %w", t.task.Name, operation.ErrInvalidArgument)
	}

	ts := state.FromRecorder(t.task.Kind(), definition, rec)
	ts.Owned = owned
	ts.Result = result
	t.app.store.Put(t.task.Name, ts)

	domain, _ := location.DomainOf(target)
	console.LogTask(ctx, log.TaskOperation{Name: t.task.Name, Kind: t.task.Kind(), Target: result}, domain.String(), report)
	return nil
}

func (t *taskOperation) copyOperation(engine *operation.Engine) (*operation.CopyOperation, error) {
	source, err := t.task.Copy.Source.Location()
	if err != nil {
		return nil, err
	}
	target, err := t.task.Copy.Target.Location()
	if err != nil {
		return nil, err
	}
	set, err := t.task.Copy.WildcardSet()
	if err != nil {
		return nil, err
	}
	return &operation.CopyOperation{Engine: engine, Label: t.task.Name, Source: source, Target: target, Wildcards: set}, nil
}

// prepareOperation hands the previous run's outputs back to the engine,
// but only when they were produced under the same output directory.
func (t *taskOperation) prepareOperation(engine *operation.Engine, prev *state.TaskState) (*operation.PrepareOperation, error) {
	output, err := t.task.Prepare.Output.Location()
	if err != nil {
		return nil, err
	}
	inputs := operation.NewInputMap()
	for _, in := range t.task.Prepare.Inputs {
		loc, err := in.Source.Location()
		if err != nil {
			return nil, err
		}
		if err := inputs.Add(in.Path, loc); err != nil {
			return nil, err
		}
	}

	var previous []string
	if prev != nil && prev.Kind == "prepare" && prev.Result == output.String() {
		previous = append([]string{}, prev.Owned...)
	}

	return &operation.PrepareOperation{Engine: engine, Label: t.task.Name, Output: output, Inputs: inputs, Previous: previous}, nil
}

func (t *taskOperation) mirrorOperation(engine *operation.Engine) (*operation.MirrorOperation, error) {
	loc, err := t.task.Mirror.Source.Location()
	if err != nil {
		return nil, err
	}
	return &operation.MirrorOperation{Engine: engine, Label: t.task.Name, Location: loc}, nil
}
