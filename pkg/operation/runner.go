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

package operation

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/buildfs/pkg/location"
	"github.com/walteh/buildfs/pkg/wildcard"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 🎮 Operation is a single invocation bound to its arguments
type Operation interface {
	Name() string
	Execute(ctx context.Context) error
}

// 📦 CopyOperation binds Copy to its arguments. Result is set on success.
type CopyOperation struct {
	Engine    Copier
	Label     string
	Source    location.Location
	Target    location.Location
	Wildcards wildcard.Set

	Result *CopyResult
}

func (op *CopyOperation) Name() string { return op.Label }

func (op *CopyOperation) Execute(ctx context.Context) error {
	res, err := op.Engine.Copy(ctx, op.Source, op.Target, op.Wildcards)
	if err != nil {
		return err
	}
	op.Result = res
	return nil
}

// 📂 PrepareOperation binds Prepare to its arguments
type PrepareOperation struct {
	Engine   Preparer
	Label    string
	Output   location.Location
	Inputs   *InputMap
	Previous []string

	Result *PrepareResult
}

func (op *PrepareOperation) Name() string { return op.Label }

func (op *PrepareOperation) Execute(ctx context.Context) error {
	res, err := op.Engine.Prepare(ctx, op.Output, op.Inputs, op.Previous)
	if err != nil {
		return err
	}
	op.Result = res
	return nil
}

// 🪞 MirrorOperation binds Mirror to its argument
type MirrorOperation struct {
	Engine   Mirrorer
	Label    string
	Location location.Location

	Result string
}

func (op *MirrorOperation) Name() string { return op.Label }

func (op *MirrorOperation) Execute(ctx context.Context) error {
	res, err := op.Engine.Mirror(ctx, op.Location)
	if err != nil {
		return err
	}
	op.Result = res
	return nil
}

// 🏃 OperationRunner executes operations, one after another or concurrently
type OperationRunner struct {
	logger *zerolog.Logger
	async  bool
	limit  int
}

// 🏗️ NewRunner creates a new runner. limit bounds concurrent operations when
// async is set; zero or less means unbounded.
func NewRunner(logger *zerolog.Logger, async bool, limit int) *OperationRunner {
	return &OperationRunner{
		logger: logger,
		async:  async,
		limit:  limit,
	}
}

// 🏃 Run executes every operation and returns the first failure
func (r *OperationRunner) Run(ctx context.Context, ops ...Operation) error {
	ctx = r.logger.WithContext(ctx)
	if r.async {
		return r.runAsync(ctx, ops)
	}
	return r.runSync(ctx, ops)
}

// 🔄 runSync stops at the first failing operation
func (r *OperationRunner) runSync(ctx context.Context, ops []Operation) error {
	for _, op := range ops {
		if err := r.execute(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

// ⚡ runAsync runs operations concurrently; the first failure cancels the rest
func (r *OperationRunner) runAsync(ctx context.Context, ops []Operation) error {
	g, gctx := errgroup.WithContext(ctx)
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for _, op := range ops {
		op := op
		g.Go(func() error {
			return r.execute(gctx, op)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Errorf("operations cancelled: %w", err)
	}
	return nil
}

func (r *OperationRunner) execute(ctx context.Context, op Operation) error {
	logger := r.logger.With().Str("operation", op.Name()).Logger()
	logger.Debug().Msg("starting operation")
	if err := op.Execute(logger.WithContext(ctx)); err != nil {
		return errors.Errorf("executing operation %s: %w", op.Name(), err)
	}
	logger.Debug().Msg("finished operation")
	return nil
}
