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
	"io"

	"github.com/walteh/buildfs/pkg/deps"
	"github.com/walteh/buildfs/pkg/host"
	"github.com/walteh/buildfs/pkg/location"
	"github.com/walteh/buildfs/pkg/tree"
	"github.com/walteh/buildfs/pkg/wildcard"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrNotFound is returned when a source location is absent.
	ErrNotFound = errors.Base("not found")

	// ErrConflict is returned when an operation would replace a non-empty
	// directory with a file, a file with a directory, or when source and
	// target overlap.
	ErrConflict = errors.Base("conflict")

	// ErrInvalidArgument is returned for malformed locations, paths and
	// wildcard patterns.
	ErrInvalidArgument = errors.Base("invalid argument")
)

// kindError attaches a taxonomy sentinel to an error from a lower layer
// while keeping the original chain intact.
type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string   { return e.err.Error() }
func (e *kindError) Unwrap() []error { return []error{e.kind, e.err} }

// classify maps sentinels of the lower packages onto the taxonomy. Errors
// it does not recognize are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var kind error
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict), errors.Is(err, ErrInvalidArgument):
		return err
	case errors.Is(err, tree.ErrConflict):
		kind = ErrConflict
	case errors.Is(err, tree.ErrInvalidPath),
		errors.Is(err, location.ErrNotAbsolute),
		errors.Is(err, location.ErrNotSingle),
		errors.Is(err, wildcard.ErrBadPattern):
		kind = ErrInvalidArgument
	default:
		return err
	}
	return &kindError{kind: kind, err: err}
}

// 📋 Options holds the collaborators of one engine
type Options struct {
	Host host.Host
	Deps deps.Reporter
}

// 🏗️ Engine runs copy, prepare and mirror invocations. It keeps no state
// between invocations; all persistent knowledge lives in the host and in the
// dependency facts it reports.
type Engine struct {
	host host.Host
	deps deps.Reporter
}

// Copier, Preparer and Mirrorer are the three surfaces a build engine calls.
type (
	Copier interface {
		Copy(ctx context.Context, source, target location.Location, wildcards wildcard.Set) (*CopyResult, error)
	}
	Preparer interface {
		Prepare(ctx context.Context, outputRoot location.Location, inputs *InputMap, previous []string) (*PrepareResult, error)
	}
	Mirrorer interface {
		Mirror(ctx context.Context, loc location.Location) (string, error)
	}
)

var (
	_ Copier   = (*Engine)(nil)
	_ Preparer = (*Engine)(nil)
	_ Mirrorer = (*Engine)(nil)
)

// 🏗️ New validates opts and returns an engine. A nil Deps discards facts.
func New(opts Options) (*Engine, error) {
	if opts.Host == nil {
		return nil, errors.Errorf("creating engine: host is required: %w", ErrInvalidArgument)
	}
	if opts.Deps == nil {
		opts.Deps = deps.Discard
	}
	return &Engine{host: opts.Host, deps: opts.Deps}, nil
}

// opener defers reading loc until the synchronizer decides to write it.
func (e *Engine) opener(ctx context.Context, loc location.Location) tree.Opener {
	return func() (io.ReadCloser, error) {
		return e.host.OpenContent(ctx, loc)
	}
}

// requireSingle rejects nil and collection locations up front.
func requireSingle(what string, loc location.Location) error {
	if _, err := location.DomainOf(loc); err != nil {
		return errors.Errorf("%s: %w", what, classify(err))
	}
	return nil
}
