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
	"slices"
	"sort"

	"github.com/rs/zerolog"
	"github.com/walteh/buildfs/pkg/deps"
	"github.com/walteh/buildfs/pkg/fingerprint"
	"github.com/walteh/buildfs/pkg/location"
	"github.com/walteh/buildfs/pkg/status"
	"github.com/walteh/buildfs/pkg/tree"
	"gitlab.com/tozd/go/errors"
)

// 🗺️ InputMap is the flattened description of a prepared directory: each
// relative output path maps to the location its content comes from.
// Insertion order is kept.
type InputMap struct {
	keys    []string
	entries map[string]location.Location
}

func NewInputMap() *InputMap {
	return &InputMap{entries: map[string]location.Location{}}
}

// Add maps rel to loc. rel must be relative and stay inside the output
// directory; each rel may be added once.
func (m *InputMap) Add(rel string, loc location.Location) error {
	cleaned, err := tree.CleanRel(rel)
	if err != nil {
		return errors.Errorf("adding input: %w", classify(err))
	}
	if err := requireSingle("input "+cleaned, loc); err != nil {
		return err
	}
	if prev, ok := m.entries[cleaned]; ok {
		return errors.Errorf("input %s already maps to %s: %w", cleaned, prev, ErrConflict)
	}
	m.keys = append(m.keys, cleaned)
	m.entries[cleaned] = loc
	return nil
}

// Len returns the number of entries. A nil map is empty.
func (m *InputMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the relative paths in insertion order.
func (m *InputMap) Keys() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

func (m *InputMap) Get(rel string) (location.Location, bool) {
	if m == nil {
		return nil, false
	}
	loc, ok := m.entries[rel]
	return loc, ok
}

// 📂 PrepareResult is what a prepare invocation produced
type PrepareResult struct {
	OutputDir location.Location
	// Paths are the absolute output paths, one per input entry, sorted.
	Paths []string
	// Report has the per path outcome of the synchronization. It is not
	// part of the value compared by Equal.
	Report *status.Report
}

// Equal compares the output directory and the produced paths.
func (r *PrepareResult) Equal(other *PrepareResult) bool {
	if r == nil || other == nil {
		return r == other
	}
	return location.Equal(r.OutputDir, other.OutputDir) && slices.Equal(r.Paths, other.Paths)
}

// 📂 Prepare materializes inputs under outputRoot.
//
// previous holds the absolute paths the same task produced last time, as
// recorded by the host; nil means the host has no record. Once every input
// is fingerprinted, previously produced paths that are no longer mapped, or
// whose kind changed, are removed. Content under
// outputRoot that is not mapped is removed only when the produced path set
// differs from previous, so a rerun with the same inputs never deletes
// anything.
func (e *Engine) Prepare(ctx context.Context, outputRoot location.Location, inputs *InputMap, previous []string) (*PrepareResult, error) {
	if err := requireSingle("output root", outputRoot); err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx).With().Str("output", outputRoot.String()).Logger()
	ctx = logger.WithContext(ctx)

	domain, _ := location.DomainOf(outputRoot)
	keys := inputs.Keys()

	produced := make([]string, 0, len(keys))
	for _, k := range keys {
		loc, err := location.Join(outputRoot, k)
		if err != nil {
			return nil, errors.Errorf("resolving output %s: %w", k, classify(err))
		}
		p, _ := location.PathOf(loc)
		produced = append(produced, p)
	}
	sort.Strings(produced)

	kinds := make(map[string]fingerprint.Kind, len(keys))
	root := tree.NewDirectory()
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("preparing %s: %w", outputRoot, err)
		}
		src, _ := inputs.Get(k)
		fp, err := e.host.Fingerprint(ctx, src)
		if err != nil {
			return nil, errors.Errorf("fingerprinting input %s: %w", src, classify(err))
		}
		switch fp.Kind {
		case fingerprint.KindDirectory:
			_, err = root.AddDirectory(k)
		case fingerprint.KindFile:
			_, err = root.AddFile(k, fp, e.opener(ctx, src))
		default:
			return nil, errors.Errorf("input %s for %s: %w", src, k, ErrNotFound)
		}
		if err != nil {
			return nil, errors.Errorf("placing %s: %w", k, classify(err))
		}
		kinds[k] = fp.Kind
		e.deps.ReportInputDependency(deps.TagPrepareInput, src, fp)
	}

	if err := e.clearPrevious(ctx, outputRoot, domain, keys, kinds, previous); err != nil {
		return nil, err
	}

	var keep *tree.KeepSet
	if previous != nil && !sameMembership(previous, produced) {
		keep = tree.NewKeepSet(keys...)
	}

	report, err := e.host.SynchronizeDirectory(ctx, root, outputRoot, keep)
	if err != nil {
		return nil, errors.Errorf("preparing %s: %w", outputRoot, classify(err))
	}

	for _, k := range keys {
		loc, _ := location.Join(outputRoot, k)
		if err := e.reportOutput(ctx, deps.TagPrepareOutput, loc); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Int("inputs", len(keys)).
		Int("written", report.Written()).
		Bool("pruned", keep != nil).
		Msg("prepared directory")

	return &PrepareResult{
		OutputDir: outputRoot,
		Paths:     produced,
		Report:    report,
	}, nil
}

// 🧹 clearPrevious removes paths the task owned last time that it no longer
// produces, and owned paths whose kind on disk no longer matches what will be
// written there. Ancestors of produced paths must be directories.
func (e *Engine) clearPrevious(ctx context.Context, outputRoot location.Location, domain location.Domain, keys []string, kinds map[string]fingerprint.Kind, previous []string) error {
	if len(previous) == 0 {
		return nil
	}
	keep := tree.NewKeepSet(keys...)
	for _, p := range previous {
		loc, err := location.New(domain, p)
		if err != nil {
			return errors.Errorf("previous output %q: %w", p, classify(err))
		}
		if rel, err := location.Rel(outputRoot, loc); err == nil && keep.Keeps(rel) {
			want, produced := kinds[rel]
			if !produced {
				want = fingerprint.KindDirectory
			}
			current, err := e.host.Fingerprint(ctx, loc)
			if err != nil {
				return errors.Errorf("inspecting previous output %s: %w", loc, classify(err))
			}
			if current.IsAbsent() || current.Kind == want {
				continue
			}
			zerolog.Ctx(ctx).Debug().Str("path", p).Stringer("was", current.Kind).Stringer("now", want).Msg("previous output changed kind")
		}
		removed, err := e.host.Remove(ctx, loc)
		if err != nil {
			return errors.Errorf("clearing previous output %s: %w", loc, err)
		}
		zerolog.Ctx(ctx).Debug().Str("path", p).Bool("removed", removed).Msg("cleared previous output")
	}
	return nil
}

func sameMembership(previous, produced []string) bool {
	prev := slices.Clone(previous)
	sort.Strings(prev)
	prev = slices.Compact(prev)
	return slices.Equal(prev, produced)
}
