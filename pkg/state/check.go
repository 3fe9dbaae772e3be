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

package state

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"github.com/walteh/buildfs/pkg/deps"
	"github.com/walteh/buildfs/pkg/host"
	"github.com/walteh/buildfs/pkg/location"
	"github.com/walteh/buildfs/pkg/wildcard"
	"gitlab.com/tozd/go/errors"
)

// Inspector is what Check needs from the host.
type Inspector interface {
	host.Fingerprinter
	host.WildcardMatcher
}

// 🔍 Staleness explains whether a task must run again
type Staleness struct {
	UpToDate bool
	Reason   string
}

func fresh() Staleness { return Staleness{UpToDate: true, Reason: "up to date"} }

func stale(format string, args ...any) Staleness {
	return Staleness{Reason: fmt.Sprintf(format, args...)}
}

// 🔍 Check compares a recorded run with the world as it is now. Every fact
// is fingerprinted again and every collection is matched again; the first
// difference makes the task stale.
func Check(ctx context.Context, h Inspector, ts *TaskState, definition string) (Staleness, error) {
	if ts == nil {
		return stale("never run"), nil
	}
	if ts.Definition != definition {
		return stale("task definition changed"), nil
	}

	logger := zerolog.Ctx(ctx)

	facts := append(slices.Clone(ts.Inputs), ts.Outputs...)
	for _, f := range facts {
		loc, err := location.Parse(f.Location)
		if err != nil {
			return Staleness{}, errors.Errorf("recorded location %q: %w", f.Location, err)
		}
		current, err := h.Fingerprint(ctx, loc)
		if err != nil {
			return Staleness{}, errors.Errorf("fingerprinting %s: %w", loc, err)
		}
		if !current.Equal(f.Fingerprint) {
			logger.Debug().
				Str("location", f.Location).
				Str("tag", string(f.Tag)).
				Str("was", f.Fingerprint.String()).
				Str("now", current.String()).
				Msg("fact changed")
			return stale("%s changed (%s)", f.Location, f.Tag), nil
		}
	}

	for _, a := range ts.Additions {
		base, err := location.Parse(a.Base)
		if err != nil {
			return Staleness{}, errors.Errorf("recorded base %q: %w", a.Base, err)
		}
		set, err := wildcard.NewSet(a.Patterns...)
		if err != nil {
			return Staleness{}, errors.Errorf("recorded patterns for %s: %w", a.Base, err)
		}
		matches, err := h.MatchWildcards(ctx, base, set)
		if err != nil {
			return stale("cannot match %s under %s", set, a.Base), nil
		}
		if !slices.Equal(matches.Paths(), a.Matched) {
			return stale("matches of %s under %s changed", set, a.Base), nil
		}
	}

	return fresh(), nil
}

// 🧹 Clean removes the files a task produced and forgets the task. A file
// is only removed while it still holds what the task wrote; directories are
// left in place.
func (s *Store) Clean(ctx context.Context, h host.Fingerprinter, remover host.Remover, name string) (int, error) {
	ts, ok := s.Task(name)
	if !ok {
		return 0, nil
	}

	logger := zerolog.Ctx(ctx).With().Str("task", name).Logger()

	produced := append(slices.Clone(ts.Outputs), taggedRecords(ts.Inputs, deps.TagMirrorLocal)...)
	removed := 0
	for _, f := range produced {
		if !f.Fingerprint.IsFile() {
			continue
		}
		loc, err := location.Parse(f.Location)
		if err != nil {
			return removed, errors.Errorf("recorded location %q: %w", f.Location, err)
		}
		current, err := h.Fingerprint(ctx, loc)
		if err != nil {
			return removed, errors.Errorf("fingerprinting %s: %w", loc, err)
		}
		if !current.Equal(f.Fingerprint) {
			logger.Debug().Str("location", f.Location).Msg("output changed since it was produced, keeping it")
			continue
		}
		ok, err := remover.Remove(ctx, loc)
		if err != nil {
			return removed, errors.Errorf("cleaning %s: %w", loc, err)
		}
		if ok {
			removed++
		}
	}

	s.Forget(name)
	logger.Info().Int("removed", removed).Msg("cleaned task")
	return removed, nil
}

func taggedRecords(records []FactRecord, tag deps.Tag) []FactRecord {
	var out []FactRecord
	for _, r := range records {
		if r.Tag == tag {
			out = append(out, r)
		}
	}
	return out
}
