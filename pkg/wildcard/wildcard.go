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

// Package wildcard selects descendants of a directory with doublestar glob
// patterns matched against paths relative to that directory.
package wildcard

import (
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/walteh/buildfs/pkg/location"
	"gitlab.com/tozd/go/errors"
)

// ErrBadPattern is returned for patterns doublestar cannot parse and for
// absolute patterns.
var ErrBadPattern = errors.Base("malformed wildcard pattern")

// Everything matches every descendant.
const Everything = "**"

// 🎯 Pattern is a validated, slash separated glob
type Pattern string

// ParsePattern normalizes separators, drops a leading "./" and validates s.
func ParsePattern(s string) (Pattern, error) {
	p := strings.ReplaceAll(strings.TrimSpace(s), "\\", "/")
	p = strings.TrimPrefix(p, "./")
	if p == "" {
		return "", errors.Errorf("pattern %q: empty: %w", s, ErrBadPattern)
	}
	if strings.HasPrefix(p, "/") {
		return "", errors.Errorf("pattern %q: must be relative: %w", s, ErrBadPattern)
	}
	if !doublestar.ValidatePattern(p) {
		return "", errors.Errorf("pattern %q: %w", s, ErrBadPattern)
	}
	return Pattern(p), nil
}

// Match reports whether rel matches the pattern exactly.
func (p Pattern) Match(rel string) bool {
	ok, err := doublestar.Match(string(p), rel)
	return err == nil && ok
}

// CouldMatchBeneath reports whether some path strictly below the directory
// dir could still match the pattern. When a segment cannot be judged on its
// own the answer is true and Match decides later.
func (p Pattern) CouldMatchBeneath(dir string) bool {
	psegs := strings.Split(string(p), "/")
	dsegs := strings.Split(dir, "/")
	for i, d := range dsegs {
		if i >= len(psegs) {
			return false
		}
		if psegs[i] == "**" {
			return true
		}
		ok, err := doublestar.Match(psegs[i], d)
		if err != nil {
			// the segment only parses as part of a larger group, like {a,b/c}
			return true
		}
		if !ok {
			return false
		}
	}
	return len(psegs) > len(dsegs)
}

// 📦 Set is a sorted, duplicate free set of patterns. The zero Set is empty.
type Set struct {
	patterns []Pattern
}

// All is the set that selects every descendant.
var All = Set{patterns: []Pattern{Everything}}

// NewSet parses every pattern; the first invalid one fails the whole set.
func NewSet(patterns ...string) (Set, error) {
	seen := make(map[Pattern]bool, len(patterns))
	out := make([]Pattern, 0, len(patterns))
	for _, raw := range patterns {
		p, err := ParsePattern(raw)
		if err != nil {
			return Set{}, err
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return Set{patterns: out}, nil
}

// MustSet is NewSet that panics, for tests and constants.
func MustSet(patterns ...string) Set {
	s, err := NewSet(patterns...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Set) IsEmpty() bool { return len(s.patterns) == 0 }

// IsAll reports whether the set selects every descendant.
func (s Set) IsAll() bool {
	for _, p := range s.patterns {
		if p == Everything {
			return true
		}
	}
	return false
}

// OrAll returns All for an empty set and s otherwise.
func (s Set) OrAll() Set {
	if s.IsEmpty() {
		return All
	}
	return s
}

func (s Set) Patterns() []string {
	out := make([]string, len(s.patterns))
	for i, p := range s.patterns {
		out[i] = string(p)
	}
	return out
}

// MatchFile reports whether some pattern matches rel exactly.
func (s Set) MatchFile(rel string) bool {
	for _, p := range s.patterns {
		if p.Match(rel) {
			return true
		}
	}
	return false
}

// MatchDirectory reports whether the directory rel is selected: it either
// matches a pattern itself or a pattern can still match beneath it.
func (s Set) MatchDirectory(rel string) bool {
	for _, p := range s.patterns {
		if p.Match(rel) || p.CouldMatchBeneath(rel) {
			return true
		}
	}
	return false
}

// Descend reports whether a walk needs to look inside the directory rel.
func (s Set) Descend(rel string) bool {
	for _, p := range s.patterns {
		if p.CouldMatchBeneath(rel) {
			return true
		}
	}
	return false
}

func (s Set) String() string {
	return "{" + strings.Join(s.Patterns(), ", ") + "}"
}

// 🧭 Strategy describes how a matched set was collected so that a host can
// collect it again and notice additions and removals.
type Strategy struct {
	Base     location.Location
	Patterns []string
}

// NewStrategy records base and the effective patterns of set.
func NewStrategy(base location.Location, set Set) Strategy {
	return Strategy{Base: base, Patterns: set.OrAll().Patterns()}
}

// Set rebuilds the pattern set.
func (s Strategy) Set() (Set, error) {
	return NewSet(s.Patterns...)
}
