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

package wildcard

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/buildfs/pkg/fingerprint"
	"gitlab.com/tozd/go/errors"
)

// 📄 Entry is one matched descendant
type Entry struct {
	Path        string // slash separated, relative to the walked root
	Fingerprint fingerprint.Fingerprint
}

// 📋 Matches is the ordered result of a walk: parents before children,
// siblings in lexical order.
type Matches struct {
	entries []Entry
	index   map[string]int
}

// NewMatches builds a result from entries already in walk order.
func NewMatches(entries ...Entry) *Matches {
	m := &Matches{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		m.add(e)
	}
	return m
}

func (m *Matches) add(e Entry) {
	m.index[e.Path] = len(m.entries)
	m.entries = append(m.entries, e)
}

func (m *Matches) Len() int { return len(m.entries) }

// Entries returns a copy of the matched entries in walk order.
func (m *Matches) Entries() []Entry {
	return append([]Entry(nil), m.entries...)
}

// Paths returns the relative paths in walk order.
func (m *Matches) Paths() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Path
	}
	return out
}

// Get looks up a single relative path.
func (m *Matches) Get(rel string) (Entry, bool) {
	i, ok := m.index[rel]
	if !ok {
		return Entry{}, false
	}
	return m.entries[i], true
}

// 🚶 Walk matches the descendants of root on fsys against set. The root
// itself is never part of the result. An empty set selects everything.
func Walk(ctx context.Context, fsys afero.Fs, root string, set Set) (*Matches, error) {
	set = set.OrAll()
	logger := zerolog.Ctx(ctx)

	info, err := fsys.Stat(root)
	if err != nil {
		return nil, errors.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("walking %s: not a directory", root)
	}

	matches := NewMatches()
	err = afero.Walk(fsys, root, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return errors.Errorf("relativizing %s: %w", p, err)
		}
		rel = filepath.ToSlash(rel)

		if fi.IsDir() {
			if set.MatchDirectory(rel) {
				matches.add(Entry{Path: rel, Fingerprint: fingerprint.Directory})
			}
			if !set.Descend(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !set.MatchFile(rel) {
			return nil
		}
		fp, err := fingerprint.Compute(ctx, fsys, p)
		if err != nil {
			return err
		}
		matches.add(Entry{Path: rel, Fingerprint: fp})
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("walking %s: %w", root, err)
	}

	logger.Debug().Str("root", root).Str("patterns", set.String()).Int("matches", matches.Len()).Msg("matched wildcards")
	return matches, nil
}
