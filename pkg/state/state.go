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

// Package state persists the dependency facts of every task in a lock file
// so later runs can tell whether a task has anything to do.
package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/buildfs/pkg/deps"
	"github.com/walteh/buildfs/pkg/fingerprint"
	"gitlab.com/tozd/go/errors"
)

// SchemaVersion is written to every lock file.
const SchemaVersion = "1"

// 📒 File is the on-disk lock file
type File struct {
	SchemaVersion string                `json:"schema_version"`
	LastUpdated   time.Time             `json:"last_updated"`
	Tasks         map[string]*TaskState `json:"tasks"`
}

// 🎮 TaskState is everything remembered about the last successful run of a task
type TaskState struct {
	Kind        string    `json:"kind"`
	Definition  string    `json:"definition_hash"`
	LastUpdated time.Time `json:"last_updated"`

	Inputs    []FactRecord     `json:"inputs"`
	Outputs   []FactRecord     `json:"outputs"`
	Additions []AdditionRecord `json:"additions,omitempty"`

	// Owned are the absolute paths a prepare task produced; they are handed
	// back on the next run so stale outputs can be cleared.
	Owned []string `json:"owned,omitempty"`
	// Result is a short human readable description of what the run returned.
	Result string `json:"result,omitempty"`
}

// FactRecord is a serialized deps.Fact.
type FactRecord struct {
	Tag         deps.Tag                `json:"tag"`
	Location    string                  `json:"location"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
}

// AdditionRecord is a serialized deps.Addition.
type AdditionRecord struct {
	Tag      deps.Tag `json:"tag"`
	Base     string   `json:"base"`
	Patterns []string `json:"patterns"`
	Matched  []string `json:"matched"`
}

// FromRecorder converts everything rec collected into a task state.
func FromRecorder(kind, definition string, rec *deps.Recorder) *TaskState {
	ts := &TaskState{Kind: kind, Definition: definition}
	for _, f := range rec.Inputs() {
		ts.Inputs = append(ts.Inputs, FactRecord{Tag: f.Tag, Location: f.Location.String(), Fingerprint: f.Fingerprint})
	}
	for _, f := range rec.Outputs() {
		ts.Outputs = append(ts.Outputs, FactRecord{Tag: f.Tag, Location: f.Location.String(), Fingerprint: f.Fingerprint})
	}
	for _, a := range rec.Additions() {
		ts.Additions = append(ts.Additions, AdditionRecord{
			Tag:      a.Tag,
			Base:     a.Strategy.Base.String(),
			Patterns: a.Strategy.Patterns,
			Matched:  a.Matched,
		})
	}
	return ts
}

// HashDefinition returns a stable hash of a task definition so an edited
// task is never considered up to date.
func HashDefinition(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.Errorf("hashing task definition: %w", err)
	}
	return fingerprint.Bytes(data).Hash, nil
}

// 🔒 Store guards a lock file. All methods are safe for concurrent use.
type Store struct {
	fsys  afero.Fs
	path  string
	clock clockwork.Clock

	mu   sync.Mutex
	file *File
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// 📂 Open loads the lock file at path. A missing file yields an empty store.
func Open(ctx context.Context, fsys afero.Fs, path string, opts ...Option) (*Store, error) {
	s := &Store{
		fsys:  fsys,
		path:  path,
		clock: clockwork.NewRealClock(),
		file:  &File{SchemaVersion: SchemaVersion, Tasks: map[string]*TaskState{}},
	}
	for _, opt := range opts {
		opt(s)
	}

	logger := zerolog.Ctx(ctx)
	data, err := afero.ReadFile(fsys, path)
	if os.IsNotExist(err) {
		logger.Debug().Str("path", path).Msg("no state file, starting clean")
		return s, nil
	}
	if err != nil {
		return nil, errors.Errorf("reading state file: %w", err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Errorf("parsing state file %s: %w", path, err)
	}
	if file.SchemaVersion != SchemaVersion {
		logger.Warn().Str("found", file.SchemaVersion).Str("want", SchemaVersion).Msg("state schema changed, starting clean")
		return s, nil
	}
	if file.Tasks == nil {
		file.Tasks = map[string]*TaskState{}
	}
	s.file = &file

	logger.Debug().Str("path", path).Int("tasks", len(file.Tasks)).Msg("loaded state")
	return s, nil
}

func (s *Store) Path() string { return s.path }

// Task returns the recorded state of name.
func (s *Store) Task(name string) (*TaskState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.file.Tasks[name]
	return ts, ok
}

// Names returns every recorded task name, sorted.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.file.Tasks))
	for n := range s.file.Tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Put records the state of a successful run of name.
func (s *Store) Put(name string, ts *TaskState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now().UTC()
	ts.LastUpdated = now
	s.file.Tasks[name] = ts
	s.file.LastUpdated = now
}

// Forget drops the record of name.
func (s *Store) Forget(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.file.Tasks, name)
	s.file.LastUpdated = s.clock.Now().UTC()
}

// 💾 Save writes the lock file, replacing it atomically.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	data, err := json.MarshalIndent(s.file, "", "\t")
	s.mu.Unlock()
	if err != nil {
		return errors.Errorf("encoding state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fsys.MkdirAll(dir, 0o755); err != nil {
		return errors.Errorf("creating state directory: %w", err)
	}
	tmp, err := afero.TempFile(s.fsys, dir, "."+filepath.Base(s.path)+".tmp*")
	if err != nil {
		return errors.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		s.fsys.Remove(tmpName)
		return errors.Errorf("writing state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		s.fsys.Remove(tmpName)
		return errors.Errorf("closing state: %w", err)
	}
	if err := s.fsys.Rename(tmpName, s.path); err != nil {
		s.fsys.Remove(tmpName)
		return errors.Errorf("replacing state file: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", s.path).Msg("saved state")
	return nil
}
