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

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// ErrInvalidConfig is returned by Validate for a structurally wrong task file.
var ErrInvalidConfig = errors.Base("invalid config")

// DefaultMirrorRoot is where execution paths are mirrored when the task file
// does not say otherwise.
const DefaultMirrorRoot = "~/.cache/buildfs/mirror"

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📍 LocationRef names a path in exactly one domain
type LocationRef struct {
	Execution string `json:"execution,omitempty" yaml:"execution,omitempty"`
	Local     string `json:"local,omitempty" yaml:"local,omitempty"`
}

// 📦 CopyTask copies Source to Target, filtered by Wildcards
type CopyTask struct {
	Source    LocationRef `json:"source" yaml:"source"`
	Target    LocationRef `json:"target" yaml:"target"`
	Wildcards []string    `json:"wildcards,omitempty" yaml:"wildcards,omitempty"`
}

// 📄 PrepareInput places Source at Path under the output directory
type PrepareInput struct {
	Path   string      `json:"path" yaml:"path"`
	Source LocationRef `json:"source" yaml:"source"`
}

// 📂 PrepareTask assembles Output from Inputs
type PrepareTask struct {
	Output LocationRef    `json:"output" yaml:"output"`
	Inputs []PrepareInput `json:"inputs" yaml:"inputs"`
}

// 🪞 MirrorTask materializes Source on the local filesystem
type MirrorTask struct {
	Source LocationRef `json:"source" yaml:"source"`
}

// 🎮 Task is one named invocation. Exactly one action is set.
type Task struct {
	Name    string       `json:"name" yaml:"name"`
	Copy    *CopyTask    `json:"copy,omitempty" yaml:"copy,omitempty"`
	Prepare *PrepareTask `json:"prepare,omitempty" yaml:"prepare,omitempty"`
	Mirror  *MirrorTask  `json:"mirror,omitempty" yaml:"mirror,omitempty"`
}

// Kind returns the name of the task's action.
func (t Task) Kind() string {
	switch {
	case t.Copy != nil:
		return "copy"
	case t.Prepare != nil:
		return "prepare"
	case t.Mirror != nil:
		return "mirror"
	default:
		return "none"
	}
}

// 📚 Config represents a task file
type Config struct {
	// Workspace is the local directory that backs the execution domain.
	Workspace  string `json:"workspace,omitempty" yaml:"workspace,omitempty"`
	MirrorRoot string `json:"mirror_root,omitempty" yaml:"mirror_root,omitempty"`
	StateFile  string `json:"state_file,omitempty" yaml:"state_file,omitempty"`
	Async      bool   `json:"async,omitempty" yaml:"async,omitempty"`
	Tasks      []Task `json:"tasks" yaml:"tasks"`

	// dir is the directory of the loaded file; relative local paths resolve
	// against it.
	dir string
}

// 🎯 Load reads, parses and validates the task file at path
func Load(ctx context.Context, fsys afero.Fs, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Errorf("resolving config path: %w", err)
	}
	cfg.dir = filepath.Dir(abs)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	logger.Debug().Int("tasks", len(cfg.Tasks)).Str("workspace", cfg.Workspace).Msg("loaded configuration")
	return cfg, nil
}

// 🔍 Validate checks the task file and fills in defaults. Local paths are
// expanded and made absolute.
func (cfg *Config) Validate() error {
	var err error

	if cfg.Workspace == "" {
		cfg.Workspace = "."
	}
	if cfg.Workspace, err = cfg.localPath(cfg.Workspace); err != nil {
		return errors.Errorf("workspace: %w", err)
	}
	if cfg.MirrorRoot == "" {
		cfg.MirrorRoot = DefaultMirrorRoot
	}
	if cfg.MirrorRoot, err = cfg.localPath(cfg.MirrorRoot); err != nil {
		return errors.Errorf("mirror_root: %w", err)
	}
	if cfg.StateFile == "" {
		cfg.StateFile = filepath.Join(cfg.Workspace, ".buildfs", "state.json")
	}
	if cfg.StateFile, err = cfg.localPath(cfg.StateFile); err != nil {
		return errors.Errorf("state_file: %w", err)
	}

	seen := map[string]bool{}
	for i := range cfg.Tasks {
		task := &cfg.Tasks[i]
		if task.Name == "" {
			return errors.Errorf("tasks[%d]: name is required: %w", i, ErrInvalidConfig)
		}
		if seen[task.Name] {
			return errors.Errorf("task %q: duplicate name: %w", task.Name, ErrInvalidConfig)
		}
		seen[task.Name] = true

		if err := cfg.validateTask(task); err != nil {
			return errors.Errorf("task %q: %w", task.Name, err)
		}
	}

	return nil
}

func (cfg *Config) validateTask(task *Task) error {
	actions := 0
	for _, set := range []bool{task.Copy != nil, task.Prepare != nil, task.Mirror != nil} {
		if set {
			actions++
		}
	}
	if actions != 1 {
		return errors.Errorf("exactly one of copy, prepare or mirror is required, got %d: %w", actions, ErrInvalidConfig)
	}

	switch {
	case task.Copy != nil:
		if err := cfg.normalizeRef("copy.source", &task.Copy.Source); err != nil {
			return err
		}
		if err := cfg.normalizeRef("copy.target", &task.Copy.Target); err != nil {
			return err
		}
		if _, err := task.Copy.WildcardSet(); err != nil {
			return errors.Errorf("copy.wildcards: %w", err)
		}
	case task.Prepare != nil:
		if err := cfg.normalizeRef("prepare.output", &task.Prepare.Output); err != nil {
			return err
		}
		paths := map[string]bool{}
		for i := range task.Prepare.Inputs {
			in := &task.Prepare.Inputs[i]
			if strings.TrimSpace(in.Path) == "" {
				return errors.Errorf("prepare.inputs[%d]: path is required: %w", i, ErrInvalidConfig)
			}
			if paths[in.Path] {
				return errors.Errorf("prepare.inputs[%d]: duplicate path %q: %w", i, in.Path, ErrInvalidConfig)
			}
			paths[in.Path] = true
			if err := cfg.normalizeRef(fmt.Sprintf("prepare.inputs[%d].source", i), &in.Source); err != nil {
				return err
			}
		}
	case task.Mirror != nil:
		if err := cfg.normalizeRef("mirror.source", &task.Mirror.Source); err != nil {
			return err
		}
	}
	return nil
}

// normalizeRef checks that ref names exactly one domain and makes a local
// path absolute.
func (cfg *Config) normalizeRef(field string, ref *LocationRef) error {
	switch {
	case ref.Execution != "" && ref.Local != "":
		return errors.Errorf("%s: execution and local are mutually exclusive: %w", field, ErrInvalidConfig)
	case ref.Execution != "":
		if !strings.HasPrefix(ref.Execution, "/") {
			return errors.Errorf("%s: execution path %q must start with /: %w", field, ref.Execution, ErrInvalidConfig)
		}
	case ref.Local != "":
		p, err := cfg.localPath(ref.Local)
		if err != nil {
			return errors.Errorf("%s: %w", field, err)
		}
		ref.Local = p
	default:
		return errors.Errorf("%s: one of execution or local is required: %w", field, ErrInvalidConfig)
	}
	return nil
}

// localPath expands ~ and resolves relative paths against the config
// directory.
func (cfg *Config) localPath(p string) (string, error) {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", errors.Errorf("expanding %q: %w", p, err)
	}
	if !filepath.IsAbs(expanded) {
		base := cfg.dir
		if base == "" {
			if base, err = filepath.Abs("."); err != nil {
				return "", errors.Errorf("resolving %q: %w", p, err)
			}
		}
		expanded = filepath.Join(base, expanded)
	}
	return filepath.Clean(expanded), nil
}

// 🔎 Select returns the named tasks in file order, or every task when no
// names are given.
func (cfg *Config) Select(names ...string) ([]Task, error) {
	if len(names) == 0 {
		return cfg.Tasks, nil
	}
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}
	var out []Task
	for _, t := range cfg.Tasks {
		if want[t.Name] {
			out = append(out, t)
			delete(want, t.Name)
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for n := range want {
			missing = append(missing, n)
		}
		sort.Strings(missing)
		return nil, errors.Errorf("unknown tasks: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	return fmt.Sprintf("%d tasks in %s (mirror %s)", len(cfg.Tasks), cfg.Workspace, cfg.MirrorRoot)
}
