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

// Package location models where a file lives: in the build's virtual execution
// hierarchy or on the real local filesystem.
//
// A Location is a closed sum type. The only implementations are Execution,
// Local and Collection, and single-path consumers go through Match so that a
// new kind of location is a compile error in every caller rather than a
// silently ignored default branch.
package location

import (
	"path"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
)

var (
	// ErrNotAbsolute is returned when a location is built from a relative path.
	ErrNotAbsolute = errors.Base("path is not absolute")

	// ErrNotSingle is returned when a single path is required but a collection
	// (or nil) was given.
	ErrNotSingle = errors.Base("location does not denote a single path")
)

// 🌍 Domain identifies which file hierarchy a location addresses
type Domain int

const (
	DomainUnknown Domain = iota
	DomainExecution
	DomainLocal
)

func (d Domain) String() string {
	switch d {
	case DomainExecution:
		return "execution"
	case DomainLocal:
		return "local"
	default:
		return "unknown"
	}
}

// 📍 Location is one of Execution, Local or Collection
type Location interface {
	String() string
	isLocation()
}

// 🏗️ Execution is an absolute, slash separated path in the execution hierarchy
type Execution struct {
	path string
}

// NewExecution cleans p and fails if it is not absolute. Backslashes are
// treated as separators.
func NewExecution(p string) (Execution, error) {
	normalized := strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(normalized, "/") {
		return Execution{}, errors.Errorf("execution path %q: %w", p, ErrNotAbsolute)
	}
	return Execution{path: path.Clean(normalized)}, nil
}

// Path returns the cleaned absolute path.
func (e Execution) Path() string { return e.path }

func (e Execution) String() string { return "exec:" + e.path }

func (Execution) isLocation() {}

// 💻 Local is an absolute path on the machine running the build
type Local struct {
	path string
}

// NewLocal cleans p and fails if it is not absolute for the current OS.
func NewLocal(p string) (Local, error) {
	if !filepath.IsAbs(p) {
		return Local{}, errors.Errorf("local path %q: %w", p, ErrNotAbsolute)
	}
	return Local{path: filepath.Clean(p)}, nil
}

// Path returns the cleaned absolute path.
func (l Local) Path() string { return l.path }

func (l Local) String() string { return "local:" + l.path }

func (Local) isLocation() {}

// 🏭 New builds a single location in the given domain.
func New(domain Domain, p string) (Location, error) {
	switch domain {
	case DomainExecution:
		return NewExecution(p)
	case DomainLocal:
		return NewLocal(p)
	default:
		return nil, errors.Errorf("unknown domain %d for path %q", domain, p)
	}
}

// 🎯 Match dispatches loc to the callback for its kind and returns whatever the
// callback returns. Collections and nil fail with ErrNotSingle.
func Match[T any](loc Location, onExecution func(Execution) (T, error), onLocal func(Local) (T, error)) (T, error) {
	switch l := loc.(type) {
	case Execution:
		return onExecution(l)
	case Local:
		return onLocal(l)
	default:
		var zero T
		return zero, errors.Errorf("%v: %w", loc, ErrNotSingle)
	}
}

// DomainOf returns the domain of a single location.
func DomainOf(loc Location) (Domain, error) {
	return Match(loc,
		func(Execution) (Domain, error) { return DomainExecution, nil },
		func(Local) (Domain, error) { return DomainLocal, nil },
	)
}

// PathOf returns the path of a single location in its own syntax.
func PathOf(loc Location) (string, error) {
	return Match(loc,
		func(e Execution) (string, error) { return e.path, nil },
		func(l Local) (string, error) { return l.path, nil },
	)
}

// 📄 FileName returns the last path segment. It reports false for roots and
// for anything that is not a single location.
func FileName(loc Location) (string, bool) {
	name, err := Match(loc,
		func(e Execution) (string, error) {
			if e.path == "/" {
				return "", nil
			}
			return path.Base(e.path), nil
		},
		func(l Local) (string, error) {
			if filepath.Dir(l.path) == l.path {
				return "", nil
			}
			return filepath.Base(l.path), nil
		},
	)
	if err != nil || name == "" {
		return "", false
	}
	return name, true
}

// Join appends a slash separated relative path to loc.
func Join(loc Location, rel string) (Location, error) {
	if path.IsAbs(rel) {
		return nil, errors.Errorf("joining %s with %q: relative path required", loc, rel)
	}
	return Match(loc,
		func(e Execution) (Location, error) {
			return Execution{path: path.Join(e.path, rel)}, nil
		},
		func(l Local) (Location, error) {
			return Local{path: filepath.Join(l.path, filepath.FromSlash(rel))}, nil
		},
	)
}

// Parent returns the containing directory, or false for a root.
func Parent(loc Location) (Location, bool) {
	parent, err := Match(loc,
		func(e Execution) (Location, error) {
			if e.path == "/" {
				return nil, nil
			}
			return Execution{path: path.Dir(e.path)}, nil
		},
		func(l Local) (Location, error) {
			dir := filepath.Dir(l.path)
			if dir == l.path {
				return nil, nil
			}
			return Local{path: dir}, nil
		},
	)
	if err != nil || parent == nil {
		return nil, false
	}
	return parent, true
}

// Rel returns the slash separated path of target relative to base. Both must
// be in the same domain and target must not escape base.
func Rel(base, target Location) (string, error) {
	bd, err := DomainOf(base)
	if err != nil {
		return "", err
	}
	td, err := DomainOf(target)
	if err != nil {
		return "", err
	}
	if bd != td {
		return "", errors.Errorf("%s and %s are in different domains", base, target)
	}
	bp, _ := PathOf(base)
	tp, _ := PathOf(target)

	if bd == DomainExecution {
		if tp == bp {
			return ".", nil
		}
		if !isPrefix(bp, tp, "/") {
			return "", errors.Errorf("%s is not under %s", target, base)
		}
		return strings.TrimPrefix(tp, strings.TrimSuffix(bp, "/")+"/"), nil
	}

	rel, err := filepath.Rel(bp, tp)
	if err != nil {
		return "", errors.Errorf("relativizing %s to %s: %w", target, base, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errors.Errorf("%s is not under %s", target, base)
	}
	return rel, nil
}

// IsNested reports whether a and b are in the same domain and one of them is
// the other or an ancestor of it.
func IsNested(a, b Location) bool {
	ad, err := DomainOf(a)
	if err != nil {
		return false
	}
	bd, err := DomainOf(b)
	if err != nil || ad != bd {
		return false
	}
	ap, _ := PathOf(a)
	bp, _ := PathOf(b)
	sep := "/"
	if ad == DomainLocal {
		sep = string(filepath.Separator)
	}
	return isPrefix(ap, bp, sep) || isPrefix(bp, ap, sep)
}

func isPrefix(parent, child, sep string) bool {
	if parent == child {
		return true
	}
	if !strings.HasSuffix(parent, sep) {
		parent += sep
	}
	return strings.HasPrefix(child, parent)
}

// Equal compares two locations by value. Collections are equal when they hold
// equal items in the same order.
func Equal(a, b Location) bool {
	ac, aok := a.(Collection)
	bc, bok := b.(Collection)
	if aok || bok {
		if !aok || !bok || len(ac.items) != len(bc.items) {
			return false
		}
		for i := range ac.items {
			if !Equal(ac.items[i], bc.items[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}
