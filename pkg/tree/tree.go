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

// Package tree builds an explicit in-memory file tree from matched entries and
// writes it to a filesystem.
package tree

import (
	"io"
	"path"
	"sort"
	"strings"

	"github.com/walteh/buildfs/pkg/fingerprint"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrConflict is returned when a file would replace a directory (or the
	// other way around).
	ErrConflict = errors.Base("file and directory collide")

	// ErrInvalidPath is returned for absolute, empty or escaping relative paths.
	ErrInvalidPath = errors.Base("invalid relative path")
)

// Opener returns the content of a file node.
type Opener func() (io.ReadCloser, error)

// 🌳 Node is a directory or a file in the tree
type Node struct {
	name        string
	fingerprint fingerprint.Fingerprint
	open        Opener
	children    map[string]*Node
}

// NewDirectory returns an empty directory node, usually the root.
func NewDirectory() *Node {
	return &Node{fingerprint: fingerprint.Directory, children: map[string]*Node{}}
}

// NewFile returns a detached file node, for single file synchronization.
func NewFile(fp fingerprint.Fingerprint, open Opener) *Node {
	return &Node{fingerprint: fp, open: open}
}

func (n *Node) Name() string                         { return n.name }
func (n *Node) IsDir() bool                          { return n.fingerprint.IsDirectory() }
func (n *Node) Fingerprint() fingerprint.Fingerprint { return n.fingerprint }

// Open returns the content of a file node.
func (n *Node) Open() (io.ReadCloser, error) {
	if n.open == nil {
		return nil, errors.Errorf("node %q has no content", n.name)
	}
	return n.open()
}

// Child looks up a direct child by name.
func (n *Node) Child(name string) (*Node, bool) {
	c, ok := n.children[name]
	return c, ok
}

// Children returns the direct children sorted by name.
func (n *Node) Children() []*Node {
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// CleanRel validates and cleans a slash separated relative path.
func CleanRel(rel string) (string, error) {
	if rel == "" || strings.HasPrefix(rel, "/") {
		return "", errors.Errorf("%q: %w", rel, ErrInvalidPath)
	}
	cleaned := path.Clean(rel)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.Errorf("%q: %w", rel, ErrInvalidPath)
	}
	return cleaned, nil
}

// AddDirectory adds rel and any missing ancestors as directories.
func (n *Node) AddDirectory(rel string) (*Node, error) {
	cleaned, err := CleanRel(rel)
	if err != nil {
		return nil, err
	}
	return n.ensureDir(strings.Split(cleaned, "/"), cleaned)
}

// AddFile adds a file at rel, creating missing ancestors. Replacing an
// existing file node is allowed; replacing a directory is a conflict.
func (n *Node) AddFile(rel string, fp fingerprint.Fingerprint, open Opener) (*Node, error) {
	cleaned, err := CleanRel(rel)
	if err != nil {
		return nil, err
	}
	if !fp.IsFile() {
		return nil, errors.Errorf("adding %s: fingerprint %s is not a file", cleaned, fp)
	}
	segs := strings.Split(cleaned, "/")
	parent, err := n.ensureDir(segs[:len(segs)-1], cleaned)
	if err != nil {
		return nil, err
	}
	name := segs[len(segs)-1]
	if existing, ok := parent.children[name]; ok && existing.IsDir() {
		return nil, errors.Errorf("adding file %s over directory: %w", cleaned, ErrConflict)
	}
	child := &Node{name: name, fingerprint: fp, open: open}
	parent.children[name] = child
	return child, nil
}

func (n *Node) ensureDir(segs []string, full string) (*Node, error) {
	if !n.IsDir() {
		return nil, errors.Errorf("adding %s under a file: %w", full, ErrConflict)
	}
	cur := n
	for _, seg := range segs {
		next, ok := cur.children[seg]
		if !ok {
			next = &Node{name: seg, fingerprint: fingerprint.Directory, children: map[string]*Node{}}
			cur.children[seg] = next
		} else if !next.IsDir() {
			return nil, errors.Errorf("adding %s: %s is a file: %w", full, seg, ErrConflict)
		}
		cur = next
	}
	return cur, nil
}

// Walk visits every node below n in pre-order with sorted siblings. The
// receiver itself is not visited.
func (n *Node) Walk(fn func(rel string, node *Node) error) error {
	return n.walk(".", fn)
}

func (n *Node) walk(rel string, fn func(string, *Node) error) error {
	for _, c := range n.Children() {
		childRel := joinRel(rel, c.name)
		if err := fn(childRel, c); err != nil {
			return err
		}
		if c.IsDir() {
			if err := c.walk(childRel, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Paths returns every relative path below n in walk order.
func (n *Node) Paths() []string {
	var out []string
	_ = n.Walk(func(rel string, _ *Node) error {
		out = append(out, rel)
		return nil
	})
	return out
}

func joinRel(parent, name string) string {
	if parent == "." || parent == "" {
		return name
	}
	return parent + "/" + name
}

// 🛡️ KeepSet lists the relative paths a pruning synchronization must keep.
// Ancestors of every kept path are kept as well.
type KeepSet struct {
	paths map[string]bool
}

// NewKeepSet builds a keep-set from slash separated relative paths.
func NewKeepSet(paths ...string) *KeepSet {
	k := &KeepSet{paths: map[string]bool{}}
	for _, p := range paths {
		k.Add(p)
	}
	return k
}

// KeepTree keeps exactly the nodes of root.
func KeepTree(root *Node) *KeepSet {
	return NewKeepSet(root.Paths()...)
}

// Add keeps rel and its ancestors.
func (k *KeepSet) Add(rel string) {
	rel = path.Clean(rel)
	for rel != "." && rel != "/" && rel != "" {
		k.paths[rel] = true
		rel = path.Dir(rel)
	}
}

// Keeps reports whether rel is kept.
func (k *KeepSet) Keeps(rel string) bool {
	return k.paths[path.Clean(rel)]
}

func (k *KeepSet) Len() int { return len(k.paths) }
