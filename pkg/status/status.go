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

package status

import (
	"sort"
	"sync"
)

// 📊 FileStatus is the outcome of synchronizing one path
type FileStatus int

const (
	StatusUnknown   FileStatus = iota
	StatusNew                  // path did not exist in the target
	StatusModified             // path existed with different content
	StatusUnchanged            // path already had the expected content
	StatusDeleted              // path was pruned from the target
)

func (s FileStatus) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusModified:
		return "modified"
	case StatusUnchanged:
		return "unchanged"
	case StatusDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// 📄 Change is what happened to one path
type Change struct {
	Path   string     // slash separated, relative to the synchronized root; "." is the root
	Target string     // full path in the target filesystem
	Status FileStatus // outcome
	IsDir  bool       // whether the path is a directory
}

// 📋 Report collects the changes of one synchronization in visit order
type Report struct {
	mu      sync.Mutex
	changes []Change
}

func NewReport() *Report {
	return &Report{}
}

// Add appends a change.
func (r *Report) Add(c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

// Changes returns a copy of every change in visit order.
func (r *Report) Changes() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Change(nil), r.changes...)
}

// Count returns the number of changes with status s.
func (r *Report) Count(s FileStatus) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.changes {
		if c.Status == s {
			n++
		}
	}
	return n
}

// Written reports how many paths were created, modified or deleted.
func (r *Report) Written() int {
	return r.Count(StatusNew) + r.Count(StatusModified) + r.Count(StatusDeleted)
}

// Get returns the change recorded for a relative path.
func (r *Report) Get(rel string) (Change, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.changes {
		if c.Path == rel {
			return c, true
		}
	}
	return Change{}, false
}

// Paths returns the sorted relative paths that were not deleted.
func (r *Report) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.changes))
	for _, c := range r.changes {
		if c.Status != StatusDeleted {
			out = append(out, c.Path)
		}
	}
	sort.Strings(out)
	return out
}

// Merge appends every change of other.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	for _, c := range other.Changes() {
		r.Add(c)
	}
}
