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

package location

import (
	"strings"
)

// 📚 Collection is an ordered sequence of locations. Duplicates are kept so
// that emitted results reproduce insertion order; Contains and Unique give set
// semantics when they are needed.
type Collection struct {
	items []Location
}

// NewCollection builds a collection holding items in order.
func NewCollection(items ...Location) Collection {
	return Collection{items: append([]Location(nil), items...)}
}

// Add returns a new collection with loc appended.
func (c Collection) Add(loc Location) Collection {
	items := make([]Location, len(c.items), len(c.items)+1)
	copy(items, c.items)
	return Collection{items: append(items, loc)}
}

// All returns a copy of the items in insertion order.
func (c Collection) All() []Location {
	return append([]Location(nil), c.items...)
}

func (c Collection) Len() int { return len(c.items) }

// Contains reports whether an equal location is in the collection.
func (c Collection) Contains(loc Location) bool {
	for _, item := range c.items {
		if Equal(item, loc) {
			return true
		}
	}
	return false
}

// Unique drops later duplicates while keeping first-seen order.
func (c Collection) Unique() Collection {
	out := Collection{items: make([]Location, 0, len(c.items))}
	for _, item := range c.items {
		if !out.Contains(item) {
			out.items = append(out.items, item)
		}
	}
	return out
}

func (c Collection) String() string {
	parts := make([]string, len(c.items))
	for i, item := range c.items {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (Collection) isLocation() {}
