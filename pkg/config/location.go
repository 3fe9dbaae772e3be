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
	"github.com/walteh/buildfs/pkg/location"
	"github.com/walteh/buildfs/pkg/wildcard"
	"gitlab.com/tozd/go/errors"
)

// Location builds the location a validated ref names.
func (r LocationRef) Location() (location.Location, error) {
	switch {
	case r.Execution != "" && r.Local == "":
		return location.NewExecution(r.Execution)
	case r.Local != "" && r.Execution == "":
		return location.NewLocal(r.Local)
	default:
		return nil, errors.Errorf("location ref (execution %q, local %q): %w", r.Execution, r.Local, ErrInvalidConfig)
	}
}

func (r LocationRef) String() string {
	loc, err := r.Location()
	if err != nil {
		return "<invalid>"
	}
	return loc.String()
}

// WildcardSet parses the copy task's patterns.
func (c *CopyTask) WildcardSet() (wildcard.Set, error) {
	return wildcard.NewSet(c.Wildcards...)
}
