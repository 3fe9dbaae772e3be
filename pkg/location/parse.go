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

	"gitlab.com/tozd/go/errors"
)

const (
	execPrefix  = "exec:"
	localPrefix = "local:"
)

// 🔍 Parse reads the String form of a single location ("exec:/a/b" or
// "local:/a/b").
func Parse(s string) (Location, error) {
	switch {
	case strings.HasPrefix(s, execPrefix):
		return NewExecution(strings.TrimPrefix(s, execPrefix))
	case strings.HasPrefix(s, localPrefix):
		return NewLocal(strings.TrimPrefix(s, localPrefix))
	default:
		return nil, errors.Errorf("location %q: expected %q or %q prefix", s, execPrefix, localPrefix)
	}
}

// MustParse is Parse for tests and constants; it panics on error.
func MustParse(s string) Location {
	loc, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return loc
}
