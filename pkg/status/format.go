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
	"fmt"
)

// FileFormatter defines how changes and errors are rendered
type FileFormatter interface {
	// FormatChange formats a single change
	FormatChange(c Change) string

	// FormatSummary formats the totals of a report
	FormatSummary(r *Report) string

	// FormatError formats an error message
	FormatError(err error) string
}

// DefaultFileFormatter renders changes as short emoji lines
type DefaultFileFormatter struct{}

func NewDefaultFileFormatter() *DefaultFileFormatter {
	return &DefaultFileFormatter{}
}

// FormatChange formats a change with an emoji for its status
func (f *DefaultFileFormatter) FormatChange(c Change) string {
	name := c.Path
	if c.IsDir && name != "." {
		name += "/"
	}
	switch c.Status {
	case StatusNew:
		return fmt.Sprintf("✨ Created %s", name)
	case StatusModified:
		return fmt.Sprintf("📝 Modified %s", name)
	case StatusDeleted:
		return fmt.Sprintf("🗑️  Removed %s", name)
	case StatusUnchanged:
		return fmt.Sprintf("👍 Unchanged %s", name)
	default:
		return fmt.Sprintf("❓ Unknown %s", name)
	}
}

// FormatSummary formats the per-status totals
func (f *DefaultFileFormatter) FormatSummary(r *Report) string {
	if r == nil {
		return "✅ 0 written, 0 unchanged"
	}
	return fmt.Sprintf("✅ %d written, %d unchanged", r.Written(), r.Count(StatusUnchanged))
}

// FormatError formats an error message with emoji
func (f *DefaultFileFormatter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("❌ Error: %v", err)
}
