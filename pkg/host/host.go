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

// Package host declares what the file operations need from the surrounding
// build engine, and provides an afero backed reference implementation.
package host

import (
	"context"
	"io"

	"github.com/walteh/buildfs/pkg/fingerprint"
	"github.com/walteh/buildfs/pkg/location"
	"github.com/walteh/buildfs/pkg/status"
	"github.com/walteh/buildfs/pkg/tree"
	"github.com/walteh/buildfs/pkg/wildcard"
)

// 🔑 Fingerprinter reports the content identity of a single location
type Fingerprinter interface {
	Fingerprint(ctx context.Context, loc location.Location) (fingerprint.Fingerprint, error)
}

// 🎯 WildcardMatcher enumerates the descendants of base selected by set
type WildcardMatcher interface {
	MatchWildcards(ctx context.Context, base location.Location, set wildcard.Set) (*wildcard.Matches, error)
}

// 🔄 Synchronizer writes an in-memory tree to target. A nil keep-set never
// deletes; a non-nil one removes everything under target it does not list.
type Synchronizer interface {
	SynchronizeDirectory(ctx context.Context, root *tree.Node, target location.Location, keep *tree.KeepSet) (*status.Report, error)
}

// 📖 ContentOpener reads the bytes of a file location
type ContentOpener interface {
	OpenContent(ctx context.Context, loc location.Location) (io.ReadCloser, error)
}

// 🪞 MirrorResolver maps an execution path to the local path that mirrors it
type MirrorResolver interface {
	MirrorPath(ctx context.Context, exec location.Execution) (location.Local, error)
}

// 🧹 Remover deletes a location and everything beneath it. Removing an
// absent location is not an error.
type Remover interface {
	Remove(ctx context.Context, loc location.Location) (bool, error)
}

// 🏠 Host bundles every collaborator the operations use
type Host interface {
	Fingerprinter
	WildcardMatcher
	Synchronizer
	ContentOpener
	MirrorResolver
	Remover
}
