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

package operation

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/buildfs/pkg/deps"
	"github.com/walteh/buildfs/pkg/fingerprint"
	"github.com/walteh/buildfs/pkg/location"
	"github.com/walteh/buildfs/pkg/status"
	"github.com/walteh/buildfs/pkg/tree"
	"github.com/walteh/buildfs/pkg/wildcard"
	"gitlab.com/tozd/go/errors"
)

// 📦 CopyResult describes what a copy produced
type CopyResult struct {
	// Target is the location the caller asked to copy to.
	Target location.Location
	// Files holds the target of every transferred entry in matcher order.
	// A single file copy yields the target itself.
	Files location.Collection
	// Report has the per path outcome of the synchronization.
	Report *status.Report
}

// transferEntry is one source path and where it lands.
type transferEntry struct {
	rel         string
	fingerprint fingerprint.Fingerprint
	source      location.Location
	target      location.Location
}

// 📦 Copy copies source to target in any combination of domains.
//
// A file source replaces target (an empty directory at target is replaced,
// a non-empty one is a conflict). A directory source is merged into target:
// entries selected by wildcards are written, colliding files are
// overwritten, and nothing already under target is removed. An empty
// wildcard set selects everything.
func (e *Engine) Copy(ctx context.Context, source, target location.Location, wildcards wildcard.Set) (*CopyResult, error) {
	if err := requireSingle("copy source", source); err != nil {
		return nil, err
	}
	if err := requireSingle("copy target", target); err != nil {
		return nil, err
	}
	if location.IsNested(source, target) {
		return nil, errors.Errorf("copying %s to %s: source and target overlap: %w", source, target, ErrConflict)
	}

	ctx = zerolog.Ctx(ctx).With().
		Str("source", source.String()).
		Str("target", target.String()).
		Logger().WithContext(ctx)

	fp, err := e.host.Fingerprint(ctx, source)
	if err != nil {
		return nil, errors.Errorf("fingerprinting %s: %w", source, classify(err))
	}

	switch fp.Kind {
	case fingerprint.KindFile:
		return e.copyFile(ctx, source, target, fp)
	case fingerprint.KindDirectory:
		return e.copyDirectory(ctx, source, target, fp, wildcards)
	default:
		return nil, errors.Errorf("copying %s: %w", source, ErrNotFound)
	}
}

// 📄 copyFile transfers a single file
func (e *Engine) copyFile(ctx context.Context, source, target location.Location, fp fingerprint.Fingerprint) (*CopyResult, error) {
	node := tree.NewFile(fp, e.opener(ctx, source))

	report, err := e.host.SynchronizeDirectory(ctx, node, target, nil)
	if err != nil {
		return nil, errors.Errorf("copying %s to %s: %w", source, target, classify(err))
	}

	e.deps.ReportInputDependency(deps.TagCopySource, source, fp)
	if err := e.reportOutput(ctx, deps.TagCopyTarget, target); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Int("written", report.Written()).Msg("copied file")

	return &CopyResult{
		Target: target,
		Files:  location.NewCollection(target),
		Report: report,
	}, nil
}

// 📁 copyDirectory merges the matched subtree of source into target
func (e *Engine) copyDirectory(ctx context.Context, source, target location.Location, fp fingerprint.Fingerprint, wildcards wildcard.Set) (*CopyResult, error) {
	logger := zerolog.Ctx(ctx)
	set := wildcards.OrAll()

	entries, err := e.collect(ctx, deps.TagCopySource, source, target, set)
	if err != nil {
		return nil, err
	}

	root, err := e.buildTree(ctx, entries)
	if err != nil {
		return nil, err
	}

	report, err := e.host.SynchronizeDirectory(ctx, root, target, nil)
	if err != nil {
		return nil, errors.Errorf("copying %s to %s: %w", source, target, classify(err))
	}

	e.deps.ReportInputDependency(deps.TagCopySource, source, fp)
	if err := e.reportOutput(ctx, deps.TagCopyTarget, target); err != nil {
		return nil, err
	}

	files := make([]location.Location, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("copying %s: %w", source, err)
		}
		e.deps.ReportInputDependency(deps.TagCopySource, entry.source, entry.fingerprint)
		if err := e.reportOutput(ctx, deps.TagCopyTarget, entry.target); err != nil {
			return nil, err
		}
		files = append(files, entry.target)
	}

	logger.Info().
		Int("entries", len(entries)).
		Int("written", report.Written()).
		Msg("copied directory")

	return &CopyResult{
		Target: target,
		Files:  location.NewCollection(files...),
		Report: report,
	}, nil
}

// 🎯 collect asks the host for the wildcard matches under source and pairs
// each with its target. The addition dependency is reported here so the
// host learns about the collection even when nothing matched.
func (e *Engine) collect(ctx context.Context, tag deps.Tag, source, target location.Location, set wildcard.Set) ([]transferEntry, error) {
	matches, err := e.host.MatchWildcards(ctx, source, set)
	if err != nil {
		return nil, errors.Errorf("matching %s in %s: %w", set, source, classify(err))
	}

	e.deps.ReportAdditionDependency(tag, wildcard.NewStrategy(source, set), matches.Paths())

	entries := make([]transferEntry, 0, matches.Len())
	for _, m := range matches.Entries() {
		src, err := location.Join(source, m.Path)
		if err != nil {
			return nil, errors.Errorf("resolving %s: %w", m.Path, classify(err))
		}
		dst, err := location.Join(target, m.Path)
		if err != nil {
			return nil, errors.Errorf("resolving %s: %w", m.Path, classify(err))
		}
		entries = append(entries, transferEntry{
			rel:         m.Path,
			fingerprint: m.Fingerprint,
			source:      src,
			target:      dst,
		})
	}
	return entries, nil
}

// 🌳 buildTree turns transfer entries into the tree the synchronizer writes
func (e *Engine) buildTree(ctx context.Context, entries []transferEntry) (*tree.Node, error) {
	logger := zerolog.Ctx(ctx)
	root := tree.NewDirectory()
	for _, entry := range entries {
		var err error
		if entry.fingerprint.IsDirectory() {
			_, err = root.AddDirectory(entry.rel)
		} else {
			_, err = root.AddFile(entry.rel, entry.fingerprint, e.opener(ctx, entry.source))
		}
		if err != nil {
			return nil, errors.Errorf("building tree: %w", classify(err))
		}
		logger.Debug().Str("path", entry.rel).Str("fingerprint", entry.fingerprint.String()).Msg("transfer entry")
	}
	return root, nil
}

// reportOutput fingerprints loc after the write and reports it.
func (e *Engine) reportOutput(ctx context.Context, tag deps.Tag, loc location.Location) error {
	fp, err := e.host.Fingerprint(ctx, loc)
	if err != nil {
		return errors.Errorf("fingerprinting output %s: %w", loc, classify(err))
	}
	e.deps.ReportOutputDependency(tag, loc, fp)
	return nil
}
