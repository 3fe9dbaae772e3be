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
	"github.com/walteh/buildfs/pkg/tree"
	"github.com/walteh/buildfs/pkg/wildcard"
	"gitlab.com/tozd/go/errors"
)

// 🪞 Mirror returns a local filesystem path holding the content of loc.
// Local locations are their own mirror and cost no I/O. Execution
// locations are materialized under the host's mirror root; a directory is
// mirrored with its whole subtree, and stale content in the mirror is
// removed.
func (e *Engine) Mirror(ctx context.Context, loc location.Location) (string, error) {
	if err := requireSingle("mirror source", loc); err != nil {
		return "", err
	}
	return location.Match(loc,
		func(x location.Execution) (string, error) {
			return e.mirrorExecution(ctx, x)
		},
		func(l location.Local) (string, error) {
			return l.Path(), nil
		},
	)
}

func (e *Engine) mirrorExecution(ctx context.Context, exec location.Execution) (string, error) {
	logger := zerolog.Ctx(ctx).With().Str("source", exec.String()).Logger()
	ctx = logger.WithContext(ctx)

	fp, err := e.host.Fingerprint(ctx, exec)
	if err != nil {
		return "", errors.Errorf("fingerprinting %s: %w", exec, classify(err))
	}
	if fp.IsAbsent() {
		return "", errors.Errorf("mirroring %s: %w", exec, ErrNotFound)
	}

	mirror, err := e.host.MirrorPath(ctx, exec)
	if err != nil {
		return "", errors.Errorf("resolving mirror of %s: %w", exec, classify(err))
	}

	if err := e.clearMismatchedMirror(ctx, mirror, fp); err != nil {
		return "", err
	}

	var (
		root    *tree.Node
		keep    *tree.KeepSet
		entries []transferEntry
	)
	if fp.IsFile() {
		root = tree.NewFile(fp, e.opener(ctx, exec))
	} else {
		entries, err = e.collect(ctx, deps.TagMirrorSource, exec, mirror, wildcard.All)
		if err != nil {
			return "", err
		}
		root, err = e.buildTree(ctx, entries)
		if err != nil {
			return "", err
		}
		keep = tree.KeepTree(root)
	}

	report, err := e.host.SynchronizeDirectory(ctx, root, mirror, keep)
	if err != nil {
		return "", errors.Errorf("mirroring %s to %s: %w", exec, mirror, classify(err))
	}

	e.deps.ReportInputDependency(deps.TagMirrorSource, exec, fp)
	if err := e.reportMirror(ctx, mirror); err != nil {
		return "", err
	}
	for _, entry := range entries {
		e.deps.ReportInputDependency(deps.TagMirrorSource, entry.source, entry.fingerprint)
		if err := e.reportMirror(ctx, entry.target); err != nil {
			return "", err
		}
	}

	logger.Info().
		Str("mirror", mirror.Path()).
		Int("written", report.Written()).
		Msg("mirrored")

	return mirror.Path(), nil
}

// clearMismatchedMirror removes the mirror path when it holds a file where
// the source is a directory, or the other way round. The mirror root belongs
// to the host, so nothing outside it is touched.
func (e *Engine) clearMismatchedMirror(ctx context.Context, mirror location.Local, source fingerprint.Fingerprint) error {
	current, err := e.host.Fingerprint(ctx, mirror)
	if err != nil {
		return errors.Errorf("fingerprinting mirror %s: %w", mirror, classify(err))
	}
	if current.IsAbsent() || current.Kind == source.Kind {
		return nil
	}
	if _, err := e.host.Remove(ctx, mirror); err != nil {
		return errors.Errorf("clearing mirror %s: %w", mirror, err)
	}
	zerolog.Ctx(ctx).Debug().
		Str("mirror", mirror.Path()).
		Stringer("was", current.Kind).
		Stringer("now", source.Kind).
		Msg("mirror changed kind")
	return nil
}

// reportMirror records the content at a mirror path as seen on the local
// filesystem. It goes stale independently of the execution source, for
// instance when the mirror is deleted out of band.
func (e *Engine) reportMirror(ctx context.Context, loc location.Location) error {
	fp, err := e.host.Fingerprint(ctx, loc)
	if err != nil {
		return errors.Errorf("fingerprinting mirror %s: %w", loc, classify(err))
	}
	e.deps.ReportInputDependency(deps.TagMirrorLocal, loc, fp)
	return nil
}
