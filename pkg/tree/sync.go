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

package tree

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/buildfs/pkg/fingerprint"
	"github.com/walteh/buildfs/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// 🔄 Synchronize writes root to target on fsys and reports what changed.
//
// Directories are merged: existing children that are not part of the tree are
// left alone unless keep is non-nil, in which case everything under target
// that keep does not list is removed. Files whose content already matches are
// not rewritten. Without keep, a directory never replaces a file and a file
// never replaces a directory; both are ErrConflict, except that a root file
// node may replace an empty directory. With keep, the tree owns what it
// names and mismatched entries are replaced. An ancestor of target that is a
// file is always ErrConflict.
func Synchronize(ctx context.Context, fsys afero.Fs, target string, root *Node, keep *KeepSet) (*status.Report, error) {
	s := &syncer{fsys: fsys, keep: keep, report: status.NewReport()}
	if err := checkAncestors(fsys, target); err != nil {
		return s.report, err
	}
	if err := s.node(ctx, target, ".", root); err != nil {
		return s.report, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("target", target).
		Bool("prune", keep != nil).
		Int("written", s.report.Written()).
		Int("unchanged", s.report.Count(status.StatusUnchanged)).
		Msg("synchronized tree")

	return s.report, nil
}

// checkAncestors walks up from the parent of target to the first existing
// path, which has to be a directory.
func checkAncestors(fsys afero.Fs, target string) error {
	dir := filepath.Dir(target)
	for {
		info, err := fsys.Stat(dir)
		switch {
		case err == nil && !info.IsDir():
			return errors.Errorf("%s is a file, directory expected above %s: %w", dir, target, ErrConflict)
		case err == nil:
			return nil
		case !os.IsNotExist(err) && !errors.Is(err, syscall.ENOTDIR):
			return errors.Errorf("stat %s: %w", dir, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}

type syncer struct {
	fsys   afero.Fs
	keep   *KeepSet
	report *status.Report
}

func (s *syncer) node(ctx context.Context, target, rel string, n *Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.IsDir() {
		return s.dir(ctx, target, rel, n)
	}
	return s.file(ctx, target, rel, n)
}

func (s *syncer) dir(ctx context.Context, target, rel string, n *Node) error {
	info, err := s.fsys.Stat(target)
	switch {
	case err == nil && !info.IsDir():
		if s.keep == nil {
			return errors.Errorf("%s is a file, directory expected: %w", target, ErrConflict)
		}
		if err := s.fsys.Remove(target); err != nil {
			return errors.Errorf("removing file %s: %w", target, err)
		}
		if err := s.fsys.MkdirAll(target, 0o755); err != nil {
			return errors.Errorf("creating directory %s: %w", target, err)
		}
		s.report.Add(status.Change{Path: rel, Target: target, Status: status.StatusModified, IsDir: true})
	case err == nil:
		s.report.Add(status.Change{Path: rel, Target: target, Status: status.StatusUnchanged, IsDir: true})
	case os.IsNotExist(err):
		if err := s.fsys.MkdirAll(target, 0o755); err != nil {
			return errors.Errorf("creating directory %s: %w", target, err)
		}
		s.report.Add(status.Change{Path: rel, Target: target, Status: status.StatusNew, IsDir: true})
	default:
		return errors.Errorf("stat %s: %w", target, err)
	}

	for _, child := range n.Children() {
		if err := s.node(ctx, filepath.Join(target, child.name), joinRel(rel, child.name), child); err != nil {
			return err
		}
	}

	if s.keep != nil {
		return s.prune(target, rel, n)
	}
	return nil
}

func (s *syncer) prune(target, rel string, n *Node) error {
	entries, err := afero.ReadDir(s.fsys, target)
	if err != nil {
		return errors.Errorf("listing %s: %w", target, err)
	}
	for _, e := range entries {
		childRel := joinRel(rel, e.Name())
		if _, ok := n.children[e.Name()]; ok || s.keep.Keeps(childRel) {
			continue
		}
		victim := filepath.Join(target, e.Name())
		if err := s.fsys.RemoveAll(victim); err != nil {
			return errors.Errorf("removing %s: %w", victim, err)
		}
		s.report.Add(status.Change{Path: childRel, Target: victim, Status: status.StatusDeleted, IsDir: e.IsDir()})
	}
	return nil
}

func (s *syncer) file(ctx context.Context, target, rel string, n *Node) error {
	exists, replaced := false, false
	info, err := s.fsys.Stat(target)
	switch {
	case err == nil && info.IsDir():
		if err := s.clearDirectory(target, rel); err != nil {
			return err
		}
		replaced = true
	case err == nil:
		exists = true
	case !os.IsNotExist(err):
		return errors.Errorf("stat %s: %w", target, err)
	}

	if exists {
		current, err := fingerprint.Compute(ctx, s.fsys, target)
		if err != nil {
			return err
		}
		if current.Equal(n.fingerprint) {
			s.report.Add(status.Change{Path: rel, Target: target, Status: status.StatusUnchanged})
			return nil
		}
	}

	if err := s.fsys.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Errorf("creating parent directories of %s: %w", target, err)
	}
	if err := writeAtomic(s.fsys, target, n); err != nil {
		return errors.Errorf("writing %s: %w", target, err)
	}

	st := status.StatusNew
	if exists || replaced {
		st = status.StatusModified
	}
	s.report.Add(status.Change{Path: rel, Target: target, Status: st})
	zerolog.Ctx(ctx).Debug().Str("target", target).Str("status", st.String()).Msg("wrote file")
	return nil
}

// clearDirectory makes room for a file node. When pruning, the tree owns
// target and the directory goes. Otherwise only an empty directory at the
// root may be replaced.
func (s *syncer) clearDirectory(target, rel string) error {
	if s.keep != nil {
		if err := s.fsys.RemoveAll(target); err != nil {
			return errors.Errorf("removing directory %s: %w", target, err)
		}
		return nil
	}
	empty, err := afero.IsEmpty(s.fsys, target)
	if err != nil {
		return errors.Errorf("checking %s: %w", target, err)
	}
	switch {
	case !empty:
		return errors.Errorf("%s is a non-empty directory, file expected: %w", target, ErrConflict)
	case rel != ".":
		return errors.Errorf("%s is a directory, file expected: %w", target, ErrConflict)
	}
	if err := s.fsys.Remove(target); err != nil {
		return errors.Errorf("removing empty directory %s: %w", target, err)
	}
	return nil
}

// writeAtomic streams the node content to a temp file next to target and
// renames it into place.
func writeAtomic(fsys afero.Fs, target string, n *Node) error {
	src, err := n.Open()
	if err != nil {
		return errors.Errorf("opening source: %w", err)
	}
	defer src.Close()

	tmp, err := afero.TempFile(fsys, filepath.Dir(target), "."+filepath.Base(target)+".tmp*")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		fsys.Remove(tmpName)
		return errors.Errorf("copying content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		fsys.Remove(tmpName)
		return errors.Errorf("closing temp file: %w", err)
	}
	if err := fsys.Rename(tmpName, target); err != nil {
		fsys.Remove(tmpName)
		return errors.Errorf("renaming temp file: %w", err)
	}
	return nil
}
