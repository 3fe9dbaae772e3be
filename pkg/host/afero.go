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

package host

import (
	"context"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/buildfs/pkg/fingerprint"
	"github.com/walteh/buildfs/pkg/location"
	"github.com/walteh/buildfs/pkg/status"
	"github.com/walteh/buildfs/pkg/tree"
	"github.com/walteh/buildfs/pkg/wildcard"
	"gitlab.com/tozd/go/errors"
)

// 💾 FileSystems is the explicit handle to both domains. Nothing in this
// module reaches for a process wide filesystem.
type FileSystems struct {
	Execution afero.Fs
	Local     afero.Fs
}

// NewMemFileSystems returns two independent in-memory domains.
func NewMemFileSystems() FileSystems {
	return FileSystems{Execution: afero.NewMemMapFs(), Local: afero.NewMemMapFs()}
}

// NewOsFileSystems exposes workspace as the execution root and the real
// filesystem as the local domain.
func NewOsFileSystems(workspace string) FileSystems {
	osfs := afero.NewOsFs()
	return FileSystems{Execution: afero.NewBasePathFs(osfs, workspace), Local: osfs}
}

// For returns the filesystem of a domain.
func (f FileSystems) For(d location.Domain) (afero.Fs, error) {
	var fsys afero.Fs
	switch d {
	case location.DomainExecution:
		fsys = f.Execution
	case location.DomainLocal:
		fsys = f.Local
	}
	if fsys == nil {
		return nil, errors.Errorf("no filesystem for %s domain", d)
	}
	return fsys, nil
}

// Resolve returns the filesystem and the path within it for loc.
func (f FileSystems) Resolve(loc location.Location) (afero.Fs, string, error) {
	d, err := location.DomainOf(loc)
	if err != nil {
		return nil, "", err
	}
	fsys, err := f.For(d)
	if err != nil {
		return nil, "", err
	}
	p, _ := location.PathOf(loc)
	if d == location.DomainExecution {
		p = filepath.FromSlash(p)
	}
	return fsys, p, nil
}

// 🏗️ AferoHost implements Host over a pair of afero filesystems
type AferoHost struct {
	fss        FileSystems
	mirrorRoot string
}

var _ Host = (*AferoHost)(nil)

// Option configures an AferoHost.
type Option func(*AferoHost)

// WithMirrorRoot sets the local directory under which execution paths are
// mirrored.
func WithMirrorRoot(root string) Option {
	return func(h *AferoHost) {
		h.mirrorRoot = root
	}
}

func New(fss FileSystems, opts ...Option) *AferoHost {
	h := &AferoHost{fss: fss}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *AferoHost) FileSystems() FileSystems { return h.fss }

func (h *AferoHost) Fingerprint(ctx context.Context, loc location.Location) (fingerprint.Fingerprint, error) {
	fsys, p, err := h.fss.Resolve(loc)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}
	return fingerprint.Compute(ctx, fsys, p)
}

func (h *AferoHost) MatchWildcards(ctx context.Context, base location.Location, set wildcard.Set) (*wildcard.Matches, error) {
	fsys, p, err := h.fss.Resolve(base)
	if err != nil {
		return nil, err
	}
	return wildcard.Walk(ctx, fsys, p, set)
}

func (h *AferoHost) SynchronizeDirectory(ctx context.Context, root *tree.Node, target location.Location, keep *tree.KeepSet) (*status.Report, error) {
	fsys, p, err := h.fss.Resolve(target)
	if err != nil {
		return nil, err
	}
	return tree.Synchronize(ctx, fsys, p, root, keep)
}

func (h *AferoHost) OpenContent(ctx context.Context, loc location.Location) (io.ReadCloser, error) {
	fsys, p, err := h.fss.Resolve(loc)
	if err != nil {
		return nil, err
	}
	f, err := fsys.Open(p)
	if err != nil {
		return nil, errors.Errorf("opening %s: %w", loc, err)
	}
	return f, nil
}

func (h *AferoHost) MirrorPath(ctx context.Context, exec location.Execution) (location.Local, error) {
	if h.mirrorRoot == "" {
		return location.Local{}, errors.Errorf("mirroring %s: no mirror root configured", exec)
	}
	return location.NewLocal(filepath.Join(h.mirrorRoot, filepath.FromSlash(exec.Path())))
}

func (h *AferoHost) Remove(ctx context.Context, loc location.Location) (bool, error) {
	fsys, p, err := h.fss.Resolve(loc)
	if err != nil {
		return false, err
	}
	exists, err := afero.Exists(fsys, p)
	if err != nil {
		return false, errors.Errorf("checking %s: %w", loc, err)
	}
	if !exists {
		return false, nil
	}
	if err := fsys.RemoveAll(p); err != nil {
		return false, errors.Errorf("removing %s: %w", loc, err)
	}
	zerolog.Ctx(ctx).Debug().Str("location", loc.String()).Msg("removed")
	return true, nil
}
