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

// Package fingerprint describes the content identity of a path: absent, a
// directory, or a file with a content hash.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// 🏷️ Kind is the type part of a fingerprint
type Kind int

const (
	KindAbsent Kind = iota
	KindDirectory
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// 🔑 Fingerprint is the unit of change detection for one path
type Fingerprint struct {
	Kind    Kind      `json:"kind"`
	Hash    string    `json:"hash,omitempty"`
	Size    int64     `json:"size,omitempty"`
	ModTime time.Time `json:"mod_time,omitempty"`
}

var (
	Absent    = Fingerprint{Kind: KindAbsent}
	Directory = Fingerprint{Kind: KindDirectory}
)

// File builds a file fingerprint.
func File(hash string, size int64, modTime time.Time) Fingerprint {
	return Fingerprint{Kind: KindFile, Hash: hash, Size: size, ModTime: modTime}
}

func (f Fingerprint) IsAbsent() bool    { return f.Kind == KindAbsent }
func (f Fingerprint) IsDirectory() bool { return f.Kind == KindDirectory }
func (f Fingerprint) IsFile() bool      { return f.Kind == KindFile }

// Equal reports whether two fingerprints denote identical content. The
// modification time does not take part.
func (f Fingerprint) Equal(other Fingerprint) bool {
	if f.Kind != other.Kind {
		return false
	}
	if f.Kind != KindFile {
		return true
	}
	return f.Hash == other.Hash && f.Size == other.Size
}

func (f Fingerprint) String() string {
	if f.Kind != KindFile {
		return f.Kind.String()
	}
	short := f.Hash
	if len(short) > 12 {
		short = short[:12]
	}
	return fmt.Sprintf("file(%s, %d bytes)", short, f.Size)
}

// 🔍 Compute fingerprints name on fsys. A missing path is Absent, not an error.
func Compute(ctx context.Context, fsys afero.Fs, name string) (Fingerprint, error) {
	info, err := fsys.Stat(name)
	if err != nil {
		if os.IsNotExist(err) {
			return Absent, nil
		}
		return Fingerprint{}, errors.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		return Directory, nil
	}

	f, err := fsys.Open(name)
	if err != nil {
		return Fingerprint{}, errors.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	hash, size, err := Sum(f)
	if err != nil {
		return Fingerprint{}, errors.Errorf("hashing %s: %w", name, err)
	}
	return File(hash, size, info.ModTime()), nil
}

// Sum returns the hex sha256 of r and the number of bytes read.
func Sum(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Bytes fingerprints in-memory content.
func Bytes(content []byte) Fingerprint {
	sum := sha256.Sum256(content)
	return File(hex.EncodeToString(sum[:]), int64(len(content)), time.Time{})
}
