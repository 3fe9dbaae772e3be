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

package wildcard_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/buildfs/pkg/fingerprint"
	"github.com/walteh/buildfs/pkg/location"
	"github.com/walteh/buildfs/pkg/wildcard"
	"gitlab.com/tozd/go/errors"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		input   string
		want    wildcard.Pattern
		wantErr bool
	}{
		{input: "*.txt", want: "*.txt"},
		{input: "./a/**", want: "a/**"},
		{input: "a\\b\\*.go", want: "a/b/*.go"},
		{input: "[", wantErr: true},
		{input: "/abs/*", wantErr: true},
		{input: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := wildcard.ParsePattern(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, wildcard.ErrBadPattern))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCouldMatchBeneath(t *testing.T) {
	tests := []struct {
		pattern string
		dir     string
		want    bool
	}{
		{pattern: "*.txt", dir: "d2", want: false},
		{pattern: "**", dir: "d2", want: true},
		{pattern: "d2/*.txt", dir: "d2", want: true},
		{pattern: "d*/*.txt", dir: "d2", want: true},
		{pattern: "d2/*.txt", dir: "d3", want: false},
		{pattern: "d2/*.txt", dir: "d2/sub", want: false},
		{pattern: "a/**/z.txt", dir: "a/b/c", want: true},
		{pattern: "d2", dir: "d2", want: false},
		{pattern: "{a,b/c}/*.txt", dir: "b", want: true},
		{pattern: "{a,b/c}/*.txt", dir: "b/c", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"@"+tt.dir, func(t *testing.T) {
			assert.Equal(t, tt.want, wildcard.Pattern(tt.pattern).CouldMatchBeneath(tt.dir))
		})
	}
}

func TestSet(t *testing.T) {
	s, err := wildcard.NewSet("b/*", "a/*", "b/*")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/*", "b/*"}, s.Patterns())
	assert.False(t, s.IsAll())

	assert.True(t, wildcard.Set{}.IsEmpty())
	assert.True(t, wildcard.Set{}.OrAll().IsAll())

	_, err = wildcard.NewSet("ok", "[")
	assert.True(t, errors.Is(err, wildcard.ErrBadPattern))
}

func writeTree(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0644))
	}
}

func TestWalk(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTree(t, fs, map[string]string{
		"/src/dir/file1.txt":    "one",
		"/src/dir/d2/file2.txt": "two",
		"/src/dir/d2/skip.bin":  "bin",
	})

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{name: "top_level_only", patterns: []string{"*.txt"}, want: []string{"file1.txt"}},
		{name: "everything", patterns: []string{"**"}, want: []string{"d2", "d2/file2.txt", "d2/skip.bin", "file1.txt"}},
		{name: "empty_means_everything", want: []string{"d2", "d2/file2.txt", "d2/skip.bin", "file1.txt"}},
		{name: "nested_txt", patterns: []string{"**/*.txt"}, want: []string{"d2", "d2/file2.txt", "file1.txt"}},
		{name: "subdir_pattern", patterns: []string{"d2/*.bin"}, want: []string{"d2", "d2/skip.bin"}},
		{name: "brace_spans_directories", patterns: []string{"{d2/*.txt,*.bin}"}, want: []string{"d2", "d2/file2.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := wildcard.Walk(testContext(t), fs, "/src/dir", wildcard.MustSet(tt.patterns...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Paths())
		})
	}
}

func TestWalkFingerprints(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTree(t, fs, map[string]string{"/src/a/b.txt": "bee"})

	m, err := wildcard.Walk(testContext(t), fs, "/src", wildcard.All)
	require.NoError(t, err)

	dir, ok := m.Get("a")
	require.True(t, ok)
	assert.True(t, dir.Fingerprint.IsDirectory())

	file, ok := m.Get("a/b.txt")
	require.True(t, ok)
	assert.True(t, file.Fingerprint.Equal(fingerprint.Bytes([]byte("bee"))))

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestWalkRequiresDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTree(t, fs, map[string]string{"/src/file": "x"})

	_, err := wildcard.Walk(testContext(t), fs, "/src/file", wildcard.All)
	assert.Error(t, err)

	_, err = wildcard.Walk(testContext(t), fs, "/nope", wildcard.All)
	assert.Error(t, err)
}

func TestStrategy(t *testing.T) {
	base := location.MustParse("exec:/src")
	s := wildcard.NewStrategy(base, wildcard.Set{})
	assert.Equal(t, []string{"**"}, s.Patterns)

	set, err := s.Set()
	require.NoError(t, err)
	assert.True(t, set.IsAll())
}
