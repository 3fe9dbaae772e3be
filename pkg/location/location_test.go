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

package location_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/buildfs/pkg/location"
	"gitlab.com/tozd/go/errors"
)

func TestNewExecution(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "absolute", input: "/wd/file.txt", want: "/wd/file.txt"},
		{name: "cleaned", input: "/wd/./a/../file.txt", want: "/wd/file.txt"},
		{name: "backslashes", input: "\\wd\\sub\\f", want: "/wd/sub/f"},
		{name: "root", input: "/", want: "/"},
		{name: "relative", input: "wd/file.txt", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := location.NewExecution(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, location.ErrNotAbsolute), "error should be ErrNotAbsolute")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Path())
		})
	}
}

func TestNewLocal(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "x", "..", "file.txt")
	got, err := location.NewLocal(abs)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(abs), got.Path())

	_, err = location.NewLocal("relative/file.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, location.ErrNotAbsolute))
}

func TestMatchIsExhaustive(t *testing.T) {
	exec := location.MustParse("exec:/a/b")
	local := location.MustParse("local:/c/d")

	kind := func(loc location.Location) (string, error) {
		return location.Match(loc,
			func(e location.Execution) (string, error) { return "exec " + e.Path(), nil },
			func(l location.Local) (string, error) { return "local " + l.Path(), nil },
		)
	}

	got, err := kind(exec)
	require.NoError(t, err)
	assert.Equal(t, "exec /a/b", got)

	got, err = kind(local)
	require.NoError(t, err)
	assert.Equal(t, "local /c/d", got)

	_, err = kind(location.NewCollection(exec, local))
	require.Error(t, err)
	assert.True(t, errors.Is(err, location.ErrNotSingle))

	_, err = kind(nil)
	assert.True(t, errors.Is(err, location.ErrNotSingle))
}

func TestMatchPropagatesCallbackError(t *testing.T) {
	boom := errors.New("boom")
	_, err := location.Match(location.MustParse("exec:/x"),
		func(location.Execution) (int, error) { return 0, boom },
		func(location.Local) (int, error) { return 1, nil },
	)
	assert.ErrorIs(t, err, boom)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		loc    location.Location
		want   string
		wantOK bool
	}{
		{loc: location.MustParse("exec:/wd/file.txt"), want: "file.txt", wantOK: true},
		{loc: location.MustParse("exec:/"), wantOK: false},
		{loc: location.MustParse("local:/tmp/dir"), want: "dir", wantOK: true},
		{loc: location.MustParse("local:/"), wantOK: false},
		{loc: location.NewCollection(), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.loc.String(), func(t *testing.T) {
			got, ok := location.FileName(tt.loc)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJoinParentRel(t *testing.T) {
	base := location.MustParse("exec:/wd/out")

	joined, err := location.Join(base, "a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "exec:/wd/out/a/b.txt", joined.String())

	parent, ok := location.Parent(joined)
	require.True(t, ok)
	assert.Equal(t, "exec:/wd/out/a", parent.String())

	_, ok = location.Parent(location.MustParse("exec:/"))
	assert.False(t, ok)

	rel, err := location.Rel(base, joined)
	require.NoError(t, err)
	assert.Equal(t, "a/b.txt", rel)

	rel, err = location.Rel(base, base)
	require.NoError(t, err)
	assert.Equal(t, ".", rel)

	_, err = location.Rel(base, location.MustParse("exec:/wd/outside"))
	assert.Error(t, err)

	_, err = location.Rel(base, location.MustParse("local:/wd/out/a"))
	assert.Error(t, err)

	_, err = location.Join(base, "/abs")
	assert.Error(t, err)
}

func TestIsNested(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{name: "same", a: "exec:/a", b: "exec:/a", want: true},
		{name: "child", a: "exec:/a", b: "exec:/a/b", want: true},
		{name: "parent", a: "exec:/a/b/c", b: "exec:/a", want: true},
		{name: "sibling_prefix", a: "exec:/a", b: "exec:/ab", want: false},
		{name: "root", a: "exec:/", b: "exec:/x", want: true},
		{name: "cross_domain", a: "exec:/a", b: "local:/a/b", want: false},
		{name: "local_child", a: "local:/a", b: "local:/a/b", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, location.IsNested(location.MustParse(tt.a), location.MustParse(tt.b)))
		})
	}
}

func TestCollection(t *testing.T) {
	a := location.MustParse("exec:/a")
	b := location.MustParse("local:/b")

	c := location.NewCollection(a)
	c2 := c.Add(b).Add(a)

	assert.Equal(t, 1, c.Len(), "Add must not mutate the receiver")
	assert.Equal(t, 3, c2.Len())
	assert.True(t, c2.Contains(b))
	assert.False(t, c.Contains(b))

	u := c2.Unique()
	assert.Equal(t, []location.Location{a, b}, u.All())
	assert.Equal(t, "[exec:/a, local:/b]", u.String())

	assert.True(t, location.Equal(location.NewCollection(a, b), u))
	assert.False(t, location.Equal(location.NewCollection(b, a), u))
	assert.False(t, location.Equal(a, u))
}

func TestParse(t *testing.T) {
	loc, err := location.Parse("exec:/x/y")
	require.NoError(t, err)
	assert.Equal(t, location.DomainExecution, mustDomain(t, loc))

	loc, err = location.Parse("local:/x/y")
	require.NoError(t, err)
	assert.Equal(t, location.DomainLocal, mustDomain(t, loc))

	_, err = location.Parse("/x/y")
	assert.Error(t, err)

	_, err = location.Parse("exec:x/y")
	assert.True(t, errors.Is(err, location.ErrNotAbsolute))
}

func mustDomain(t *testing.T, loc location.Location) location.Domain {
	t.Helper()
	d, err := location.DomainOf(loc)
	require.NoError(t, err)
	return d
}
