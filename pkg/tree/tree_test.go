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

package tree_test

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/buildfs/pkg/fingerprint"
	"github.com/walteh/buildfs/pkg/status"
	"github.com/walteh/buildfs/pkg/tree"
	"gitlab.com/tozd/go/errors"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func content(s string) (fingerprint.Fingerprint, tree.Opener) {
	return fingerprint.Bytes([]byte(s)), func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(s)), nil
	}
}

func addFile(t *testing.T, root *tree.Node, rel, s string) {
	t.Helper()
	fp, open := content(s)
	_, err := root.AddFile(rel, fp, open)
	require.NoError(t, err)
}

func readFile(t *testing.T, fs afero.Fs, name string) string {
	t.Helper()
	b, err := afero.ReadFile(fs, name)
	require.NoError(t, err)
	return string(b)
}

func TestBuild(t *testing.T) {
	root := tree.NewDirectory()
	addFile(t, root, "b/c.txt", "c")
	addFile(t, root, "a.txt", "a")
	_, err := root.AddDirectory("b/empty")
	require.NoError(t, err)

	want := []string{"a.txt", "b", "b/c.txt", "b/empty"}
	if diff := cmp.Diff(want, root.Paths()); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}

	_, err = root.AddDirectory("a.txt/sub")
	assert.True(t, errors.Is(err, tree.ErrConflict), "directory under a file")

	fp, open := content("x")
	_, err = root.AddFile("b", fp, open)
	assert.True(t, errors.Is(err, tree.ErrConflict), "file over a directory")

	_, err = root.AddFile("../escape", fp, open)
	assert.True(t, errors.Is(err, tree.ErrInvalidPath))

	_, err = root.AddDirectory("/abs")
	assert.True(t, errors.Is(err, tree.ErrInvalidPath))
}

func TestKeepSet(t *testing.T) {
	k := tree.NewKeepSet("a/b/c.txt", "d")
	assert.True(t, k.Keeps("a"))
	assert.True(t, k.Keeps("a/b"))
	assert.True(t, k.Keeps("a/b/c.txt"))
	assert.True(t, k.Keeps("d"))
	assert.False(t, k.Keeps("a/x"))
	assert.Equal(t, 4, k.Len())
}

func TestSynchronizeCreatesAndIsIdempotent(t *testing.T) {
	ctx := testContext(t)
	fs := afero.NewMemMapFs()

	root := tree.NewDirectory()
	addFile(t, root, "file1.txt", "one")
	addFile(t, root, "d2/file2.txt", "two")

	report, err := tree.Synchronize(ctx, fs, "/out", root, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Written())
	assert.Equal(t, "one", readFile(t, fs, "/out/file1.txt"))
	assert.Equal(t, "two", readFile(t, fs, "/out/d2/file2.txt"))

	report, err = tree.Synchronize(ctx, fs, "/out", root, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Written(), "second run must not write")
	assert.Equal(t, 4, report.Count(status.StatusUnchanged))
}

func TestSynchronizeMergeKeepsUnrelated(t *testing.T) {
	ctx := testContext(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/extra.txt", []byte("extra"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/out/file.txt", []byte("old"), 0o644))

	root := tree.NewDirectory()
	addFile(t, root, "file.txt", "new")

	report, err := tree.Synchronize(ctx, fs, "/out", root, nil)
	require.NoError(t, err)

	c, ok := report.Get("file.txt")
	require.True(t, ok)
	assert.Equal(t, status.StatusModified, c.Status)
	assert.Equal(t, "new", readFile(t, fs, "/out/file.txt"))
	assert.Equal(t, "extra", readFile(t, fs, "/out/extra.txt"))
}

func TestSynchronizePrunes(t *testing.T) {
	ctx := testContext(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/extra.txt", []byte("extra"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/out/sub/stale.txt", []byte("stale"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/out/sub/keep.txt", []byte("keep"), 0o644))

	root := tree.NewDirectory()
	addFile(t, root, "sub/keep.txt", "keep")

	report, err := tree.Synchronize(ctx, fs, "/out", root, tree.KeepTree(root))
	require.NoError(t, err)

	exists, _ := afero.Exists(fs, "/out/extra.txt")
	assert.False(t, exists)
	exists, _ = afero.Exists(fs, "/out/sub/stale.txt")
	assert.False(t, exists)
	assert.Equal(t, "keep", readFile(t, fs, "/out/sub/keep.txt"))
	assert.Equal(t, 2, report.Count(status.StatusDeleted))
	assert.Equal(t, []string{".", "sub", "sub/keep.txt"}, report.Paths())
}

func TestSynchronizeConflicts(t *testing.T) {
	ctx := testContext(t)

	t.Run("file_over_non_empty_directory", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/out/target/inner.txt", []byte("keep me"), 0o644))

		fp, open := content("x")
		_, err := tree.Synchronize(ctx, fs, "/out/target", tree.NewFile(fp, open), nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, tree.ErrConflict))
		assert.Equal(t, "keep me", readFile(t, fs, "/out/target/inner.txt"))
	})

	t.Run("file_over_empty_directory", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("/out/target", 0o755))

		fp, open := content("x")
		_, err := tree.Synchronize(ctx, fs, "/out/target", tree.NewFile(fp, open), nil)
		require.NoError(t, err)
		assert.Equal(t, "x", readFile(t, fs, "/out/target"))
	})

	t.Run("directory_over_file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/out/d", []byte("file"), 0o644))

		root := tree.NewDirectory()
		addFile(t, root, "d/inner.txt", "x")
		_, err := tree.Synchronize(ctx, fs, "/out", root, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, tree.ErrConflict))
		assert.Equal(t, "file", readFile(t, fs, "/out/d"))
	})

	t.Run("nested_file_over_empty_directory", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("/out/sub", 0o755))

		root := tree.NewDirectory()
		addFile(t, root, "sub", "x")
		_, err := tree.Synchronize(ctx, fs, "/out", root, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, tree.ErrConflict))
		isDir, _ := afero.IsDir(fs, "/out/sub")
		assert.True(t, isDir, "the unowned directory should be left alone")
	})

	t.Run("ancestor_is_file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/a.txt", []byte("file"), 0o644))

		fp, open := content("x")
		_, err := tree.Synchronize(ctx, fs, "/a.txt/b.txt", tree.NewFile(fp, open), nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, tree.ErrConflict), "got %v", err)
		assert.Equal(t, "file", readFile(t, fs, "/a.txt"))
	})

	t.Run("distant_ancestor_is_file_on_disk", func(t *testing.T) {
		dir := t.TempDir()
		fs := afero.NewOsFs()
		require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "a.txt"), []byte("file"), 0o644))

		root := tree.NewDirectory()
		addFile(t, root, "c.txt", "x")
		_, err := tree.Synchronize(ctx, fs, filepath.Join(dir, "a.txt", "b", "c"), root, tree.KeepTree(root))
		require.Error(t, err)
		assert.True(t, errors.Is(err, tree.ErrConflict), "got %v", err)
		assert.Equal(t, "file", readFile(t, fs, filepath.Join(dir, "a.txt")))
	})
}

func TestSynchronizePruneReplacesKind(t *testing.T) {
	ctx := testContext(t)

	t.Run("file_becomes_directory", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/out/d", []byte("file"), 0o644))

		root := tree.NewDirectory()
		addFile(t, root, "d/inner.txt", "x")
		report, err := tree.Synchronize(ctx, fs, "/out", root, tree.KeepTree(root))
		require.NoError(t, err)

		assert.Equal(t, "x", readFile(t, fs, "/out/d/inner.txt"))
		assert.Equal(t, 1, report.Count(status.StatusModified))
	})

	t.Run("directory_becomes_file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/out/d/inner.txt", []byte("old"), 0o644))

		root := tree.NewDirectory()
		addFile(t, root, "d", "x")
		_, err := tree.Synchronize(ctx, fs, "/out", root, tree.KeepTree(root))
		require.NoError(t, err)

		assert.Equal(t, "x", readFile(t, fs, "/out/d"))
	})
}

func TestSynchronizeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	root := tree.NewDirectory()
	addFile(t, root, "a", "a")
	_, err := tree.Synchronize(ctx, afero.NewMemMapFs(), "/out", root, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
