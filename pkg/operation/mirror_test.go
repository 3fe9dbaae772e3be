package operation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/buildfs/pkg/deps"
	"github.com/walteh/buildfs/pkg/host"
	"github.com/walteh/buildfs/pkg/location"
	"gitlab.com/tozd/go/errors"
)

func TestMirrorLocalIsIdentity(t *testing.T) {
	h := new(MockHost)
	reporter := new(MockReporter)
	eng, err := New(Options{Host: h, Deps: reporter})
	require.NoError(t, err)

	for _, p := range []string{"/", "/work/file.txt", "/does/not/exist"} {
		got, err := eng.Mirror(newTestEnv(t).ctx, localLoc(t, p))
		require.NoError(t, err)
		assert.Equal(t, p, got, "local location should mirror to itself")
	}

	// no expectations were set, so any call would have failed the mock
	h.AssertExpectations(t)
	reporter.AssertExpectations(t)
	assert.Empty(t, h.Calls, "mirroring a local location should not touch the host")
	assert.Empty(t, reporter.Calls, "mirroring a local location should not report dependencies")
}

func TestMirrorExecutionFile(t *testing.T) {
	env := newTestEnv(t)
	src := execLoc(t, "/build/tool.sh")
	env.write(t, src, "#!/bin/sh")

	got, err := env.engine.Mirror(env.ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "/mirror/build/tool.sh", got)
	assert.Equal(t, "#!/bin/sh", env.read(t, localLoc(t, got)))

	sources := deps.Tagged(env.deps.Inputs(), deps.TagMirrorSource)
	require.Len(t, sources, 1)
	assert.True(t, location.Equal(src, sources[0].Location))

	mirrors := deps.Tagged(env.deps.Inputs(), deps.TagMirrorLocal)
	require.Len(t, mirrors, 1)
	assert.Equal(t, "local:/mirror/build/tool.sh", mirrors[0].Location.String(), "mirror dependency should be keyed on the local path")
	assert.True(t, mirrors[0].Fingerprint.Equal(sources[0].Fingerprint))
}

func TestMirrorExecutionDirectory(t *testing.T) {
	env := newTestEnv(t)
	src := execLoc(t, "/build/out")
	env.write(t, join(t, src, "a.txt"), "a")
	env.write(t, join(t, src, "sub/b.txt"), "b")
	env.write(t, localLoc(t, "/mirror/build/out/stale.txt"), "stale")

	got, err := env.engine.Mirror(env.ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "/mirror/build/out", got)

	assert.Equal(t, "a", env.read(t, localLoc(t, "/mirror/build/out/a.txt")))
	assert.Equal(t, "b", env.read(t, localLoc(t, "/mirror/build/out/sub/b.txt")))
	assert.False(t, env.exists(t, localLoc(t, "/mirror/build/out/stale.txt")), "mirror should match the subtree exactly")

	additions := env.deps.Additions()
	require.Len(t, additions, 1)
	assert.Equal(t, deps.TagMirrorSource, additions[0].Tag)
	assert.Equal(t, []string{"a.txt", "sub", "sub/b.txt"}, additions[0].Matched)

	assert.Len(t, deps.Tagged(env.deps.Inputs(), deps.TagMirrorSource), 4, "root and every entry")
	assert.Len(t, deps.Tagged(env.deps.Inputs(), deps.TagMirrorLocal), 4, "root and every entry")

	t.Run("rerun_writes_nothing", func(t *testing.T) {
		// a second mirror of the same content sees every file unchanged
		fsys, _, err := env.fss.Resolve(localLoc(t, "/mirror"))
		require.NoError(t, err)
		before, err := fsys.Stat("/mirror/build/out/a.txt")
		require.NoError(t, err)

		_, err = env.engine.Mirror(env.ctx, src)
		require.NoError(t, err)

		after, err := fsys.Stat("/mirror/build/out/a.txt")
		require.NoError(t, err)
		assert.Equal(t, before.ModTime(), after.ModTime())
	})

	t.Run("out_of_band_delete_is_repaired", func(t *testing.T) {
		fsys, _, err := env.fss.Resolve(localLoc(t, "/mirror"))
		require.NoError(t, err)
		require.NoError(t, fsys.Remove("/mirror/build/out/sub/b.txt"))

		_, err = env.engine.Mirror(env.ctx, src)
		require.NoError(t, err)
		assert.Equal(t, "b", env.read(t, localLoc(t, "/mirror/build/out/sub/b.txt")))
	})
}

func TestMirrorErrors(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.engine.Mirror(env.ctx, execLoc(t, "/nope"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	})

	t.Run("collection", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.engine.Mirror(env.ctx, location.NewCollection(execLoc(t, "/a")))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidArgument), "got %v", err)
	})

	t.Run("no_mirror_root", func(t *testing.T) {
		fss := host.NewMemFileSystems()
		eng, err := New(Options{Host: host.New(fss)})
		require.NoError(t, err)
		env := &testEnv{ctx: newTestEnv(t).ctx, fss: fss}
		env.write(t, execLoc(t, "/a.txt"), "a")

		_, err = eng.Mirror(env.ctx, execLoc(t, "/a.txt"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no mirror root")
	})
}

func TestMirrorFollowsKindChanges(t *testing.T) {
	t.Run("file_becomes_directory", func(t *testing.T) {
		env := newTestEnv(t)
		src := execLoc(t, "/x")
		env.write(t, src, "file first")

		_, err := env.engine.Mirror(env.ctx, src)
		require.NoError(t, err)
		require.False(t, env.isDir(t, localLoc(t, "/mirror/x")))

		fsys, _, err := env.fss.Resolve(src)
		require.NoError(t, err)
		require.NoError(t, fsys.Remove("/x"))
		env.write(t, execLoc(t, "/x/inner.txt"), "inner")

		got, err := env.engine.Mirror(env.ctx, src)
		require.NoError(t, err, "a changed kind should be rematerialized")
		assert.Equal(t, "/mirror/x", got)
		assert.Equal(t, "inner", env.read(t, localLoc(t, "/mirror/x/inner.txt")))
	})

	t.Run("directory_becomes_file", func(t *testing.T) {
		env := newTestEnv(t)
		src := execLoc(t, "/a")
		env.write(t, src, "file now")
		env.write(t, localLoc(t, "/mirror/a/old.txt"), "was a directory")

		_, err := env.engine.Mirror(env.ctx, src)
		require.NoError(t, err)
		assert.Equal(t, "file now", env.read(t, localLoc(t, "/mirror/a")))
	})

	t.Run("nested_entry_changes_kind", func(t *testing.T) {
		env := newTestEnv(t)
		src := execLoc(t, "/tree")
		env.write(t, execLoc(t, "/tree/node"), "leaf")

		_, err := env.engine.Mirror(env.ctx, src)
		require.NoError(t, err)

		fsys, _, err := env.fss.Resolve(src)
		require.NoError(t, err)
		require.NoError(t, fsys.Remove("/tree/node"))
		env.write(t, execLoc(t, "/tree/node/child.txt"), "child")

		_, err = env.engine.Mirror(env.ctx, src)
		require.NoError(t, err)
		assert.Equal(t, "child", env.read(t, localLoc(t, "/mirror/tree/node/child.txt")))
	})
}
