package operation

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/buildfs/pkg/deps"
	"github.com/walteh/buildfs/pkg/fingerprint"
	"github.com/walteh/buildfs/pkg/host"
	"github.com/walteh/buildfs/pkg/location"
	"github.com/walteh/buildfs/pkg/status"
	"github.com/walteh/buildfs/pkg/tree"
	"github.com/walteh/buildfs/pkg/wildcard"
	"gitlab.com/tozd/go/errors"
)

// 🔧 MockHost is a mock implementation of the host.Host interface
type MockHost struct {
	mock.Mock
}

var _ host.Host = (*MockHost)(nil)

func (m *MockHost) Fingerprint(ctx context.Context, loc location.Location) (fingerprint.Fingerprint, error) {
	result := m.Called(ctx, loc)
	return result.Get(0).(fingerprint.Fingerprint), result.Error(1)
}

func (m *MockHost) MatchWildcards(ctx context.Context, base location.Location, set wildcard.Set) (*wildcard.Matches, error) {
	result := m.Called(ctx, base, set)
	return result.Get(0).(*wildcard.Matches), result.Error(1)
}

func (m *MockHost) SynchronizeDirectory(ctx context.Context, root *tree.Node, target location.Location, keep *tree.KeepSet) (*status.Report, error) {
	result := m.Called(ctx, root, target, keep)
	return result.Get(0).(*status.Report), result.Error(1)
}

func (m *MockHost) OpenContent(ctx context.Context, loc location.Location) (io.ReadCloser, error) {
	result := m.Called(ctx, loc)
	return result.Get(0).(io.ReadCloser), result.Error(1)
}

func (m *MockHost) MirrorPath(ctx context.Context, exec location.Execution) (location.Local, error) {
	result := m.Called(ctx, exec)
	return result.Get(0).(location.Local), result.Error(1)
}

func (m *MockHost) Remove(ctx context.Context, loc location.Location) (bool, error) {
	result := m.Called(ctx, loc)
	return result.Bool(0), result.Error(1)
}

// 🔧 MockReporter is a mock implementation of the deps.Reporter interface
type MockReporter struct {
	mock.Mock
}

var _ deps.Reporter = (*MockReporter)(nil)

func (m *MockReporter) ReportInputDependency(tag deps.Tag, loc location.Location, fp fingerprint.Fingerprint) {
	m.Called(tag, loc, fp)
}

func (m *MockReporter) ReportOutputDependency(tag deps.Tag, loc location.Location, fp fingerprint.Fingerprint) {
	m.Called(tag, loc, fp)
}

func (m *MockReporter) ReportAdditionDependency(tag deps.Tag, strategy wildcard.Strategy, matched []string) {
	m.Called(tag, strategy, matched)
}

type testEnv struct {
	ctx    context.Context
	fss    host.FileSystems
	host   *host.AferoHost
	deps   *deps.Recorder
	engine *Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	fss := host.NewMemFileSystems()
	h := host.New(fss, host.WithMirrorRoot("/mirror"))
	rec := deps.NewRecorder()
	eng, err := New(Options{Host: h, Deps: rec})
	require.NoError(t, err, "creating engine should succeed")
	return &testEnv{
		ctx:    logger.WithContext(context.Background()),
		fss:    fss,
		host:   h,
		deps:   rec,
		engine: eng,
	}
}

// write creates a file at loc with content, including parent directories.
func (env *testEnv) write(t *testing.T, loc location.Location, content string) {
	t.Helper()
	fsys, p, err := env.fss.Resolve(loc)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fsys, p, []byte(content), 0o644))
}

func (env *testEnv) mkdir(t *testing.T, loc location.Location) {
	t.Helper()
	fsys, p, err := env.fss.Resolve(loc)
	require.NoError(t, err)
	require.NoError(t, fsys.MkdirAll(p, 0o755))
}

func (env *testEnv) read(t *testing.T, loc location.Location) string {
	t.Helper()
	fsys, p, err := env.fss.Resolve(loc)
	require.NoError(t, err)
	b, err := afero.ReadFile(fsys, p)
	require.NoError(t, err, "reading %s", loc)
	return string(b)
}

func (env *testEnv) exists(t *testing.T, loc location.Location) bool {
	t.Helper()
	fsys, p, err := env.fss.Resolve(loc)
	require.NoError(t, err)
	ok, err := afero.Exists(fsys, p)
	require.NoError(t, err)
	return ok
}

func (env *testEnv) isDir(t *testing.T, loc location.Location) bool {
	t.Helper()
	fsys, p, err := env.fss.Resolve(loc)
	require.NoError(t, err)
	ok, err := afero.IsDir(fsys, p)
	require.NoError(t, err)
	return ok
}

func execLoc(t *testing.T, p string) location.Execution {
	t.Helper()
	loc, err := location.NewExecution(p)
	require.NoError(t, err)
	return loc
}

func localLoc(t *testing.T, p string) location.Local {
	t.Helper()
	loc, err := location.NewLocal(p)
	require.NoError(t, err)
	return loc
}

func join(t *testing.T, base location.Location, rel string) location.Location {
	t.Helper()
	loc, err := location.Join(base, rel)
	require.NoError(t, err)
	return loc
}

func TestNew(t *testing.T) {
	t.Run("host_required", func(t *testing.T) {
		_, err := New(Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidArgument), "missing host should be invalid argument")
	})

	t.Run("nil_deps_discards", func(t *testing.T) {
		eng, err := New(Options{Host: new(MockHost)})
		require.NoError(t, err)
		assert.Equal(t, deps.Discard, eng.deps)
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "tree_conflict",
			err:  errors.Errorf("sync: %w", tree.ErrConflict),
			want: ErrConflict,
		},
		{
			name: "tree_invalid_path",
			err:  errors.Errorf("add: %w", tree.ErrInvalidPath),
			want: ErrInvalidArgument,
		},
		{
			name: "not_absolute",
			err:  errors.Errorf("new: %w", location.ErrNotAbsolute),
			want: ErrInvalidArgument,
		},
		{
			name: "bad_pattern",
			err:  errors.Errorf("parse: %w", wildcard.ErrBadPattern),
			want: ErrInvalidArgument,
		},
		{
			name: "already_classified",
			err:  errors.Errorf("copy: %w", ErrNotFound),
			want: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.True(t, errors.Is(got, tt.want), "classified error should match taxonomy")
			assert.Equal(t, tt.err.Error(), got.Error(), "message should be preserved")
		})
	}

	t.Run("unknown_passes_through", func(t *testing.T) {
		base := errors.New("disk on fire")
		assert.Equal(t, base, classify(base))
	})

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, classify(nil))
	})
}
