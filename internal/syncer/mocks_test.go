// internal/syncer/mocks_test.go
package syncer

import (
	"context"
	"log/slog"
	"os"

	"github.com/stretchr/testify/mock"

	"mirror-sync/internal/model"
)

var testLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

// MockRegistry is a mock of the MirrorLister interface.
type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) ListMirrors(ctx context.Context, kind string) ([]model.Mirror, error) {
	args := m.Called(ctx, kind)
	mirrors, _ := args.Get(0).([]model.Mirror)
	return mirrors, args.Error(1)
}

// MockGit is a mock of the GitRunner interface.
type MockGit struct {
	mock.Mock
}

func (m *MockGit) ListRemotes(ctx context.Context, mirror model.Mirror) ([]model.Remote, error) {
	args := m.Called(ctx, mirror)
	remotes, _ := args.Get(0).([]model.Remote)
	return remotes, args.Error(1)
}

func (m *MockGit) Fetch(ctx context.Context, mirror model.Mirror, remote string) ([]byte, error) {
	args := m.Called(ctx, mirror, remote)
	stderr, _ := args.Get(0).([]byte)
	return stderr, args.Error(1)
}

func (m *MockGit) RevisionsBetween(ctx context.Context, mirror model.Mirror, rangeExpr string) ([]string, error) {
	args := m.Called(ctx, mirror, rangeExpr)
	revs, _ := args.Get(0).([]string)
	return revs, args.Error(1)
}

// MockNotifier is a mock of the Notifier interface.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, event model.ChangesetEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
