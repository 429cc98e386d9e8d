// internal/syncer/git_test.go
package syncer

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mirror-sync/internal/model"
	"mirror-sync/internal/vcs"
)

// gitIn runs git in dir with a fixed identity and returns trimmed stdout.
func gitIn(t *testing.T, dir string, args ...string) string {
	t.Helper()
	argv := append([]string{
		"-C", dir,
		"-c", "user.name=Mirror Test",
		"-c", "user.email=mirror@example.com",
		"-c", "commit.gpgsign=false",
	}, args...)
	out, err := exec.Command("git", argv...).CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
	return strings.TrimSpace(string(out))
}

func commit(t *testing.T, dir, message string) string {
	t.Helper()
	gitIn(t, dir, "commit", "--allow-empty", "--quiet", "-m", message)
	return gitIn(t, dir, "rev-parse", "HEAD")
}

func TestSync_AgainstRealGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	ctx := context.Background()

	upstream := t.TempDir()
	gitIn(t, upstream, "init", "--quiet")
	commit(t, upstream, "initial")

	mirrorPath := filepath.Join(t.TempDir(), "repo.git")
	gitIn(t, upstream, "clone", "--quiet", "--mirror", upstream, mirrorPath)

	second := commit(t, upstream, "second")
	third := commit(t, upstream, "third")

	runner := vcs.NewRunner("git", time.Minute, testLogger)
	bare, err := vcs.IsBare(mirrorPath)
	require.NoError(t, err)
	mirror := model.Mirror{ID: 1, Name: "repo", Kind: model.KindGit, Path: mirrorPath, Bare: bare}

	registry := new(MockRegistry)
	registry.On("ListMirrors", ctx, model.KindGit).Return([]model.Mirror{mirror}, nil)
	notifier := new(MockNotifier)
	var notified []string
	notifier.On("Notify", ctx, mock.Anything).Run(func(args mock.Arguments) {
		notified = args.Get(1).(model.ChangesetEvent).Revisions
	}).Return(nil).Once()

	s, err := NewSyncer(registry, runner, notifier, testLogger, 0, 0)
	require.NoError(t, err)
	id := model.RemoteIdentity{Name: "repo", Kind: model.KindGit, SSHURL: upstream}

	outcome, err := s.Sync(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusSynced, outcome.Status)
	assert.Equal(t, []string{second, third}, notified)

	// Nothing new the second time round.
	outcome, err = s.Sync(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusNoChanges, outcome.Status)
	notifier.AssertNumberOfCalls(t, "Notify", 1)
}
