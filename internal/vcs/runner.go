// internal/vcs/runner.go
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	custom_errors "mirror-sync/internal/errors"
	"mirror-sync/internal/model"
)

const (
	// DefaultTimeout bounds a single git invocation when none is configured.
	DefaultTimeout = 5 * time.Minute

	// waitDelay is how long Wait keeps draining output after the process was killed,
	// in case a grandchild (ssh, git-remote-https) still holds the pipes.
	waitDelay = 5 * time.Second
)

// localeEnv forces a single, parseable output format whatever the host locale is.
var localeEnv = []string{
	"LC_ALL=C",
	"LANG=C",
	// never block on a credential prompt
	"GIT_TERMINAL_PROMPT=0",
}

// exportedEnvVars are copied from the service environment into every git process.
// Everything else, including the host's LANG and LC_* settings, is dropped.
var exportedEnvVars = []string{
	"HOME",
	"PATH",
	"LD_LIBRARY_PATH",
	"TZ",

	"GIT_SSH",
	"GIT_SSH_COMMAND",
	"GIT_TRACE",
	"GIT_TRACE_PACKET",
	"GIT_TRACE_PERFORMANCE",

	"all_proxy",
	"http_proxy",
	"HTTP_PROXY",
	"https_proxy",
	"HTTPS_PROXY",
	"no_proxy",
	"NO_PROXY",
}

// Runner invokes the git executable against mirror directories. It exposes only
// the subcommands the sync needs.
type Runner struct {
	binary    string
	timeout   time.Duration
	waitDelay time.Duration
	logger    *slog.Logger
}

// NewRunner creates a Runner. An empty binary means "git" from PATH and a
// non-positive timeout means DefaultTimeout.
func NewRunner(binary string, timeout time.Duration, logger *slog.Logger) *Runner {
	if binary == "" {
		binary = "git"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{
		binary:    binary,
		timeout:   timeout,
		waitDelay: waitDelay,
		logger:    logger,
	}
}

// Fetch runs a verbose fetch of remote inside mirror and returns the captured
// stderr, which is where git reports ref updates. On a non-zero exit the
// stderr is returned together with a *errors.CommandError.
func (r *Runner) Fetch(ctx context.Context, mirror model.Mirror, remote string) ([]byte, error) {
	if remote == "" || strings.HasPrefix(remote, "-") {
		return nil, fmt.Errorf("invalid remote name %q", remote)
	}
	_, stderr, err := r.run(ctx, mirror, "fetch", "--verbose", remote)
	return stderr, err
}

// ListRemotes returns the remotes configured in mirror, one entry per remote
// name in the order git lists them. The fetch URL wins over the push URL.
func (r *Runner) ListRemotes(ctx context.Context, mirror model.Mirror) ([]model.Remote, error) {
	stdout, _, err := r.run(ctx, mirror, "remote", "--verbose")
	if err != nil {
		var cmdErr *custom_errors.CommandError
		if errors.As(err, &cmdErr) && strings.Contains(cmdErr.Stderr, "not a git repository") {
			return nil, fmt.Errorf("%s: %w", mirror.Path, custom_errors.ErrNotGitRepository)
		}
		return nil, err
	}
	return parseRemotes(stdout), nil
}

// RevisionsBetween lists the revisions in rangeExpr (e.g. "a1b2..c3d4"),
// oldest first.
func (r *Runner) RevisionsBetween(ctx context.Context, mirror model.Mirror, rangeExpr string) ([]string, error) {
	if rangeExpr == "" || strings.HasPrefix(rangeExpr, "-") {
		return nil, fmt.Errorf("%w: %q", custom_errors.ErrInvalidRange, rangeExpr)
	}
	stdout, _, err := r.run(ctx, mirror, "rev-list", "--reverse", rangeExpr)
	if err != nil {
		return nil, err
	}
	return splitLines(stdout), nil
}

// run executes one git subcommand against mirror and captures both output streams.
func (r *Runner) run(ctx context.Context, mirror model.Mirror, subcommand string, args ...string) ([]byte, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	argv := append(repositoryArgs(mirror), subcommand)
	argv = append(argv, args...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary, argv...)
	cmd.Env = environment()
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = r.waitDelay

	r.logger.Debug("Running git command", "binary", r.binary, "args", argv)

	if err := cmd.Start(); err != nil {
		return nil, nil, &custom_errors.SpawnError{Binary: r.binary, Err: err}
	}

	err := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("%w: git %s in %s", custom_errors.ErrCommandTimeout, subcommand, mirror.Path)
		}
		return stdout.Bytes(), stderr.Bytes(), ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), stderr.Bytes(), &custom_errors.CommandError{
				Args:     append([]string{subcommand}, args...),
				ExitCode: exitErr.ExitCode(),
				Stderr:   stderr.String(),
			}
		}
		return stdout.Bytes(), stderr.Bytes(), err
	}

	return stdout.Bytes(), stderr.Bytes(), nil
}

// repositoryArgs points git at the mirror. Bare mirrors are their own git
// directory; other mirrors use <path>/.git with <path> as the work tree.
func repositoryArgs(mirror model.Mirror) []string {
	if mirror.Bare {
		return []string{"--git-dir", mirror.Path}
	}
	return []string{"--git-dir", filepath.Join(mirror.Path, ".git"), "--work-tree", mirror.Path}
}

func environment() []string {
	env := make([]string, 0, len(localeEnv)+len(exportedEnvVars))
	env = append(env, localeEnv...)
	for _, key := range exportedEnvVars {
		if value, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+value)
		}
	}
	return env
}

// parseRemotes parses `git remote --verbose` output:
//
//	origin	git@bitbucket.org:org/repo.git (fetch)
//	origin	git@bitbucket.org:org/repo.git (push)
func parseRemotes(out []byte) []model.Remote {
	var remotes []model.Remote
	index := make(map[string]int)

	for _, line := range splitLines(out) {
		name, rest, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if name == "" || len(fields) == 0 {
			continue
		}
		url := fields[0]
		isFetch := len(fields) > 1 && fields[len(fields)-1] == "(fetch)"

		if i, seen := index[name]; seen {
			if isFetch {
				remotes[i].URL = url
			}
			continue
		}
		index[name] = len(remotes)
		remotes = append(remotes, model.Remote{Name: name, URL: url})
	}
	return remotes
}

func splitLines(out []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
