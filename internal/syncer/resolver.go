// internal/syncer/resolver.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	custom_errors "mirror-sync/internal/errors"
	"mirror-sync/internal/model"
)

// RemoteLister enumerates the configured remotes of a mirror.
type RemoteLister interface {
	ListRemotes(ctx context.Context, mirror model.Mirror) ([]model.Remote, error)
}

// Resolver finds the mirror, and the remote inside it, that a webhook refers to.
type Resolver struct {
	remotes RemoteLister
	logger  *slog.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(remotes RemoteLister, logger *slog.Logger) *Resolver {
	return &Resolver{remotes: remotes, logger: logger}
}

// Resolve walks mirrors in the given order and returns the first one with a
// remote matching id, along with that remote's name. It returns
// errors.ErrMirrorNotFound when nothing matches.
//
// Mirrors without git metadata are skipped. Other enumeration failures skip
// the mirror too, except spawn failures and timeouts, which abort.
func (r *Resolver) Resolve(ctx context.Context, mirrors []model.Mirror, id model.RemoteIdentity) (model.Mirror, string, error) {
	for _, mirror := range mirrors {
		remotes, err := r.remotes.ListRemotes(ctx, mirror)
		if err != nil {
			switch {
			case errors.Is(err, custom_errors.ErrNotGitRepository):
				r.logger.Debug("Skipping mirror since it is not a git repository", "mirror", mirror.Name)
				continue
			case custom_errors.IsFatal(err), ctx.Err() != nil:
				return model.Mirror{}, "", fmt.Errorf("listing remotes of %q: %w", mirror.Name, err)
			default:
				r.logger.Warn("Skipping mirror, cannot list its remotes", "mirror", mirror.Name, "error", err)
				continue
			}
		}

		for _, remote := range remotes {
			if MatchRemote(remote.URL, id) {
				return mirror, remote.Name, nil
			}
		}
	}

	return model.Mirror{}, "", custom_errors.ErrMirrorNotFound
}

// MatchRemote reports whether a configured remote URL refers to id. The rules,
// in order: exact ssh URL, exact https URL, then any https URL ending with the
// part of id's https URL after the scheme, which tolerates embedded
// credentials such as https://user@bitbucket.org/org/repo.git.
//
// The last rule compares suffixes only, so https://evil.example/bitbucket.org/org/repo.git
// matches https://bitbucket.org/org/repo.git as well.
func MatchRemote(url string, id model.RemoteIdentity) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		return false
	}
	if id.SSHURL != "" && url == id.SSHURL {
		return true
	}
	if id.HTTPSURL != "" && url == id.HTTPSURL {
		return true
	}
	tail := schemeTail(id.HTTPSURL)
	return tail != "" && strings.HasPrefix(url, "https://") && strings.HasSuffix(url, tail)
}

// schemeTail returns everything after "://", or "" when u has no scheme.
func schemeTail(u string) string {
	_, tail, ok := strings.Cut(u, "://")
	if !ok {
		return ""
	}
	return tail
}
