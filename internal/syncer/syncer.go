// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	custom_errors "mirror-sync/internal/errors"
	"mirror-sync/internal/model"
)

const (
	// Number of mirrors polled in parallel when no limit is configured
	defaultPollConcurrency = 4
)

// MirrorLister is the registry of local mirrors.
type MirrorLister interface {
	ListMirrors(ctx context.Context, kind string) ([]model.Mirror, error)
}

// GitRunner is everything the syncer needs from git.
type GitRunner interface {
	RemoteLister
	Fetcher
}

// Notifier receives the revisions discovered by a sync.
type Notifier interface {
	Notify(ctx context.Context, event model.ChangesetEvent) error
}

// Status describes how a sync ended when it did not fail.
type Status string

const (
	StatusSynced    Status = "synced"
	StatusNoChanges Status = "no_changes"
	StatusNotFound  Status = "not_found"
)

// Outcome is the result of one sync.
type Outcome struct {
	Status    Status
	Mirror    model.Mirror
	Remote    string
	Revisions []string
}

// Syncer orchestrates resolving, fetching and notifying.
type Syncer struct {
	registry        MirrorLister
	git             GitRunner
	resolver        *Resolver
	extractor       *Extractor
	notifier        Notifier
	logger          *slog.Logger
	locks           *mirrorLocks
	pollInterval    time.Duration
	pollConcurrency int
}

// NewSyncer creates a new Syncer instance. A zero pollInterval disables Start.
func NewSyncer(registry MirrorLister, git GitRunner, notifier Notifier, logger *slog.Logger, pollInterval time.Duration, pollConcurrency int) (*Syncer, error) {
	if registry == nil || git == nil || notifier == nil {
		return nil, errors.New("syncer needs a registry, a git runner and a notifier")
	}
	if pollConcurrency <= 0 {
		pollConcurrency = defaultPollConcurrency
	}

	return &Syncer{
		registry:        registry,
		git:             git,
		resolver:        NewResolver(git, logger),
		extractor:       NewExtractor(git, logger),
		notifier:        notifier,
		logger:          logger,
		locks:           newMirrorLocks(),
		pollInterval:    pollInterval,
		pollConcurrency: pollConcurrency,
	}, nil
}

// Sync handles one accepted webhook: it resolves id to a mirror and remote,
// fetches, and notifies once if new revisions arrived. A repository that is
// not mirrored here is reported as StatusNotFound, not as an error.
func (s *Syncer) Sync(ctx context.Context, id model.RemoteIdentity) (Outcome, error) {
	logger := s.logger.With("kind", id.Kind, "repository", id.Name)

	switch id.Kind {
	case model.KindGit:
	case model.KindMercurial:
		// TODO: pull through `hg pull` once a mercurial runner exists.
		return Outcome{}, fmt.Errorf("syncing %s repository %q: %w", id.Kind, id.Name, custom_errors.ErrNotImplemented)
	default:
		return Outcome{}, &custom_errors.UnsupportedKindError{Kind: id.Kind}
	}

	mirrors, err := s.registry.ListMirrors(ctx, id.Kind)
	if err != nil {
		return Outcome{}, fmt.Errorf("listing %s mirrors: %w", id.Kind, err)
	}

	mirror, remote, err := s.resolver.Resolve(ctx, mirrors, id)
	if errors.Is(err, custom_errors.ErrMirrorNotFound) {
		logger.Warn("Cannot find a mirror for repository", "ssh_url", id.SSHURL, "https_url", id.HTTPSURL)
		return Outcome{Status: StatusNotFound}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	return s.syncMirror(ctx, mirror, remote)
}

// syncMirror fetches remote into mirror under the mirror's lock and notifies
// at most once.
func (s *Syncer) syncMirror(ctx context.Context, mirror model.Mirror, remote string) (Outcome, error) {
	logger := s.logger.With("mirror", mirror.Name, "remote", remote)

	release, err := s.locks.acquire(ctx, mirror.Name)
	if err != nil {
		return Outcome{}, fmt.Errorf("waiting for mirror %q: %w", mirror.Name, err)
	}
	defer release()

	revisions, err := s.extractor.FetchDelta(ctx, mirror, remote)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetching %q into %q: %w", remote, mirror.Name, err)
	}

	outcome := Outcome{Status: StatusNoChanges, Mirror: mirror, Remote: remote}
	if len(revisions) == 0 {
		logger.Info("No new changesets")
		return outcome, nil
	}

	event := model.ChangesetEvent{
		ID:         uuid.NewString(),
		Kind:       model.EventRevisionsAdded,
		MirrorID:   mirror.ID,
		Repository: mirror.Name,
		Revisions:  revisions,
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		return Outcome{}, fmt.Errorf("notifying %d new changeset(s) of %q: %w", len(revisions), mirror.Name, err)
	}
	logger.Info("Added new changesets", "count", len(revisions), "event_id", event.ID)

	outcome.Status = StatusSynced
	outcome.Revisions = revisions
	return outcome, nil
}

// Start polls every git mirror at the configured interval until ctx is done.
// It catches pushes whose webhook never arrived.
func (s *Syncer) Start(ctx context.Context) {
	if s.pollInterval <= 0 {
		s.logger.Info("Periodic polling disabled")
		return
	}

	s.logger.Info("Starting poller", "interval", s.pollInterval.String(), "concurrency", s.pollConcurrency)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runSyncCycle(ctx)
		case <-ctx.Done():
			s.logger.Info("Poller shutting down", "reason", ctx.Err())
			return
		}
	}
}

// runSyncCycle fetches every remote of every git mirror, a few mirrors at a time.
func (s *Syncer) runSyncCycle(ctx context.Context) {
	s.logger.Info("Starting new poll cycle")

	mirrors, err := s.registry.ListMirrors(ctx, model.KindGit)
	if err != nil {
		s.logger.Error("Failed to list mirrors", "error", err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.pollConcurrency)

	for _, mirror := range mirrors {
		mirror := mirror
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			s.pollMirror(gctx, mirror)
			return nil
		})
	}

	_ = g.Wait()
	s.logger.Info("Poll cycle finished", "mirrors", len(mirrors))
}

func (s *Syncer) pollMirror(ctx context.Context, mirror model.Mirror) {
	remotes, err := s.git.ListRemotes(ctx, mirror)
	if err != nil {
		if !errors.Is(err, custom_errors.ErrNotGitRepository) {
			s.logger.Error("Failed to list remotes", "mirror", mirror.Name, "error", err)
		}
		return
	}

	for _, remote := range remotes {
		if _, err := s.syncMirror(ctx, mirror, remote.Name); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("Failed to poll mirror", "mirror", mirror.Name, "remote", remote.Name, "error", err)
		}
	}
}
