// internal/syncer/delta.go
package syncer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"

	custom_errors "mirror-sync/internal/errors"
	"mirror-sync/internal/model"
)

// upToDateMarker starts every fetch status line for a ref that did not move:
//
//	= [up to date]      master     -> master
const upToDateMarker = " = "

var errEmptyFetchOutput = errors.New("fetch produced no diagnostic output")

// RevisionLister lists the revisions of a range expression, oldest first.
type RevisionLister func(rangeExpr string) ([]string, error)

// ParseFetchDelta turns the stderr of `git fetch --verbose` into the ordered,
// deduplicated list of revisions it brought in. The first line is the
// "From <source>" header and is discarded. Only lines whose first token is a
// hash range ("a1b2..c3d4", a fast-forward) contribute; new branches, forced
// updates, tags and rejected refs are not interpreted.
//
// A revision reachable from several updated refs appears once, at the
// position where it was first seen.
func ParseFetchDelta(stderr []byte, list RevisionLister) ([]string, error) {
	if len(bytes.TrimSpace(stderr)) == 0 {
		return nil, errEmptyFetchOutput
	}
	lines := strings.Split(string(stderr), "\n")[1:]

	var delta []string
	seen := make(map[string]struct{})

	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, upToDateMarker) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		hashRange := fields[0]
		if !strings.Contains(hashRange, "..") {
			continue
		}

		revisions, err := list(hashRange)
		if err != nil {
			return delta, err
		}
		for _, rev := range revisions {
			if _, ok := seen[rev]; ok {
				continue
			}
			seen[rev] = struct{}{}
			delta = append(delta, rev)
		}
	}

	return delta, nil
}

// Fetcher is the part of the git runner the extractor needs.
type Fetcher interface {
	Fetch(ctx context.Context, mirror model.Mirror, remote string) ([]byte, error)
	RevisionsBetween(ctx context.Context, mirror model.Mirror, rangeExpr string) ([]string, error)
}

// Extractor fetches a remote into a mirror and computes the fetch delta.
type Extractor struct {
	git    Fetcher
	logger *slog.Logger
}

// NewExtractor creates a new Extractor.
func NewExtractor(git Fetcher, logger *slog.Logger) *Extractor {
	return &Extractor{git: git, logger: logger}
}

// FetchDelta fetches remote inside mirror and returns the revisions that
// arrived, oldest first. Output that cannot be parsed yields an empty delta
// and no error; only spawn failures, timeouts and cancellation are returned.
func (e *Extractor) FetchDelta(ctx context.Context, mirror model.Mirror, remote string) ([]string, error) {
	logger := e.logger.With("mirror", mirror.Name, "remote", remote)
	logger.Debug("Executing a fetch", "path", mirror.Path)

	stderr, err := e.git.Fetch(ctx, mirror, remote)
	if err != nil {
		var cmdErr *custom_errors.CommandError
		if !errors.As(err, &cmdErr) {
			return nil, err
		}
		// Some refs may have been updated before the failure; parse what git reported.
		logger.Warn("Fetch exited with an error", "error", err)
	}

	delta, err := ParseFetchDelta(stderr, func(rangeExpr string) ([]string, error) {
		revisions, err := e.git.RevisionsBetween(ctx, mirror, rangeExpr)
		if err != nil && !custom_errors.IsFatal(err) && ctx.Err() == nil {
			logger.Warn("Skipping revision range", "range", rangeExpr, "error", err)
			return nil, nil
		}
		return revisions, err
	})
	if errors.Is(err, errEmptyFetchOutput) {
		logger.Error("Unparsable fetch output, assuming nothing was fetched", "stderr", string(stderr))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return delta, nil
}
