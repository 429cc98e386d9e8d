// internal/registry/registry.go
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"mirror-sync/internal/database"
	custom_errors "mirror-sync/internal/errors"
	"mirror-sync/internal/model"
	"mirror-sync/internal/vcs"
)

// Store is the subset of database.Querier the registry needs.
type Store interface {
	ListMirrorsByKind(ctx context.Context, kind string) ([]database.Mirror, error)
	UpsertMirror(ctx context.Context, arg database.UpsertMirrorParams) (database.Mirror, error)
}

// Registry lists the local mirrors known to the service.
type Registry struct {
	store   Store
	inspect func(path string) (bool, error)
	logger  *slog.Logger
}

// New creates a Registry backed by store.
func New(store Store, logger *slog.Logger) *Registry {
	return &Registry{
		store:   store,
		inspect: vcs.IsBare,
		logger:  logger,
	}
}

// ListMirrors returns the mirrors of the given kind in registration order.
// Bare is derived from the on-disk layout; mirrors that cannot be inspected
// are still returned so callers can report them.
func (r *Registry) ListMirrors(ctx context.Context, kind string) ([]model.Mirror, error) {
	rows, err := r.store.ListMirrorsByKind(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s mirrors: %w", kind, err)
	}

	mirrors := make([]model.Mirror, 0, len(rows))
	for _, row := range rows {
		m := toModel(row)
		if kind == model.KindGit {
			bare, err := r.inspect(m.Path)
			switch {
			case errors.Is(err, custom_errors.ErrNotGitRepository):
				r.logger.Debug("Mirror location holds no git metadata", "mirror", m.Name, "path", m.Path)
			case err != nil:
				r.logger.Warn("Failed to inspect mirror", "mirror", m.Name, "path", m.Path, "error", err)
			default:
				m.Bare = bare
			}
		}
		mirrors = append(mirrors, m)
	}
	return mirrors, nil
}

// Seed registers the configured mirrors, given as 'name=path' entries.
// Existing mirrors with the same name are updated in place.
func (r *Registry) Seed(ctx context.Context, entries []string) error {
	params, err := parseMirrorEntries(entries)
	if err != nil {
		return err
	}
	for _, p := range params {
		m, err := r.store.UpsertMirror(ctx, p)
		if err != nil {
			return fmt.Errorf("failed to register mirror %s: %w", p.Name, err)
		}
		r.logger.Info("Registered mirror", "mirror", m.Name, "path", m.Path, "id", m.ID)
	}
	return nil
}

func parseMirrorEntries(entries []string) ([]database.UpsertMirrorParams, error) {
	var params []database.UpsertMirrorParams
	for _, e := range entries {
		name, path, ok := strings.Cut(strings.TrimSpace(e), "=")
		name = strings.TrimSpace(name)
		path = strings.TrimSpace(path)
		if !ok || name == "" || path == "" {
			return nil, &custom_errors.ErrInvalidMirrorFormat{Entry: e}
		}
		params = append(params, database.UpsertMirrorParams{
			Name: name,
			Kind: model.KindGit,
			Path: filepath.Clean(path),
		})
	}
	return params, nil
}

func toModel(m database.Mirror) model.Mirror {
	return model.Mirror{
		ID:   m.ID,
		Name: m.Name,
		Kind: m.Kind,
		Path: m.Path,
	}
}
