// internal/notify/store.go
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"mirror-sync/internal/database"
	"mirror-sync/internal/model"
)

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store records every revision of a ChangesetEvent in the changesets table.
type Store struct {
	db     TxBeginner
	logger *slog.Logger
}

// NewStore creates a Store writing through db.
func NewStore(db TxBeginner, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Notify stores the event's revisions and bumps the mirror's sync time in a single transaction.
func (s *Store) Notify(ctx context.Context, event model.ChangesetEvent) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // Rollback is a no-op if the transaction is already committed.

	if err := s.record(ctx, database.New(tx), event); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) record(ctx context.Context, q database.Querier, event model.ChangesetEvent) error {
	logger := s.logger.With("mirror", event.Repository, "event_id", event.ID)

	mirrorID := event.MirrorID
	if mirrorID == 0 {
		m, err := q.GetMirrorByName(ctx, event.Repository)
		if err != nil {
			return fmt.Errorf("failed to look up mirror %s: %w", event.Repository, err)
		}
		mirrorID = m.ID
	}

	positions := make([]int32, len(event.Revisions))
	for i := range positions {
		positions[i] = int32(i)
	}

	n, err := q.CreateChangesets(ctx, database.CreateChangesetsParams{
		MirrorID:  mirrorID,
		EventID:   event.ID,
		Revisions: event.Revisions,
		Positions: positions,
	})
	if err != nil {
		return fmt.Errorf("failed to insert changesets: %w", err)
	}
	if skipped := int64(len(event.Revisions)) - n; skipped > 0 {
		logger.Debug("Changesets already recorded", "count", skipped)
	}
	logger.Info("Successfully inserted changesets into database", "count", n)

	return q.UpdateMirrorSyncedAt(ctx, mirrorID)
}
