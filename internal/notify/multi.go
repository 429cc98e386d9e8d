// internal/notify/multi.go
package notify

import (
	"context"
	"errors"

	"mirror-sync/internal/model"
)

// Notifier receives changeset events.
type Notifier interface {
	Notify(ctx context.Context, event model.ChangesetEvent) error
}

// Multi fans an event out to every sink exactly once.
type Multi []Notifier

// Notify calls every sink, even after one fails, and joins their errors.
func (m Multi) Notify(ctx context.Context, event model.ChangesetEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
