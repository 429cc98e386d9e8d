// internal/api/webhook.go
package api

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	custom_errors "mirror-sync/internal/errors"
	"mirror-sync/internal/github"
	"mirror-sync/internal/model"
	"mirror-sync/internal/syncer"
	"mirror-sync/internal/webhook"
)

// Syncer brings the mirror of a pushed repository up to date.
type Syncer interface {
	Sync(ctx context.Context, id model.RemoteIdentity) (syncer.Outcome, error)
}

// receiveWebhook handles a push notification from Bitbucket, Gitlab or GitHub.
// Every outcome, including failures, is acknowledged with an empty 200.
// POST {WebhookPath}
func (h *Handler) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("request_id", middleware.GetReqID(r.Context()))

	defer acknowledge(w)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Panic while handling webhook", "panic", rec, "stack", string(debug.Stack()))
		}
	}()

	payload, err := webhook.ReadPayload(w, r, h.opts.MaxPayloadBytes)
	if err != nil {
		logger.Error("Failed to read webhook payload", "error", err)
		return
	}

	var id model.RemoteIdentity
	if eventType := github.EventType(r); eventType != "" {
		logger = logger.With("github_event", eventType)
		id, err = github.ParsePushEvent(eventType, payload)
	} else {
		id, err = h.normalizer.Parse(payload)
	}
	if errors.Is(err, custom_errors.ErrIgnoredEvent) {
		logger.Info("Ignoring webhook event", "reason", err)
		return
	}
	if err != nil {
		logger.Error("Malformed webhook payload", "error", err)
		return
	}
	logger = logger.With("repository", id.Name, "kind", id.Kind)

	// The sender may hang up long before the fetch finishes.
	ctx := context.WithoutCancel(r.Context())
	if h.opts.SyncTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.SyncTimeout)
		defer cancel()
	}

	outcome, err := h.syncer.Sync(ctx, id)
	var unsupported *custom_errors.UnsupportedKindError
	switch {
	case errors.Is(err, custom_errors.ErrNotImplemented), errors.As(err, &unsupported):
		logger.Warn("Repository kind not handled", "error", err)
	case errors.Is(err, custom_errors.ErrCommandTimeout), errors.Is(err, context.DeadlineExceeded):
		logger.Error("Sync timed out", "error", err)
	case err != nil:
		logger.Error("Sync failed", "error", err)
	case outcome.Status == syncer.StatusNotFound:
		logger.Debug("Webhook processed without a matching mirror")
	default:
		logger.Info("Webhook processed",
			"status", outcome.Status,
			"mirror", outcome.Mirror.Name,
			"remote", outcome.Remote,
			"revisions", len(outcome.Revisions),
		)
	}
}
