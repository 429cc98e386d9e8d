// internal/api/handler.go
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"

	"mirror-sync/internal/database"
	"mirror-sync/internal/webhook"
)

const (
	defaultChangesetLimit = 100
	maxChangesetLimit     = 500
)

// Options configures the webhook route.
type Options struct {
	WebhookPath     string
	MaxPayloadBytes int64
	// SyncTimeout bounds the sync triggered by one delivery. Zero means no limit.
	SyncTimeout time.Duration
}

// Handler is the container for API dependencies.
type Handler struct {
	db         database.Querier
	syncer     Syncer
	normalizer *webhook.Normalizer
	opts       Options
	logger     *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(db database.Querier, s Syncer, normalizer *webhook.Normalizer, opts Options, logger *slog.Logger) http.Handler {
	if opts.WebhookPath == "" {
		opts.WebhookPath = "/bitbucketsync"
	}
	h := &Handler{
		db:         db,
		syncer:     s,
		normalizer: normalizer,
		opts:       opts,
		logger:     logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)

	// The webhook runs a full fetch and must always answer 200, so it stays outside the Timeout group.
	r.Post(opts.WebhookPath, h.receiveWebhook)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/health", h.healthCheck)
		r.Route("/v1", func(r chi.Router) {
			r.Get("/mirrors", h.listMirrors)
			r.Get("/mirrors/{name}/changesets", h.getChangesets)
		})
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listMirrors returns every registered mirror.
// GET /v1/mirrors
func (h *Handler) listMirrors(w http.ResponseWriter, r *http.Request) {
	mirrors, err := h.db.ListMirrors(r.Context())
	if err != nil {
		h.logger.Error("Failed to list mirrors", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if mirrors == nil {
		mirrors = []database.Mirror{}
	}

	respondWithJSON(w, http.StatusOK, mirrors)
}

// getChangesets handles the request for the most recently recorded revisions of a mirror.
// GET /v1/mirrors/{name}/changesets?limit=N
func (h *Handler) getChangesets(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	limit := defaultChangesetLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 || n > maxChangesetLimit {
			respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 500.")
			return
		}
		limit = n
	}

	mirror, err := h.db.GetMirrorByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondWithError(w, http.StatusNotFound, "Mirror not found")
			return
		}
		h.logger.Error("Failed to get mirror", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	changesets, err := h.db.ListChangesetsByMirror(r.Context(), database.ListChangesetsByMirrorParams{
		MirrorID: mirror.ID,
		Limit:    int32(limit),
	})
	if err != nil {
		h.logger.Error("Failed to get changesets", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if changesets == nil {
		changesets = []database.Changeset{}
	}

	respondWithJSON(w, http.StatusOK, changesets)
}
