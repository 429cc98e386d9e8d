// internal/notify/http.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"mirror-sync/internal/model"
)

// DefaultTimeout bounds a single delivery to the change tracker.
const DefaultTimeout = 30 * time.Second

// HTTP posts each ChangesetEvent as JSON to a downstream change tracker.
type HTTP struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewHTTP creates an HTTP sink posting to url. A non-empty token is sent as a bearer token.
func NewHTTP(url, token string, timeout time.Duration, logger *slog.Logger) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := &http.Client{}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = oauth2.NewClient(context.Background(), ts)
	}
	client.Timeout = timeout

	return &HTTP{url: url, client: client, logger: logger}
}

// Notify delivers event. Any non-2xx response is an error.
func (h *HTTP) Notify(ctx context.Context, event model.ChangesetEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver event %s: %w", event.ID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("change tracker rejected event %s: %s", event.ID, resp.Status)
	}
	h.logger.Debug("Delivered changeset event", "event_id", event.ID, "mirror", event.Repository, "status", resp.StatusCode)
	return nil
}
