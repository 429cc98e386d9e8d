// internal/webhook/request.go
package webhook

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"

	custom_errors "mirror-sync/internal/errors"
)

// DefaultMaxPayloadBytes caps the size of a webhook body.
const DefaultMaxPayloadBytes int64 = 5 << 20

// ReadPayload extracts the JSON document from a webhook request: the
// "payload" form field for form-encoded deliveries, the raw body otherwise.
func ReadPayload(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPayloadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if isForm(r) {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %v", custom_errors.ErrMalformedPayload, err)
		}
		payload := r.PostForm.Get("payload")
		if payload == "" {
			return nil, fmt.Errorf("%w: no payload field", custom_errors.ErrMalformedPayload)
		}
		return []byte(payload), nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", custom_errors.ErrMalformedPayload, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty body", custom_errors.ErrMalformedPayload)
	}
	return body, nil
}

func isForm(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}
