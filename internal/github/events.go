// internal/github/events.go
package github

import (
	"fmt"
	"net/http"

	"github.com/google/go-github/v62/github"

	custom_errors "mirror-sync/internal/errors"
	"mirror-sync/internal/model"
)

const pushEventType = "push"

// EventType returns the X-GitHub-Event header of r, or "" when r is not a GitHub delivery.
func EventType(r *http.Request) string {
	return github.WebHookType(r)
}

// ParsePushEvent translates a GitHub webhook delivery into a RemoteIdentity.
// Deliveries other than pushes (ping, issues, ...) yield errors.ErrIgnoredEvent.
func ParsePushEvent(eventType string, payload []byte) (model.RemoteIdentity, error) {
	if eventType != pushEventType {
		return model.RemoteIdentity{}, fmt.Errorf("%w: %s", custom_errors.ErrIgnoredEvent, eventType)
	}

	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		return model.RemoteIdentity{}, fmt.Errorf("%w: %v", custom_errors.ErrMalformedPayload, err)
	}

	push, ok := event.(*github.PushEvent)
	if !ok {
		return model.RemoteIdentity{}, fmt.Errorf("%w: %s", custom_errors.ErrIgnoredEvent, eventType)
	}
	return toRemoteIdentity(push.GetRepo())
}

// toRemoteIdentity translates a github.PushEventRepository object to our internal model.RemoteIdentity.
func toRemoteIdentity(r *github.PushEventRepository) (model.RemoteIdentity, error) {
	id := model.RemoteIdentity{
		Name:     r.GetName(),
		Kind:     model.KindGit,
		FullName: r.GetFullName(),
		SSHURL:   r.GetSSHURL(),
		HTTPSURL: r.GetCloneURL(),
	}

	switch {
	case id.Name == "":
		return id, &custom_errors.MissingFieldError{Field: "name"}
	case id.SSHURL == "":
		return id, &custom_errors.MissingFieldError{Field: "git url"}
	case id.HTTPSURL == "":
		return id, &custom_errors.MissingFieldError{Field: "https url"}
	}
	return id, nil
}
