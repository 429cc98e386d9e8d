// internal/webhook/payload.go
package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	custom_errors "mirror-sync/internal/errors"
	"mirror-sync/internal/model"
)

// DefaultBitbucketHost is used to build clone URLs from Bitbucket's full_name.
const DefaultBitbucketHost = "bitbucket.org"

// pushPayload covers the Bitbucket and Gitlab push payload fields that identify a repository.
//
// Bitbucket: https://support.atlassian.com/bitbucket-cloud/docs/event-payloads/#Push
// Gitlab: https://docs.gitlab.com/ee/user/project/integrations/webhook_events.html#push-events
type pushPayload struct {
	Repository *repositoryFields `json:"repository"`
	Project    *projectFields    `json:"project"`
}

type repositoryFields struct {
	Name     string `json:"name"`
	SCM      string `json:"scm"`
	FullName string `json:"full_name"`
	// Legacy Bitbucket services: "/user/reponame/"
	AbsoluteURL string `json:"absolute_url"`
	// Legacy Gitlab payloads carried the clone URLs on the repository
	GitSSHURL  string `json:"git_ssh_url"`
	GitHTTPURL string `json:"git_http_url"`
}

type projectFields struct {
	Name       string `json:"name"`
	GitSSHURL  string `json:"git_ssh_url"`
	GitHTTPURL string `json:"git_http_url"`
}

// Normalizer turns Bitbucket and Gitlab push payloads into a RemoteIdentity.
type Normalizer struct {
	bitbucketHost string
}

// NewNormalizer creates a Normalizer deriving Bitbucket URLs on host.
func NewNormalizer(bitbucketHost string) *Normalizer {
	if bitbucketHost == "" {
		bitbucketHost = DefaultBitbucketHost
	}
	return &Normalizer{bitbucketHost: bitbucketHost}
}

// Parse decodes a push payload. Invalid JSON wraps errors.ErrMalformedPayload;
// a payload without a name or without both clone URLs yields *errors.MissingFieldError.
func (n *Normalizer) Parse(raw []byte) (model.RemoteIdentity, error) {
	var p pushPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.RemoteIdentity{}, fmt.Errorf("%w: %v", custom_errors.ErrMalformedPayload, err)
	}
	repo := repositoryFields{}
	if p.Repository != nil {
		repo = *p.Repository
	}
	project := projectFields{}
	if p.Project != nil {
		project = *p.Project
	}

	id := model.RemoteIdentity{
		Name: firstNonEmpty(repo.Name, project.Name),
		Kind: strings.ToLower(firstNonEmpty(repo.SCM, model.KindGit)),
	}

	if repo.FullName != "" {
		id.FullName = repo.FullName
	} else if repo.AbsoluteURL != "" {
		id.FullName = strings.Trim(repo.AbsoluteURL, "/")
	}
	if id.FullName != "" {
		id.SSHURL = "git@" + n.bitbucketHost + ":" + id.FullName + ".git"
		id.HTTPSURL = "https://" + n.bitbucketHost + "/" + id.FullName + ".git"
	}

	// Gitlab sends the clone URLs directly; project wins over the legacy repository fields.
	if url := firstNonEmpty(project.GitSSHURL, repo.GitSSHURL); url != "" {
		id.SSHURL = url
	}
	if url := firstNonEmpty(project.GitHTTPURL, repo.GitHTTPURL); url != "" {
		id.HTTPSURL = url
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

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
