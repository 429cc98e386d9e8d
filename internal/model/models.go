// internal/model/models.go
package model

// Version-control kinds a mirror or webhook may declare.
const (
	KindGit       = "git"
	KindMercurial = "hg"
)

// EventRevisionsAdded is the only event kind emitted to notification sinks.
const EventRevisionsAdded = "revisions_added"

// Mirror is a local clone of a hosted repository, owned by the registry.
type Mirror struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
	Path string `json:"path"`
	// Bare is true when Path is the git directory itself rather than a work tree containing .git.
	Bare bool `json:"bare"`
}

// Remote is one entry of a mirror's configured remotes.
type Remote struct {
	Name string
	URL  string
}

// RemoteIdentity is the set of URL forms a webhook uses to refer to a hosted repository.
type RemoteIdentity struct {
	Name     string
	Kind     string
	FullName string // org/repo, when the provider sends one
	SSHURL   string // git@host:org/repo.git
	HTTPSURL string // https://host/org/repo.git
}

// ChangesetEvent is emitted once per sync that discovered new revisions.
type ChangesetEvent struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind"`
	MirrorID   int64    `json:"-"`
	Repository string   `json:"repository"`
	Revisions  []string `json:"revisions"`
}
