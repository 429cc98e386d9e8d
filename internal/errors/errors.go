// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedPayload is returned when a webhook body cannot be decoded into a repository identity.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrIgnoredEvent is returned for webhook deliveries that do not announce a push (pings, issue events).
	ErrIgnoredEvent = errors.New("webhook event carries no push")

	// ErrMirrorNotFound is returned when no local mirror has a remote matching the webhook's repository.
	// It is an expected condition, not a failure.
	ErrMirrorNotFound = errors.New("no matching mirror")

	// ErrNotGitRepository is returned when a mirror location holds no git metadata.
	ErrNotGitRepository = errors.New("not a git repository")

	// ErrNotImplemented is returned for version-control kinds whose sync path is not implemented (hg).
	ErrNotImplemented = errors.New("not implemented")

	// ErrCommandTimeout is returned when a git invocation exceeds its deadline and was killed.
	ErrCommandTimeout = errors.New("git command timed out")

	// ErrInvalidRange is returned when a revision range expression could be mistaken for an option.
	ErrInvalidRange = errors.New("invalid revision range")
)

// MissingFieldError is returned when a webhook payload lacks a field required to identify the repository.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing repository/project %s", ErrMalformedPayload, e.Field)
}

// Unwrap lets errors.Is(err, ErrMalformedPayload) match.
func (e *MissingFieldError) Unwrap() error {
	return ErrMalformedPayload
}

// UnsupportedKindError is returned for a version-control kind this service knows nothing about.
type UnsupportedKindError struct {
	Kind string
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported repository kind %q", e.Kind)
}

// SpawnError is returned when the git executable could not be started at all.
// It indicates a configuration problem rather than a repository problem.
type SpawnError struct {
	Binary string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Binary, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// CommandError is returned when git ran but exited with a non-zero status.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("git %s: exit status %d", strings.Join(e.Args, " "), e.ExitCode)
	}
	return fmt.Sprintf("git %s: exit status %d: %s", strings.Join(e.Args, " "), e.ExitCode, stderr)
}

// IsFatal reports whether err must abort the current sync attempt instead of
// being logged and skipped.
func IsFatal(err error) bool {
	var spawnErr *SpawnError
	return errors.As(err, &spawnErr) || errors.Is(err, ErrCommandTimeout)
}

// ErrInvalidMirrorFormat is returned when a mirror entry in the config is not in 'name=path' format.
type ErrInvalidMirrorFormat struct {
	Entry string
}

func (e *ErrInvalidMirrorFormat) Error() string {
	return fmt.Sprintf("invalid mirror format: %q, expected 'name=path'", e.Entry)
}
