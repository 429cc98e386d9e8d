// internal/vcs/inspect.go
package vcs

import (
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"

	custom_errors "mirror-sync/internal/errors"
)

// IsBare opens the repository at path and reports whether it is bare. A
// directory without git metadata yields errors.ErrNotGitRepository.
func IsBare(path string) (bool, error) {
	repo, err := gogit.PlainOpen(path)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return false, fmt.Errorf("%s: %w", path, custom_errors.ErrNotGitRepository)
	}
	if err != nil {
		return false, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}

	// Worktree() only fails with ErrIsBareRepository.
	if _, err := repo.Worktree(); errors.Is(err, gogit.ErrIsBareRepository) {
		return true, nil
	}
	return false, nil
}
