package vcs

import (
	"github.com/go-git/go-git/v5"
)

// GitOpener opens git repositories using go-git.
type GitOpener struct{}

// NewGitOpener creates a new GitOpener.
func NewGitOpener() *GitOpener {
	return &GitOpener{}
}

// PlainOpenWithDetect opens a git repository, detecting .git in parent directories.
func (o *GitOpener) PlainOpenWithDetect(path string) (Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, err
	}

	var repoPath string
	if wt, err := repo.Worktree(); err == nil {
		repoPath = wt.Filesystem.Root()
	} else {
		repoPath = path
	}

	return &gitRepository{repoPath: repoPath}, nil
}

// gitRepository carries the resolved worktree root for an opened repo.
type gitRepository struct {
	repoPath string
}

// RepoPath returns the repository root path.
func (r *gitRepository) RepoPath() string {
	return r.repoPath
}

// defaultOpener is the process-wide default opener.
var defaultOpener Opener = NewGitOpener()

// DefaultOpener returns the default git opener.
func DefaultOpener() Opener {
	return defaultOpener
}

// SetDefaultOpener sets the default git opener (useful for testing).
func SetDefaultOpener(opener Opener) {
	defaultOpener = opener
}
