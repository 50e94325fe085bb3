// Package vcs provides the narrow git repository abstraction the engine
// needs to resolve a target file to its repository root. Everything
// path- or content-specific (log filtering, pickaxe search, line-range
// history) is handled by the git subprocess wrapper in internal/gitutil,
// since go-git has no equivalent to git-log's -S/-L/--grep flags; this
// package only covers what go-git does well: cheap, in-process
// repository discovery.
package vcs

// Repository provides the minimal set of repository queries the engine
// needs outside of shelling out to git.
type Repository interface {
	// RepoPath returns the root path of the repository's working tree.
	RepoPath() string
}

// Opener opens git repositories.
type Opener interface {
	// PlainOpenWithDetect opens a git repository, detecting .git in parent
	// directories of path.
	PlainOpenWithDetect(path string) (Repository, error)
}
