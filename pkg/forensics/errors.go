package forensics

import "errors"

// ErrNotFound means the supplied path does not exist on disk. Callers
// should retry with a valid absolute path.
var ErrNotFound = errors.New("path does not exist: retry with an absolute path to a file inside a Git work tree")

// ErrNotARepository means the target path (or its ancestors) is not
// inside a Git work tree.
var ErrNotARepository = errors.New("not inside a git repository")
