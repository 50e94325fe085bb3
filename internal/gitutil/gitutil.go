// Package gitutil wraps the native git executable for every query that
// go-git has no equivalent for: path- and content-filtered log (--grep,
// -S, -L), name-only diffs, git show, and git grep. go-git (internal/vcs)
// resolves the repository root for AnalyzeFile; DiscoverRepoRoot here
// does the same through `git rev-parse` for callers that start from a
// directory (history search, `memoria config show`).
package gitutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// logFormat produces one line per commit: hash|ISO date|author name|author
// email|subject. Fields are pipe-delimited; subjects containing a pipe are
// rare enough in practice that this format is preferred over JSON for
// compactness and because commit subjects never contain NUL bytes, so a
// %x00 record separator is unnecessary for the single-line case.
const logFormat = "%H|%aI|%an|%ae|%s"

// Commit is one parsed `git log` record.
type Commit struct {
	Hash        string
	Date        time.Time
	AuthorName  string
	AuthorEmail string
	Subject     string
}

// Git runs git subprocesses rooted at a fixed working directory.
type Git struct {
	repoRoot string
}

// New returns a Git bound to repoRoot. Every command it runs is invoked
// with that directory as its working directory.
func New(repoRoot string) *Git {
	return &Git{repoRoot: repoRoot}
}

// DiscoverRepoRoot runs `git rev-parse --show-toplevel` from startDir. A
// non-nil error means startDir is not inside a Git work tree (the
// NotARepository error kind).
func DiscoverRepoRoot(ctx context.Context, startDir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = startDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git rev-parse --show-toplevel: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// RepoRoot returns the directory this Git is bound to.
func (g *Git) RepoRoot() string {
	return g.repoRoot
}

// run executes git with args, returning stdout. A non-zero exit is
// reported as an error containing stderr; callers treat any error as a
// GitTransient failure and exclude the affected commit/file rather than
// aborting the whole engine.
func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.repoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func parseLogLines(output string) []Commit {
	var commits []Commit
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 5)
		if len(parts) < 5 {
			continue
		}
		// git log -L interleaves patch text with the format lines; only a
		// record whose first field is a full commit hash is a commit.
		if !isFullHash(parts[0]) {
			continue
		}
		date, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			date = time.Time{}
		}
		commits = append(commits, Commit{
			Hash:        parts[0],
			Date:        date,
			AuthorName:  parts[2],
			AuthorEmail: parts[3],
			Subject:     parts[4],
		})
	}
	return commits
}

func isFullHash(s string) bool {
	if len(s) != 40 {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// FileHistory returns the last limit commits (most recent first) that
// touched path, relative to the repo root.
func (g *Git) FileHistory(ctx context.Context, relPath string, limit int) ([]Commit, error) {
	args := []string{"log", "--pretty=format:" + logFormat, "-n", strconv.Itoa(limit), "--", relPath}
	out, err := g.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLogLines(out), nil
}

// CommitsSince returns up to limit commits authored since the given time,
// used by Project Metrics to sample recent velocity.
func (g *Git) CommitsSince(ctx context.Context, since time.Time, limit int) ([]Commit, error) {
	args := []string{"log", "--pretty=format:" + logFormat, "--since=" + since.Format("2006-01-02"), "--max-count=" + strconv.Itoa(limit)}
	out, err := g.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLogLines(out), nil
}

// NameOnlyFiles returns the files touched by a single commit.
func (g *Git) NameOnlyFiles(ctx context.Context, hash string) ([]string, error) {
	out, err := g.run(ctx, "show", "--name-only", "--pretty=format:", hash)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// Show returns the raw `git show <hash> -- <relPath>` output (diff header
// plus hunks) for a single file at a commit.
func (g *Git) Show(ctx context.Context, hash, relPath string) (string, error) {
	return g.run(ctx, "show", hash, "--", relPath)
}

// GrepFilesMatching returns repo-relative paths whose tracked contents
// match the extended regular expression pattern, used by Engine I's
// static fan-in scan.
func (g *Git) GrepFilesMatching(ctx context.Context, pattern string) ([]string, error) {
	out, err := g.run(ctx, "grep", "-l", "-E", pattern)
	if err != nil {
		// git grep exits 1 (not an error) when there are no matches.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// LogGrep searches commit subjects/bodies case-insensitively for query.
func (g *Git) LogGrep(ctx context.Context, query string, limit int) ([]Commit, error) {
	args := []string{"log", "--pretty=format:" + logFormat, "--grep=" + query, "-i", "--max-count=" + strconv.Itoa(limit)}
	out, err := g.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLogLines(out), nil
}

// LogPickaxe finds commits that changed the occurrence count of the
// literal string query (git log -S).
func (g *Git) LogPickaxe(ctx context.Context, query string, limit int) ([]Commit, error) {
	args := []string{"log", "--pretty=format:" + logFormat, "-S", query, "--max-count=" + strconv.Itoa(limit)}
	out, err := g.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLogLines(out), nil
}

// LogLineRange follows the history of lines [start,end] of relPath
// (git log -L start,end:relPath).
func (g *Git) LogLineRange(ctx context.Context, relPath string, start, end, limit int) ([]Commit, error) {
	spec := fmt.Sprintf("-L%d,%d:%s", start, end, relPath)
	args := []string{"log", "--pretty=format:" + logFormat, spec, "--max-count=" + strconv.Itoa(limit)}
	out, err := g.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLogLines(out), nil
}
