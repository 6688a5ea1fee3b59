// Package git reads snapshots from the history of the git repository that
// holds a workspace.
package git

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/matsen/cvmerge/internal/cv"
)

// ErrNotGitRepo indicates the directory is not a git repository.
var ErrNotGitRepo = errors.New("not a git repository")

// ErrCommitNotFound indicates the specified commit does not exist.
var ErrCommitNotFound = errors.New("commit not found")

// ErrFileNotTracked indicates the snapshot did not exist at the commit.
var ErrFileNotTracked = errors.New("snapshot not tracked by git at that commit")

// FindRepoRoot finds the root of the git repository containing the given path.
// Returns ErrNotGitRepo if not in a git repository.
func FindRepoRoot(path string) (string, error) {
	cmd := exec.Command("git", "-C", path, "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", ErrNotGitRepo
	}
	return strings.TrimSpace(string(output)), nil
}

// ValidateCommit verifies that a commit reference exists.
// Supports SHA, HEAD, HEAD~N, branch names, tags, etc.
// Returns the resolved full SHA or ErrCommitNotFound.
func ValidateCommit(repoRoot, commitRef string) (string, error) {
	cmd := exec.Command("git", "-C", repoRoot, "rev-parse", "--verify", commitRef+"^{commit}")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", commitRef, ErrCommitNotFound)
	}
	return strings.TrimSpace(string(output)), nil
}

// SnapshotAtCommit decodes the snapshot at path as it was at commitRef.
// path may be absolute or relative to repoRoot.
func SnapshotAtCommit(repoRoot, commitRef, path string) (cv.Document, error) {
	sha, err := ValidateCommit(repoRoot, commitRef)
	if err != nil {
		return cv.Document{}, err
	}

	rel, err := relativeTo(repoRoot, path)
	if err != nil {
		return cv.Document{}, err
	}

	cmd := exec.Command("git", "-C", repoRoot, "show", sha+":"+rel)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return cv.Document{}, fmt.Errorf("%s at %s: %w", rel, commitRef, ErrFileNotTracked)
		}
		return cv.Document{}, fmt.Errorf("reading %s at %s: %w", rel, commitRef, err)
	}

	doc, err := cv.Decode(output)
	if err != nil {
		return cv.Document{}, fmt.Errorf("%s at %s: %w", rel, commitRef, err)
	}
	return doc, nil
}

// relativeTo returns path relative to repoRoot in git's slash form.
func relativeTo(repoRoot, path string) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(path), nil
	}
	// Resolve symlinks on both sides; git reports the real toplevel
	root, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		return "", err
	}
	abs, err := filepath.EvalSymlinks(path)
	if err != nil {
		abs = path
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the repository %s", path, repoRoot)
	}
	return filepath.ToSlash(rel), nil
}

// IsFileTracked checks if path is tracked by git.
func IsFileTracked(repoRoot, path string) bool {
	rel, err := relativeTo(repoRoot, path)
	if err != nil {
		return false
	}
	cmd := exec.Command("git", "-C", repoRoot, "ls-files", "--", rel)
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(output)) != ""
}
