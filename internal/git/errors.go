package git

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotGitRepo indicates the path is not inside a git working copy.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrNoRemote indicates the configured fetch remote does not exist.
	ErrNoRemote = errors.New("remote not found")

	// ErrBranchNotFound indicates the branch could not be resolved.
	ErrBranchNotFound = errors.New("branch not found")

	// ErrDirtyWorktree indicates local changes would be overwritten by a checkout.
	ErrDirtyWorktree = errors.New("local changes would be overwritten")
)

// parseGitError converts git stderr output to specific error types.
func parseGitError(stderr string, originalErr error) error {
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "would be overwritten by checkout"),
		strings.Contains(lower, "please commit your changes or stash them"):
		return fmt.Errorf("%w: %s", ErrDirtyWorktree, firstLine(msg))
	case strings.Contains(lower, "did not match any file(s) known to git"),
		strings.Contains(lower, "invalid reference"):
		return fmt.Errorf("%w: %s", ErrBranchNotFound, firstLine(msg))
	case msg != "":
		return fmt.Errorf("git checkout: %s: %w", firstLine(msg), originalErr)
	default:
		return fmt.Errorf("git checkout: %w", originalErr)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimPrefix(strings.TrimSpace(line), "error: ")
}
