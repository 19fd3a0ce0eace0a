package git

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Checkout switches the working tree and HEAD to the named local branch.
// onProgress may be nil. A started checkout always runs to completion so the
// working tree is never left half-written.
func (r *Repository) Checkout(name string, onProgress ProgressFunc) error {
	if onProgress == nil {
		onProgress = func(string, int, int) {}
	}

	ref := plumbing.NewBranchReferenceName(name)
	if _, err := r.repo.Reference(ref, false); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return fmt.Errorf("%w: %s", ErrBranchNotFound, name)
		}
		return fmt.Errorf("resolve %s: %w", name, err)
	}

	if r.backend() == BackendCLI {
		return r.checkoutCLI(name, onProgress)
	}
	return r.checkoutGoGit(ref)
}

func (r *Repository) checkoutCLI(name string, onProgress ProgressFunc) error {
	//nolint:gosec // G204: branch name comes from the repository's own refs
	cmd := exec.Command(r.binary(), "checkout", "--progress", name)
	cmd.Dir = r.root
	cmd.Env = append(os.Environ(), "LC_ALL=C")

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("git checkout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start git checkout: %w", err)
	}

	var output strings.Builder
	scanErr := scanProgress(stderr, func(p Progress) {
		onProgress(p.Label, p.Completed, p.Total)
	}, &output)
	if scanErr != nil {
		// keep draining so git cannot block on a full pipe
		_, _ = io.Copy(io.Discard, stderr)
	}

	if err := cmd.Wait(); err != nil {
		return parseGitError(output.String(), err)
	}
	if scanErr != nil {
		return fmt.Errorf("read git checkout output: %w", scanErr)
	}
	return nil
}

// checkoutGoGit has no progress hook, so it reports nothing until done.
// go-git moves HEAD before it inspects the worktree, so HEAD is put back
// when the checkout fails.
func (r *Repository) checkoutGoGit(ref plumbing.ReferenceName) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}

	prev, err := r.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return fmt.Errorf("read HEAD: %w", err)
	}

	err = wt.Checkout(&gogit.CheckoutOptions{Branch: ref})
	if err == nil {
		return nil
	}

	if restoreErr := r.repo.Storer.SetReference(prev); restoreErr != nil {
		return fmt.Errorf("restore HEAD after failed checkout: %w", errors.Join(err, restoreErr))
	}
	if errors.Is(err, gogit.ErrUnstagedChanges) {
		return fmt.Errorf("%w: %s", ErrDirtyWorktree, ref.Short())
	}
	return fmt.Errorf("failed to switch branch: %w", err)
}
