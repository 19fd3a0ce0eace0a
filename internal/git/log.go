package git

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/Johannes-Berggren/goblinswitch/internal/models"
)

// commit loads the summary of a single commit.
func (r *Repository) commit(hash plumbing.Hash) (models.Commit, error) {
	c, err := r.repo.CommitObject(hash)
	if err != nil {
		return models.Commit{}, fmt.Errorf("failed to read commit %s: %w", hash, err)
	}

	subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")

	return models.Commit{
		Hash:    c.Hash.String(),
		Author:  c.Author.Name,
		Email:   c.Author.Email,
		Date:    c.Committer.When,
		Message: subject,
	}, nil
}

// CurrentBranch returns the name of the checked out branch, or the short hash
// when HEAD is detached.
func (r *Repository) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}

	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return head.Hash().String()[:7], nil
}
