package git

import (
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/Johannes-Berggren/goblinswitch/internal/models"
)

// LocalBranches returns local branches ordered by tip commit time, newest
// first. Branches with equal times keep the reference store's order.
func (r *Repository) LocalBranches() ([]models.Branch, error) {
	current, _ := r.CurrentBranch()
	upstreams := r.upstreams()

	iter, err := r.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to get branches: %w", err)
	}
	defer iter.Close()

	var branches []models.Branch
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}

		name := ref.Name().Short()
		head, err := r.commit(ref.Hash())
		if err != nil {
			return fmt.Errorf("resolve %s: %w", name, err)
		}

		branches = append(branches, models.Branch{
			Name:      name,
			Hash:      ref.Hash().String(),
			IsCurrent: name == current,
			Upstream:  upstreams[name],
			Head:      head,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortByRecency(branches)
	return branches, nil
}

func sortByRecency(branches []models.Branch) {
	sort.SliceStable(branches, func(i, j int) bool {
		return branches[i].CommitTime().After(branches[j].CommitTime())
	})
}

// upstreams maps branch names to "remote/branch" from the repository config.
func (r *Repository) upstreams() map[string]string {
	out := make(map[string]string)

	cfg, err := r.repo.Config()
	if err != nil {
		return out
	}

	for name, b := range cfg.Branches {
		if b.Remote == "" || b.Merge == "" {
			continue
		}
		out[name] = fmt.Sprintf("%s/%s", b.Remote, b.Merge.Short())
	}
	return out
}
