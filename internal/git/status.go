package git

import (
	"fmt"
	"sort"

	gogit "github.com/go-git/go-git/v5"

	"github.com/Johannes-Berggren/goblinswitch/internal/models"
)

// Status returns the uncommitted changes of the working tree.
func (r *Repository) Status() (models.WorkingTree, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return models.WorkingTree{}, fmt.Errorf("get worktree: %w", err)
	}

	st, err := wt.Status()
	if err != nil {
		return models.WorkingTree{}, fmt.Errorf("failed to get status: %w", err)
	}

	var files []models.FileChange
	for path, fs := range st {
		if fs.Staging == gogit.Unmodified && fs.Worktree == gogit.Unmodified {
			continue
		}

		file := models.FileChange{
			Path:         path,
			StagedStatus: fileStatus(fs.Staging),
			Status:       fileStatus(fs.Worktree),
		}
		file.IsUntracked = fs.Worktree == gogit.Untracked
		file.IsStaged = !file.IsUntracked && fs.Staging != gogit.Unmodified

		files = append(files, file)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return models.WorkingTree{Files: files}, nil
}

func fileStatus(code gogit.StatusCode) models.FileStatus {
	switch code {
	case gogit.Modified:
		return models.StatusModified
	case gogit.Added:
		return models.StatusAdded
	case gogit.Deleted:
		return models.StatusDeleted
	case gogit.Renamed:
		return models.StatusRenamed
	case gogit.Copied:
		return models.StatusCopied
	case gogit.Untracked:
		return models.StatusUntracked
	case gogit.UpdatedButUnmerged:
		return models.StatusUpdated
	default:
		return ""
	}
}
