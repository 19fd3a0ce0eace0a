package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// initRepo creates a working copy whose default branch is main.
func initRepo(t *testing.T) (string, *gogit.Repository) {
	t.Helper()

	dir := t.TempDir()
	repo, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.Main},
	})
	require.NoError(t, err)
	return dir, repo
}

func commitFile(t *testing.T, repo *gogit.Repository, dir, file, content string, when time.Time) plumbing.Hash {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(file)
	require.NoError(t, err)

	sig := &object.Signature{Name: "Goblin", Email: "goblin@example.com", When: when}
	hash, err := wt.Commit("update "+file+"\n\nbody text", &gogit.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
	return hash
}

func setBranch(t *testing.T, repo *gogit.Repository, name string, hash plumbing.Hash) {
	t.Helper()

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), hash)
	require.NoError(t, repo.Storer.SetReference(ref))
}

// threeBranchRepo builds main (newest), dev and feature-x (oldest).
func threeBranchRepo(t *testing.T) string {
	t.Helper()

	dir, repo := initRepo(t)
	c1 := commitFile(t, repo, dir, "app.txt", "one\n", baseTime)
	c2 := commitFile(t, repo, dir, "app.txt", "two\n", baseTime.Add(time.Hour))
	commitFile(t, repo, dir, "app.txt", "three\n", baseTime.Add(2*time.Hour))

	setBranch(t, repo, "feature-x", c1)
	setBranch(t, repo, "dev", c2)
	return dir
}

func discover(t *testing.T, dir string, opts Options) *Repository {
	t.Helper()

	r, err := Discover(dir, opts)
	require.NoError(t, err)
	return r
}
