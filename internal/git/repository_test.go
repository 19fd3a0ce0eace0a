package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"github.com/Johannes-Berggren/goblinswitch/internal/models"
)

func TestDiscover(t *testing.T) {
	t.Run("from nested directory", func(t *testing.T) {
		dir := threeBranchRepo(t)
		nested := filepath.Join(dir, "a", "b")
		require.NoError(t, os.MkdirAll(nested, 0755))

		r := discover(t, nested, Options{})
		want, err := filepath.EvalSymlinks(dir)
		require.NoError(t, err)
		got, err := filepath.EvalSymlinks(r.Root())
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("not a repository", func(t *testing.T) {
		_, err := Discover(t.TempDir(), Options{})
		require.ErrorIs(t, err, ErrNotGitRepo)
	})
}

func TestLocalBranches_SortedByCommitTime(t *testing.T) {
	r := discover(t, threeBranchRepo(t), Options{})

	branches, err := r.LocalBranches()
	require.NoError(t, err)
	require.Equal(t, []string{"main", "dev", "feature-x"}, models.BranchNames(branches))

	require.True(t, branches[0].IsCurrent)
	require.False(t, branches[1].IsCurrent)
	require.Equal(t, "update app.txt", branches[0].Head.Message)
	require.Len(t, branches[0].ShortHash(), 7)

	for i := 1; i < len(branches); i++ {
		require.True(t, branches[i-1].CommitTime().After(branches[i].CommitTime()),
			"%s should be newer than %s", branches[i-1].Name, branches[i].Name)
	}
}

func TestLocalBranches_TiesAreStable(t *testing.T) {
	dir, repo := initRepo(t)
	head := commitFile(t, repo, dir, "a.txt", "a\n", baseTime)
	setBranch(t, repo, "alpha", head)
	setBranch(t, repo, "beta", head)

	r := discover(t, dir, Options{})
	first, err := r.LocalBranches()
	require.NoError(t, err)
	second, err := r.LocalBranches()
	require.NoError(t, err)

	require.Len(t, first, 3)
	require.Equal(t, models.BranchNames(first), models.BranchNames(second))
}

func TestLocalBranches_Upstream(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, repo, dir, "a.txt", "a\n", baseTime)

	cfg, err := repo.Config()
	require.NoError(t, err)
	cfg.Branches["main"] = &gitconfig.Branch{
		Name:   "main",
		Remote: "origin",
		Merge:  plumbing.NewBranchReferenceName("main"),
	}
	require.NoError(t, repo.SetConfig(cfg))

	branches, err := discover(t, dir, Options{}).LocalBranches()
	require.NoError(t, err)
	require.Equal(t, "origin/main", branches[0].Upstream)
}

func TestCheckout_GoGitBackend(t *testing.T) {
	dir := threeBranchRepo(t)
	r := discover(t, dir, Options{CheckoutBackend: BackendGoGit})

	calls := 0
	err := r.Checkout("dev", func(string, int, int) { calls++ })
	require.NoError(t, err)
	require.Zero(t, calls, "go-git backend reports no incremental progress")

	current, err := r.CurrentBranch()
	require.NoError(t, err)
	require.Equal(t, "dev", current)

	content, err := os.ReadFile(filepath.Join(dir, "app.txt"))
	require.NoError(t, err)
	require.Equal(t, "two\n", string(content))
}

func TestCheckout_UnknownBranch(t *testing.T) {
	r := discover(t, threeBranchRepo(t), Options{CheckoutBackend: BackendGoGit})

	err := r.Checkout("nope", nil)
	require.ErrorIs(t, err, ErrBranchNotFound)
}

func TestCheckout_DirtyWorktree(t *testing.T) {
	dir := threeBranchRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.txt"), []byte("local edit\n"), 0644))

	r := discover(t, dir, Options{CheckoutBackend: BackendGoGit})
	err := r.Checkout("dev", nil)
	require.ErrorIs(t, err, ErrDirtyWorktree)

	current, err := r.CurrentBranch()
	require.NoError(t, err)
	require.Equal(t, "main", current)

	// a fresh handle reads HEAD from disk
	current, err = discover(t, dir, Options{}).CurrentBranch()
	require.NoError(t, err)
	require.Equal(t, "main", current, "failed checkout must not move HEAD")

	content, err := os.ReadFile(filepath.Join(dir, "app.txt"))
	require.NoError(t, err)
	require.Equal(t, "local edit\n", string(content))

	st, err := r.Status()
	require.NoError(t, err)
	require.Len(t, st.Files, 1)
	require.Equal(t, models.StatusModified, st.Files[0].Status)
	require.Empty(t, st.Files[0].StagedStatus, "nothing staged against the wrong branch")

	// the repository stays usable once the edit is gone
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.txt"), []byte("three\n"), 0644))
	require.NoError(t, r.Checkout("dev", nil))
	current, err = r.CurrentBranch()
	require.NoError(t, err)
	require.Equal(t, "dev", current)
}

func TestCheckout_CLIBackend(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	dir := threeBranchRepo(t)
	r := discover(t, dir, Options{CheckoutBackend: BackendCLI})

	require.NoError(t, r.Checkout("feature-x", nil))

	current, err := discover(t, dir, Options{}).CurrentBranch()
	require.NoError(t, err)
	require.Equal(t, "feature-x", current)

	err = r.Checkout("missing", nil)
	require.ErrorIs(t, err, ErrBranchNotFound)
}

func TestStatus(t *testing.T) {
	dir := threeBranchRepo(t)
	r := discover(t, dir, Options{})

	st, err := r.Status()
	require.NoError(t, err)
	require.True(t, st.Clean())
	require.Equal(t, "clean", st.Summary())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.txt"), []byte("edited\n"), 0644))

	st, err = r.Status()
	require.NoError(t, err)
	require.Len(t, st.Files, 2)
	require.Equal(t, "2 changes", st.Summary())

	require.Equal(t, "app.txt", st.Files[0].Path)
	require.Equal(t, models.StatusModified, st.Files[0].Status)
	require.True(t, st.Files[1].IsUntracked)
}

func TestFetch_NoRemote(t *testing.T) {
	r := discover(t, threeBranchRepo(t), Options{})

	err := r.Fetch(context.Background(), []string{"main"})
	require.ErrorIs(t, err, ErrNoRemote)
}

func TestFetch_LocalRemote(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	upstream := threeBranchRepo(t)

	dir, repo := initRepo(t)
	commitFile(t, repo, dir, "local.txt", "l\n", baseTime.Add(-time.Hour))
	_, err := repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{upstream}})
	require.NoError(t, err)

	r := discover(t, dir, Options{Auth: AuthOptions{Method: AuthAuto}})
	require.NoError(t, r.Fetch(context.Background(), []string{"dev"}))

	ref, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", "dev"), true)
	require.NoError(t, err)
	require.False(t, ref.Hash().IsZero())

	// A second fetch has nothing new and still succeeds.
	require.NoError(t, r.Fetch(context.Background(), []string{"dev"}))
}

func TestAuthFor(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, repo, dir, "a.txt", "a\n", baseTime)
	remote, err := repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{"https://example.com/r.git"}})
	require.NoError(t, err)

	t.Run("auto is anonymous for https", func(t *testing.T) {
		r := discover(t, dir, Options{Auth: AuthOptions{Method: AuthAuto}})
		auth, err := r.authFor(remote)
		require.NoError(t, err)
		require.Nil(t, auth)
	})

	t.Run("basic reads token from env", func(t *testing.T) {
		t.Setenv("GOBLIN_TEST_TOKEN", "s3cret")
		r := discover(t, dir, Options{Auth: AuthOptions{Method: AuthBasic, User: "me", TokenEnv: "GOBLIN_TEST_TOKEN"}})
		auth, err := r.authFor(remote)
		require.NoError(t, err)
		require.Equal(t, "http-basic-auth", auth.Name())
	})

	t.Run("basic without token", func(t *testing.T) {
		r := discover(t, dir, Options{Auth: AuthOptions{Method: AuthBasic, TokenEnv: "GOBLIN_TEST_UNSET"}})
		_, err := r.authFor(remote)
		require.Error(t, err)
	})

	t.Run("unknown method", func(t *testing.T) {
		r := discover(t, dir, Options{Auth: AuthOptions{Method: "kerberos"}})
		_, err := r.authFor(remote)
		require.Error(t, err)
	})
}

func TestFindGitDir(t *testing.T) {
	dir := threeBranchRepo(t)
	nested := filepath.Join(dir, "src", "pkg")
	require.NoError(t, os.MkdirAll(nested, 0755))

	gitdir, err := FindGitDir(nested)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, ".git"), gitdir)

	t.Run("linked worktree file", func(t *testing.T) {
		wt := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(wt, ".git"), []byte("gitdir: ../real/.git/worktrees/wt\n"), 0644))

		gitdir, err := FindGitDir(wt)
		require.NoError(t, err)
		require.Equal(t, filepath.Join(wt, "..", "real", ".git", "worktrees", "wt"), gitdir)
	})

	t.Run("outside a repository", func(t *testing.T) {
		_, err := FindGitDir(t.TempDir())
		require.ErrorIs(t, err, ErrNotGitRepo)
	})
}

func TestCommonDir(t *testing.T) {
	gitdir := t.TempDir()
	require.Equal(t, gitdir, CommonDir(gitdir))

	linked := filepath.Join(gitdir, "worktrees", "wt")
	require.NoError(t, os.MkdirAll(linked, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(linked, "commondir"), []byte("../..\n"), 0644))
	require.Equal(t, filepath.Clean(gitdir), CommonDir(linked))
}

func TestParseGitError(t *testing.T) {
	exitErr := errors.New("exit status 1")

	tests := []struct {
		name   string
		stderr string
		want   error
	}{
		{
			name:   "overwritten files",
			stderr: "error: Your local changes to the following files would be overwritten by checkout:\n\tapp.txt\nPlease commit your changes or stash them before you switch branches.\nAborting",
			want:   ErrDirtyWorktree,
		},
		{
			name:   "unknown pathspec",
			stderr: "error: pathspec 'nope' did not match any file(s) known to git",
			want:   ErrBranchNotFound,
		},
		{
			name:   "other failure",
			stderr: "fatal: unable to write new index file",
			want:   exitErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseGitError(tt.stderr, exitErr)
			require.ErrorIs(t, err, tt.want)
			require.False(t, strings.Contains(err.Error(), "\n"), "message should be a single line: %q", err)
		})
	}
}
