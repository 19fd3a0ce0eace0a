// Package git is the repository service behind the branch switcher: branch
// enumeration, checkout with progress and fetch, on top of go-git.
package git

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
)

// Checkout backends.
const (
	BackendAuto  = "auto"
	BackendCLI   = "cli"
	BackendGoGit = "go-git"
)

// Credential sources for fetch.
const (
	AuthAuto     = "auto"
	AuthSSHAgent = "ssh-agent"
	AuthBasic    = "basic"
	AuthNone     = "none"
)

// DefaultRemote is the remote fetched from when none is configured.
const DefaultRemote = "origin"

// Options configures a Repository.
type Options struct {
	Remote          string
	CheckoutBackend string
	Binary          string // git executable for the cli backend
	Auth            AuthOptions
}

// AuthOptions selects the credential used when fetching.
type AuthOptions struct {
	Method   string
	User     string
	TokenEnv string // env var holding the password/token for basic auth
}

// Repository is an opened working copy. It is not safe for concurrent use;
// the switcher keeps it inside a single worker goroutine.
type Repository struct {
	repo *gogit.Repository
	root string
	opts Options
}

// Discover opens the repository containing path, searching parent directories.
func Discover(path string, opts Options) (*Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotGitRepo, path)
		}
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("get worktree: %w", err)
	}

	return &Repository{
		repo: repo,
		root: wt.Filesystem.Root(),
		opts: opts,
	}, nil
}

// Root returns the top-level directory of the working copy.
func (r *Repository) Root() string {
	return r.root
}

// RemoteName returns the remote used by Fetch.
func (r *Repository) RemoteName() string {
	if r.opts.Remote == "" {
		return DefaultRemote
	}
	return r.opts.Remote
}

func (r *Repository) binary() string {
	if r.opts.Binary == "" {
		return "git"
	}
	return r.opts.Binary
}

// backend resolves "auto" to the cli backend when a git binary is available.
func (r *Repository) backend() string {
	switch r.opts.CheckoutBackend {
	case BackendCLI, BackendGoGit:
		return r.opts.CheckoutBackend
	}
	if _, err := exec.LookPath(r.binary()); err == nil {
		return BackendCLI
	}
	return BackendGoGit
}

// FindGitDir walks up from path to the git directory of the working copy.
// It only inspects the filesystem and never opens the repository.
func FindGitDir(path string) (string, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}

	for {
		dotgit := filepath.Join(dir, ".git")
		info, err := os.Stat(dotgit)
		if err == nil {
			if info.IsDir() {
				return dotgit, nil
			}
			return readGitFile(dir, dotgit)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: %s", ErrNotGitRepo, path)
		}
		dir = parent
	}
}

// readGitFile follows a "gitdir: <path>" pointer used by linked worktrees.
func readGitFile(dir, dotgit string) (string, error) {
	data, err := os.ReadFile(dotgit)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", dotgit, err)
	}

	line := strings.TrimSpace(string(data))
	if !strings.HasPrefix(line, "gitdir:") {
		return "", fmt.Errorf("%w: malformed %s", ErrNotGitRepo, dotgit)
	}

	gitdir := strings.TrimSpace(strings.TrimPrefix(line, "gitdir:"))
	if !filepath.IsAbs(gitdir) {
		gitdir = filepath.Join(dir, gitdir)
	}
	return gitdir, nil
}

// CommonDir returns the directory holding refs for gitDir. Linked worktrees
// share the refs of the main repository through a "commondir" file.
func CommonDir(gitDir string) string {
	data, err := os.ReadFile(filepath.Join(gitDir, "commondir"))
	if err != nil {
		return gitDir
	}
	common := strings.TrimSpace(string(data))
	if !filepath.IsAbs(common) {
		common = filepath.Join(gitDir, common)
	}
	return filepath.Clean(common)
}
