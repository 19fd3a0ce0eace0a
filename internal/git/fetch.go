package git

import (
	"context"
	"errors"
	"fmt"
	"os"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// Fetch updates the remote-tracking refs of the given branches from the
// configured remote. An already up-to-date fetch is not an error.
func (r *Repository) Fetch(ctx context.Context, refNames []string) error {
	name := r.RemoteName()

	remote, err := r.repo.Remote(name)
	if err != nil {
		if errors.Is(err, gogit.ErrRemoteNotFound) {
			return fmt.Errorf("%w: %s", ErrNoRemote, name)
		}
		return fmt.Errorf("get remote %s: %w", name, err)
	}

	specs, err := fetchRefSpecs(name, refNames)
	if err != nil {
		return err
	}

	auth, err := r.authFor(remote)
	if err != nil {
		return err
	}

	err = remote.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: name,
		RefSpecs:   specs,
		Auth:       auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch %s: %w", name, err)
	}
	return nil
}

func fetchRefSpecs(remote string, refNames []string) ([]gitconfig.RefSpec, error) {
	specs := make([]gitconfig.RefSpec, 0, len(refNames))
	for _, n := range refNames {
		spec := gitconfig.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", n, remote, n))
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("invalid refspec %q: %w", spec, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// authFor builds the credential for remote according to the auth options.
func (r *Repository) authFor(remote *gogit.Remote) (transport.AuthMethod, error) {
	method := r.opts.Auth.Method
	if method == "" || method == AuthAuto {
		method = AuthNone
		if urls := remote.Config().URLs; len(urls) > 0 {
			ep, err := transport.NewEndpoint(urls[0])
			if err != nil {
				return nil, fmt.Errorf("parse remote url: %w", err)
			}
			if ep.Protocol == "ssh" {
				method = AuthSSHAgent
			}
		}
	}

	user := r.opts.Auth.User
	switch method {
	case AuthSSHAgent:
		if user == "" {
			user = "git"
		}
		auth, err := gitssh.NewSSHAgentAuth(user)
		if err != nil {
			return nil, fmt.Errorf("ssh agent: %w", err)
		}
		return auth, nil
	case AuthBasic:
		token := os.Getenv(r.opts.Auth.TokenEnv)
		if token == "" {
			return nil, fmt.Errorf("basic auth: %s is not set", r.opts.Auth.TokenEnv)
		}
		return &githttp.BasicAuth{Username: user, Password: token}, nil
	case AuthNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown auth method %q", method)
	}
}
