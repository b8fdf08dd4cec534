// Package gitlocal implements the git data-provider capability on top of
// go-git. One Repo wraps one locally open repository.
package gitlocal

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"draftshare/internal/model"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// providerHosts maps remote domains to provider ids. Only remotes on these
// hosts qualify as a "best remote" for building repository identities.
var providerHosts = map[string]string{
	"github.com":    "github",
	"gitlab.com":    "gitlab",
	"bitbucket.org": "bitbucket",
}

type Repo struct {
	path string
	repo *git.Repository
}

func Open(path string) (*Repo, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open repo %s: %w", path, err)
	}
	return &Repo{path: path, repo: repo}, nil
}

func (r *Repo) Path() string { return r.path }

func (r *Repo) Name() string { return filepath.Base(r.path) }

// Diff returns the unified diff between two revisions. A to of
// model.WorkingStateRev diffs the from revision against the working tree.
func (r *Repo) Diff(ctx context.Context, from, to string) (string, error) {
	fromCommit, err := r.commitAt(from)
	if err != nil {
		return "", err
	}
	fromTree, err := fromCommit.Tree()
	if err != nil {
		return "", fmt.Errorf("read tree %s: %w", from, err)
	}

	if to == model.WorkingStateRev {
		return r.worktreeDiff(fromTree)
	}

	toCommit, err := r.commitAt(to)
	if err != nil {
		return "", err
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return "", fmt.Errorf("read tree %s: %w", to, err)
	}
	changes, err := object.DiffTreeWithOptions(ctx, fromTree, toTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return "", fmt.Errorf("diff trees: %w", err)
	}
	if len(changes) == 0 {
		return "", nil
	}
	patch, err := changes.PatchContext(ctx)
	if err != nil {
		return "", fmt.Errorf("render patch: %w", err)
	}
	return patch.String(), nil
}

// CurrentBranch returns the short name of the checked-out branch, or "HEAD"
// when detached.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return "HEAD", nil
}

// BranchesContaining returns the short names of local branches whose history
// contains every given revision, sorted for stable output.
func (r *Repo) BranchesContaining(ctx context.Context, revs ...string) ([]string, error) {
	commits := make([]*object.Commit, 0, len(revs))
	for _, rev := range revs {
		commit, err := r.commitAt(rev)
		if err != nil {
			return nil, err
		}
		commits = append(commits, commit)
	}

	branches, err := r.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer branches.Close()

	var names []string
	err = branches.ForEach(func(ref *plumbing.Reference) error {
		tip, err := r.repo.CommitObject(ref.Hash())
		if err != nil {
			return fmt.Errorf("read branch tip %s: %w", ref.Name().Short(), err)
		}
		for _, commit := range commits {
			if commit.Hash == tip.Hash {
				continue
			}
			ancestor, err := commit.IsAncestor(tip)
			if err != nil {
				return fmt.Errorf("check ancestry on %s: %w", ref.Name().Short(), err)
			}
			if !ancestor {
				return nil
			}
		}
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// FirstCommit walks history from HEAD and returns the root commit, the
// repository's stable fingerprint.
func (r *Repo) FirstCommit(ctx context.Context) (model.Commit, error) {
	head, err := r.repo.Head()
	if err != nil {
		return model.Commit{}, fmt.Errorf("read HEAD: %w", err)
	}
	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return model.Commit{}, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	var root *object.Commit
	err = iter.ForEach(func(commit *object.Commit) error {
		if commit.NumParents() == 0 {
			root = commit
		}
		return nil
	})
	if err != nil {
		return model.Commit{}, fmt.Errorf("iterate log: %w", err)
	}
	if root == nil {
		return model.Commit{}, fmt.Errorf("no root commit reachable from HEAD")
	}
	return toCommit(root), nil
}

// BestRemote returns the first configured remote whose host is a recognized
// provider, preferring origin. A nil remote with nil error means no remote
// qualifies; that is a normal state, not a failure.
func (r *Repo) BestRemote(ctx context.Context) (*model.Remote, error) {
	remotes, err := r.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("list remotes: %w", err)
	}
	sort.SliceStable(remotes, func(i, j int) bool {
		return remotes[i].Config().Name == "origin" && remotes[j].Config().Name != "origin"
	})
	for _, remote := range remotes {
		cfg := remote.Config()
		if len(cfg.URLs) == 0 {
			continue
		}
		parsed := ParseRemoteURL(cfg.URLs[0])
		provider, ok := providerHosts[parsed.Domain]
		if !ok {
			continue
		}
		parsed.Name = cfg.Name
		parsed.Provider = &model.ProviderInfo{ID: provider}
		if owner, repoName, ok := splitOwnerRepo(parsed.Path); ok {
			parsed.Provider.Owner = owner
			parsed.Provider.Repo = repoName
		}
		return &parsed, nil
	}
	return nil, nil
}

func (r *Repo) GitUser(ctx context.Context) (model.GitUser, error) {
	cfg, err := r.repo.ConfigScoped(config.GlobalScope)
	if err != nil {
		return model.GitUser{}, fmt.Errorf("read git config: %w", err)
	}
	return model.GitUser{Name: cfg.User.Name, Email: cfg.User.Email}, nil
}

func (r *Repo) LookupCommit(ctx context.Context, rev string) (model.Commit, error) {
	commit, err := r.commitAt(rev)
	if err != nil {
		return model.Commit{}, err
	}
	return toCommit(commit), nil
}

func (r *Repo) commitAt(rev string) (*object.Commit, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolve revision %s: %w", rev, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", rev, err)
	}
	return commit, nil
}

func toCommit(commit *object.Commit) model.Commit {
	return model.Commit{
		SHA:         commit.Hash.String(),
		Message:     commit.Message,
		AuthorName:  commit.Author.Name,
		AuthorEmail: commit.Author.Email,
		CommittedAt: commit.Author.When,
	}
}

// ParseRemoteURL extracts domain and path from https, ssh, and scp-like git
// remote URLs.
func ParseRemoteURL(raw string) model.Remote {
	remote := model.Remote{URL: raw}
	rest := raw
	switch {
	case strings.Contains(rest, "://"):
		parts := strings.SplitN(rest, "://", 2)
		rest = parts[1]
		if at := strings.Index(rest, "@"); at >= 0 {
			rest = rest[at+1:]
		}
		if slash := strings.Index(rest, "/"); slash >= 0 {
			remote.Domain = rest[:slash]
			remote.Path = strings.TrimPrefix(rest[slash:], "/")
		} else {
			remote.Domain = rest
		}
	case strings.Contains(rest, "@") && strings.Contains(rest, ":"):
		// scp-like: git@host:owner/repo.git
		rest = rest[strings.Index(rest, "@")+1:]
		if colon := strings.Index(rest, ":"); colon >= 0 {
			remote.Domain = rest[:colon]
			remote.Path = rest[colon+1:]
		}
	default:
		remote.Path = rest
	}
	if colon := strings.Index(remote.Domain, ":"); colon >= 0 {
		remote.Domain = remote.Domain[:colon]
	}
	remote.Path = strings.TrimSuffix(strings.TrimSuffix(remote.Path, "/"), ".git")
	return remote
}

func splitOwnerRepo(path string) (string, string, bool) {
	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[len(parts)-2], parts[len(parts)-1], true
}
