package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"draftshare/internal/gitlocal"
	"draftshare/internal/model"

	git "github.com/go-git/go-git/v5"
)

// ErrUnknownRepository reports that an identity matched no indexed
// repository and no fallback was permitted.
var ErrUnknownRepository = errors.New("no local repository matches identity")

// virtualProvider is the only hosting provider supporting virtual read-only
// views.
const virtualProvider = "github"

// Options control how far OpenOrLocate may go to produce a handle.
type Options struct {
	OpenIfNeeded      bool
	KeepOpen          bool
	Prompt            bool
	SkipRefValidation bool
}

// Prompter asks the user for the local path of a repository the index does
// not know. An empty path means the user declined.
type Prompter func(ctx context.Context, identity *model.RepositoryIdentity) (string, error)

type Registry struct {
	store    *Store
	cacheDir string
	prompter Prompter

	mu   sync.Mutex
	open map[string]model.Repository
}

func New(store *Store, cacheDir string, prompter Prompter) *Registry {
	return &Registry{
		store:    store,
		cacheDir: cacheDir,
		prompter: prompter,
		open:     make(map[string]model.Repository),
	}
}

// Register indexes a locally open repository so later identity lookups can
// find it by fingerprint or remote URL.
func (g *Registry) Register(ctx context.Context, repo model.Repository) error {
	first, err := repo.FirstCommit(ctx)
	if err != nil {
		return fmt.Errorf("fingerprint repository: %w", err)
	}
	var remoteURL string
	if remote, err := repo.BestRemote(ctx); err == nil && remote != nil {
		remoteURL = remote.URL
	}
	_, err = g.store.Upsert(ctx, Record{
		Name:           repo.Name(),
		Path:           repo.Path(),
		FirstCommitSHA: first.SHA,
		RemoteURL:      remoteURL,
	})
	return err
}

// OpenOrLocate resolves an identity to a local repository handle: indexed
// lookup by fingerprint then remote URL, optionally opening the repository,
// optionally prompting the user when the index has no match. Returns
// ErrUnknownRepository when every permitted path is exhausted.
func (g *Registry) OpenOrLocate(ctx context.Context, identity *model.RepositoryIdentity, opts Options) (model.Repository, error) {
	rec, err := g.store.FindByFingerprint(ctx, identity.FirstCommitSHA)
	if errors.Is(err, ErrRecordNotFound) && identity.Remote != nil {
		rec, err = g.store.FindByRemoteURL(ctx, identity.Remote.URL)
	}
	if err == nil {
		return g.openRecord(ctx, rec, identity, opts)
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}

	if opts.Prompt && g.prompter != nil {
		path, err := g.prompter(ctx, identity)
		if err != nil {
			return nil, fmt.Errorf("prompt for repository: %w", err)
		}
		if path != "" {
			repo, err := g.openPath(path, identity, opts)
			if err != nil {
				return nil, err
			}
			if err := g.Register(ctx, repo); err != nil {
				return nil, err
			}
			return repo, nil
		}
	}
	return nil, ErrUnknownRepository
}

func (g *Registry) openRecord(ctx context.Context, rec Record, identity *model.RepositoryIdentity, opts Options) (model.Repository, error) {
	g.mu.Lock()
	cached, ok := g.open[rec.Path]
	g.mu.Unlock()
	if ok {
		return cached, nil
	}
	if !opts.OpenIfNeeded {
		return nil, ErrUnknownRepository
	}
	repo, err := g.openPath(rec.Path, identity, opts)
	if err != nil {
		return nil, err
	}
	if opts.KeepOpen {
		g.mu.Lock()
		g.open[rec.Path] = repo
		g.mu.Unlock()
	}
	return repo, nil
}

func (g *Registry) openPath(path string, identity *model.RepositoryIdentity, opts Options) (model.Repository, error) {
	repo, err := gitlocal.Open(path)
	if err != nil {
		return nil, err
	}
	if !opts.SkipRefValidation && identity.FirstCommitSHA != "" {
		first, err := repo.FirstCommit(context.Background())
		if err != nil {
			return nil, fmt.Errorf("validate repository fingerprint: %w", err)
		}
		if first.SHA != identity.FirstCommitSHA {
			return nil, fmt.Errorf("repository at %s does not match identity fingerprint %s", path, identity.ShortFingerprint())
		}
	}
	return repo, nil
}

// OpenVirtual opens a read-only view of a repository that is not available
// locally, backed by a shallow clone in the cache directory. Supported for
// the github provider only.
func (g *Registry) OpenVirtual(ctx context.Context, identity *model.RepositoryIdentity) (model.Repository, error) {
	if identity.Provider == nil || identity.Provider.ID != virtualProvider {
		return nil, fmt.Errorf("virtual repository views are not supported for identity %s", identity.ID)
	}
	cloneURL := fmt.Sprintf("https://github.com/%s/%s.git", identity.Provider.Owner, identity.Provider.Repo)
	key := identity.Provider.Owner + "/" + identity.Provider.Repo
	if identity.Remote != nil && identity.Remote.URL != "" {
		cloneURL = identity.Remote.URL
		if identity.Remote.Path != "" {
			key = identity.Remote.Path
		}
	}

	dir := filepath.Join(g.cacheDir, virtualProvider, sanitizeKey(key))
	if _, err := os.Stat(dir); err == nil {
		return gitlocal.Open(dir)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat virtual view dir: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, fmt.Errorf("create virtual view dir: %w", err)
	}
	if _, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{URL: cloneURL}); err != nil {
		return nil, fmt.Errorf("clone virtual view %s: %w", key, err)
	}
	return gitlocal.Open(dir)
}

func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}
