// Package identity maps remote repository identities back to usable local
// repository handles, with virtual-view and interactive fallbacks.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"draftshare/internal/gitlocal"
	"draftshare/internal/model"
	"draftshare/internal/registry"
)

// ResolveOptions control which fallback paths Resolve may take after the
// direct registry lookup fails.
type ResolveOptions struct {
	AllowVirtual bool
	AllowPrompt  bool
	KeepOpen     bool
}

type Resolver struct {
	registry *registry.Registry
	logger   *slog.Logger
}

func NewResolver(reg *registry.Registry, logger *slog.Logger) *Resolver {
	return &Resolver{registry: reg, logger: logger}
}

// Resolve attempts, in order: direct lookup against locally known
// repositories, a virtual read-only view, and an interactive prompt. When
// every permitted path fails the original identity is returned unchanged;
// callers must branch on which side of the RepoRef is populated.
func (r *Resolver) Resolve(ctx context.Context, id *model.RepositoryIdentity, opts ResolveOptions) model.RepoRef {
	repo, err := r.registry.OpenOrLocate(ctx, id, registry.Options{
		OpenIfNeeded: true,
		KeepOpen:     opts.KeepOpen,
	})
	if err == nil {
		return model.LocalRepo(repo)
	}
	if !errors.Is(err, registry.ErrUnknownRepository) {
		r.logger.Warn("repository lookup failed", "identity", id.ID, "err", err)
	}

	if opts.AllowVirtual {
		view, err := r.registry.OpenVirtual(ctx, id)
		if err == nil {
			return model.LocalRepo(view)
		}
		r.logger.Debug("virtual view unavailable", "identity", id.ID, "err", err)
	}

	if opts.AllowPrompt {
		repo, err := r.registry.OpenOrLocate(ctx, id, registry.Options{
			OpenIfNeeded: true,
			KeepOpen:     opts.KeepOpen,
			Prompt:       true,
		})
		if err == nil {
			return model.LocalRepo(repo)
		}
		if !errors.Is(err, registry.ErrUnknownRepository) {
			r.logger.Warn("prompted repository lookup failed", "identity", id.ID, "err", err)
		}
	}

	return model.UnresolvedRepo(id)
}

// DisplayName produces a human-readable name for an identity: explicit name,
// provider repo name, a name derived from the remote URL, the raw remote
// path, then a synthesized label from the fingerprint.
func DisplayName(id *model.RepositoryIdentity) string {
	if id.Name != "" {
		return id.Name
	}
	if id.Provider != nil && id.Provider.Repo != "" {
		return id.Provider.Repo
	}
	if id.Remote != nil {
		if id.Remote.URL != "" {
			parsed := gitlocal.ParseRemoteURL(id.Remote.URL)
			if parsed.Path != "" {
				segments := strings.Split(parsed.Path, "/")
				return segments[len(segments)-1]
			}
		}
		if id.Remote.Path != "" {
			return id.Remote.Path
		}
	}
	return fmt.Sprintf("Unknown (%s)", id.ShortFingerprint())
}
