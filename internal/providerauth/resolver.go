package providerauth

import (
	"context"
	"fmt"
	"log/slog"

	"draftshare/internal/identity"
	"draftshare/internal/model"
)

type Resolver struct {
	sessions   SessionStore
	identities *identity.Resolver
	logger     *slog.Logger
}

func NewResolver(sessions SessionStore, identities *identity.Resolver, logger *slog.Logger) *Resolver {
	return &Resolver{sessions: sessions, identities: identities, logger: logger}
}

// FromRepository resolves provider auth for a repository: best remote, its
// integration, then an active session. A nil auth with nil error means some
// link is missing; absence of a provider integration is a normal state.
func (r *Resolver) FromRepository(ctx context.Context, repo model.Repository) (*model.ProviderAuth, error) {
	remote, err := repo.BestRemote(ctx)
	if err != nil {
		return nil, fmt.Errorf("find provider remote: %w", err)
	}
	integration, ok := IntegrationForRemote(remote)
	if !ok {
		return nil, nil
	}
	return r.fromIntegration(ctx, integration)
}

// FromIntegrationID resolves provider auth from static integration metadata.
func (r *Resolver) FromIntegrationID(ctx context.Context, id string) (*model.ProviderAuth, error) {
	integration, ok := LookupIntegration(id)
	if !ok {
		return nil, nil
	}
	return r.fromIntegration(ctx, integration)
}

// ForDraft scans the draft's patches for the most recently encountered one
// with a resolvable repository and resolves auth from it.
func (r *Resolver) ForDraft(ctx context.Context, draft *model.Draft) (*model.ProviderAuth, error) {
	var repo model.Repository
	for _, changeset := range draft.Changesets {
		for _, patch := range changeset.Patches {
			if local, ok := patch.Repo.Local(); ok {
				repo = local
				continue
			}
			if id, ok := patch.Repo.Identity(); ok && r.identities != nil {
				ref := r.identities.Resolve(ctx, id, identity.ResolveOptions{})
				if local, ok := ref.Local(); ok {
					repo = local
				}
			}
		}
	}
	if repo == nil {
		return nil, nil
	}
	return r.FromRepository(ctx, repo)
}

func (r *Resolver) fromIntegration(ctx context.Context, integration Integration) (*model.ProviderAuth, error) {
	if r.sessions == nil {
		return nil, nil
	}
	token, ok, err := r.sessions.ActiveSession(ctx, integration.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup session for %s: %w", integration.ID, err)
	}
	if !ok {
		r.logger.Debug("no active provider session", "integration", integration.ID)
		return nil, nil
	}
	return &model.ProviderAuth{IntegrationID: integration.ID, Token: token}, nil
}
