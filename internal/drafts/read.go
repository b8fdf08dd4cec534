package drafts

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"draftshare/internal/gitlocal"
	"draftshare/internal/identity"
	"draftshare/internal/model"
)

// GetDraft fetches the draft header and its changeset list concurrently.
// Each fetch failing produces its own attributable error so callers can tell
// which half broke.
func (s *Service) GetDraft(ctx context.Context, id string, auth *model.ProviderAuth) (draft *model.Draft, err error) {
	done := s.logOp("getDraft", "draft", id)
	defer func() { done(err) }()

	hdr := providerAuthHeader(auth)

	var (
		wg sync.WaitGroup

		header    draftEnvelope
		headerErr error

		changesets    changesetListEnvelope
		changesetsErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		headerErr = s.tp.JSON(ctx, "fetch draft", http.MethodGet, "/v1/drafts/"+id, nil, &header, hdr)
	}()
	go func() {
		defer wg.Done()
		changesetsErr = s.tp.JSON(ctx, "fetch draft changesets", http.MethodGet, "/v1/drafts/"+id+"/changesets", nil, &changesets, hdr)
	}()
	wg.Wait()

	if headerErr != nil {
		return nil, fmt.Errorf("fetch draft header %s: %w", id, headerErr)
	}
	if changesetsErr != nil {
		return nil, fmt.Errorf("fetch draft changesets %s: %w", id, changesetsErr)
	}

	result := formatDraft(header.Data, s.normalizeCtx(false))
	result.Changesets = make([]model.Changeset, 0, len(changesets.Data))
	for _, cs := range changesets.Data {
		result.Changesets = append(result.Changesets, formatChangeset(cs))
	}
	return &result, nil
}

// GetDrafts lists drafts, optionally filtered by archive state or by a
// linked external work item (the latter requires provider auth).
func (s *Service) GetDrafts(ctx context.Context, filter model.DraftFilter, auth *model.ProviderAuth) (drafts []model.Draft, err error) {
	done := s.logOp("getDrafts")
	defer func() { done(err) }()

	query := url.Values{}
	if filter.Archived != nil {
		query.Set("archived", strconv.FormatBool(*filter.Archived))
	}
	if filter.PREntityID != "" {
		query.Set("prEntityId", filter.PREntityID)
	}
	path := "/v1/drafts"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var list draftListEnvelope
	if err = s.tp.JSON(ctx, "list drafts", http.MethodGet, path, nil, &list, providerAuthHeader(auth)); err != nil {
		return nil, err
	}

	nctx := s.normalizeCtx(filter.PREntityID != "")
	drafts = make([]model.Draft, 0, len(list.Data))
	for _, resp := range list.Data {
		drafts = append(drafts, formatDraft(resp, nctx))
	}
	return drafts, nil
}

// GetSuggestionsForItem fetches the code-suggestion drafts linked to one
// external work item. Failure is swallowed into an empty result: absence of
// suggestions is not exceptional for this caller.
func (s *Service) GetSuggestionsForItem(ctx context.Context, prEntityID string, auth *model.ProviderAuth) []model.Draft {
	drafts, err := s.GetDrafts(ctx, model.DraftFilter{PREntityID: prEntityID}, auth)
	if err != nil {
		s.logger.Warn("suggestion lookup failed, returning none", "pr_entity", prEntityID, "err", err)
		return nil
	}
	return drafts
}

// GetPatch fetches patch metadata without hydrating content.
func (s *Service) GetPatch(ctx context.Context, id string) (patch *model.Patch, err error) {
	done := s.logOp("getPatch", "patch", id)
	defer func() { done(err) }()

	var envelope patchEnvelope
	if err = s.tp.JSON(ctx, "fetch patch", http.MethodGet, "/v1/patches/"+id, nil, &envelope, nil); err != nil {
		return nil, err
	}
	result := formatPatch(envelope.Data)
	return &result, nil
}

// GetPatchDetailsByID fetches a patch and hydrates it.
func (s *Service) GetPatchDetailsByID(ctx context.Context, id string) (*model.Patch, error) {
	patch, err := s.GetPatch(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.GetPatchDetails(ctx, patch)
}

// GetPatchDetails hydrates a patch: downloads its blob content and resolves
// its repository reference concurrently, then derives the file-change list
// scoped to the resolved repository path (empty when only an identity could
// be resolved).
func (s *Service) GetPatchDetails(ctx context.Context, patch *model.Patch) (hydrated *model.Patch, err error) {
	done := s.logOp("getPatchDetails", "patch", patch.ID)
	defer func() { done(err) }()

	var (
		wg sync.WaitGroup

		content     []byte
		downloadErr error

		repoRef = patch.Repo
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		content, downloadErr = s.tp.Download(ctx, patch.Blob)
	}()
	go func() {
		defer wg.Done()
		if id, ok := patch.Repo.Identity(); ok && s.identities != nil {
			repoRef = s.identities.Resolve(ctx, id, identity.ResolveOptions{AllowVirtual: true})
		}
	}()
	wg.Wait()

	if downloadErr != nil {
		return nil, fmt.Errorf("hydrate patch %s: %w", patch.ID, downloadErr)
	}

	rootPath := ""
	if local, ok := repoRef.Local(); ok {
		rootPath = local.Path()
	}

	result := *patch
	result.Repo = repoRef
	result.Contents = string(content)
	result.Files = gitlocal.ParseDiffFiles(result.Contents, rootPath)
	return &result, nil
}

// GetDraftCounts returns open/archived draft totals.
func (s *Service) GetDraftCounts(ctx context.Context) (counts model.DraftCounts, err error) {
	done := s.logOp("getDraftCounts")
	defer func() { done(err) }()

	var envelope countsEnvelope
	if err = s.tp.JSON(ctx, "fetch draft counts", http.MethodGet, "/v1/drafts/counts", nil, &envelope, nil); err != nil {
		return model.DraftCounts{}, err
	}
	return model.DraftCounts{Open: envelope.Data.Open, Archived: envelope.Data.Archived}, nil
}

// GetDraftRepository fetches one repository identity attached to a draft.
func (s *Service) GetDraftRepository(ctx context.Context, draftID, repoID string) (id *model.RepositoryIdentity, err error) {
	done := s.logOp("getDraftRepository", "draft", draftID, "repo", repoID)
	defer func() { done(err) }()

	var envelope repositoryEnvelope
	if err = s.tp.JSON(ctx, "fetch draft repository", http.MethodGet, "/v1/drafts/"+draftID+"/git-repositories/"+repoID, nil, &envelope, nil); err != nil {
		return nil, err
	}
	return formatRepositoryIdentity(envelope.Data), nil
}
