package drafts

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"draftshare/internal/gitlocal"
	"draftshare/internal/model"
)

// CreateOptions carries the optional inputs of CreateDraft.
type CreateOptions struct {
	Description string
	Visibility  model.Visibility
	PREntityID  string
}

// CreateDraft resolves every requested change locally, then drives the
// remote protocol: create draft, create changeset, upload each patch blob,
// publish, re-fetch. The returned Draft carries one changeset populated with
// the uploaded, hydrated patches.
//
// Once the changeset is created remotely, a later failure leaves an orphaned
// draft on the service. That inconsistency is accepted and not rolled back.
func (s *Service) CreateDraft(ctx context.Context, draftType model.DraftType, title string, changes []model.CreateDraftChange, opts CreateOptions) (draft *model.Draft, err error) {
	done := s.logOp("createDraft", "type", string(draftType), "changes", len(changes))
	defer func() { done(err) }()

	if len(changes) == 0 {
		return nil, fmt.Errorf("no changes provided")
	}

	// Fan out per-change resolution; every attempt settles before failures
	// are inspected so one bad change never cancels its siblings.
	type buildResult struct {
		built builtPatch
		err   error
	}
	results := make([]buildResult, len(changes))
	var wg sync.WaitGroup
	for i, change := range changes {
		wg.Add(1)
		go func(i int, change model.CreateDraftChange) {
			defer wg.Done()
			built, err := s.buildPatchRequest(ctx, change)
			results[i] = buildResult{built: built, err: err}
		}(i, change)
	}
	wg.Wait()

	var built []builtPatch
	var failures []error
	for _, result := range results {
		switch {
		case result.err != nil:
			failures = append(failures, result.err)
		case result.built.empty():
			// Self-canceling change, dropped without failing the operation.
		default:
			built = append(built, result.built)
		}
	}
	if len(failures) > 0 {
		return nil, &AggregateError{Op: "resolve changes", Causes: failures}
	}
	if len(built) == 0 {
		return nil, fmt.Errorf("no changes")
	}

	var hdr http.Header
	if draftType == model.DraftTypeSuggestion {
		if opts.PREntityID == "" {
			return nil, fmt.Errorf("code suggestion requires a linked work item id")
		}
		auth, err := s.auth.FromRepository(ctx, built[0].repo)
		if err != nil {
			return nil, err
		}
		if auth == nil {
			return nil, fmt.Errorf("no provider integration available for %s", built[0].repo.Name())
		}
		hdr = providerAuthHeader(auth)
	}

	visibility := opts.Visibility
	if visibility == "" {
		visibility = model.VisibilityPublic
	}

	var created draftEnvelope
	err = s.tp.JSON(ctx, "create draft", http.MethodPost, "/v1/drafts", createDraftRequest{
		Type:        string(draftType),
		Title:       title,
		Description: opts.Description,
		Visibility:  string(visibility),
	}, &created, hdr)
	if err != nil {
		return nil, err
	}
	draftID := created.Data.ID

	changesetReq := createChangesetRequest{
		GitUserName:  built[0].gitUser.Name,
		GitUserEmail: built[0].gitUser.Email,
		Patches:      make([]patchCreateRequest, 0, len(built)),
	}
	for _, patch := range built {
		changesetReq.Patches = append(changesetReq.Patches, patch.req)
	}
	var changeset changesetEnvelope
	err = s.tp.JSON(ctx, "create changeset", http.MethodPost, "/v1/drafts/"+draftID+"/changesets", changesetReq, &changeset, hdr)
	if err != nil {
		return nil, err
	}
	if len(changeset.Data.Patches) != len(built) {
		return nil, fmt.Errorf("create changeset: expected %d patches, got %d", len(built), len(changeset.Data.Patches))
	}

	// Upload every patch blob; the changeset is already committed remotely,
	// so any upload failure is fatal rather than aggregated.
	if err = s.uploadPatches(ctx, changeset.Data.Patches, built); err != nil {
		return nil, err
	}

	var publishBody any
	if opts.PREntityID != "" {
		publishBody = publishRequest{PREntityID: opts.PREntityID}
	}
	if err = s.tp.JSON(ctx, "publish draft", http.MethodPost, "/v1/drafts/"+draftID+"/publish", publishBody, nil, hdr); err != nil {
		return nil, err
	}

	var final draftEnvelope
	if err = s.tp.JSON(ctx, "fetch draft", http.MethodGet, "/v1/drafts/"+draftID, nil, &final, hdr); err != nil {
		return nil, err
	}

	result := formatDraft(final.Data, s.normalizeCtx(opts.PREntityID != ""))
	cs := formatChangeset(changeset.Data)
	for i := range cs.Patches {
		cs.Patches[i].Repo = model.LocalRepo(built[i].repo)
		cs.Patches[i].Contents = built[i].diff
		cs.Patches[i].Files = gitlocal.ParseDiffFiles(built[i].diff, built[i].repo.Path())
	}
	result.Changesets = []model.Changeset{cs}
	return &result, nil
}

// uploadPatches pushes each diff to its order-correlated upload target. The
// uploads run concurrently and all settle; the first failure is returned.
func (s *Service) uploadPatches(ctx context.Context, patches []patchResponse, built []builtPatch) error {
	errs := make([]error, len(patches))
	var wg sync.WaitGroup
	for i, patch := range patches {
		if patch.SecureUploadData == nil {
			return fmt.Errorf("patch %s has no upload target", patch.ID)
		}
		wg.Add(1)
		go func(i int, ref model.SecureBlobRef) {
			defer wg.Done()
			errs[i] = s.tp.Upload(ctx, ref, []byte(built[i].diff))
		}(i, model.SecureBlobRef{
			URL:     patch.SecureUploadData.URL,
			Method:  patch.SecureUploadData.Method,
			Headers: patch.SecureUploadData.Headers,
		})
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
