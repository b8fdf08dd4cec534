package drafts

import (
	"time"

	"draftshare/internal/model"
)

// normalizeContext carries the explicit inputs normalization needs instead of
// reading ambient account state: the active account, a fallback author name,
// and whether the draft was fetched in the context of a linked work item.
type normalizeContext struct {
	account            model.Account
	fallbackAuthorName string
	fromPREntity       bool
}

// formatDraft maps a wire draft into the domain model. Pure and
// deterministic: role and ownership defaulting here is idempotent, so
// normalizing an already-normalized shape yields the same result.
func formatDraft(resp draftResponse, nctx normalizeContext) model.Draft {
	author := model.Author{
		ID:    resp.CreatorID,
		Name:  resp.CreatorName,
		Email: resp.CreatorEmail,
	}
	if author.Name == "" {
		author.Name = nctx.fallbackAuthorName
	}
	if resp.CreatorID != "" && resp.CreatorID == nctx.account.ID {
		author.IsMine = true
		author.Name = nctx.account.Name + " (you)"
	}

	role := model.Role(resp.Role)
	if role == "" {
		if nctx.fromPREntity {
			role = model.RoleEditor
		} else {
			role = model.RoleViewer
		}
	}

	createdAt := parseTime(resp.CreatedAt)
	updatedAt := parseTime(resp.UpdatedAt)
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	archive := model.ArchiveState{
		Archived:   resp.Archived,
		Reason:     resp.ArchivedReason,
		ArchivedBy: resp.ArchivedBy,
	}
	if resp.ArchivedAt != "" {
		if at := parseTime(resp.ArchivedAt); !at.IsZero() {
			archive.ArchivedAt = &at
		}
	}

	return model.Draft{
		ID:          resp.ID,
		Type:        model.DraftType(resp.Type),
		Author:      author,
		Role:        role,
		Visibility:  model.Visibility(resp.Visibility),
		Published:   resp.Published,
		Archive:     archive,
		Title:       resp.Title,
		Description: resp.Description,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

func formatChangeset(resp changesetResponse) model.Changeset {
	createdAt := parseTime(resp.CreatedAt)
	updatedAt := parseTime(resp.UpdatedAt)
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	patches := make([]model.Patch, 0, len(resp.Patches))
	for _, patch := range resp.Patches {
		patches = append(patches, formatPatch(patch))
	}
	return model.Changeset{
		ID:           resp.ID,
		DraftID:      resp.DraftID,
		ParentID:     resp.ParentID,
		GitUserName:  resp.GitUserName,
		GitUserEmail: resp.GitUserEmail,
		Patches:      patches,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
}

// formatPatch maps a wire patch. Contents, files, and repository resolution
// are hydrated on demand by the orchestrator, never here.
func formatPatch(resp patchResponse) model.Patch {
	patch := model.Patch{
		ID:            resp.ID,
		DraftID:       resp.DraftID,
		ChangesetID:   resp.ChangesetID,
		BaseBranch:    resp.BaseBranch,
		BaseCommitSHA: resp.BaseCommitSHA,
	}
	if blob := firstBlob(resp.SecureDownloadData, resp.SecureUploadData); blob != nil {
		patch.Blob = model.SecureBlobRef{URL: blob.URL, Method: blob.Method, Headers: blob.Headers}
	}
	if resp.GitRepository != nil {
		patch.Repo = model.UnresolvedRepo(formatRepositoryIdentity(*resp.GitRepository))
	}
	return patch
}

func formatRepositoryIdentity(resp repositoryIdentityResponse) *model.RepositoryIdentity {
	id := &model.RepositoryIdentity{
		ID:             resp.ID,
		Name:           resp.Name,
		FirstCommitSHA: resp.FirstCommitSHA,
		CreatedAt:      parseTime(resp.CreatedAt),
		UpdatedAt:      parseTime(resp.UpdatedAt),
	}
	if resp.RemoteURL != "" || resp.RemoteDomain != "" || resp.RemotePath != "" {
		id.Remote = &model.RemoteInfo{URL: resp.RemoteURL, Domain: resp.RemoteDomain, Path: resp.RemotePath}
	}
	if resp.Provider != "" {
		id.Provider = &model.ProviderInfo{ID: resp.Provider, Owner: resp.ProviderOwner, Repo: resp.ProviderRepo}
	}
	return id
}

func formatDraftUser(resp draftUserResponse) model.DraftUser {
	return model.DraftUser{
		ID:    resp.ID,
		Name:  resp.Name,
		Email: resp.Email,
		Role:  model.Role(resp.Role),
	}
}

func firstBlob(blobs ...*secureBlobData) *secureBlobData {
	for _, blob := range blobs {
		if blob != nil && blob.URL != "" {
			return blob
		}
	}
	return nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
