package drafts

// Wire shapes for the drafts service JSON protocol. Every endpoint wraps its
// payload in a {data: ...} envelope.

type draftEnvelope struct {
	Data draftResponse `json:"data"`
}

type draftListEnvelope struct {
	Data []draftResponse `json:"data"`
}

type changesetEnvelope struct {
	Data changesetResponse `json:"data"`
}

type changesetListEnvelope struct {
	Data []changesetResponse `json:"data"`
}

type patchEnvelope struct {
	Data patchResponse `json:"data"`
}

type repositoryEnvelope struct {
	Data repositoryIdentityResponse `json:"data"`
}

type usersEnvelope struct {
	Data []draftUserResponse `json:"data"`
}

type countsEnvelope struct {
	Data draftCountsResponse `json:"data"`
}

type draftResponse struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	CreatorID      string `json:"creatorId"`
	CreatorName    string `json:"creatorName"`
	CreatorEmail   string `json:"creatorEmail"`
	Role           string `json:"role"`
	Visibility     string `json:"visibility"`
	Published      bool   `json:"published"`
	Archived       bool   `json:"archived"`
	ArchivedReason string `json:"archivedReason"`
	ArchivedBy     string `json:"archivedBy"`
	ArchivedAt     string `json:"archivedAt"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

type changesetResponse struct {
	ID           string          `json:"id"`
	DraftID      string          `json:"draftId"`
	ParentID     string          `json:"parentId"`
	GitUserName  string          `json:"gitUserName"`
	GitUserEmail string          `json:"gitUserEmail"`
	Patches      []patchResponse `json:"patches"`
	CreatedAt    string          `json:"createdAt"`
	UpdatedAt    string          `json:"updatedAt"`
}

type patchResponse struct {
	ID                 string                      `json:"id"`
	DraftID            string                      `json:"draftId"`
	ChangesetID        string                      `json:"changesetId"`
	BaseBranch         string                      `json:"baseBranch"`
	BaseCommitSHA      string                      `json:"baseCommitSha"`
	GitRepository      *repositoryIdentityResponse `json:"gitRepository"`
	SecureUploadData   *secureBlobData             `json:"secureUploadData"`
	SecureDownloadData *secureBlobData             `json:"secureDownloadData"`
}

type secureBlobData struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
}

type repositoryIdentityResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	FirstCommitSHA string `json:"firstCommitSha"`
	RemoteURL      string `json:"remoteUrl"`
	RemoteDomain   string `json:"remoteDomain"`
	RemotePath     string `json:"remotePath"`
	Provider       string `json:"provider"`
	ProviderOwner  string `json:"providerOwner"`
	ProviderRepo   string `json:"providerRepo"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

type draftUserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type draftCountsResponse struct {
	Open     int `json:"open"`
	Archived int `json:"archived"`
}

// Request bodies.

type createDraftRequest struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Visibility  string `json:"visibility"`
}

type createChangesetRequest struct {
	GitUserName  string              `json:"gitUserName,omitempty"`
	GitUserEmail string              `json:"gitUserEmail,omitempty"`
	Patches      []patchCreateRequest `json:"patches"`
}

type patchCreateRequest struct {
	BaseBranch    string               `json:"baseBranch"`
	BaseCommitSHA string               `json:"baseCommitSha"`
	GitRepository gitRepositoryRequest `json:"gitRepository"`
}

// gitRepositoryRequest carries the repository-identity descriptor sent with
// a patch: fingerprint-only when no provider-recognized remote exists.
type gitRepositoryRequest struct {
	Name           string `json:"name,omitempty"`
	FirstCommitSHA string `json:"firstCommitSha"`
	RemoteURL      string `json:"remoteUrl,omitempty"`
	RemoteDomain   string `json:"remoteDomain,omitempty"`
	RemotePath     string `json:"remotePath,omitempty"`
	Provider       string `json:"provider,omitempty"`
	ProviderOwner  string `json:"providerOwner,omitempty"`
	ProviderRepo   string `json:"providerRepo,omitempty"`
}

type publishRequest struct {
	PREntityID string `json:"prEntityId,omitempty"`
}

type updateDraftRequest struct {
	Visibility     string `json:"visibility,omitempty"`
	Archived       *bool  `json:"archived,omitempty"`
	ArchivedReason string `json:"archivedReason,omitempty"`
}

type addUsersRequest struct {
	Users []draftUserRequest `json:"users"`
}

type draftUserRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}
