// Package model holds the domain types shared across the draftshare client:
// drafts, changesets, patches, repository identities, and the capability
// interfaces implemented by the git and registry layers.
package model

import (
	"context"
	"fmt"
	"time"
)

type DraftType string

const (
	DraftTypeShared     DraftType = "SHARED"
	DraftTypeSuggestion DraftType = "CODE_SUGGESTION"
)

type Visibility string

const (
	VisibilityPublic   Visibility = "PUBLIC"
	VisibilityProvider Visibility = "PROVIDER_MEMBERS"
	VisibilityPrivate  Visibility = "PRIVATE"
)

type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleOwner  Role = "owner"
)

// Author identifies the creator of a draft. IsMine is derived at
// normalization time by comparing CreatorID against the active account.
type Author struct {
	ID     string
	Name   string
	Email  string
	IsMine bool
}

type ArchiveState struct {
	Archived   bool
	Reason     string
	ArchivedBy string
	ArchivedAt *time.Time
}

// Draft is a shareable bundle of code changes hosted remotely. Instances are
// immutable once constructed; operations replace a Draft wholesale instead of
// mutating fields in place.
type Draft struct {
	ID          string
	Type        DraftType
	Author      Author
	Role        Role
	Visibility  Visibility
	Published   bool
	Archive     ArchiveState
	Title       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Changesets  []Changeset
}

// Changeset is one revision of a draft's contents.
type Changeset struct {
	ID           string
	DraftID      string
	ParentID     string
	GitUserName  string
	GitUserEmail string
	Patches      []Patch
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type FileStatus string

const (
	FileAdded    FileStatus = "added"
	FileModified FileStatus = "modified"
	FileDeleted  FileStatus = "deleted"
	FileRenamed  FileStatus = "renamed"
)

type FileChange struct {
	Path    string
	OldPath string
	Status  FileStatus
}

// SecureBlobRef is a pre-authorized, time-limited reference to the object
// storage location holding a patch's diff content.
type SecureBlobRef struct {
	URL     string
	Method  string
	Headers map[string]string
}

func (r SecureBlobRef) IsZero() bool { return r.URL == "" }

// Patch is a single repository's diff within a changeset. Contents and Files
// are hydrated on demand and are either both set or both absent.
type Patch struct {
	ID            string
	DraftID       string
	ChangesetID   string
	BaseBranch    string
	BaseCommitSHA string
	Repo          RepoRef
	Blob          SecureBlobRef
	Contents      string
	Files         []FileChange
}

type RemoteInfo struct {
	URL    string
	Domain string
	Path   string
}

type ProviderInfo struct {
	ID    string
	Owner string
	Repo  string
}

// RepositoryIdentity describes a repository the remote service knows about,
// without requiring it to be locally open. FirstCommitSHA is the stable
// fingerprint used to match it against local repositories.
type RepositoryIdentity struct {
	ID             string
	Name           string
	FirstCommitSHA string
	Remote         *RemoteInfo
	Provider       *ProviderInfo
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ShortFingerprint returns the abbreviated first-commit fingerprint used in
// synthesized display names.
func (id *RepositoryIdentity) ShortFingerprint() string {
	if len(id.FirstCommitSHA) > 8 {
		return id.FirstCommitSHA[:8]
	}
	return id.FirstCommitSHA
}

type Commit struct {
	SHA         string
	Message     string
	AuthorName  string
	AuthorEmail string
	CommittedAt time.Time
}

type GitUser struct {
	Name  string
	Email string
}

// Remote is a configured git remote with its parsed location and, when the
// host is a recognized code-hosting provider, the provider descriptor.
type Remote struct {
	Name     string
	URL      string
	Domain   string
	Path     string
	Provider *ProviderInfo
}

// WorkingStateRev marks the "to" side of a revision range as the uncommitted
// working tree rather than a committed revision.
const WorkingStateRev = "WORKING_STATE"

// Repository is the git data-provider capability consumed by the drafts
// core. The gitlocal package implements it on go-git; tests substitute fakes.
type Repository interface {
	Path() string
	Name() string
	Diff(ctx context.Context, from, to string) (string, error)
	CurrentBranch(ctx context.Context) (string, error)
	BranchesContaining(ctx context.Context, revs ...string) ([]string, error)
	FirstCommit(ctx context.Context) (Commit, error)
	BestRemote(ctx context.Context) (*Remote, error)
	GitUser(ctx context.Context) (GitUser, error)
	LookupCommit(ctx context.Context, rev string) (Commit, error)
}

// RepoRef is a tagged union: either a resolved local repository handle or an
// unresolved remote repository identity. Callers must branch on which side is
// populated and never assume resolution succeeded.
type RepoRef struct {
	repo     Repository
	identity *RepositoryIdentity
}

func LocalRepo(r Repository) RepoRef {
	return RepoRef{repo: r}
}

func UnresolvedRepo(id *RepositoryIdentity) RepoRef {
	return RepoRef{identity: id}
}

func (r RepoRef) Local() (Repository, bool) {
	return r.repo, r.repo != nil
}

func (r RepoRef) Identity() (*RepositoryIdentity, bool) {
	return r.identity, r.identity != nil
}

func (r RepoRef) IsZero() bool {
	return r.repo == nil && r.identity == nil
}

func (r RepoRef) String() string {
	switch {
	case r.repo != nil:
		return fmt.Sprintf("local:%s", r.repo.Path())
	case r.identity != nil:
		return fmt.Sprintf("identity:%s", r.identity.ID)
	default:
		return "none"
	}
}

// CreateDraftChange is one requested change in a createDraft call. ToRev may
// be WorkingStateRev to capture the uncommitted working tree. DiffContent,
// when non-empty, overrides local diff computation.
type CreateDraftChange struct {
	Repo        Repository
	FromRev     string
	ToRev       string
	DiffContent string
	PREntityID  string
}

// ProviderAuth is a short-lived credential for acting against a code-hosting
// integration. Built per call, never persisted.
type ProviderAuth struct {
	IntegrationID string
	Token         string
}

type Account struct {
	ID    string
	Name  string
	Email string
}

type DraftUser struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

type DraftCounts struct {
	Open     int
	Archived int
}

// DraftFilter narrows getDrafts results. PREntityID filters to drafts linked
// to one external work item and requires provider auth.
type DraftFilter struct {
	Archived   *bool
	PREntityID string
}
