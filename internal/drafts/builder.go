package drafts

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"draftshare/internal/model"
)

// builtPatch is the fully resolved request material for one change: the wire
// patch descriptor plus the diff content and originating repository needed
// later for upload and assembly.
type builtPatch struct {
	req     patchCreateRequest
	repo    model.Repository
	gitUser model.GitUser
	diff    string
}

func (p builtPatch) empty() bool {
	return strings.TrimSpace(p.diff) == ""
}

var fullSHARe = regexp.MustCompile(`^[0-9a-f]{40}$`)

// buildPatchRequest resolves everything one change needs: branch name, diff
// content, repository fingerprint, provider remote, and git user identity.
// The independent lookups run concurrently and all settle before failures
// are inspected.
func (s *Service) buildPatchRequest(ctx context.Context, change model.CreateDraftChange) (builtPatch, error) {
	repo := change.Repo
	if repo == nil {
		return builtPatch{}, fmt.Errorf("change has no repository")
	}

	var (
		wg sync.WaitGroup

		branch    string
		branchErr error

		diff    = change.DiffContent
		diffErr error

		first    model.Commit
		firstErr error

		remote    *model.Remote
		remoteErr error

		gitUser model.GitUser
		userErr error
	)

	wg.Add(5)
	go func() {
		defer wg.Done()
		branch, branchErr = s.resolveBranch(ctx, change)
	}()
	go func() {
		defer wg.Done()
		if diff != "" {
			return
		}
		diff, diffErr = repo.Diff(ctx, change.FromRev, change.ToRev)
	}()
	go func() {
		defer wg.Done()
		first, firstErr = repo.FirstCommit(ctx)
	}()
	go func() {
		defer wg.Done()
		remote, remoteErr = repo.BestRemote(ctx)
	}()
	go func() {
		defer wg.Done()
		gitUser, userErr = repo.GitUser(ctx)
	}()
	wg.Wait()

	if diffErr != nil {
		return builtPatch{}, fmt.Errorf("compute diff for %s: %w", repo.Name(), diffErr)
	}
	if strings.TrimSpace(diff) == "" {
		// The change cancels out to an empty diff. Reported via empty(), not
		// as an error; the orchestrator drops it.
		return builtPatch{repo: repo, gitUser: gitUser}, nil
	}
	if firstErr != nil {
		return builtPatch{}, fmt.Errorf("resolve initial commit for %s: %w", repo.Name(), firstErr)
	}
	if branchErr != nil {
		s.logger.Warn("branch resolution failed, defaulting to HEAD", "repo", repo.Name(), "err", branchErr)
		branch = "HEAD"
	}
	if userErr != nil {
		s.logger.Warn("git user lookup failed", "repo", repo.Name(), "err", userErr)
	}
	if remoteErr != nil {
		s.logger.Warn("remote lookup failed, sending fingerprint-only identity", "repo", repo.Name(), "err", remoteErr)
		remote = nil
	}

	baseSHA := s.resolveBaseRevision(ctx, repo, change.FromRev)

	req := patchCreateRequest{
		BaseBranch:    branch,
		BaseCommitSHA: baseSHA,
		GitRepository: gitRepositoryRequest{
			Name:           repo.Name(),
			FirstCommitSHA: first.SHA,
		},
	}
	if remote != nil {
		req.GitRepository.RemoteURL = remote.URL
		req.GitRepository.RemoteDomain = remote.Domain
		req.GitRepository.RemotePath = remote.Path
		if remote.Provider != nil {
			req.GitRepository.Provider = remote.Provider.ID
			req.GitRepository.ProviderOwner = remote.Provider.Owner
			req.GitRepository.ProviderRepo = remote.Provider.Repo
		}
	}
	return builtPatch{req: req, repo: repo, gitUser: gitUser, diff: diff}, nil
}

// resolveBranch picks the branch name for a change: the current branch for a
// working-state change, otherwise the first branch containing both endpoints
// of the range, defaulting to HEAD when none does.
func (s *Service) resolveBranch(ctx context.Context, change model.CreateDraftChange) (string, error) {
	if change.ToRev == model.WorkingStateRev {
		return change.Repo.CurrentBranch(ctx)
	}
	branches, err := change.Repo.BranchesContaining(ctx, change.FromRev, change.ToRev)
	if err != nil {
		return "", err
	}
	if len(branches) == 0 {
		return "HEAD", nil
	}
	return branches[0], nil
}

// resolveBaseRevision expands a symbolic base revision to a full identifier.
// Best effort: a failed lookup keeps the original string.
func (s *Service) resolveBaseRevision(ctx context.Context, repo model.Repository, rev string) string {
	if fullSHARe.MatchString(rev) {
		return rev
	}
	commit, err := repo.LookupCommit(ctx, rev)
	if err != nil {
		s.logger.Warn("base revision lookup failed, keeping original", "repo", repo.Name(), "rev", rev, "err", err)
		return rev
	}
	return commit.SHA
}
