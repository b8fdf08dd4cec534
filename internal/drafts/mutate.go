package drafts

import (
	"context"
	"fmt"
	"net/http"

	"draftshare/internal/model"
)

func (s *Service) DeleteDraft(ctx context.Context, id string) (err error) {
	done := s.logOp("deleteDraft", "draft", id)
	defer func() { done(err) }()

	return s.tp.JSON(ctx, "delete draft", http.MethodDelete, "/v1/drafts/"+id, nil, nil, nil)
}

// ArchiveDraft archives a draft. When the draft's visibility is
// provider-gated and no auth was supplied, provider auth is resolved from
// the draft's own repositories.
func (s *Service) ArchiveDraft(ctx context.Context, draft *model.Draft, reason string, auth *model.ProviderAuth) (err error) {
	done := s.logOp("archiveDraft", "draft", draft.ID)
	defer func() { done(err) }()

	if auth == nil && draft.Visibility == model.VisibilityProvider {
		auth, err = s.auth.ForDraft(ctx, draft)
		if err != nil {
			return err
		}
	}
	archived := true
	return s.tp.JSON(ctx, "archive draft", http.MethodPatch, "/v1/drafts/"+draft.ID, updateDraftRequest{
		Archived:       &archived,
		ArchivedReason: reason,
	}, nil, providerAuthHeader(auth))
}

func (s *Service) UpdateDraftVisibility(ctx context.Context, id string, visibility model.Visibility) (err error) {
	done := s.logOp("updateDraftVisibility", "draft", id, "visibility", string(visibility))
	defer func() { done(err) }()

	return s.tp.JSON(ctx, "update draft visibility", http.MethodPatch, "/v1/drafts/"+id, updateDraftRequest{
		Visibility: string(visibility),
	}, nil, nil)
}

func (s *Service) AddDraftUsers(ctx context.Context, id string, users []model.DraftUser) (err error) {
	done := s.logOp("addDraftUsers", "draft", id, "users", len(users))
	defer func() { done(err) }()

	if len(users) == 0 {
		return fmt.Errorf("no users to add")
	}
	req := addUsersRequest{Users: make([]draftUserRequest, 0, len(users))}
	for _, user := range users {
		req.Users = append(req.Users, draftUserRequest{Email: user.Email, Role: string(user.Role)})
	}
	return s.tp.JSON(ctx, "add draft users", http.MethodPost, "/v1/drafts/"+id+"/users", req, nil, nil)
}

func (s *Service) RemoveDraftUser(ctx context.Context, id, userID string) (err error) {
	done := s.logOp("removeDraftUser", "draft", id, "user", userID)
	defer func() { done(err) }()

	return s.tp.JSON(ctx, "remove draft user", http.MethodDelete, "/v1/drafts/"+id+"/users/"+userID, nil, nil, nil)
}

func (s *Service) GetDraftUsers(ctx context.Context, id string) (users []model.DraftUser, err error) {
	done := s.logOp("getDraftUsers", "draft", id)
	defer func() { done(err) }()

	var envelope usersEnvelope
	if err = s.tp.JSON(ctx, "fetch draft users", http.MethodGet, "/v1/drafts/"+id+"/users", nil, &envelope, nil); err != nil {
		return nil, err
	}
	users = make([]model.DraftUser, 0, len(envelope.Data))
	for _, resp := range envelope.Data {
		users = append(users, formatDraftUser(resp))
	}
	return users, nil
}
