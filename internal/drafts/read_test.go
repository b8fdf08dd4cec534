package drafts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"draftshare/internal/model"
)

func TestGetDraftJoinsHeaderAndChangesets(t *testing.T) {
	tp := newFakeTransport()
	tp.responses["GET /v1/drafts/d1"] = `{"data":{
		"id":"d1","type":"SHARED","creatorId":"acc-2","creatorName":"Robin",
		"role":"editor","title":"T","createdAt":"2026-08-01T10:00:00Z"}}`
	tp.responses["GET /v1/drafts/d1/changesets"] = `{"data":[
		{"id":"cs1","draftId":"d1","createdAt":"2026-08-01T10:00:00Z",
		 "patches":[{"id":"p1","secureDownloadData":{"url":"https://blob/p1"}}]},
		{"id":"cs2","draftId":"d1","parentId":"cs1","createdAt":"2026-08-02T10:00:00Z"}
	]}`
	svc := newTestService(tp, nil)

	draft, err := svc.GetDraft(context.Background(), "d1", nil)
	if err != nil {
		t.Fatalf("GetDraft() error = %v", err)
	}
	if draft.Role != model.RoleEditor {
		t.Fatalf("role = %s", draft.Role)
	}
	if len(draft.Changesets) != 2 {
		t.Fatalf("changesets = %d, want 2", len(draft.Changesets))
	}
	if draft.Changesets[1].ParentID != "cs1" {
		t.Fatalf("parent id = %q", draft.Changesets[1].ParentID)
	}
	if draft.Changesets[0].Patches[0].Blob.URL != "https://blob/p1" {
		t.Fatal("patch blob reference lost")
	}
}

func TestGetDraftAttributesFailures(t *testing.T) {
	tp := newFakeTransport()
	tp.responses["GET /v1/drafts/d1"] = `{"data":{"id":"d1"}}`
	tp.errors["GET /v1/drafts/d1/changesets"] = errors.New("boom")
	svc := newTestService(tp, nil)

	_, err := svc.GetDraft(context.Background(), "d1", nil)
	if err == nil || !strings.Contains(err.Error(), "fetch draft changesets d1") {
		t.Fatalf("expected changeset-attributed failure, got %v", err)
	}

	tp = newFakeTransport()
	tp.errors["GET /v1/drafts/d1"] = errors.New("boom")
	tp.responses["GET /v1/drafts/d1/changesets"] = `{"data":[]}`
	svc = newTestService(tp, nil)

	_, err = svc.GetDraft(context.Background(), "d1", nil)
	if err == nil || !strings.Contains(err.Error(), "fetch draft header d1") {
		t.Fatalf("expected header-attributed failure, got %v", err)
	}
}

func TestGetDraftsFilterQuery(t *testing.T) {
	archived := true
	tests := []struct {
		name   string
		filter model.DraftFilter
		path   string
	}{
		{"no filter", model.DraftFilter{}, "/v1/drafts"},
		{"archived", model.DraftFilter{Archived: &archived}, "/v1/drafts?archived=true"},
		{"linked item", model.DraftFilter{PREntityID: "pr-9"}, "/v1/drafts?prEntityId=pr-9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := newFakeTransport()
			tp.responses["GET "+tt.path] = `{"data":[{"id":"d1","createdAt":"2026-08-01T10:00:00Z"}]}`
			svc := newTestService(tp, nil)

			drafts, err := svc.GetDrafts(context.Background(), tt.filter, nil)
			if err != nil {
				t.Fatalf("GetDrafts() error = %v", err)
			}
			if len(drafts) != 1 {
				t.Fatalf("drafts = %d, want 1", len(drafts))
			}
		})
	}
}

func TestGetSuggestionsForItemSwallowsFailure(t *testing.T) {
	tp := newFakeTransport() // no scripted response, the list call fails
	svc := newTestService(tp, nil)

	if got := svc.GetSuggestionsForItem(context.Background(), "pr-9", nil); got != nil {
		t.Fatalf("expected nil on failure, got %v", got)
	}
}

func TestGetPatchDetailsHydrates(t *testing.T) {
	diff := sampleDiff("pkg/a.go")
	tp := newFakeTransport()
	tp.blob = []byte(diff)
	svc := newTestService(tp, nil)

	patch := &model.Patch{
		ID:   "p1",
		Blob: model.SecureBlobRef{URL: "https://blob/p1"},
		Repo: model.LocalRepo(&fakeRepo{path: "/w/project"}),
	}
	hydrated, err := svc.GetPatchDetails(context.Background(), patch)
	if err != nil {
		t.Fatalf("GetPatchDetails() error = %v", err)
	}
	if hydrated.Contents != diff {
		t.Fatal("blob content not hydrated")
	}
	if len(hydrated.Files) != 1 || hydrated.Files[0].Path != "/w/project/pkg/a.go" {
		t.Fatalf("files = %+v, want a single repo-scoped path", hydrated.Files)
	}
	// Hydration returns a copy, the input stays bare.
	if patch.Contents != "" {
		t.Fatal("input patch mutated")
	}
}

func TestGetPatchDetailsIdentityOnly(t *testing.T) {
	diff := sampleDiff("pkg/a.go")
	tp := newFakeTransport()
	tp.blob = []byte(diff)
	svc := newTestService(tp, nil)

	patch := &model.Patch{
		ID:   "p1",
		Blob: model.SecureBlobRef{URL: "https://blob/p1"},
		Repo: model.UnresolvedRepo(&model.RepositoryIdentity{ID: "r1", FirstCommitSHA: shaA}),
	}
	hydrated, err := svc.GetPatchDetails(context.Background(), patch)
	if err != nil {
		t.Fatalf("GetPatchDetails() error = %v", err)
	}
	if len(hydrated.Files) != 1 || hydrated.Files[0].Path != "pkg/a.go" {
		t.Fatalf("files = %+v, want unscoped paths without a local root", hydrated.Files)
	}
}

func TestGetPatchDetailsDownloadFailure(t *testing.T) {
	tp := newFakeTransport()
	tp.blobErr = errors.New("expired")
	svc := newTestService(tp, nil)

	patch := &model.Patch{ID: "p1", Repo: model.LocalRepo(&fakeRepo{path: "/w/p"})}
	_, err := svc.GetPatchDetails(context.Background(), patch)
	if err == nil || !strings.Contains(err.Error(), "hydrate patch p1") {
		t.Fatalf("expected hydration failure, got %v", err)
	}
}

func TestGetDraftCounts(t *testing.T) {
	tp := newFakeTransport()
	tp.responses["GET /v1/drafts/counts"] = `{"data":{"open":4,"archived":2}}`
	svc := newTestService(tp, nil)

	counts, err := svc.GetDraftCounts(context.Background())
	if err != nil {
		t.Fatalf("GetDraftCounts() error = %v", err)
	}
	if counts.Open != 4 || counts.Archived != 2 {
		t.Fatalf("counts = %+v", counts)
	}
}

func TestGetDraftRepository(t *testing.T) {
	tp := newFakeTransport()
	tp.responses["GET /v1/drafts/d1/git-repositories/r1"] = `{"data":{
		"id":"r1","name":"project","firstCommitSha":"` + shaA + `"}}`
	svc := newTestService(tp, nil)

	id, err := svc.GetDraftRepository(context.Background(), "d1", "r1")
	if err != nil {
		t.Fatalf("GetDraftRepository() error = %v", err)
	}
	if id.Name != "project" || id.FirstCommitSHA != shaA {
		t.Fatalf("identity = %+v", id)
	}
}
