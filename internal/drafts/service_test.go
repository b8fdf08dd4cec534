package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"draftshare/internal/model"
	"draftshare/internal/providerauth"
)

// fakeRepo is an in-memory model.Repository with scripted lookups.
type fakeRepo struct {
	path      string
	diff      string
	diffErr   error
	branch    string
	branches  []string
	firstSHA  string
	remote    *model.Remote
	user      model.GitUser
	commits   map[string]string // symbolic rev -> full sha
	lookupErr error
}

func (f *fakeRepo) Path() string { return f.path }
func (f *fakeRepo) Name() string { return f.path }
func (f *fakeRepo) Diff(ctx context.Context, from, to string) (string, error) {
	return f.diff, f.diffErr
}
func (f *fakeRepo) CurrentBranch(ctx context.Context) (string, error) {
	return f.branch, nil
}
func (f *fakeRepo) BranchesContaining(ctx context.Context, revs ...string) ([]string, error) {
	return f.branches, nil
}
func (f *fakeRepo) FirstCommit(ctx context.Context) (model.Commit, error) {
	return model.Commit{SHA: f.firstSHA}, nil
}
func (f *fakeRepo) BestRemote(ctx context.Context) (*model.Remote, error) {
	return f.remote, nil
}
func (f *fakeRepo) GitUser(ctx context.Context) (model.GitUser, error) {
	return f.user, nil
}
func (f *fakeRepo) LookupCommit(ctx context.Context, rev string) (model.Commit, error) {
	if f.lookupErr != nil {
		return model.Commit{}, f.lookupErr
	}
	if sha, ok := f.commits[rev]; ok {
		return model.Commit{SHA: sha}, nil
	}
	return model.Commit{}, fmt.Errorf("unknown revision %s", rev)
}

type recordedCall struct {
	op     string
	method string
	path   string
	body   any
	hdr    http.Header
}

// fakeTransport scripts JSON responses by method+path and records every
// call, uploads included.
type fakeTransport struct {
	mu        sync.Mutex
	calls     []recordedCall
	responses map[string]string // "METHOD path" -> raw JSON
	errors    map[string]error  // "METHOD path" -> forced error
	uploads   map[string][]byte // url -> uploaded content
	uploadErr map[string]error  // url -> forced error
	blob      []byte            // download payload
	blobErr   error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		responses: make(map[string]string),
		errors:    make(map[string]error),
		uploads:   make(map[string][]byte),
		uploadErr: make(map[string]error),
	}
}

func (f *fakeTransport) JSON(ctx context.Context, op, method, path string, body, out any, hdr http.Header) error {
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{op: op, method: method, path: path, body: body, hdr: hdr})
	f.mu.Unlock()

	key := method + " " + path
	if err, ok := f.errors[key]; ok {
		return err
	}
	raw, ok := f.responses[key]
	if !ok {
		return fmt.Errorf("unexpected call %s", key)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}

func (f *fakeTransport) Upload(ctx context.Context, ref model.SecureBlobRef, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.uploadErr[ref.URL]; ok {
		return err
	}
	f.uploads[ref.URL] = content
	return nil
}

func (f *fakeTransport) Download(ctx context.Context, ref model.SecureBlobRef) ([]byte, error) {
	return f.blob, f.blobErr
}

func (f *fakeTransport) callSummaries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.method+" "+c.path)
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(tp Transport, sessions providerauth.StaticSessions) *Service {
	logger := discardLogger()
	auth := providerauth.NewResolver(sessions, nil, logger)
	account := model.Account{ID: "acc-1", Name: "Avery", Email: "avery@example.com"}
	return NewService(tp, auth, nil, account, logger)
}

func githubRemote() *model.Remote {
	return &model.Remote{
		Name:     "origin",
		URL:      "git@github.com:acme/project.git",
		Domain:   "github.com",
		Path:     "acme/project",
		Provider: &model.ProviderInfo{ID: "github", Owner: "acme", Repo: "project"},
	}
}

func TestProviderAuthHeader(t *testing.T) {
	if hdr := providerAuthHeader(nil); hdr != nil {
		t.Fatalf("expected nil header, got %v", hdr)
	}
	hdr := providerAuthHeader(&model.ProviderAuth{IntegrationID: "github", Token: "tok"})
	if got := hdr.Get("Provider-Auth"); got != "tok" {
		t.Fatalf("unexpected header value %q", got)
	}
}
