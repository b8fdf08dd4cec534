package identity

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"draftshare/internal/gitlocal"
	"draftshare/internal/model"
	"draftshare/internal/registry"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	store, err := registry.OpenStore(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return registry.New(store, t.TempDir(), nil)
}

func newTestRepo(t *testing.T) (string, plumbing.Hash) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "readme.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree() error = %v", err)
	}
	if _, err := wt.Add("readme.md"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Avery", Email: "avery@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	return dir, hash
}

func TestResolveLocal(t *testing.T) {
	ctx := context.Background()
	dir, first := newTestRepo(t)
	reg := newTestRegistry(t)

	repo, err := gitlocal.Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := reg.Register(ctx, repo); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	resolver := NewResolver(reg, discardLogger())
	ref := resolver.Resolve(ctx, &model.RepositoryIdentity{ID: "r1", FirstCommitSHA: first.String()}, ResolveOptions{})
	local, ok := ref.Local()
	if !ok {
		t.Fatalf("expected local resolution, got %s", ref)
	}
	if local.Path() != dir {
		t.Fatalf("expected %s, got %s", dir, local.Path())
	}
}

func TestResolveFallsBackToIdentity(t *testing.T) {
	resolver := NewResolver(newTestRegistry(t), discardLogger())
	id := &model.RepositoryIdentity{ID: "r1", FirstCommitSHA: "0000000000000000000000000000000000000000"}

	ref := resolver.Resolve(context.Background(), id, ResolveOptions{})
	got, ok := ref.Identity()
	if !ok {
		t.Fatalf("expected identity fallback, got %s", ref)
	}
	if got != id {
		t.Fatal("expected the original identity record, unchanged")
	}
}

func TestResolveVirtual(t *testing.T) {
	ctx := context.Background()
	src, _ := newTestRepo(t)
	resolver := NewResolver(newTestRegistry(t), discardLogger())

	id := &model.RepositoryIdentity{
		ID:       "r1",
		Provider: &model.ProviderInfo{ID: "github", Owner: "acme", Repo: "project"},
		Remote:   &model.RemoteInfo{URL: src, Path: "acme/project"},
	}
	ref := resolver.Resolve(ctx, id, ResolveOptions{AllowVirtual: true})
	if _, ok := ref.Local(); !ok {
		t.Fatalf("expected virtual view resolution, got %s", ref)
	}
}

func TestDisplayNameFallbackOrder(t *testing.T) {
	tests := []struct {
		name string
		id   model.RepositoryIdentity
		want string
	}{
		{
			name: "explicit name wins",
			id: model.RepositoryIdentity{
				Name:     "my-project",
				Provider: &model.ProviderInfo{Repo: "provider-name"},
				Remote:   &model.RemoteInfo{URL: "https://github.com/acme/url-name.git", Path: "acme/path-name"},
			},
			want: "my-project",
		},
		{
			name: "provider repo name",
			id: model.RepositoryIdentity{
				Provider: &model.ProviderInfo{Repo: "provider-name"},
				Remote:   &model.RemoteInfo{URL: "https://github.com/acme/url-name.git", Path: "acme/path-name"},
			},
			want: "provider-name",
		},
		{
			name: "derived from remote url",
			id: model.RepositoryIdentity{
				Remote: &model.RemoteInfo{URL: "https://github.com/acme/url-name.git", Path: "acme/path-name"},
			},
			want: "url-name",
		},
		{
			name: "raw remote path",
			id: model.RepositoryIdentity{
				Remote: &model.RemoteInfo{Path: "acme/path-name"},
			},
			want: "acme/path-name",
		},
		{
			name: "synthesized label",
			id: model.RepositoryIdentity{
				FirstCommitSHA: "abcdef0123456789",
			},
			want: "Unknown (abcdef01)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayName(&tt.id); got != tt.want {
				t.Fatalf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}
