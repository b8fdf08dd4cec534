package gitlocal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"draftshare/internal/model"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func initTestRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() error = %v", err)
	}
	return dir, repo
}

func commitFile(t *testing.T, dir string, repo *git.Repository, name, content, message string) plumbing.Hash {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree() error = %v", err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatalf("Add(%s) error = %v", name, err)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "Avery", Email: "avery@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	return hash
}

func TestDiffBetweenRevisions(t *testing.T) {
	dir, repo := initTestRepo(t)
	first := commitFile(t, dir, repo, "main.go", "package main\n", "initial")
	second := commitFile(t, dir, repo, "main.go", "package main\n\nfunc main() {}\n", "add main")

	r, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ctx := context.Background()

	diff, err := r.Diff(ctx, first.String(), second.String())
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if !strings.Contains(diff, "+func main() {}") {
		t.Fatalf("diff missing added line:\n%s", diff)
	}

	empty, err := r.Diff(ctx, second.String(), second.String())
	if err != nil {
		t.Fatalf("Diff() same revision error = %v", err)
	}
	if empty != "" {
		t.Fatalf("expected empty diff for identical revisions, got:\n%s", empty)
	}
}

func TestWorktreeDiff(t *testing.T) {
	dir, repo := initTestRepo(t)
	head := commitFile(t, dir, repo, "main.go", "package main\n", "initial")

	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\n// changed\n"), 0o644); err != nil {
		t.Fatalf("modify file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "extra.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("add file: %v", err)
	}

	r, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	diff, err := r.Diff(context.Background(), head.String(), model.WorkingStateRev)
	if err != nil {
		t.Fatalf("Diff() working state error = %v", err)
	}
	if !strings.Contains(diff, "+// changed") {
		t.Fatalf("diff missing modified line:\n%s", diff)
	}
	if !strings.Contains(diff, "diff --git a/extra.go b/extra.go") || !strings.Contains(diff, "new file mode") {
		t.Fatalf("diff missing untracked file:\n%s", diff)
	}
}

func TestBranchesContainingAndCurrentBranch(t *testing.T) {
	dir, repo := initTestRepo(t)
	first := commitFile(t, dir, repo, "a.txt", "one\n", "first")
	second := commitFile(t, dir, repo, "a.txt", "two\n", "second")

	if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("feature"), second)); err != nil {
		t.Fatalf("create branch: %v", err)
	}

	r, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ctx := context.Background()

	branches, err := r.BranchesContaining(ctx, first.String(), second.String())
	if err != nil {
		t.Fatalf("BranchesContaining() error = %v", err)
	}
	if len(branches) != 2 {
		t.Fatalf("expected both branches to contain the range, got %v", branches)
	}

	current, err := r.CurrentBranch(ctx)
	if err != nil {
		t.Fatalf("CurrentBranch() error = %v", err)
	}
	if current != "master" {
		t.Fatalf("expected master, got %s", current)
	}
}

func TestFirstCommit(t *testing.T) {
	dir, repo := initTestRepo(t)
	first := commitFile(t, dir, repo, "a.txt", "one\n", "first")
	commitFile(t, dir, repo, "a.txt", "two\n", "second")

	r, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	root, err := r.FirstCommit(context.Background())
	if err != nil {
		t.Fatalf("FirstCommit() error = %v", err)
	}
	if root.SHA != first.String() {
		t.Fatalf("expected root %s, got %s", first, root.SHA)
	}
}

func TestBestRemote(t *testing.T) {
	dir, repo := initTestRepo(t)
	commitFile(t, dir, repo, "a.txt", "one\n", "first")

	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "mirror",
		URLs: []string{"https://mirror.internal/code/project.git"},
	}); err != nil {
		t.Fatalf("create remote: %v", err)
	}
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"git@github.com:acme/project.git"},
	}); err != nil {
		t.Fatalf("create remote: %v", err)
	}

	r, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	remote, err := r.BestRemote(context.Background())
	if err != nil {
		t.Fatalf("BestRemote() error = %v", err)
	}
	if remote == nil {
		t.Fatal("expected a provider remote")
	}
	if remote.Provider.ID != "github" || remote.Provider.Owner != "acme" || remote.Provider.Repo != "project" {
		t.Fatalf("unexpected provider: %+v", remote.Provider)
	}
	if remote.Domain != "github.com" || remote.Path != "acme/project" {
		t.Fatalf("unexpected remote: %+v", remote)
	}
}

func TestParseRemoteURL(t *testing.T) {
	tests := []struct {
		url    string
		domain string
		path   string
	}{
		{"https://github.com/acme/project.git", "github.com", "acme/project"},
		{"git@gitlab.com:team/sub/project.git", "gitlab.com", "team/sub/project"},
		{"ssh://git@bitbucket.org:7999/acme/project", "bitbucket.org", "acme/project"},
		{"https://example.com/project", "example.com", "project"},
	}
	for _, tt := range tests {
		got := ParseRemoteURL(tt.url)
		if got.Domain != tt.domain || got.Path != tt.path {
			t.Errorf("ParseRemoteURL(%s) = %s %s, want %s %s", tt.url, got.Domain, got.Path, tt.domain, tt.path)
		}
	}
}

func TestParseDiffFiles(t *testing.T) {
	diff := strings.Join([]string{
		"diff --git a/kept.go b/kept.go",
		"index 1111111..2222222 100644",
		"--- a/kept.go",
		"+++ b/kept.go",
		"@@ -1 +1 @@",
		"-old",
		"+new",
		"diff --git a/added.go b/added.go",
		"new file mode 100644",
		"--- /dev/null",
		"+++ b/added.go",
		"diff --git a/gone.go b/gone.go",
		"deleted file mode 100644",
		"--- a/gone.go",
		"+++ /dev/null",
		"diff --git a/old_name.go b/new_name.go",
		"rename from old_name.go",
		"rename to new_name.go",
		"",
	}, "\n")

	files := ParseDiffFiles(diff, "")
	if len(files) != 4 {
		t.Fatalf("expected 4 files, got %d: %+v", len(files), files)
	}
	want := []model.FileChange{
		{Path: "kept.go", Status: model.FileModified},
		{Path: "added.go", Status: model.FileAdded},
		{Path: "gone.go", Status: model.FileDeleted},
		{Path: "new_name.go", OldPath: "old_name.go", Status: model.FileRenamed},
	}
	for i, w := range want {
		if files[i] != w {
			t.Errorf("file %d = %+v, want %+v", i, files[i], w)
		}
	}

	scoped := ParseDiffFiles(diff, "repo/root")
	if scoped[0].Path != "repo/root/kept.go" {
		t.Errorf("expected scoped path, got %s", scoped[0].Path)
	}
	if scoped[3].OldPath != "repo/root/old_name.go" {
		t.Errorf("expected scoped old path, got %s", scoped[3].OldPath)
	}
}
