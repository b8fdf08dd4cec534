package gitlocal

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"draftshare/internal/model"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pmezard/go-difflib/difflib"
)

// worktreeDiff renders a unified diff between the given tree and the working
// tree. go-git has no native worktree diff, so changed paths come from the
// worktree status and per-file hunks from difflib.
func (r *Repo) worktreeDiff(fromTree *object.Tree) (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("read worktree status: %w", err)
	}

	var paths []string
	for p, st := range status {
		if st.Worktree == git.Unmodified && st.Staging == git.Unmodified {
			continue
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, p := range paths {
		before, hadBefore, err := treeFileContent(fromTree, p)
		if err != nil {
			return "", err
		}
		after, hasAfter, err := diskFileContent(r.path, p)
		if err != nil {
			return "", err
		}
		if !hadBefore && !hasAfter {
			continue
		}
		if hadBefore && hasAfter && before == after {
			continue
		}
		section, err := renderFileDiff(p, before, hadBefore, after, hasAfter)
		if err != nil {
			return "", err
		}
		b.WriteString(section)
	}
	return b.String(), nil
}

func renderFileDiff(p, before string, hadBefore bool, after string, hasAfter bool) (string, error) {
	fromFile, toFile := "a/"+p, "b/"+p
	var b strings.Builder
	fmt.Fprintf(&b, "diff --git a/%s b/%s\n", p, p)
	switch {
	case !hadBefore:
		b.WriteString("new file mode 100644\n")
		fromFile = "/dev/null"
	case !hasAfter:
		b.WriteString("deleted file mode 100644\n")
		toFile = "/dev/null"
	}
	hunks, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", p, err)
	}
	b.WriteString(hunks)
	return b.String(), nil
}

func treeFileContent(tree *object.Tree, p string) (string, bool, error) {
	file, err := tree.File(p)
	if errors.Is(err, object.ErrFileNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s from tree: %w", p, err)
	}
	content, err := file.Contents()
	if err != nil {
		return "", false, fmt.Errorf("read %s contents: %w", p, err)
	}
	return content, true, nil
}

func diskFileContent(root, p string) (string, bool, error) {
	content, err := os.ReadFile(filepath.Join(root, p))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s from disk: %w", p, err)
	}
	return string(content), true, nil
}

// ParseDiffFiles extracts the structured file-change list from a unified
// diff. When root is non-empty every path is prefixed with it, scoping the
// list to a resolved repository.
func ParseDiffFiles(diff, root string) []model.FileChange {
	var files []model.FileChange
	lines := strings.Split(diff, "\n")
	for i := 0; i < len(lines); i++ {
		oldPath, newPath, ok := parseDiffHeader(lines[i])
		if !ok {
			continue
		}
		change := model.FileChange{Path: newPath, Status: model.FileModified}
		for j := i + 1; j < len(lines) && !strings.HasPrefix(lines[j], "diff --git "); j++ {
			switch {
			case strings.HasPrefix(lines[j], "new file mode"):
				change.Status = model.FileAdded
			case strings.HasPrefix(lines[j], "deleted file mode"):
				change.Status = model.FileDeleted
				change.Path = oldPath
			case strings.HasPrefix(lines[j], "rename from "):
				change.Status = model.FileRenamed
				change.OldPath = strings.TrimPrefix(lines[j], "rename from ")
			}
		}
		if root != "" {
			change.Path = path.Join(root, change.Path)
			if change.OldPath != "" {
				change.OldPath = path.Join(root, change.OldPath)
			}
		}
		files = append(files, change)
	}
	return files
}

func parseDiffHeader(line string) (string, string, bool) {
	const prefix = "diff --git "
	if !strings.HasPrefix(line, prefix) {
		return "", "", false
	}
	tokens := diffLineTokens(strings.TrimSpace(line[len(prefix):]))
	if len(tokens) < 2 {
		return "", "", false
	}
	return normalizeDiffPath(tokens[0]), normalizeDiffPath(tokens[1]), true
}

// diffLineTokens splits a diff header line into path tokens, honoring quoted
// paths with backslash escapes.
func diffLineTokens(s string) []string {
	var tokens []string
	for {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			break
		}
		if s[0] == '"' {
			var buf strings.Builder
			escaped := false
			i := 1
			for i < len(s) {
				ch := s[i]
				if escaped {
					buf.WriteByte(ch)
					escaped = false
					i++
					continue
				}
				if ch == '\\' {
					escaped = true
					i++
					continue
				}
				if ch == '"' {
					i++
					break
				}
				buf.WriteByte(ch)
				i++
			}
			tokens = append(tokens, buf.String())
			s = s[i:]
			continue
		}
		j := 0
		for j < len(s) && s[j] != ' ' && s[j] != '\t' {
			j++
		}
		tokens = append(tokens, s[:j])
		s = s[j:]
	}
	return tokens
}

func normalizeDiffPath(token string) string {
	token = strings.TrimPrefix(token, "a/")
	token = strings.TrimPrefix(token, "b/")
	return token
}
