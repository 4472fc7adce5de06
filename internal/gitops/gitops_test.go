package gitops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
)

// newTestRepo initializes a git repo at t.TempDir(), configures a commit
// identity (gitops shells out to the git binary for commits, so go-git's
// per-commit Signature isn't enough here), and returns it opened.
func newTestRepo(t *testing.T) (*Repo, string) {
	t.Helper()
	dir := t.TempDir()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatalf("git init: %v", err)
	}
	r, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := r.ConfigSet("user.name", "Test User"); err != nil {
		t.Fatalf("ConfigSet user.name: %v", err)
	}
	if err := r.ConfigSet("user.email", "test@example.com"); err != nil {
		t.Fatalf("ConfigSet user.email: %v", err)
	}
	return r, dir
}

func writeAndCommit(t *testing.T, r *Repo, dir, path, content, message string) {
	t.Helper()
	full := filepath.Join(dir, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := r.Commit(message, CommitOptions{}); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestBranchNamePattern(t *testing.T) {
	valid := []string{"feature/add-login", "bugfix/fix-crash", "hotfix/urgent-patch", "chore/bump-deps"}
	for _, name := range valid {
		if !BranchNamePattern.MatchString(name) {
			t.Errorf("expected %q to match the branch naming convention", name)
		}
	}
	invalid := []string{"feature", "feature/Add-Login", "random-branch", "feature/", "feature/_bad"}
	for _, name := range invalid {
		if BranchNamePattern.MatchString(name) {
			t.Errorf("expected %q not to match the branch naming convention", name)
		}
	}
}

func TestRepo_CurrentBranchAndCommit(t *testing.T) {
	r, dir := newTestRepo(t)
	writeAndCommit(t, r, dir, "README.md", "hello\n", "initial commit")

	branch, err := r.CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch == "" {
		t.Error("expected a non-empty current branch name")
	}

	dirty, err := r.HasUncommittedChanges()
	if err != nil {
		t.Fatalf("HasUncommittedChanges: %v", err)
	}
	if dirty {
		t.Error("expected a clean tree right after commit")
	}
}

func TestRepo_ValidateBranchName(t *testing.T) {
	r, _ := newTestRepo(t)
	if err := r.ValidateBranchName("feature/add-login"); err != nil {
		t.Errorf("expected a valid branch name to pass, got %v", err)
	}
	if err := r.ValidateBranchName("bad..name"); err == nil {
		t.Error("expected an invalid branch name to fail")
	}
}

func TestRepo_CreateAndListLocalBranches(t *testing.T) {
	r, dir := newTestRepo(t)
	writeAndCommit(t, r, dir, "a.txt", "a\n", "initial")

	main, err := r.CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if err := r.CreateBranch("feature/my-change", main); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	branches, err := r.ListLocalBranches()
	if err != nil {
		t.Fatalf("ListLocalBranches: %v", err)
	}
	found := false
	for _, b := range branches {
		if b == "feature/my-change" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected feature/my-change among %v", branches)
	}

	exists, err := r.BranchExistsLocally("feature/my-change")
	if err != nil || !exists {
		t.Errorf("BranchExistsLocally = (%v,%v), want (true,nil)", exists, err)
	}
}

func TestRepo_FileDiffStats_WorkingTree(t *testing.T) {
	r, dir := newTestRepo(t)
	writeAndCommit(t, r, dir, "a.txt", "one\ntwo\nthree\n", "initial")

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one\ntwo-changed\nthree\nfour\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	head, err := r.CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	stats, err := r.FileDiffStats(head, "")
	if err != nil {
		t.Fatalf("FileDiffStats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("got %d file stats, want 1", len(stats))
	}
	if stats[0].Path != "a.txt" {
		t.Errorf("got path %q, want a.txt", stats[0].Path)
	}
	if stats[0].Added == 0 || stats[0].Removed == 0 {
		t.Errorf("got %+v, want both added and removed lines", stats[0])
	}
}

func TestRepo_HasNewCommits(t *testing.T) {
	r, dir := newTestRepo(t)
	writeAndCommit(t, r, dir, "a.txt", "a\n", "initial")
	main, err := r.CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}

	hasNew, err := r.HasNewCommits(main)
	if err != nil {
		t.Fatalf("HasNewCommits: %v", err)
	}
	if hasNew {
		t.Error("expected no new commits relative to HEAD's own branch")
	}
}
