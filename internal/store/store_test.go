package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"

	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/paths"
)

// newTestRepoDir initializes a git repo and chdirs into it so paths.RepoRoot
// resolves, matching how the Session Store is always used relative to the
// enclosing repository.
func newTestRepoDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatalf("git init: %v", err)
	}
	t.Chdir(dir)
	paths.ClearRepoRootCache()
	t.Cleanup(paths.ClearRepoRootCache)
	return dir
}

func newSession(id, branch string) *model.WorkflowSession {
	now := time.Now().UTC()
	return &model.WorkflowSession{
		ID: id, BranchName: branch, WorkflowType: model.WorkflowLaunch,
		CurrentState: model.StateInit, CreatedAt: now, UpdatedAt: now,
		ExpiresAt: now.Add(model.ExpiryWindow),
	}
}

func TestStore_SaveAndGetSession(t *testing.T) {
	newTestRepoDir(t)
	s := New()
	session := newSession("abc123", "feature/x")
	if err := s.SaveSession(session); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := s.GetSession("abc123")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got == nil || got.BranchName != "feature/x" {
		t.Fatalf("got %+v, want a session for feature/x", got)
	}
}

func TestStore_GetSession_NotFound(t *testing.T) {
	newTestRepoDir(t)
	s := New()
	got, err := s.GetSession("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestStore_GetSessionByBranch(t *testing.T) {
	newTestRepoDir(t)
	s := New()
	session := newSession("abc123", "feature/x")
	if err := s.SaveSession(session); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := s.GetSessionByBranch("feature/x")
	if err != nil {
		t.Fatalf("GetSessionByBranch: %v", err)
	}
	if got == nil || got.ID != "abc123" {
		t.Fatalf("got %+v, want session abc123", got)
	}

	none, err := s.GetSessionByBranch("feature/missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if none != nil {
		t.Errorf("got %+v, want nil for an unknown branch", none)
	}
}

func TestStore_DeleteSession(t *testing.T) {
	newTestRepoDir(t)
	s := New()
	session := newSession("abc123", "feature/x")
	if err := s.SaveSession(session); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := s.DeleteSession("abc123"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	got, err := s.GetSession("abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("expected the session to be gone after delete")
	}
	byBranch, err := s.GetSessionByBranch("feature/x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if byBranch != nil {
		t.Error("expected the index entry to be removed along with the session")
	}
}

func TestStore_ListSessions_ActiveExcludesTerminal(t *testing.T) {
	newTestRepoDir(t)
	s := New()
	active := newSession("s1", "feature/active")
	done := newSession("s2", "feature/done")
	done.CurrentState = model.StateComplete
	if err := s.SaveSession(active); err != nil {
		t.Fatalf("SaveSession active: %v", err)
	}
	if err := s.SaveSession(done); err != nil {
		t.Fatalf("SaveSession done: %v", err)
	}

	all, err := s.ListSessions(ListOptions{})
	if err != nil {
		t.Fatalf("ListSessions all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d sessions, want 2", len(all))
	}

	activeOnly, err := s.ListSessions(ListOptions{Active: true})
	if err != nil {
		t.Fatalf("ListSessions active: %v", err)
	}
	if len(activeOnly) != 1 || activeOnly[0].ID != "s1" {
		t.Fatalf("got %+v, want only s1", activeOnly)
	}
}

func TestStore_UpdateSession(t *testing.T) {
	newTestRepoDir(t)
	s := New()
	session := newSession("abc123", "feature/x")
	if err := s.SaveSession(session); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	updated, err := s.UpdateSession("abc123", func(sess *model.WorkflowSession) error {
		sess.CurrentState = model.StateBranchReady
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if updated.CurrentState != model.StateBranchReady {
		t.Errorf("got state %s, want BRANCH_READY", updated.CurrentState)
	}

	reloaded, err := s.GetSession("abc123")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if reloaded.CurrentState != model.StateBranchReady {
		t.Errorf("update did not persist: got state %s", reloaded.CurrentState)
	}
}

func TestStore_UpdateSession_PropagatesMutateError(t *testing.T) {
	newTestRepoDir(t)
	s := New()
	session := newSession("abc123", "feature/x")
	if err := s.SaveSession(session); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	sentinel := fmt.Errorf("transition rejected")
	updated, err := s.UpdateSession("abc123", func(sess *model.WorkflowSession) error {
		sess.Metadata.Description = "partial progress"
		return sentinel
	})
	if err != sentinel {
		t.Fatalf("got err %v, want the mutator's own error", err)
	}
	if updated == nil || updated.Metadata.Description != "partial progress" {
		t.Fatalf("got %+v, want the partial mutation saved despite the error", updated)
	}

	reloaded, err := s.GetSession("abc123")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if reloaded.Metadata.Description != "partial progress" {
		t.Errorf("partial mutation was not persisted: got %+v", reloaded)
	}
}

func TestStore_UpdateSession_MissingReturnsError(t *testing.T) {
	newTestRepoDir(t)
	s := New()
	if _, err := s.UpdateSession("nonexistent", func(*model.WorkflowSession) error { return nil }); err == nil {
		t.Error("expected an error updating a session that doesn't exist")
	}
}

func TestStore_CleanupExpiredSessions(t *testing.T) {
	newTestRepoDir(t)
	s := New()

	stale := newSession("expired", "feature/old")
	stale.CurrentState = model.StateComplete
	stale.ExpiresAt = time.Now().UTC().Add(-24 * time.Hour)
	if err := s.SaveSession(stale); err != nil {
		t.Fatalf("SaveSession stale: %v", err)
	}

	fresh := newSession("fresh", "feature/new")
	fresh.CurrentState = model.StateComplete
	if err := s.SaveSession(fresh); err != nil {
		t.Fatalf("SaveSession fresh: %v", err)
	}

	removed, err := s.CleanupExpiredSessions()
	if err != nil {
		t.Fatalf("CleanupExpiredSessions: %v", err)
	}
	if removed != 1 {
		t.Errorf("got %d removed, want 1", removed)
	}

	if got, _ := s.GetSession("expired"); got != nil {
		t.Error("expected the expired session to be gone")
	}
	if got, _ := s.GetSession("fresh"); got == nil {
		t.Error("expected the fresh completed session to remain")
	}
}
