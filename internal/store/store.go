// Package store is the Session Store (component C): durable, crash-safe
// persistence of WorkflowSession records with single-writer semantics per
// session, an index kept consistent by atomic rewrite, and orphan lock
// recovery.
package store

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devsolo-dev/devsolo/internal/jsonutil"
	"github.com/devsolo-dev/devsolo/internal/logging"
	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/paths"
)

// Store is the Session Store. A single instance is safe for concurrent use
// by multiple goroutines within one process; cross-process safety comes
// from the per-session lock files, not from this mutex.
type Store struct {
	mu sync.Mutex
}

// New constructs a Store. CleanupOrphanedLocks is run once at startup by
// the caller (typically cmd/devsolo's root command), to reclaim locks left
// behind by a crashed process.
func New() *Store { return &Store{} }

// AcquireLock acquires the per-session lock, stealing an orphaned one.
func (s *Store) AcquireLock(id string) error { return acquireLock(id) }

// ReleaseLock releases the per-session lock (best-effort).
func (s *Store) ReleaseLock(id string) error { return releaseLock(id) }

// CleanupOrphanedLocks removes stale, orphaned lock files.
func (s *Store) CleanupOrphanedLocks() (int, error) { return cleanupOrphanedLocks() }

// SaveSession persists session atomically and updates the index to match.
func (s *Store) SaveSession(session *model.WorkflowSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := paths.SessionFile(session.ID)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if err := jsonutil.AtomicWriteBytes(path, data, 0o644); err != nil {
		return model.NewToolError(model.ErrInternal, "writing session record", err)
	}

	return s.reindexLocked()
}

// GetSession loads a session by id. A record that fails to parse is
// logged, skipped, and reported as not-found — never surfaced as a parse
// error to callers.
func (s *Store) GetSession(id string) (*model.WorkflowSession, error) {
	path, err := paths.SessionFile(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // path built from a validated session id
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, model.NewToolError(model.ErrInternal, "reading session", err)
	}
	var session model.WorkflowSession
	if err := yaml.Unmarshal(data, &session); err != nil {
		logging.Warn(nil, "skipping corrupt session record", "id", id, "error", err.Error()) //nolint:staticcheck
		return nil, nil
	}
	return &session, nil
}

// GetSessionByBranch resolves a session via the index's branch map.
func (s *Store) GetSessionByBranch(branch string) (*model.WorkflowSession, error) {
	idx, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	id, ok := idx.BranchMap[branch]
	if !ok {
		return nil, nil
	}
	return s.GetSession(id)
}

// ListOptions controls which sessions ListSessions returns.
type ListOptions struct {
	// Active, when true, excludes both terminal states and expired
	// sessions — the stricter interpretation this specification adopts
	// (see DESIGN.md).
	Active bool
}

// ListSessions returns session summaries, most recently updated first.
func (s *Store) ListSessions(opts ListOptions) ([]model.SessionSummary, error) {
	idx, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var out []model.SessionSummary
	for _, summary := range idx.Sessions {
		if opts.Active {
			if summary.CurrentState.IsTerminal() {
				continue
			}
			full, err := s.GetSession(summary.ID)
			if err == nil && full != nil && full.IsExpired(now) {
				continue
			}
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// UpdateSession applies mutate to the current record and saves it, bumping
// UpdatedAt. Whatever mutate returns is passed back to the caller after the
// save, rather than discarded: a mutator that only got partway through (for
// example, a state transition it attempted turned out to be illegal) still
// has its partial effect persisted, since any real-world side effect the
// caller already performed (a push, a merge) happened whether or not the
// in-memory transition succeeds. The lock must already be held by the
// caller.
func (s *Store) UpdateSession(id string, mutate func(*model.WorkflowSession) error) (*model.WorkflowSession, error) {
	session, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, model.NewToolError(model.ErrInternal, fmt.Sprintf("session %s not found", id), nil)
	}
	mutateErr := mutate(session)
	session.UpdatedAt = time.Now().UTC()
	if err := s.SaveSession(session); err != nil {
		return nil, err
	}
	return session, mutateErr
}

// DeleteSession removes a session's record and its index entry.
func (s *Store) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := paths.SessionFile(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return model.NewToolError(model.ErrInternal, "deleting session record", err)
	}
	return s.reindexLocked()
}

// CleanupExpiredSessions deletes sessions inactive past model.ExpiryWindow
// that are also in a terminal state, returning the count removed. Per
// A session that has not moved in 30 days is expired; expired sessions
// are eligible for cleanup but are not automatically deleted mid-workflow."
func (s *Store) CleanupExpiredSessions() (int, error) {
	idx, err := s.loadIndex()
	if err != nil {
		return 0, err
	}
	now := time.Now()
	removed := 0
	for _, summary := range idx.Sessions {
		if !summary.CurrentState.IsTerminal() {
			continue
		}
		full, err := s.GetSession(summary.ID)
		if err != nil || full == nil || !full.IsExpired(now) {
			continue
		}
		if err := s.DeleteSession(summary.ID); err == nil {
			removed++
		}
	}
	return removed, nil
}

// loadIndex reads the index, returning an empty one if it doesn't exist
// yet.
func (s *Store) loadIndex() (*model.SessionIndex, error) {
	path, err := paths.SessionIndexPath()
	if err != nil {
		return nil, err
	}
	idx := &model.SessionIndex{BranchMap: map[string]string{}}
	data, err := os.ReadFile(path) //nolint:gosec // repo-local index path
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, model.NewToolError(model.ErrInternal, "reading session index", err)
	}
	if err := yaml.Unmarshal(data, idx); err != nil {
		return nil, model.NewToolError(model.ErrInternal, "parsing session index", err)
	}
	if idx.BranchMap == nil {
		idx.BranchMap = map[string]string{}
	}
	return idx, nil
}

// reindexLocked rebuilds the index from every session record on disk and
// rewrites it atomically. Called with s.mu held.
func (s *Store) reindexLocked() error {
	dir, err := paths.SessionsDir()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			entries = nil
		} else {
			return model.NewToolError(model.ErrInternal, "listing session records", err)
		}
	}

	idx := &model.SessionIndex{BranchMap: map[string]string{}}
	for _, entry := range entries {
		if entry.IsDir() || len(entry.Name()) < 6 || entry.Name()[len(entry.Name())-5:] != ".yaml" {
			continue
		}
		id := entry.Name()[:len(entry.Name())-5]
		if id == "index" {
			continue
		}
		session, err := s.GetSession(id)
		if err != nil || session == nil {
			continue
		}
		idx.Sessions = append(idx.Sessions, model.SessionSummary{
			ID: session.ID, BranchName: session.BranchName,
			WorkflowType: session.WorkflowType, CurrentState: session.CurrentState,
			UpdatedAt: session.UpdatedAt,
		})
		idx.BranchMap[session.BranchName] = session.ID
	}

	path, err := paths.SessionIndexPath()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshaling session index: %w", err)
	}
	return jsonutil.AtomicWriteBytes(path, data, 0o644)
}

// SetCurrentSession records a UI-affordance pointer to the active session.
func (s *Store) SetCurrentSession(id string) error {
	path, err := paths.CurrentSessionPath()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(struct {
		SessionID string `yaml:"sessionId"`
	}{SessionID: id})
	if err != nil {
		return err
	}
	return jsonutil.AtomicWriteBytes(path, data, 0o644)
}
