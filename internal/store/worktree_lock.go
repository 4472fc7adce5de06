package store

import (
	"context"
	"os"
	"time"

	"github.com/gofrs/flock"

	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/paths"
)

// WorktreeLockTimeout bounds how long a caller waits for the working-tree
// advisory lock before giving up.
const WorktreeLockTimeout = 30 * time.Second

// WorktreeLock guards the repository's working tree itself (checkouts,
// stashes, commits) across every session, unlike the per-session PID-probe
// lock in lock.go which only serializes retries of one session. Built on
// flock(2) via gofrs/flock rather than the lock.go protocol: the working
// tree has no single owning session to record a pid against, and two
// processes blocking on the same fd is exactly what flock(2) is for.
type WorktreeLock struct {
	fl      *flock.Flock
	Timeout time.Duration
}

// NewWorktreeLock opens (without acquiring) the working-tree lock file.
func NewWorktreeLock() (*WorktreeLock, error) {
	path, err := paths.WorktreeLockFile()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dirOf(path), 0o750); err != nil {
		return nil, model.NewToolError(model.ErrInternal, "creating locks directory", err)
	}
	return &WorktreeLock{fl: flock.New(path), Timeout: WorktreeLockTimeout}, nil
}

// Lock blocks until the working tree is free or w.Timeout elapses.
func (w *WorktreeLock) Lock() error {
	ctx, cancel := context.WithTimeout(context.Background(), w.Timeout)
	defer cancel()
	ok, err := w.fl.TryLockContext(ctx, 20*time.Millisecond)
	if err != nil {
		return model.NewToolError(model.ErrInternal, "acquiring working-tree lock", err)
	}
	if !ok {
		return model.NewToolError(model.ErrLockHeld, "working tree is locked by another devsolo process", nil)
	}
	return nil
}

// Unlock releases the working-tree lock (best-effort).
func (w *WorktreeLock) Unlock() error {
	if err := w.fl.Unlock(); err != nil {
		return model.NewToolError(model.ErrInternal, "releasing working-tree lock", err)
	}
	return nil
}

// AcquireWorktreeLock acquires the process-wide working-tree lock.
func (s *Store) AcquireWorktreeLock() (*WorktreeLock, error) {
	wl, err := NewWorktreeLock()
	if err != nil {
		return nil, err
	}
	if err := wl.Lock(); err != nil {
		return nil, err
	}
	return wl, nil
}
