package store

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/paths"
)

// StaleLockAge is how old an orphaned lock file must be before
// cleanupOrphanedLocks considers it for removal.
const StaleLockAge = time.Hour

// acquireLock implements the lock protocol: if no lock file exists,
// create one containing the current process id. If one exists, probe the
// owning process; if it's unreachable (the process crashed without
// releasing the lock), steal it. Otherwise fail with lock-held.
//
// This is a PID-probe protocol, not mutual exclusion via flock(2): the
// file's mere existence is the lock, and liveness of its recorded owner is
// what makes it reclaimable. Two processes racing to create the lock file
// is resolved by O_EXCL.
func acquireLock(id string) error {
	path, err := paths.LockFile(id)
	if err != nil {
		return err
	}

	if err := tryCreateLock(path); err == nil {
		return nil
	} else if !os.IsExist(err) {
		return model.NewToolError(model.ErrInternal, "creating lock file", err)
	}

	owner, ok := readLockOwner(path)
	if ok && processAlive(owner) {
		return model.NewToolError(model.ErrLockHeld, fmt.Sprintf("session %s is locked by pid %d", id, owner), nil)
	}

	// Orphaned: steal it.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return model.NewToolError(model.ErrInternal, "removing orphaned lock", err)
	}
	if err := tryCreateLock(path); err != nil {
		return model.NewToolError(model.ErrLockHeld, fmt.Sprintf("lost race acquiring lock for session %s", id), err)
	}
	return nil
}

func tryCreateLock(path string) error {
	if err := os.MkdirAll(dirOf(path), 0o750); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) //nolint:gosec // lock file holds only a pid
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "pid=%d\ntime=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	return err
}

// releaseLock is a best-effort unlink.
func releaseLock(id string) error {
	path, err := paths.LockFile(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return model.NewToolError(model.ErrInternal, "releasing lock", err)
	}
	return nil
}

// cleanupOrphanedLocks removes lock files older than StaleLockAge whose
// owning process no longer exists, returning the number removed.
func cleanupOrphanedLocks() (int, error) {
	dir, err := paths.LocksDir()
	if err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, model.NewToolError(model.ErrInternal, "listing locks", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := dir + "/" + entry.Name()
		info, err := entry.Info()
		if err != nil || time.Since(info.ModTime()) < StaleLockAge {
			continue
		}
		owner, ok := readLockOwner(path)
		if ok && processAlive(owner) {
			continue
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	return removed, nil
}

func readLockOwner(path string) (int, bool) {
	data, err := os.ReadFile(path) //nolint:gosec // internal lock file path
	if err != nil {
		return 0, false
	}
	var pid int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(data)), "pid=%d", &pid); err != nil {
		return 0, false
	}
	return pid, pid > 0
}

// processAlive sends signal 0 to pid to probe liveness without affecting
// the target process.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func dirOf(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "."
	}
	return path[:idx]
}
