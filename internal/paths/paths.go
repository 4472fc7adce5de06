// Package paths resolves the devsolo workspace layout relative to the
// enclosing git repository.
package paths

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultBaseDirName is the directory name holding all devsolo state,
// relative to the repository root. Overridable via DEVSOLO_BASE_PATH.
const DefaultBaseDirName = ".devsolo"

// BaseEnvVar overrides the base directory name.
const BaseEnvVar = "DEVSOLO_BASE_PATH"

const (
	ConfigFileName       = "config.yaml"
	MarkerFileName       = "devsolo.yaml"
	SessionsDirName      = "sessions"
	SessionIndexFileName = "index.yaml"
	CurrentSessionFile   = "current.yaml"
	LocksDirName         = "locks"
	AuditDirName         = "audit"
	HooksDirName         = "hooks"
)

// SessionTrailerKey identifies which session produced a commit.
const SessionTrailerKey = "Devsolo-Session"

var (
	repoRootMu       sync.RWMutex
	repoRootCache    string
	repoRootCacheDir string
)

// RepoRoot returns the git repository root directory, using
// 'git rev-parse --show-toplevel' so it works from any subdirectory. The
// result is cached per working directory.
func RepoRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}

	repoRootMu.RLock()
	if repoRootCache != "" && repoRootCacheDir == cwd {
		cached := repoRootCache
		repoRootMu.RUnlock()
		return cached, nil
	}
	repoRootMu.RUnlock()

	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not inside a git repository: %w", err)
	}

	root := strings.TrimSpace(string(output))

	repoRootMu.Lock()
	repoRootCache = root
	repoRootCacheDir = cwd
	repoRootMu.Unlock()

	return root, nil
}

// ClearRepoRootCache clears the cached repository root. Used by tests that
// change directories mid-run.
func ClearRepoRootCache() {
	repoRootMu.Lock()
	repoRootCache = ""
	repoRootCacheDir = ""
	repoRootMu.Unlock()
}

// BaseDirName returns the configured base directory name, honoring
// DEVSOLO_BASE_PATH.
func BaseDirName() string {
	if v := os.Getenv(BaseEnvVar); v != "" {
		return v
	}
	return DefaultBaseDirName
}

// Base returns the absolute path to the devsolo base directory.
func Base() (string, error) {
	root, err := RepoRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, BaseDirName()), nil
}

// AbsPath returns the absolute path for a path relative to the base
// directory. Absolute input is returned unchanged.
func AbsPath(relPath string) (string, error) {
	if filepath.IsAbs(relPath) {
		return relPath, nil
	}
	base, err := Base()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, relPath), nil
}

func ConfigPath() (string, error)       { return AbsPath(ConfigFileName) }
func MarkerPath() (string, error)       { return AbsPath(MarkerFileName) }
func SessionsDir() (string, error)      { return AbsPath(SessionsDirName) }
func SessionIndexPath() (string, error) { return AbsPath(filepath.Join(SessionsDirName, SessionIndexFileName)) }
func CurrentSessionPath() (string, error) {
	return AbsPath(filepath.Join(SessionsDirName, CurrentSessionFile))
}
func LocksDir() (string, error) { return AbsPath(LocksDirName) }
func AuditDir() (string, error) { return AbsPath(AuditDirName) }
func HooksDir() (string, error) { return AbsPath(HooksDirName) }

// SessionFile returns the path to the record for session id.
func SessionFile(id string) (string, error) {
	dir, err := SessionsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, id+".yaml"), nil
}

// LockFile returns the path to the lock artifact for session id.
func LockFile(id string) (string, error) {
	dir, err := LocksDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, id+".lock"), nil
}

// WorktreeLockFile returns the path to the single advisory lock file
// guarding the repository's working tree itself, shared across every
// session so two concurrent devsolo invocations never race on checkouts,
// stashes, or commits regardless of which session each belongs to.
func WorktreeLockFile() (string, error) {
	dir, err := LocksDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "worktree.flock"), nil
}
