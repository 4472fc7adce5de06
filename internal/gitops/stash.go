package gitops

import (
	"fmt"
	"strings"

	"github.com/devsolo-dev/devsolo/internal/model"
)

// StashEntry is one raw entry from `git stash list`.
type StashEntry struct {
	Ref     string // "stash@{N}"
	Message string
}

// StashPush creates a new stash entry (including untracked files) with the
// given message and returns its ref.
func (r *Repo) StashPush(message string) (string, error) {
	if _, err := r.git("stash", "push", "--include-untracked", "-m", message); err != nil {
		return "", model.NewToolError(model.ErrGitFailure, "stashing changes", err)
	}
	entries, err := r.StashList()
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if strings.Contains(e.Message, message) {
			return e.Ref, nil
		}
	}
	if len(entries) > 0 {
		return entries[0].Ref, nil
	}
	return "", model.NewToolError(model.ErrGitFailure, "stash created but not found in list", nil)
}

// StashPop applies and drops a specific stash entry.
func (r *Repo) StashPop(ref string) error {
	if _, err := r.git("stash", "pop", ref); err != nil {
		return model.NewToolError(model.ErrGitFailure, fmt.Sprintf("popping stash %s", ref), err)
	}
	return nil
}

// StashDrop drops a specific stash entry without applying it.
func (r *Repo) StashDrop(ref string) error {
	if _, err := r.git("stash", "drop", ref); err != nil {
		return model.NewToolError(model.ErrGitFailure, fmt.Sprintf("dropping stash %s", ref), err)
	}
	return nil
}

// StashList lists all stash entries, most recent first.
func (r *Repo) StashList() ([]StashEntry, error) {
	out, err := r.git("stash", "list", "--format=%gd%x09%gs")
	if err != nil {
		return nil, model.NewToolError(model.ErrGitFailure, "listing stashes", err)
	}
	var entries []StashEntry
	for _, line := range splitLines(out) {
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		entries = append(entries, StashEntry{Ref: parts[0], Message: parts[1]})
	}
	return entries, nil
}

// StashExists reports whether ref still exists in the stash stack. Used
// before popping a session's weak stash handle: a missing stash is not an
// error (see DESIGN.md "cyclic references").
func (r *Repo) StashExists(ref string) bool {
	entries, err := r.StashList()
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.Ref == ref {
			return true
		}
	}
	return false
}
