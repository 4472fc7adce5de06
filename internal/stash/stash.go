// Package stash implements named auto-stashes tagged by workflow reason
// (component F). It is a thin policy layer over gitops' raw stash
// primitives: it owns the message template and the "is this one of ours"
// filter; gitops owns the actual git stash plumbing.
package stash

import (
	"fmt"
	"strings"
	"time"

	"github.com/devsolo-dev/devsolo/internal/gitops"
)

// Reason is why devsolo created a stash on the caller's behalf.
type Reason string

const (
	ReasonSwap   Reason = "swap"
	ReasonLaunch Reason = "launch"
	ReasonAbort  Reason = "abort"
)

const messagePrefix = "devsolo auto-stash"

// Stashed is the result of creating a named auto-stash.
type Stashed struct {
	Ref     string
	Message string
}

// Push creates a stash tagged with reason and branch, following the literal
// template: "devsolo auto-stash (<reason>) [<branch>] - <ISO-8601>".
func Push(repo *gitops.Repo, reason Reason, branch string) (*Stashed, error) {
	message := fmt.Sprintf("%s (%s) [%s] - %s", messagePrefix, reason, branch, time.Now().UTC().Format(time.RFC3339))
	ref, err := repo.StashPush(message)
	if err != nil {
		return nil, err
	}
	return &Stashed{Ref: ref, Message: message}, nil
}

// Pop applies and drops ref. Returns (false, nil) instead of an error if the
// stash is no longer present — a stash ref is a weak handle, per
// DESIGN.md's "cyclic references" note, and a missing stash at pop time is
// expected, not exceptional.
func Pop(repo *gitops.Repo, ref string) (bool, error) {
	if !repo.StashExists(ref) {
		return false, nil
	}
	if err := repo.StashPop(ref); err != nil {
		return false, err
	}
	return true, nil
}

// Drop removes ref without applying it, tolerating absence.
func Drop(repo *gitops.Repo, ref string) error {
	if !repo.StashExists(ref) {
		return nil
	}
	return repo.StashDrop(ref)
}

// HasUncommittedChanges reports whether the working tree is dirty.
func HasUncommittedChanges(repo *gitops.Repo) (bool, error) {
	return repo.HasUncommittedChanges()
}

// List returns every stash entry, devsolo's and the user's own.
func List(repo *gitops.Repo) ([]gitops.StashEntry, error) {
	return repo.StashList()
}

// DevSoloStashes returns only the entries whose message matches the
// auto-stash template.
func DevSoloStashes(repo *gitops.Repo) ([]gitops.StashEntry, error) {
	all, err := repo.StashList()
	if err != nil {
		return nil, err
	}
	var ours []gitops.StashEntry
	for _, e := range all {
		if strings.Contains(e.Message, messagePrefix) {
			ours = append(ours, e)
		}
	}
	return ours, nil
}
