// Package branchvalidate implements the Branch Validator (component D):
// whether a proposed branch name is usable, and whether a name has been
// unsafely reused after a merge.
package branchvalidate

import (
	"fmt"
	"time"

	"github.com/devsolo-dev/devsolo/internal/gitops"
	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/store"
)

// Availability is the verdict for a proposed branch name.
type Availability string

const (
	Available          Availability = "available"
	TakenLocal         Availability = "taken-local"
	TakenRemote        Availability = "taken-remote"
	ActiveSessionExists Availability = "active-session-exists"
	Burned             Availability = "burned"
)

// ReuseClassification is the verdict for a name whose remote branch exists.
type ReuseClassification string

const (
	MergedAndRecreated ReuseClassification = "merged-and-recreated"
	ContinuedWork      ReuseClassification = "continued-work"
	Clean              ReuseClassification = "clean"
)

// AvailabilityResult carries suggestions for the burned case.
type AvailabilityResult struct {
	Availability Availability
	Suggestions  []string
}

// Validator decides branch-name availability and reuse safety.
type Validator struct {
	repo  *gitops.Repo
	store *store.Store
}

func New(repo *gitops.Repo, st *store.Store) *Validator {
	return &Validator{repo: repo, store: st}
}

// CheckBranchNameAvailability decides whether a proposed branch name can be used.
func (v *Validator) CheckBranchNameAvailability(branch string) (AvailabilityResult, error) {
	localExists, err := v.repo.BranchExistsLocally(branch)
	if err != nil {
		return AvailabilityResult{}, err
	}
	if localExists {
		return AvailabilityResult{Availability: TakenLocal}, nil
	}

	remoteExists, err := v.repo.BranchExistsOnRemote(branch)
	if err != nil {
		return AvailabilityResult{}, err
	}
	if remoteExists {
		return AvailabilityResult{Availability: TakenRemote}, nil
	}

	session, err := v.store.GetSessionByBranch(branch)
	if err != nil {
		return AvailabilityResult{}, err
	}
	if session != nil {
		if !session.CurrentState.IsTerminal() {
			return AvailabilityResult{Availability: ActiveSessionExists}, nil
		}
		if session.IsBurned() {
			return AvailabilityResult{
				Availability: Burned,
				Suggestions: []string{
					fmt.Sprintf("%s-v2", branch),
					fmt.Sprintf("%s-%s", branch, time.Now().Format("2006-01-02")),
					fmt.Sprintf("%s-continued", branch),
				},
			}, nil
		}
	}

	return AvailabilityResult{Availability: Available}, nil
}

// DetectBranchReuse classifies reuse risk for a branch whose
// remote ref currently exists.
func (v *Validator) DetectBranchReuse(current *model.WorkflowSession, branch string) (ReuseClassification, error) {
	prior, err := v.store.GetSessionByBranch(branch)
	if err != nil {
		return "", err
	}
	if prior == nil || (current != nil && prior.ID == current.ID) {
		return Clean, nil
	}
	if prior.Metadata.PR == nil || !prior.Metadata.PR.Merged {
		return Clean, nil
	}
	if prior.Metadata.Branch != nil && prior.Metadata.Branch.RemoteDeleted {
		return MergedAndRecreated, nil
	}
	return ContinuedWork, nil
}

// TrackBranchDeletion records that branch's remote ref has been removed.
// Set unconditionally on successful deletion (see DESIGN.md open question).
func TrackBranchDeletion(session *model.WorkflowSession) {
	now := time.Now().UTC()
	if session.Metadata.Branch == nil {
		session.Metadata.Branch = &model.BranchMetadata{}
	}
	session.Metadata.Branch.RemoteDeleted = true
	session.Metadata.Branch.DeletedAt = &now
}
