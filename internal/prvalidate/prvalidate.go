// Package prvalidate implements the PR Validator (component E): enforcing
// "at most one live PR per branch lifecycle" and classifying the correct
// creation/update action.
package prvalidate

import (
	"context"

	"github.com/devsolo-dev/devsolo/internal/branchvalidate"
	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/platform"
)

// Action is the classified next step for Ship's PR-handling phase.
type Action string

const (
	CreateNew         Action = "create-new"
	UpdateExisting    Action = "update-existing"
	DuplicateOpen     Action = "duplicate-open"
	ResurrectAfterMerge Action = "resurrect-after-merge"
)

// Result carries the classification plus whatever open PR (if exactly
// one) was found, for the caller to act on.
type Result struct {
	Action     Action
	ExistingPR *platform.PullRequest
}

// Classify decides the next PR action for a branch. reuse is the branchvalidate classification for
// the same branch, which determines whether ResurrectAfterMerge is legal.
func Classify(ctx context.Context, client *platform.Client, branch string, reuse branchvalidate.ReuseClassification, priorMergedPR *model.PRMetadata) (Result, error) {
	open, err := client.ListOpenPullRequestsForBranch(ctx, branch)
	if err != nil {
		return Result{}, err
	}

	switch len(open) {
	case 0:
		if priorMergedPR != nil && priorMergedPR.Merged && reuse == branchvalidate.ContinuedWork {
			return Result{Action: ResurrectAfterMerge}, nil
		}
		return Result{Action: CreateNew}, nil
	case 1:
		return Result{Action: UpdateExisting, ExistingPR: &open[0]}, nil
	default:
		return Result{Action: DuplicateOpen}, nil
	}
}
