package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/devsolo-dev/devsolo/internal/branchvalidate"
	"github.com/devsolo-dev/devsolo/internal/checks"
	"github.com/devsolo-dev/devsolo/internal/gitops"
	"github.com/devsolo-dev/devsolo/internal/logging"
	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/platform"
	"github.com/devsolo-dev/devsolo/internal/prvalidate"
	"github.com/devsolo-dev/devsolo/internal/statemachine"
	"github.com/devsolo-dev/devsolo/internal/tool"
	"golang.org/x/mod/semver"
)

// ShipInput is ship's parameter set.
type ShipInput struct {
	baseInput
	Message       string `json:"message,omitempty"`
	PRDescription string `json:"prDescription,omitempty"`
	StagedOnly    bool   `json:"stagedOnly,omitempty"`
	Push          *bool  `json:"push,omitempty"`
	CreatePR      *bool  `json:"createPR,omitempty"`
	Merge         *bool  `json:"merge,omitempty"`
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// shipStates names the states Ship.Execute drives a session through,
// resolved once per kind so the same checkpoint logic works for both the
// ordinary launch->ship path and the hotfix path, which names its own
// states and has no PR_CREATED/REBASING stop of its own.
type shipStates struct {
	committed model.State
	pushed    model.State
	prCreated model.State // zero for kinds with no separate PR_CREATED stop
	waiting   model.State
	rebasing  model.State // zero for kinds that merge straight from waiting
	merging   model.State
	cleanup   model.State
	complete  model.State
}

// resumableFrom lists every non-terminal checkpoint ship.go can be
// re-invoked from, for the "session state matches" pre-flight check: a
// session that crashed mid-merge is still in a state ship recognizes.
func (s shipStates) resumableFrom() []model.State {
	out := []model.State{s.committed, s.pushed, s.waiting, s.merging, s.cleanup}
	if s.prCreated != "" {
		out = append(out, s.prCreated)
	}
	if s.rebasing != "" {
		out = append(out, s.rebasing)
	}
	return out
}

// isAtOrPastPush reports whether state is the pushed checkpoint or any
// later one, so a resumed Execute doesn't redundantly push again.
func (s shipStates) isAtOrPastPush(state model.State) bool {
	switch state {
	case s.pushed, s.prCreated, s.waiting, s.rebasing, s.merging, s.cleanup, s.complete:
		return true
	default:
		return false
	}
}

func shipStatesFor(kind model.WorkflowKind) shipStates {
	if kind == model.WorkflowHotfix {
		return shipStates{
			committed: model.StateHotfixCommitted,
			pushed:    model.StateHotfixPushed,
			waiting:   model.StateHotfixValidated,
			merging:   model.StateHotfixDeployed,
			cleanup:   model.StateHotfixCleanup,
			complete:  model.StateHotfixComplete,
		}
	}
	return shipStates{
		committed: model.StateChangesCommitted,
		pushed:    model.StatePushed,
		prCreated: model.StatePRCreated,
		waiting:   model.StateWaitingApproval,
		rebasing:  model.StateRebasing,
		merging:   model.StateMerging,
		cleanup:   model.StateCleanup,
		complete:  model.StateComplete,
	}
}

// Ship drives a session from its committed state through merge and trunk
// cleanup, each step a checkpoint so a retried invocation resumes instead
// of repeating finished work. The states it names (shipStatesFor) differ
// for hotfix sessions, which skip the PR_CREATED and REBASING stops.
type Ship struct {
	deps *Deps
}

func NewShip(deps *Deps) *Ship { return &Ship{deps: deps} }

func (t *Ship) Name() string        { return "ship" }
func (t *Ship) SkipInitCheck() bool { return false }

func (t *Ship) CollectMissingParameters(_ context.Context, _ any) (tool.CollectResult, error) {
	return tool.CollectResult{Collected: true}, nil
}

func (t *Ship) CreateContext(_ context.Context, input any) (*checks.Context, error) {
	in := input.(*ShipInput)
	tc := &checks.Context{Facts: map[string]any{}}
	ctxWithForce(tc, in.baseInput)

	current, err := t.deps.Repo.CurrentBranch()
	if err != nil {
		return nil, err
	}
	main, err := t.deps.Repo.MainBranch()
	if err != nil {
		return nil, err
	}
	tc.Facts[checks.FactCurrentBranch] = current
	tc.Facts[checks.FactMainBranch] = main

	session, err := t.deps.Store.GetSessionByBranch(current)
	if err != nil {
		return nil, err
	}
	tc.Facts[checks.FactSessionForTarget] = session
	if session != nil {
		tc.Facts[checks.FactSessionState] = session.CurrentState
	}
	kind := model.WorkflowLaunch
	if session != nil {
		kind = session.WorkflowType
	}
	tc.Facts[checks.FactRequiredStates] = shipStatesFor(kind).resumableFrom()

	validator := branchvalidate.New(t.deps.Repo, t.deps.Store)
	reuse := branchvalidate.Clean
	if session != nil {
		reuse, _ = validator.DetectBranchReuse(session, current)
	}
	tc.Facts[checks.FactBranchReuse] = reuse

	cfg := currentConfig()
	client, ok := t.deps.platformClient(cfg)
	tc.Facts[checks.FactPlatformConfigured] = ok
	if ok && session != nil {
		var priorMerged *model.PRMetadata
		if session.Metadata.PR != nil && session.Metadata.PR.Merged {
			priorMerged = session.Metadata.PR
		}
		classification, err := prvalidate.Classify(context.Background(), client, current, reuse, priorMerged)
		if err == nil {
			tc.Facts[checks.FactPRValidation] = classification
		}
	}

	runs, err := t.deps.Repo.RecentLog(1)
	tc.Facts[checks.FactCIHistoryExists] = err == nil && len(runs) > 0

	tc.Facts["message"] = in.Message
	tc.Facts["prDescription"] = in.PRDescription
	tc.Facts["stagedOnly"] = in.StagedOnly
	tc.Facts["doPush"] = boolOr(in.Push, true)
	tc.Facts["doCreatePR"] = boolOr(in.CreatePR, true)
	tc.Facts["doMerge"] = boolOr(in.Merge, true)
	return tc, nil
}

func (t *Ship) PreFlightChecks() []string {
	return []string{"sessionExists", "notOnMainBranch", "sessionStateIs", "noBranchReuse", "noPrConflicts", "githubConfigured", "ciConfigured"}
}

func (t *Ship) Execute(ctx context.Context, tc *checks.Context) (*model.ToolResult, error) {
	session, _ := checks.Fact[*model.WorkflowSession](tc, checks.FactSessionForTarget)
	if session == nil {
		return nil, model.NewToolError(model.ErrInvalidStateTransition, "no session for current branch", nil)
	}
	current, _ := checks.Fact[string](tc, checks.FactCurrentBranch)
	main, _ := checks.Fact[string](tc, checks.FactMainBranch)
	message, _ := checks.Fact[string](tc, "message")
	prDescription, _ := checks.Fact[string](tc, "prDescription")
	stagedOnly, _ := checks.Fact[bool](tc, "stagedOnly")
	doPush, _ := checks.Fact[bool](tc, "doPush")
	doCreatePR, _ := checks.Fact[bool](tc, "doCreatePR")
	doMerge, _ := checks.Fact[bool](tc, "doMerge")
	platformConfigured, _ := checks.Fact[bool](tc, checks.FactPlatformConfigured)

	states := shipStatesFor(session.WorkflowType)

	return t.deps.withLock(session.ID, func() (*model.ToolResult, error) {
		var err error

		// Step 1: commit if dirty.
		if dirty, _ := t.deps.Repo.HasUncommittedChanges(); dirty {
			if message == "" {
				return nil, model.NewToolError(model.ErrMissingParameter, "working tree is dirty and no commit message was supplied", nil)
			}
			if err := t.deps.Repo.Commit(message, gitops.CommitOptions{StagedOnly: stagedOnly}); err != nil {
				return nil, err
			}
			session, err = t.deps.Store.UpdateSession(session.ID, func(s *model.WorkflowSession) error {
				_, terr := statemachine.Transition(s, states.committed, "ship:commit", statemachine.RequirementCheck{NewCommitCount: 1})
				return terr
			})
			if err != nil {
				return nil, err
			}
		}

		// Step 2: push, idempotent if already pushed at this commit.
		if doPush && !states.isAtOrPastPush(session.CurrentState) {
			if err := t.deps.Repo.Push(ctx, current, gitops.PushOptions{SetUpstream: true}); err != nil {
				return nil, err
			}
			session, err = t.deps.Store.UpdateSession(session.ID, func(s *model.WorkflowSession) error {
				_, terr := statemachine.Transition(s, states.pushed, "ship:push", statemachine.RequirementCheck{HasUpstream: true})
				return terr
			})
			if err != nil {
				return nil, err
			}
		}

		var client *platform.Client
		if platformConfigured {
			client, _ = t.deps.platformClient(currentConfig())
		}

		// Step 3: create-or-update PR.
		if doCreatePR && client != nil && session.Metadata.PR == nil {
			classification, _ := checks.Fact[prvalidate.Result](tc, checks.FactPRValidation)
			var pr *platform.PullRequest
			var err error
			switch classification.Action {
			case prvalidate.UpdateExisting, prvalidate.ResurrectAfterMerge:
				pr, err = t.deps.platformGetOrCreate(client, ctx, message, prDescription, current, main, classification)
			default:
				pr, err = client.CreatePullRequest(ctx, message, prDescription, current, main, false)
			}
			if err != nil {
				return nil, err
			}
			session, err = t.deps.Store.UpdateSession(session.ID, func(s *model.WorkflowSession) error {
				s.Metadata.PR = &model.PRMetadata{Number: pr.Number, URL: pr.URL}
				if states.prCreated == "" {
					_, terr := statemachine.Transition(s, states.waiting, "ship:pr", statemachine.RequirementCheck{PRNumberSet: true})
					return terr
				}
				if _, terr := statemachine.Transition(s, states.prCreated, "ship:pr", statemachine.RequirementCheck{PRNumberSet: true}); terr != nil {
					return terr
				}
				_, terr := statemachine.Transition(s, states.waiting, "ship:wait", statemachine.RequirementCheck{})
				return terr
			})
			if err != nil {
				return nil, err
			}
		}

		// Step 4: poll CI to a bounded timeout.
		if client != nil && session.Metadata.PR != nil {
			cfg := currentConfig()
			interval := time.Duration(cfg.Preferences.CIPollInterval) * time.Second
			if interval <= 0 {
				interval = 15 * time.Second
			}
			budget := time.Duration(cfg.Preferences.CIPollBudget) * time.Second
			if budget <= 0 {
				budget = 20 * time.Minute
			}
			deadline := time.Now().Add(budget)
			ref := current
			for {
				summary, err := client.ListCheckRuns(ctx, ref)
				if err != nil {
					return nil, err
				}
				if summary.Failed > 0 {
					names := make([]string, 0, len(summary.Failing))
					for _, f := range summary.Failing {
						names = append(names, f.Name)
					}
					return nil, model.NewToolError(model.ErrCIFailed, "check runs failed: "+strings.Join(names, ", "), nil)
				}
				if summary.Total > 0 && summary.Pending == 0 {
					break
				}
				if time.Now().After(deadline) {
					return nil, model.NewToolError(model.ErrCITimeout, "timed out waiting for check runs", nil)
				}
				select {
				case <-ctx.Done():
					return nil, model.NewToolError(model.ErrCancelled, "ship cancelled while waiting for CI", ctx.Err())
				case <-time.After(interval):
				}
			}
		}

		// Step 5: rebase onto trunk before merging, when the session's
		// transition table has a REBASING state to pass through (hotfix
		// sessions merge straight from validated, skipping it).
		if doMerge && states.rebasing != "" && client != nil && session.Metadata.PR != nil && !session.Metadata.PR.Merged && session.CurrentState == states.waiting {
			alreadyRebasing := t.deps.Repo.IsRebasing()
			if !alreadyRebasing {
				if err := t.deps.Repo.RebaseOntoMain(main); err != nil {
					return nil, err
				}
				if err := t.deps.Repo.Push(ctx, current, gitops.PushOptions{Force: true}); err != nil {
					return nil, err
				}
			}
			session, err = t.deps.Store.UpdateSession(session.ID, func(s *model.WorkflowSession) error {
				_, terr := statemachine.Transition(s, states.rebasing, "ship:rebase", statemachine.RequirementCheck{AlreadyRebasing: alreadyRebasing})
				return terr
			})
			if err != nil {
				return nil, err
			}
		}

		// Step 6: squash-merge.
		if doMerge && client != nil && session.Metadata.PR != nil && !session.Metadata.PR.Merged {
			if err := client.MergePullRequest(ctx, session.Metadata.PR.Number, platform.MergeSquash); err != nil {
				return nil, err
			}
			now := time.Now().UTC()
			session, err = t.deps.Store.UpdateSession(session.ID, func(s *model.WorkflowSession) error {
				s.Metadata.PR.Merged = true
				s.Metadata.PR.MergedAt = &now
				_, terr := statemachine.Transition(s, states.merging, "ship:merge", statemachine.RequirementCheck{})
				return terr
			})
			if err != nil {
				return nil, err
			}
		}

		// Step 7: trunk sync and branch cleanup.
		if doMerge && session.CurrentState == states.merging {
			if err := t.deps.Repo.CheckoutBranch(main); err != nil {
				return nil, err
			}
			if err := t.deps.Repo.Pull(ctx); err != nil {
				logging.Warn(ctx, "fast-forward pull of trunk failed", "error", err.Error())
			}
			_ = t.deps.Repo.DeleteLocalBranch(current, true)
			_ = t.deps.Repo.DeleteRemoteBranch(ctx, current)
			branchvalidate.TrackBranchDeletion(session)

			session, err = t.deps.Store.UpdateSession(session.ID, func(s *model.WorkflowSession) error {
				s.Metadata.Branch = session.Metadata.Branch
				if _, terr := statemachine.Transition(s, states.cleanup, "ship:cleanup", statemachine.RequirementCheck{}); terr != nil {
					return terr
				}
				_, terr := statemachine.Transition(s, states.complete, "ship:done", statemachine.RequirementCheck{})
				return terr
			})
			if err != nil {
				return nil, err
			}

			tc.Facts[checks.FactMainSyncedWithOrigin] = true
			tc.Facts[checks.FactFeatureBranchesDeleted] = true

			if session.WorkflowType == model.WorkflowHotfix && client != nil {
				if err := t.tagHotfixRelease(ctx, client, session); err != nil {
					logging.Warn(ctx, "hotfix release tagging failed", "error", err.Error())
				}
			}
		}

		if session.Metadata.PR != nil {
			tc.Facts[checks.FactPRMerged] = session.Metadata.PR.Merged
		}
		tc.Facts[checks.FactSessionState] = session.CurrentState

		t.deps.emitAudit(session.ID, "ship", "user", model.AuditDetails{Command: "ship", StateTransition: string(session.CurrentState)}, model.AuditSuccess, "")

		result := &model.ToolResult{Success: true, SessionID: session.ID, BranchName: current, State: session.CurrentState}
		if session.CurrentState.IsTerminal() {
			result.NextSteps = []string{fmt.Sprintf("merged and cleaned up; trunk (%s) is up to date", main)}
		}
		return result, nil
	})
}

func (t *Ship) PostFlightChecks() []string {
	return []string{"prMerged", "featureBranchesDeleted", "mainSyncedWithOrigin", "sessionStateCorrect"}
}

// tagHotfixRelease cuts a patch release for a completed hotfix: the next
// tag past the highest existing one, with release notes naming the issue
// and severity that drove the fix.
func (t *Ship) tagHotfixRelease(ctx context.Context, client *platform.Client, session *model.WorkflowSession) error {
	tags, err := t.deps.Repo.ListTags()
	if err != nil {
		return err
	}
	tag := nextPatchTag(tags)
	if err := t.deps.Repo.CreateTag(tag, "hotfix: "+session.Metadata.Issue); err != nil {
		return err
	}
	if err := t.deps.Repo.Push(ctx, tag, gitops.PushOptions{}); err != nil {
		return err
	}
	severity := session.Metadata.Severity
	if severity == "" {
		severity = "medium"
	}
	body := fmt.Sprintf("Hotfix release for %s (severity: %s).", session.Metadata.Issue, severity)
	return client.CreateRelease(ctx, tag, tag, body, false, false)
}

// nextPatchTag returns the canonical semver tag one patch past the highest
// valid tag in tags, starting from v0.0.0 if none are valid.
func nextPatchTag(tags []string) string {
	highest := "v0.0.0"
	for _, tg := range tags {
		if !semver.IsValid(tg) || semver.Canonical(tg) != tg {
			continue
		}
		if semver.Compare(tg, highest) > 0 {
			highest = tg
		}
	}
	var major, minor, patch int
	fmt.Sscanf(semver.Canonical(highest), "v%d.%d.%d", &major, &minor, &patch)
	return fmt.Sprintf("v%d.%d.%d", major, minor, patch+1)
}

// platformGetOrCreate resolves the existing PR for branch (update-existing
// or resurrect-after-merge), creating one only if none is found.
func (d *Deps) platformGetOrCreate(client *platform.Client, ctx context.Context, title, body, head, base string, classification prvalidate.Result) (*platform.PullRequest, error) {
	if classification.ExistingPR != nil {
		return classification.ExistingPR, nil
	}
	return client.CreatePullRequest(ctx, title, body, head, base, false)
}
