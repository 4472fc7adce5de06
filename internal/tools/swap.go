package tools

import (
	"context"
	"time"

	"github.com/devsolo-dev/devsolo/internal/checks"
	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/stash"
	"github.com/devsolo-dev/devsolo/internal/tool"
)

// SwapInput is swap's parameter set.
type SwapInput struct {
	baseInput
	BranchName string `json:"branchName" validate:"required"`
	Stash      bool   `json:"stash,omitempty"`
}

// Swap switches the checked-out branch and activates its session.
type Swap struct {
	deps *Deps
}

func NewSwap(deps *Deps) *Swap { return &Swap{deps: deps} }

func (t *Swap) Name() string        { return "swap" }
func (t *Swap) SkipInitCheck() bool { return false }

func (t *Swap) CollectMissingParameters(_ context.Context, input any) (tool.CollectResult, error) {
	in := input.(*SwapInput)
	if in.BranchName == "" {
		return tool.CollectResult{Collected: false, Result: missingParamResult(model.ErrMissingParameter, "branchName is required")}, nil
	}
	return tool.CollectResult{Collected: true}, nil
}

func (t *Swap) CreateContext(_ context.Context, input any) (*checks.Context, error) {
	in := input.(*SwapInput)
	tc := &checks.Context{Facts: map[string]any{}}
	ctxWithForce(tc, in.baseInput)

	session, err := t.deps.Store.GetSessionByBranch(in.BranchName)
	if err != nil {
		return nil, err
	}
	tc.Facts[checks.FactSessionForTarget] = session

	localExists, _ := t.deps.Repo.BranchExistsLocally(in.BranchName)
	remoteExists, _ := t.deps.Repo.BranchExistsOnRemote(in.BranchName)
	tc.Facts[checks.FactTargetBranchExists] = localExists || remoteExists

	tc.Facts["targetBranch"] = in.BranchName
	tc.Facts["wantStash"] = in.Stash
	return tc, nil
}

func (t *Swap) PreFlightChecks() []string {
	return []string{"sessionExists", "targetBranchExists"}
}

func (t *Swap) Execute(ctx context.Context, tc *checks.Context) (*model.ToolResult, error) {
	target, _ := checks.Fact[string](tc, "targetBranch")
	wantStash, _ := checks.Fact[bool](tc, "wantStash")
	targetSession, _ := checks.Fact[*model.WorkflowSession](tc, checks.FactSessionForTarget)

	current, err := t.deps.Repo.CurrentBranch()
	if err != nil {
		return nil, err
	}

	if wantStash {
		if dirty, _ := t.deps.Repo.HasUncommittedChanges(); dirty {
			if currentSession, err := t.deps.Store.GetSessionByBranch(current); err == nil && currentSession != nil {
				stashed, err := stash.Push(t.deps.Repo, stash.ReasonSwap, current)
				if err != nil {
					return nil, err
				}
				if _, err := t.deps.Store.UpdateSession(currentSession.ID, func(s *model.WorkflowSession) error {
					s.Metadata.Stash = &model.StashMetadata{Ref: stashed.Ref, Reason: string(stash.ReasonSwap), CreatedAt: time.Now().UTC()}
					return nil
				}); err != nil {
					return nil, err
				}
			}
		}
	}

	localExists, _ := t.deps.Repo.BranchExistsLocally(target)
	if localExists {
		if err := t.deps.Repo.CheckoutBranch(target); err != nil {
			return nil, err
		}
	} else if err := t.deps.Repo.FetchAndCheckoutRemote(ctx, target); err != nil {
		return nil, err
	}

	if targetSession != nil && targetSession.Metadata.Stash != nil {
		if popped, err := stash.Pop(t.deps.Repo, targetSession.Metadata.Stash.Ref); err == nil && popped {
			_, _ = t.deps.Store.UpdateSession(targetSession.ID, func(s *model.WorkflowSession) error {
				s.Metadata.Stash = nil
				return nil
			})
		}
	}

	if targetSession != nil {
		_ = t.deps.Store.SetCurrentSession(targetSession.ID)
		t.deps.emitAudit(targetSession.ID, "swap", "user", model.AuditDetails{Command: "swap " + target}, model.AuditSuccess, "")
	}

	tc.Facts[checks.FactOnTargetBranch] = true
	tc.Facts[checks.FactTargetSessionActive] = targetSession != nil

	result := &model.ToolResult{Success: true, BranchName: target}
	if targetSession != nil {
		result.SessionID = targetSession.ID
		result.State = targetSession.CurrentState
	}
	return result, nil
}

func (t *Swap) PostFlightChecks() []string {
	return []string{"onTargetBranch", "targetSessionActive"}
}
