package tools

import (
	"context"

	"github.com/devsolo-dev/devsolo/internal/checks"
	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/stash"
	"github.com/devsolo-dev/devsolo/internal/statemachine"
	"github.com/devsolo-dev/devsolo/internal/tool"
)

// AbortInput is abort's parameter set.
type AbortInput struct {
	baseInput
	BranchName   string `json:"branchName,omitempty"`
	DeleteBranch bool   `json:"deleteBranch,omitempty"`
}

// Abort transitions a session to ABORTED without touching trunk.
type Abort struct {
	deps *Deps
}

func NewAbort(deps *Deps) *Abort { return &Abort{deps: deps} }

func (t *Abort) Name() string        { return "abort" }
func (t *Abort) SkipInitCheck() bool { return false }

func (t *Abort) CollectMissingParameters(_ context.Context, _ any) (tool.CollectResult, error) {
	return tool.CollectResult{Collected: true}, nil
}

func (t *Abort) CreateContext(_ context.Context, input any) (*checks.Context, error) {
	in := input.(*AbortInput)
	tc := &checks.Context{Facts: map[string]any{}}
	ctxWithForce(tc, in.baseInput)

	branch := in.BranchName
	if branch == "" {
		current, err := t.deps.Repo.CurrentBranch()
		if err != nil {
			return nil, err
		}
		branch = current
	}

	session, err := t.deps.Store.GetSessionByBranch(branch)
	if err != nil {
		return nil, err
	}
	tc.Facts[checks.FactSessionForTarget] = session
	if session != nil {
		tc.Facts[checks.FactSessionState] = session.CurrentState
	}
	tc.Facts["targetBranch"] = branch
	tc.Facts["deleteBranch"] = in.DeleteBranch
	return tc, nil
}

func (t *Abort) PreFlightChecks() []string {
	return []string{"sessionExists", "sessionIsActive"}
}

func (t *Abort) Execute(ctx context.Context, tc *checks.Context) (*model.ToolResult, error) {
	session, _ := checks.Fact[*model.WorkflowSession](tc, checks.FactSessionForTarget)
	branch, _ := checks.Fact[string](tc, "targetBranch")
	deleteBranch, _ := checks.Fact[bool](tc, "deleteBranch")
	if session == nil {
		return nil, model.NewToolError(model.ErrInvalidStateTransition, "no session to abort", nil)
	}

	return t.deps.withLock(session.ID, func() (*model.ToolResult, error) {
		if dirty, _ := t.deps.Repo.HasUncommittedChanges(); dirty {
			if stashed, err := stash.Push(t.deps.Repo, stash.ReasonAbort, branch); err == nil {
				session.Metadata.Stash = &model.StashMetadata{Ref: stashed.Ref, Reason: string(stash.ReasonAbort)}
			}
		}

		updated, err := t.deps.Store.UpdateSession(session.ID, func(s *model.WorkflowSession) error {
			s.Metadata.Stash = session.Metadata.Stash
			_, terr := statemachine.Transition(s, model.StateAborted, "abort", statemachine.RequirementCheck{})
			return terr
		})
		if err != nil {
			return nil, err
		}

		if deleteBranch {
			current, _ := t.deps.Repo.CurrentBranch()
			if current == branch {
				if main, err := t.deps.Repo.MainBranch(); err == nil {
					_ = t.deps.Repo.CheckoutBranch(main)
				}
			}
			_ = t.deps.Repo.DeleteLocalBranch(branch, true)
			_ = t.deps.Repo.DeleteRemoteBranch(ctx, branch)
		}

		t.deps.emitAudit(session.ID, "abort", "user", model.AuditDetails{Command: "abort " + branch}, model.AuditAborted, "")

		tc.Facts[checks.FactSessionState] = updated.CurrentState
		tc.Facts[checks.FactRequiredStates] = []model.State{model.StateAborted}

		return &model.ToolResult{Success: true, SessionID: updated.ID, BranchName: branch, State: updated.CurrentState}, nil
	})
}

func (t *Abort) PostFlightChecks() []string {
	return []string{"sessionStateCorrect"}
}
