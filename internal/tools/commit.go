package tools

import (
	"context"

	"github.com/devsolo-dev/devsolo/internal/checks"
	"github.com/devsolo-dev/devsolo/internal/gitops"
	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/statemachine"
	"github.com/devsolo-dev/devsolo/internal/tool"
)

// CommitInput is commit's parameter set.
type CommitInput struct {
	baseInput
	Message    string `json:"message,omitempty"`
	StagedOnly bool   `json:"stagedOnly,omitempty"`
}

// Commit stages and commits the current session's changes, advancing its
// state.
type Commit struct {
	deps *Deps
}

func NewCommit(deps *Deps) *Commit { return &Commit{deps: deps} }

func (t *Commit) Name() string        { return "commit" }
func (t *Commit) SkipInitCheck() bool { return false }

func (t *Commit) CollectMissingParameters(_ context.Context, input any) (tool.CollectResult, error) {
	in := input.(*CommitInput)
	if in.Message == "" {
		return tool.CollectResult{Collected: false, Result: &model.ToolResult{
			Success: false, Kind: model.ErrMissingParameter,
			Errors: []string{"a commit message is required"},
			PreFlightChecks: []model.CheckResult{{
				ID: "commitMessage", Name: "Commit message", Level: model.LevelPrompt,
				Message: "no commit message was supplied and none could be derived",
			}},
		}}, nil
	}
	return tool.CollectResult{Collected: true}, nil
}

func (t *Commit) CreateContext(_ context.Context, input any) (*checks.Context, error) {
	in := input.(*CommitInput)
	tc := &checks.Context{Facts: map[string]any{}}
	ctxWithForce(tc, in.baseInput)

	current, err := t.deps.Repo.CurrentBranch()
	if err != nil {
		return nil, err
	}
	tc.Facts[checks.FactCurrentBranch] = current

	session, err := t.deps.Store.GetSessionByBranch(current)
	if err != nil {
		return nil, err
	}
	tc.Facts[checks.FactSessionForTarget] = session
	if session != nil {
		tc.Facts[checks.FactSessionState] = session.CurrentState
	}

	tc.Facts[checks.FactStagedOnly] = in.StagedOnly
	if in.StagedOnly {
		staged, err := t.deps.Repo.StagedFiles()
		if err != nil {
			return nil, err
		}
		tc.Facts[checks.FactHasStagedFiles] = len(staged) > 0
	} else {
		dirty, err := t.deps.Repo.HasUncommittedChanges()
		if err != nil {
			return nil, err
		}
		tc.Facts[checks.FactHasChangesToCommit] = dirty
	}

	tc.Facts["message"] = in.Message
	return tc, nil
}

func (t *Commit) PreFlightChecks() []string {
	return []string{"sessionExists", "sessionIsActive", "hasChangesToCommit", "hasStagedFiles"}
}

func (t *Commit) Execute(ctx context.Context, tc *checks.Context) (*model.ToolResult, error) {
	session, _ := checks.Fact[*model.WorkflowSession](tc, checks.FactSessionForTarget)
	if session == nil {
		return nil, model.NewToolError(model.ErrInvalidStateTransition, "no session for current branch", nil)
	}
	stagedOnly, _ := checks.Fact[bool](tc, checks.FactStagedOnly)
	message, _ := checks.Fact[string](tc, "message")

	return t.deps.withLock(session.ID, func() (*model.ToolResult, error) {
		if err := t.deps.Repo.Commit(message, gitops.CommitOptions{StagedOnly: stagedOnly}); err != nil {
			return nil, err
		}

		var nextState model.State
		switch session.WorkflowType {
		case model.WorkflowHotfix:
			nextState = model.StateHotfixCommitted
		default:
			nextState = model.StateChangesCommitted
		}

		updated, err := t.deps.Store.UpdateSession(session.ID, func(s *model.WorkflowSession) error {
			_, terr := statemachine.Transition(s, nextState, "commit", statemachine.RequirementCheck{NewCommitCount: 1})
			return terr
		})
		if err != nil {
			return nil, err
		}

		t.deps.emitAudit(session.ID, "commit", "user", model.AuditDetails{Command: "commit", StateTransition: string(nextState)}, model.AuditSuccess, "")

		tc.Facts[checks.FactSessionState] = updated.CurrentState
		tc.Facts[checks.FactRequiredStates] = []model.State{nextState}

		return &model.ToolResult{
			Success: true, SessionID: updated.ID, BranchName: updated.BranchName, State: updated.CurrentState,
			NextSteps: []string{"run ship to push, open a PR, and merge"},
		}, nil
	})
}

func (t *Commit) PostFlightChecks() []string {
	return []string{"sessionStateCorrect", "noUncommittedChanges"}
}
