package tools

import (
	"context"

	"github.com/devsolo-dev/devsolo/internal/checks"
	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/statemachine"
	"github.com/devsolo-dev/devsolo/internal/tool"
)

// HotfixInput is hotfix's parameter set.
type HotfixInput struct {
	baseInput
	Issue    string `json:"issue" validate:"required"`
	Severity string `json:"severity,omitempty" validate:"omitempty,oneof=low medium high critical"`
}

var validSeverities = map[string]bool{"low": true, "medium": true, "high": true, "critical": true}

// Hotfix opens a hotfix branch off trunk and its own session/transition
// table.
type Hotfix struct {
	deps *Deps
}

func NewHotfix(deps *Deps) *Hotfix { return &Hotfix{deps: deps} }

func (t *Hotfix) Name() string        { return "hotfix" }
func (t *Hotfix) SkipInitCheck() bool { return false }

func (t *Hotfix) CollectMissingParameters(_ context.Context, input any) (tool.CollectResult, error) {
	in := input.(*HotfixInput)
	if in.Issue == "" {
		return tool.CollectResult{Collected: false, Result: missingParamResult(model.ErrMissingParameter, "issue is required")}, nil
	}
	if in.Severity != "" && !validSeverities[in.Severity] {
		return tool.CollectResult{Collected: false, Result: missingParamResult(model.ErrMissingParameter, "severity must be one of low, medium, high, critical")}, nil
	}
	return tool.CollectResult{Collected: true}, nil
}

func (t *Hotfix) CreateContext(_ context.Context, input any) (*checks.Context, error) {
	in := input.(*HotfixInput)
	tc := &checks.Context{Facts: map[string]any{}}
	ctxWithForce(tc, in.baseInput)

	main, err := t.deps.Repo.MainBranch()
	if err != nil {
		return nil, err
	}
	current, err := t.deps.Repo.CurrentBranch()
	if err != nil {
		return nil, err
	}
	tc.Facts[checks.FactMainBranch] = main
	tc.Facts[checks.FactCurrentBranch] = current

	dirty, err := t.deps.Repo.HasUncommittedChanges()
	if err != nil {
		return nil, err
	}
	tc.Facts[checks.FactWorkingDirClean] = !dirty

	tc.Facts["issue"] = in.Issue
	severity := in.Severity
	if severity == "" {
		severity = "medium"
	}
	tc.Facts["severity"] = severity
	return tc, nil
}

func (t *Hotfix) PreFlightChecks() []string {
	return []string{"onMainBranch", "workingDirectoryClean"}
}

func (t *Hotfix) Execute(ctx context.Context, tc *checks.Context) (*model.ToolResult, error) {
	main, _ := checks.Fact[string](tc, checks.FactMainBranch)
	issue, _ := checks.Fact[string](tc, "issue")
	severity, _ := checks.Fact[string](tc, "severity")

	branch := "hotfix/" + kebab(issue)

	if err := t.deps.Repo.CreateBranch(branch, main); err != nil {
		return nil, err
	}
	if err := t.deps.Repo.CheckoutBranch(branch); err != nil {
		return nil, err
	}

	session := newSession(model.WorkflowHotfix, branch, model.StateHotfixInit)
	session.Metadata.Issue = issue
	session.Metadata.Severity = severity
	if _, err := statemachine.Transition(session, model.StateHotfixReady, "hotfix", statemachine.RequirementCheck{BranchNameSet: true}); err != nil {
		return nil, err
	}
	if err := t.deps.Store.SaveSession(session); err != nil {
		return nil, err
	}
	_ = t.deps.Store.SetCurrentSession(session.ID)

	t.deps.emitAudit(session.ID, "hotfix", "user", model.AuditDetails{Command: "hotfix " + issue}, model.AuditSuccess, "")

	tc.Facts[checks.FactSessionCreated] = true
	tc.Facts[checks.FactBranchCheckedOut] = true
	tc.Facts[checks.FactSessionState] = session.CurrentState
	tc.Facts[checks.FactRequiredStates] = []model.State{model.StateHotfixReady}

	return &model.ToolResult{
		Success: true, SessionID: session.ID, BranchName: branch, State: session.CurrentState,
		NextSteps: []string{"commit the fix, then ship it through the normal review/merge flow"},
	}, nil
}

func (t *Hotfix) PostFlightChecks() []string {
	return []string{"sessionCreated", "branchCheckedOut", "sessionStateCorrect"}
}
