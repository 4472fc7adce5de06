package tools

import (
	"context"
	"fmt"

	"github.com/devsolo-dev/devsolo/internal/branchvalidate"
	"github.com/devsolo-dev/devsolo/internal/checks"
	"github.com/devsolo-dev/devsolo/internal/logging"
	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/stash"
	"github.com/devsolo-dev/devsolo/internal/statemachine"
	"github.com/devsolo-dev/devsolo/internal/tool"
)

// LaunchInput is launch's parameter set.
type LaunchInput struct {
	baseInput
	BranchName   string   `json:"branchName,omitempty"`
	Description  string   `json:"description,omitempty"`
	StashRef     string   `json:"stashRef,omitempty"`
	PopStash     *bool    `json:"popStash,omitempty"`
	ChangedFiles []string `json:"changedFiles,omitempty"`
}

// Launch creates a new session on a new feature branch.
type Launch struct {
	deps *Deps
}

func NewLaunch(deps *Deps) *Launch { return &Launch{deps: deps} }

func (t *Launch) Name() string        { return "launch" }
func (t *Launch) SkipInitCheck() bool { return false }

func (t *Launch) CollectMissingParameters(_ context.Context, _ any) (tool.CollectResult, error) {
	return tool.CollectResult{Collected: true}, nil
}

func (t *Launch) CreateContext(_ context.Context, input any) (*checks.Context, error) {
	in := input.(*LaunchInput)
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

	_, behind, err := t.deps.Repo.AheadBehind(context.Background())
	tc.Facts[checks.FactMainBehindOrigin] = err == nil && behind > 0

	activeOnCurrent, err := t.deps.Store.GetSessionByBranch(current)
	if err != nil {
		return nil, err
	}
	if activeOnCurrent != nil && activeOnCurrent.CurrentState.IsTerminal() {
		activeOnCurrent = nil
	}
	tc.Facts[checks.FactActiveSessionOnBranch] = activeOnCurrent

	branch := deriveBranchName(in.BranchName, in.Description, in.ChangedFiles)
	tc.Facts["derivedBranchName"] = branch
	tc.Facts["stashRef"] = in.StashRef
	tc.Facts["popStash"] = in.PopStash == nil || *in.PopStash

	validator := branchvalidate.New(t.deps.Repo, t.deps.Store)
	avail, err := validator.CheckBranchNameAvailability(branch)
	if err != nil {
		return nil, err
	}
	tc.Facts[checks.FactBranchAvailability] = avail

	return tc, nil
}

func (t *Launch) PreFlightChecks() []string {
	return []string{"onMainBranch", "workingDirectoryClean", "mainUpToDate", "noExistingSession", "branchNameAvailable"}
}

func (t *Launch) Execute(ctx context.Context, tc *checks.Context) (*model.ToolResult, error) {
	branch, _ := checks.Fact[string](tc, "derivedBranchName")
	main, _ := checks.Fact[string](tc, checks.FactMainBranch)

	// Abort any sentinel session still open on trunk before branching off.
	if sentinel, err := t.deps.Store.GetSessionByBranch(main); err == nil && sentinel != nil && !sentinel.CurrentState.IsTerminal() {
		if _, err := t.deps.Store.UpdateSession(sentinel.ID, func(s *model.WorkflowSession) error {
			_, terr := statemachine.Transition(s, model.StateAborted, "launch:supersede", statemachine.RequirementCheck{})
			return terr
		}); err != nil {
			logging.Warn(ctx, "failed to supersede stale sentinel session", "error", err.Error())
		}
	}

	if err := t.deps.Repo.CreateBranch(branch, main); err != nil {
		return nil, err
	}
	if err := t.deps.Repo.CheckoutBranch(branch); err != nil {
		return nil, err
	}

	session := newSession(model.WorkflowLaunch, branch, model.StateInit)
	if _, err := statemachine.Transition(session, model.StateBranchReady, "launch", statemachine.RequirementCheck{BranchNameSet: true}); err != nil {
		return nil, err
	}

	stashRef, _ := checks.Fact[string](tc, "stashRef")
	popStash, _ := checks.Fact[bool](tc, "popStash")
	if stashRef != "" && popStash {
		if popped, err := stash.Pop(t.deps.Repo, stashRef); err == nil && popped {
			logging.Info(ctx, "popped stash onto new branch", "ref", stashRef, "branch", branch)
		}
	}

	if err := t.deps.Store.SaveSession(session); err != nil {
		return nil, err
	}
	if err := t.deps.Store.SetCurrentSession(session.ID); err != nil {
		logging.Warn(ctx, "failed to record current session pointer", "error", err.Error())
	}

	t.deps.emitAudit(session.ID, "launch", "user", model.AuditDetails{Command: "launch " + branch}, model.AuditSuccess, "")

	tc.Facts[checks.FactSessionCreated] = true
	tc.Facts[checks.FactBranchCheckedOut] = true
	tc.Facts[checks.FactSessionState] = session.CurrentState
	tc.Facts[checks.FactRequiredStates] = []model.State{model.StateBranchReady}

	return &model.ToolResult{
		Success: true, SessionID: session.ID, BranchName: branch, State: session.CurrentState,
		NextSteps: []string{fmt.Sprintf("make your changes, then run commit on %s", branch)},
	}, nil
}

func (t *Launch) PostFlightChecks() []string {
	return []string{"sessionCreated", "branchCheckedOut", "sessionStateCorrect", "branchAvailable"}
}
