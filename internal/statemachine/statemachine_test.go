package statemachine

import (
	"testing"

	"github.com/devsolo-dev/devsolo/internal/model"
)

func TestValidateTransition_LegalMove(t *testing.T) {
	_, err := ValidateTransition(model.WorkflowLaunch, model.StateInit, model.StateBranchReady,
		RequirementCheck{BranchNameSet: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateTransition_IllegalMove(t *testing.T) {
	_, err := ValidateTransition(model.WorkflowLaunch, model.StateInit, model.StatePRCreated, RequirementCheck{})
	if model.KindOf(err) != model.ErrInvalidStateTransition {
		t.Fatalf("got %v, want ErrInvalidStateTransition", err)
	}
}

func TestValidateTransition_RequirementBlocks(t *testing.T) {
	_, err := ValidateTransition(model.WorkflowLaunch, model.StateInit, model.StateBranchReady,
		RequirementCheck{BranchNameSet: false})
	if model.KindOf(err) != model.ErrInvalidStateTransition {
		t.Fatalf("got %v, want ErrInvalidStateTransition for missing branch name", err)
	}
}

func TestValidateTransition_AdvisoryWarningDoesNotBlock(t *testing.T) {
	warning, err := ValidateTransition(model.WorkflowLaunch, model.StateBranchReady, model.StateChangesCommitted,
		RequirementCheck{NewCommitCount: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warning == "" {
		t.Error("expected a warning for zero new commits")
	}
}

func TestValidateTransition_TerminalStateRejectsAnyMove(t *testing.T) {
	_, err := ValidateTransition(model.WorkflowLaunch, model.StateComplete, model.StateBranchReady, RequirementCheck{})
	if model.KindOf(err) != model.ErrInvalidStateTransition {
		t.Fatalf("got %v, want ErrInvalidStateTransition from a terminal state", err)
	}
}

func TestValidateTransition_AbortedAlwaysLegalFromNonTerminal(t *testing.T) {
	_, err := ValidateTransition(model.WorkflowLaunch, model.StateChangesCommitted, model.StateAborted, RequirementCheck{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestTransition_LaunchSessionDrivesThroughShipPath exercises the exact
// sequence ship.go applies to a launch-created session on the happy path
// (commit -> push -> PR -> wait -> rebase -> merge -> cleanup -> done).
// No code ever constructs a session tagged WorkflowShip, so this is the
// path that actually runs in production, unlike testing WorkflowShip's
// table in isolation.
func TestTransition_LaunchSessionDrivesThroughShipPath(t *testing.T) {
	session := &model.WorkflowSession{WorkflowType: model.WorkflowLaunch, CurrentState: model.StateInit}

	steps := []struct {
		to  model.State
		req RequirementCheck
	}{
		{model.StateBranchReady, RequirementCheck{BranchNameSet: true}},
		{model.StateChangesCommitted, RequirementCheck{NewCommitCount: 1}},
		{model.StatePushed, RequirementCheck{HasUpstream: true}},
		{model.StatePRCreated, RequirementCheck{PRNumberSet: true}},
		{model.StateWaitingApproval, RequirementCheck{}},
		{model.StateRebasing, RequirementCheck{}},
		{model.StateMerging, RequirementCheck{}},
		{model.StateCleanup, RequirementCheck{}},
		{model.StateComplete, RequirementCheck{}},
	}
	for _, step := range steps {
		if _, err := Transition(session, step.to, "ship", step.req); err != nil {
			t.Fatalf("transition to %s: unexpected error: %v", step.to, err)
		}
	}
	if session.CurrentState != model.StateComplete {
		t.Fatalf("got final state %s, want COMPLETE", session.CurrentState)
	}
	if len(session.StateHistory) != len(steps) {
		t.Fatalf("got %d history entries, want %d", len(session.StateHistory), len(steps))
	}
}

// TestTransition_HotfixSessionDrivesThroughShipPath exercises the sequence
// ship.go applies to a hotfix session, which merges straight from
// HOTFIX_VALIDATED with no PR_CREATED or REBASING stop of its own.
func TestTransition_HotfixSessionDrivesThroughShipPath(t *testing.T) {
	session := &model.WorkflowSession{WorkflowType: model.WorkflowHotfix, CurrentState: model.StateHotfixInit}

	steps := []struct {
		to  model.State
		req RequirementCheck
	}{
		{model.StateHotfixReady, RequirementCheck{BranchNameSet: true}},
		{model.StateHotfixCommitted, RequirementCheck{NewCommitCount: 1}},
		{model.StateHotfixPushed, RequirementCheck{HasUpstream: true}},
		{model.StateHotfixValidated, RequirementCheck{PRNumberSet: true}},
		{model.StateHotfixDeployed, RequirementCheck{}},
		{model.StateHotfixCleanup, RequirementCheck{}},
		{model.StateHotfixComplete, RequirementCheck{}},
	}
	for _, step := range steps {
		if _, err := Transition(session, step.to, "ship", step.req); err != nil {
			t.Fatalf("transition to %s: unexpected error: %v", step.to, err)
		}
	}
	if session.CurrentState != model.StateHotfixComplete {
		t.Fatalf("got final state %s, want HOTFIX_COMPLETE", session.CurrentState)
	}
}

// TestWorkflowShip_SharesLaunchTable documents that WorkflowShip is not a
// kind any session is ever constructed with; it is kept only as an alias
// onto launchTable for introspection commands (cmd/devsolo/cli/explain.go)
// that label ship-driving tools with it.
func TestWorkflowShip_SharesLaunchTable(t *testing.T) {
	shipEdges := Edges(model.WorkflowShip)
	launchEdges := Edges(model.WorkflowLaunch)
	if len(shipEdges) != len(launchEdges) {
		t.Fatalf("got %d ship edges, want the same %d as launch", len(shipEdges), len(launchEdges))
	}
}

func TestValidateTransition_UnknownWorkflowKind(t *testing.T) {
	_, err := ValidateTransition(model.WorkflowKind("bogus"), model.StateInit, model.StateBranchReady, RequirementCheck{BranchNameSet: true})
	if model.KindOf(err) != model.ErrInternal {
		t.Fatalf("got %v, want ErrInternal for unknown workflow kind", err)
	}
}

func TestTransition_AppendsHistoryAndUpdatesState(t *testing.T) {
	session := &model.WorkflowSession{
		WorkflowType: model.WorkflowLaunch,
		CurrentState: model.StateInit,
	}
	_, err := Transition(session, model.StateBranchReady, "branch created", RequirementCheck{BranchNameSet: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.CurrentState != model.StateBranchReady {
		t.Errorf("got state %s, want BRANCH_READY", session.CurrentState)
	}
	if len(session.StateHistory) != 1 {
		t.Fatalf("got %d history entries, want 1", len(session.StateHistory))
	}
	entry := session.StateHistory[0]
	if entry.From != model.StateInit || entry.To != model.StateBranchReady || entry.Trigger != "branch created" {
		t.Errorf("unexpected history entry: %+v", entry)
	}
}

func TestTransition_IllegalMoveLeavesSessionUnchanged(t *testing.T) {
	session := &model.WorkflowSession{
		WorkflowType: model.WorkflowLaunch,
		CurrentState: model.StateInit,
	}
	_, err := Transition(session, model.StatePRCreated, "skip ahead", RequirementCheck{})
	if err == nil {
		t.Fatal("expected an error for an illegal transition")
	}
	if session.CurrentState != model.StateInit {
		t.Errorf("state changed on a rejected transition: %s", session.CurrentState)
	}
	if len(session.StateHistory) != 0 {
		t.Errorf("history grew on a rejected transition: %d entries", len(session.StateHistory))
	}
}

func TestEdges_ReturnsAllTableEntries(t *testing.T) {
	edges := Edges(model.WorkflowLaunch)
	if len(edges) != len(launchTable) {
		t.Fatalf("got %d edges, want %d", len(edges), len(launchTable))
	}
	found := false
	for _, e := range edges {
		if e.From == model.StateInit && e.To == model.StateBranchReady {
			found = true
		}
	}
	if !found {
		t.Error("expected INIT -> BRANCH_READY among launch's edges")
	}
}

func TestEdges_UnknownKindReturnsEmpty(t *testing.T) {
	edges := Edges(model.WorkflowKind("bogus"))
	if len(edges) != 0 {
		t.Errorf("got %d edges, want 0 for an unknown kind", len(edges))
	}
}
