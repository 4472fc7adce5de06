// Package statemachine validates and applies WorkflowSession state
// transitions against the two fixed transition tables (launch, which also
// governs ship-driven sessions, and hotfix), appending stateHistory entries
// and returning an audit detail for each successful move.
package statemachine

import (
	"fmt"
	"time"

	"github.com/devsolo-dev/devsolo/internal/model"
)

// edge is one legal (from, to) pair.
type edge struct {
	from model.State
	to   model.State
}

// launchTable governs every session that reaches ship.go through the
// ordinary launch->commit->ship path: a launch-created session and a
// ship-invoked session are the same state machine, since nothing ever
// constructs a session tagged WorkflowShip on its own (ship is a step
// launch-kind sessions drive through, not a kind sessions start as).
var launchTable = buildTable([]edge{
	{model.StateInit, model.StateBranchReady},
	{model.StateBranchReady, model.StateChangesCommitted},
	{model.StateChangesCommitted, model.StatePushed},
	{model.StatePushed, model.StatePRCreated},
	{model.StatePRCreated, model.StateWaitingApproval},
	{model.StateWaitingApproval, model.StateRebasing},
	{model.StateRebasing, model.StateMerging},
	{model.StateMerging, model.StateCleanup},
	{model.StateCleanup, model.StateComplete},
})

var hotfixTable = buildTable([]edge{
	{model.StateHotfixInit, model.StateHotfixReady},
	{model.StateHotfixReady, model.StateHotfixCommitted},
	{model.StateHotfixCommitted, model.StateHotfixPushed},
	{model.StateHotfixPushed, model.StateHotfixValidated},
	{model.StateHotfixValidated, model.StateHotfixDeployed},
	{model.StateHotfixDeployed, model.StateHotfixCleanup},
	{model.StateHotfixCleanup, model.StateHotfixComplete},
})

func buildTable(edges []edge) map[edge]bool {
	t := make(map[edge]bool, len(edges))
	for _, e := range edges {
		t[e] = true
	}
	return t
}

func tableFor(kind model.WorkflowKind) map[edge]bool {
	switch kind {
	case model.WorkflowLaunch, model.WorkflowShip:
		return launchTable
	case model.WorkflowHotfix:
		return hotfixTable
	default:
		return nil
	}
}

// Edge is one legal (From, To) transition, exported for introspection
// commands that print a workflow's transition table.
type Edge struct {
	From model.State
	To   model.State
}

// Edges returns kind's legal transitions in no particular order.
func Edges(kind model.WorkflowKind) []Edge {
	table := tableFor(kind)
	out := make([]Edge, 0, len(table))
	for e := range table {
		out = append(out, Edge{From: e.from, To: e.to})
	}
	return out
}

// RequirementCheck describes what Transition needs from the caller to
// validate a transition's requirement (see Requirements below). Facts not
// relevant to the target state are ignored.
type RequirementCheck struct {
	BranchNameSet   bool
	NewCommitCount  int
	HasUpstream     bool
	PRNumberSet     bool
	AlreadyRebasing bool
}

// ValidateTransition reports whether (from, trigger-implied) to is legal for
// kind, and any non-fatal warning produced by a requirement that is
// advisory rather than blocking.
func ValidateTransition(kind model.WorkflowKind, from, to model.State, req RequirementCheck) (warning string, err error) {
	if from.IsTerminal() {
		return "", model.NewToolError(model.ErrInvalidStateTransition,
			fmt.Sprintf("session is in terminal state %s", from), nil)
	}

	if to == model.StateAborted {
		return "", nil // any non-terminal state may move to ABORTED
	}

	table := tableFor(kind)
	if table == nil {
		return "", model.NewToolError(model.ErrInternal, fmt.Sprintf("unknown workflow kind %q", kind), nil)
	}
	if !table[edge{from, to}] {
		return "", model.NewToolError(model.ErrInvalidStateTransition,
			fmt.Sprintf("%s -> %s is not a legal transition for %s", from, to, kind), nil)
	}

	switch to {
	case model.StateBranchReady:
		if !req.BranchNameSet {
			return "", model.NewToolError(model.ErrInvalidStateTransition, "branch name must be set before BRANCH_READY", nil)
		}
	case model.StateChangesCommitted:
		if req.NewCommitCount == 0 {
			warning = "no new commits since fork point"
		}
	case model.StatePushed:
		if !req.HasUpstream {
			return "", model.NewToolError(model.ErrInvalidStateTransition, "branch has no upstream", nil)
		}
	case model.StatePRCreated:
		if !req.PRNumberSet {
			return "", model.NewToolError(model.ErrInvalidStateTransition, "metadata.pr.number must be set before PR_CREATED", nil)
		}
	case model.StateRebasing:
		if req.AlreadyRebasing {
			return "", model.NewToolError(model.ErrInvalidStateTransition, "a rebase is already in progress", nil)
		}
	}

	return warning, nil
}

// Transition validates and applies a move, appending a stateHistory entry.
// It does not persist the session; the caller (a workflow tool, under its
// session lock) is responsible for saving afterward.
func Transition(session *model.WorkflowSession, to model.State, trigger string, req RequirementCheck) (warning string, err error) {
	from := session.CurrentState
	warning, err = ValidateTransition(session.WorkflowType, from, to, req)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	session.StateHistory = append(session.StateHistory, model.StateTransition{
		From: from, To: to, Trigger: trigger, Timestamp: now,
	})
	session.CurrentState = to
	session.UpdatedAt = now
	return warning, nil
}
