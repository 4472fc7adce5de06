package tools

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"

	"github.com/devsolo-dev/devsolo/internal/audit"
	"github.com/devsolo-dev/devsolo/internal/checks"
	"github.com/devsolo-dev/devsolo/internal/gitops"
	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/paths"
	"github.com/devsolo-dev/devsolo/internal/statemachine"
	"github.com/devsolo-dev/devsolo/internal/store"
)

// runGit runs a git subcommand in dir, failing the test on error. Used for
// the handful of setup operations gitops.Repo doesn't expose (remote add,
// branch rename, the initial push of main).
func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoErrorf(t, err, "git %v: %s", args, out)
}

// newShipTestRepo builds a working repo with a local bare "origin", main
// carrying one commit, and feature/ship-it checked out one commit ahead of
// it. This is the state commit.go leaves behind, and the state ship.go
// expects to resume from.
func newShipTestRepo(t *testing.T) (*gitops.Repo, string) {
	t.Helper()

	remoteDir := t.TempDir()
	runGit(t, remoteDir, "init", "--bare")

	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	r, err := gitops.Open(dir)
	require.NoError(t, err)
	require.NoError(t, r.ConfigSet("user.name", "Test User"))
	require.NoError(t, r.ConfigSet("user.email", "test@example.com"))
	runGit(t, dir, "remote", "add", "origin", remoteDir)

	require.NoError(t, writeFile(dir, "README.md", "# test repo\n"))
	require.NoError(t, r.Commit("initial commit", gitops.CommitOptions{}))
	runGit(t, dir, "branch", "-M", "main")
	runGit(t, dir, "push", "origin", "main")

	require.NoError(t, r.CreateBranch("feature/ship-it", "main"))
	require.NoError(t, r.CheckoutBranch("feature/ship-it"))
	require.NoError(t, writeFile(dir, "change.txt", "a change\n"))
	require.NoError(t, r.Commit("add a change", gitops.CommitOptions{}))

	t.Chdir(dir)
	paths.ClearRepoRootCache()
	t.Cleanup(paths.ClearRepoRootCache)

	return r, dir
}

func writeFile(dir, name, content string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
}

// newShipDeps wires a Deps against repo with no platform configured (the
// bare local remote's file:// path doesn't match platform.ParseRemote), so
// Ship.Execute's PR/CI/merge steps are exercised only as no-ops that must
// not crash — CreatePullRequest and friends are never reached.
func newShipDeps(repo *gitops.Repo) *Deps {
	return &Deps{Repo: repo, Store: store.New(), Audit: audit.New()}
}

func newShipSession(kind model.WorkflowKind, branch string, state model.State) *model.WorkflowSession {
	return newSession(kind, branch, state)
}

// TestShipStates_SequenceMatchesTransitionTable is the direct regression
// guard for the table/kind mismatch this package shipped with: for every
// WorkflowKind ship.go actually drives (launch and hotfix), the consecutive
// states named by shipStatesFor must all be legal moves under the table
// ValidateTransition resolves for that same kind. A table edge removed or a
// shipStates field pointed at the wrong state fails here before it ever
// reaches a real merge.
func TestShipStates_SequenceMatchesTransitionTable(t *testing.T) {
	cases := []struct {
		name string
		kind model.WorkflowKind
	}{
		{"launch", model.WorkflowLaunch},
		{"hotfix", model.WorkflowHotfix},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			states := shipStatesFor(tc.kind)
			sequence := []model.State{states.committed, states.pushed}
			if states.prCreated != "" {
				sequence = append(sequence, states.prCreated)
			}
			sequence = append(sequence, states.waiting)
			if states.rebasing != "" {
				sequence = append(sequence, states.rebasing)
			}
			sequence = append(sequence, states.merging, states.cleanup, states.complete)

			for i := 0; i < len(sequence)-1; i++ {
				from, to := sequence[i], sequence[i+1]
				_, err := statemachine.ValidateTransition(tc.kind, from, to, statemachine.RequirementCheck{
					BranchNameSet: true, NewCommitCount: 1, HasUpstream: true, PRNumberSet: true,
				})
				require.NoErrorf(t, err, "%s -> %s must be a legal transition for %s", from, to, tc.kind)
			}
		})
	}
}

// TestShip_Execute_CommitsAndPushes drives Ship.Execute end-to-end against
// a real repository and a real Store, for both a launch-kind and a
// hotfix-kind session sitting one commit ahead of an unpushed branch. It
// exercises exactly the code path the dead shipTable bug broke: a
// statemachine.Transition call wrapped in Store.UpdateSession, whose error
// (if the table and the state it targets disagree) must either be nil or
// actually surface, never silently discarded.
func TestShip_Execute_CommitsAndPushes(t *testing.T) {
	cases := []struct {
		name          string
		kind          model.WorkflowKind
		initialState  model.State
		wantPushState model.State
	}{
		{"launch", model.WorkflowLaunch, model.StateChangesCommitted, model.StatePushed},
		{"hotfix", model.WorkflowHotfix, model.StateHotfixCommitted, model.StateHotfixPushed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, _ := newShipTestRepo(t)
			deps := newShipDeps(repo)

			session := newShipSession(tc.kind, "feature/ship-it", tc.initialState)
			require.NoError(t, deps.Store.SaveSession(session))

			states := shipStatesFor(tc.kind)
			tool := NewShip(deps)
			tcx := &checks.Context{Facts: map[string]any{
				checks.FactSessionForTarget:   session,
				checks.FactCurrentBranch:      "feature/ship-it",
				checks.FactMainBranch:         "main",
				checks.FactPlatformConfigured: false,
				"message":    "a change",
				"stagedOnly": false,
				"doPush":     true,
				"doCreatePR": true,
				"doMerge":    true,
			}}

			result, err := tool.Execute(context.Background(), tcx)
			require.NoError(t, err)
			require.True(t, result.Success)
			require.Equal(t, states.pushed, result.State)
			require.Equal(t, tc.wantPushState, result.State)

			reloaded, err := deps.Store.GetSession(session.ID)
			require.NoError(t, err)
			require.Equal(t, states.pushed, reloaded.CurrentState)
			require.NotEmpty(t, reloaded.StateHistory)
		})
	}
}

// TestShip_Execute_WaitingWithNoPlatformIsANoOp confirms that when a
// session is already parked at its waiting-for-merge checkpoint and the
// platform isn't configured, Execute neither errors nor advances the
// state: the merge/cleanup steps must stay gated on a real client,
// matching what CreateContext's FactPlatformConfigured reports.
func TestShip_Execute_WaitingWithNoPlatformIsANoOp(t *testing.T) {
	repo, _ := newShipTestRepo(t)
	require.NoError(t, repo.Push(context.Background(), "feature/ship-it", gitops.PushOptions{SetUpstream: true}))

	deps := newShipDeps(repo)
	session := newShipSession(model.WorkflowLaunch, "feature/ship-it", model.StateWaitingApproval)
	session.Metadata.PR = &model.PRMetadata{Number: 7, URL: "https://example.invalid/pr/7"}
	require.NoError(t, deps.Store.SaveSession(session))

	tool := NewShip(deps)
	tcx := &checks.Context{Facts: map[string]any{
		checks.FactSessionForTarget:   session,
		checks.FactCurrentBranch:      "feature/ship-it",
		checks.FactMainBranch:         "main",
		checks.FactPlatformConfigured: false,
		"message":    "a change",
		"stagedOnly": false,
		"doPush":     true,
		"doCreatePR": true,
		"doMerge":    true,
	}}

	result, err := tool.Execute(context.Background(), tcx)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, model.StateWaitingApproval, result.State)

	reloaded, err := deps.Store.GetSession(session.ID)
	require.NoError(t, err)
	require.Equal(t, model.StateWaitingApproval, reloaded.CurrentState)
	require.False(t, reloaded.Metadata.PR.Merged)
}
