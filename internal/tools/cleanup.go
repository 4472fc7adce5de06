package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/devsolo-dev/devsolo/internal/checks"
	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/store"
	"github.com/devsolo-dev/devsolo/internal/tool"
)

// CleanupInput is cleanup's parameter set.
type CleanupInput struct {
	baseInput
	DeleteBranches bool `json:"deleteBranches,omitempty"`
	OlderThan      int  `json:"olderThan,omitempty" validate:"gte=0"` // days
	DryRun         bool `json:"dryRun,omitempty"`
}

// Cleanup proposes (and, on confirmation, performs) removal of terminal or
// expired sessions and the orphaned local branches left behind by them.
type Cleanup struct {
	deps *Deps
}

func NewCleanup(deps *Deps) *Cleanup { return &Cleanup{deps: deps} }

func (t *Cleanup) Name() string        { return "cleanup" }
func (t *Cleanup) SkipInitCheck() bool { return false }

func (t *Cleanup) CollectMissingParameters(_ context.Context, _ any) (tool.CollectResult, error) {
	return tool.CollectResult{Collected: true}, nil
}

func (t *Cleanup) CreateContext(_ context.Context, input any) (*checks.Context, error) {
	in := input.(*CleanupInput)
	tc := &checks.Context{Facts: map[string]any{}}
	ctxWithForce(tc, in.baseInput)
	tc.Facts["deleteBranches"] = in.DeleteBranches
	tc.Facts["olderThanDays"] = in.OlderThan
	tc.Facts["dryRun"] = in.DryRun
	return tc, nil
}

func (t *Cleanup) PreFlightChecks() []string { return nil }

func (t *Cleanup) Execute(ctx context.Context, tc *checks.Context) (*model.ToolResult, error) {
	deleteBranches, _ := checks.Fact[bool](tc, "deleteBranches")
	olderThanDays, _ := checks.Fact[int](tc, "olderThanDays")
	dryRun, _ := checks.Fact[bool](tc, "dryRun")
	auto := tc.Auto

	all, err := t.deps.Store.ListSessions(store.ListOptions{Active: false})
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-time.Duration(olderThanDays) * 24 * time.Hour)
	var eligible []string
	var eligibleBranches []string
	for _, s := range all {
		if !s.CurrentState.IsTerminal() {
			continue
		}
		if olderThanDays > 0 && s.UpdatedAt.After(cutoff) {
			continue
		}
		eligible = append(eligible, s.ID)
		eligibleBranches = append(eligibleBranches, s.BranchName)
	}

	orphans, err := orphanedLocalBranches(t.deps, eligibleBranches)
	if err != nil {
		return nil, err
	}

	proposal := fmt.Sprintf("would remove %d session record(s) and %d orphaned branch(es): %s",
		len(eligible), len(orphans), strings.Join(orphans, ", "))

	if dryRun || (!auto) {
		return &model.ToolResult{
			Success: true, Data: map[string]any{"sessions": eligible, "branches": orphans},
			NextSteps: []string{proposal, "re-run with auto=true to perform the deletion"},
		}, nil
	}

	removed := 0
	for _, id := range eligible {
		if err := t.deps.Store.DeleteSession(id); err == nil {
			removed++
		}
	}
	if deleteBranches {
		for _, b := range orphans {
			_ = t.deps.Repo.DeleteLocalBranch(b, true)
		}
	}

	t.deps.emitAudit("", "cleanup", "user", model.AuditDetails{Command: "cleanup"}, model.AuditSuccess, "")

	return &model.ToolResult{
		Success: true,
		Data:    map[string]any{"sessionsRemoved": removed, "branchesConsidered": orphans},
	}, nil
}

func (t *Cleanup) PostFlightChecks() []string { return nil }

// orphanedLocalBranches returns local branches matching the naming
// convention that have no corresponding session and are not trunk.
func orphanedLocalBranches(d *Deps, sessionBranches []string) ([]string, error) {
	owned := map[string]bool{}
	for _, b := range sessionBranches {
		owned[b] = true
	}
	main, err := d.Repo.MainBranch()
	if err != nil {
		return nil, err
	}
	all, err := d.Repo.ListLocalBranches()
	if err != nil {
		return nil, err
	}
	var orphans []string
	for _, b := range all {
		if b == main || owned[b] {
			continue
		}
		session, err := d.Store.GetSessionByBranch(b)
		if err == nil && session == nil {
			orphans = append(orphans, b)
		}
	}
	return orphans, nil
}
