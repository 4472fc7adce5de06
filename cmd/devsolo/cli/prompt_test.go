package cli

import (
	"testing"

	"github.com/devsolo-dev/devsolo/internal/model"
)

func TestFirstSuspendedPrompt_Found(t *testing.T) {
	result := &model.ToolResult{
		PreFlightChecks: []model.CheckResult{
			{ID: "clean", Level: model.LevelPass},
			{ID: "dirty-tree", Level: model.LevelPrompt, Options: []model.CheckOption{{ID: "stash"}}},
		},
	}
	check, ok := firstSuspendedPrompt(result)
	if !ok {
		t.Fatal("expected a suspended prompt check to be found")
	}
	if check.ID != "dirty-tree" {
		t.Errorf("got id %q, want dirty-tree", check.ID)
	}
}

func TestFirstSuspendedPrompt_NoneSuspended(t *testing.T) {
	result := &model.ToolResult{
		PreFlightChecks: []model.CheckResult{
			{ID: "clean", Level: model.LevelPass},
			{ID: "warn", Level: model.LevelWarn},
		},
	}
	if _, ok := firstSuspendedPrompt(result); ok {
		t.Error("expected no suspended prompt check")
	}
}

func TestFirstSuspendedPrompt_PromptWithoutOptionsIsNotSuspended(t *testing.T) {
	result := &model.ToolResult{
		PreFlightChecks: []model.CheckResult{
			{ID: "odd", Level: model.LevelPrompt, Options: nil},
		},
	}
	if _, ok := firstSuspendedPrompt(result); ok {
		t.Error("expected a prompt-level check with no options not to count as suspended")
	}
}
