package tool

import (
	"context"
	"testing"

	"github.com/devsolo-dev/devsolo/internal/checks"
	"github.com/devsolo-dev/devsolo/internal/model"
)

type validatedInput struct {
	Name string `json:"name" validate:"required"`
}

type stubTool struct{}

func (stubTool) Name() string        { return "stub" }
func (stubTool) SkipInitCheck() bool { return true }

func (stubTool) CollectMissingParameters(_ context.Context, _ any) (CollectResult, error) {
	return CollectResult{Collected: true}, nil
}

func (stubTool) CreateContext(_ context.Context, _ any) (*checks.Context, error) {
	return &checks.Context{Facts: map[string]any{}}, nil
}

func (stubTool) PreFlightChecks() []string { return nil }

func (stubTool) Execute(_ context.Context, _ *checks.Context) (*model.ToolResult, error) {
	return &model.ToolResult{Success: true}, nil
}

func (stubTool) PostFlightChecks() []string { return nil }

func TestBase_Run_ValidationRejectsMissingRequiredField(t *testing.T) {
	b := NewBase(checks.NewRegistry())
	result := b.Run(context.Background(), stubTool{}, &validatedInput{})
	if result.Success {
		t.Fatal("expected validation to reject an empty required field")
	}
	if result.Kind != model.ErrMissingParameter {
		t.Errorf("got kind %s, want missing-parameter", result.Kind)
	}
}

func TestBase_Run_ValidationPassesWithRequiredFieldSet(t *testing.T) {
	b := NewBase(checks.NewRegistry())
	result := b.Run(context.Background(), stubTool{}, &validatedInput{Name: "x"})
	if !result.Success {
		t.Fatalf("got %+v, want success", result)
	}
}
