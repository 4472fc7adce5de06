package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/devsolo-dev/devsolo/internal/model"
)

func TestPrintResult_SuccessHumanSummary(t *testing.T) {
	var buf bytes.Buffer
	result := &model.ToolResult{
		Success: true, BranchName: "feature/add-login", State: model.StateBranchReady,
		NextSteps: []string{"run devsolo commit"},
	}
	if err := printResult(&buf, result, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"ok", "branch=feature/add-login", "state=BRANCH_READY", "-> run devsolo commit"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestPrintResult_FailureHumanSummary(t *testing.T) {
	var buf bytes.Buffer
	result := &model.ToolResult{
		Success: false, Kind: model.ErrPreFlightFailed,
		Errors: []string{"working tree is dirty"},
		PreFlightChecks: []model.CheckResult{
			{ID: "clean-tree", Name: "clean tree", Level: model.LevelFail, Message: "2 files modified"},
			{ID: "on-main", Name: "on main", Level: model.LevelPass, Message: "ok"},
		},
	}
	if err := printResult(&buf, result, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "failed: "+string(model.ErrPreFlightFailed)) {
		t.Errorf("output %q missing failure header", out)
	}
	if !strings.Contains(out, "working tree is dirty") {
		t.Errorf("output %q missing error detail", out)
	}
	if !strings.Contains(out, "clean tree") {
		t.Errorf("output %q missing failed check", out)
	}
	if strings.Contains(out, "on main") {
		t.Errorf("output %q should not print a passed check", out)
	}
}

func TestPrintResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	result := &model.ToolResult{Success: true, BranchName: "feature/x"}
	if err := printResult(&buf, result, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"success": true`) {
		t.Errorf("expected indented JSON output, got %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("expected a trailing newline")
	}
}

func TestResultErr(t *testing.T) {
	if err := resultErr(&model.ToolResult{Success: true}); err != nil {
		t.Errorf("expected nil error for a successful result, got %v", err)
	}
	err := resultErr(&model.ToolResult{Success: false, Kind: model.ErrPreFlightFailed})
	if err == nil || !strings.Contains(err.Error(), string(model.ErrPreFlightFailed)) {
		t.Errorf("got %v, want an error mentioning %s", err, model.ErrPreFlightFailed)
	}
}
