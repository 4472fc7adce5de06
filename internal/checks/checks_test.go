package checks

import (
	"testing"

	"github.com/devsolo-dev/devsolo/internal/model"
)

func registryWith(checks ...Check) *Registry {
	r := NewRegistry()
	for _, c := range checks {
		r.Register(c)
	}
	return r
}

func TestFact_PresentAndTyped(t *testing.T) {
	ctx := &Context{Facts: map[string]any{"clean": true}}
	v, ok := Fact[bool](ctx, "clean")
	if !ok || !v {
		t.Errorf("got (%v,%v), want (true,true)", v, ok)
	}
}

func TestFact_AbsentKey(t *testing.T) {
	ctx := &Context{Facts: map[string]any{}}
	v, ok := Fact[bool](ctx, "missing")
	if ok || v {
		t.Errorf("got (%v,%v), want (false,false)", v, ok)
	}
}

func TestFact_WrongType(t *testing.T) {
	ctx := &Context{Facts: map[string]any{"count": 3}}
	v, ok := Fact[string](ctx, "count")
	if ok || v != "" {
		t.Errorf("got (%q,%v), want (\"\",false)", v, ok)
	}
}

func TestRegister_DuplicateIDPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic on duplicate check id")
		}
	}()
	r := NewRegistry()
	r.Register(Check{ID: "dup", Execute: func(*Context) model.CheckResult { return model.CheckResult{Level: model.LevelPass} }})
	r.Register(Check{ID: "dup", Execute: func(*Context) model.CheckResult { return model.CheckResult{Level: model.LevelPass} }})
}

func TestEngine_Run_UnknownIDErrors(t *testing.T) {
	e := NewEngine(NewRegistry())
	_, err := e.Run([]string{"nope"}, &Context{})
	if err == nil {
		t.Fatal("expected an error for an unregistered check id")
	}
}

func TestEngine_Run_AllPass(t *testing.T) {
	r := registryWith(
		Check{ID: "a", Execute: func(*Context) model.CheckResult { return model.CheckResult{ID: "a", Level: model.LevelPass} }},
		Check{ID: "b", Execute: func(*Context) model.CheckResult { return model.CheckResult{ID: "b", Level: model.LevelWarn} }},
	)
	outcome, err := NewEngine(r).Run([]string{"a", "b"}, &Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.AllPassed || outcome.Suspended {
		t.Errorf("got %+v, want AllPassed=true Suspended=false", outcome)
	}
	if len(outcome.Results) != 2 {
		t.Errorf("got %d results, want 2", len(outcome.Results))
	}
}

func TestEngine_Run_DoesNotShortCircuitOnFailure(t *testing.T) {
	r := registryWith(
		Check{ID: "fails", Execute: func(*Context) model.CheckResult { return model.CheckResult{ID: "fails", Level: model.LevelFail} }},
		Check{ID: "after", Execute: func(*Context) model.CheckResult { return model.CheckResult{ID: "after", Level: model.LevelPass} }},
	)
	outcome, err := NewEngine(r).Run([]string{"fails", "after"}, &Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.AllPassed {
		t.Error("expected AllPassed=false")
	}
	if len(outcome.Results) != 2 {
		t.Fatalf("got %d results, want both checks to have run", len(outcome.Results))
	}
}

func promptCheck(id string) Check {
	return Check{ID: id, Execute: func(*Context) model.CheckResult {
		return model.CheckResult{
			ID: id, Level: model.LevelPrompt,
			Options: []model.CheckOption{
				{ID: "stash", Label: "Stash changes"},
				{ID: "abort", Label: "Abort launch", AutoRecommended: true},
			},
		}
	}}
}

func TestEngine_Run_PromptSuspendsWithNoDecision(t *testing.T) {
	r := registryWith(promptCheck("dirty-tree"))
	outcome, err := NewEngine(r).Run([]string{"dirty-tree"}, &Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Suspended || outcome.AllPassed {
		t.Errorf("got %+v, want Suspended=true AllPassed=false", outcome)
	}
}

func TestEngine_Run_PromptResolvedByExplicitOption(t *testing.T) {
	r := registryWith(promptCheck("dirty-tree"))
	ctx := &Context{ResolvedOptions: map[string]string{"dirty-tree": "stash"}}
	outcome, err := NewEngine(r).Run([]string{"dirty-tree"}, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Suspended || !outcome.AllPassed {
		t.Errorf("got %+v, want Suspended=false AllPassed=true", outcome)
	}
	if outcome.Results[0].Level != model.LevelPass {
		t.Errorf("got level %s, want pass", outcome.Results[0].Level)
	}
}

func TestEngine_Run_PromptResolvedByAuto(t *testing.T) {
	r := registryWith(promptCheck("dirty-tree"))
	ctx := &Context{Auto: true}
	outcome, err := NewEngine(r).Run([]string{"dirty-tree"}, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Suspended || !outcome.AllPassed {
		t.Errorf("got %+v, want auto-resolution to pass without suspending", outcome)
	}
}

func TestEngine_Run_PromptWithUnknownResolvedOptionStillSuspends(t *testing.T) {
	r := registryWith(promptCheck("dirty-tree"))
	ctx := &Context{ResolvedOptions: map[string]string{"dirty-tree": "bogus-option"}}
	outcome, err := NewEngine(r).Run([]string{"dirty-tree"}, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Suspended {
		t.Error("expected an unrecognized option id to still leave the check suspended")
	}
}
