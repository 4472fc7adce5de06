// Package tool implements the Tool Base: the uniform pipeline every
// mutating workflow tool runs through, so individual tools (internal/tools)
// supply only the phases that differ and inherit everything else —
// parameter collection, pre/post-flight check running, and error-to-result
// folding.
package tool

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/devsolo-dev/devsolo/internal/checks"
	"github.com/devsolo-dev/devsolo/internal/config"
	"github.com/devsolo-dev/devsolo/internal/logging"
	"github.com/devsolo-dev/devsolo/internal/model"
)

// paramValidator enforces the `validate` struct tags on each tool's Input
// type: the schema-level constraints (required fields, oneof enums, numeric
// ranges) that sit above the tool-specific logic in CollectMissingParameters.
var paramValidator = validator.New()

// CollectResult is phase 2's outcome: either the input is complete, or a
// structured response describing what's missing is returned to the caller
// so an orchestrating client can prompt the user and retry.
type CollectResult struct {
	Collected bool
	Result    *model.ToolResult
}

// Tool is implemented by each concrete workflow tool (launch, commit, ship,
// swap, abort, hotfix, cleanup). Init tools (the one that writes the
// initialization marker) set SkipInitCheck.
type Tool interface {
	Name() string
	SkipInitCheck() bool
	CollectMissingParameters(ctx context.Context, input any) (CollectResult, error)
	CreateContext(ctx context.Context, input any) (*checks.Context, error)
	PreFlightChecks() []string
	Execute(ctx context.Context, tc *checks.Context) (*model.ToolResult, error)
	PostFlightChecks() []string
}

// Base runs every Tool through the seven-phase pipeline.
type Base struct {
	Engine *checks.Engine
}

func NewBase(registry *checks.Registry) *Base {
	return &Base{Engine: checks.NewEngine(registry)}
}

// Run executes t against input, never returning an unhandled error: any
// failure at any phase is folded into a ToolResult with Success=false and a
// tagged Kind.
func (b *Base) Run(ctx context.Context, t Tool, input any) *model.ToolResult {
	ctx = logging.WithTool(ctx, t.Name())

	// 1. checkInitialization
	if !t.SkipInitCheck() && !config.IsInitialized() {
		return errorResult(model.ErrNotInitialized, "workspace is not initialized; run the init tool first")
	}

	// 2. collectMissingParameters
	collected, err := t.CollectMissingParameters(ctx, input)
	if err != nil {
		return foldErr(err)
	}
	if !collected.Collected {
		if collected.Result != nil {
			collected.Result.Collected = false
			return collected.Result
		}
		return &model.ToolResult{Success: false, Collected: false, Kind: model.ErrMissingParameter,
			Errors: []string{"additional input required"}}
	}

	// 2.5 validateInput: schema-level constraints declared via `validate`
	// struct tags, separate from the tool-specific gaps CollectMissingParameters
	// fills in.
	if err := paramValidator.Struct(input); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fe.Namespace()+" failed validation: "+fe.Tag())
			}
			return &model.ToolResult{Success: false, Kind: model.ErrMissingParameter, Errors: msgs}
		}
	}

	// 3. createContext (read-only derivation)
	tc, err := t.CreateContext(ctx, input)
	if err != nil {
		return foldErr(err)
	}

	// 4. runPreFlightChecks
	preOutcome, err := b.Engine.Run(t.PreFlightChecks(), tc)
	if err != nil {
		return foldErr(err)
	}
	force, _ := checks.Fact[bool](tc, "force")
	if !preOutcome.AllPassed && !force {
		return &model.ToolResult{
			Success: false, Kind: model.ErrPreFlightFailed,
			PreFlightChecks: preOutcome.Results,
			Errors:          []string{"pre-flight checks did not all pass"},
		}
	}

	// 5. executeWorkflow
	execResult, execErr := t.Execute(ctx, tc)
	if execErr != nil {
		result := foldErr(execErr)
		result.PreFlightChecks = preOutcome.Results
		// Post-flight still runs per the "always runs" contract, even on a
		// failed execute, so operators can see what partially happened.
		postOutcome, _ := b.Engine.Run(t.PostFlightChecks(), tc)
		result.PostFlightVerifications = postOutcome.Results
		return result
	}
	if execResult == nil {
		execResult = &model.ToolResult{Success: true}
	}

	// 6. runPostFlightVerifications
	postOutcome, err := b.Engine.Run(t.PostFlightChecks(), tc)
	if err != nil {
		logging.Warn(ctx, "post-flight check run failed", "error", err.Error())
	}

	// 7. createFinalResult
	execResult.PreFlightChecks = preOutcome.Results
	execResult.PostFlightVerifications = postOutcome.Results
	execResult.Collected = true
	return execResult
}

func errorResult(kind model.ErrorKind, msg string) *model.ToolResult {
	return &model.ToolResult{Success: false, Kind: kind, Errors: []string{msg}}
}

// foldErr converts any error into a ToolResult, recovering the tagged Kind
// when the error is (or wraps) a *model.ToolError.
func foldErr(err error) *model.ToolResult {
	kind := model.KindOf(err)
	return &model.ToolResult{Success: false, Kind: kind, Errors: []string{err.Error()}}
}
