package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/devsolo-dev/devsolo/internal/config"
	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/server"
	"github.com/devsolo-dev/devsolo/internal/telemetry"
)

// toolWorkflowKind maps a tool name to the workflow kind reported alongside
// it in telemetry; tools that aren't session-kind-specific report "ship".
var toolWorkflowKind = map[string]string{
	"launch": "launch", "hotfix": "hotfix",
	"commit": "ship", "ship": "ship", "swap": "ship", "abort": "ship", "cleanup": "ship",
}

// runTool opens a Server, dispatches toolName with input marshaled to JSON,
// prints the result (respecting --json), reports the outcome to telemetry,
// and maps an unsuccessful result to a non-zero exit without duplicating
// that wiring in every subcommand.
func runTool(cmd *cobra.Command, toolName string, input any, asJSON bool) error {
	srv, err := newServer()
	if err != nil {
		return err
	}

	result, err := dispatchOnce(cmd, srv, toolName, input)
	if err != nil {
		return err
	}

	// A pre-flight prompt check that suspended waits for a decision; ask
	// once interactively and retry with that decision attached.
	if !result.Success && result.Kind == model.ErrPreFlightFailed {
		if check, ok := firstSuspendedPrompt(result); ok {
			if r, ok := input.(resolvable); ok {
				chosen, perr := resolvePromptInteractively(check)
				if perr == nil {
					r.SetResolvedOptions(map[string]string{check.ID: chosen})
					result, err = dispatchOnce(cmd, srv, toolName, input)
					if err != nil {
						return err
					}
				}
			}
		}
	}

	trackTool(toolName, result.Success)

	if perr := printResult(cmd.OutOrStdout(), result, asJSON); perr != nil {
		return perr
	}
	return resultErr(result)
}

// dispatchOnce marshals input and runs one Dispatch round.
func dispatchOnce(cmd *cobra.Command, srv *server.Server, toolName string, input any) (*model.ToolResult, error) {
	args, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	return srv.Dispatch(cmd.Context(), toolName, args)
}

// trackTool reports one tool outcome, best-effort: a telemetry client that
// fails to construct (or is disabled) degrades to a no-op silently.
func trackTool(toolName string, success bool) {
	cfg, err := config.Load()
	if err != nil {
		return
	}
	client := telemetry.NewClient(version, cfg.Preferences.Telemetry)
	defer client.Close()
	client.TrackTool(toolName, toolWorkflowKind[toolName], success)
}
