// Package cli builds devsolo's command tree: one subcommand per workflow
// tool, dispatched through internal/server, plus the supplemented
// status/doctor/explain/version commands.
package cli

import (
	"fmt"
	"io"

	"github.com/devsolo-dev/devsolo/internal/jsonutil"
	"github.com/devsolo-dev/devsolo/internal/model"
)

// printResult renders a ToolResult either as pretty JSON (--json) or as the
// short human summary every workflow command shares.
func printResult(w io.Writer, result *model.ToolResult, asJSON bool) error {
	if asJSON {
		data, err := jsonutil.MarshalIndentWithNewline(result, "", "  ")
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	if result.Success {
		fmt.Fprintf(w, "ok")
		if result.BranchName != "" {
			fmt.Fprintf(w, "  branch=%s", result.BranchName)
		}
		if result.State != "" {
			fmt.Fprintf(w, "  state=%s", result.State)
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintf(w, "failed: %s\n", result.Kind)
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}

	for _, c := range result.PreFlightChecks {
		if !c.Passed() {
			fmt.Fprintf(w, "pre-flight [%s] %s: %s\n", c.Level, c.Name, c.Message)
		}
	}
	for _, c := range result.PostFlightVerifications {
		if !c.Passed() {
			fmt.Fprintf(w, "post-flight [%s] %s: %s\n", c.Level, c.Name, c.Message)
		}
	}
	for _, step := range result.NextSteps {
		fmt.Fprintf(w, "-> %s\n", step)
	}
	return nil
}

// resultErr turns an unsuccessful, transport-error-free ToolResult into a Go
// error so RunE's non-zero exit path kicks in, without discarding the
// printed detail above.
func resultErr(result *model.ToolResult) error {
	if result.Success {
		return nil
	}
	return fmt.Errorf("%s", result.Kind)
}
