package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/statemachine"
)

var explainChecks = map[string]struct {
	preFlight  []string
	postFlight []string
	kind       model.WorkflowKind
}{
	"launch":  {[]string{"onMainBranch", "branchNameAvailable", "targetBranchExists", "workingDirectoryClean", "mainUpToDate", "noExistingSession"}, []string{"sessionCreated", "branchCheckedOut", "sessionStateCorrect"}, model.WorkflowLaunch},
	"commit":  {[]string{"sessionExists", "notOnMainBranch", "hasChangesToCommit", "hasStagedFiles"}, []string{"sessionStateCorrect"}, model.WorkflowShip},
	"ship":    {[]string{"sessionExists", "notOnMainBranch", "sessionStateIs", "noBranchReuse", "noPrConflicts", "githubConfigured", "ciConfigured"}, []string{"prMerged", "featureBranchesDeleted", "mainSyncedWithOrigin", "sessionStateCorrect"}, model.WorkflowShip},
	"swap":    {[]string{"sessionExists", "targetSessionActive"}, []string{"onTargetBranch", "targetSessionActive"}, model.WorkflowShip},
	"abort":   {[]string{"sessionExists"}, []string{"sessionStateCorrect"}, model.WorkflowShip},
	"hotfix":  {[]string{"onMainBranch", "branchNameAvailable", "workingDirectoryClean", "mainUpToDate"}, []string{"sessionCreated", "branchCheckedOut"}, model.WorkflowHotfix},
	"cleanup": {nil, nil, model.WorkflowShip},
}

func newExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <tool>",
		Short: "Print the check catalog and transition table a tool uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd.OutOrStdout(), args[0])
		},
	}
}

func runExplain(w io.Writer, name string) error {
	entry, ok := explainChecks[name]
	if !ok {
		return fmt.Errorf("unknown tool %q", name)
	}

	fmt.Fprintf(w, "%s\n", name)
	fmt.Fprintln(w, "pre-flight checks:")
	for _, c := range entry.preFlight {
		fmt.Fprintf(w, "  - %s\n", c)
	}
	if len(entry.preFlight) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	fmt.Fprintln(w, "post-flight verifications:")
	for _, c := range entry.postFlight {
		fmt.Fprintf(w, "  - %s\n", c)
	}
	if len(entry.postFlight) == 0 {
		fmt.Fprintln(w, "  (none)")
	}

	fmt.Fprintf(w, "transition table (%s):\n", entry.kind)
	for _, edge := range statemachine.Edges(entry.kind) {
		fmt.Fprintf(w, "  %s -> %s\n", edge.From, edge.To)
	}
	return nil
}
