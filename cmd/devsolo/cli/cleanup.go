package cli

import (
	"github.com/spf13/cobra"

	"github.com/devsolo-dev/devsolo/internal/tools"
)

func newCleanupCmd() *cobra.Command {
	var (
		deleteBranches bool
		olderThan      int
		dryRun         bool
		auto           bool
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove terminal sessions and their orphaned branches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := &tools.CleanupInput{DeleteBranches: deleteBranches, OlderThan: olderThan, DryRun: dryRun}
			in.Auto = auto
			return runTool(cmd, "cleanup", in, asJSON)
		},
	}

	cmd.Flags().BoolVar(&deleteBranches, "delete-branches", false, "also delete orphaned local branches")
	cmd.Flags().IntVar(&olderThan, "older-than", 0, "only consider sessions inactive for this many days")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be removed without removing it")
	cmd.Flags().BoolVar(&auto, "auto", false, "perform the proposed cleanup instead of only proposing it")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")

	return cmd
}
