package cli

import (
	"github.com/spf13/cobra"

	"github.com/devsolo-dev/devsolo/internal/tools"
)

func newAbortCmd() *cobra.Command {
	var (
		branchName   string
		deleteBranch bool
		force        bool
		auto         bool
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "abort",
		Short: "Abort the current (or named) session without touching trunk",
		RunE: func(cmd *cobra.Command, args []string) error {
			if branchName == "" && len(args) > 0 {
				branchName = args[0]
			}
			in := &tools.AbortInput{BranchName: branchName, DeleteBranch: deleteBranch}
			in.Force = force
			in.Auto = auto
			return runTool(cmd, "abort", in, asJSON)
		},
	}

	cmd.Flags().StringVar(&branchName, "branch", "", "branch to abort, defaulting to the current branch")
	cmd.Flags().BoolVar(&deleteBranch, "delete-branch", false, "also delete the feature branch")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "override a failed pre-flight check")
	cmd.Flags().BoolVar(&auto, "auto", false, "resolve prompt-level checks via their recommended option")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")

	return cmd
}
