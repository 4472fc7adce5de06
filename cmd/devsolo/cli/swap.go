package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devsolo-dev/devsolo/internal/tools"
)

func newSwapCmd() *cobra.Command {
	var (
		stash  bool
		force  bool
		auto   bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "swap <branch>",
		Short: "Switch the active session to a different branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return fmt.Errorf("branch name is required")
			}
			in := &tools.SwapInput{BranchName: args[0], Stash: stash}
			in.Force = force
			in.Auto = auto
			return runTool(cmd, "swap", in, asJSON)
		},
	}

	cmd.Flags().BoolVar(&stash, "stash", false, "stash uncommitted changes on the current branch before swapping")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "override a failed pre-flight check")
	cmd.Flags().BoolVar(&auto, "auto", false, "resolve prompt-level checks via their recommended option")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")

	return cmd
}
