package cli

import (
	"github.com/spf13/cobra"

	"github.com/devsolo-dev/devsolo/internal/tools"
)

func newLaunchCmd() *cobra.Command {
	var (
		branchName   string
		description  string
		stashRef     string
		popStash     bool
		force        bool
		auto         bool
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "launch [description]",
		Short: "Start a new branch and session from trunk",
		RunE: func(cmd *cobra.Command, args []string) error {
			if description == "" && len(args) > 0 {
				description = args[0]
			}
			var pop *bool
			if cmd.Flags().Changed("pop-stash") {
				pop = &popStash
			}
			in := &tools.LaunchInput{
				BranchName:  branchName,
				Description: description,
				StashRef:    stashRef,
				PopStash:    pop,
			}
			in.Force = force
			in.Auto = auto
			return runTool(cmd, "launch", in, asJSON)
		},
	}

	cmd.Flags().StringVar(&branchName, "branch", "", "explicit branch name, overriding the naming fallback chain")
	cmd.Flags().StringVar(&description, "description", "", "short description used to derive a branch name")
	cmd.Flags().StringVar(&stashRef, "stash-ref", "", "stash entry to apply after checking out the new branch")
	cmd.Flags().BoolVar(&popStash, "pop-stash", false, "pop stash-ref after checkout instead of leaving it stashed")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "override a failed pre-flight check")
	cmd.Flags().BoolVar(&auto, "auto", false, "resolve prompt-level checks via their recommended option")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")

	return cmd
}
