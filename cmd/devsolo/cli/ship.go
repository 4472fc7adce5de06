package cli

import (
	"github.com/spf13/cobra"

	"github.com/devsolo-dev/devsolo/internal/tools"
)

func newShipCmd() *cobra.Command {
	var (
		message       string
		prDescription string
		stagedOnly    bool
		noPush        bool
		noPR          bool
		noMerge       bool
		force         bool
		auto          bool
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "ship [message]",
		Short: "Commit, push, open a PR, wait for CI, squash-merge, and sync trunk",
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" && len(args) > 0 {
				message = args[0]
			}
			push, createPR, merge := !noPush, !noPR, !noMerge
			in := &tools.ShipInput{
				Message:       message,
				PRDescription: prDescription,
				StagedOnly:    stagedOnly,
				Push:          &push,
				CreatePR:      &createPR,
				Merge:         &merge,
			}
			in.Force = force
			in.Auto = auto
			return runTool(cmd, "ship", in, asJSON)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message, used when the tree is dirty")
	cmd.Flags().StringVar(&prDescription, "description", "", "pull request body")
	cmd.Flags().BoolVar(&stagedOnly, "staged-only", false, "commit only already-staged files")
	cmd.Flags().BoolVar(&noPush, "no-push", false, "stop after committing")
	cmd.Flags().BoolVar(&noPR, "no-pr", false, "stop after pushing, without opening a pull request")
	cmd.Flags().BoolVar(&noMerge, "no-merge", false, "open the pull request but don't wait for CI or merge")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "override a failed pre-flight check")
	cmd.Flags().BoolVar(&auto, "auto", false, "resolve prompt-level checks via their recommended option")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")

	return cmd
}
