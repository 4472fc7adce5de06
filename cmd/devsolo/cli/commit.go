package cli

import (
	"github.com/spf13/cobra"

	"github.com/devsolo-dev/devsolo/internal/tools"
)

func newCommitCmd() *cobra.Command {
	var (
		message    string
		stagedOnly bool
		force      bool
		auto       bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "commit [message]",
		Short: "Commit the working tree on the current session's branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" && len(args) > 0 {
				message = args[0]
			}
			in := &tools.CommitInput{Message: message, StagedOnly: stagedOnly}
			in.Force = force
			in.Auto = auto
			return runTool(cmd, "commit", in, asJSON)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().BoolVar(&stagedOnly, "staged-only", false, "commit only already-staged files")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "override a failed pre-flight check")
	cmd.Flags().BoolVar(&auto, "auto", false, "resolve prompt-level checks via their recommended option")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")

	return cmd
}
