package cli

import (
	"github.com/spf13/cobra"

	"github.com/devsolo-dev/devsolo/internal/tools"
)

func newHotfixCmd() *cobra.Command {
	var (
		issue    string
		severity string
		force    bool
		auto     bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "hotfix <issue>",
		Short: "Start an expedited hotfix branch and session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if issue == "" && len(args) > 0 {
				issue = args[0]
			}
			in := &tools.HotfixInput{Issue: issue, Severity: severity}
			in.Force = force
			in.Auto = auto
			return runTool(cmd, "hotfix", in, asJSON)
		},
	}

	cmd.Flags().StringVar(&issue, "issue", "", "issue identifier or short description this hotfix addresses")
	cmd.Flags().StringVar(&severity, "severity", "", "severity level (e.g. critical, high, medium)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "override a failed pre-flight check")
	cmd.Flags().BoolVar(&auto, "auto", false, "resolve prompt-level checks via their recommended option")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")

	return cmd
}
