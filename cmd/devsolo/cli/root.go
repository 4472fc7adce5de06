package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devsolo-dev/devsolo/internal/server"
)

// version is stamped at build time via -ldflags; left as "dev" otherwise.
var (
	version = "dev"
	commit  = "none"
)

// NewRootCmd builds the devsolo command tree. Construction of the Server
// (opening the repository, loading config, wiring the Session Store) is
// deferred to each subcommand's RunE, so "devsolo version" and "devsolo
// help" work outside a git repository.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "devsolo",
		Short:         "Single-trunk git workflow automation",
		Long:          "devsolo drives a branch from launch through push, PR, CI, squash-merge, and trunk cleanup.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.CompletionOptions.HiddenDefaultCmd = true

	root.AddCommand(
		newLaunchCmd(),
		newCommitCmd(),
		newShipCmd(),
		newSwapCmd(),
		newAbortCmd(),
		newHotfixCmd(),
		newCleanupCmd(),
		newStatusCmd(),
		newDoctorCmd(),
		newExplainCmd(),
		newVersionCmd(),
	)

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the devsolo version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "devsolo %s (%s)\n", version, commit)
			return nil
		},
	}
}

// newServer opens the Server for commands that need the repository; it is
// called lazily from each tool subcommand's RunE, not at construction time.
func newServer() (*server.Server, error) {
	return server.New()
}
