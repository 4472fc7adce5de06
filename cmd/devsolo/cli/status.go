package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/devsolo-dev/devsolo/internal/gitops"
	"github.com/devsolo-dev/devsolo/internal/paths"
	"github.com/devsolo-dev/devsolo/internal/store"
)

func newStatusCmd() *cobra.Command {
	var showDiff bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current branch's session state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.OutOrStdout(), showDiff)
		},
	}
	cmd.Flags().BoolVar(&showDiff, "diff", false, "include a per-file added/removed line summary against trunk")
	return cmd
}

func runStatus(w io.Writer, showDiff bool) error {
	root, err := paths.RepoRoot()
	if err != nil {
		fmt.Fprintln(w, "not a git repository")
		return nil //nolint:nilerr // not being in a repo is a valid status, not an error
	}

	repo, err := gitops.Open(root)
	if err != nil {
		return err
	}
	current, err := repo.CurrentBranch()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "branch: %s\n", current)

	s := store.New()
	session, err := s.GetSessionByBranch(current)
	if err != nil {
		return err
	}
	if session == nil {
		fmt.Fprintln(w, "no session for this branch")
		return nil
	}

	fmt.Fprintf(w, "session: %s (%s)\n", session.ID, session.WorkflowType)
	fmt.Fprintf(w, "state: %s\n", session.CurrentState)
	if session.Metadata.PR != nil {
		fmt.Fprintf(w, "pr: #%d %s (merged=%v)\n", session.Metadata.PR.Number, session.Metadata.PR.URL, session.Metadata.PR.Merged)
	}

	history := session.StateHistory
	if len(history) > 5 {
		history = history[len(history)-5:]
	}
	if len(history) > 0 {
		fmt.Fprintln(w, "recent transitions:")
		for _, t := range history {
			fmt.Fprintf(w, "  %s  %s -> %s  (%s)\n", t.Timestamp.Format("2006-01-02 15:04:05"), t.From, t.To, t.Trigger)
		}
	}

	if showDiff {
		main, err := repo.MainBranch()
		if err != nil {
			return err
		}
		stats, err := repo.FileDiffStats(main, "")
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Fprintln(w, "no changes against trunk")
		} else {
			fmt.Fprintln(w, "changes against trunk:")
			for _, stat := range stats {
				fmt.Fprintf(w, "  %s\n", stat)
			}
		}
	}
	return nil
}
