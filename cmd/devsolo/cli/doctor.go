package cli

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/devsolo-dev/devsolo/internal/config"
	"github.com/devsolo-dev/devsolo/internal/gitops"
	"github.com/devsolo-dev/devsolo/internal/paths"
	"github.com/devsolo-dev/devsolo/internal/store"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the devsolo workspace",
		Long:  "Checks git, repository, trunk detection, platform configuration, and session/lock health. Read-only.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.OutOrStdout())
		},
	}
	return cmd
}

type doctorCheck struct {
	name string
	ok   bool
	note string
}

func runDoctor(w io.Writer) error {
	var checks []doctorCheck

	if _, err := exec.LookPath("git"); err != nil {
		checks = append(checks, doctorCheck{"git installed", false, "git not found on PATH"})
	} else {
		checks = append(checks, doctorCheck{"git installed", true, ""})
	}

	root, err := paths.RepoRoot()
	if err != nil {
		checks = append(checks, doctorCheck{"inside a git repository", false, err.Error()})
		return printDoctorChecks(w, checks)
	}
	checks = append(checks, doctorCheck{"inside a git repository", true, root})

	repo, err := gitops.Open(root)
	if err != nil {
		checks = append(checks, doctorCheck{"trunk detectable", false, err.Error()})
	} else if main, err := repo.MainBranch(); err != nil {
		checks = append(checks, doctorCheck{"trunk detectable", false, err.Error()})
	} else {
		checks = append(checks, doctorCheck{"trunk detectable", true, main})
	}

	checks = append(checks, doctorCheck{".devsolo initialized", config.IsInitialized(), ""})

	cfg, err := config.Load()
	if err != nil {
		checks = append(checks, doctorCheck{"configuration readable", false, err.Error()})
	} else {
		hasToken := cfg.GitPlatform.Token != "" || os.Getenv("GITHUB_TOKEN") != ""
		checks = append(checks, doctorCheck{"platform token present", hasToken, ""})
	}

	if locksDir, err := paths.LocksDir(); err == nil {
		entries, _ := os.ReadDir(locksDir)
		checks = append(checks, doctorCheck{"no leftover lock files", len(entries) == 0, fmt.Sprintf("%d lock file(s) found", len(entries))})
	}

	s := store.New()
	active, err := s.ListSessions(store.ListOptions{Active: true})
	if err == nil {
		checks = append(checks, doctorCheck{"active sessions", true, fmt.Sprintf("%d active session(s)", len(active))})
	}

	return printDoctorChecks(w, checks)
}

func printDoctorChecks(w io.Writer, checks []doctorCheck) error {
	for _, c := range checks {
		mark := "✓"
		if !c.ok {
			mark = "✕"
		}
		if c.note != "" {
			fmt.Fprintf(w, "%s %s — %s\n", mark, c.name, c.note)
		} else {
			fmt.Fprintf(w, "%s %s\n", mark, c.name)
		}
	}
	return nil
}
