package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/devsolo-dev/devsolo/internal/model"
)

// resolvable is implemented by every tool input (via baseInput) so the CLI
// can feed a prompt-level check's chosen option back in without a type
// switch over every concrete input type.
type resolvable interface {
	SetResolvedOptions(map[string]string)
}

// accessibleMode reports whether prompt resolution should fall back to
// plain numbered stdin prompts instead of the huh TUI picker — forced on
// by ACCESSIBLE, and implied when stdout isn't a terminal.
func accessibleMode() bool {
	if os.Getenv("ACCESSIBLE") != "" {
		return true
	}
	return !term.IsTerminal(int(os.Stdout.Fd()))
}

// firstSuspendedPrompt finds the first prompt-level check awaiting a
// decision in result's pre-flight results.
func firstSuspendedPrompt(result *model.ToolResult) (model.CheckResult, bool) {
	for _, c := range result.PreFlightChecks {
		if c.Level == model.LevelPrompt && len(c.Options) > 0 {
			return c, true
		}
	}
	return model.CheckResult{}, false
}

// resolvePromptInteractively asks the user to pick one of check's options,
// returning the chosen option id.
func resolvePromptInteractively(check model.CheckResult) (string, error) {
	if accessibleMode() {
		return resolvePromptPlain(check)
	}
	return resolvePromptTUI(check)
}

func resolvePromptTUI(check model.CheckResult) (string, error) {
	options := make([]huh.Option[string], 0, len(check.Options))
	for _, opt := range check.Options {
		label := opt.Label
		if opt.AutoRecommended {
			label += " (recommended)"
		}
		options = append(options, huh.NewOption(label, opt.ID))
	}

	var chosen string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(check.Message).
				Options(options...).
				Value(&chosen),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("prompt resolution: %w", err)
	}
	return chosen, nil
}

func resolvePromptPlain(check model.CheckResult) (string, error) {
	fmt.Fprintln(os.Stderr, check.Message)
	for i, opt := range check.Options {
		rec := ""
		if opt.AutoRecommended {
			rec = " (recommended)"
		}
		fmt.Fprintf(os.Stderr, "  %d) %s%s\n", i+1, opt.Label, rec)
	}
	fmt.Fprint(os.Stderr, "choice: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	idx, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || idx < 1 || idx > len(check.Options) {
		return "", fmt.Errorf("invalid choice %q", strings.TrimSpace(line))
	}
	return check.Options[idx-1].ID, nil
}
