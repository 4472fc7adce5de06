package tools

import "testing"

func TestKebab(t *testing.T) {
	cases := map[string]string{
		"Fix Login Bug":  "fix-login-bug",
		"  spaces  ":     "spaces",
		"already-kebab":  "already-kebab",
		"Weird!!Chars??": "weird-chars",
		"":                "",
	}
	for in, want := range cases {
		if got := kebab(in); got != want {
			t.Errorf("kebab(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeriveBranchName_ExplicitWins(t *testing.T) {
	got := deriveBranchName("my-branch", "fix the bug", []string{"a.go"})
	if got != "my-branch" {
		t.Errorf("got %q, want my-branch", got)
	}
}

func TestDeriveBranchName_DescriptionInfersBugfixPrefix(t *testing.T) {
	got := deriveBranchName("", "fix broken login crash", nil)
	if got != "bugfix/fix-broken-login-crash" {
		t.Errorf("got %q, want bugfix/fix-broken-login-crash", got)
	}
}

func TestDeriveBranchName_DescriptionDefaultsToFeaturePrefix(t *testing.T) {
	got := deriveBranchName("", "add dark mode toggle", nil)
	if got != "feature/add-dark-mode-toggle" {
		t.Errorf("got %q, want feature/add-dark-mode-toggle", got)
	}
}

func TestDeriveBranchName_DescriptionTruncatedToSixWords(t *testing.T) {
	got := deriveBranchName("", "one two three four five six seven eight", nil)
	if got != "feature/one-two-three-four-five-six" {
		t.Errorf("got %q, want a 6-word slug, got %q", got, got)
	}
}

func TestDeriveBranchName_FallsBackToChangedFiles(t *testing.T) {
	got := deriveBranchName("", "", []string{"internal/foo/bar.go"})
	if got != "feature/bar" {
		t.Errorf("got %q, want feature/bar", got)
	}
}

func TestDeriveBranchName_FallsBackToTimestamp(t *testing.T) {
	got := deriveBranchName("", "", nil)
	if len(got) <= len("feature/session-") {
		t.Errorf("expected a timestamp-suffixed fallback, got %q", got)
	}
}
