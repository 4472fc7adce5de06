// Package gitops is a thin, typed wrapper over the local git repository
// (component A). Most reads and simple writes go through go-git; a handful
// of operations shell out to the git binary where go-git v5 is known to
// misbehave (untracked-file handling on checkout, no core.excludesfile
// support, no credential-helper support for HTTPS fetch) — the same split
// the CLI this module grew out of uses, and for the same reasons.
package gitops

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/devsolo-dev/devsolo/internal/diffrender"
	"github.com/devsolo-dev/devsolo/internal/model"
)

// BranchNamePattern is the naming convention enforced on feature branches.
var BranchNamePattern = regexp.MustCompile(`^(feature|bugfix|hotfix|release|chore|docs|test|refactor)/[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Repo wraps a go-git repository plus the working directory needed for CLI
// shellouts.
type Repo struct {
	dir  string
	repo *git.Repository
}

// Open opens the repository rooted at dir (typically paths.RepoRoot()).
func Open(dir string) (*Repo, error) {
	r, err := git.PlainOpen(dir)
	if err != nil {
		return nil, model.NewToolError(model.ErrGitFailure, "opening repository", err)
	}
	return &Repo{dir: dir, repo: r}, nil
}

// BranchStatus summarizes a branch's relationship to its upstream and
// working-tree cleanliness.
type BranchStatus struct {
	Ahead      int
	Behind     int
	HasRemote  bool
	IsClean    bool
	Conflicted bool
}

// CurrentBranch returns the checked-out branch's short name.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", model.NewToolError(model.ErrGitFailure, "reading HEAD", err)
	}
	if !head.Name().IsBranch() {
		return "", model.NewToolError(model.ErrGitFailure, "HEAD is detached", nil)
	}
	return head.Name().Short(), nil
}

// MainBranch returns "main" or "master", whichever exists locally or on the
// default remote; "main" is preferred when both exist.
func (r *Repo) MainBranch() (string, error) {
	for _, name := range []string{"main", "master"} {
		if ok, _ := r.BranchExistsLocally(name); ok {
			return name, nil
		}
	}
	out, err := r.git("symbolic-ref", "refs/remotes/origin/HEAD")
	if err == nil {
		parts := strings.Split(strings.TrimSpace(out), "/")
		if len(parts) > 0 {
			return parts[len(parts)-1], nil
		}
	}
	return "main", nil
}

// IsOnMainBranch reports whether the checked-out branch is the trunk.
func (r *Repo) IsOnMainBranch() (bool, error) {
	current, err := r.CurrentBranch()
	if err != nil {
		return false, err
	}
	main, err := r.MainBranch()
	if err != nil {
		return false, err
	}
	return current == main, nil
}

// BranchExistsLocally reports whether a local branch ref exists.
func (r *Repo) BranchExistsLocally(name string) (bool, error) {
	refs, err := r.repo.References()
	if err != nil {
		return false, model.NewToolError(model.ErrGitFailure, "listing refs", err)
	}
	defer refs.Close()

	found := false
	target := plumbing.NewBranchReferenceName(name)
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name() == target {
			found = true
		}
		return nil
	})
	if err != nil {
		return false, model.NewToolError(model.ErrGitFailure, "iterating refs", err)
	}
	return found, nil
}

// ListLocalBranches returns every local branch's short name.
func (r *Repo) ListLocalBranches() ([]string, error) {
	refs, err := r.repo.Branches()
	if err != nil {
		return nil, model.NewToolError(model.ErrGitFailure, "listing local branches", err)
	}
	defer refs.Close()

	var names []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, model.NewToolError(model.ErrGitFailure, "iterating local branches", err)
	}
	return names, nil
}

// BranchExistsOnRemote reports whether origin/<name> exists.
func (r *Repo) BranchExistsOnRemote(name string) (bool, error) {
	out, err := r.git("ls-remote", "--heads", "origin", name)
	if err != nil {
		return false, model.NewToolError(model.ErrGitFailure, "checking remote branch", err)
	}
	return strings.TrimSpace(out) != "", nil
}

// ValidateBranchName delegates to `git check-ref-format`, the same
// authority git itself uses, rather than re-implementing its rules.
func (r *Repo) ValidateBranchName(name string) error {
	if _, err := r.git("check-ref-format", "--branch", name); err != nil {
		return model.NewToolError(model.ErrGitFailure, fmt.Sprintf("invalid branch name %q", name), err)
	}
	return nil
}

// CreateBranch creates a new local branch pointed at base's tip, without
// checking it out.
func (r *Repo) CreateBranch(name, base string) error {
	if _, err := r.git("branch", name, base); err != nil {
		return model.NewToolError(model.ErrGitFailure, fmt.Sprintf("creating branch %s", name), err)
	}
	return nil
}

// CheckoutBranch checks out an existing local branch. Shells out: go-git v5
// issue #970 leaves untracked files from the previous branch in place on
// Checkout, which would silently corrupt the working tree across a swap.
func (r *Repo) CheckoutBranch(name string) error {
	if _, err := r.git("checkout", name); err != nil {
		return model.NewToolError(model.ErrGitFailure, fmt.Sprintf("checking out %s", name), err)
	}
	return nil
}

// DeleteLocalBranch deletes a local branch, force if requested.
func (r *Repo) DeleteLocalBranch(name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	if _, err := r.git("branch", flag, name); err != nil {
		return model.NewToolError(model.ErrGitFailure, fmt.Sprintf("deleting local branch %s", name), err)
	}
	return nil
}

// DeleteRemoteBranch deletes origin/<name>. Tolerates "already deleted".
func (r *Repo) DeleteRemoteBranch(ctx context.Context, name string) error {
	_, err := r.gitCtx(ctx, "push", "origin", "--delete", name)
	if err != nil && !strings.Contains(err.Error(), "remote ref does not exist") {
		return model.NewToolError(model.ErrGitFailure, fmt.Sprintf("deleting remote branch %s", name), err)
	}
	return nil
}

// HasUncommittedChanges reports any staged, unstaged, or untracked change.
// Shells out because go-git's Status does not honor core.excludesfile, so
// it would report files the user's global gitignore excludes.
func (r *Repo) HasUncommittedChanges() (bool, error) {
	out, err := r.git("status", "--porcelain")
	if err != nil {
		return false, model.NewToolError(model.ErrGitFailure, "reading status", err)
	}
	return strings.TrimSpace(out) != "", nil
}

// StagedFiles lists paths currently in the index.
func (r *Repo) StagedFiles() ([]string, error) {
	out, err := r.git("diff", "--cached", "--name-only")
	if err != nil {
		return nil, model.NewToolError(model.ErrGitFailure, "listing staged files", err)
	}
	return splitLines(out), nil
}

// ConflictedFiles lists paths currently marked unmerged.
func (r *Repo) ConflictedFiles() ([]string, error) {
	out, err := r.git("diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, model.NewToolError(model.ErrGitFailure, "listing conflicts", err)
	}
	return splitLines(out), nil
}

// CommitOptions controls Commit behavior.
type CommitOptions struct {
	StagedOnly bool
	NoVerify   bool
}

// Commit stages modifications (unless StagedOnly) and commits with message.
func (r *Repo) Commit(message string, opts CommitOptions) error {
	if !opts.StagedOnly {
		if _, err := r.git("add", "-A"); err != nil {
			return model.NewToolError(model.ErrGitFailure, "staging changes", err)
		}
	}
	args := []string{"commit", "-m", message}
	if opts.NoVerify {
		args = append(args, "--no-verify")
	}
	if _, err := r.git(args...); err != nil {
		return model.NewToolError(model.ErrGitFailure, "committing", err)
	}
	return nil
}

// HasNewCommits reports whether HEAD has at least one commit beyond the
// merge-base with base.
func (r *Repo) HasNewCommits(base string) (bool, error) {
	out, err := r.git("rev-list", "--count", base+"..HEAD")
	if err != nil {
		return false, model.NewToolError(model.ErrGitFailure, "counting new commits", err)
	}
	return strings.TrimSpace(out) != "0", nil
}

// PushOptions controls Push behavior.
type PushOptions struct {
	SetUpstream bool
	Force       bool
}

// Push pushes the current branch. Shells out: go-git does not support the
// system credential helper needed for HTTPS remotes, while the git binary
// transparently uses whatever credential.helper is configured.
func (r *Repo) Push(ctx context.Context, branch string, opts PushOptions) error {
	args := []string{"push"}
	if opts.Force {
		args = append(args, "--force-with-lease")
	}
	if opts.SetUpstream {
		args = append(args, "--set-upstream", "origin", branch)
	} else {
		args = append(args, "origin", branch)
	}
	if _, err := r.gitCtx(ctx, args...); err != nil {
		return model.NewToolError(model.ErrGitFailure, "pushing", err)
	}
	return nil
}

// FetchAndCheckoutRemote fetches origin/<name> and checks out a local
// branch tracking it. Used when resuming work whose branch only exists
// remotely.
func (r *Repo) FetchAndCheckoutRemote(ctx context.Context, name string) error {
	fctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if _, err := r.gitCtx(fctx, "fetch", "origin", name); err != nil {
		return model.NewToolError(model.ErrGitFailure, "fetching remote branch", err)
	}
	if _, err := r.gitCtx(fctx, "checkout", "-b", name, "origin/"+name); err != nil {
		return model.NewToolError(model.ErrGitFailure, "checking out remote branch", err)
	}
	return nil
}

// Pull fast-forwards the current branch from its upstream.
func (r *Repo) Pull(ctx context.Context) error {
	if _, err := r.gitCtx(ctx, "pull", "--ff-only"); err != nil {
		return model.NewToolError(model.ErrGitFailure, "pulling", err)
	}
	return nil
}

// AheadBehind returns how many commits the current branch is ahead/behind
// its upstream.
func (r *Repo) AheadBehind(ctx context.Context) (ahead, behind int, err error) {
	out, gerr := r.gitCtx(ctx, "rev-list", "--left-right", "--count", "@{upstream}...HEAD")
	if gerr != nil {
		return 0, 0, model.NewToolError(model.ErrGitFailure, "computing ahead/behind", gerr)
	}
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0, nil
	}
	fmt.Sscanf(fields[0], "%d", &behind)
	fmt.Sscanf(fields[1], "%d", &ahead)
	return ahead, behind, nil
}

// GetBranchStatus summarizes cleanliness and remote tracking for branch
// (empty string means the current branch).
func (r *Repo) GetBranchStatus(ctx context.Context, branch string) (BranchStatus, error) {
	var st BranchStatus

	clean, err := r.HasUncommittedChanges()
	if err != nil {
		return st, err
	}
	st.IsClean = !clean

	conflicts, err := r.ConflictedFiles()
	if err != nil {
		return st, err
	}
	st.Conflicted = len(conflicts) > 0

	name := branch
	if name == "" {
		name, err = r.CurrentBranch()
		if err != nil {
			return st, err
		}
	}
	hasRemote, err := r.BranchExistsOnRemote(name)
	if err != nil {
		return st, err
	}
	st.HasRemote = hasRemote

	if hasRemote {
		ahead, behind, err := r.AheadBehind(ctx)
		if err == nil {
			st.Ahead, st.Behind = ahead, behind
		}
	}
	return st, nil
}

// SquashMerge squash-merges source into the currently checked-out branch
// and commits with message.
func (r *Repo) SquashMerge(source, message string) error {
	if _, err := r.git("merge", "--squash", source); err != nil {
		return model.NewToolError(model.ErrGitFailure, "squash-merging", err)
	}
	if _, err := r.git("commit", "-m", message); err != nil {
		return model.NewToolError(model.ErrGitFailure, "committing squash-merge", err)
	}
	return nil
}

// RebaseOntoMain rebases the current branch onto main.
func (r *Repo) RebaseOntoMain(main string) error {
	if _, err := r.git("rebase", main); err != nil {
		return model.NewToolError(model.ErrGitFailure, "rebasing", err)
	}
	return nil
}

// AbortRebase aborts an in-progress rebase.
func (r *Repo) AbortRebase() error {
	if _, err := r.git("rebase", "--abort"); err != nil {
		return model.NewToolError(model.ErrGitFailure, "aborting rebase", err)
	}
	return nil
}

// IsRebasing reports whether a rebase is currently in progress.
func (r *Repo) IsRebasing() bool {
	_, err1 := os.Stat(r.dir + "/.git/rebase-merge")
	_, err2 := os.Stat(r.dir + "/.git/rebase-apply")
	return err1 == nil || err2 == nil
}

// Diff returns a unified diff between two refs (empty head means working
// tree).
func (r *Repo) Diff(base, head string) (string, error) {
	rangeArg := base
	if head != "" {
		rangeArg = base + ".." + head
	}
	out, err := r.git("diff", rangeArg)
	if err != nil {
		return "", model.NewToolError(model.ErrGitFailure, "diffing", err)
	}
	return out, nil
}

// FileDiffStats returns a per-file added/removed line summary between base
// and head (empty head means working tree), rendered via go-diff's
// line-to-chars trick rather than parsed out of unified-diff text, so
// binary and rename edge cases degrade to a 0/0 stat instead of a parse
// error.
func (r *Repo) FileDiffStats(base, head string) ([]diffrender.FileStat, error) {
	rangeArg := base
	if head != "" {
		rangeArg = base + ".." + head
	}
	namesOut, err := r.git("diff", "--name-only", rangeArg)
	if err != nil {
		return nil, model.NewToolError(model.ErrGitFailure, "listing changed files", err)
	}

	var stats []diffrender.FileStat
	for _, path := range splitLines(namesOut) {
		if path == "" {
			continue
		}
		before := r.showAt(base, path)
		var after string
		if head != "" {
			after = r.showAt(head, path)
		} else {
			data, err := os.ReadFile(filepath.Join(r.dir, path)) //nolint:gosec // path comes from git diff's own output
			if err == nil {
				after = string(data)
			}
		}
		stats = append(stats, diffrender.Summarize(path, before, after))
	}
	return stats, nil
}

// showAt returns path's content at ref, or "" if the file doesn't exist
// there (added or deleted file).
func (r *Repo) showAt(ref, path string) string {
	out, err := r.git("show", ref+":"+path)
	if err != nil {
		return ""
	}
	return out
}

// RecentLog returns the last n one-line commit summaries on the current
// branch.
func (r *Repo) RecentLog(n int) ([]string, error) {
	out, err := r.git("log", fmt.Sprintf("-n%d", n), "--oneline")
	if err != nil {
		return nil, model.NewToolError(model.ErrGitFailure, "reading log", err)
	}
	return splitLines(out), nil
}

// RemoteURL returns the URL configured for "origin".
func (r *Repo) RemoteURL() (string, error) {
	out, err := r.git("remote", "get-url", "origin")
	if err != nil {
		return "", model.NewToolError(model.ErrGitFailure, "reading remote url", err)
	}
	return strings.TrimSpace(out), nil
}

// ConfigGet reads a git config value.
func (r *Repo) ConfigGet(key string) (string, error) {
	out, err := r.git("config", "--get", key)
	if err != nil {
		return "", nil // unset keys are not an error
	}
	return strings.TrimSpace(out), nil
}

// ConfigSet writes a git config value.
func (r *Repo) ConfigSet(key, value string) error {
	if _, err := r.git("config", key, value); err != nil {
		return model.NewToolError(model.ErrGitFailure, fmt.Sprintf("setting config %s", key), err)
	}
	return nil
}

// Author returns the configured commit author, "Name <email>".
func (r *Repo) Author() (string, error) {
	name, _ := r.ConfigGet("user.name")
	email, _ := r.ConfigGet("user.email")
	if name == "" && email == "" {
		return "", model.NewToolError(model.ErrGitFailure, "git user.name/user.email not configured", nil)
	}
	return fmt.Sprintf("%s <%s>", name, email), nil
}

// CreateTag creates a lightweight or annotated tag.
func (r *Repo) CreateTag(name, message string) error {
	args := []string{"tag"}
	if message != "" {
		args = append(args, "-a", name, "-m", message)
	} else {
		args = append(args, name)
	}
	if _, err := r.git(args...); err != nil {
		return model.NewToolError(model.ErrGitFailure, fmt.Sprintf("tagging %s", name), err)
	}
	return nil
}

// ListTags lists all tags.
func (r *Repo) ListTags() ([]string, error) {
	out, err := r.git("tag", "--list")
	if err != nil {
		return nil, model.NewToolError(model.ErrGitFailure, "listing tags", err)
	}
	return splitLines(out), nil
}

// git runs a git subcommand in the repo directory with a background
// context and returns combined stdout.
func (r *Repo) git(args ...string) (string, error) {
	return r.gitCtx(context.Background(), args...)
}

func (r *Repo) gitCtx(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...) //nolint:gosec // G204: args are fixed strings or validated branch names
	cmd.Dir = r.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return stdout.String(), fmt.Errorf("%s", msg)
	}
	return stdout.String(), nil
}

func splitLines(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
