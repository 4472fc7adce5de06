// Package tools implements the seven workflow tools (component K): launch,
// commit, ship, swap, abort, hotfix, cleanup. Each adapts internal/tool's
// Tool interface, delegating git/platform/session work to internal/gitops,
// internal/platform, internal/store, internal/stash, internal/branchvalidate,
// internal/prvalidate, and internal/statemachine.
package tools

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/devsolo-dev/devsolo/internal/audit"
	"github.com/devsolo-dev/devsolo/internal/checks"
	"github.com/devsolo-dev/devsolo/internal/config"
	"github.com/devsolo-dev/devsolo/internal/gitops"
	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/paths"
	"github.com/devsolo-dev/devsolo/internal/platform"
	"github.com/devsolo-dev/devsolo/internal/store"
)

// Deps bundles the collaborators every tool needs. One Deps is built once
// per process and shared across tool invocations.
type Deps struct {
	Repo  *gitops.Repo
	Store *store.Store
	Audit *audit.Log
}

// NewDeps opens the repository at the working directory's root and wires
// the Session Store and Audit Log against it.
func NewDeps() (*Deps, error) {
	root, err := paths.RepoRoot()
	if err != nil {
		return nil, model.NewToolError(model.ErrGitFailure, "locating repository root", err)
	}
	repo, err := gitops.Open(root)
	if err != nil {
		return nil, err
	}
	return &Deps{Repo: repo, Store: store.New(), Audit: audit.New()}, nil
}

// platformClient constructs a platform.Client from the configured remote
// and token, or returns (nil, false) when the remote can't be resolved —
// callers treat that as "platform not configured" rather than an error.
func (d *Deps) platformClient(cfg *model.Configuration) (*platform.Client, bool) {
	remote, err := d.Repo.RemoteURL()
	if err != nil {
		return nil, false
	}
	owner, repo, err := platform.ParseRemote(remote)
	if err != nil {
		return nil, false
	}
	client, err := platform.New(owner, repo, cfg.GitPlatform.Token)
	if err != nil {
		return nil, false
	}
	return client, true
}

// emitAudit records one entry, logging but not failing the caller on
// persistence trouble — audit is best-effort relative to the workflow
// operation it describes.
func (d *Deps) emitAudit(sessionID, action, actor string, details model.AuditDetails, result model.AuditResult, errMsg string) {
	_ = d.Audit.Record(model.AuditEntry{
		SessionID: sessionID, Action: action, Actor: actor,
		Details: details, Result: result, ErrorMessage: errMsg,
	})
}

// kebabPattern matches runs of characters unsuitable for a branch slug.
var kebabPattern = regexp.MustCompile(`[^a-z0-9]+`)

func kebab(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = kebabPattern.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// branchPrefixKeywords maps description keywords to a branch type prefix,
// checked in order so the first match wins.
var branchPrefixKeywords = []struct {
	prefix   string
	keywords []string
}{
	{"bugfix", []string{"fix", "bug", "broken", "crash"}},
	{"hotfix", []string{"hotfix", "urgent", "critical"}},
	{"chore", []string{"chore", "bump", "upgrade", "cleanup", "refactor"}},
	{"docs", []string{"doc", "docs", "readme"}},
	{"test", []string{"test", "spec"}},
}

// deriveBranchName implements launch's naming fallback chain: explicit
// name, else a kebab-cased description with an inferred type prefix, else
// changed files, else a timestamp.
func deriveBranchName(explicit, description string, changedFiles []string) string {
	if explicit != "" {
		return explicit
	}
	if description != "" {
		prefix := "feature"
		lower := strings.ToLower(description)
		for _, p := range branchPrefixKeywords {
			for _, kw := range p.keywords {
				if strings.Contains(lower, kw) {
					prefix = p.prefix
					break
				}
			}
		}
		slug := kebab(description)
		words := strings.Split(slug, "-")
		if len(words) > 6 {
			words = words[:6]
		}
		slug = strings.Join(words, "-")
		if slug != "" {
			return prefix + "/" + slug
		}
	}
	if len(changedFiles) > 0 {
		base := changedFiles[0]
		if idx := strings.LastIndex(base, "/"); idx >= 0 {
			base = base[idx+1:]
		}
		if idx := strings.LastIndex(base, "."); idx >= 0 {
			base = base[:idx]
		}
		slug := kebab(base)
		if slug != "" {
			return "feature/" + slug
		}
	}
	return "feature/session-" + time.Now().UTC().Format("20060102-150405")
}

// newSession builds a fresh WorkflowSession in its workflow's initial state.
func newSession(kind model.WorkflowKind, branch string, initial model.State) *model.WorkflowSession {
	now := time.Now().UTC()
	return &model.WorkflowSession{
		ID: uuid.NewString(), BranchName: branch, WorkflowType: kind,
		CurrentState: initial, CreatedAt: now, UpdatedAt: now,
		ExpiresAt: now.Add(model.ExpiryWindow),
	}
}

// withLock acquires the working-tree lock and the session lock, runs fn,
// and always releases both, tree lock last so no other process can touch
// the checkout while a session's own state is mid-release.
func (d *Deps) withLock(sessionID string, fn func() (*model.ToolResult, error)) (*model.ToolResult, error) {
	wl, err := d.Store.AcquireWorktreeLock()
	if err != nil {
		return nil, err
	}
	defer func() { _ = wl.Unlock() }()

	if err := d.Store.AcquireLock(sessionID); err != nil {
		return nil, err
	}
	defer func() { _ = d.Store.ReleaseLock(sessionID) }()
	return fn()
}

// currentConfig loads the process-wide Configuration, falling back to
// defaults on any error so read-only checks never hard-fail on config
// trouble.
func currentConfig() *model.Configuration {
	mgr, err := config.Global()
	if err != nil {
		return config.Default()
	}
	return mgr.Current()
}

// baseInput is embedded by every tool's parameter struct for the fields
// every tool accepts.
type baseInput struct {
	Force bool `json:"force,omitempty"`
	Auto  bool `json:"auto,omitempty"`
	// ResolvedOptions carries a transport-side decision for a prompt-level
	// check that suspended on a prior call, keyed by check id.
	ResolvedOptions map[string]string `json:"resolvedOptions,omitempty"`
}

// SetResolvedOptions lets a transport (the CLI's prompt resolver) feed a
// user's decision back in on retry, without every tool's input type
// needing its own setter.
func (b *baseInput) SetResolvedOptions(options map[string]string) { b.ResolvedOptions = options }

func ctxWithForce(tc *checks.Context, in baseInput) {
	if tc.Facts == nil {
		tc.Facts = map[string]any{}
	}
	tc.Facts["force"] = in.Force
	tc.Auto = in.Auto
	tc.ResolvedOptions = in.ResolvedOptions
}

func missingParamResult(kind model.ErrorKind, msg string) *model.ToolResult {
	return &model.ToolResult{Success: false, Kind: kind, Errors: []string{msg}}
}
