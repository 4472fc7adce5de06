// Package platform is a typed client for the hosted git platform (GitHub
// first), wrapping github.com/cli/go-gh/v2's REST client with the
// retry/idempotency contracts the PR/CI integration needs.
package platform

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	ghapi "github.com/cli/go-gh/v2/pkg/api"
	"golang.org/x/mod/semver"

	"github.com/devsolo-dev/devsolo/internal/model"
)

// Client talks to one owner/repo on the hosted platform.
type Client struct {
	owner, repo string
	rest        *ghapi.RESTClient
}

var remotePattern = regexp.MustCompile(`^(?:git@(?P<host1>[^:]+):|https://(?P<host2>[^/]+)/|gh:)(?P<owner>[^/]+)/(?P<repo>[^/]+?)(?:\.git)?$`)

// ParseRemote extracts owner/repo from an SSH, HTTPS, or "gh:" remote URL.
func ParseRemote(remote string) (owner, repo string, err error) {
	m := remotePattern.FindStringSubmatch(strings.TrimSpace(remote))
	if m == nil {
		return "", "", model.NewToolError(model.ErrPlatformUnreachable, "unrecognized remote URL: "+remote, nil)
	}
	idx := remotePattern.SubexpNames()
	values := map[string]string{}
	for i, name := range idx {
		if name != "" && i < len(m) {
			values[name] = m[i]
		}
	}
	return values["owner"], values["repo"], nil
}

// tokenFromEnv resolves the auth token: GITHUB_TOKEN first, then GH_TOKEN,
// go-gh's own client falls back further
// (gh's stored config) when neither is set.
func tokenFromEnv() string {
	if t := os.Getenv("GITHUB_TOKEN"); t != "" {
		return t
	}
	return os.Getenv("GH_TOKEN")
}

// New constructs a Client for owner/repo, authenticating via config/env.
func New(owner, repo, configuredToken string) (*Client, error) {
	token := configuredToken
	if token == "" {
		token = tokenFromEnv()
	}
	opts := ghapi.ClientOptions{Timeout: 30 * time.Second}
	if token != "" {
		opts.AuthToken = token
	}
	rest, err := ghapi.NewRESTClient(opts)
	if err != nil {
		return nil, model.NewToolError(model.ErrPlatformUnreachable, "constructing platform client", err)
	}
	return &Client{owner: owner, repo: repo, rest: rest}, nil
}

// PullRequest is the subset of GitHub's PR shape devsolo cares about.
type PullRequest struct {
	Number int    `json:"number"`
	URL    string `json:"html_url"`
	State  string `json:"state"`
	Head   struct {
		Ref string `json:"ref"`
	} `json:"head"`
	Merged   bool       `json:"merged"`
	MergedAt *time.Time `json:"merged_at"`
}

// CheckRunSummary aggregates check-run conclusions for a ref.
type CheckRunSummary struct {
	Passed  int
	Failed  int
	Pending int
	Total   int
	Failing []FailedRun
}

// FailedRun names one failed check run for error reporting.
type FailedRun struct {
	Name, Status, URL string
}

// CreatePullRequest opens a PR. Idempotent on conflict: if the platform
// returns 422 (an open PR for this head already exists), it returns that
// existing PR instead of erroring.
func (c *Client) CreatePullRequest(ctx context.Context, title, body, head, base string, draft bool) (*PullRequest, error) {
	payload := map[string]any{
		"title": title, "body": body,
		"head": head, "base": base,
		"draft": draft,
	}
	var pr PullRequest
	err := c.withRetry(ctx, func() error {
		return c.rest.Post(fmt.Sprintf("repos/%s/%s/pulls", c.owner, c.repo), toJSONReader(payload), &pr)
	})
	if err != nil {
		if isUnprocessable(err) {
			existing, getErr := c.GetPullRequestForBranch(ctx, head)
			if getErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, classifyErr(err)
	}
	return &pr, nil
}

// GetPullRequest fetches PR number n.
func (c *Client) GetPullRequest(ctx context.Context, n int) (*PullRequest, error) {
	var pr PullRequest
	err := c.withRetry(ctx, func() error {
		return c.rest.Get(fmt.Sprintf("repos/%s/%s/pulls/%d", c.owner, c.repo, n), &pr)
	})
	if err != nil {
		return nil, classifyErr(err)
	}
	return &pr, nil
}

// GetPullRequestForBranch returns the single open PR whose head is branch,
// or nil if none. More than one open PR for the same head is the caller's
// (PR Validator's) problem to classify as duplicate-open — this method
// never collapses multiple matches silently.
func (c *Client) GetPullRequestForBranch(ctx context.Context, branch string) (*PullRequest, error) {
	prs, err := c.listOpenPullRequestsForBranch(ctx, branch)
	if err != nil {
		return nil, err
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return &prs[0], nil
}

// ListOpenPullRequestsForBranch exposes every open PR for branch, so the PR
// Validator can detect duplicate-open itself rather than relying on this
// client to have silently picked one.
func (c *Client) ListOpenPullRequestsForBranch(ctx context.Context, branch string) ([]PullRequest, error) {
	return c.listOpenPullRequestsForBranch(ctx, branch)
}

func (c *Client) listOpenPullRequestsForBranch(ctx context.Context, branch string) ([]PullRequest, error) {
	var prs []PullRequest
	path := fmt.Sprintf("repos/%s/%s/pulls?state=open&head=%s:%s", c.owner, c.repo, c.owner, branch)
	err := c.withRetry(ctx, func() error {
		return c.rest.Get(path, &prs)
	})
	if err != nil {
		return nil, classifyErr(err)
	}
	return prs, nil
}

// MergeMethod is one of the platform's merge strategies.
type MergeMethod string

const (
	MergeMerge  MergeMethod = "merge"
	MergeSquash MergeMethod = "squash"
	MergeRebase MergeMethod = "rebase"
)

// MergePullRequest merges PR n with the given method. Tolerates an
// already-merged PR as success, since Ship's merge step must be idempotent
// on retry.
func (c *Client) MergePullRequest(ctx context.Context, n int, method MergeMethod) error {
	payload := map[string]any{"merge_method": string(method)}
	var result struct {
		Merged bool `json:"merged"`
	}
	err := c.withRetry(ctx, func() error {
		return c.rest.Put(fmt.Sprintf("repos/%s/%s/pulls/%d/merge", c.owner, c.repo, n), toJSONReader(payload), &result)
	})
	if err != nil {
		if pr, getErr := c.GetPullRequest(ctx, n); getErr == nil && pr != nil && pr.Merged {
			return nil
		}
		return classifyErr(err)
	}
	return nil
}

// ClosePullRequest closes PR n without merging.
func (c *Client) ClosePullRequest(ctx context.Context, n int) error {
	payload := map[string]any{"state": "closed"}
	err := c.withRetry(ctx, func() error {
		return c.rest.Patch(fmt.Sprintf("repos/%s/%s/pulls/%d", c.owner, c.repo, n), toJSONReader(payload), nil)
	})
	return classifyErr(err)
}

// AddComment posts a comment on PR/issue n.
func (c *Client) AddComment(ctx context.Context, n int, body string) error {
	payload := map[string]any{"body": body}
	err := c.withRetry(ctx, func() error {
		return c.rest.Post(fmt.Sprintf("repos/%s/%s/issues/%d/comments", c.owner, c.repo, n), toJSONReader(payload), nil)
	})
	return classifyErr(err)
}

// ReviewDecision aggregates PR review state.
type ReviewDecision struct {
	Approved         bool
	ChangesRequested bool
}

// ListReviews aggregates approval / changes-requested state for PR n.
func (c *Client) ListReviews(ctx context.Context, n int) (ReviewDecision, error) {
	var reviews []struct {
		State string `json:"state"`
	}
	err := c.withRetry(ctx, func() error {
		return c.rest.Get(fmt.Sprintf("repos/%s/%s/pulls/%d/reviews", c.owner, c.repo, n), &reviews)
	})
	if err != nil {
		return ReviewDecision{}, classifyErr(err)
	}
	var d ReviewDecision
	for _, rv := range reviews {
		switch rv.State {
		case "APPROVED":
			d.Approved = true
		case "CHANGES_REQUESTED":
			d.ChangesRequested = true
		}
	}
	return d, nil
}

// ListCheckRuns summarizes the check-run conclusions for ref.
func (c *Client) ListCheckRuns(ctx context.Context, ref string) (CheckRunSummary, error) {
	var resp struct {
		CheckRuns []struct {
			Name       string `json:"name"`
			Status     string `json:"status"`
			Conclusion string `json:"conclusion"`
			HTMLURL    string `json:"html_url"`
		} `json:"check_runs"`
	}
	err := c.withRetry(ctx, func() error {
		return c.rest.Get(fmt.Sprintf("repos/%s/%s/commits/%s/check-runs", c.owner, c.repo, ref), &resp)
	})
	if err != nil {
		return CheckRunSummary{}, classifyErr(err)
	}
	var s CheckRunSummary
	for _, run := range resp.CheckRuns {
		s.Total++
		switch {
		case run.Status != "completed":
			s.Pending++
		case run.Conclusion == "success" || run.Conclusion == "neutral" || run.Conclusion == "skipped":
			s.Passed++
		default:
			s.Failed++
			s.Failing = append(s.Failing, FailedRun{Name: run.Name, Status: run.Conclusion, URL: run.HTMLURL})
		}
	}
	return s, nil
}

// CreateRelease creates a release for an existing tag. tag must be a
// canonical semver string ("v1.2.3"); a non-canonical tag (missing the v
// prefix, a build-metadata-only difference, etc.) is rejected before
// calling out to the platform so a malformed release never reaches GitHub.
func (c *Client) CreateRelease(ctx context.Context, tag, name, body string, draft, prerelease bool) error {
	if !semver.IsValid(tag) || semver.Canonical(tag) != tag {
		return model.NewToolError(model.ErrMissingParameter, fmt.Sprintf("%q is not a canonical semver tag", tag), nil)
	}

	payload := map[string]any{
		"tag_name": tag, "name": name, "body": body,
		"draft": draft, "prerelease": prerelease,
	}
	err := c.withRetry(ctx, func() error {
		return c.rest.Post(fmt.Sprintf("repos/%s/%s/releases", c.owner, c.repo), toJSONReader(payload), nil)
	})
	return classifyErr(err)
}

// withRetry retries transient failures (5xx, rate-limit, network) with
// exponential backoff up to 5 attempts, yielding the goroutine between
// attempts so a cancelled context stops retrying promptly.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	const maxAttempts = 5
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return model.NewToolError(model.ErrCancelled, "platform call cancelled", err)
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		backoff := time.Duration(math.Pow(2, float64(attempt))) * 500 * time.Millisecond
		select {
		case <-ctx.Done():
			return model.NewToolError(model.ErrCancelled, "platform call cancelled", ctx.Err())
		case <-time.After(backoff):
		}
	}
	return model.NewToolError(model.ErrPlatformUnreachable, "retry budget exhausted", lastErr)
}

func isRetryable(err error) bool {
	var httpErr *ghapi.HTTPError
	if asHTTPError(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == http.StatusTooManyRequests
	}
	return true // network errors: assume transient
}

func isUnprocessable(err error) bool {
	var httpErr *ghapi.HTTPError
	if asHTTPError(err, &httpErr) {
		return httpErr.StatusCode == http.StatusUnprocessableEntity
	}
	return false
}

func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	var httpErr *ghapi.HTTPError
	if asHTTPError(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden:
			return model.NewToolError(model.ErrPlatformForbidden, "platform rejected credentials", err)
		case httpErr.StatusCode >= 500:
			return model.NewToolError(model.ErrPlatformUnreachable, "platform server error", err)
		}
	}
	return model.NewToolError(model.ErrPlatformUnreachable, "platform request failed", err)
}

func asHTTPError(err error, target **ghapi.HTTPError) bool {
	for err != nil {
		if he, ok := err.(*ghapi.HTTPError); ok {
			*target = he
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
