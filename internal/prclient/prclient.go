// Package prclient implements the GitHub PR client of §4.5: it takes the
// outcome of a reconciliation and turns it into an open pull request with
// its metadata (labels, assignees, milestone, reviewers, project card)
// applied best-effort, mirroring the distilled source's per-call try/except.
package prclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"
)

// Client wraps a *github.Client scoped to a single repository.
type Client struct {
	gh    *github.Client
	owner string
	repo  string
}

// New builds a Client authenticated with token. When baseURL is non-empty it
// is treated as a GitHub Enterprise instance base URL.
func New(ctx context.Context, token, owner, repo, baseURL string) (*Client, error) {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))

	gh := github.NewClient(httpClient)
	if baseURL != "" {
		var err error
		gh, err = github.NewEnterpriseClient(baseURL, baseURL, httpClient)
		if err != nil {
			return nil, fmt.Errorf("building GitHub Enterprise client for %q: %w", baseURL, err)
		}
	}

	return &Client{gh: gh, owner: owner, repo: repo}, nil
}

// newForTest lets tests point a Client at an httptest server.
func newForTest(gh *github.Client, owner, repo string) *Client {
	return &Client{gh: gh, owner: owner, repo: repo}
}

// Options configures CreateOrUpdatePullRequest.
type Options struct {
	Branch          string
	Base            string
	Title           string
	Body            string
	Labels          []string
	Assignees       []string
	Reviewers       []string
	TeamReviewers   []string
	Milestone       int
	ProjectName     string
	ProjectColumn   string
	Draft           bool
	RequestToParent bool
}

// Result reports the pull request CreateOrUpdatePullRequest created or
// updated.
type Result struct {
	Number int
	URL    string
}

// httpStatus returns the HTTP status code of err if it is a
// *github.ErrorResponse, or 0 otherwise.
func httpStatus(err error) int {
	var ghErr *github.ErrorResponse
	if ok := asErrorResponse(err, &ghErr); ok {
		return ghErr.Response.StatusCode
	}
	return 0
}

func asErrorResponse(err error, target **github.ErrorResponse) bool {
	for err != nil {
		if ghErr, ok := err.(*github.ErrorResponse); ok {
			*target = ghErr
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// CreateOrUpdatePullRequest implements §4.5's CreateOrUpdatePullRequest flow.
func (c *Client) CreateOrUpdatePullRequest(ctx context.Context, opts Options) (Result, error) {
	owner, repo, err := c.resolveTargetRepo(ctx, opts.RequestToParent)
	if err != nil {
		return Result{}, err
	}

	head := c.owner + ":" + opts.Branch

	pr, _, err := c.gh.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(opts.Title),
		Body:  github.String(opts.Body),
		Head:  github.String(head),
		Base:  github.String(opts.Base),
		Draft: github.Bool(opts.Draft),
	})
	if err != nil {
		if httpStatus(err) != http.StatusUnprocessableEntity {
			return Result{}, fmt.Errorf("creating pull request: %w", err)
		}
		pr, err = c.findExistingPullRequest(ctx, owner, repo, opts.Base, head)
		if err != nil {
			return Result{}, err
		}
		pr, _, err = c.gh.PullRequests.Edit(ctx, owner, repo, pr.GetNumber(), &github.PullRequest{
			Title: github.String(opts.Title),
			Body:  github.String(opts.Body),
		})
		if err != nil {
			return Result{}, fmt.Errorf("editing existing pull request #%d: %w", pr.GetNumber(), err)
		}
	}

	number := pr.GetNumber()
	c.applyMetadata(ctx, owner, repo, number, opts)

	return Result{Number: number, URL: pr.GetHTMLURL()}, nil
}

// resolveTargetRepo implements §4.5 step 1: redirect to the fork parent when
// RequestToParent is set.
func (c *Client) resolveTargetRepo(ctx context.Context, requestToParent bool) (owner, repo string, err error) {
	if !requestToParent {
		return c.owner, c.repo, nil
	}

	repository, _, err := c.gh.Repositories.Get(ctx, c.owner, c.repo)
	if err != nil {
		return "", "", fmt.Errorf("resolving repository %s/%s to find its fork parent: %w", c.owner, c.repo, err)
	}
	parent := repository.GetParent()
	if parent == nil {
		return "", "", fmt.Errorf("request-to-parent was set but %s/%s is not a fork", c.owner, c.repo)
	}
	return parent.GetOwner().GetLogin(), parent.GetName(), nil
}

// findExistingPullRequest implements §4.5 step 3's fallback: a 422 on create
// means a PR for (base, head) already exists.
func (c *Client) findExistingPullRequest(ctx context.Context, owner, repo, base, head string) (*github.PullRequest, error) {
	prs, _, err := c.gh.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
		State: "open",
		Base:  base,
		Head:  head,
	})
	if err != nil {
		return nil, fmt.Errorf("looking up existing pull request for %s <- %s: %w", base, head, err)
	}
	if len(prs) == 0 {
		return nil, fmt.Errorf("pull request create returned 422 but no open PR for %s <- %s was found", base, head)
	}
	return prs[0], nil
}

// applyMetadata implements §4.5 step 5-6: every call is independently
// best-effort, logging and swallowing a 422 rather than failing the run.
func (c *Client) applyMetadata(ctx context.Context, owner, repo string, number int, opts Options) {
	if len(opts.Labels) > 0 {
		if _, _, err := c.gh.Issues.AddLabelsToIssue(ctx, owner, repo, number, opts.Labels); err != nil {
			slog.Warn("failed to add labels to pull request", "pr", number, "labels", opts.Labels, "error", err)
		}
	}

	if len(opts.Assignees) > 0 {
		if _, _, err := c.gh.Issues.AddAssignees(ctx, owner, repo, number, opts.Assignees); err != nil {
			slog.Warn("failed to add assignees to pull request", "pr", number, "assignees", opts.Assignees, "error", err)
		}
	}

	if opts.Milestone > 0 {
		milestone, _, err := c.gh.Issues.GetMilestone(ctx, owner, repo, opts.Milestone)
		if err != nil {
			slog.Warn("failed to resolve milestone", "milestone", opts.Milestone, "error", err)
		} else if _, _, err := c.gh.Issues.Edit(ctx, owner, repo, number, &github.IssueRequest{Milestone: milestone.Number}); err != nil {
			slog.Warn("failed to set milestone on pull request", "pr", number, "milestone", opts.Milestone, "error", err)
		}
	}

	if len(opts.Reviewers) > 0 || len(opts.TeamReviewers) > 0 {
		_, _, err := c.gh.PullRequests.RequestReviewers(ctx, owner, repo, number, github.ReviewersRequest{
			Reviewers:     opts.Reviewers,
			TeamReviewers: opts.TeamReviewers,
		})
		if err != nil {
			slog.Warn("failed to request reviewers for pull request", "pr", number, "reviewers", opts.Reviewers, "team_reviewers", opts.TeamReviewers, "error", err)
		}
	}

	if opts.ProjectName != "" && opts.ProjectColumn != "" {
		c.applyProjectCard(ctx, owner, repo, number, opts.ProjectName, opts.ProjectColumn)
	}
}

// applyProjectCard implements §4.5 step 6.
func (c *Client) applyProjectCard(ctx context.Context, owner, repo string, number int, projectName, columnName string) {
	projects, _, err := c.gh.Repositories.ListProjects(ctx, owner, repo, nil)
	if err != nil {
		slog.Warn("failed to list projects for pull request", "pr", number, "error", err)
		return
	}

	var project *github.Project
	for _, p := range projects {
		if strings.EqualFold(p.GetName(), projectName) {
			project = p
			break
		}
	}
	if project == nil {
		slog.Warn("failed to find project by name for pull request", "pr", number, "project", projectName)
		return
	}

	columns, _, err := c.gh.Projects.ListProjectColumns(ctx, project.GetID(), nil)
	if err != nil {
		slog.Warn("failed to list project columns for pull request", "pr", number, "project", projectName, "error", err)
		return
	}

	var column *github.ProjectColumn
	for _, col := range columns {
		if strings.EqualFold(col.GetName(), columnName) {
			column = col
			break
		}
	}
	if column == nil {
		slog.Warn("failed to find project column by name for pull request", "pr", number, "project", projectName, "column", columnName)
		return
	}

	_, _, err = c.gh.Projects.CreateProjectCard(ctx, column.GetID(), &github.ProjectCardOptions{
		ContentID:   int64(number),
		ContentType: "PullRequest",
	})
	if err != nil {
		slog.Warn("failed to add pull request to project card", "pr", number, "project", projectName, "column", columnName, "error", err)
	}
}
