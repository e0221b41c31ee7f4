// Package orchestrator implements §4.4: given a reconciliation Result, it
// publishes the target branch (or deletes it) and, when a pull request is
// actually warranted, hands off to the PR client.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/gitops-tools/reconcile-pr-action/internal/prclient"
	"github.com/gitops-tools/reconcile-pr-action/internal/reconcile"
)

// Pusher is the subset of *vcs.Repo the orchestrator needs to publish or
// retract the target branch.
type Pusher interface {
	PushForce(repoURL, branch string) error
	DeleteRemoteBranch(repoURL, branch string) error
}

// PRClient is the subset of *prclient.Client the orchestrator depends on.
type PRClient interface {
	CreateOrUpdatePullRequest(ctx context.Context, opts prclient.Options) (prclient.Result, error)
}

// Outcome reports what the orchestrator actually did.
type Outcome struct {
	Action          reconcile.Action
	BranchPublished bool
	BranchDeleted   bool
	PullRequest     *prclient.Result
}

// Metadata carries the PR metadata the caller wants applied when a pull
// request ends up being created or updated.
type Metadata struct {
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

// Publish implements §4.4 in full: force-push on created/updated, delete
// instead when diff is false, and otherwise call the PR client.
func Publish(ctx context.Context, pusher Pusher, prClient PRClient, repoURL, branch string, result reconcile.Result, meta Metadata) (Outcome, error) {
	outcome := Outcome{Action: result.Action}

	if result.Action != reconcile.ActionCreated && result.Action != reconcile.ActionUpdated {
		return outcome, nil
	}

	if err := pusher.PushForce(repoURL, branch); err != nil {
		return Outcome{}, fmt.Errorf("pushing branch %q: %w", branch, err)
	}
	outcome.BranchPublished = true

	if !result.Diff {
		if err := pusher.DeleteRemoteBranch(repoURL, branch); err != nil {
			return Outcome{}, fmt.Errorf("deleting branch %q after it carried no diff over base: %w", branch, err)
		}
		outcome.BranchDeleted = true
		return outcome, nil
	}

	pr, err := prClient.CreateOrUpdatePullRequest(ctx, prclient.Options{
		Branch:          branch,
		Base:            result.Base,
		Title:           meta.Title,
		Body:            meta.Body,
		Labels:          meta.Labels,
		Assignees:       meta.Assignees,
		Reviewers:       meta.Reviewers,
		TeamReviewers:   meta.TeamReviewers,
		Milestone:       meta.Milestone,
		ProjectName:     meta.ProjectName,
		ProjectColumn:   meta.ProjectColumn,
		Draft:           meta.Draft,
		RequestToParent: meta.RequestToParent,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("creating or updating pull request for %q: %w", branch, err)
	}
	outcome.PullRequest = &pr

	return outcome, nil
}
