// Package reconcile implements the branch reconciliation engine of §4.1: it
// takes whatever committed and uncommitted work sits in the working tree and
// produces a pull-request branch whose tip is exactly the net change versus
// base, reporting whether that branch was created, updated, or left alone.
package reconcile

import (
	"fmt"

	"github.com/gitops-tools/reconcile-pr-action/internal/vcs"
)

// Action is the outcome of a single reconciliation.
type Action string

const (
	ActionNone    Action = "none"
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Result is the outcome of Run: what happened to the target branch, whether
// it carries any change over base, and the base that was actually used.
type Result struct {
	Action Action
	Diff   bool
	Base   string
}

// Options configures a single reconciliation.
type Options struct {
	// RepoURL is the remote URL used for every fetch and push in this
	// invocation. Authentication, if any, travels via repo's AuthHeader
	// rather than being embedded in this URL.
	RepoURL string
	// CommitMessage is used for the single workflow-changes commit, if the
	// working tree is dirty at entry.
	CommitMessage string
	// Base is the intended PR base branch. Empty means "use the working
	// base captured from HEAD".
	Base string
	// Branch is the target (PR) branch name.
	Branch string
}

// repoOps is the subset of *vcs.Repo the engine depends on, named for the
// step of §4.1 each group of methods serves.
type repoOps interface {
	SymbolicRefHead() (string, error)
	IsDirty() (bool, error)
	CheckoutNewBranch(name, from string) error
	CheckoutForce(name, from string) error
	Checkout(name string) error
	StageAll() error
	Commit(message string) error
	FetchInto(repoURL, remoteRef, localRef string) error
	FetchBranchIfExists(repoURL, remoteRef, localRef string) (bool, error)
	RevListReverse(from, to, pathspec string) ([]string, error)
	CherryPickTheirs(commit string) error
	CherryPickAbortQuiet()
	IsAhead(branch1, branch2 string) (bool, error)
	IsEven(branch1, branch2 string) (bool, error)
	HasDiff(branch1, branch2 string) (bool, error)
	DeleteBranchForce(branch string) error
}

// Run executes Steps A through E of §4.1 against repo and returns the
// resulting ReconcileResult.
func Run(repo repoOps, opts Options) (Result, error) {
	workingBase, temp, err := captureWorkingBase(repo, opts.CommitMessage)
	if err != nil {
		return Result{}, err
	}

	base := opts.Base
	if base == "" {
		base = workingBase
	}

	// Always clean up the temp branch, success or failure.
	defer func() {
		_ = repo.DeleteBranchForce(temp)
	}()

	if err := repo.FetchInto(opts.RepoURL, workingBase, workingBase); err != nil {
		return Result{}, fmt.Errorf("resetting working base %q to remote: %w", workingBase, err)
	}

	if workingBase != base {
		if err := rebaseOntoBase(repo, opts.RepoURL, workingBase, base, temp); err != nil {
			return Result{}, err
		}
	}

	return reconcileTargetBranch(repo, opts.RepoURL, base, opts.Branch, temp)
}

// captureWorkingBase implements Step A: resolve the working base, create a
// temp branch at HEAD, and commit any uncommitted changes onto it.
func captureWorkingBase(repo repoOps, commitMessage string) (workingBase, temp string, err error) {
	workingBase, err = repo.SymbolicRefHead()
	if err != nil {
		return "", "", fmt.Errorf("resolving HEAD as a branch: %w", err)
	}

	temp = vcs.RandomToken(20)
	if err := repo.CheckoutNewBranch(temp, "HEAD"); err != nil {
		return "", "", fmt.Errorf("creating scratch branch: %w", err)
	}

	dirty, err := repo.IsDirty()
	if err != nil {
		return "", "", fmt.Errorf("checking working tree status: %w", err)
	}
	if dirty {
		if err := repo.StageAll(); err != nil {
			return "", "", fmt.Errorf("staging working tree changes: %w", err)
		}
		if err := repo.Commit(commitMessage); err != nil {
			return "", "", fmt.Errorf("committing working tree changes: %w", err)
		}
	}

	return workingBase, temp, nil
}

// rebaseOntoBase implements Step C: when the working base and the intended
// base differ, cherry-pick the temp branch's commits (those made since
// workingBase) onto base, "theirs" winning any conflict, and reset temp to
// the result.
func rebaseOntoBase(repo repoOps, repoURL, workingBase, base, temp string) error {
	if err := repo.FetchInto(repoURL, base, base); err != nil {
		return fmt.Errorf("fetching base %q: %w", base, err)
	}
	if err := repo.Checkout(base); err != nil {
		return fmt.Errorf("checking out base %q: %w", base, err)
	}

	commits, err := repo.RevListReverse(workingBase, temp, ".")
	if err != nil {
		return fmt.Errorf("enumerating commits to rebase: %w", err)
	}

	for _, commit := range commits {
		if err := repo.CherryPickTheirs(commit); err != nil {
			if vcs.IsEmptyCherryPick(err) {
				continue
			}
			repo.CherryPickAbortQuiet()
			return fmt.Errorf("cherry-picking %s onto %q: %w", commit, base, err)
		}
	}

	if err := repo.CheckoutForce(temp, "HEAD"); err != nil {
		return fmt.Errorf("resetting scratch branch onto rebased commits: %w", err)
	}

	if err := repo.FetchInto(repoURL, base, base); err != nil {
		return fmt.Errorf("re-fetching base %q: %w", base, err)
	}

	return nil
}

// reconcileTargetBranch implements Step D: compare the rebuilt temp branch
// against whatever the remote target branch currently holds, and decide
// created/updated/none.
func reconcileTargetBranch(repo repoOps, repoURL, base, branch, temp string) (Result, error) {
	remoteRef := "refs/remotes/origin/" + branch
	exists, err := repo.FetchBranchIfExists(repoURL, branch, remoteRef)
	if err != nil {
		return Result{}, fmt.Errorf("fetching target branch %q: %w", branch, err)
	}

	if !exists {
		return createTargetBranch(repo, base, branch, temp)
	}
	return updateTargetBranch(repo, base, branch, temp)
}

// createTargetBranch implements Case 1 of Step D: the target branch does not
// exist remotely yet.
func createTargetBranch(repo repoOps, base, branch, temp string) (Result, error) {
	if err := repo.CheckoutNewBranch(branch, "HEAD"); err != nil {
		return Result{}, fmt.Errorf("creating target branch %q: %w", branch, err)
	}

	diff, err := repo.IsAhead(base, branch)
	if err != nil {
		return Result{}, fmt.Errorf("checking %q ahead of base %q: %w", branch, base, err)
	}

	action := ActionNone
	if diff {
		action = ActionCreated
	}
	return Result{Action: action, Diff: diff, Base: base}, nil
}

// updateTargetBranch implements Case 2 of Step D: the target branch already
// exists remotely; reconcile local state against both temp and origin.
func updateTargetBranch(repo repoOps, base, branch, temp string) (Result, error) {
	if err := repo.Checkout(branch); err != nil {
		return Result{}, fmt.Errorf("checking out target branch %q: %w", branch, err)
	}

	hasDiff, err := repo.HasDiff(branch, temp)
	if err != nil {
		return Result{}, fmt.Errorf("diffing %q against scratch branch: %w", branch, err)
	}
	if hasDiff {
		if err := repo.CheckoutForce(branch, temp); err != nil {
			return Result{}, fmt.Errorf("resetting target branch %q to scratch content: %w", branch, err)
		}
	}

	even, err := repo.IsEven("origin/"+branch, branch)
	if err != nil {
		return Result{}, fmt.Errorf("comparing %q against its remote: %w", branch, err)
	}

	action := ActionNone
	if !even {
		action = ActionUpdated
	}

	diff, err := repo.IsAhead(base, branch)
	if err != nil {
		return Result{}, fmt.Errorf("checking %q ahead of base %q: %w", branch, base, err)
	}

	return Result{Action: action, Diff: diff, Base: base}, nil
}
