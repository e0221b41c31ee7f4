// Package vcs wraps the git executable with the capability surface the
// reconciliation engine needs: symbolic-ref resolution, fetch, checkout,
// branch create/reset/delete, add/commit, diff, rev-list counting,
// cherry-pick with strategy, push, dirty-check and identity injection.
package vcs

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Retry constants for transient git errors.
const (
	retryInitialDelay = 200 * time.Millisecond
	retryMaxAttempts  = 6
	retryMultiplier   = 2
)

// transientPatterns are error substrings that indicate a retryable git failure.
var transientPatterns = []string{
	"index file open failed",
	"index.lock",
	"cannot lock ref",
}

// isTransient returns true if the error message matches a known transient git failure.
func isTransient(errMsg string) bool {
	for _, p := range transientPatterns {
		if strings.Contains(errMsg, p) {
			return true
		}
	}
	return false
}

// emptyCherryPickSignal is the stderr substring git prints when a cherry-pick
// produces no changes, typically because the base already carries an
// equivalent commit. This is a known-fragile string-match contract with the
// underlying git binary; IsEmptyCherryPick is the single call site that
// depends on it.
const emptyCherryPickSignal = "previous cherry-pick is now empty, possibly due to conflict resolution"

// IsEmptyCherryPick reports whether err represents a cherry-pick that applied
// cleanly but produced no commit, which callers should absorb rather than fail on.
func IsEmptyCherryPick(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), emptyCherryPickSignal)
}

// Repo wraps git operations for a single repository checkout.
type Repo struct {
	Dir string

	// ExtraEnv is appended to every subprocess's environment, used to scope
	// committer/author identity to this invocation without touching
	// persistent git config.
	ExtraEnv []string

	// AuthHeader, when set, is the full value of an HTTP "Authorization"
	// header (e.g. "basic <base64>") injected via git's http.extraheader
	// config on every fetch and push. This keeps the access token out of
	// the remote URL and therefore out of argv and error messages, per §6.
	AuthHeader string
}

// NewRepo creates a Repo rooted at dir.
func NewRepo(dir string) *Repo {
	return &Repo{Dir: dir}
}

// sleepFunc is the function used for sleeping between retries.
// Replaced in tests to avoid real delays.
var sleepFunc = time.Sleep

// run executes a git command in the repo directory. Transient errors (index
// locks, ref locks) are retried with exponential backoff.
func (r *Repo) run(args ...string) (string, error) {
	delay := retryInitialDelay
	for attempt := 0; attempt < retryMaxAttempts; attempt++ {
		gitArgs := args
		if r.AuthHeader != "" {
			gitArgs = append([]string{"-c", "http.extraheader=" + r.AuthHeader}, args...)
		}
		cmd := exec.Command("git", gitArgs...)
		cmd.Dir = r.Dir
		if len(r.ExtraEnv) > 0 {
			cmd.Env = append(cmd.Environ(), r.ExtraEnv...)
		}
		out, err := cmd.CombinedOutput()
		if err == nil {
			return strings.TrimSpace(string(out)), nil
		}
		errMsg := strings.TrimSpace(string(out))
		if !isTransient(errMsg) || attempt == retryMaxAttempts-1 {
			return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), errMsg, err)
		}
		sleepFunc(delay)
		delay *= retryMultiplier
	}
	// unreachable — loop always returns
	return "", nil
}

// SymbolicRefHead returns the short branch name HEAD symbolically resolves
// to, or an error if HEAD is detached, a tag, or a merge commit.
func (r *Repo) SymbolicRefHead() (string, error) {
	return r.run("symbolic-ref", "--short", "HEAD")
}

// RevParseShort resolves a ref to its short commit hash.
func (r *Repo) RevParseShort(ref string) (string, error) {
	return r.run("rev-parse", "--short", ref)
}

// IsDirty reports whether the working tree has uncommitted changes,
// including untracked files.
func (r *Repo) IsDirty() (bool, error) {
	out, err := r.run("status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// CheckoutNewBranch creates and checks out a new branch at from (HEAD or
// any ref).
func (r *Repo) CheckoutNewBranch(name, from string) error {
	_, err := r.run("checkout", from, "-b", name)
	return err
}

// CheckoutForce creates or resets branch name to point at from, checking it
// out (git checkout -B).
func (r *Repo) CheckoutForce(name, from string) error {
	_, err := r.run("checkout", "-B", name, from)
	return err
}

// Checkout checks out an existing local branch.
func (r *Repo) Checkout(name string) error {
	_, err := r.run("checkout", name)
	return err
}

// StageAll stages all changes, including untracked and deleted files.
func (r *Repo) StageAll() error {
	_, err := r.run("add", "-A")
	return err
}

// Commit creates a commit with the given message using the identity
// currently injected via ExtraEnv.
func (r *Repo) Commit(message string) error {
	_, err := r.run("commit", "-m", message)
	return err
}

// noSuchRemoteRefSignal is the stderr substring git prints when a fetch
// refspec names a remote ref that does not exist. FetchBranchIfExists is the
// single call site that depends on it to distinguish "branch absent" from a
// genuine fetch failure.
const noSuchRemoteRefSignal = "couldn't find remote ref"

// FetchInto force-fetches remoteRef from repoURL into localRef, moving
// localRef to match the remote tip even if that is not a fast-forward. Any
// failure, including the ref not existing, is returned as an error: callers
// use this for the working-base and base fetches of §4.1 Steps B and C,
// which §7 requires to be fatal.
func (r *Repo) FetchInto(repoURL, remoteRef, localRef string) error {
	_, err := r.run("fetch", "--force", repoURL, fmt.Sprintf("%s:%s", remoteRef, localRef))
	return err
}

// FetchBranchIfExists force-fetches remoteRef from repoURL into localRef,
// reporting the remote ref not existing as (false, nil) rather than an
// error. This is used for the target-branch fetch of §4.1 Step D, where
// absence means Case 1 (create) rather than a failure; any other fetch
// error still propagates.
func (r *Repo) FetchBranchIfExists(repoURL, remoteRef, localRef string) (bool, error) {
	_, err := r.run("fetch", "--force", repoURL, fmt.Sprintf("%s:%s", remoteRef, localRef))
	if err != nil {
		if strings.Contains(err.Error(), noSuchRemoteRefSignal) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RevListReverse returns commit hashes in from..to order (oldest first),
// restricted to the given pathspec (use "." for the whole repository).
func (r *Repo) RevListReverse(from, to, pathspec string) ([]string, error) {
	out, err := r.run("rev-list", "--reverse", fmt.Sprintf("%s..%s", from, to), "--", pathspec)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// CherryPickTheirs cherry-picks commit onto HEAD using the recursive
// strategy with the "theirs" option, so the workflow's own changes win any
// conflict. A cherry-pick that produces no net change (IsEmptyCherryPick)
// should be absorbed by the caller rather than treated as fatal.
func (r *Repo) CherryPickTheirs(commit string) error {
	_, err := r.run("cherry-pick", "--strategy", "recursive", "--strategy-option", "theirs", commit)
	return err
}

// CherryPickAbortQuiet aborts an in-progress cherry-pick, ignoring errors
// (there may be nothing to abort).
func (r *Repo) CherryPickAbortQuiet() {
	_, _ = r.run("cherry-pick", "--abort")
}

// IsAhead reports whether branch2 is ahead of branch1, i.e. branch2 carries
// commits branch1 lacks.
func (r *Repo) IsAhead(branch1, branch2 string) (bool, error) {
	return r.revListCount("--right-only", fmt.Sprintf("%s...%s", branch1, branch2))
}

// IsBehind reports whether branch2 is missing commits present on branch1.
func (r *Repo) IsBehind(branch1, branch2 string) (bool, error) {
	return r.revListCount("--left-only", fmt.Sprintf("%s...%s", branch1, branch2))
}

// IsEven reports whether branch1 and branch2 have identical commit sets.
func (r *Repo) IsEven(branch1, branch2 string) (bool, error) {
	ahead, err := r.IsAhead(branch1, branch2)
	if err != nil {
		return false, err
	}
	behind, err := r.IsBehind(branch1, branch2)
	if err != nil {
		return false, err
	}
	return !ahead && !behind, nil
}

func (r *Repo) revListCount(side, rangeSpec string) (bool, error) {
	out, err := r.run("rev-list", side, "--count", rangeSpec)
	if err != nil {
		return false, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return false, fmt.Errorf("parsing rev-list count %q: %w", out, err)
	}
	return n > 0, nil
}

// HasDiff reports whether branch1..branch2 carries any tree difference.
func (r *Repo) HasDiff(branch1, branch2 string) (bool, error) {
	out, err := r.run("diff", fmt.Sprintf("%s..%s", branch1, branch2))
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// DeleteBranchForce force-deletes a local branch.
func (r *Repo) DeleteBranchForce(branch string) error {
	_, err := r.run("branch", "--delete", "--force", branch)
	return err
}

// ConfigGet reads a git config key, returning ("", nil) if unset.
func (r *Repo) ConfigGet(key string) (string, error) {
	out, err := r.run("config", key)
	if err != nil {
		// git config exits non-zero for an unset key; treat as absent.
		return "", nil
	}
	return out, nil
}

// PushForce force-pushes HEAD to refs/heads/<branch> on repoURL.
func (r *Repo) PushForce(repoURL, branch string) error {
	_, err := r.run("push", "--force", repoURL, fmt.Sprintf("HEAD:refs/heads/%s", branch))
	return err
}

// DeleteRemoteBranch force-deletes branch on repoURL.
func (r *Repo) DeleteRemoteBranch(repoURL, branch string) error {
	_, err := r.run("push", "--force", repoURL, fmt.Sprintf(":refs/heads/%s", branch))
	return err
}
