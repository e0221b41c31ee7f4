package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gitops-tools/reconcile-pr-action/internal/annotate"
	"github.com/gitops-tools/reconcile-pr-action/internal/config"
	"github.com/gitops-tools/reconcile-pr-action/internal/identity"
	"github.com/gitops-tools/reconcile-pr-action/internal/orchestrator"
	"github.com/gitops-tools/reconcile-pr-action/internal/prclient"
	"github.com/gitops-tools/reconcile-pr-action/internal/preflight"
	"github.com/gitops-tools/reconcile-pr-action/internal/reconcile"
	"github.com/gitops-tools/reconcile-pr-action/internal/vcs"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile the working tree's changes into a pull request",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return runReconcile(ctx, overridePath)
	},
}

func runReconcile(ctx context.Context, overridePath string) error {
	ann := annotate.New(os.Stdout)

	cfg, err := loadConfig(overridePath)
	if err != nil {
		ann.Error("%s", err)
		return err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			ann.Error("%s", e)
		}
		return fmt.Errorf("%d configuration error(s)", len(errs))
	}

	dir, err := repoDir(cfg)
	if err != nil {
		ann.Error("%s", err)
		return err
	}
	repo := vcs.NewRepo(dir)

	pre, err := preflight.Run(repo, cfg.BranchStem, cfg.BranchSuffix)
	if err != nil {
		ann.Error("preflight check failed: %s", err)
		return err
	}
	ann.Debug("working base %q, target branch %q", pre.WorkingBase, pre.Branch)

	id, err := identity.Resolve(cfg.Committer, cfg.Author, repo)
	if err != nil {
		ann.Error("resolving commit identity: %s", err)
		return err
	}
	repo.ExtraEnv = id.Env()

	owner, name, err := splitRepository(cfg.Repository)
	if err != nil {
		ann.Error("%s", err)
		return err
	}
	ann.Mask(cfg.Token)
	repoURL := remoteURL(owner, name)
	repo.AuthHeader = "Authorization: basic " + prclient.BasicAuthHeader(cfg.Token)

	base := cfg.Base
	if base == "" {
		base = pre.WorkingBase
	}

	result, err := reconcile.Run(repo, reconcile.Options{
		RepoURL:       repoURL,
		CommitMessage: cfg.CommitMessage,
		Base:          base,
		Branch:        pre.Branch,
	})
	if err != nil {
		ann.Error("reconciling branch: %s", err)
		return err
	}
	ann.SetOutput("pull-request-operation", string(result.Action))
	ann.SetOutput("pull-request-branch", pre.Branch)

	prClient, err := prclient.New(ctx, cfg.Token, owner, name, cfg.APIBaseURL)
	if err != nil {
		ann.Error("building GitHub client: %s", err)
		return err
	}

	outcome, err := orchestrator.Publish(ctx, repo, prClient, repoURL, pre.Branch, result, orchestrator.Metadata{
		Title:           cfg.Title,
		Body:            cfg.Body,
		Labels:          cfg.Labels,
		Assignees:       cfg.Assignees,
		Reviewers:       cfg.Reviewers,
		TeamReviewers:   cfg.TeamReviewers,
		Milestone:       cfg.Milestone,
		ProjectName:     cfg.ProjectName,
		ProjectColumn:   cfg.ProjectColumn,
		Draft:           cfg.Draft,
		RequestToParent: cfg.RequestToParent,
	})
	if err != nil {
		ann.Error("publishing branch: %s", err)
		return err
	}

	if outcome.PullRequest != nil {
		number := fmt.Sprintf("%d", outcome.PullRequest.Number)
		ann.SetOutput("pull-request-number", number)
		ann.SetOutput("pr_number", number) // legacy alias, §6
		ann.SetOutput("pull-request-url", outcome.PullRequest.URL)
	}

	fmt.Printf("%s\n", colorize(actionColor(string(result.Action)), fmt.Sprintf("action: %s", result.Action)))
	return nil
}

// splitRepository splits a GITHUB_REPOSITORY-style "owner/name" string.
func splitRepository(repository string) (owner, name string, err error) {
	parts := strings.SplitN(repository, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository %q must be in owner/repo form", repository)
	}
	return parts[0], parts[1], nil
}

// remoteURL builds the plain HTTPS remote URL for owner/name, carrying no
// credentials: authentication travels via repo.AuthHeader (an injected
// http.extraheader) instead, keeping the token out of argv and log output.
func remoteURL(owner, name string) string {
	return fmt.Sprintf("https://github.com/%s/%s.git", owner, name)
}
