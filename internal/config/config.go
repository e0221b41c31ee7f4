// Package config resolves the action's configuration from the environment
// variables of §6, with an optional local YAML override file for running the
// binary outside of an Actions runner.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gitops-tools/reconcile-pr-action/internal/preflight"
)

const (
	defaultBranchStem    = "create-pull-request/patch"
	defaultCommitMessage = "Changes by reconcile-pr-action"
	defaultTitle         = "Changes by reconcile-pr-action"
	defaultBody          = "Automated changes by reconcile-pr-action."
)

// Config is the fully resolved set of inputs for one invocation.
type Config struct {
	Token           string
	Path            string
	BranchStem      string
	BranchSuffix    preflight.Suffix
	CommitMessage   string
	Committer       string
	Author          string
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
	Repository      string
	APIBaseURL      string
}

// override is the shape of the optional local YAML file, for values a
// developer would rather keep out of the environment when running the
// binary by hand. Every field mirrors a CPR_* environment variable and env
// always wins when both are set.
type override struct {
	Token           string   `yaml:"token"`
	Path            string   `yaml:"path"`
	Branch          string   `yaml:"branch"`
	BranchSuffix    string   `yaml:"branch_suffix"`
	CommitMessage   string   `yaml:"commit_message"`
	Committer       string   `yaml:"committer"`
	Author          string   `yaml:"author"`
	Base            string   `yaml:"base"`
	Title           string   `yaml:"title"`
	Body            string   `yaml:"body"`
	Labels          []string `yaml:"labels"`
	Assignees       []string `yaml:"assignees"`
	Reviewers       []string `yaml:"reviewers"`
	TeamReviewers   []string `yaml:"team_reviewers"`
	Milestone       int      `yaml:"milestone"`
	ProjectName     string   `yaml:"project_name"`
	ProjectColumn   string   `yaml:"project_column_name"`
	Draft           bool     `yaml:"draft"`
	RequestToParent bool     `yaml:"request_to_parent"`
}

// LoadOverride reads a local YAML override file. A missing file is not an
// error: it simply means nothing overrides the environment.
func LoadOverride(path string) (*override, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &override{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config override %q: %w", path, err)
	}
	var o override
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing config override %q: %w", path, err)
	}
	return &o, nil
}

// Load resolves Config from the process environment, applying overridePath's
// contents (if it exists) as a fallback for anything the environment leaves
// unset.
func Load(overridePath string) (Config, error) {
	o, err := LoadOverride(overridePath)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Token:           firstNonEmpty(os.Getenv("CPR_TOKEN"), os.Getenv("GITHUB_TOKEN"), o.Token),
		Path:            firstNonEmpty(os.Getenv("CPR_PATH"), o.Path),
		BranchStem:      firstNonEmpty(os.Getenv("CPR_BRANCH"), o.Branch, defaultBranchStem),
		CommitMessage:   firstNonEmpty(os.Getenv("CPR_COMMIT_MESSAGE"), o.CommitMessage, defaultCommitMessage),
		Committer:       firstNonEmpty(os.Getenv("CPR_COMMITTER"), o.Committer),
		Author:          firstNonEmpty(os.Getenv("CPR_AUTHOR"), o.Author),
		Base:            firstNonEmpty(os.Getenv("CPR_BASE"), o.Base),
		Title:           firstNonEmpty(os.Getenv("CPR_TITLE"), o.Title, defaultTitle),
		Body:            firstNonEmpty(os.Getenv("CPR_BODY"), o.Body, defaultBody),
		Labels:          splitList(os.Getenv("CPR_LABELS"), o.Labels),
		Assignees:       splitList(os.Getenv("CPR_ASSIGNEES"), o.Assignees),
		Reviewers:       splitList(os.Getenv("CPR_REVIEWERS"), o.Reviewers),
		TeamReviewers:   splitList(os.Getenv("CPR_TEAM_REVIEWERS"), o.TeamReviewers),
		ProjectName:     firstNonEmpty(os.Getenv("CPR_PROJECT_NAME"), o.ProjectName),
		ProjectColumn:   firstNonEmpty(os.Getenv("CPR_PROJECT_COLUMN_NAME"), o.ProjectColumn),
		Repository:      os.Getenv("GITHUB_REPOSITORY"),
		APIBaseURL:      os.Getenv("GITHUB_API_URL"),
		Draft:           parseBool(os.Getenv("CPR_DRAFT")) || o.Draft,
		RequestToParent: parseBool(os.Getenv("CPR_REQUEST_TO_PARENT")) || o.RequestToParent,
	}

	cfg.BranchSuffix = preflight.Suffix(firstNonEmpty(os.Getenv("CPR_BRANCH_SUFFIX"), o.BranchSuffix))

	milestone := os.Getenv("CPR_MILESTONE")
	if milestone != "" {
		n, err := strconv.Atoi(milestone)
		if err != nil {
			return Config{}, fmt.Errorf("CPR_MILESTONE %q is not an integer: %w", milestone, err)
		}
		cfg.Milestone = n
	} else if o.Milestone != 0 {
		cfg.Milestone = o.Milestone
	}

	return cfg, nil
}

// Validate checks cfg for the mistakes that are cheap to catch before the
// engine ever touches git or the network. It returns every problem found
// rather than stopping at the first.
func Validate(cfg Config) []error {
	var errs []error

	if cfg.Token == "" {
		errs = append(errs, fmt.Errorf("CPR_TOKEN (or GITHUB_TOKEN) is required"))
	}
	if cfg.Repository == "" {
		errs = append(errs, fmt.Errorf("GITHUB_REPOSITORY is required"))
	} else if !strings.Contains(cfg.Repository, "/") {
		errs = append(errs, fmt.Errorf("GITHUB_REPOSITORY %q must be in owner/repo form", cfg.Repository))
	}
	if cfg.BranchStem == "" {
		errs = append(errs, fmt.Errorf("branch stem must not be empty"))
	}

	switch cfg.BranchSuffix {
	case preflight.SuffixNone, preflight.SuffixShortCommitHash, preflight.SuffixTimestamp, preflight.SuffixRandom:
	default:
		errs = append(errs, fmt.Errorf("CPR_BRANCH_SUFFIX %q must be one of %q, %q, %q, or unset",
			cfg.BranchSuffix, preflight.SuffixShortCommitHash, preflight.SuffixTimestamp, preflight.SuffixRandom))
	}

	if (cfg.ProjectName == "") != (cfg.ProjectColumn == "") {
		errs = append(errs, fmt.Errorf("CPR_PROJECT_NAME and CPR_PROJECT_COLUMN_NAME must be set together"))
	}

	if cfg.Milestone < 0 {
		errs = append(errs, fmt.Errorf("CPR_MILESTONE must not be negative"))
	}

	return errs
}

// firstNonEmpty returns the first non-empty string among candidates.
func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// splitList parses a comma-separated list, trimming whitespace and dropping
// empty elements, per §6. env takes priority over override when non-empty.
func splitList(env string, fallback []string) []string {
	if env == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(env, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// trueValues are the case-insensitive boolean-ish strings §6 recognizes as true.
var trueValues = map[string]bool{
	"true": true, "1": true, "t": true, "y": true, "yes": true, "on": true,
}

// parseBool implements §6's boolean parsing: anything not in trueValues,
// including unset, is false.
func parseBool(s string) bool {
	return trueValues[strings.ToLower(strings.TrimSpace(s))]
}
