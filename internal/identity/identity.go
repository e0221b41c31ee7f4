// Package identity resolves the committer and author identity used for the
// engine's single workflow-changes commit, per §4.2.
package identity

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultCommitter and DefaultAuthor are used when neither an explicit input
// nor a complete existing repository identity is available.
const (
	DefaultCommitter = "GitHub <noreply@github.com>"
	DefaultAuthor    = "github-actions[bot] <41898282+github-actions[bot]@users.noreply.github.com>"
)

var displayNameEmailPattern = regexp.MustCompile(`^([^<]+)\s*<([^>]+)>$`)

// Pair is a parsed display-name/email identity.
type Pair struct {
	Name  string
	Email string
}

// Format renders a Pair back into "Name <email>" form.
func (p Pair) Format() string {
	return fmt.Sprintf("%s <%s>", p.Name, p.Email)
}

// Identity is the resolved committer and author pair for a single engine
// invocation.
type Identity struct {
	Committer Pair
	Author    Pair
}

// Env returns the four environment variables git consults for commit
// authorship, suitable for appending to an exec.Cmd's Env.
func (id Identity) Env() []string {
	return []string{
		"GIT_COMMITTER_NAME=" + id.Committer.Name,
		"GIT_COMMITTER_EMAIL=" + id.Committer.Email,
		"GIT_AUTHOR_NAME=" + id.Author.Name,
		"GIT_AUTHOR_EMAIL=" + id.Author.Email,
	}
}

// ParseDisplayNameEmail parses a "Display Name <email@address.com>" string.
// Both the name and email half must be non-whitespace.
func ParseDisplayNameEmail(s string) (Pair, error) {
	m := displayNameEmailPattern.FindStringSubmatch(s)
	if m == nil {
		return Pair{}, fmt.Errorf("%q is not a valid display name and email address", s)
	}
	name := strings.TrimSpace(m[1])
	email := strings.TrimSpace(m[2])
	if name == "" || email == "" {
		return Pair{}, fmt.Errorf("%q is not a valid display name and email address", s)
	}
	return Pair{Name: name, Email: email}, nil
}

// ConfigReader reads existing repository-level git config, used as the
// fallback identity source before DefaultCommitter/DefaultAuthor.
type ConfigReader interface {
	ConfigGet(key string) (string, error)
}

// Resolve chooses the committer and author identity from explicit input
// strings, falling back to existing repository config, then fixed defaults,
// per §4.2 steps 1-4.
func Resolve(committer, author string, cfg ConfigReader) (Identity, error) {
	committer, author = applyCrossFallback(committer, author)

	if committer == "" && author == "" {
		var err error
		committer, author, err = resolveFromRepoConfig(cfg)
		if err != nil {
			return Identity{}, err
		}
	}

	if committer == "" && author == "" {
		committer = DefaultCommitter
		author = DefaultAuthor
	}

	committerPair, err := ParseDisplayNameEmail(committer)
	if err != nil {
		return Identity{}, err
	}
	authorPair, err := ParseDisplayNameEmail(author)
	if err != nil {
		return Identity{}, err
	}

	return Identity{Committer: committerPair, Author: authorPair}, nil
}

// applyCrossFallback implements step 1: when only one of committer/author is
// supplied, the other role uses the same value.
func applyCrossFallback(committer, author string) (string, string) {
	if committer == "" && author != "" {
		return author, author
	}
	if author == "" && committer != "" {
		return committer, committer
	}
	return committer, author
}

// resolveFromRepoConfig implements step 2: use the repository's existing
// user.* identity, or a complete committer.*/author.* pair, without
// overwriting it.
func resolveFromRepoConfig(cfg ConfigReader) (committer, author string, err error) {
	if cfg == nil {
		return "", "", nil
	}

	userName, err := cfg.ConfigGet("user.name")
	if err != nil {
		return "", "", err
	}
	userEmail, err := cfg.ConfigGet("user.email")
	if err != nil {
		return "", "", err
	}
	if userName != "" && userEmail != "" {
		formatted := Pair{Name: userName, Email: userEmail}.Format()
		return formatted, formatted, nil
	}

	committerName, err := cfg.ConfigGet("committer.name")
	if err != nil {
		return "", "", err
	}
	committerEmail, err := cfg.ConfigGet("committer.email")
	if err != nil {
		return "", "", err
	}
	authorName, err := cfg.ConfigGet("author.name")
	if err != nil {
		return "", "", err
	}
	authorEmail, err := cfg.ConfigGet("author.email")
	if err != nil {
		return "", "", err
	}
	if committerName != "" && committerEmail != "" && authorName != "" && authorEmail != "" {
		return Pair{Name: committerName, Email: committerEmail}.Format(),
			Pair{Name: authorName, Email: authorEmail}.Format(), nil
	}

	return "", "", nil
}
