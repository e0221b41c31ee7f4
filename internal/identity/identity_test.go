package identity

import (
	"errors"
	"testing"
)

func TestParseDisplayNameEmail(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantPair  Pair
		wantError bool
	}{
		{
			name:     "simple",
			input:    "GitHub <noreply@github.com>",
			wantPair: Pair{Name: "GitHub", Email: "noreply@github.com"},
		},
		{
			name:     "no space before bracket",
			input:    "GitHub<noreply@github.com>",
			wantPair: Pair{Name: "GitHub", Email: "noreply@github.com"},
		},
		{
			name:     "multi-word name",
			input:    "Release Bot <release-bot@example.com>",
			wantPair: Pair{Name: "Release Bot", Email: "release-bot@example.com"},
		},
		{name: "missing email", input: "GitHub", wantError: true},
		{name: "whitespace-only name", input: " <a@b.com>", wantError: true},
		{name: "whitespace-only email", input: "Name < >", wantError: true},
		{name: "empty string", input: "", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDisplayNameEmail(tt.input)
			if tt.wantError {
				if err == nil {
					t.Fatalf("ParseDisplayNameEmail(%q) error = nil, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDisplayNameEmail(%q) error = %v", tt.input, err)
			}
			if got != tt.wantPair {
				t.Errorf("ParseDisplayNameEmail(%q) = %+v, want %+v", tt.input, got, tt.wantPair)
			}
		})
	}
}

func TestParseDisplayNameEmailRoundTrip(t *testing.T) {
	pairs := []Pair{
		{Name: "GitHub", Email: "noreply@github.com"},
		{Name: "A B C", Email: "a.b.c@example.org"},
	}
	for _, p := range pairs {
		got, err := ParseDisplayNameEmail(p.Format())
		if err != nil {
			t.Fatalf("ParseDisplayNameEmail(%q) error = %v", p.Format(), err)
		}
		if got != p {
			t.Errorf("round trip %+v -> %q -> %+v, want back to original", p, p.Format(), got)
		}
	}
}

type fakeConfigReader map[string]string

func (f fakeConfigReader) ConfigGet(key string) (string, error) {
	return f[key], nil
}

type erroringConfigReader struct{}

func (erroringConfigReader) ConfigGet(key string) (string, error) {
	return "", errors.New("config read failed")
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name          string
		committer     string
		author        string
		cfg           ConfigReader
		wantCommitter Pair
		wantAuthor    Pair
		wantError     bool
	}{
		{
			name:          "both explicit",
			committer:     "Alice <alice@example.com>",
			author:        "Bob <bob@example.com>",
			wantCommitter: Pair{Name: "Alice", Email: "alice@example.com"},
			wantAuthor:    Pair{Name: "Bob", Email: "bob@example.com"},
		},
		{
			name:          "author only, used for both",
			author:        "Bob <bob@example.com>",
			wantCommitter: Pair{Name: "Bob", Email: "bob@example.com"},
			wantAuthor:    Pair{Name: "Bob", Email: "bob@example.com"},
		},
		{
			name:          "committer only, used for both",
			committer:     "Alice <alice@example.com>",
			wantCommitter: Pair{Name: "Alice", Email: "alice@example.com"},
			wantAuthor:    Pair{Name: "Alice", Email: "alice@example.com"},
		},
		{
			name: "falls back to repo user.* config",
			cfg: fakeConfigReader{
				"user.name":  "Repo User",
				"user.email": "repo-user@example.com",
			},
			wantCommitter: Pair{Name: "Repo User", Email: "repo-user@example.com"},
			wantAuthor:    Pair{Name: "Repo User", Email: "repo-user@example.com"},
		},
		{
			name: "falls back to complete committer/author config",
			cfg: fakeConfigReader{
				"committer.name":  "C Name",
				"committer.email": "c@example.com",
				"author.name":     "A Name",
				"author.email":    "a@example.com",
			},
			wantCommitter: Pair{Name: "C Name", Email: "c@example.com"},
			wantAuthor:    Pair{Name: "A Name", Email: "a@example.com"},
		},
		{
			name: "incomplete committer/author config falls through to defaults",
			cfg: fakeConfigReader{
				"committer.name": "C Name only, no email",
			},
			wantCommitter: Pair{Name: "GitHub", Email: "noreply@github.com"},
			wantAuthor:    Pair{Name: "github-actions[bot]", Email: "41898282+github-actions[bot]@users.noreply.github.com"},
		},
		{
			name:          "no input and no config uses fixed defaults",
			wantCommitter: Pair{Name: "GitHub", Email: "noreply@github.com"},
			wantAuthor:    Pair{Name: "github-actions[bot]", Email: "41898282+github-actions[bot]@users.noreply.github.com"},
		},
		{
			name:      "malformed explicit committer is fatal",
			committer: "not-a-valid-identity",
			wantError: true,
		},
		{
			name:      "config read error propagates",
			cfg:       erroringConfigReader{},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.committer, tt.author, tt.cfg)
			if tt.wantError {
				if err == nil {
					t.Fatalf("Resolve() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got.Committer != tt.wantCommitter {
				t.Errorf("Resolve() committer = %+v, want %+v", got.Committer, tt.wantCommitter)
			}
			if got.Author != tt.wantAuthor {
				t.Errorf("Resolve() author = %+v, want %+v", got.Author, tt.wantAuthor)
			}
		})
	}
}

func TestIdentityEnv(t *testing.T) {
	id := Identity{
		Committer: Pair{Name: "C", Email: "c@example.com"},
		Author:    Pair{Name: "A", Email: "a@example.com"},
	}
	env := id.Env()
	want := []string{
		"GIT_COMMITTER_NAME=C",
		"GIT_COMMITTER_EMAIL=c@example.com",
		"GIT_AUTHOR_NAME=A",
		"GIT_AUTHOR_EMAIL=a@example.com",
	}
	if len(env) != len(want) {
		t.Fatalf("Env() length = %d, want %d", len(env), len(want))
	}
	for i := range want {
		if env[i] != want[i] {
			t.Errorf("Env()[%d] = %q, want %q", i, env[i], want[i])
		}
	}
}
