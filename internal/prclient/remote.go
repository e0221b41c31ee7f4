package prclient

import (
	"encoding/base64"
	"fmt"
	"regexp"
)

// Protocol identifies how a remote URL authenticates.
type Protocol string

const (
	ProtocolHTTPS Protocol = "HTTPS"
	ProtocolSSH   Protocol = "SSH"
)

var (
	httpsRemotePattern = regexp.MustCompile(`^https://(?:[^@/]+@)?github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)
	sshRemotePattern   = regexp.MustCompile(`^git@github\.com:([^/]+)/([^/]+?)(?:\.git)?$`)
)

// RemoteURL is a parsed GitHub remote, tagged with the protocol it was
// expressed in, per §6.
type RemoteURL struct {
	Protocol Protocol
	Owner    string
	Repo     string
}

// ParseRemoteURL recognizes the two GitHub remote URL shapes §6 allows.
// Anything else is a fatal value error.
func ParseRemoteURL(raw string) (RemoteURL, error) {
	if m := httpsRemotePattern.FindStringSubmatch(raw); m != nil {
		return RemoteURL{Protocol: ProtocolHTTPS, Owner: m[1], Repo: m[2]}, nil
	}
	if m := sshRemotePattern.FindStringSubmatch(raw); m != nil {
		return RemoteURL{Protocol: ProtocolSSH, Owner: m[1], Repo: m[2]}, nil
	}
	return RemoteURL{}, fmt.Errorf("%q is not a recognized GitHub remote URL (expected https://github.com/<owner>/<repo> or git@github.com:<owner>/<repo>.git)", raw)
}

// BasicAuthHeader returns the base64-encoded "Authorization: basic ..."
// header value for an HTTPS remote authenticated with token, per §6. The
// caller is responsible for masking the returned value in log output before
// it can leak.
func BasicAuthHeader(token string) string {
	return base64.StdEncoding.EncodeToString([]byte("x-access-token:" + token))
}
