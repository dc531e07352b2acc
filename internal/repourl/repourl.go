// Package repourl normalizes repository page URLs into the canonical form
// the backend expects, and extracts owner/repo pairs for the branch
// endpoints.
package repourl

import (
	"net/url"
	"strings"
)

// Normalize reduces a repository URL to origin+path, lower-cased, with the
// trailing slash and a ".git" suffix stripped. Query strings, fragments and
// userinfo are dropped. Normalize is idempotent: applying it to its own
// output returns the same string. Inputs that do not parse are returned
// lower-cased and trimmed so callers can still use them as cache keys.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return trimRepoSuffix(s)
	}

	result := &url.URL{
		Scheme: u.Scheme,
		Host:   u.Host,
		Path:   trimRepoSuffix(u.Path),
	}

	return result.String()
}

// trimRepoSuffix removes trailing slashes and ".git" suffixes until
// neither remains, so a second Normalize pass has nothing left to strip.
func trimRepoSuffix(s string) string {
	for {
		t := strings.TrimRight(s, "/")
		t = strings.TrimSuffix(t, ".git")

		if t == s {
			return s
		}

		s = t
	}
}

// Simplify strips a repository page URL of anything beyond /owner/repo:
// deep links into trees, pull requests, commit history and the like.
func Simplify(raw string) string {
	s := Normalize(raw)

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return s
	}

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 3)
	if len(parts) <= 2 {
		return s
	}

	u.Path = "/" + strings.Join(parts[:2], "/")

	return u.String()
}

// ExtractOwnerRepo extracts the owner and repository name from a URL.
func ExtractOwnerRepo(raw string) (owner, repo string, err error) {
	u, err := url.Parse(Normalize(raw))
	if err != nil {
		return "", "", err
	}

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &url.Error{Op: "parse", URL: raw, Err: errInvalidPath}
	}

	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// IsRepoURL reports whether the URL looks like a repository page, i.e. it
// has a host and at least an owner/repo path.
func IsRepoURL(raw string) bool {
	_, _, err := ExtractOwnerRepo(raw)
	return err == nil
}

var errInvalidPath = &invalidPathError{}

type invalidPathError struct{}

func (e *invalidPathError) Error() string {
	return "invalid path: expected owner/repo"
}
