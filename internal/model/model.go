package model

import "time"

// AuthTokens holds the token material issued by the backend after login.
type AuthTokens struct {
	// AccessToken is the bearer token attached to every authenticated call
	AccessToken string `json:"access_token"`

	// RefreshToken, when present, allows one silent refresh on a 401
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresAt is the access token expiry reported by the backend
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Valid reports whether the tokens contain usable token material.
func (t AuthTokens) Valid() bool {
	return t.AccessToken != ""
}

// Repository is a repository the authenticated user can generate a README for.
type Repository struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	HTMLURL     string `json:"html_url"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
}

// RepoCache is the locally cached repository list with its fetch timestamp.
type RepoCache struct {
	Repositories []Repository `json:"repositories"`
	FetchedAt    time.Time    `json:"fetched_at"`
}

// RepoCacheTTL is the freshness window for the cached repository list.
// A cached entry younger than this (and non-empty) skips the refetch.
const RepoCacheTTL = 10 * time.Minute

// Fresh reports whether the cache can serve a read at the given instant.
func (c RepoCache) Fresh(now time.Time) bool {
	return len(c.Repositories) > 0 && now.Sub(c.FetchedAt) < RepoCacheTTL
}

// SectionTemplate is a README section the user can include in a generation.
type SectionTemplate struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsDefault   bool   `json:"is_default"`
	Order       int    `json:"order"`
}

// GenerateRequest is the payload for a README generation call.
type GenerateRequest struct {
	RepositoryURL string   `json:"repository_url"`
	Sections      []string `json:"sections"`
	IncludeBadges bool     `json:"include_badges"`
	BadgeStyle    string   `json:"badge_style,omitempty"`
}

// GenerateResponse is the generated document returned by the backend.
type GenerateResponse struct {
	Content           string   `json:"content"`
	SectionsGenerated []string `json:"sections_generated"`
	EntryID           string   `json:"entry_id"`
}

// SaveRequest commits generated content back to the repository.
type SaveRequest struct {
	RepositoryURL string `json:"repository_url"`
	Content       string `json:"content"`
	Path          string `json:"path"`
	CommitMessage string `json:"commit_message"`
	Branch        string `json:"branch"`
}

// SaveResponse carries the backend's confirmation message.
type SaveResponse struct {
	Message string `json:"message"`
}

// Branch is a repository branch as reported by the backend.
type Branch struct {
	Name      string `json:"name"`
	SHA       string `json:"sha"`
	Protected bool   `json:"protected"`
	IsDefault bool   `json:"is_default"`
}

// BranchList is the response of the branch listing endpoint.
type BranchList struct {
	Repository string   `json:"repository"`
	Branches   []Branch `json:"branches"`
	TotalCount int      `json:"total_count"`
}

// RepositoryList is the response of the repository listing endpoint.
type RepositoryList struct {
	Repositories []Repository `json:"repositories"`
	TotalCount   int          `json:"total_count"`
}

// LoginResponse is the response of the login endpoint. Status must be
// "oauth_redirect" and OAuthURL non-empty; anything else is malformed.
type LoginResponse struct {
	Status   string `json:"status"`
	OAuthURL string `json:"oauth_url"`
}

// UserSession is the metadata kept about the active login.
type UserSession struct {
	Username   string    `json:"username,omitempty"`
	Method     string    `json:"method"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// Login methods recorded in UserSession.
const (
	LoginMethodBrowser = "browser"
	LoginMethodDevice  = "device"
)

// HistoryEntry records one generation session locally.
type HistoryEntry struct {
	EntryID    string    `json:"entry_id"`
	Repository string    `json:"repository"`
	Sections   []string  `json:"sections"`
	CreatedAt  time.Time `json:"created_at"`
	Saved      bool      `json:"saved"`
	Branch     string    `json:"branch,omitempty"`
}
