package model

import (
	"testing"
	"time"
)

func TestAuthTokens_Valid(t *testing.T) {
	tests := []struct {
		name   string
		tokens AuthTokens
		want   bool
	}{
		{"empty", AuthTokens{}, false},
		{"access only", AuthTokens{AccessToken: "tok"}, true},
		{"refresh only", AuthTokens{RefreshToken: "ref"}, false},
		{"expired still valid material", AuthTokens{AccessToken: "tok", ExpiresAt: time.Now().Add(-time.Hour)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tokens.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRepoCache_Fresh(t *testing.T) {
	now := time.Now()
	repos := []Repository{{FullName: "octocat/hello-world"}}

	tests := []struct {
		name  string
		cache RepoCache
		want  bool
	}{
		{"young and populated", RepoCache{Repositories: repos, FetchedAt: now.Add(-time.Minute)}, true},
		{"at the edge", RepoCache{Repositories: repos, FetchedAt: now.Add(-RepoCacheTTL)}, false},
		{"stale", RepoCache{Repositories: repos, FetchedAt: now.Add(-RepoCacheTTL - time.Minute)}, false},
		{"young but empty", RepoCache{FetchedAt: now.Add(-time.Minute)}, false},
		{"never fetched", RepoCache{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cache.Fresh(now); got != tt.want {
				t.Errorf("Fresh() = %v, want %v", got, tt.want)
			}
		})
	}
}
