package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-github/v67/github"
)

func githubStub(t *testing.T, handler http.HandlerFunc) *github.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := github.NewClient(nil).WithEnterpriseURLs(srv.URL, srv.URL)
	if err != nil {
		t.Fatalf("build github client: %v", err)
	}

	return client
}

func TestValidateToken_Accepted(t *testing.T) {
	client := githubStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/user" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		_ = json.NewEncoder(w).Encode(map[string]string{"login": "octocat"})
	})

	valid, username, err := validateToken(context.Background(), client)
	if err != nil {
		t.Fatalf("validateToken() error = %v", err)
	}

	if !valid || username != "octocat" {
		t.Errorf("validateToken() = %v, %q; want accepted for octocat", valid, username)
	}
}

func TestValidateToken_Revoked(t *testing.T) {
	client := githubStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	valid, _, err := validateToken(context.Background(), client)
	if err != nil {
		t.Fatalf("validateToken() error = %v", err)
	}

	if valid {
		t.Error("revoked token reported valid")
	}
}
