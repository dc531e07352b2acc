package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/readmeai/readmectl/internal/model"
)

// memTokens is an in-memory TokenStore for tests.
type memTokens struct {
	mu     sync.Mutex
	tokens model.AuthTokens
}

func (m *memTokens) Tokens() (model.AuthTokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.tokens, nil
}

func (m *memTokens) SetTokens(t model.AuthTokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = t

	return nil
}

func (m *memTokens) ClearTokens() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = model.AuthTokens{}

	return nil
}

func newTestClient(t *testing.T, handler http.Handler, tokens model.AuthTokens, opts ...Option) (*Client, *memTokens, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := &memTokens{tokens: tokens}

	return New(srv.URL, store, opts...), store, srv
}

func TestLogin_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing status", `{"oauth_url":"https://example.com/oauth"}`},
		{"wrong status", `{"status":"nope","oauth_url":"https://example.com/oauth"}`},
		{"missing oauth_url", `{"status":"oauth_redirect"}`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})

			client, store, _ := newTestClient(t, handler, model.AuthTokens{})

			if _, err := client.Login(context.Background()); err == nil {
				t.Fatal("Login() error = nil, want malformed response error")
			}

			tokens, _ := store.Tokens()
			if tokens.Valid() {
				t.Error("token stored after malformed login response")
			}
		})
	}
}

func TestLogin_OK(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/login" {
			t.Errorf("path = %s, want /api/v1/auth/login", r.URL.Path)
		}

		_ = json.NewEncoder(w).Encode(model.LoginResponse{
			Status:   "oauth_redirect",
			OAuthURL: "https://example.com/oauth/authorize",
		})
	})

	client, _, _ := newTestClient(t, handler, model.AuthTokens{})

	resp, err := client.Login(context.Background())
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if resp.OAuthURL != "https://example.com/oauth/authorize" {
		t.Errorf("OAuthURL = %q", resp.OAuthURL)
	}
}

func TestAuthenticatedCall_AttachesBearer(t *testing.T) {
	var gotAuth string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(model.RepositoryList{})
	})

	client, _, _ := newTestClient(t, handler, model.AuthTokens{AccessToken: "tok-123"})

	if _, err := client.Repositories(context.Background()); err != nil {
		t.Fatalf("Repositories() error = %v", err)
	}

	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want Bearer tok-123", gotAuth)
	}
}

func TestAuthenticatedCall_NoToken(t *testing.T) {
	client, _, _ := newTestClient(t, http.NotFoundHandler(), model.AuthTokens{})

	_, err := client.Repositories(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("error = %v, want ErrNoToken", err)
	}
}

func TestErrorBody_SurfacedVerbatim(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream model unavailable"))
	})

	client, _, _ := newTestClient(t, handler, model.AuthTokens{AccessToken: "tok"})

	_, err := client.Sections(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}

	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Body != "upstream model unavailable" {
		t.Errorf("APIError = %d %q", apiErr.StatusCode, apiErr.Body)
	}
}

func TestUnauthorized_RefreshThenRetryOnce(t *testing.T) {
	var calls []string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path+" "+r.Header.Get("Authorization"))

		switch {
		case r.URL.Path == "/api/v1/auth/refresh":
			_ = json.NewEncoder(w).Encode(model.AuthTokens{AccessToken: "fresh", RefreshToken: "r2"})
		case r.Header.Get("Authorization") == "Bearer stale":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			_ = json.NewEncoder(w).Encode(model.RepositoryList{TotalCount: 1})
		}
	})

	client, store, _ := newTestClient(t, handler,
		model.AuthTokens{AccessToken: "stale", RefreshToken: "r1"})

	out, err := client.Repositories(context.Background())
	if err != nil {
		t.Fatalf("Repositories() error = %v", err)
	}

	if out.TotalCount != 1 {
		t.Errorf("TotalCount = %d, want 1", out.TotalCount)
	}

	want := []string{
		"/api/v1/auth/repositories Bearer stale",
		"/api/v1/auth/refresh ",
		"/api/v1/auth/repositories Bearer fresh",
	}

	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}

	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q", i, calls[i], want[i])
		}
	}

	tokens, _ := store.Tokens()
	if tokens.AccessToken != "fresh" {
		t.Errorf("stored access token = %q, want fresh", tokens.AccessToken)
	}
}

func TestUnauthorized_FailedRefreshForcesLogoutOnce(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/refresh" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("refresh token revoked"))

			return
		}

		w.WriteHeader(http.StatusUnauthorized)
	})

	var logouts int

	client, store, _ := newTestClient(t, handler,
		model.AuthTokens{AccessToken: "stale", RefreshToken: "r1"},
		WithForcedLogoutHook(func(error) { logouts++ }))

	_, err := client.Repositories(context.Background())
	if !IsAuthError(err) {
		t.Fatalf("error = %v, want AuthError", err)
	}

	if logouts != 1 {
		t.Errorf("forced logout hook fired %d times, want 1", logouts)
	}

	tokens, _ := store.Tokens()
	if tokens.Valid() {
		t.Error("tokens not cleared after forced logout")
	}
}

func TestUnauthorized_NoRefreshTokenForcesLogout(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	var logouts int

	client, _, _ := newTestClient(t, handler,
		model.AuthTokens{AccessToken: "stale"},
		WithForcedLogoutHook(func(error) { logouts++ }))

	_, err := client.Repositories(context.Background())
	if !IsAuthError(err) {
		t.Fatalf("error = %v, want AuthError", err)
	}

	if logouts != 1 {
		t.Errorf("forced logout hook fired %d times, want 1", logouts)
	}
}

func TestGenerate_RequiresSections(t *testing.T) {
	client, _, _ := newTestClient(t, http.NotFoundHandler(), model.AuthTokens{AccessToken: "tok"})

	_, err := client.Generate(context.Background(), model.GenerateRequest{
		RepositoryURL: "https://github.com/owner/repo",
	})
	if err == nil {
		t.Fatal("Generate() with no sections: error = nil")
	}
}

func TestBranches_PathAndPayload(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/readme/branches/octocat/hello-world" {
			t.Errorf("path = %s", r.URL.Path)
		}

		_ = json.NewEncoder(w).Encode(model.BranchList{
			Repository: "octocat/hello-world",
			Branches:   []model.Branch{{Name: "main", IsDefault: true}},
			TotalCount: 1,
		})
	})

	client, _, _ := newTestClient(t, handler, model.AuthTokens{AccessToken: "tok"})

	out, err := client.Branches(context.Background(), "https://GitHub.com/octocat/Hello-World/")
	if err != nil {
		t.Fatalf("Branches() error = %v", err)
	}

	if len(out.Branches) != 1 || !out.Branches[0].IsDefault {
		t.Errorf("branches = %+v", out.Branches)
	}
}

func TestCreateBranch_QueryParam(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("branch_name"); got != "docs/readme" {
			t.Errorf("branch_name = %q", got)
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("{}"))
	})

	client, _, _ := newTestClient(t, handler, model.AuthTokens{AccessToken: "tok"})

	branch, err := client.CreateBranch(context.Background(), "https://github.com/octocat/hello-world", "docs/readme")
	if err != nil {
		t.Fatalf("CreateBranch() error = %v", err)
	}

	if branch.Name != "docs/readme" {
		t.Errorf("branch name = %q, want docs/readme", branch.Name)
	}
}
