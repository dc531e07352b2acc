// Package api is the typed HTTP client for the README generation backend.
// All endpoints speak JSON over HTTPS and are bearer-token authenticated
// except login.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/readmeai/readmectl/internal/model"
	"github.com/readmeai/readmectl/internal/repourl"
)

// TokenStore is the client's view of wherever token material lives.
type TokenStore interface {
	Tokens() (model.AuthTokens, error)
	SetTokens(model.AuthTokens) error
	ClearTokens() error
}

// Client calls the backend REST surface.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  TokenStore

	// onForcedLogout runs after a terminal authentication failure, once
	// per failed request chain, after stored tokens are cleared.
	onForcedLogout func(error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpc = hc }
}

// WithForcedLogoutHook registers a callback invoked when a 401 terminates
// the session.
func WithForcedLogoutHook(fn func(error)) Option {
	return func(c *Client) { c.onForcedLogout = fn }
}

// New creates a backend client. baseURL is the server root; the /api/v1
// prefix is added per call.
func New(baseURL string, tokens TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpc:   &http.Client{Timeout: 60 * time.Second},
		tokens:  tokens,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Login fetches the OAuth login URL. The response must carry
// status "oauth_redirect" and a non-empty oauth_url; anything else is
// malformed and the flow must not proceed.
func (c *Client) Login(ctx context.Context) (*model.LoginResponse, error) {
	var out model.LoginResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/login", nil, &out, false); err != nil {
		return nil, err
	}

	if out.Status != "oauth_redirect" {
		return nil, &MalformedResponseError{Operation: "login", Missing: "status"}
	}

	if out.OAuthURL == "" {
		return nil, &MalformedResponseError{Operation: "login", Missing: "oauth_url"}
	}

	return &out, nil
}

// Repositories lists the repositories the authenticated user can access.
func (c *Client) Repositories(ctx context.Context) (*model.RepositoryList, error) {
	var out model.RepositoryList
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/repositories", nil, &out, true); err != nil {
		return nil, err
	}

	return &out, nil
}

// Sections fetches the section templates available for generation.
func (c *Client) Sections(ctx context.Context) ([]model.SectionTemplate, error) {
	var out []model.SectionTemplate
	if err := c.do(ctx, http.MethodGet, "/api/v1/readme/sections", nil, &out, true); err != nil {
		return nil, err
	}

	return out, nil
}

// Generate asks the backend to generate a README for the request.
func (c *Client) Generate(ctx context.Context, req model.GenerateRequest) (*model.GenerateResponse, error) {
	if req.RepositoryURL == "" {
		return nil, errors.New("generate: repository_url is required")
	}

	if len(req.Sections) == 0 {
		return nil, errors.New("generate: at least one section must be selected")
	}

	req.RepositoryURL = repourl.Normalize(req.RepositoryURL)

	var out model.GenerateResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/readme/generate", req, &out, true); err != nil {
		return nil, err
	}

	return &out, nil
}

// Save commits generated content to the chosen branch.
func (c *Client) Save(ctx context.Context, req model.SaveRequest) (*model.SaveResponse, error) {
	if req.Content == "" {
		return nil, errors.New("save: content is empty")
	}

	if req.Path == "" {
		req.Path = "README.md"
	}

	req.RepositoryURL = repourl.Normalize(req.RepositoryURL)

	var out model.SaveResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/readme/save", req, &out, true); err != nil {
		return nil, err
	}

	return &out, nil
}

// Branches lists the branches of the repository behind repoURL.
func (c *Client) Branches(ctx context.Context, repoURL string) (*model.BranchList, error) {
	owner, repo, err := repourl.ExtractOwnerRepo(repoURL)
	if err != nil {
		return nil, fmt.Errorf("branches: %w", err)
	}

	path := fmt.Sprintf("/api/v1/readme/branches/%s/%s", url.PathEscape(owner), url.PathEscape(repo))

	var out model.BranchList
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}

	return &out, nil
}

// CreateBranch creates a new branch on the repository behind repoURL.
func (c *Client) CreateBranch(ctx context.Context, repoURL, branchName string) (*model.Branch, error) {
	if branchName == "" {
		return nil, errors.New("create branch: branch name is required")
	}

	owner, repo, err := repourl.ExtractOwnerRepo(repoURL)
	if err != nil {
		return nil, fmt.Errorf("create branch: %w", err)
	}

	path := fmt.Sprintf("/api/v1/readme/branches/%s/%s?branch_name=%s",
		url.PathEscape(owner), url.PathEscape(repo), url.QueryEscape(branchName))

	var out model.Branch
	if err := c.do(ctx, http.MethodPost, path, nil, &out, true); err != nil {
		return nil, err
	}

	if out.Name == "" {
		out.Name = branchName
	}

	return &out, nil
}

// refresh exchanges the refresh token for fresh token material.
func (c *Client) refresh(ctx context.Context, refreshToken string) (model.AuthTokens, error) {
	body := map[string]string{"refresh_token": refreshToken}

	payload, err := json.Marshal(body)
	if err != nil {
		return model.AuthTokens{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/auth/refresh", bytes.NewReader(payload))
	if err != nil {
		return model.AuthTokens{}, err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return model.AuthTokens{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.AuthTokens{}, readAPIError(resp)
	}

	var tokens model.AuthTokens
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return model.AuthTokens{}, fmt.Errorf("decode refresh response: %w", err)
	}

	if !tokens.Valid() {
		return model.AuthTokens{}, &MalformedResponseError{Operation: "refresh", Missing: "access_token"}
	}

	return tokens, nil
}

// do sends one request and decodes the JSON response into out. For
// authenticated calls a 401 triggers exactly one silent refresh-then-retry
// cycle; a failed refresh (or a second 401) clears stored tokens, fires
// the forced-logout hook once and returns an AuthError.
func (c *Client) do(ctx context.Context, method, path string, in, out any, authed bool) error {
	send := func(token string) (*http.Response, error) {
		var body io.Reader

		if in != nil {
			payload, err := json.Marshal(in)
			if err != nil {
				return nil, fmt.Errorf("marshal request: %w", err)
			}

			body = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		return c.httpc.Do(req)
	}

	var token string

	if authed {
		tokens, err := c.tokens.Tokens()
		if err != nil {
			return fmt.Errorf("read tokens: %w", err)
		}

		if !tokens.Valid() {
			return ErrNoToken
		}

		token = tokens.AccessToken
	}

	resp, err := send(token)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}

	if authed && resp.StatusCode == http.StatusUnauthorized {
		_ = resp.Body.Close()

		retryResp, retryErr := c.retryAfterRefresh(ctx, send)
		if retryErr != nil {
			return retryErr
		}

		resp = retryResp
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(resp)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// retryAfterRefresh performs the single silent refresh cycle. Any failure
// on this path is terminal for the session.
func (c *Client) retryAfterRefresh(ctx context.Context, send func(string) (*http.Response, error)) (*http.Response, error) {
	tokens, err := c.tokens.Tokens()
	if err != nil || tokens.RefreshToken == "" {
		return nil, c.forceLogout(errors.New("session expired"))
	}

	fresh, err := c.refresh(ctx, tokens.RefreshToken)
	if err != nil {
		return nil, c.forceLogout(fmt.Errorf("token refresh failed: %w", err))
	}

	if err := c.tokens.SetTokens(fresh); err != nil {
		return nil, fmt.Errorf("store refreshed tokens: %w", err)
	}

	resp, err := send(fresh.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		_ = resp.Body.Close()

		return nil, c.forceLogout(errors.New("request rejected after token refresh"))
	}

	return resp, nil
}

// forceLogout clears stored tokens and fires the hook, then returns the
// AuthError the caller should surface.
func (c *Client) forceLogout(cause error) error {
	_ = c.tokens.ClearTokens()

	if c.onForcedLogout != nil {
		c.onForcedLogout(cause)
	}

	return &AuthError{Err: cause}
}

// readAPIError drains a non-2xx response into an APIError, body verbatim.
func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 32<<10))

	return &APIError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
