package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cli/oauth"
	"github.com/google/go-github/v67/github"
	"golang.org/x/oauth2"

	"github.com/readmeai/readmectl/internal/model"
)

// DeviceFlowScopes are the scopes requested for a device-flow login. The
// backend commits through the user's token, so repo access is required.
func DeviceFlowScopes() []string {
	return []string{"repo", "read:user"}
}

// DeviceFlowResult is the outcome of a device-flow login.
type DeviceFlowResult struct {
	Tokens   model.AuthTokens
	Username string
}

// DeviceFlow runs the GitHub device flow as an alternative to the browser
// handshake, for headless environments where no local browser exists.
type DeviceFlow struct {
	scopes       []string
	onDeviceCode func(code, verificationURL string)
}

// NewDeviceFlow creates a device flow for github.com.
func NewDeviceFlow(scopes []string) *DeviceFlow {
	if len(scopes) == 0 {
		scopes = DeviceFlowScopes()
	}

	return &DeviceFlow{scopes: scopes}
}

// OnDeviceCode sets the callback invoked with the one-time code the user
// must enter at the verification URL.
func (f *DeviceFlow) OnDeviceCode(callback func(code, verificationURL string)) {
	f.onDeviceCode = callback
}

// Run executes the device flow and returns the token plus the resolved
// username.
func (f *DeviceFlow) Run(ctx context.Context) (*DeviceFlowResult, error) {
	host, err := oauth.NewGitHubHost("https://github.com")
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub host: %w", err)
	}

	flow := &oauth.Flow{
		Host:   host,
		Scopes: f.scopes,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	if f.onDeviceCode != nil {
		flow.DisplayCode = func(code, verificationURL string) error {
			f.onDeviceCode(code, verificationURL)

			return nil
		}
	}

	accessToken, err := flow.DetectFlow()
	if err != nil {
		return nil, fmt.Errorf("device flow failed: %w", err)
	}

	username, err := usernameForToken(ctx, accessToken.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve username: %w", err)
	}

	return &DeviceFlowResult{
		Tokens:   model.AuthTokens{AccessToken: accessToken.Token},
		Username: username,
	}, nil
}

// githubClient builds a go-github client authenticated with token.
func githubClient(ctx context.Context, token string) *github.Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})

	return github.NewClient(oauth2.NewClient(ctx, source))
}

// usernameForToken fetches the authenticated user's login name.
func usernameForToken(ctx context.Context, token string) (string, error) {
	user, _, err := githubClient(ctx, token).Users.Get(ctx, "")
	if err != nil {
		return "", err
	}

	return user.GetLogin(), nil
}

// ValidateToken checks whether a token is still accepted by GitHub.
func ValidateToken(ctx context.Context, token string) (bool, string, error) {
	return validateToken(ctx, githubClient(ctx, token))
}

func validateToken(ctx context.Context, client *github.Client) (bool, string, error) {
	user, resp, err := client.Users.Get(ctx, "")
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return false, "", nil
		}

		return false, "", fmt.Errorf("token validation failed: %w", err)
	}

	return true, user.GetLogin(), nil
}
