// Package auth coordinates the login handshake with the backend and
// resolves token material from the places it may already live.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/readmeai/readmectl/internal/model"
)

var (
	// ErrCancelled is returned when the user abandons the login flow
	// before it completes. It is a cancellation, not a failure.
	ErrCancelled = errors.New("login cancelled")

	// ErrTimeout is returned when the overall handshake ceiling expires.
	ErrTimeout = errors.New("login timed out waiting for the browser handshake")
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultTimeout      = 3 * time.Minute
)

// LoginURLFetcher obtains the OAuth login URL from the backend.
type LoginURLFetcher interface {
	Login(ctx context.Context) (*model.LoginResponse, error)
}

// Coordinator runs the browser login handshake: fetch the login URL, open
// the browser with a loopback redirect, poll the callback mailbox at a
// fixed interval, and settle on exactly one of three outcomes: resolved
// with tokens, cancelled by the caller, or timed out at the hard ceiling.
// All listeners and transient state are torn down on every exit path.
type Coordinator struct {
	backend      LoginURLFetcher
	openBrowser  func(url string) error
	pollInterval time.Duration
	timeout      time.Duration

	// OnLoginURL, when set, receives the URL handed to the browser so
	// callers can print it as a fallback.
	OnLoginURL func(url string)
}

// NewCoordinator creates a coordinator with production defaults.
func NewCoordinator(backend LoginURLFetcher) *Coordinator {
	return &Coordinator{
		backend:      backend,
		openBrowser:  openBrowser,
		pollInterval: defaultPollInterval,
		timeout:      defaultTimeout,
	}
}

// SetBrowserOpener overrides how the login URL is opened. Tests use this
// to drive the handshake without a browser.
func (c *Coordinator) SetBrowserOpener(fn func(url string) error) {
	c.openBrowser = fn
}

// SetTimings overrides the poll interval and the overall ceiling so tests
// can simulate time deterministically.
func (c *Coordinator) SetTimings(pollInterval, timeout time.Duration) {
	if pollInterval > 0 {
		c.pollInterval = pollInterval
	}

	if timeout > 0 {
		c.timeout = timeout
	}
}

// Run executes the handshake and returns the tokens on success. A
// malformed login response aborts before anything is opened or stored.
func (c *Coordinator) Run(ctx context.Context) (model.AuthTokens, error) {
	login, err := c.backend.Login(ctx)
	if err != nil {
		return model.AuthTokens{}, err
	}

	mailbox := &Mailbox{}
	defer mailbox.Clear()

	callbackURL, shutdown, err := c.serveCallback(mailbox)
	if err != nil {
		return model.AuthTokens{}, err
	}
	defer shutdown()

	loginURL, err := withRedirect(login.OAuthURL, callbackURL)
	if err != nil {
		return model.AuthTokens{}, fmt.Errorf("build login url: %w", err)
	}

	if c.OnLoginURL != nil {
		c.OnLoginURL(loginURL)
	}

	if err := c.openBrowser(loginURL); err != nil {
		// The URL was surfaced to the caller; keep waiting so the user
		// can open it by hand.
		log.Printf("auth: failed to open browser: %v", err)
	}

	return c.waitForToken(ctx, mailbox)
}

// waitForToken polls the mailbox until one of the three terminal outcomes
// wins. Exactly one outcome is ever returned.
func (c *Coordinator) waitForToken(ctx context.Context, mailbox *Mailbox) (model.AuthTokens, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(c.timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return model.AuthTokens{}, ErrCancelled

		case <-deadline.C:
			return model.AuthTokens{}, ErrTimeout

		case <-ticker.C:
			if tokens, ok := mailbox.Take(); ok {
				return tokens, nil
			}
		}
	}
}

// serveCallback starts the loopback callback server on an ephemeral port.
func (c *Coordinator) serveCallback(mailbox *Mailbox) (callbackURL string, shutdown func(), err error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("start callback listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/complete", mailbox.handleCallback)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("auth: callback server error: %v", err)
		}
	}()

	shutdown = func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}

	return fmt.Sprintf("http://%s/auth/complete", listener.Addr()), shutdown, nil
}

// withRedirect appends the loopback redirect target to the backend's
// login URL.
func withRedirect(oauthURL, callbackURL string) (string, error) {
	u, err := url.Parse(oauthURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("redirect_uri", callbackURL)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// openBrowser opens the default browser to the given URL.
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
