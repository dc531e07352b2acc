package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/readmeai/readmectl/internal/agent"
	"github.com/readmeai/readmectl/internal/api"
	"github.com/readmeai/readmectl/internal/auth"
	"github.com/readmeai/readmectl/internal/model"
	"github.com/readmeai/readmectl/internal/store"
)

// nowFunc is replaceable in tests to pin cache freshness decisions.
var nowFunc = time.Now

// staticTokens serves a token that arrived by flag or env. Refreshed
// material is kept in memory only.
type staticTokens struct {
	mu     sync.Mutex
	tokens model.AuthTokens
}

func (s *staticTokens) Tokens() (model.AuthTokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tokens, nil
}

func (s *staticTokens) SetTokens(tokens model.AuthTokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens

	return nil
}

func (s *staticTokens) ClearTokens() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = model.AuthTokens{}

	return nil
}

func openStore() (*store.Store, error) {
	dir, err := store.DefaultDir()
	if err != nil {
		return nil, err
	}

	return store.Open(dir)
}

// backendClient builds an api client backed by the sealed store, unless a
// flag or env token overrides it.
func backendClient(st *store.Store) (*api.Client, auth.TokenSource, error) {
	tokens, source, err := auth.ResolveToken(flagToken, st)

	httpc := &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second}

	switch source {
	case auth.TokenSourceStore:
		return api.New(cfg.APIBaseURL, st, api.WithHTTPClient(httpc)), source, nil
	case auth.TokenSourceNone:
		// Unauthenticated client; endpoints that need auth will say so.
		return api.New(cfg.APIBaseURL, st, api.WithHTTPClient(httpc)), source, err
	default:
		return api.New(cfg.APIBaseURL, &staticTokens{tokens: tokens}, api.WithHTTPClient(httpc)), source, nil
	}
}

// agentIfRunning returns a client for the local agent when one answers
// the health probe.
func agentIfRunning(ctx context.Context) *agent.Client {
	client := agent.NewClient(agent.DiscoverAddress(cfg.AgentPort))

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if !client.Ping(pingCtx) {
		return nil
	}

	return client
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func requireAuth(source auth.TokenSource, err error) error {
	if source == auth.TokenSourceNone {
		return fmt.Errorf("not logged in: %w", err)
	}

	return nil
}
