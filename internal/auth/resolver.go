package auth

import (
	"errors"
	"fmt"
	"os"

	"github.com/cli/go-gh/v2/pkg/auth"
	"github.com/readmeai/readmectl/internal/model"
)

// ErrNoCredentials marks the terminal resolver failure: no token in any
// source.
var ErrNoCredentials = errors.New("no credentials found")

// TokenSource indicates where a token was found.
type TokenSource string

const (
	TokenSourceFlag  TokenSource = "flag"
	TokenSourceEnv   TokenSource = "README_AI_TOKEN"
	TokenSourceStore TokenSource = "store"
	TokenSourceGHCLI TokenSource = "gh-cli"
	TokenSourceNone  TokenSource = "none"
)

// TokenReader is the resolver's view of the sealed store.
type TokenReader interface {
	Tokens() (model.AuthTokens, error)
}

// ResolveToken finds usable token material.
// Priority order:
//  1. flagToken (explicit --token flag)
//  2. README_AI_TOKEN environment variable
//  3. the sealed local store (populated by login)
//  4. gh CLI auth for github.com, usable against the GitHub-proxying
//     endpoints
func ResolveToken(flagToken string, store TokenReader) (model.AuthTokens, TokenSource, error) {
	if flagToken != "" {
		return model.AuthTokens{AccessToken: flagToken}, TokenSourceFlag, nil
	}

	if env := os.Getenv("README_AI_TOKEN"); env != "" {
		return model.AuthTokens{AccessToken: env}, TokenSourceEnv, nil
	}

	if store != nil {
		tokens, err := store.Tokens()
		if err == nil && tokens.Valid() {
			return tokens, TokenSourceStore, nil
		}
	}

	if token, _ := auth.TokenForHost("github.com"); token != "" {
		return model.AuthTokens{AccessToken: token}, TokenSourceGHCLI, nil
	}

	return model.AuthTokens{}, TokenSourceNone, fmt.Errorf(`%w

Provide a token via one of:
  * readmectl login           (recommended - browser handshake)
  * readmectl login --device  (GitHub device flow)
  * gh auth login             (auto-detected from gh CLI)
  * README_AI_TOKEN env var
  * --token flag`, ErrNoCredentials)
}
