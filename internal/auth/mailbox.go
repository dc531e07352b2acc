package auth

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/readmeai/readmectl/internal/model"
)

// tokenKeyPlain and tokenKeyJSON are the two key names the login
// completion page may deliver token material under.
const (
	tokenKeyPlain = "access_token"
	tokenKeyJSON  = "authTokens"
)

// Mailbox is the single-slot drop point the login callback writes into and
// the coordinator polls. Last writer wins; Take empties the slot.
type Mailbox struct {
	mu     sync.Mutex
	tokens model.AuthTokens
	filled bool
}

// Deposit stores token material into the slot.
func (m *Mailbox) Deposit(tokens model.AuthTokens) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = tokens
	m.filled = true
}

// Take returns and clears the deposited tokens, if any.
func (m *Mailbox) Take() (model.AuthTokens, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.filled {
		return model.AuthTokens{}, false
	}

	tokens := m.tokens
	m.tokens = model.AuthTokens{}
	m.filled = false

	return tokens, true
}

// Clear empties the slot.
func (m *Mailbox) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = model.AuthTokens{}
	m.filled = false
}

// handleCallback accepts the login completion redirect. Token material may
// arrive as the access_token query/form value (with optional refresh_token
// and expires_in), or as a JSON document under authTokens.
func (m *Mailbox) handleCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)

		return
	}

	var tokens model.AuthTokens

	switch {
	case r.Form.Get(tokenKeyPlain) != "":
		tokens.AccessToken = r.Form.Get(tokenKeyPlain)
		tokens.RefreshToken = r.Form.Get("refresh_token")

		if v := r.Form.Get("expires_in"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				tokens.ExpiresAt = time.Now().Add(time.Duration(secs) * time.Second)
			}
		}

	case r.Form.Get(tokenKeyJSON) != "":
		if err := json.Unmarshal([]byte(r.Form.Get(tokenKeyJSON)), &tokens); err != nil {
			http.Error(w, "bad token payload", http.StatusBadRequest)

			return
		}

	default:
		http.Error(w, "missing token", http.StatusBadRequest)

		return
	}

	if tokens.AccessToken == "" {
		http.Error(w, "missing token", http.StatusBadRequest)

		return
	}

	m.Deposit(tokens)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<html><body><p>Login complete. You can close this window and return to the terminal.</p></body></html>"))
}
