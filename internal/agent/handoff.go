package agent

import (
	"sync"
	"time"

	"github.com/readmeai/readmectl/internal/model"
)

// PendingRepo is the repository stashed for the next wizard session.
type PendingRepo struct {
	Repository model.Repository `json:"repository"`
	SetAt      time.Time        `json:"set_at"`
}

// Handoff is the single-slot, consume-once transfer of a chosen repository
// between agent clients. Set replaces any unclaimed value (last writer
// wins); Claim delivers the value at most once. The claimed flag makes the
// consume-once contract hold under concurrent callers.
type Handoff struct {
	mu      sync.Mutex
	pending PendingRepo
	set     bool
}

// Set stashes a repository, replacing any unclaimed one.
func (h *Handoff) Set(repo model.Repository) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = PendingRepo{Repository: repo, SetAt: time.Now()}
	h.set = true
}

// Claim returns the pending repository and marks it consumed. A second
// Claim with no intervening Set reports false.
func (h *Handoff) Claim() (PendingRepo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.set {
		return PendingRepo{}, false
	}

	pending := h.pending
	h.pending = PendingRepo{}
	h.set = false

	return pending, true
}

// Clear drops any unclaimed repository.
func (h *Handoff) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = PendingRepo{}
	h.set = false
}
