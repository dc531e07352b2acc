package agent

import (
	"sync"
	"testing"

	"github.com/readmeai/readmectl/internal/model"
)

func TestHandoff_ConsumeOnce(t *testing.T) {
	var h Handoff

	h.Set(model.Repository{FullName: "octocat/hello-world", HTMLURL: "https://github.com/octocat/hello-world"})

	first, ok := h.Claim()
	if !ok {
		t.Fatal("first Claim() found nothing")
	}

	if first.Repository.FullName != "octocat/hello-world" {
		t.Errorf("claimed %+v", first.Repository)
	}

	if _, ok := h.Claim(); ok {
		t.Error("second Claim() with no intervening Set succeeded")
	}
}

func TestHandoff_LastWriterWins(t *testing.T) {
	var h Handoff

	h.Set(model.Repository{FullName: "octocat/first"})
	h.Set(model.Repository{FullName: "octocat/second"})

	got, ok := h.Claim()
	if !ok {
		t.Fatal("Claim() found nothing")
	}

	if got.Repository.FullName != "octocat/second" {
		t.Errorf("claimed %q, want octocat/second", got.Repository.FullName)
	}
}

func TestHandoff_ConcurrentClaims(t *testing.T) {
	var h Handoff

	h.Set(model.Repository{FullName: "octocat/hello-world"})

	const claimers = 32

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)

	for range claimers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if _, ok := h.Claim(); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if wins != 1 {
		t.Errorf("%d claimers won, want exactly 1", wins)
	}
}

func TestHandoff_Clear(t *testing.T) {
	var h Handoff

	h.Set(model.Repository{FullName: "octocat/hello-world"})
	h.Clear()

	if _, ok := h.Claim(); ok {
		t.Error("Claim() after Clear() succeeded")
	}
}
