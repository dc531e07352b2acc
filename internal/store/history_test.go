package store

import (
	"context"
	"testing"
	"time"

	"github.com/readmeai/readmectl/internal/model"
)

func setupTestHistory(t *testing.T) *History {
	t.Helper()

	h, err := OpenHistory(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("failed to open history: %v", err)
	}

	t.Cleanup(func() { _ = h.Close() })

	return h
}

func TestHistory_RecordAndList(t *testing.T) {
	h := setupTestHistory(t)
	ctx := context.Background()

	entries := []model.HistoryEntry{
		{
			EntryID:    "e1",
			Repository: "https://github.com/octocat/hello-world",
			Sections:   []string{"overview", "installation"},
			CreatedAt:  time.Now().Add(-time.Hour),
		},
		{
			EntryID:    "e2",
			Repository: "https://github.com/octocat/spoon-knife",
			Sections:   []string{"usage"},
			CreatedAt:  time.Now(),
		},
	}

	for _, e := range entries {
		if err := h.Record(ctx, e); err != nil {
			t.Fatalf("Record(%s) error = %v", e.EntryID, err)
		}
	}

	got, err := h.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("List() returned %d entries, want 2", len(got))
	}

	// Newest first.
	if got[0].EntryID != "e2" || got[1].EntryID != "e1" {
		t.Errorf("List() order = %s, %s; want e2, e1", got[0].EntryID, got[1].EntryID)
	}

	if len(got[1].Sections) != 2 || got[1].Sections[0] != "overview" {
		t.Errorf("sections = %v", got[1].Sections)
	}
}

func TestHistory_MarkSaved(t *testing.T) {
	h := setupTestHistory(t)
	ctx := context.Background()

	if err := h.Record(ctx, model.HistoryEntry{
		EntryID:    "e1",
		Repository: "https://github.com/octocat/hello-world",
		Sections:   []string{"overview"},
	}); err != nil {
		t.Fatal(err)
	}

	if err := h.MarkSaved(ctx, "e1", "main"); err != nil {
		t.Fatalf("MarkSaved() error = %v", err)
	}

	got, err := h.List(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}

	if !got[0].Saved || got[0].Branch != "main" {
		t.Errorf("entry = %+v, want saved on main", got[0])
	}
}

func TestHistory_MarkSaved_Missing(t *testing.T) {
	h := setupTestHistory(t)

	if err := h.MarkSaved(context.Background(), "nope", "main"); err == nil {
		t.Error("MarkSaved() on missing entry: error = nil")
	}
}

func TestHistory_List_Limit(t *testing.T) {
	h := setupTestHistory(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		if err := h.Record(ctx, model.HistoryEntry{
			EntryID:    id,
			Repository: "https://github.com/octocat/hello-world",
			Sections:   []string{"overview"},
			CreatedAt:  time.Now().Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := h.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 2 {
		t.Errorf("List(2) returned %d entries", len(got))
	}
}
