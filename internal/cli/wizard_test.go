package cli

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/readmeai/readmectl/internal/model"
)

type fakeWizardBackend struct {
	sectionCalls int
	branchCalls  int

	lastGenerate model.GenerateRequest
	lastSave     model.SaveRequest
	lastBranch   string
}

func (f *fakeWizardBackend) Sections(context.Context) ([]model.SectionTemplate, error) {
	f.sectionCalls++

	return []model.SectionTemplate{
		{ID: "overview", Name: "Overview", IsDefault: true, Order: 1},
		{ID: "installation", Name: "Installation", Order: 2},
		{ID: "usage", Name: "Usage", Order: 3},
	}, nil
}

func (f *fakeWizardBackend) Generate(_ context.Context, req model.GenerateRequest) (*model.GenerateResponse, error) {
	f.lastGenerate = req

	return &model.GenerateResponse{
		Content:           "# generated",
		SectionsGenerated: req.Sections,
		EntryID:           "entry-1",
	}, nil
}

func (f *fakeWizardBackend) Save(_ context.Context, req model.SaveRequest) (*model.SaveResponse, error) {
	f.lastSave = req

	return &model.SaveResponse{Message: "committed"}, nil
}

func (f *fakeWizardBackend) Branches(context.Context, string) (*model.BranchList, error) {
	f.branchCalls++

	return &model.BranchList{
		Branches: []model.Branch{
			{Name: "main", IsDefault: true},
			{Name: "develop"},
		},
		TotalCount: 2,
	}, nil
}

func (f *fakeWizardBackend) CreateBranch(_ context.Context, _ string, name string) (*model.Branch, error) {
	f.lastBranch = name

	return &model.Branch{Name: name}, nil
}

func testRepo() model.Repository {
	return model.Repository{
		FullName: "octocat/hello-world",
		HTMLURL:  "https://github.com/octocat/hello-world",
	}
}

func key(t *testing.T, m tea.Model, k tea.KeyMsg) (tea.Model, tea.Cmd) {
	t.Helper()

	return m.Update(k)
}

func runCmd(t *testing.T, m tea.Model, cmd tea.Cmd) tea.Model {
	t.Helper()

	if cmd == nil {
		t.Fatal("expected a command")
	}

	msg := cmd()

	// Loading transitions batch the spinner tick with the request; run
	// every inner command and feed its message through.
	if batch, ok := msg.(tea.BatchMsg); ok {
		next := m

		for _, inner := range batch {
			if inner == nil {
				continue
			}

			next, _ = next.Update(inner())
		}

		return next
	}

	next, _ := m.Update(msg)

	return next
}

// toSelecting drives a fresh wizard to the section selection step.
func toSelecting(t *testing.T) (*WizardModel, *fakeWizardBackend) {
	t.Helper()

	backend := &fakeWizardBackend{}
	w := NewWizard(backend, testRepo(), model.DefaultConfig())

	next := runCmd(t, w, w.loadTemplates)

	wizard, ok := next.(*WizardModel)
	if !ok {
		t.Fatalf("model type changed: %T", next)
	}

	if wizard.state != wizardSelectingSections {
		t.Fatalf("state = %d, want selecting sections", wizard.state)
	}

	return wizard, backend
}

func TestWizard_DefaultsPreselected(t *testing.T) {
	w, _ := toSelecting(t)

	ids := w.selectedIDs()
	if len(ids) != 1 || ids[0] != "overview" {
		t.Errorf("preselected = %v, want the default section only", ids)
	}
}

func TestWizard_ZeroSectionsBlocksGenerate(t *testing.T) {
	w, _ := toSelecting(t)

	// Deselect the one preselected section.
	_, _ = key(t, w, tea.KeyMsg{Type: tea.KeySpace})

	if got := len(w.selectedIDs()); got != 0 {
		t.Fatalf("selected = %d, want 0", got)
	}

	_, cmd := key(t, w, tea.KeyMsg{Type: tea.KeyEnter})

	if cmd != nil {
		t.Error("generate started with zero sections selected")
	}

	if w.state != wizardSelectingSections {
		t.Errorf("state = %d, want still selecting", w.state)
	}
}

func TestWizard_GenerateCarriesSelection(t *testing.T) {
	w, backend := toSelecting(t)

	// Add "installation" to the default selection.
	_, _ = key(t, w, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	_, _ = key(t, w, tea.KeyMsg{Type: tea.KeySpace})

	_, cmd := key(t, w, tea.KeyMsg{Type: tea.KeyEnter})
	if w.state != wizardGenerating {
		t.Fatalf("state = %d, want generating", w.state)
	}

	runCmd(t, w, cmd)

	if w.state != wizardReview {
		t.Fatalf("state = %d, want review", w.state)
	}

	want := []string{"overview", "installation"}
	if len(backend.lastGenerate.Sections) != 2 ||
		backend.lastGenerate.Sections[0] != want[0] ||
		backend.lastGenerate.Sections[1] != want[1] {
		t.Errorf("generate sections = %v, want %v", backend.lastGenerate.Sections, want)
	}

	if !backend.lastGenerate.IncludeBadges {
		t.Error("badges default to on")
	}

	if w.review.Value() != "# generated" {
		t.Errorf("review content = %q", w.review.Value())
	}
}

func TestWizard_LoadingStateIgnoresKeys(t *testing.T) {
	w, _ := toSelecting(t)

	_, _ = key(t, w, tea.KeyMsg{Type: tea.KeyEnter})

	if w.state != wizardGenerating {
		t.Fatalf("state = %d, want generating", w.state)
	}

	// A second enter while the request is in flight must not start
	// anything.
	_, cmd := key(t, w, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("key in loading state produced a command")
	}

	if w.state != wizardGenerating {
		t.Errorf("state = %d, want still generating", w.state)
	}
}

// toBranchSelection drives the wizard through generation to the branch
// list.
func toBranchSelection(t *testing.T) (*WizardModel, *fakeWizardBackend) {
	t.Helper()

	w, backend := toSelecting(t)

	_, cmd := key(t, w, tea.KeyMsg{Type: tea.KeyEnter})
	runCmd(t, w, cmd)

	_, cmd = key(t, w, tea.KeyMsg{Type: tea.KeyCtrlS})
	if w.state != wizardLoadingBranches {
		t.Fatalf("state = %d, want loading branches", w.state)
	}

	runCmd(t, w, cmd)

	if w.state != wizardSelectingBranch {
		t.Fatalf("state = %d, want selecting branch", w.state)
	}

	return w, backend
}

func TestWizard_BranchListCachedUntilRefresh(t *testing.T) {
	w, backend := toBranchSelection(t)

	if backend.branchCalls != 1 {
		t.Fatalf("branch fetches = %d, want 1", backend.branchCalls)
	}

	// Step back to review, then forward again: served from the kept
	// list, no refetch.
	_, _ = key(t, w, tea.KeyMsg{Type: tea.KeyEsc})

	if w.state != wizardReview {
		t.Fatalf("state = %d, want review", w.state)
	}

	_, cmd := key(t, w, tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd != nil {
		t.Error("cached branch list refetched")
	}

	if w.state != wizardSelectingBranch {
		t.Fatalf("state = %d, want selecting branch", w.state)
	}

	if backend.branchCalls != 1 {
		t.Errorf("branch fetches = %d, want still 1", backend.branchCalls)
	}

	// Forced refresh is the one path that refetches.
	_, cmd = key(t, w, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	runCmd(t, w, cmd)

	if backend.branchCalls != 2 {
		t.Errorf("branch fetches after refresh = %d, want 2", backend.branchCalls)
	}
}

func TestWizard_DefaultBranchPreselected(t *testing.T) {
	w, _ := toBranchSelection(t)

	if got := w.branches.Branches[w.branchCursor].Name; got != "main" {
		t.Errorf("preselected branch = %q, want main", got)
	}
}

func TestWizard_SaveUsesDefaultsWhenCommitMessageEmpty(t *testing.T) {
	w, backend := toBranchSelection(t)

	_, _ = key(t, w, tea.KeyMsg{Type: tea.KeyEnter})

	if w.state != wizardCommitMessage {
		t.Fatalf("state = %d, want commit message", w.state)
	}

	_, cmd := key(t, w, tea.KeyMsg{Type: tea.KeyEnter})
	if w.state != wizardSaving {
		t.Fatalf("state = %d, want saving", w.state)
	}

	runCmd(t, w, cmd)

	if w.state != wizardDone {
		t.Fatalf("state = %d, want done", w.state)
	}

	cfg := model.DefaultConfig()

	if backend.lastSave.CommitMessage != cfg.DefaultCommitMessage {
		t.Errorf("commit message = %q, want default", backend.lastSave.CommitMessage)
	}

	if backend.lastSave.Path != cfg.ReadmePath {
		t.Errorf("path = %q, want %q", backend.lastSave.Path, cfg.ReadmePath)
	}

	if backend.lastSave.Branch != "main" {
		t.Errorf("branch = %q, want main", backend.lastSave.Branch)
	}

	if !w.Saved {
		t.Error("Saved flag not set")
	}
}

func TestWizard_CreateBranchInvalidatesList(t *testing.T) {
	w, backend := toBranchSelection(t)

	_, _ = key(t, w, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})

	if w.state != wizardNamingBranch {
		t.Fatalf("state = %d, want naming branch", w.state)
	}

	w.branchInput.SetValue("docs/readme")

	_, cmd := key(t, w, tea.KeyMsg{Type: tea.KeyEnter})
	runCmd(t, w, cmd)

	if backend.lastBranch != "docs/readme" {
		t.Errorf("created branch = %q", backend.lastBranch)
	}

	if w.branch != "docs/readme" {
		t.Errorf("selected branch = %q", w.branch)
	}

	if w.branches != nil {
		t.Error("branch list kept after remote create; must refetch next visit")
	}

	if w.state != wizardCommitMessage {
		t.Errorf("state = %d, want commit message", w.state)
	}
}

func TestWizard_DoneViewShowsBranch(t *testing.T) {
	w, _ := toBranchSelection(t)

	_, _ = key(t, w, tea.KeyMsg{Type: tea.KeyEnter})
	_, cmd := key(t, w, tea.KeyMsg{Type: tea.KeyEnter})
	runCmd(t, w, cmd)

	if w.state != wizardDone {
		t.Fatalf("state = %d, want done", w.state)
	}

	if view := w.View(); !strings.Contains(view, "branch: main") {
		t.Errorf("done view does not show the target branch:\n%s", view)
	}
}

func TestWizard_StartOverResetsSelection(t *testing.T) {
	w, backend := toBranchSelection(t)

	_, _ = key(t, w, tea.KeyMsg{Type: tea.KeyEnter})
	w.commitInput.SetValue("docs: refresh readme")
	_, cmd := key(t, w, tea.KeyMsg{Type: tea.KeyEnter})
	runCmd(t, w, cmd)

	if w.state != wizardDone {
		t.Fatalf("state = %d, want done", w.state)
	}

	_, _ = key(t, w, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})

	if w.state != wizardSelectingSections {
		t.Fatalf("state = %d, want selecting sections", w.state)
	}

	ids := w.selectedIDs()
	if len(ids) != 1 || ids[0] != "overview" {
		t.Errorf("selection after start over = %v, want defaults", ids)
	}

	if w.Saved {
		t.Error("Saved flag survived start over")
	}

	if w.branch != "" || w.EntryID != "" {
		t.Errorf("branch %q / entry %q survived start over", w.branch, w.EntryID)
	}

	if w.commitInput.Value() != "" || w.review.Value() != "" {
		t.Error("commit message or review draft survived start over")
	}

	// Templates were fetched exactly once for the whole session.
	if backend.sectionCalls != 1 {
		t.Errorf("template fetches = %d, want 1", backend.sectionCalls)
	}
}
