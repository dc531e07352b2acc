package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/readmeai/readmectl/internal/model"
)

// WizardBackend is the slice of the backend API the wizard needs.
type WizardBackend interface {
	Sections(ctx context.Context) ([]model.SectionTemplate, error)
	Generate(ctx context.Context, req model.GenerateRequest) (*model.GenerateResponse, error)
	Save(ctx context.Context, req model.SaveRequest) (*model.SaveResponse, error)
	Branches(ctx context.Context, repoURL string) (*model.BranchList, error)
	CreateBranch(ctx context.Context, repoURL, name string) (*model.Branch, error)
}

// wizardState names each step of the generation flow. Every network call
// runs in exactly one loading state, so a second request cannot start
// while one is in flight.
type wizardState int

const (
	wizardLoadingTemplates wizardState = iota
	wizardSelectingSections
	wizardGenerating
	wizardReview
	wizardLoadingBranches
	wizardSelectingBranch
	wizardNamingBranch
	wizardCreatingBranch
	wizardCommitMessage
	wizardSaving
	wizardDone
	wizardFailed
)

var (
	wizardTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	checkedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	cursorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	errStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	successStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

type templatesMsg struct {
	sections []model.SectionTemplate
	err      error
}

type generatedMsg struct {
	resp *model.GenerateResponse
	err  error
}

type branchesMsg struct {
	list *model.BranchList
	err  error
}

type branchCreatedMsg struct {
	branch *model.Branch
	err    error
}

type savedMsg struct {
	resp *model.SaveResponse
	err  error
}

// WizardModel walks the user from section selection to a committed README.
type WizardModel struct {
	backend WizardBackend
	repo    model.Repository
	cfg     model.Config

	state wizardState

	// section selection
	sections []model.SectionTemplate
	selected map[string]bool
	cursor   int
	badges   bool

	// generation result
	generated *model.GenerateResponse
	review    textarea.Model

	// branch selection; the list is kept until the user asks for a
	// refresh so stepping back does not refetch
	branches     *model.BranchList
	branchCursor int
	branch       string
	branchInput  textinput.Model

	// commit
	commitInput textinput.Model
	savedMsg    string

	spinner spinner.Model
	err     error

	// EntryID of the last generation, for local history bookkeeping.
	EntryID string
	// Saved reports whether a commit went through.
	Saved bool
}

// NewWizard builds the wizard for one repository.
func NewWizard(backend WizardBackend, repo model.Repository, cfg model.Config) *WizardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	branchInput := textinput.New()
	branchInput.Placeholder = "docs/readme"
	branchInput.CharLimit = 120

	commitInput := textinput.New()
	commitInput.Placeholder = cfg.DefaultCommitMessage
	commitInput.CharLimit = 200

	review := textarea.New()
	review.CharLimit = 0

	return &WizardModel{
		backend:     backend,
		repo:        repo,
		cfg:         cfg,
		state:       wizardLoadingTemplates,
		selected:    map[string]bool{},
		badges:      true,
		spinner:     s,
		branchInput: branchInput,
		commitInput: commitInput,
		review:      review,
	}
}

func (m *WizardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadTemplates)
}

func (m *WizardModel) loadTemplates() tea.Msg {
	sections, err := m.backend.Sections(context.Background())

	return templatesMsg{sections: sections, err: err}
}

func (m *WizardModel) generate() tea.Cmd {
	req := model.GenerateRequest{
		RepositoryURL: m.repo.HTMLURL,
		Sections:      m.selectedIDs(),
		IncludeBadges: m.badges,
		BadgeStyle:    m.cfg.BadgeStyle,
	}

	return func() tea.Msg {
		resp, err := m.backend.Generate(context.Background(), req)

		return generatedMsg{resp: resp, err: err}
	}
}

func (m *WizardModel) loadBranches() tea.Msg {
	list, err := m.backend.Branches(context.Background(), m.repo.HTMLURL)

	return branchesMsg{list: list, err: err}
}

func (m *WizardModel) createBranch(name string) tea.Cmd {
	return func() tea.Msg {
		branch, err := m.backend.CreateBranch(context.Background(), m.repo.HTMLURL, name)

		return branchCreatedMsg{branch: branch, err: err}
	}
}

func (m *WizardModel) save() tea.Cmd {
	message := strings.TrimSpace(m.commitInput.Value())
	if message == "" {
		message = m.cfg.DefaultCommitMessage
	}

	req := model.SaveRequest{
		RepositoryURL: m.repo.HTMLURL,
		Content:       m.review.Value(),
		Path:          m.cfg.ReadmePath,
		CommitMessage: message,
		Branch:        m.branch,
	}

	return func() tea.Msg {
		resp, err := m.backend.Save(context.Background(), req)

		return savedMsg{resp: resp, err: err}
	}
}

func (m *WizardModel) selectedIDs() []string {
	var ids []string

	for _, s := range m.sections {
		if m.selected[s.ID] {
			ids = append(ids, s.ID)
		}
	}

	return ids
}

func (m *WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd

		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case templatesMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}

		m.sections = msg.sections
		sort.SliceStable(m.sections, func(i, j int) bool {
			return m.sections[i].Order < m.sections[j].Order
		})

		for _, s := range m.sections {
			if s.IsDefault {
				m.selected[s.ID] = true
			}
		}

		m.state = wizardSelectingSections

		return m, nil

	case generatedMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}

		m.generated = msg.resp
		m.EntryID = msg.resp.EntryID
		m.review.SetValue(msg.resp.Content)
		m.review.Focus()
		m.state = wizardReview

		return m, textarea.Blink

	case branchesMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}

		m.branches = msg.list
		m.branchCursor = 0

		for i, b := range msg.list.Branches {
			if b.Name == m.cfg.DefaultBranch || (b.IsDefault && m.branchCursor == 0) {
				m.branchCursor = i
			}
		}

		m.state = wizardSelectingBranch

		return m, nil

	case branchCreatedMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}

		m.branch = msg.branch.Name
		// The remote changed; drop the cached list so the next visit
		// refetches.
		m.branches = nil
		m.commitInput.Focus()
		m.state = wizardCommitMessage

		return m, textinput.Blink

	case savedMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}

		m.savedMsg = msg.resp.Message
		m.Saved = true
		m.state = wizardDone

		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *WizardModel) fail(err error) (tea.Model, tea.Cmd) {
	m.err = err
	m.state = wizardFailed

	return m, nil
}

func (m *WizardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.state {
	case wizardSelectingSections:
		return m.keySelectingSections(msg)

	case wizardReview:
		switch msg.String() {
		case "esc":
			// Back to section selection keeps the current choices.
			m.review.Blur()
			m.state = wizardSelectingSections

			return m, nil
		case "ctrl+s":
			m.review.Blur()

			if m.branches != nil {
				m.state = wizardSelectingBranch

				return m, nil
			}

			m.state = wizardLoadingBranches

			return m, tea.Batch(m.spinner.Tick, m.loadBranches)
		}

		var cmd tea.Cmd

		m.review, cmd = m.review.Update(msg)

		return m, cmd

	case wizardSelectingBranch:
		return m.keySelectingBranch(msg)

	case wizardNamingBranch:
		switch msg.String() {
		case "esc":
			m.branchInput.Blur()
			m.state = wizardSelectingBranch

			return m, nil
		case "enter":
			name := strings.TrimSpace(m.branchInput.Value())
			if name == "" {
				return m, nil
			}

			m.branchInput.Blur()
			m.state = wizardCreatingBranch

			return m, tea.Batch(m.spinner.Tick, m.createBranch(name))
		}

		var cmd tea.Cmd

		m.branchInput, cmd = m.branchInput.Update(msg)

		return m, cmd

	case wizardCommitMessage:
		switch msg.String() {
		case "esc":
			m.commitInput.Blur()
			m.state = wizardSelectingBranch

			if m.branches == nil {
				m.state = wizardLoadingBranches

				return m, tea.Batch(m.spinner.Tick, m.loadBranches)
			}

			return m, nil
		case "enter":
			m.commitInput.Blur()
			m.state = wizardSaving

			return m, tea.Batch(m.spinner.Tick, m.save())
		}

		var cmd tea.Cmd

		m.commitInput, cmd = m.commitInput.Update(msg)

		return m, cmd

	case wizardDone:
		switch msg.String() {
		case "s":
			// Start over with a fresh selection and no leftovers from
			// the previous run.
			m.selected = map[string]bool{}

			for _, sec := range m.sections {
				if sec.IsDefault {
					m.selected[sec.ID] = true
				}
			}

			m.cursor = 0
			m.generated = nil
			m.review.SetValue("")
			m.branch = ""
			m.branchCursor = 0
			m.branchInput.SetValue("")
			m.commitInput.SetValue("")
			m.EntryID = ""
			m.Saved = false
			m.savedMsg = ""
			m.state = wizardSelectingSections

			return m, nil
		case "e":
			m.state = wizardSelectingSections

			return m, nil
		case "q", "enter", "esc":
			return m, tea.Quit
		}

	case wizardFailed:
		switch msg.String() {
		case "r":
			m.err = nil
			m.state = wizardSelectingSections

			return m, nil
		case "q", "enter", "esc":
			return m, tea.Quit
		}

	default:
		// Loading states ignore input so a request cannot be doubled.
	}

	return m, nil
}

func (m *WizardModel) keySelectingSections(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.sections)-1 {
			m.cursor++
		}

	case " ":
		if m.cursor < len(m.sections) {
			id := m.sections[m.cursor].ID
			m.selected[id] = !m.selected[id]
		}

	case "b":
		m.badges = !m.badges

	case "enter":
		// At least one section is required to generate.
		if len(m.selectedIDs()) == 0 {
			return m, nil
		}

		m.state = wizardGenerating

		return m, tea.Batch(m.spinner.Tick, m.generate())
	}

	return m, nil
}

func (m *WizardModel) keySelectingBranch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = wizardReview
		m.review.Focus()

		return m, textarea.Blink

	case "up", "k":
		if m.branchCursor > 0 {
			m.branchCursor--
		}

	case "down", "j":
		if m.branches != nil && m.branchCursor < len(m.branches.Branches)-1 {
			m.branchCursor++
		}

	case "n":
		m.branchInput.SetValue("")
		m.branchInput.Focus()
		m.state = wizardNamingBranch

		return m, textinput.Blink

	case "r":
		// Forced refresh is the only way to refetch the branch list.
		m.branches = nil
		m.state = wizardLoadingBranches

		return m, tea.Batch(m.spinner.Tick, m.loadBranches)

	case "enter":
		if m.branches == nil || len(m.branches.Branches) == 0 {
			return m, nil
		}

		m.branch = m.branches.Branches[m.branchCursor].Name
		m.commitInput.SetValue("")
		m.commitInput.Focus()
		m.state = wizardCommitMessage

		return m, textinput.Blink
	}

	return m, nil
}

func (m *WizardModel) View() string {
	var sb strings.Builder

	switch m.state {
	case wizardLoadingTemplates:
		sb.WriteString(m.spinner.View() + " Loading section templates...\n")

	case wizardSelectingSections:
		sb.WriteString(wizardTitleStyle.Render("README sections for "+m.repo.FullName) + "\n\n")

		for i, s := range m.sections {
			cursor := "  "
			if i == m.cursor {
				cursor = cursorStyle.Render("> ")
			}

			check := "[ ]"
			if m.selected[s.ID] {
				check = checkedStyle.Render("[x]")
			}

			sb.WriteString(fmt.Sprintf("%s%s %s", cursor, check, s.Name))

			if s.Description != "" {
				sb.WriteString(dimStyle.Render("  " + s.Description))
			}

			sb.WriteString("\n")
		}

		badge := "off"
		if m.badges {
			badge = "on"
		}

		sb.WriteString("\nBadges: " + badge + " (b toggles)\n")

		if len(m.selectedIDs()) == 0 {
			sb.WriteString(dimStyle.Render("\nSelect at least one section to generate.\n"))
		} else {
			sb.WriteString(dimStyle.Render("\nspace toggles · enter generates · q quits\n"))
		}

	case wizardGenerating:
		sb.WriteString(m.spinner.View() + " Generating README...\n")

	case wizardReview:
		sb.WriteString(wizardTitleStyle.Render("Review") + "\n\n")
		sb.WriteString(m.review.View() + "\n\n")
		sb.WriteString(dimStyle.Render("ctrl+s continues to commit · esc reselects sections\n"))

	case wizardLoadingBranches:
		sb.WriteString(m.spinner.View() + " Loading branches...\n")

	case wizardSelectingBranch:
		sb.WriteString(wizardTitleStyle.Render("Target branch") + "\n\n")

		if m.branches != nil {
			for i, b := range m.branches.Branches {
				cursor := "  "
				if i == m.branchCursor {
					cursor = cursorStyle.Render("> ")
				}

				name := b.Name
				if b.IsDefault {
					name += dimStyle.Render(" (default)")
				}

				if b.Protected {
					name += dimStyle.Render(" (protected)")
				}

				sb.WriteString(cursor + name + "\n")
			}
		}

		sb.WriteString(dimStyle.Render("\nenter selects · n creates a branch · r refreshes · esc goes back\n"))

	case wizardNamingBranch:
		sb.WriteString(wizardTitleStyle.Render("New branch") + "\n\n")
		sb.WriteString(m.branchInput.View() + "\n\n")
		sb.WriteString(dimStyle.Render("enter creates · esc goes back\n"))

	case wizardCreatingBranch:
		sb.WriteString(m.spinner.View() + " Creating branch...\n")

	case wizardCommitMessage:
		sb.WriteString(wizardTitleStyle.Render("Commit message") + "\n\n")
		sb.WriteString(m.commitInput.View() + "\n\n")
		sb.WriteString(dimStyle.Render("empty uses the default · enter commits · esc goes back\n"))

	case wizardSaving:
		sb.WriteString(m.spinner.View() + " Committing README...\n")

	case wizardDone:
		sb.WriteString(successStyle.Render("Committed!") + "\n\n")
		sb.WriteString(fmt.Sprintf("branch: %s\n", m.branch))

		if m.savedMsg != "" {
			sb.WriteString(m.savedMsg + "\n")
		}

		sb.WriteString("\n")

		sb.WriteString(dimStyle.Render("s starts over · e edits sections · q quits\n"))

	case wizardFailed:
		sb.WriteString(errStyle.Render("Error") + "\n\n")
		sb.WriteString(m.err.Error() + "\n\n")
		sb.WriteString(dimStyle.Render("r returns to section selection · q quits\n"))
	}

	return sb.String()
}

// Error returns the terminal error, if the wizard failed.
func (m *WizardModel) Error() error {
	return m.err
}
