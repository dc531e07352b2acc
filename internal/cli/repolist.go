package cli

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/readmeai/readmectl/internal/model"
)

var docStyle = lipgloss.NewStyle().Margin(1, 2)

type repoItem struct {
	repo model.Repository
}

func (i repoItem) Title() string {
	lock := ""
	if i.repo.Private {
		lock = "🔒 "
	}

	return fmt.Sprintf("%s%s", lock, i.repo.FullName)
}

func (i repoItem) Description() string {
	if i.repo.Description != "" {
		return i.repo.Description
	}

	return i.repo.HTMLURL
}

func (i repoItem) FilterValue() string {
	return i.repo.FullName
}

// RepoListModel lets the user pick one repository from the account list.
type RepoListModel struct {
	list         list.Model
	selectedRepo *model.Repository
	quitting     bool
}

func NewRepoList(repos []model.Repository, title string) RepoListModel {
	items := make([]list.Item, len(repos))
	for i, repo := range repos {
		items[i] = repoItem{repo: repo}
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)

	return RepoListModel{list: l}
}

func (m RepoListModel) Init() tea.Cmd {
	return nil
}

func (m RepoListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true

			return m, tea.Quit

		case "enter":
			i, ok := m.list.SelectedItem().(repoItem)
			if ok {
				m.selectedRepo = &i.repo
			}

			return m, tea.Quit
		}
	}

	var cmd tea.Cmd

	m.list, cmd = m.list.Update(msg)

	return m, cmd
}

func (m RepoListModel) View() string {
	if m.quitting {
		return ""
	}

	return docStyle.Render(m.list.View())
}

func (m RepoListModel) GetSelectedRepo() *model.Repository {
	return m.selectedRepo
}
