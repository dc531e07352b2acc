package cli

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/readmeai/readmectl/internal/auth"
	"github.com/readmeai/readmectl/internal/model"
)

// LoginModel is the Bubbletea model for the browser OAuth handshake.
type LoginModel struct {
	coordinator *auth.Coordinator
	spinner     spinner.Model
	oauthURL    string
	state       loginState
	tokens      model.AuthTokens
	err         error

	urlCh    chan string
	resultCh chan loginResultMsg
	cancel   context.CancelFunc
}

type loginState int

const (
	stateInitializing loginState = iota
	stateWaitingForBrowser
	stateComplete
	stateLoginError
)

type loginURLMsg struct {
	url string
}

type loginResultMsg struct {
	tokens model.AuthTokens
	err    error
}

// NewLoginModel creates a login model driving the given coordinator.
func NewLoginModel(coordinator *auth.Coordinator) *LoginModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &LoginModel{
		coordinator: coordinator,
		spinner:     s,
		state:       stateInitializing,
		urlCh:       make(chan string, 1),
		resultCh:    make(chan loginResultMsg, 1),
	}
}

func (m *LoginModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.startLogin,
	)
}

// startLogin runs the handshake in the background and surfaces the login
// URL as soon as the backend hands it out.
func (m *LoginModel) startLogin() tea.Msg {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.coordinator.OnLoginURL = func(url string) {
		m.urlCh <- url
	}

	go func() {
		tokens, err := m.coordinator.Run(ctx)
		m.resultCh <- loginResultMsg{tokens: tokens, err: err}
	}()

	select {
	case url := <-m.urlCh:
		return loginURLMsg{url: url}
	case result := <-m.resultCh:
		return result
	}
}

// waitForResult blocks until the handshake settles.
func (m *LoginModel) waitForResult() tea.Msg {
	return <-m.resultCh
}

func (m *LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.cancel != nil {
				m.cancel()
			}

			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd

		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	case loginURLMsg:
		m.oauthURL = msg.url
		m.state = stateWaitingForBrowser

		return m, tea.Batch(m.spinner.Tick, m.waitForResult)
	case loginResultMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateLoginError

			return m, tea.Quit
		}

		m.tokens = msg.tokens
		m.state = stateComplete

		return m, tea.Quit
	}

	return m, nil
}

func (m *LoginModel) View() string {
	var sb strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	urlStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Underline(true)

	successStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("42"))

	errorStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("196"))

	switch m.state {
	case stateInitializing:
		sb.WriteString(titleStyle.Render("readmectl login") + "\n\n")
		sb.WriteString(m.spinner.View() + " Contacting the backend...\n")
	case stateWaitingForBrowser:
		sb.WriteString(titleStyle.Render("Authorize in your browser") + "\n\n")
		sb.WriteString("A browser window should have opened. If not, open:\n\n")
		sb.WriteString("  " + urlStyle.Render(m.oauthURL) + "\n\n")
		sb.WriteString(m.spinner.View() + " Waiting for authorization...\n\n")
		sb.WriteString("Press q to cancel")
	case stateComplete:
		sb.WriteString(successStyle.Render("Login complete!") + "\n\n")
		sb.WriteString("Your session has been saved.\n")
	case stateLoginError:
		sb.WriteString(errorStyle.Render("Login failed") + "\n\n")
		sb.WriteString(m.err.Error() + "\n")
	}

	return sb.String()
}

// Tokens returns the tokens obtained by the handshake, if any.
func (m *LoginModel) Tokens() model.AuthTokens {
	return m.tokens
}

// Error returns the terminal error of the handshake, if any.
func (m *LoginModel) Error() error {
	return m.err
}
