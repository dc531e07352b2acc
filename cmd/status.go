package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/readmeai/readmectl/internal/agent"
	"github.com/readmeai/readmectl/internal/auth"
	"github.com/readmeai/readmectl/internal/model"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session and agent status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

type statusReport struct {
	Authenticated bool   `json:"authenticated"`
	TokenSource   string `json:"token_source"`
	Username      string `json:"username,omitempty"`
	LoginMethod   string `json:"login_method,omitempty"`
	AgentRunning  bool   `json:"agent_running"`
	Repositories  int    `json:"repositories"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	report := statusReport{}

	tokens, source, _ := auth.ResolveToken(flagToken, st)
	report.Authenticated = tokens.Valid()
	report.TokenSource = string(source)

	session, hasSession, _ := st.UserSession()
	if hasSession {
		report.Username = session.Username
		report.LoginMethod = session.Method
	}

	// Device-flow and gh CLI tokens are GitHub tokens; check them
	// against GitHub directly so a revoked token shows up here instead
	// of on the first backend call.
	githubToken := source == auth.TokenSourceGHCLI ||
		(hasSession && session.Method == model.LoginMethodDevice && source == auth.TokenSourceStore)
	if report.Authenticated && githubToken {
		valid, username, err := auth.ValidateToken(cmd.Context(), tokens.AccessToken)
		if err == nil {
			report.Authenticated = valid
			if username != "" {
				report.Username = username
			}
		}
	}

	if agentClient := agentIfRunning(cmd.Context()); agentClient != nil {
		report.AgentRunning = true

		var status agent.AuthStatus
		if err := agentClient.Send(cmd.Context(), agent.MsgGetAuthStatus, nil, &status); err == nil {
			report.Authenticated = status.Authenticated
			report.Repositories = len(status.Repositories)
		}
	}

	if statusJSON {
		return printJSON(report)
	}

	if report.Authenticated {
		if report.Username != "" {
			fmt.Printf("Logged in as %s (token source: %s)\n", report.Username, report.TokenSource)
		} else {
			fmt.Printf("Logged in (token source: %s)\n", report.TokenSource)
		}
	} else {
		fmt.Println("Not logged in. Run 'readmectl login'.")
	}

	if report.AgentRunning {
		fmt.Printf("Agent: running, %d repositories cached\n", report.Repositories)
	} else {
		fmt.Println("Agent: not running")
	}

	return nil
}
