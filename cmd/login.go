package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/readmeai/readmectl/internal/agent"
	"github.com/readmeai/readmectl/internal/api"
	"github.com/readmeai/readmectl/internal/auth"
	"github.com/readmeai/readmectl/internal/cli"
	"github.com/readmeai/readmectl/internal/model"
	"github.com/readmeai/readmectl/internal/store"
)

var loginDevice bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the README AI backend",
	Long: `Start the browser OAuth handshake. A browser window opens on the
backend's authorization page; once you approve, the session is sealed
into the local store.

With --device, run the GitHub device flow instead. Useful on headless
machines where no browser can be opened.`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().BoolVar(&loginDevice, "device", false, "use the GitHub device flow instead of the browser handshake")
}

func runLogin(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	// A running agent owns the session; route the login through it so
	// its subscribers see the auth events.
	if agentClient := agentIfRunning(cmd.Context()); agentClient != nil && !loginDevice {
		fmt.Println("Logging in through the local agent...")

		var status agent.AuthStatus
		if err := agentClient.Send(cmd.Context(), agent.MsgStartAuth, nil, &status); err != nil {
			return err
		}

		fmt.Println("Login complete.")

		return nil
	}

	if loginDevice {
		return runDeviceLogin(cmd.Context(), st)
	}

	backend := api.New(cfg.APIBaseURL, st)
	coordinator := auth.NewCoordinator(backend)

	m := cli.NewLoginModel(coordinator)

	finalModel, err := tea.NewProgram(m).Run()
	if err != nil {
		return err
	}

	login := finalModel.(*cli.LoginModel)
	if login.Error() != nil {
		return login.Error()
	}

	tokens := login.Tokens()
	if !tokens.Valid() {
		return fmt.Errorf("login cancelled")
	}

	if err := st.SetTokens(tokens); err != nil {
		return fmt.Errorf("store tokens: %w", err)
	}

	if err := st.SetUserSession(model.UserSession{
		Method:     model.LoginMethodBrowser,
		LoggedInAt: nowFunc(),
	}); err != nil {
		return fmt.Errorf("store session: %w", err)
	}

	fmt.Println("Login complete. Session stored.")

	return nil
}

func runDeviceLogin(ctx context.Context, st *store.Store) error {
	flow := auth.NewDeviceFlow(nil)
	flow.OnDeviceCode(func(code, verificationURL string) {
		fmt.Printf("First, copy your one-time code: %s\n", code)
		fmt.Printf("Then open %s and enter it.\n\n", verificationURL)
	})

	result, err := flow.Run(ctx)
	if err != nil {
		return err
	}

	if err := st.SetTokens(result.Tokens); err != nil {
		return fmt.Errorf("store tokens: %w", err)
	}

	if err := st.SetUserSession(model.UserSession{
		Username:   result.Username,
		Method:     model.LoginMethodDevice,
		LoggedInAt: nowFunc(),
	}); err != nil {
		return fmt.Errorf("store session: %w", err)
	}

	fmt.Printf("Logged in as %s.\n", result.Username)

	return nil
}
