package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Long: `Clear the sealed tokens and the cached repository list. A running
agent is told first so its subscribers see the session end.`,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.ClearAll(); err != nil {
		return fmt.Errorf("clear local state: %w", err)
	}

	fmt.Println("Logged out.")

	return nil
}
