package cmd

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/readmeai/readmectl/internal/config"
	"github.com/readmeai/readmectl/internal/model"
)

var (
	cfgFile   string
	apiURL    string
	flagToken string

	cfg *model.Config
)

var rootCmd = &cobra.Command{
	Use:   "readmectl",
	Short: "AI-assisted README generation for your repositories",
	Long: `readmectl authenticates you with your code host, lets you pick a
repository and the README sections you want, generates the document
through the README AI backend, and commits it back to the repository.

A local agent holds the session so every terminal (and the editor
integrations) share one login.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if apiURL != "" {
			loaded.APIBaseURL = apiURL
		}

		cfg = loaded

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.SetFlags(0)
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func init() {
	// Accept config_key style flag spellings alongside the dashed form.
	rootCmd.PersistentFlags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.readmectl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "backend base URL override")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "access token (bypasses stored credentials)")
}
