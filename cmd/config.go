package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/readmeai/readmectl/internal/config"
	"github.com/readmeai/readmectl/internal/model"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set one configuration value and write the config file.

Keys: api_base_url, agent_port, default_branch, default_commit_message,
readme_path, badge_style, http_timeout_sec.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset configuration to defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults := model.DefaultConfig()
		if err := config.Save(&defaults, cfgFile); err != nil {
			return err
		}

		fmt.Println("Configuration reset to defaults.")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd, configResetCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	return printJSON(cfg)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	switch key {
	case "api_base_url":
		cfg.APIBaseURL = value
	case "agent_port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("agent_port must be a number: %w", err)
		}

		cfg.AgentPort = port
	case "default_branch":
		cfg.DefaultBranch = value
	case "default_commit_message":
		cfg.DefaultCommitMessage = value
	case "readme_path":
		cfg.ReadmePath = value
	case "badge_style":
		cfg.BadgeStyle = value
	case "http_timeout_sec":
		sec, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("http_timeout_sec must be a number: %w", err)
		}

		cfg.HTTPTimeoutSec = sec
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	if err := config.Save(cfg, cfgFile); err != nil {
		return err
	}

	fmt.Printf("Set %s = %s\n", key, value)

	return nil
}
