package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/readmeai/readmectl/internal/model"
)

const (
	envPrefix  = "README_AI"
	dirName    = ".readmectl"
	fileName   = "config"
	fileFormat = "yaml"
)

// Dir returns the configuration directory, creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}

	dir := filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir config dir: %w", err)
	}

	return dir, nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*model.Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	defaults := model.DefaultConfig()
	v.SetDefault("api_base_url", defaults.APIBaseURL)
	v.SetDefault("agent_port", defaults.AgentPort)
	v.SetDefault("default_branch", defaults.DefaultBranch)
	v.SetDefault("default_commit_message", defaults.DefaultCommitMessage)
	v.SetDefault("readme_path", defaults.ReadmePath)
	v.SetDefault("badge_style", defaults.BadgeStyle)
	v.SetDefault("http_timeout_sec", defaults.HTTPTimeoutSec)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}

		v.AddConfigPath(dir)
		v.SetConfigName(fileName)
		v.SetConfigType(fileFormat)
	}

	// The config file is optional; defaults and env cover a fresh install.
	_ = v.ReadInConfig()

	var c model.Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &c, nil
}

// Save writes the given configuration to cfgFile. If cfgFile is empty it
// writes to ~/.readmectl/config.yaml, creating the directory if necessary.
func Save(c *model.Config, cfgFile string) error {
	path := cfgFile

	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}

		path = filepath.Join(dir, fileName+"."+fileFormat)
	}

	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}

	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}
