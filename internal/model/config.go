package model

// Config holds the client configuration.
type Config struct {
	// APIBaseURL is the backend base URL (without the /api/v1 suffix)
	APIBaseURL string `json:"api_base_url" mapstructure:"api_base_url" yaml:"api_base_url"`

	// AgentPort is the port the local agent listens on
	AgentPort int `json:"agent_port" mapstructure:"agent_port" yaml:"agent_port"`

	// DefaultBranch is the branch offered by default when committing
	DefaultBranch string `json:"default_branch" mapstructure:"default_branch" yaml:"default_branch"`

	// DefaultCommitMessage is offered when the user supplies none
	DefaultCommitMessage string `json:"default_commit_message" mapstructure:"default_commit_message" yaml:"default_commit_message"`

	// ReadmePath is the in-repository path the document is committed to
	ReadmePath string `json:"readme_path" mapstructure:"readme_path" yaml:"readme_path"`

	// BadgeStyle is the default badge style for generation requests
	BadgeStyle string `json:"badge_style" mapstructure:"badge_style" yaml:"badge_style"`

	// HTTPTimeoutSec bounds every backend call
	HTTPTimeoutSec int `json:"http_timeout_sec" mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		APIBaseURL:           "https://api.readme-ai.dev",
		AgentPort:            7537,
		DefaultBranch:        "main",
		DefaultCommitMessage: "docs: update README.md (generated)",
		ReadmePath:           "README.md",
		BadgeStyle:           "flat",
		HTTPTimeoutSec:       60,
	}
}
