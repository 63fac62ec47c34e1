// Package config loads the agent's TOML configuration, mirroring the
// teacher's viper-based loader but retargeted from YAML provider/budget
// settings to the review-service, git, polling, and logging settings this
// agent actually needs.
package config

// Config is the full application configuration.
type Config struct {
	GitLab GitLabConfig          `mapstructure:"gitlab"`
	Git    GitConfig             `mapstructure:"git"`
	Poll   PollConfig            `mapstructure:"poll"`
	Log    LogConfig             `mapstructure:"log"`
	Repo   map[string]RepoConfig `mapstructure:"repo"`
}

// GitLabConfig configures the review service client.
type GitLabConfig struct {
	Host        string `mapstructure:"host"`
	AccessToken string `mapstructure:"access_token"`
	Insecure    bool   `mapstructure:"insecure"`
}

// GitConfig configures the local trial-merge working copy.
type GitConfig struct {
	SSHKey         string `mapstructure:"ssh_key"`
	CacheDirectory string `mapstructure:"cache_directory"`
	BotName        string `mapstructure:"bot_name"`
	BotEmail       string `mapstructure:"bot_email"`
}

// PollConfig sizes the tick loop.
type PollConfig struct {
	Interval string `mapstructure:"interval"`
}

// LogConfig sizes structured logging.
type LogConfig struct {
	Format string `mapstructure:"format"`
}

// RepoConfig names one watched project under `[repo.<label>]`.
type RepoConfig struct {
	Name string `mapstructure:"name"`
}
