package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoaderOptions describes how configuration should be discovered, mirroring
// the teacher's LoaderOptions shape but for a single TOML file rather than a
// search-path YAML convention.
type LoaderOptions struct {
	ConfigPaths []string
	FileName    string
	EnvPrefix   string

	// ExplicitFile, when set, is used verbatim instead of searching
	// ConfigPaths for FileName+".toml" (the CLI's --config flag).
	ExplicitFile string
}

// Load returns the merged configuration from a TOML file and environment
// variables.
func Load(opts LoaderOptions) (Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	name := opts.FileName
	if name == "" {
		name = "cfg"
	}

	configFile := opts.ExplicitFile
	if configFile == "" {
		configFile = locateConfigFile(name, opts.ConfigPaths)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "JABA"
	}
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg = expandEnvVars(cfg)

	if _, err := PollInterval(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// PollInterval parses the configured poll interval, defaulting as setDefaults
// does when the field was never populated (e.g. a config built by hand in
// tests rather than through Load).
func PollInterval(cfg Config) (time.Duration, error) {
	s := cfg.Poll.Interval
	if s == "" {
		s = "30s"
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse poll.interval %q: %w", s, err)
	}
	return d, nil
}

// expandEnvVars expands ${VAR} and $VAR syntax in the two fields that may
// carry secrets.
func expandEnvVars(cfg Config) Config {
	cfg.GitLab.AccessToken = expandEnvString(cfg.GitLab.AccessToken)
	cfg.Git.SSHKey = expandEnvString(cfg.Git.SSHKey)
	return cfg
}

var (
	bracedEnvVar   = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	unbracedEnvVar = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

func expandEnvString(s string) string {
	if s == "" {
		return s
	}
	s = bracedEnvVar.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
	s = unbracedEnvVar.ReplaceAllStringFunc(s, func(match string) string {
		name := match[1:]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
	return s
}

func locateConfigFile(name string, paths []string) string {
	searchPaths := append([]string{}, paths...)
	searchPaths = append(searchPaths, ".")
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name+".toml")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("git.cache_directory", "cache")
	v.SetDefault("poll.interval", "30s")
	v.SetDefault("log.format", defaultLogFormat())
	v.SetDefault("git.bot_name", "jaba")
	v.SetDefault("git.bot_email", "jaba@localhost")
}
