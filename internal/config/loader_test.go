package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnvString(t *testing.T) {
	os.Setenv("TEST_API_KEY", "secret-key-123")
	os.Setenv("TEST_PATH", "/path/to/data")
	defer os.Unsetenv("TEST_API_KEY")
	defer os.Unsetenv("TEST_PATH")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "expand ${VAR} syntax",
			input:    "${TEST_API_KEY}",
			expected: "secret-key-123",
		},
		{
			name:     "expand $VAR syntax",
			input:    "$TEST_API_KEY",
			expected: "secret-key-123",
		},
		{
			name:     "expand in middle of string",
			input:    "key:${TEST_API_KEY}:end",
			expected: "key:secret-key-123:end",
		},
		{
			name:     "expand multiple variables",
			input:    "${TEST_API_KEY}:${TEST_PATH}",
			expected: "secret-key-123:/path/to/data",
		},
		{
			name:     "leave non-existent var unchanged",
			input:    "${NONEXISTENT_VAR}",
			expected: "${NONEXISTENT_VAR}",
		},
		{
			name:     "handle empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "handle string without variables",
			input:    "plain-text",
			expected: "plain-text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandEnvString(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("GITLAB_TOKEN", "glpat-test-123")
	os.Setenv("DEPLOY_KEY_PATH", "/custom/id_ed25519")
	defer os.Unsetenv("GITLAB_TOKEN")
	defer os.Unsetenv("DEPLOY_KEY_PATH")

	cfg := Config{
		GitLab: GitLabConfig{
			AccessToken: "${GITLAB_TOKEN}",
		},
		Git: GitConfig{
			SSHKey: "${DEPLOY_KEY_PATH}",
		},
	}

	expanded := expandEnvVars(cfg)

	assert.Equal(t, "glpat-test-123", expanded.GitLab.AccessToken)
	assert.Equal(t, "/custom/id_ed25519", expanded.Git.SSHKey)
}

func TestExpandEnvVarsLeavesOtherFieldsAlone(t *testing.T) {
	cfg := Config{
		Repo: map[string]RepoConfig{
			"core": {Name: "group/${SHOULD_NOT_EXPAND}"},
		},
	}
	expanded := expandEnvVars(cfg)
	assert.Equal(t, "group/${SHOULD_NOT_EXPAND}", expanded.Repo["core"].Name)
}

func TestPollIntervalDefault(t *testing.T) {
	d, err := PollInterval(Config{})
	assert.NoError(t, err)
	assert.Equal(t, 30000000000, int(d))
}

func TestPollIntervalParsesConfiguredValue(t *testing.T) {
	d, err := PollInterval(Config{Poll: PollConfig{Interval: "90s"}})
	assert.NoError(t, err)
	assert.Equal(t, "1m30s", d.String())
}

func TestPollIntervalRejectsGarbage(t *testing.T) {
	_, err := PollInterval(Config{Poll: PollConfig{Interval: "not-a-duration"}})
	assert.Error(t, err)
}

func TestLocateConfigFileFindsFileInSearchPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/jaba.toml"
	assert.NoError(t, os.WriteFile(path, []byte("[gitlab]\n"), 0o600))

	found := locateConfigFile("jaba", []string{dir})
	assert.Equal(t, path, found)
}

func TestLocateConfigFileReturnsEmptyWhenMissing(t *testing.T) {
	found := locateConfigFile("nonexistent", []string{t.TempDir()})
	assert.Empty(t, found)
}

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load(LoaderOptions{
		ConfigPaths: []string{t.TempDir()},
		FileName:    "jaba",
		EnvPrefix:   "JABA_TEST_DEFAULTS",
	})
	assert.NoError(t, err)
	assert.Equal(t, "cache", cfg.Git.CacheDirectory)
	assert.Equal(t, "30s", cfg.Poll.Interval)
	assert.Equal(t, "jaba", cfg.Git.BotName)
	assert.Equal(t, "jaba@localhost", cfg.Git.BotEmail)
}

func TestLoadReadsFileAndExpandsEnv(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/jaba.toml"
	content := `
[gitlab]
host = "gitlab.example.com"
access_token = "${JABA_TEST_TOKEN}"

[git]
cache_directory = "/var/cache/jaba"

[repo.core]
name = "group/core"
`
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	os.Setenv("JABA_TEST_TOKEN", "glpat-abc")
	defer os.Unsetenv("JABA_TEST_TOKEN")

	cfg, err := Load(LoaderOptions{
		ConfigPaths: []string{dir},
		FileName:    "jaba",
		EnvPrefix:   "JABA_TEST_LOADFILE",
	})
	assert.NoError(t, err)
	assert.Equal(t, "gitlab.example.com", cfg.GitLab.Host)
	assert.Equal(t, "glpat-abc", cfg.GitLab.AccessToken)
	assert.Equal(t, "/var/cache/jaba", cfg.Git.CacheDirectory)
	assert.Equal(t, "group/core", cfg.Repo["core"].Name)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/jaba.toml"
	assert.NoError(t, os.WriteFile(path, []byte("[gitlab]\nhost = \"from-file\"\n"), 0o600))

	os.Setenv("JABA_TEST_ENVOVERRIDE_GITLAB_HOST", "from-env")
	defer os.Unsetenv("JABA_TEST_ENVOVERRIDE_GITLAB_HOST")

	cfg, err := Load(LoaderOptions{
		ConfigPaths: []string{dir},
		FileName:    "jaba",
		EnvPrefix:   "JABA_TEST_ENVOVERRIDE",
	})
	assert.NoError(t, err)
	assert.Equal(t, "from-env", cfg.GitLab.Host)
}

func TestLoadHonorsExplicitFileOverSearchPath(t *testing.T) {
	searchDir := t.TempDir()
	assert.NoError(t, os.WriteFile(searchDir+"/jaba.toml", []byte("[gitlab]\nhost = \"wrong-file\"\n"), 0o600))

	explicitDir := t.TempDir()
	explicitPath := explicitDir + "/custom-name.toml"
	assert.NoError(t, os.WriteFile(explicitPath, []byte("[gitlab]\nhost = \"right-file\"\n"), 0o600))

	cfg, err := Load(LoaderOptions{
		ConfigPaths:  []string{searchDir},
		FileName:     "jaba",
		EnvPrefix:    "JABA_TEST_EXPLICIT",
		ExplicitFile: explicitPath,
	})
	assert.NoError(t, err)
	assert.Equal(t, "right-file", cfg.GitLab.Host)
}

func TestLoadRejectsMalformedPollInterval(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/jaba.toml"
	assert.NoError(t, os.WriteFile(path, []byte("[poll]\ninterval = \"soon\"\n"), 0o600))

	_, err := Load(LoaderOptions{
		ConfigPaths: []string{dir},
		FileName:    "jaba",
		EnvPrefix:   "JABA_TEST_BADPOLL",
	})
	assert.Error(t, err)
}
