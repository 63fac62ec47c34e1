package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/sirupsen/logrus"

	"github.com/gifnksm/jaba-go/internal/adapter/cli"
	"github.com/gifnksm/jaba-go/internal/adapter/git"
	"github.com/gifnksm/jaba-go/internal/adapter/reviewservice"
	"github.com/gifnksm/jaba-go/internal/config"
	"github.com/gifnksm/jaba-go/internal/repodriver"
)

// version is set at build time via -ldflags; defaults to a development marker.
var version = "v0.0.0-dev"

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Error("jaba: fatal")
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	configDir := "."
	if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "jaba")
	}

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths:  []string{".", configDir},
		FileName:     "cfg",
		EnvPrefix:    "JABA",
		ExplicitFile: configFlagValue(os.Args[1:]),
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	switch cfg.Log.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{})
	}

	svc := reviewservice.NewClient(cfg.GitLab.Host, cfg.GitLab.AccessToken, cfg.GitLab.Insecure)

	var auth transport.AuthMethod
	if cfg.Git.SSHKey != "" {
		auth, err = git.NewSSHAuth(cfg.Git.SSHKey)
		if err != nil {
			return fmt.Errorf("load ssh key %s: %w", cfg.Git.SSHKey, err)
		}
	}

	pollInterval, err := config.PollInterval(cfg)
	if err != nil {
		return fmt.Errorf("resolve poll interval: %w", err)
	}

	drivers := make([]cli.RepoDriver, 0, len(cfg.Repo))
	for label, repoCfg := range cfg.Repo {
		if repoCfg.Name == "" {
			return fmt.Errorf("repo.%s: name is required", label)
		}
		drivers = append(drivers, repodriver.New(svc, auth, cfg.Git, repoCfg, configDir))
	}

	root := cli.NewRootCommand(cli.Dependencies{
		Drivers:      drivers,
		PollInterval: pollInterval,
		Version:      version,
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

// configFlagValue extracts --config's value from the raw argument list. It
// is consulted before cobra parses flags, since the config file determines
// which repos' drivers get built and handed to NewRootCommand.
func configFlagValue(args []string) string {
	for i, a := range args {
		switch {
		case a == "--config" && i+1 < len(args):
			return args[i+1]
		case strings.HasPrefix(a, "--config="):
			return strings.TrimPrefix(a, "--config=")
		}
	}
	return ""
}
