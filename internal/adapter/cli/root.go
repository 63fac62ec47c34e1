// Package cli builds the jaba root command: a single long-running process
// that ticks every configured repository on a poll interval, or once and
// exits when --once is given.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// RepoDriver is the per-repo collaborator the root command ticks.
type RepoDriver interface {
	Tick(ctx context.Context) error
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Drivers      []RepoDriver
	Args         Arguments
	PollInterval time.Duration
	Version      string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	var verbosity int
	var once bool

	root := &cobra.Command{
		Use:   "jaba",
		Short: "Self-hosted merge-queue bot",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	var showVersion bool
	var configPath string
	root.PersistentFlags().BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	root.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (repeatable)")
	// Consumed by main() before NewRootCommand is called, since the config
	// file determines which repos' Drivers get built; registered here only
	// so --help/usage documents it.
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to the TOML config file")
	root.Flags().BoolVar(&once, "once", false, "Tick every configured repo exactly once and exit")

	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler

	root.RunE = func(cmd *cobra.Command, args []string) error {
		applyVerbosity(verbosity)
		ctx := cmd.Context()
		if once {
			return tickAll(ctx, deps.Drivers)
		}
		return runLoop(ctx, deps.Drivers, deps.PollInterval)
	}

	return root
}

// applyVerbosity raises logrus's level per -v count: 0 is info, 1 is debug,
// 2+ is trace.
func applyVerbosity(count int) {
	switch {
	case count >= 2:
		logrus.SetLevel(logrus.TraceLevel)
	case count == 1:
		logrus.SetLevel(logrus.DebugLevel)
	}
}

// tickAll runs one tick across every configured repo, collecting but not
// aborting on a single repo's error: one repo's failure must not stall the
// rest of the fleet.
func tickAll(ctx context.Context, drivers []RepoDriver) error {
	var errs []error
	for _, d := range drivers {
		if err := d.Tick(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func runLoop(ctx context.Context, drivers []RepoDriver, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := tickAll(ctx, drivers); err != nil {
		logrus.WithError(err).Error("jaba: tick failed")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := tickAll(ctx, drivers); err != nil {
				logrus.WithError(err).Error("jaba: tick failed")
			}
		}
	}
}
