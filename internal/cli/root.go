// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jeranaias/flurchat/internal/config"
	"github.com/jeranaias/flurchat/internal/logging"
	"github.com/jeranaias/flurchat/internal/storage"
)

// Version information, set by main from build flags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath string
	apiBase    string
	storage    string
	dataDir    string
	logLevel   string
	logFile    string
	ephemeral  bool
}

// runtime is the state shared by one invocation's commands.
type runtime struct {
	opts      globalOptions
	cfg       *config.Config
	logger    zerolog.Logger
	logCloser io.Closer
	app       *App
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCommand builds the flurchat command tree. The returned cleanup
// releases the app and the log file once the command has finished.
func NewRootCommand() (*cobra.Command, func()) {
	rt := &runtime{logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "flurchat",
		Short: "Terminal chat client for streaming chat servers",
		Long: `flurchat talks to a chat server that streams replies as server-sent
events. Conversations are kept locally and survive restarts.

Run without a subcommand to open the full-screen chat.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, rt)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rt.opts.configPath, "config", "", "config file (default ~/.flurchat/config.toml)")
	flags.StringVar(&rt.opts.apiBase, "api-base", "", "chat server base URL")
	flags.StringVar(&rt.opts.storage, "storage", "", "storage backend ("+strings.Join(storage.Backends, ", ")+")")
	flags.StringVar(&rt.opts.dataDir, "data-dir", "", "directory for the file and sqlite backends")
	flags.StringVar(&rt.opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&rt.opts.logFile, "log-file", "", "log file (default ~/.flurchat/flurchat.log)")
	flags.BoolVar(&rt.opts.ephemeral, "ephemeral", false, "keep conversations in memory only")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	rootCmd.AddCommand(
		newChatCommand(rt),
		newAskCommand(rt),
		newConversationsCommand(rt),
		newConfigCommand(rt),
		newVersionCommand(),
	)

	return rootCmd, rt.close
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	rootCmd, cleanup := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	cleanup()
	if err != nil {
		if !errors.Is(err, errInterrupted) {
			fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:"), err)
		}
		return GetExitCode(err)
	}
	return ExitSuccess
}

// =============================================================================
// SETUP
// =============================================================================

// setup loads the configuration, applies flag overrides and starts logging.
func (rt *runtime) setup() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	var (
		cfg     *config.Config
		loadErr error
		err     error
	)
	if rt.opts.configPath != "" {
		if _, statErr := os.Stat(rt.opts.configPath); errors.Is(statErr, fs.ErrNotExist) {
			// "config init --config PATH" creates it
			cfg = config.Default()
			cfg.ApplyEnvOverrides()
		} else if cfg, err = config.LoadFromPath(rt.opts.configPath); err != nil {
			return err
		}
	} else {
		cfg, loadErr = config.Load()
		if cfg == nil {
			return loadErr
		}
	}

	rt.applyFlags(cfg)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	rt.cfg = cfg

	logPath, err := cfg.LogPath()
	if err != nil {
		return err
	}
	logger, closer, err := logging.Setup(logging.Options{
		Level: cfg.Log.Level,
		File:  logPath,
	})
	if err != nil {
		return err
	}
	rt.logger, rt.logCloser = logger, closer

	if loadErr != nil {
		rt.logger.Warn().Err(loadErr).Msg("config file ignored, using defaults")
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning:"), loadErr)
	}
	return nil
}

// applyFlags copies explicitly set persistent flags over cfg.
func (rt *runtime) applyFlags(cfg *config.Config) {
	o := rt.opts
	if o.apiBase != "" {
		cfg.API.BaseURL = o.apiBase
	}
	if o.storage != "" {
		cfg.Storage.Backend = strings.ToLower(o.storage)
	}
	if o.ephemeral {
		cfg.Storage.Backend = storage.BackendMemory
	}
	if o.dataDir != "" {
		cfg.Storage.Dir = o.dataDir
	}
	if o.logLevel != "" {
		cfg.Log.Level = strings.ToLower(o.logLevel)
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}
}

// openApp opens the app once per invocation.
func (rt *runtime) openApp(ctx context.Context) (*App, error) {
	if rt.app != nil {
		return rt.app, nil
	}
	app, err := OpenApp(ctx, rt.cfg, rt.logger)
	if err != nil {
		return nil, err
	}
	rt.app = app
	return app, nil
}

func (rt *runtime) close() {
	if rt.app != nil {
		if err := rt.app.Close(); err != nil {
			rt.logger.Warn().Err(err).Msg("failed to close storage")
		}
		rt.app = nil
	}
	if rt.logCloser != nil {
		rt.logCloser.Close()
		rt.logCloser = nil
	}
}

// =============================================================================
// VERSION
// =============================================================================

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "flurchat %s\n", Version)
			fmt.Fprintf(out, "  commit: %s\n", GitCommit)
			fmt.Fprintf(out, "  built:  %s\n", BuildDate)
		},
	}
}
