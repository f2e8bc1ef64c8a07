package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/neilberkman/agentrider/internal/core/config"
	"github.com/neilberkman/agentrider/internal/core/logging"
	"github.com/neilberkman/agentrider/pkg/agentsessions"
	"github.com/neilberkman/agentrider/pkg/agentsessions/providers"
)

var (
	configPath  string
	dbPath      string
	logLevel    string
	versionInfo string

	cfg      *config.Config
	logger   *slog.Logger
	registry *agentsessions.Registry
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agentrider",
	Short: "Browse Claude Code, Codex and Kimi sessions",
	Long: `agentrider - list, inspect, search and export AI coding agent sessions

Reads transcripts written by Claude Code, Codex and Kimi, normalizes them
into one session model and keeps an optional full-text index.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to list if no subcommand specified
		return runList(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/agentrider/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Index database path (default from config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, quiet")
}

// setup loads config and builds the logger and provider registry shared by
// every command.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if dbPath == "" {
		dbPath = cfg.IndexPath
	}
	logger = logging.New(cfg.LogLevel, cmd.ErrOrStderr())
	registry = providers.Default(cfg.ProviderOptions())
	logger.Debug("providers ready", "providers", registry.Names())
	return nil
}
