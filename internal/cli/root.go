// Package cli implements the silverroute command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/silverroute/internal/config"
	"github.com/rewired-gh/silverroute/internal/logger"
)

var (
	// Global flags
	configPath string
	logLevel   string
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "silverroute",
		Short: "Albion Online market arbitrage finder",
		Long: `silverroute finds items that can be bought in one royal city and sold
in another for a profit, using live quotes from the Albion Online Data Project.

Examples:
  silverroute search "bolsa"
  silverroute analyze "espada larga" --group 2
  silverroute analyze --ids T4_BAG,T4_BAG@1 --mode best_single
  silverroute repl
  silverroute serve
  silverroute bot
  silverroute cache prune`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(),
		"Path to configuration file (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(newSearchCommand())
	rootCmd.AddCommand(newAnalyzeCommand())
	rootCmd.AddCommand(newREPLCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newBotCommand())
	rootCmd.AddCommand(newCacheCommand())

	return rootCmd
}

// defaultConfigPath returns the config path from the environment, if set
func defaultConfigPath() string {
	return os.Getenv(config.EnvPrefix + "_CONFIG")
}

// loadConfig loads, validates and applies the logging configuration
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if configPath != "" {
		logger.Debug("Configuration loaded from %s", configPath)
	}
	return cfg, nil
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
