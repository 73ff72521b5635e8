package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rewired-gh/silverroute/internal/storage"
)

// newCacheCommand creates the cache command with subcommands
func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the quote cache",
	}

	cmd.AddCommand(newCachePruneCommand())
	cmd.AddCommand(newCacheStatsCommand())
	return cmd
}

func openStore() (*storage.Storage, time.Duration, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, 0, err
	}
	if !cfg.Cache.Enabled {
		return nil, 0, fmt.Errorf("quote cache is disabled (cache.enabled=false)")
	}
	store, err := storage.New(cfg.Cache.DBPath, cfg.Albion.Cities)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, cfg.Cache.TTL, nil
}

// newCachePruneCommand creates the cache prune subcommand
func newCachePruneCommand() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove cached quotes older than the cache TTL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, ttl, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if olderThan <= 0 {
				olderThan = ttl
			}
			cutoff := time.Now().Add(-olderThan)
			removed, err := store.Prune(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d items fetched before %s\n", removed, humanize.Time(cutoff))
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Age cutoff (default cache.ttl)")
	return cmd
}

// newCacheStatsCommand creates the cache stats subcommand
func newCacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how many items and quotes are cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			items, quotes, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s items, %s quotes cached\n",
				humanize.Comma(int64(items)), humanize.Comma(int64(quotes)))
			return nil
		},
	}
}
