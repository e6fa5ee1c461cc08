package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pario-ai/briefbench/pkg/cache"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the article cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cache.New(a.cfg.CacheDir, a.cfg.FreshnessWindow)
			if err != nil {
				return err
			}

			stats, err := store.Stats()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dir:     %s\nEntries: %d\nFresh:   %d\nBytes:   %d\n",
				store.Dir(), stats.Entries, stats.Fresh, stats.Bytes)
			return nil
		},
	}

	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cache.New(a.cfg.CacheDir, a.cfg.FreshnessWindow)
			if err != nil {
				return err
			}

			n, err := store.Clear(expiredOnly)
			if err != nil {
				return err
			}
			if expiredOnly {
				fmt.Fprintf(cmd.OutOrStdout(), "Expired cache entries cleared (%d).\n", n)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "All cache entries cleared (%d).\n", n)
			}
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only clear expired entries")

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}
