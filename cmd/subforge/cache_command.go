package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"subforge/internal/batchcache"
	"subforge/internal/services"
)

const cacheTimeLayout = "2006-01-02 15:04"

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the rewrite cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func withCache(ctx *commandContext, fn func(*batchcache.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := batchcache.Open(cfg.RewriteCachePath())
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "cache", "open", cfg.RewriteCachePath(), err)
	}
	defer store.Close()
	return fn(store)
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show rewrite cache totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(ctx, func(store *batchcache.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Path: %s\n", store.Path())
				fmt.Fprintf(out, "Entries: %d\n", stats.Entries)
				fmt.Fprintf(out, "Hits: %d\n", stats.Hits)
				fmt.Fprintf(out, "Response bytes: %d\n", stats.Bytes)
				if stats.Entries > 0 {
					fmt.Fprintf(out, "Oldest: %s\n", stats.Oldest.Local().Format(cacheTimeLayout))
					fmt.Fprintf(out, "Newest: %s\n", stats.Newest.Local().Format(cacheTimeLayout))
				}
				return nil
			})
		},
	}
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached batch responses, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(ctx, func(store *batchcache.Store) error {
				entries, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Cache is empty")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						e.Key[:12],
						e.Model,
						strconv.Itoa(e.CueCount),
						strconv.Itoa(e.Hits),
						e.CreatedAt.Local().Format(cacheTimeLayout),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Key", "Model", "Cues", "Hits", "Created"}, rows, 3, 4))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	return cmd
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete cached responses older than a given age",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return services.Wrap(services.ErrValidation, "cache", "prune", "--older-than must be positive", nil)
			}
			return withCache(ctx, func(store *batchcache.Store) error {
				removed, err := store.Prune(cmd.Context(), olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries older than %s\n", removed, olderThan)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age threshold (for example 72h)")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached response",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(ctx, func(store *batchcache.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", removed)
				return nil
			})
		},
	}
}

