package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"visiogen/internal/transcriptcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the transcript cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func openTranscriptCache(cmd *cobra.Command, ctx *commandContext) (*transcriptcache.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Transcription.CacheEnabled {
		fmt.Fprintln(cmd.OutOrStdout(), "Transcript cache is disabled (transcription.cache_enabled = false)")
		return nil, nil
	}
	return transcriptcache.Open(cmd.Context(), cfg.TranscriptCachePath())
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show transcript cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openTranscriptCache(cmd, ctx)
			if err != nil || store == nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			const stampLayout = "2006-01-02 15:04"
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Path:    %s\n", stats.Path)
			fmt.Fprintf(out, "Entries: %d (%d words)\n", stats.Entries, stats.Words)
			fmt.Fprintf(out, "Size:    %s\n", humanBytes(stats.SizeByte))
			if stats.Entries > 0 {
				fmt.Fprintf(out, "Oldest:  %s\n", stats.Oldest.Local().Format(stampLayout))
				fmt.Fprintf(out, "Newest:  %s\n", stats.Newest.Local().Format(stampLayout))
			}
			return nil
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove transcripts older than transcription.cache_max_age_days",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openTranscriptCache(cmd, ctx)
			if err != nil || store == nil {
				return err
			}
			defer store.Close()

			cfg, _ := ctx.ensureConfig()
			removed, err := store.Prune(cmd.Context(), cfg.TranscriptCacheMaxAge())
			if err != nil {
				return err
			}
			if removed == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cache entries pruned")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d cached transcripts\n", removed)
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openTranscriptCache(cmd, ctx)
			if err != nil || store == nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached transcripts\n", removed)
			return nil
		},
	}
}
