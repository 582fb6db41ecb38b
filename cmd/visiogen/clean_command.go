package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"visiogen/internal/staging"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	var cleanAll bool
	var list bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale scratch directories",
		Long: `Remove scratch directories left behind by interrupted runs.

The directory of a run that currently holds the workspace lock is never
removed. Use --all to ignore the age threshold.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			scratch := cfg.Paths.ScratchDir
			out := cmd.OutOrStdout()

			if list {
				return printScratchDirectories(cmd, scratch)
			}

			// Hold the lock for the whole sweep so no run can start mid-clean.
			release, busy, err := staging.HoldIdle(cfg.LockPath())
			if err != nil {
				return err
			}
			defer func() { _ = release() }()

			skip := map[string]struct{}{}
			if busy {
				skip[cfg.WorkDir()] = struct{}{}
				fmt.Fprintln(out, "A run is in progress; its workspace is kept")
			}

			maxAge := olderThan
			if cleanAll {
				maxAge = 0
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			result := staging.CleanStale(cmd.Context(), scratch, skip, maxAge, logger)
			return printStagingCleanResult(cmd, result, "scratch")
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "Only remove directories older than this")
	cmd.Flags().BoolVar(&cleanAll, "all", false, "Remove every scratch directory not held by a running job")
	cmd.Flags().BoolVar(&list, "list", false, "List scratch directories without removing anything")
	return cmd
}

func printScratchDirectories(cmd *cobra.Command, scratch string) error {
	out := cmd.OutOrStdout()
	dirs, err := staging.ListDirectories(scratch)
	if err != nil {
		return fmt.Errorf("list scratch directories: %w", err)
	}
	if len(dirs) == 0 {
		fmt.Fprintln(out, "No scratch directories found")
		return nil
	}
	fmt.Fprintf(out, "Scratch directory: %s\n\n", scratch)
	var total int64
	rows := make([][]string, 0, len(dirs))
	for _, dir := range dirs {
		total += dir.Size
		age := time.Since(dir.ModTime).Truncate(time.Minute)
		rows = append(rows, []string{dir.Name, formatDuration(age), humanBytes(dir.Size)})
	}
	fmt.Fprint(out, renderTable(
		[]string{"Directory", "Age", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight},
	))
	fmt.Fprintf(out, "\nTotal: %d directories, %s\n", len(dirs), humanBytes(total))
	return nil
}

func printStagingCleanResult(cmd *cobra.Command, result staging.CleanStaleResult, label string) error {
	out := cmd.OutOrStdout()
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintf(out, "No %s directories to clean\n", label)
		return nil
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "Removed %d %s directories, %d errors\n", len(result.Removed), label, len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
		}
		return nil
	}
	fmt.Fprintf(out, "Removed %d %s directories\n", len(result.Removed), label)
	return nil
}
