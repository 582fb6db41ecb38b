package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"visiogen/internal/config"
	"visiogen/internal/deps"
	"visiogen/internal/preflight"
	"visiogen/internal/staging"
	"visiogen/internal/transcriptcache"
)

const statusCheckTimeout = 5 * time.Second

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show dependency, directory, and cache status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			checkCtx, cancel := context.WithTimeout(cmd.Context(), statusCheckTimeout)
			defer cancel()

			sections := []struct {
				title string
				lines []string
			}{
				{"Dependencies", dependencyLines(preflight.CheckSystemDeps(cfg), colorize)},
				{"Readiness", preflightLines(preflight.RunAll(checkCtx, cfg), colorize)},
				{"Runtime", []string{
					workspaceStatusLine(cfg, colorize),
					transcriptCacheStatusLine(checkCtx, cfg, colorize),
					transcriptionStatusLine(cfg, colorize),
				}},
			}
			for i, section := range sections {
				if i > 0 {
					fmt.Fprintln(out)
				}
				for _, line := range renderSectionHeader(section.title, colorize) {
					fmt.Fprintln(out, line)
				}
				for _, line := range section.lines {
					fmt.Fprintln(out, line)
				}
			}
			return nil
		},
	}
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missing := make([]string, 0)
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func preflightLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, result := range results {
		kind := statusKindFor(result.Passed, statusError)
		lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	return lines
}

func workspaceStatusLine(cfg *config.Config, colorize bool) string {
	locked, err := staging.Locked(cfg.LockPath())
	switch {
	case err != nil:
		return renderStatusLine("Workspace", statusWarn, err.Error(), colorize)
	case locked:
		return renderStatusLine("Workspace", statusInfo, "Run in progress", colorize)
	default:
		return renderStatusLine("Workspace", statusOK, "Idle", colorize)
	}
}

func transcriptCacheStatusLine(ctx context.Context, cfg *config.Config, colorize bool) string {
	if !cfg.Transcription.CacheEnabled {
		return renderStatusLine("Transcript cache", statusInfo, "Disabled", colorize)
	}
	store, err := transcriptcache.Open(ctx, cfg.TranscriptCachePath())
	if err != nil {
		return renderStatusLine("Transcript cache", statusWarn, err.Error(), colorize)
	}
	defer store.Close()
	stats, err := store.Stats(ctx)
	if err != nil {
		return renderStatusLine("Transcript cache", statusWarn, err.Error(), colorize)
	}
	return renderStatusLine("Transcript cache", statusOK, fmt.Sprintf("%d entries, %s", stats.Entries, humanBytes(stats.SizeByte)), colorize)
}

func transcriptionStatusLine(cfg *config.Config, colorize bool) string {
	t := cfg.Transcription
	message := fmt.Sprintf("%s (model %s)", t.Provider, t.Model)
	if t.Language != "" {
		message += ", language " + t.Language
	}
	return renderStatusLine("Transcription", statusInfo, message, colorize)
}
