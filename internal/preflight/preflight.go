package preflight

import (
	"context"

	"visiogen/internal/config"
)

// MinScratchBytes is the free space required in the scratch directory.
// Extracted PNG frames for a short clip easily reach several hundred MiB.
const MinScratchBytes uint64 = 2 << 30

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckFreeSpace("Scratch free space", cfg.Paths.ScratchDir, MinScratchBytes),
		CheckTools(cfg),
	}

	if cfg.Transcription.Provider == config.ProviderWhisperAPI {
		results = append(results, CheckWhisperAPI(ctx, cfg.Transcription.APIURL, cfg.Transcription.APIKey))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
