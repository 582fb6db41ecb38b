package transcribe

import (
	"context"
	"log/slog"

	"visiogen/internal/config"
	"visiogen/internal/logging"
	"visiogen/internal/transcriptcache"
)

// Open builds the configured source and, when caching is enabled, wraps it
// with the transcript cache after pruning expired entries. The returned
// close function releases the cache and is never nil.
func Open(ctx context.Context, cfg *config.Config, language string, logger *slog.Logger) (Source, func() error, error) {
	base := logger
	logger = logging.NewComponentLogger(logger, "transcribe")
	source, err := NewSource(cfg, language)
	if err != nil {
		return nil, nil, err
	}
	noop := func() error { return nil }
	if !cfg.Transcription.CacheEnabled {
		return source, noop, nil
	}

	store, err := transcriptcache.Open(ctx, cfg.TranscriptCachePath())
	if err != nil {
		logging.WarnWithContext(logger, "transcript cache unavailable", "transcript_cache_error",
			logging.String("path", cfg.TranscriptCachePath()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the cache database or set transcription.cache_enabled = false"),
			logging.String(logging.FieldImpact, "audio is transcribed on every run"),
		)
		return source, noop, nil
	}
	if maxAge := cfg.TranscriptCacheMaxAge(); maxAge > 0 {
		if removed, err := store.Prune(ctx, maxAge); err != nil {
			logger.Debug("transcript cache prune failed", logging.Error(err))
		} else if removed > 0 {
			logger.Info("pruned transcript cache",
				logging.String(logging.FieldEventType, "transcript_cache_prune"),
				logging.Int64("removed", removed),
			)
		}
	}
	if language == "" {
		language = cfg.Transcription.Language
	}
	return NewCached(source, store, language, base), store.Close, nil
}
