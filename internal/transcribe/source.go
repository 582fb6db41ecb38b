package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"visiogen/internal/captions"
	"visiogen/internal/config"
	"visiogen/internal/fileutil"
	"visiogen/internal/logging"
	"visiogen/internal/services"
	"visiogen/internal/services/whisperapi"
	"visiogen/internal/services/whisperx"
	"visiogen/internal/transcriptcache"
)

// Source yields word-level timestamps for an audio file.
type Source interface {
	Transcribe(ctx context.Context, audioPath, workDir string) ([]captions.WordTiming, error)
	Name() string
	Model() string
}

// NewSource builds the configured provider. language overrides the configured
// hint when non-empty.
func NewSource(cfg *config.Config, language string) (Source, error) {
	t := cfg.Transcription
	if language == "" {
		language = t.Language
	}
	switch t.Provider {
	case config.ProviderWhisperX:
		return whisperx.NewService(whisperx.Config{
			Model:       t.Model,
			CUDAEnabled: t.CUDAEnabled,
			VADMethod:   t.VADMethod,
			HFToken:     t.HuggingFace,
			Language:    language,
			CacheDir:    cfg.WhisperXCacheDir(),
		}), nil
	case config.ProviderWhisperAPI:
		return whisperapi.New(whisperapi.Config{
			URL:      t.APIURL,
			APIKey:   t.APIKey,
			Model:    t.Model,
			Language: language,
			Timeout:  cfg.TranscriptionTimeout(),
		}), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "select provider",
			fmt.Sprintf("unknown transcription provider %q", t.Provider), nil)
	}
}

// Cache is the subset of transcriptcache.Store used by Cached.
type Cache interface {
	Get(ctx context.Context, key transcriptcache.Key) ([]captions.WordTiming, bool, error)
	Put(ctx context.Context, key transcriptcache.Key, words []captions.WordTiming) error
}

// Cached serves transcripts from cache when the audio, provider, model, and
// language match a previous run.
type Cached struct {
	source   Source
	cache    Cache
	language string
	logger   *slog.Logger
}

// NewCached wraps source with cache.
func NewCached(source Source, cache Cache, language string, logger *slog.Logger) *Cached {
	return &Cached{
		source:   source,
		cache:    cache,
		language: language,
		logger:   logging.NewComponentLogger(logger, "transcribe"),
	}
}

// Name forwards to the wrapped source.
func (c *Cached) Name() string { return c.source.Name() }

// Model forwards to the wrapped source.
func (c *Cached) Model() string { return c.source.Model() }

// Transcribe returns cached words when available. Cache failures are logged
// and never fail the run.
func (c *Cached) Transcribe(ctx context.Context, audioPath, workDir string) ([]captions.WordTiming, error) {
	logger := logging.WithContext(ctx, c.logger)

	digest, err := fileutil.SHA256File(audioPath)
	if err != nil {
		return nil, services.Wrap(services.ErrResourceOpen, "transcribe", "hash audio", audioPath, err)
	}
	key := transcriptcache.Key{
		AudioSHA256: digest,
		Provider:    c.source.Name(),
		Model:       c.source.Model(),
		Language:    c.language,
	}

	if words, ok, err := c.cache.Get(ctx, key); err != nil {
		logging.WarnWithContext(logger, "transcript cache lookup failed", "transcript_cache_error",
			logging.String("key", key.String()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the cache database if the problem persists"),
			logging.String(logging.FieldImpact, "audio is transcribed again"),
		)
	} else if ok {
		logger.Info("transcript cache hit",
			logging.String(logging.FieldEventType, "transcript_cache_hit"),
			logging.String("key", key.String()),
			logging.Int("words", len(words)),
		)
		return words, nil
	}

	start := time.Now()
	words, err := c.source.Transcribe(ctx, audioPath, workDir)
	if err != nil {
		return nil, err
	}
	logger.Info("transcription complete",
		logging.String(logging.FieldEventType, "transcription_complete"),
		logging.String("provider", c.source.Name()),
		logging.String("model", c.source.Model()),
		logging.Int("words", len(words)),
		logging.Duration("elapsed", time.Since(start)),
	)

	if err := c.cache.Put(ctx, key, words); err != nil {
		logging.WarnWithContext(logger, "transcript cache store failed", "transcript_cache_error",
			logging.String("key", key.String()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "next run transcribes again"),
		)
	}
	return words, nil
}
