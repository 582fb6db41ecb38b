package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"visiogen/internal/assemble"
	"visiogen/internal/captions"
	"visiogen/internal/config"
	"visiogen/internal/logging"
	"visiogen/internal/media/ffmpeg"
	"visiogen/internal/media/ffprobe"
	"visiogen/internal/preflight"
	"visiogen/internal/render"
	"visiogen/internal/services"
	"visiogen/internal/stageexec"
	"visiogen/internal/staging"
	"visiogen/internal/transcribe"
)

// Stage names used in logs and failure reports.
const (
	StageProbe      = "probe"
	StageAudio      = "audio"
	StageTranscribe = "transcribe"
	StageAlign      = "align"
	StageFrames     = "frames"
	StageRender     = "render"
	StageAssemble   = "assemble"
)

// MediaTool is the ffmpeg surface the controller drives.
type MediaTool interface {
	ExtractAudio(ctx context.Context, src, dest string) error
	ExtractFrames(ctx context.Context, src, dir, pattern string, rate float64) error
	assemble.Encoder
}

// PreflightFunc reports readiness checks for cfg.
type PreflightFunc func(ctx context.Context, cfg *config.Config) []preflight.Result

// Controller runs captioning jobs against one configuration.
type Controller struct {
	cfg       *config.Config
	logger    *slog.Logger
	fonts     *render.Registry
	media     MediaTool
	probe     assemble.Prober
	source    transcribe.Source
	preflight PreflightFunc
	excess    captions.ExcessPolicy
	progress  *os.File
	newRunID  func() string
	onFrame   func(done, total int)
}

// Option customises a Controller.
type Option func(*Controller)

// WithMedia replaces the ffmpeg tool.
func WithMedia(media MediaTool) Option {
	return func(c *Controller) { c.media = media }
}

// WithProber replaces ffprobe.
func WithProber(probe assemble.Prober) Option {
	return func(c *Controller) { c.probe = probe }
}

// WithSource pins the timestamp source. Without it each run opens the
// configured provider, cache included, for the job's language.
func WithSource(source transcribe.Source) Option {
	return func(c *Controller) { c.source = source }
}

// WithPreflight replaces the readiness checks. nil disables them.
func WithPreflight(fn PreflightFunc) Option {
	return func(c *Controller) { c.preflight = fn }
}

// WithProgress shows a render progress bar on f when it is a terminal.
func WithProgress(f *os.File) Option {
	return func(c *Controller) { c.progress = f }
}

// New validates the font registry and builds a Controller.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Controller, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "config is required", nil)
	}
	excess, err := captions.ParseExcessPolicy(cfg.Render.ExcessPolicy)
	if err != nil {
		return nil, err
	}
	fonts := render.NewRegistry(cfg.Fonts, cfg.Render.Font, logger)
	if err := fonts.Validate(); err != nil {
		return nil, err
	}

	ffprobeBinary := cfg.FFprobeBinary()
	c := &Controller{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		fonts:  fonts,
		media:  ffmpeg.New(cfg.FFmpegBinary(), logger),
		probe: func(ctx context.Context, path string) (ffprobe.Result, error) {
			return ffprobe.Inspect(ctx, ffprobeBinary, path)
		},
		preflight: preflight.RunAll,
		excess:    excess,
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fonts exposes the validated font registry.
func (c *Controller) Fonts() *render.Registry { return c.fonts }

// Run executes job. The returned error carries a services marker; use
// services.Details for the user-facing kind and message.
func (c *Controller) Run(ctx context.Context, job Job) (result Result, err error) {
	started := time.Now()

	job, err = resolve(c.cfg, job)
	if err != nil {
		return Result{}, err
	}

	result.RunID = c.newRunID()
	result.OutputPath = job.OutputPath
	ctx = services.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, c.logger)

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("video", job.VideoPath),
		logging.String("audio", job.audioSource()),
		logging.String("output", job.OutputPath),
		logging.String("font", job.Font),
		logging.Int("display_words", len(captions.SplitWords(job.DisplayText))),
	)
	defer func() {
		result.Duration = time.Since(started)
		if err != nil {
			failure := services.Details(err)
			logger.Info("run ended without output",
				logging.String(logging.FieldEventType, "run_failed"),
				logging.String("failure_kind", failure.Kind),
				logging.String("failed_stage", failure.Stage),
				logging.Duration("elapsed", result.Duration),
			)
			return
		}
		logger.Info("run complete",
			logging.String(logging.FieldEventType, "run_complete"),
			logging.String("output", result.OutputPath),
			logging.Int("frames", result.Frames),
			logging.Int("captioned", result.Captioned),
			logging.Duration("elapsed", result.Duration),
		)
	}()

	if err := c.checkReadiness(ctx); err != nil {
		return result, err
	}

	ws, err := staging.Acquire(c.cfg.WorkDir(), c.cfg.LockPath(), c.logger)
	if err != nil {
		return result, err
	}
	defer func() {
		// Cleanup problems are logged by the helpers and never replace the
		// run's own error.
		_ = assemble.Cleanup(logger, ws.FramesDir(), ws.AudioPath())
		_ = ws.Release()
	}()

	source, closeSource, err := c.sourceFor(ctx, job)
	if err != nil {
		return result, err
	}
	defer func() {
		if closeErr := closeSource(); closeErr != nil {
			logger.Debug("close transcript source", logging.Error(closeErr))
		}
	}()

	rate, err := c.probeRate(ctx, job)
	if err != nil {
		return result, err
	}
	result.FrameRate = float64(rate)

	if err := c.extractAudio(ctx, job, ws); err != nil {
		return result, err
	}

	words, err := c.transcribe(ctx, source, ws)
	if err != nil {
		return result, err
	}

	table, mismatch, err := c.align(ctx, job, words, rate)
	if err != nil {
		return result, err
	}
	result.Captions = table
	result.Mismatch = mismatch

	frames, err := c.extractFrames(ctx, job, ws, rate)
	if err != nil {
		return result, err
	}
	result.Frames = frames.Len()

	stats, resolvedFont, err := c.render(ctx, job, frames, table)
	if err != nil {
		return result, err
	}
	result.Captioned = stats.Captioned
	result.Font = resolvedFont

	if err := c.assemble(ctx, job, frames, rate); err != nil {
		return result, err
	}
	return result, nil
}

func (c *Controller) stage(ctx context.Context, name string, timeout time.Duration, fn stageexec.Func) error {
	return stageexec.Run(ctx, stageexec.Options{
		Logger:    c.logger,
		StageName: name,
		Timeout:   timeout,
	}, fn)
}

func (c *Controller) checkReadiness(ctx context.Context) error {
	if c.preflight == nil {
		return nil
	}
	failed := preflight.Failed(c.preflight(ctx, c.cfg))
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check", strings.Join(parts, "; "), nil)
}

func (c *Controller) sourceFor(ctx context.Context, job Job) (transcribe.Source, func() error, error) {
	if c.source != nil {
		return c.source, func() error { return nil }, nil
	}
	return transcribe.Open(ctx, c.cfg, job.Language, c.logger)
}

func (c *Controller) probeRate(ctx context.Context, job Job) (captions.FrameRate, error) {
	var rate captions.FrameRate
	err := c.stage(ctx, StageProbe, c.cfg.StageTimeout(), func(ctx context.Context, logger *slog.Logger) error {
		probe, err := c.probe(ctx, job.VideoPath)
		if err != nil {
			return services.Wrap(services.ErrResourceOpen, StageProbe, "inspect video", job.VideoPath, err)
		}
		fps, err := probe.FrameRate()
		if err != nil {
			return services.Wrap(services.ErrResourceOpen, StageProbe, "frame rate", job.VideoPath, err)
		}
		rate = captions.FrameRate(fps)
		logger.Info("source probed",
			logging.Float64("frame_rate", fps),
			logging.Int("reported_frames", probe.FrameCount()),
			logging.Float64("duration_seconds", probe.DurationSeconds()),
		)
		return nil
	})
	return rate, err
}

func (c *Controller) extractAudio(ctx context.Context, job Job, ws *staging.Workspace) error {
	return c.stage(ctx, StageAudio, c.cfg.StageTimeout(), func(ctx context.Context, _ *slog.Logger) error {
		err := c.media.ExtractAudio(ctx, job.audioSource(), ws.AudioPath())
		if err != nil && errors.Is(err, services.ErrExternalTool) {
			return services.Wrap(services.ErrResourceOpen, StageAudio, "decode audio", job.audioSource(), err)
		}
		return err
	})
}

func (c *Controller) transcribe(ctx context.Context, source transcribe.Source, ws *staging.Workspace) ([]captions.WordTiming, error) {
	var words []captions.WordTiming
	err := c.stage(ctx, StageTranscribe, c.cfg.TranscriptionTimeout(), func(ctx context.Context, logger *slog.Logger) error {
		var err error
		words, err = source.Transcribe(ctx, ws.AudioPath(), ws.Root())
		if err != nil {
			return err
		}
		if len(words) == 0 {
			logging.WarnWithContext(logger, "no speech recognised", "transcript_empty",
				logging.String("provider", source.Name()),
				logging.String(logging.FieldErrorHint, "check the audio track contains speech"),
				logging.String(logging.FieldImpact, "every caption word uses the excess-word policy"),
			)
		}
		return nil
	})
	return words, err
}

func (c *Controller) align(ctx context.Context, job Job, words []captions.WordTiming, rate captions.FrameRate) (captions.Table, *captions.Mismatch, error) {
	var (
		table    captions.Table
		mismatch *captions.Mismatch
	)
	err := c.stage(ctx, StageAlign, 0, func(_ context.Context, logger *slog.Logger) error {
		var err error
		table, mismatch, err = captions.Align(job.DisplayText, words, rate, captions.WithExcessPolicy(c.excess))
		if err != nil {
			return err
		}
		if mismatch != nil {
			attrs := []logging.Attr{
				logging.Int("display_words", mismatch.DisplayWords),
				logging.Int("timed_words", mismatch.TimedWords),
				logging.String("excess_policy", c.excess.String()),
				logging.String(logging.FieldErrorHint, "make the display text match the narration word for word"),
				logging.String(logging.FieldImpact, mismatchImpact(*mismatch, c.excess)),
			}
			if div, ok := captions.Diff(captions.SplitWords(job.DisplayText), words); ok {
				attrs = append(attrs,
					logging.Int("first_divergence", div.Index),
					logging.String("display_word", div.Display),
					logging.String("heard_word", div.Heard),
				)
			}
			logging.WarnWithContext(logger, "display text and transcript word counts differ", "word_count_mismatch", attrs...)
		}
		logger.Debug("captions aligned", logging.Int("entries", len(table)))
		return nil
	})
	return table, mismatch, err
}

func mismatchImpact(m captions.Mismatch, policy captions.ExcessPolicy) string {
	if m.Untimed() == 0 {
		return fmt.Sprintf("%d recognised words have no caption", m.Unused())
	}
	switch policy {
	case captions.ExcessSuppress:
		return fmt.Sprintf("%d caption words are never shown", m.Untimed())
	case captions.ExcessExtend:
		return fmt.Sprintf("%d caption words share the previous word's last frame", m.Untimed())
	default:
		return fmt.Sprintf("%d caption words only show on the first frame", m.Untimed())
	}
}

func (c *Controller) extractFrames(ctx context.Context, job Job, ws *staging.Workspace, rate captions.FrameRate) (*render.DirFrames, error) {
	var frames *render.DirFrames
	err := c.stage(ctx, StageFrames, c.cfg.StageTimeout(), func(ctx context.Context, logger *slog.Logger) error {
		if err := c.media.ExtractFrames(ctx, job.VideoPath, ws.FramesDir(), render.FramePattern, float64(rate)); err != nil {
			if errors.Is(err, services.ErrExternalTool) {
				return services.Wrap(services.ErrResourceOpen, StageFrames, "decode video", job.VideoPath, err)
			}
			return err
		}
		var err error
		frames, err = render.OpenDirFrames(ws.FramesDir())
		if err != nil {
			return err
		}
		if frames.Len() == 0 {
			return services.Wrap(services.ErrResourceOpen, StageFrames, "decode video", "no frames decoded from "+job.VideoPath, nil)
		}
		logger.Info("frames extracted", logging.Int("frames", frames.Len()))
		return nil
	})
	return frames, err
}

func (c *Controller) render(ctx context.Context, job Job, frames *render.DirFrames, table captions.Table) (render.Stats, string, error) {
	var (
		stats    render.Stats
		resolved string
	)
	err := c.stage(ctx, StageRender, 0, func(ctx context.Context, logger *slog.Logger) error {
		face, id, err := c.fonts.Face(job.Font, c.cfg.Render.FontSize, c.cfg.Render.DPI)
		if err != nil {
			return err
		}
		defer face.Close()
		resolved = id

		style := render.Style{
			Face:             face,
			Fill:             c.cfg.FillRGBA(),
			Outline:          c.cfg.OutlineRGBA(),
			OutlineThickness: c.cfg.Render.OutlineThickness,
			BottomOffset:     c.cfg.Render.BottomOffset,
		}
		renderOpts := []render.Option{render.WithProgress(c.progress)}
		if c.onFrame != nil {
			renderOpts = append(renderOpts, render.WithFrameObserver(c.onFrame))
		}
		renderer := render.NewRenderer(style, c.logger, renderOpts...)
		stats, err = renderer.Render(ctx, frames, table, frames)
		if err != nil {
			return err
		}
		logger.Info("frames rendered",
			logging.Int("frames", stats.Frames),
			logging.Int("captioned", stats.Captioned),
			logging.Int("unchanged", stats.Unchanged),
			logging.String("font", id),
		)
		return nil
	})
	return stats, resolved, err
}

func (c *Controller) assemble(ctx context.Context, job Job, frames *render.DirFrames, rate captions.FrameRate) error {
	assembler := assemble.New(c.media, c.probe, c.logger, assemble.WithQuality(c.cfg.FFmpeg.CRF, c.cfg.FFmpeg.Preset))
	return c.stage(ctx, StageAssemble, c.cfg.StageTimeout(), func(ctx context.Context, _ *slog.Logger) error {
		return assembler.Assemble(ctx, assemble.Request{
			FramePattern: frames.Pattern(),
			FrameCount:   frames.Len(),
			FrameRate:    float64(rate),
			AudioPath:    job.audioSource(),
			OutputPath:   job.OutputPath,
		})
	})
}
