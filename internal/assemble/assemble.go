package assemble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"visiogen/internal/fileutil"
	"visiogen/internal/logging"
	"visiogen/internal/media/ffmpeg"
	"visiogen/internal/media/ffprobe"
	"visiogen/internal/services"
)

const stageName = "assemble"

// Encoder produces a video file from an image sequence.
type Encoder interface {
	EncodeSequence(ctx context.Context, req ffmpeg.EncodeRequest) error
}

// Prober inspects a finished media file.
type Prober func(ctx context.Context, path string) (ffprobe.Result, error)

// Request describes one assembly.
type Request struct {
	FramePattern string
	FrameCount   int
	FrameRate    float64
	AudioPath    string
	OutputPath   string
}

// Assembler encodes frames and audio into the output container.
type Assembler struct {
	encoder Encoder
	probe   Prober
	crf     int
	preset  string
	logger  *slog.Logger
}

// Option customises an Assembler.
type Option func(*Assembler)

// WithQuality sets the x264 CRF and preset.
func WithQuality(crf int, preset string) Option {
	return func(a *Assembler) {
		a.crf = crf
		a.preset = preset
	}
}

// New builds an Assembler.
func New(encoder Encoder, probe Prober, logger *slog.Logger, opts ...Option) *Assembler {
	a := &Assembler{
		encoder: encoder,
		probe:   probe,
		crf:     20,
		preset:  "medium",
		logger:  logging.NewComponentLogger(logger, stageName),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PartialPath returns the temporary path the encoder writes to.
func PartialPath(output string) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + ".partial" + ext
}

// Assemble encodes req and moves the result to req.OutputPath.
func (a *Assembler) Assemble(ctx context.Context, req Request) error {
	if err := validate(req); err != nil {
		return err
	}
	logger := logging.WithContext(ctx, a.logger)

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return services.Wrap(services.ErrResourceOpen, stageName, "create output dir", filepath.Dir(req.OutputPath), err)
	}

	partial := PartialPath(req.OutputPath)
	started := time.Now()
	err := a.encoder.EncodeSequence(ctx, ffmpeg.EncodeRequest{
		FramePattern: req.FramePattern,
		FrameRate:    req.FrameRate,
		AudioPath:    req.AudioPath,
		OutputPath:   partial,
		CRF:          a.crf,
		Preset:       a.preset,
	})
	if err != nil {
		a.discard(logger, partial)
		return err
	}

	if err := a.verify(ctx, logger, partial, req); err != nil {
		a.discard(logger, partial)
		return err
	}

	if err := fileutil.MoveFile(partial, req.OutputPath); err != nil {
		a.discard(logger, partial)
		return services.Wrap(services.ErrResourceOpen, stageName, "finalize output", req.OutputPath, err)
	}

	logger.Info("output assembled",
		logging.String(logging.FieldEventType, "assemble_complete"),
		logging.String("output", req.OutputPath),
		logging.Int("frames", req.FrameCount),
		logging.Float64("frame_rate", req.FrameRate),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func validate(req Request) error {
	switch {
	case strings.TrimSpace(req.FramePattern) == "":
		return services.Wrap(services.ErrValidation, stageName, "validate", "frame pattern required", nil)
	case strings.TrimSpace(req.OutputPath) == "":
		return services.Wrap(services.ErrValidation, stageName, "validate", "output path required", nil)
	case req.FrameRate <= 0:
		return services.Wrap(services.ErrValidation, stageName, "validate", "frame rate must be positive", nil)
	case req.FrameCount <= 0:
		return services.Wrap(services.ErrMissingInput, stageName, "validate", "no frames to encode", nil)
	}
	return nil
}

// verify checks the encoded file at path is a playable container with a video
// stream. It runs before the file is moved into place.
func (a *Assembler) verify(ctx context.Context, logger *slog.Logger, path string, req Request) error {
	if a.probe == nil {
		return nil
	}
	result, err := a.probe(ctx, path)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "verify output", "ffprobe failed on assembled file", err)
	}
	if result.VideoStreamCount() == 0 {
		return services.Wrap(services.ErrExternalTool, stageName, "verify output", "assembled file has no video stream", nil)
	}
	if req.AudioPath != "" && result.AudioStreamCount() == 0 {
		logging.WarnWithContext(logger, "assembled file has no audio stream", "assemble_audio_missing",
			logging.String("output", req.OutputPath),
			logging.String(logging.FieldErrorHint, "check the source video has an audio track"),
			logging.String(logging.FieldImpact, "output is silent"),
		)
	}
	if got := result.FrameCount(); got > 0 && got != req.FrameCount {
		logger.Debug("encoded frame count differs from rendered frames",
			logging.Int("rendered", req.FrameCount),
			logging.Int("encoded", got),
		)
	}
	return nil
}

func (a *Assembler) discard(logger *slog.Logger, partial string) {
	if err := os.Remove(partial); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(logger, "failed to remove partial output", "assemble_cleanup_failed",
			logging.String("path", partial),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the partial file manually"),
			logging.String(logging.FieldImpact, "partial file left in output directory"),
		)
	}
}

// Cleanup removes scratch artifacts. Failures are logged and joined but
// callers should not let them replace a primary error.
func Cleanup(logger *slog.Logger, paths ...string) error {
	var errs []error
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			logging.WarnWithContext(logger, "failed to remove scratch artifact", "scratch_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run visiogen clean"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}
