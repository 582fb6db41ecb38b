package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"visiogen/internal/logging"
	"visiogen/internal/services"
)

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Tool issues ffmpeg commands.
type Tool struct {
	binary string
	runner Runner
	logger *slog.Logger
}

// New returns a Tool using binary (default "ffmpeg").
func New(binary string, logger *slog.Logger) *Tool {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Tool{binary: binary, runner: ExecRunner, logger: logging.NewComponentLogger(logger, "ffmpeg")}
}

// WithRunner replaces the command runner (for testing).
func (t *Tool) WithRunner(runner Runner) *Tool {
	if runner != nil {
		t.runner = runner
	}
	return t
}

// Binary returns the ffmpeg executable in use.
func (t *Tool) Binary() string {
	return t.binary
}

// ExtractAudio writes the first audio stream of src as mono 16kHz PCM WAV.
func (t *Tool) ExtractAudio(ctx context.Context, src, dest string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", src,
		"-vn",
		"-map", "0:a:0",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	return t.exec(ctx, "extract audio", args)
}

// ExtractFrames decodes src into dir as numbered PNGs starting at 0, resampled
// to a constant rate so frame i starts at i/rate seconds.
func (t *Tool) ExtractFrames(ctx context.Context, src, dir, pattern string, rate float64) error {
	if rate <= 0 {
		return services.Wrap(services.ErrValidation, stageOf(ctx), "extract frames", "frame rate must be positive", nil)
	}
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", src,
		"-an", "-sn",
		"-map", "0:v:0",
		"-fps_mode", "cfr",
		"-r", formatRate(rate),
		"-start_number", "0",
		filepath.Join(dir, pattern),
	}
	return t.exec(ctx, "extract frames", args)
}

// EncodeRequest describes an image sequence to encode into a video file.
type EncodeRequest struct {
	FramePattern string
	FrameRate    float64
	AudioPath    string
	OutputPath   string
	CRF          int
	Preset       string
}

// EncodeSequence encodes an image sequence with libx264/yuv420p and muxes the
// audio track with aac. The container decides the final length; no trimming
// flag is passed.
func (t *Tool) EncodeSequence(ctx context.Context, req EncodeRequest) error {
	if req.FrameRate <= 0 {
		return services.Wrap(services.ErrValidation, stageOf(ctx), "encode", "frame rate must be positive", nil)
	}
	preset := req.Preset
	if preset == "" {
		preset = "medium"
	}
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-framerate", formatRate(req.FrameRate),
		"-start_number", "0",
		"-i", req.FramePattern,
	}
	if req.AudioPath != "" {
		args = append(args, "-i", req.AudioPath, "-map", "0:v:0", "-map", "1:a:0")
	}
	args = append(args,
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-c:v", "libx264",
		"-preset", preset,
		"-crf", strconv.Itoa(req.CRF),
		"-pix_fmt", "yuv420p",
	)
	if req.AudioPath != "" {
		args = append(args, "-c:a", "aac", "-b:a", "192k")
	}
	args = append(args, "-movflags", "+faststart", "-f", "mp4", req.OutputPath)
	return t.exec(ctx, "encode", args)
}

func (t *Tool) exec(ctx context.Context, op string, args []string) error {
	logger := logging.WithContext(ctx, t.logger)
	logger.Debug("running ffmpeg",
		logging.String("op", op),
		logging.String("command", t.binary+" "+strings.Join(args, " ")),
	)
	output, err := t.runner(ctx, t.binary, args...)
	if err == nil {
		return nil
	}
	if ctxErr := services.FromContext(ctx, stageOf(ctx), op); ctxErr != nil {
		return ctxErr
	}
	return services.Wrap(services.ErrExternalTool, stageOf(ctx), op, "ffmpeg "+op+" failed", fmt.Errorf("%w: %s", err, tail(string(output), 12)))
}

func stageOf(ctx context.Context) string {
	if stage, ok := services.StageFromContext(ctx); ok {
		return stage
	}
	return "ffmpeg"
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}

// tail keeps the last n non-empty lines of ffmpeg output.
func tail(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, strings.TrimSpace(line))
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, " | ")
}
