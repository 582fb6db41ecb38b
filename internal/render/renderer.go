package render

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"visiogen/internal/captions"
	"visiogen/internal/logging"
	"visiogen/internal/services"
)

// Stats summarises one Render call.
type Stats struct {
	Frames    int
	Captioned int
	Unchanged int
	Duration  time.Duration
}

// Renderer draws caption words onto frames.
type Renderer struct {
	style    Style
	logger   *slog.Logger
	progress io.Writer
	observe  func(done, total int)
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithProgress shows a progress bar on f when f is a terminal.
func WithProgress(f *os.File) Option {
	return func(r *Renderer) {
		if f != nil && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			r.progress = f
		}
	}
}

// WithFrameObserver calls fn after each frame is handled.
func WithFrameObserver(fn func(done, total int)) Option {
	return func(r *Renderer) { r.observe = fn }
}

// NewRenderer constructs a renderer for the given style.
func NewRenderer(style Style, logger *slog.Logger, opts ...Option) *Renderer {
	r := &Renderer{style: style, logger: logging.NewComponentLogger(logger, "render")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderFrame returns img unchanged when ok is false; otherwise a copy with
// entry.Word drawn on it.
func (r *Renderer) RenderFrame(img image.Image, entry captions.Entry, ok bool) image.Image {
	if !ok {
		return img
	}
	canvas := image.NewRGBA(img.Bounds())
	draw.Draw(canvas, canvas.Bounds(), img, img.Bounds().Min, draw.Src)
	DrawCaption(canvas, entry.Word, r.style)
	return canvas
}

// aliaser is implemented by sinks that can tell when they write back into the
// source they read from.
type aliaser interface {
	Aliases(src FrameSource) bool
}

// Render walks every frame of src in order and writes captioned frames to
// sink. When sink aliases src, uncaptioned frames are left untouched;
// otherwise they are copied through verbatim. Cancellation is checked between
// frames.
func (r *Renderer) Render(ctx context.Context, src FrameSource, table captions.Table, sink FrameSink) (Stats, error) {
	start := time.Now()
	total := src.Len()
	stats := Stats{Frames: total}

	inPlace := false
	if a, ok := sink.(aliaser); ok {
		inPlace = a.Aliases(src)
	}

	bar := r.newBar(total)
	defer func() {
		if bar != nil {
			_ = bar.Finish()
		}
	}()

	logger := logging.WithContext(ctx, r.logger)
	sampler := logging.NewProgressSampler(10)
	cursor := captions.NewCursor(table)

	for i := 0; i < total; i++ {
		if err := services.FromContext(ctx, "render", "render frames"); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		entry, ok := cursor.At(i)
		if !ok && inPlace {
			stats.Unchanged++
			r.advance(bar, logger, sampler, i+1, total)
			continue
		}

		img, err := src.Frame(i)
		if err != nil {
			stats.Duration = time.Since(start)
			return stats, services.Wrap(services.ErrResourceOpen, "render", "read frame", frameLabel(i), err)
		}
		out := r.RenderFrame(img, entry, ok)
		if ok {
			stats.Captioned++
		} else {
			stats.Unchanged++
		}
		if err := sink.WriteFrame(i, out); err != nil {
			stats.Duration = time.Since(start)
			return stats, services.Wrap(services.ErrResourceOpen, "render", "write frame", frameLabel(i), err)
		}
		r.advance(bar, logger, sampler, i+1, total)
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

func (r *Renderer) newBar(total int) *progressbar.ProgressBar {
	if r.progress == nil || total == 0 {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.progress),
		progressbar.OptionSetDescription("Rendering captions"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *Renderer) advance(bar *progressbar.ProgressBar, logger *slog.Logger, sampler *logging.ProgressSampler, done, total int) {
	if bar != nil {
		_ = bar.Add(1)
	}
	if r.observe != nil {
		r.observe(done, total)
	}
	if percent, ok := sampler.Observe(done, total); ok {
		logger.Debug("render progress",
			logging.String(logging.FieldEventType, "render_progress"),
			logging.Int("frames_done", done),
			logging.Int("frames_total", total),
			logging.Float64("percent", percent),
		)
	}
}

func frameLabel(i int) string {
	return fmt.Sprintf("frame %d", i)
}
