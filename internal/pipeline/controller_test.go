package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"visiogen/internal/assemble"
	"visiogen/internal/captions"
	"visiogen/internal/config"
	"visiogen/internal/logging"
	"visiogen/internal/media/ffmpeg"
	"visiogen/internal/media/ffprobe"
	"visiogen/internal/preflight"
	"visiogen/internal/services"
)

type fakeMedia struct {
	frames       int
	afterFrames  func()
	encodeErr    error
	encoded      ffmpeg.EncodeRequest
	framesAtEnc  map[int][]byte
	audioSources []string
}

func (f *fakeMedia) ExtractAudio(_ context.Context, src, dest string) error {
	f.audioSources = append(f.audioSources, src)
	return os.WriteFile(dest, []byte("pcm:"+src), 0o644)
}

func (f *fakeMedia) ExtractFrames(_ context.Context, _, dir, pattern string, _ float64) error {
	for i := 0; i < f.frames; i++ {
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf(pattern, i)), greyFrame(), 0o644); err != nil {
			return err
		}
	}
	if f.afterFrames != nil {
		f.afterFrames()
	}
	return nil
}

func (f *fakeMedia) EncodeSequence(_ context.Context, req ffmpeg.EncodeRequest) error {
	f.encoded = req
	f.framesAtEnc = map[int][]byte{}
	for i := 0; i < f.frames; i++ {
		data, err := os.ReadFile(fmt.Sprintf(req.FramePattern, i))
		if err != nil {
			return err
		}
		f.framesAtEnc[i] = data
	}
	if err := os.WriteFile(req.OutputPath, []byte("mp4"), 0o644); err != nil {
		return err
	}
	return f.encodeErr
}

func greyFrame() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 96, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 96; x++ {
			img.Set(x, y, color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func fakeProbe(context.Context, string) (ffprobe.Result, error) {
	return ffprobe.Result{Streams: []ffprobe.Stream{
		{CodecType: "video", AvgFrameRate: "10/1", NBFrames: "12"},
		{CodecType: "audio"},
	}}, nil
}

type fakeSource struct {
	words []captions.WordTiming
	err   error
	calls int
}

func (f *fakeSource) Transcribe(_ context.Context, audioPath, _ string) ([]captions.WordTiming, error) {
	f.calls++
	if _, err := os.Stat(audioPath); err != nil {
		return nil, err
	}
	return f.words, f.err
}
func (f *fakeSource) Name() string  { return "fake" }
func (f *fakeSource) Model() string { return "test" }

type fixture struct {
	cfg    *config.Config
	video  string
	media  *fakeMedia
	source *fakeSource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ScratchDir = filepath.Join(root, "scratch")
	cfg.Paths.OutputDir = filepath.Join(root, "out")
	cfg.Paths.CacheDir = filepath.Join(root, "cache")
	cfg.Render.FontSize = 12
	cfg.Render.BottomOffset = 16
	cfg.Render.OutlineThickness = 1

	video := filepath.Join(root, "clip.mp4")
	if err := os.WriteFile(video, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return &fixture{
		cfg:   &cfg,
		video: video,
		media: &fakeMedia{frames: 12},
		source: &fakeSource{words: []captions.WordTiming{
			{Text: "hello", Start: 0, End: 0.5},
			{Text: "world", Start: 0.5, End: 1.0},
		}},
	}
}

func (f *fixture) controller(t *testing.T) *Controller {
	t.Helper()
	c, err := New(f.cfg, logging.NewNop(),
		WithMedia(f.media),
		WithProber(fakeProbe),
		WithSource(f.source),
		WithPreflight(nil),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.newRunID = func() string { return "run-1" }
	return c
}

func assertNoScratch(t *testing.T, cfg *config.Config) {
	t.Helper()
	if _, err := os.Stat(cfg.WorkDir()); !os.IsNotExist(err) {
		entries, _ := os.ReadDir(cfg.WorkDir())
		t.Fatalf("expected no scratch workspace, stat err = %v, entries = %v", err, entries)
	}
}

func TestRunProducesCaptionedOutput(t *testing.T) {
	f := newFixture(t)
	result, err := f.controller(t).Run(context.Background(), Job{VideoPath: f.video, DisplayText: "hello world"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := captions.Table{{Word: "hello", StartFrame: 0, EndFrame: 5}, {Word: "world", StartFrame: 5, EndFrame: 10}}
	if len(result.Captions) != len(want) {
		t.Fatalf("captions = %+v", result.Captions)
	}
	for i := range want {
		if result.Captions[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, result.Captions[i], want[i])
		}
	}
	if result.Mismatch != nil {
		t.Fatalf("unexpected mismatch %+v", result.Mismatch)
	}
	if result.RunID != "run-1" || result.FrameRate != 10 || result.Frames != 12 || result.Captioned != 11 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Font != "go-bold" {
		t.Fatalf("font = %q, want go-bold", result.Font)
	}

	wantOut := filepath.Join(f.cfg.Paths.OutputDir, "clip-captioned.mp4")
	if result.OutputPath != wantOut {
		t.Fatalf("output = %s, want %s", result.OutputPath, wantOut)
	}
	if _, err := os.Stat(wantOut); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if f.media.encoded.FrameRate != 10 || f.media.encoded.AudioPath != f.video {
		t.Fatalf("unexpected encode request %+v", f.media.encoded)
	}

	original := greyFrame()
	if bytes.Equal(f.media.framesAtEnc[0], original) {
		t.Fatal("captioned frame 0 was not modified")
	}
	if !bytes.Equal(f.media.framesAtEnc[11], original) {
		t.Fatal("uncaptioned frame 11 must be byte-identical to the source")
	}
	assertNoScratch(t, f.cfg)
}

func TestRunEmptyTextFailsBeforeAnyWork(t *testing.T) {
	f := newFixture(t)
	for _, text := range []string{"", "   \n\t"} {
		_, err := f.controller(t).Run(context.Background(), Job{VideoPath: f.video, DisplayText: text})
		if !errors.Is(err, services.ErrMissingInput) {
			t.Fatalf("expected ErrMissingInput for %q, got %v", text, err)
		}
	}
	if f.source.calls != 0 || len(f.media.audioSources) != 0 {
		t.Fatal("no stage may run for empty display text")
	}
	if _, err := os.Stat(f.cfg.Paths.ScratchDir); !os.IsNotExist(err) {
		t.Fatalf("scratch dir must not be created, stat err = %v", err)
	}
}

func TestRunMissingVideo(t *testing.T) {
	f := newFixture(t)
	_, err := f.controller(t).Run(context.Background(), Job{VideoPath: f.video + ".missing", DisplayText: "hi"})
	if !errors.Is(err, services.ErrResourceOpen) {
		t.Fatalf("expected ErrResourceOpen, got %v", err)
	}
}

func TestRunSelectsClipByVideoType(t *testing.T) {
	f := newFixture(t)
	f.cfg.Videos.Clips = map[string]string{"subway": f.video}
	result, err := f.controller(t).Run(context.Background(), Job{VideoType: "Subway", DisplayText: "hello world"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.media.audioSources) != 1 || f.media.audioSources[0] != f.video {
		t.Fatalf("expected audio from subway clip, got %v", f.media.audioSources)
	}
	if filepath.Base(result.OutputPath) != "clip-captioned.mp4" {
		t.Fatalf("unexpected output %s", result.OutputPath)
	}

	_, err = f.controller(t).Run(context.Background(), Job{VideoType: "minecraft", DisplayText: "x"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for unconfigured type, got %v", err)
	}
}

func TestRunNarrationAudioOverride(t *testing.T) {
	f := newFixture(t)
	narration := filepath.Join(filepath.Dir(f.video), "narration.mp3")
	if err := os.WriteFile(narration, []byte("mp3"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := f.controller(t).Run(context.Background(), Job{VideoPath: f.video, AudioPath: narration, DisplayText: "hello world"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.media.audioSources[0] != narration || f.media.encoded.AudioPath != narration {
		t.Fatalf("expected narration used for transcription and mux, got %v / %s", f.media.audioSources, f.media.encoded.AudioPath)
	}
}

func TestRunReportsMismatch(t *testing.T) {
	f := newFixture(t)
	f.source.words = []captions.WordTiming{{Text: "a", Start: 0, End: 1}}
	result, err := f.controller(t).Run(context.Background(), Job{VideoPath: f.video, DisplayText: "a b c"})
	if err != nil {
		t.Fatalf("mismatch must not fail the run: %v", err)
	}
	if result.Mismatch == nil || result.Mismatch.DisplayWords != 3 || result.Mismatch.TimedWords != 1 {
		t.Fatalf("unexpected mismatch %+v", result.Mismatch)
	}
	want := captions.Table{{Word: "a", StartFrame: 0, EndFrame: 10}, {Word: "b"}, {Word: "c"}}
	for i := range want {
		if result.Captions[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, result.Captions[i], want[i])
		}
	}
}

func TestRunEncodeFailureLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	f.media.encodeErr = services.Wrap(services.ErrExternalTool, "assemble", "encode", "ffmpeg exited 1", nil)
	out := filepath.Join(t.TempDir(), "final.mp4")

	_, err := f.controller(t).Run(context.Background(), Job{VideoPath: f.video, DisplayText: "hello world", OutputPath: out})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if got := services.Details(err); got.Kind == "" || got.Message == "" {
		t.Fatalf("expected structured failure, got %+v", got)
	}
	entries, _ := os.ReadDir(filepath.Dir(out))
	if len(entries) != 0 {
		t.Fatalf("expected no output files, found %v", entries)
	}
	assertNoScratch(t, f.cfg)
}

func TestRunCanceledCleansScratch(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.media.afterFrames = cancel

	_, err := f.controller(t).Run(ctx, Job{VideoPath: f.video, DisplayText: "hello world"})
	if !errors.Is(err, services.ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if f.media.encoded.OutputPath != "" {
		t.Fatal("assembly must not start after cancellation")
	}
	assertNoScratch(t, f.cfg)

	// The lock is released so the next run can proceed.
	if _, err := f.controller(t).Run(context.Background(), Job{VideoPath: f.video, DisplayText: "hello world"}); err != nil {
		t.Fatalf("follow-up run: %v", err)
	}
}

func TestRunCanceledMidRenderCleansScratch(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := filepath.Join(t.TempDir(), "final.mp4")

	c := f.controller(t)
	var rendered int
	c.onFrame = func(done, _ int) {
		rendered = done
		if done == 3 {
			cancel()
		}
	}

	_, err := c.Run(ctx, Job{VideoPath: f.video, DisplayText: "hello world", OutputPath: out})
	if !errors.Is(err, services.ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if rendered != 3 {
		t.Fatalf("expected rendering to stop after 3 frames, got %d", rendered)
	}
	if f.media.encoded.OutputPath != "" {
		t.Fatal("assembly must not start after cancellation")
	}
	for _, path := range []string{out, assemble.PartialPath(out)} {
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			t.Fatalf("expected %s absent, stat err = %v", path, statErr)
		}
	}
	assertNoScratch(t, f.cfg)
}

func TestRunPreflightFailure(t *testing.T) {
	f := newFixture(t)
	c := f.controller(t)
	c.preflight = func(context.Context, *config.Config) []preflight.Result {
		return []preflight.Result{{Name: "Scratch directory", Detail: "not writable"}}
	}
	_, err := c.Run(context.Background(), Job{VideoPath: f.video, DisplayText: "hi"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	assertNoScratch(t, f.cfg)
}

func TestRunRejectsOutputOverInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.controller(t).Run(context.Background(), Job{VideoPath: f.video, DisplayText: "hi", OutputPath: f.video})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
