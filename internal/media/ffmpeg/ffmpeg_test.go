package ffmpeg

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"visiogen/internal/logging"
	"visiogen/internal/services"
)

type recorder struct {
	name string
	args []string
	out  []byte
	err  error
}

func (r *recorder) run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.name = name
	r.args = append([]string(nil), args...)
	return r.out, r.err
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestExtractAudioArgs(t *testing.T) {
	rec := &recorder{}
	tool := New("", logging.NewNop()).WithRunner(rec.run)
	if err := tool.ExtractAudio(context.Background(), "/in/video.mp4", "/work/audio.wav"); err != nil {
		t.Fatalf("ExtractAudio returned error: %v", err)
	}
	if rec.name != "ffmpeg" {
		t.Fatalf("expected default binary, got %q", rec.name)
	}
	if argValue(rec.args, "-i") != "/in/video.mp4" || rec.args[len(rec.args)-1] != "/work/audio.wav" {
		t.Fatalf("unexpected args: %v", rec.args)
	}
	if argValue(rec.args, "-ar") != "16000" || argValue(rec.args, "-ac") != "1" {
		t.Fatalf("expected mono 16k output, got %v", rec.args)
	}
}

func TestExtractFramesArgs(t *testing.T) {
	rec := &recorder{}
	tool := New("/usr/bin/ffmpeg", logging.NewNop()).WithRunner(rec.run)
	if err := tool.ExtractFrames(context.Background(), "in.mp4", "/work/frames", "%06d.png", 29.97); err != nil {
		t.Fatalf("ExtractFrames returned error: %v", err)
	}
	if argValue(rec.args, "-r") != "29.97" {
		t.Fatalf("expected rate 29.97, got %v", rec.args)
	}
	if argValue(rec.args, "-start_number") != "0" {
		t.Fatalf("expected frames numbered from 0, got %v", rec.args)
	}
	if rec.args[len(rec.args)-1] != "/work/frames/%06d.png" {
		t.Fatalf("unexpected output pattern: %v", rec.args)
	}
	if err := tool.ExtractFrames(context.Background(), "in.mp4", "/tmp", "%06d.png", 0); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for zero rate, got %v", err)
	}
}

func TestEncodeSequenceArgs(t *testing.T) {
	rec := &recorder{}
	tool := New("ffmpeg", logging.NewNop()).WithRunner(rec.run)
	err := tool.EncodeSequence(context.Background(), EncodeRequest{
		FramePattern: "/work/frames/%06d.png",
		FrameRate:    30,
		AudioPath:    "/work/audio.wav",
		OutputPath:   "/out/final.partial.mp4",
		CRF:          20,
		Preset:       "fast",
	})
	if err != nil {
		t.Fatalf("EncodeSequence returned error: %v", err)
	}
	joined := strings.Join(rec.args, " ")
	for _, want := range []string{"-framerate 30", "-c:v libx264", "-pix_fmt yuv420p", "-c:a aac", "-crf 20", "-preset fast", "-map 1:a:0"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in %q", want, joined)
		}
	}
	if strings.Contains(joined, "-shortest") {
		t.Fatalf("encode must not trim with -shortest: %q", joined)
	}
}

func TestEncodeSequenceWithoutAudio(t *testing.T) {
	rec := &recorder{}
	tool := New("ffmpeg", logging.NewNop()).WithRunner(rec.run)
	if err := tool.EncodeSequence(context.Background(), EncodeRequest{FramePattern: "f/%06d.png", FrameRate: 24, OutputPath: "o.mp4"}); err != nil {
		t.Fatalf("EncodeSequence returned error: %v", err)
	}
	joined := strings.Join(rec.args, " ")
	if strings.Contains(joined, "-c:a") || strings.Contains(joined, "1:a:0") {
		t.Fatalf("expected no audio options, got %q", joined)
	}
}

func TestFailureClassifiedAsExternalTool(t *testing.T) {
	rec := &recorder{out: []byte("line one\n\nUnknown encoder 'libx264'\n"), err: errors.New("exit status 1")}
	tool := New("ffmpeg", logging.NewNop()).WithRunner(rec.run)
	ctx := services.WithStage(context.Background(), "assemble")
	err := tool.ExtractAudio(ctx, "a", "b")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	details := services.Details(err)
	if details.Stage != "assemble" {
		t.Fatalf("expected stage from context, got %q", details.Stage)
	}
	if !strings.Contains(details.Message, "Unknown encoder 'libx264'") {
		t.Fatalf("expected stderr tail in message, got %q", details.Message)
	}
}

func TestDeadlineClassifiedAsTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	rec := &recorder{err: errors.New("signal: killed")}
	tool := New("ffmpeg", logging.NewNop()).WithRunner(rec.run)
	if err := tool.ExtractAudio(ctx, "a", "b"); !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestTail(t *testing.T) {
	got := tail("a\nb\n\nc\nd\n", 2)
	if got != "c | d" {
		t.Fatalf("tail = %q", got)
	}
}
