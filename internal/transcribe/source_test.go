package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"visiogen/internal/captions"
	"visiogen/internal/config"
	"visiogen/internal/logging"
	"visiogen/internal/services"
	"visiogen/internal/transcriptcache"
)

type fakeSource struct {
	calls int
	words []captions.WordTiming
	err   error
}

func (f *fakeSource) Transcribe(context.Context, string, string) ([]captions.WordTiming, error) {
	f.calls++
	return f.words, f.err
}
func (f *fakeSource) Name() string  { return "fake" }
func (f *fakeSource) Model() string { return "tiny" }

func writeAudio(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCachedServesSecondRunFromCache(t *testing.T) {
	ctx := context.Background()
	store, err := transcriptcache.Open(ctx, filepath.Join(t.TempDir(), "t.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer store.Close()

	src := &fakeSource{words: []captions.WordTiming{{Text: "hi", Start: 0, End: 1}}}
	cached := NewCached(src, store, "en", logging.NewNop())
	audio := writeAudio(t, "pcm")

	for i := 0; i < 2; i++ {
		words, err := cached.Transcribe(ctx, audio, "")
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if len(words) != 1 || words[0].Text != "hi" {
			t.Fatalf("run %d: unexpected words %+v", i, words)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected one provider call, got %d", src.calls)
	}

	if _, err := cached.Transcribe(ctx, writeAudio(t, "different pcm"), ""); err != nil {
		t.Fatalf("third run: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("different audio must miss the cache, calls = %d", src.calls)
	}
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, transcriptcache.Key) ([]captions.WordTiming, bool, error) {
	return nil, false, errors.New("disk I/O error")
}
func (brokenCache) Put(context.Context, transcriptcache.Key, []captions.WordTiming) error {
	return errors.New("disk I/O error")
}

func TestCachedToleratesCacheFailures(t *testing.T) {
	src := &fakeSource{words: []captions.WordTiming{{Text: "ok"}}}
	words, err := NewCached(src, brokenCache{}, "", logging.NewNop()).Transcribe(context.Background(), writeAudio(t, "x"), "")
	if err != nil {
		t.Fatalf("expected cache failure to be tolerated, got %v", err)
	}
	if len(words) != 1 {
		t.Fatalf("unexpected words %+v", words)
	}
}

func TestCachedPropagatesSourceError(t *testing.T) {
	src := &fakeSource{err: services.Wrap(services.ErrExternalTool, "transcribe", "fake", "boom", nil)}
	_, err := NewCached(src, brokenCache{}, "", logging.NewNop()).Transcribe(context.Background(), writeAudio(t, "x"), "")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestNewSourceSelectsProvider(t *testing.T) {
	cfg := config.Default()
	src, err := NewSource(&cfg, "")
	if err != nil || src.Name() != "whisperx" {
		t.Fatalf("expected whisperx source, got %v err=%v", src, err)
	}

	cfg.Transcription.Provider = config.ProviderWhisperAPI
	cfg.Transcription.APIURL = "http://localhost:8000"
	cfg.Transcription.Model = "whisper-1"
	src, err = NewSource(&cfg, "de")
	if err != nil || src.Name() != "whisper_api" || src.Model() != "whisper-1" {
		t.Fatalf("expected whisper api source, got %v err=%v", src, err)
	}

	cfg.Transcription.Provider = "vosk"
	if _, err := NewSource(&cfg, ""); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestOpenWithCache(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Transcription.CacheEnabled = true

	src, closeFn, err := Open(context.Background(), &cfg, "", logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	if _, ok := src.(*Cached); !ok {
		t.Fatalf("expected cached source, got %T", src)
	}
	if _, err := os.Stat(cfg.TranscriptCachePath()); err != nil {
		t.Fatalf("expected cache database: %v", err)
	}

	cfg.Transcription.CacheEnabled = false
	src, closeFn, err = Open(context.Background(), &cfg, "", logging.NewNop())
	if err != nil {
		t.Fatalf("Open without cache: %v", err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("noop close: %v", err)
	}
	if _, ok := src.(*Cached); ok {
		t.Fatal("expected uncached source")
	}
}
