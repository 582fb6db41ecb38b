package transcriptcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"visiogen/internal/captions"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "cache", "transcripts.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	key := Key{AudioSHA256: "abc123", Provider: "whisperx", Model: "large-v3", Language: "en"}

	if _, ok, err := store.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected miss on empty cache, got ok=%v err=%v", ok, err)
	}

	words := []captions.WordTiming{{Text: "hello", Start: 0, End: 0.5}, {Text: "world", Start: 0.5, End: 1}}
	if err := store.Put(ctx, key, words); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	got, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || got[1] != words[1] {
		t.Fatalf("unexpected cached words: %+v", got)
	}

	other := key
	other.Model = "small"
	if _, ok, _ := store.Get(ctx, other); ok {
		t.Fatal("different model must not share a cache entry")
	}
}

func TestPutReplacesExisting(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	key := Key{AudioSHA256: "abc", Provider: "whisper_api", Model: "whisper-1"}

	if err := store.Put(ctx, key, []captions.WordTiming{{Text: "old"}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, key, []captions.WordTiming{{Text: "new"}, {Text: "words"}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, _, _ := store.Get(ctx, key)
	if len(got) != 2 || got[0].Text != "new" {
		t.Fatalf("expected replacement, got %+v", got)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 1 || stats.Words != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestPruneRemovesStaleEntries(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return base }
	if err := store.Put(ctx, Key{AudioSHA256: "old", Provider: "p"}, nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	store.now = func() time.Time { return base.Add(20 * 24 * time.Hour) }
	if err := store.Put(ctx, Key{AudioSHA256: "fresh", Provider: "p"}, nil); err != nil {
		t.Fatalf("Put: %v", err)
	}

	removed, err := store.Prune(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", removed)
	}
	if _, ok, _ := store.Get(ctx, Key{AudioSHA256: "fresh", Provider: "p"}); !ok {
		t.Fatal("fresh entry should survive pruning")
	}
	if n, _ := store.Prune(ctx, 0); n != 0 {
		t.Fatalf("zero max age must not prune, removed %d", n)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "transcripts.db")
	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	key := Key{AudioSHA256: "persist", Provider: "whisperx"}
	if err := store.Put(ctx, key, []captions.WordTiming{{Text: "kept"}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	_ = store.Close()

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if got, ok, _ := reopened.Get(ctx, key); !ok || got[0].Text != "kept" {
		t.Fatalf("expected persisted entry, got %+v ok=%v", got, ok)
	}
}

func TestKeyValidation(t *testing.T) {
	store := openTestStore(t)
	if err := store.Put(context.Background(), Key{Provider: "p"}, nil); err == nil {
		t.Fatal("expected error for key without audio hash")
	}
	if got := (Key{AudioSHA256: "0123456789abcdef", Provider: "whisperx", Model: "m"}).String(); got != "whisperx/m/auto/0123456789ab" {
		t.Fatalf("unexpected key string %q", got)
	}
}
