package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"visiogen/internal/logging"
)

func makeDir(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	if age > 0 {
		stamp := time.Now().Add(-age)
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			t.Fatalf("set time: %v", err)
		}
	}
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, nil, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStale(t *testing.T) {
	tmpDir := t.TempDir()
	oldDir := filepath.Join(tmpDir, "old")
	activeDir := filepath.Join(tmpDir, "work")
	recentDir := filepath.Join(tmpDir, "recent")
	makeDir(t, oldDir, 2*time.Hour)
	makeDir(t, activeDir, 2*time.Hour)
	makeDir(t, recentDir, 0)

	oldFile := filepath.Join(tmpDir, "visiogen.lock")
	if err := os.WriteFile(oldFile, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	skip := map[string]struct{}{activeDir: {}}
	result := CleanStale(context.Background(), tmpDir, skip, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("expected only %s removed, got %v", oldDir, result.Removed)
	}
	for _, keep := range []string{activeDir, recentDir, oldFile} {
		if _, err := os.Stat(keep); err != nil {
			t.Errorf("%s should still exist: %v", keep, err)
		}
	}
}

func TestListDirectories(t *testing.T) {
	for _, path := range []string{"", "/nonexistent/path/12345"} {
		dirs, err := ListDirectories(path)
		if err != nil || dirs != nil {
			t.Fatalf("expected nil result for %q, got %v err=%v", path, dirs, err)
		}
	}

	tmpDir := t.TempDir()
	work := filepath.Join(tmpDir, "work")
	makeDir(t, filepath.Join(work, "frames"), 0)
	if err := os.WriteFile(filepath.Join(work, "frames", "000000.png"), []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "visiogen.lock"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	dirs, err := ListDirectories(tmpDir)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 1 {
		t.Fatalf("expected 1 directory, got %d", len(dirs))
	}
	info := dirs[0]
	if info.Name != "work" || info.Path != work || info.Size != 5 || info.ModTime.IsZero() {
		t.Fatalf("unexpected dir info %+v", info)
	}
}
