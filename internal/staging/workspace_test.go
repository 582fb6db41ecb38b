package staging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"visiogen/internal/logging"
	"visiogen/internal/services"
)

func TestAcquireCreatesAndReleaseRemoves(t *testing.T) {
	scratch := t.TempDir()
	root := filepath.Join(scratch, "work")
	lockPath := filepath.Join(scratch, "visiogen.lock")

	// Leftovers from a killed run are discarded.
	makeDir(t, filepath.Join(root, "frames"), 0)
	stale := filepath.Join(root, "frames", "000001.png")
	if err := os.WriteFile(stale, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ws, err := Acquire(root, lockPath, logging.NewNop())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale frame removed, stat err = %v", err)
	}
	if info, err := os.Stat(ws.FramesDir()); err != nil || !info.IsDir() {
		t.Fatalf("frames dir missing: %v", err)
	}
	if ws.AudioPath() != filepath.Join(root, "audio.wav") {
		t.Fatalf("unexpected audio path %s", ws.AudioPath())
	}
	if locked, err := Locked(lockPath); err != nil || !locked {
		t.Fatalf("expected lock held, locked=%v err=%v", locked, err)
	}

	if err := ws.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Fatalf("expected workspace removed, stat err = %v", err)
	}
	if locked, err := Locked(lockPath); err != nil || locked {
		t.Fatalf("expected lock released, locked=%v err=%v", locked, err)
	}
	if err := ws.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func TestAcquireRejectsConcurrentRun(t *testing.T) {
	scratch := t.TempDir()
	lockPath := filepath.Join(scratch, "visiogen.lock")

	first, err := Acquire(filepath.Join(scratch, "work"), lockPath, logging.NewNop())
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer first.Release()

	_, err = Acquire(filepath.Join(scratch, "work"), lockPath, logging.NewNop())
	if !errors.Is(err, services.ErrResourceOpen) {
		t.Fatalf("expected ErrResourceOpen, got %v", err)
	}
	if _, statErr := os.Stat(first.FramesDir()); statErr != nil {
		t.Fatalf("losing run must not touch the holder's workspace: %v", statErr)
	}
}

func TestAcquireRequiresRoot(t *testing.T) {
	_, err := Acquire("  ", filepath.Join(t.TempDir(), "l"), logging.NewNop())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestLockedWithoutLockFile(t *testing.T) {
	locked, err := Locked(filepath.Join(t.TempDir(), "absent.lock"))
	if err != nil || locked {
		t.Fatalf("expected unlocked, got %v err=%v", locked, err)
	}
}

func TestHoldIdleBlocksAcquire(t *testing.T) {
	scratch := t.TempDir()
	lockPath := filepath.Join(scratch, "visiogen.lock")

	release, busy, err := HoldIdle(lockPath)
	if err != nil || busy {
		t.Fatalf("HoldIdle: busy=%v err=%v", busy, err)
	}
	if _, err := Acquire(filepath.Join(scratch, "work"), lockPath, logging.NewNop()); !errors.Is(err, services.ErrResourceOpen) {
		t.Fatalf("expected Acquire to fail while held, got %v", err)
	}
	if err := release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	ws, err := Acquire(filepath.Join(scratch, "work"), lockPath, logging.NewNop())
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	defer ws.Release()

	release, busy, err = HoldIdle(lockPath)
	if err != nil || !busy {
		t.Fatalf("expected busy while a run holds the lock, busy=%v err=%v", busy, err)
	}
	if err := release(); err != nil {
		t.Fatalf("no-op release: %v", err)
	}
}
