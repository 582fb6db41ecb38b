package staging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"visiogen/internal/logging"
	"visiogen/internal/services"
)

const (
	framesDirName = "frames"
	audioFileName = "audio.wav"
)

// Workspace is a locked scratch directory for a single run.
type Workspace struct {
	root     string
	lockPath string
	lock     *flock.Flock
	logger   *slog.Logger
}

// Acquire takes the scratch lock and creates root with its frames directory.
// It fails with services.ErrResourceOpen when another run holds the lock.
func Acquire(root, lockPath string, logger *slog.Logger) (*Workspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "staging", "acquire workspace", "scratch directory not configured", nil)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, services.Wrap(services.ErrResourceOpen, "staging", "create lock dir", filepath.Dir(lockPath), err)
	}

	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrResourceOpen, "staging", "acquire lock", lockPath, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrResourceOpen, "staging", "acquire lock",
			fmt.Sprintf("another run holds %s", lockPath), nil)
	}

	ws := &Workspace{
		root:     root,
		lockPath: lockPath,
		lock:     lock,
		logger:   logging.NewComponentLogger(logger, "staging"),
	}
	// A previous run that died mid-flight may have left frames behind.
	if err := os.RemoveAll(root); err != nil {
		_ = lock.Unlock()
		return nil, services.Wrap(services.ErrResourceOpen, "staging", "reset workspace", root, err)
	}
	if err := os.MkdirAll(ws.FramesDir(), 0o755); err != nil {
		_ = lock.Unlock()
		return nil, services.Wrap(services.ErrResourceOpen, "staging", "create workspace", root, err)
	}
	return ws, nil
}

// Root returns the workspace directory.
func (w *Workspace) Root() string { return w.root }

// FramesDir is where extracted frames live.
func (w *Workspace) FramesDir() string { return filepath.Join(w.root, framesDirName) }

// AudioPath is where the extracted audio track is written.
func (w *Workspace) AudioPath() string { return filepath.Join(w.root, audioFileName) }

// Release removes the workspace and drops the lock. It is safe to call more
// than once.
func (w *Workspace) Release() error {
	if w == nil || w.lock == nil {
		return nil
	}
	removeErr := os.RemoveAll(w.root)
	if removeErr != nil {
		logging.WarnWithContext(w.logger, "failed to remove scratch workspace", "staging_cleanup_failed",
			logging.String("path", w.root),
			logging.Error(removeErr),
			logging.String(logging.FieldErrorHint, "run visiogen clean or remove the directory manually"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
	}
	unlockErr := w.lock.Unlock()
	w.lock = nil
	if removeErr != nil {
		return removeErr
	}
	if unlockErr != nil {
		return fmt.Errorf("release lock %s: %w", w.lockPath, unlockErr)
	}
	return nil
}

// Locked reports whether some process currently holds the lock at lockPath.
func Locked(lockPath string) (bool, error) {
	if _, err := os.Stat(lockPath); os.IsNotExist(err) {
		return false, nil
	}
	probe := flock.New(lockPath)
	ok, err := probe.TryLock()
	if err != nil {
		return false, err
	}
	if ok {
		_ = probe.Unlock()
		return false, nil
	}
	return true, nil
}

// HoldIdle takes the lock at lockPath for maintenance work when no run holds
// it. busy is true when another process owns the lock; release is then a
// no-op. Otherwise the caller owns the lock until release is called.
func HoldIdle(lockPath string) (release func() error, busy bool, err error) {
	noop := func() error { return nil }
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return noop, false, services.Wrap(services.ErrResourceOpen, "staging", "create lock dir", filepath.Dir(lockPath), err)
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return noop, false, services.Wrap(services.ErrResourceOpen, "staging", "acquire lock", lockPath, err)
	}
	if !ok {
		return noop, true, nil
	}
	return lock.Unlock, false, nil
}
