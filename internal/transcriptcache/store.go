package transcriptcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"visiogen/internal/captions"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Key identifies one cached transcript.
type Key struct {
	AudioSHA256 string
	Provider    string
	Model       string
	Language    string
}

func (k Key) String() string {
	lang := k.Language
	if lang == "" {
		lang = "auto"
	}
	short := k.AudioSHA256
	if len(short) > 12 {
		short = short[:12]
	}
	return fmt.Sprintf("%s/%s/%s/%s", k.Provider, k.Model, lang, short)
}

func (k Key) validate() error {
	if strings.TrimSpace(k.AudioSHA256) == "" || strings.TrimSpace(k.Provider) == "" {
		return errors.New("transcript cache key requires audio hash and provider")
	}
	return nil
}

// Stats summarises cache contents.
type Stats struct {
	Entries  int
	Words    int
	Oldest   time.Time
	Newest   time.Time
	Path     string
	SizeByte int64
}

// Store is a SQLite-backed transcript cache.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the cache database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns the cached words for key. The bool is false on a miss.
func (s *Store) Get(ctx context.Context, key Key) ([]captions.WordTiming, bool, error) {
	if err := key.validate(); err != nil {
		return nil, false, err
	}
	var raw string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT words_json FROM transcripts
			 WHERE audio_sha256 = ? AND provider = ? AND model = ? AND language = ?`,
			key.AudioSHA256, key.Provider, key.Model, key.Language,
		).Scan(&raw)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query transcript %s: %w", key, err)
	}

	var words []captions.WordTiming
	if err := json.Unmarshal([]byte(raw), &words); err != nil {
		return nil, false, fmt.Errorf("decode transcript %s: %w", key, err)
	}

	_ = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`UPDATE transcripts SET last_used_at = ?
			 WHERE audio_sha256 = ? AND provider = ? AND model = ? AND language = ?`,
			s.timestamp(), key.AudioSHA256, key.Provider, key.Model, key.Language)
		return execErr
	})
	return words, true, nil
}

// Put stores words under key, replacing any previous entry.
func (s *Store) Put(ctx context.Context, key Key, words []captions.WordTiming) error {
	if err := key.validate(); err != nil {
		return err
	}
	if words == nil {
		words = []captions.WordTiming{}
	}
	payload, err := json.Marshal(words)
	if err != nil {
		return fmt.Errorf("encode transcript %s: %w", key, err)
	}
	now := s.timestamp()
	return retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO transcripts (audio_sha256, provider, model, language, words_json, word_count, created_at, last_used_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(audio_sha256, provider, model, language) DO UPDATE SET
			   words_json = excluded.words_json,
			   word_count = excluded.word_count,
			   created_at = excluded.created_at,
			   last_used_at = excluded.last_used_at`,
			key.AudioSHA256, key.Provider, key.Model, key.Language, string(payload), len(words), now, now)
		if execErr != nil {
			return fmt.Errorf("store transcript %s: %w", key, execErr)
		}
		return nil
	})
}

// Prune removes entries not used within maxAge. A non-positive maxAge is a no-op.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-maxAge).UTC().Format(timeLayout)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, "DELETE FROM transcripts WHERE last_used_at < ?", cutoff)
		if execErr != nil {
			return execErr
		}
		removed, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("prune transcripts: %w", err)
	}
	return removed, nil
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, "DELETE FROM transcripts")
		if execErr != nil {
			return execErr
		}
		removed, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("clear transcripts: %w", err)
	}
	return removed, nil
}

// Stats reports entry counts and age range.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Path: s.path}
	var (
		words          sql.NullInt64
		oldest, newest sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1), SUM(word_count), MIN(created_at), MAX(created_at) FROM transcripts",
	).Scan(&stats.Entries, &words, &oldest, &newest)
	if err != nil {
		return stats, fmt.Errorf("transcript cache stats: %w", err)
	}
	stats.Words = int(words.Int64)
	if oldest.Valid {
		stats.Oldest, _ = time.Parse(timeLayout, oldest.String)
	}
	if newest.Valid {
		stats.Newest, _ = time.Parse(timeLayout, newest.String)
	}
	if info, err := os.Stat(s.path); err == nil {
		stats.SizeByte = info.Size()
	}
	return stats, nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}
