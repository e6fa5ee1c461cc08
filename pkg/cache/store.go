package cache

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pario-ai/briefbench/pkg/models"
)

// DefaultWindow is how long a cached article stays fresh.
const DefaultWindow = 24 * time.Hour

const entryExt = ".txt"

// Store is an article text cache with one file per URL. The file's
// modification time is the freshness clock.
type Store struct {
	dir    string
	window time.Duration
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New opens the cache rooted at dir, creating it if needed.
func New(dir string, window time.Duration, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cache dir is required")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	s := &Store{dir: dir, window: window, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// KeyFor returns the hex MD5 of url.
func KeyFor(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Dir returns the cache root.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+entryExt)
}

// Read returns the cached content for key and its age in hours.
// ok is false when no entry exists.
func (s *Store) Read(key string) (content string, ageHours float64, ok bool, err error) {
	e, ok, err := s.Entry(key)
	if err != nil || !ok {
		return "", 0, false, err
	}
	return e.Content, s.ageHours(e.StoredAt), true, nil
}

// Entry returns the full cache entry for key.
func (s *Store) Entry(key string) (models.CacheEntry, bool, error) {
	p := s.path(key)
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("stat cache entry: %w", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("read cache entry: %w", err)
	}
	return models.CacheEntry{Key: key, Content: string(data), StoredAt: info.ModTime()}, true, nil
}

// Write stores content under key, replacing any previous entry and
// resetting its freshness clock.
func (s *Store) Write(key, content string) error {
	p := s.path(key)
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry: %w", err)
	}

	now := s.now()
	if err := os.Chtimes(p, now, now); err != nil {
		return fmt.Errorf("touch cache entry: %w", err)
	}
	return nil
}

// IsFresh reports whether an entry of the given age may be used.
// forceReuse accepts any age.
func (s *Store) IsFresh(ageHours float64, forceReuse bool) bool {
	if forceReuse {
		return true
	}
	return ageHours < s.window.Hours()
}

// Info reports whether url has a cached entry and how old it is.
// Errors read as "no entry".
func (s *Store) Info(url string) (exists bool, ageHours float64) {
	info, err := os.Stat(s.path(KeyFor(url)))
	if err != nil {
		return false, 0
	}
	return true, s.ageHours(info.ModTime())
}

// Stats counts entries, fresh entries and bytes on disk.
func (s *Store) Stats() (models.CacheStats, error) {
	var stats models.CacheStats
	err := s.walk(func(path string, info fs.FileInfo) error {
		stats.Entries++
		stats.Bytes += info.Size()
		if s.IsFresh(s.ageHours(info.ModTime()), false) {
			stats.Fresh++
		}
		return nil
	})
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return stats, nil
}

// Clear removes cache entries and returns how many were removed.
// If expiredOnly is true, only stale entries are removed.
func (s *Store) Clear(expiredOnly bool) (int, error) {
	removed := 0
	err := s.walk(func(path string, info fs.FileInfo) error {
		if expiredOnly && s.IsFresh(s.ageHours(info.ModTime()), false) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("cache clear: %w", err)
	}
	return removed, nil
}

func (s *Store) walk(fn func(path string, info fs.FileInfo) error) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), entryExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		if err := fn(filepath.Join(s.dir, e.Name()), info); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ageHours(mod time.Time) float64 {
	age := s.now().Sub(mod).Hours()
	if age < 0 {
		return 0
	}
	return age
}
