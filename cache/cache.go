package cache

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
)

const entrySuffix = ".cache"

// CacheConfig controls the reply cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Dir     string        `mapstructure:"dir"`
	MaxAge  time.Duration `mapstructure:"max_age"`
}

// CacheEntry is one stored reply.
type CacheEntry struct {
	Key       string
	Model     string
	Reply     string
	Timestamp time.Time
}

// ReplyCache stores raw provider replies on disk, one gob file per key.
type ReplyCache struct {
	dir    string
	maxAge time.Duration
	mutex  sync.RWMutex
	stats  *CacheStats
}

// NewReplyCache opens (creating if needed) a cache rooted at dir. An empty dir
// means ".cache" under the working directory. maxAge <= 0 keeps entries
// forever.
func NewReplyCache(dir string, maxAge time.Duration) (*ReplyCache, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
		dir = filepath.Join(cwd, ".cache")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &ReplyCache{
		dir:    dir,
		maxAge: maxAge,
		stats:  &CacheStats{LastResetTime: time.Now()},
	}, nil
}

// Dir returns the cache directory.
func (c *ReplyCache) Dir() string { return c.dir }

// Key derives the cache key for a model and prompt text.
func Key(model, payload string) string {
	hash := xxh3.HashString128(model + "\x00" + payload).Bytes()
	return fmt.Sprintf("%x", hash[:])
}

func (c *ReplyCache) path(key string) string {
	return filepath.Join(c.dir, key+entrySuffix)
}

// Get returns the reply stored under key. Expired or unreadable entries are
// removed and reported as misses.
func (c *ReplyCache) Get(key string) (string, bool) {
	c.mutex.RLock()
	entry, err := c.read(key)
	c.mutex.RUnlock()

	if err != nil {
		c.stats.recordMiss()
		return "", false
	}
	if c.expired(entry.Timestamp) {
		_ = c.Delete(key)
		c.stats.recordMiss()
		return "", false
	}

	c.stats.recordHit()
	return entry.Reply, true
}

// Set stores reply under key. The file is written to a temporary name first
// and renamed into place.
func (c *ReplyCache) Set(key, model, reply string) error {
	entry := CacheEntry{Key: key, Model: model, Reply: reply, Timestamp: time.Now()}

	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(entry); err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if _, err := tmp.Write(buffer.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Delete removes a cache entry.
func (c *ReplyCache) Delete(key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Clear removes every entry, recreates the empty directory and resets the
// hit and miss counters.
func (c *ReplyCache) Clear() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	c.ResetPerformanceStats()
	return os.MkdirAll(c.dir, 0o755)
}

// CleanExpired removes entries older than maxAge and returns how many were
// removed.
func (c *ReplyCache) CleanExpired(maxAge time.Duration) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entries, err := c.entries()
	if err != nil {
		return 0, err
	}

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, name := range entries {
		entry, err := c.read(strings.TrimSuffix(name, entrySuffix))
		if err == nil && entry.Timestamp.After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove expired cache file: %w", err)
		}
		removed++
	}
	return removed, nil
}

// Stats reports disk usage and hit/miss counters.
func (c *ReplyCache) Stats() (Stats, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entries, err := c.entries()
	if err != nil {
		return Stats{}, err
	}

	stats := c.stats.snapshot()
	stats.Dir = c.dir
	stats.Entries = len(entries)
	for _, name := range entries {
		if info, err := os.Stat(filepath.Join(c.dir, name)); err == nil {
			stats.TotalSizeBytes += info.Size()
		}
	}
	return stats, nil
}

func (c *ReplyCache) read(key string) (*CacheEntry, error) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, err
	}
	var entry CacheEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &entry, nil
}

func (c *ReplyCache) entries() ([]string, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}
	var names []string
	for _, entry := range dirEntries {
		if entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), entrySuffix) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func (c *ReplyCache) expired(ts time.Time) bool {
	return c.maxAge > 0 && time.Since(ts) > c.maxAge
}
