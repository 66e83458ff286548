// Package cache keeps compiled macros on disk so unchanged components are not
// recompiled across runs of gen and dev.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const indexVersion = "1"

// Cache stores compile artifacts keyed by Key.
type Cache struct {
	mu       sync.RWMutex
	dir      string
	index    *Index
	maxSize  int64 // Maximum cache size in bytes
	maxAge   time.Duration
	strategy EvictionStrategy
	stats    Stats
}

// Index tracks all cached entries
type Index struct {
	Version string            `json:"version"`
	Entries map[string]*Entry `json:"entries"`
	Updated time.Time         `json:"updated"`
}

// Entry is one cached artifact
type Entry struct {
	Key         string    `json:"key"`
	Source      string    `json:"source"`
	Hash        string    `json:"hash"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	Created     time.Time `json:"created"`
	LastAccess  time.Time `json:"last_access"`
	AccessCount int       `json:"access_count"`
}

// Stats tracks cache effectiveness
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
	TotalSize  int64 `json:"total_size"`
	EntryCount int   `json:"entry_count"`
}

// EvictionStrategy defines how entries are removed when the cache is full
type EvictionStrategy int

const (
	// LRU removes least recently used entries
	LRU EvictionStrategy = iota
	// LFU removes least frequently used entries
	LFU
	// FIFO removes oldest entries first
	FIFO
)

// Config holds cache configuration
type Config struct {
	Dir      string
	MaxSize  int64         // 0 means unlimited
	MaxAge   time.Duration // 0 means entries never expire
	Strategy EvictionStrategy
}

// DefaultConfig returns the default cache configuration
func DefaultConfig() Config {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return Config{
		Dir:      filepath.Join(dir, "uimacro"),
		MaxSize:  64 << 20,
		MaxAge:   7 * 24 * time.Hour,
		Strategy: LRU,
	}
}

// New opens the cache in config.Dir, loading its index when present.
func New(config Config) (*Cache, error) {
	if config.Dir == "" {
		config.Dir = DefaultConfig().Dir
	}
	if err := os.MkdirAll(filepath.Join(config.Dir, "artifacts"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &Cache{
		dir:      config.Dir,
		maxSize:  config.MaxSize,
		maxAge:   config.MaxAge,
		strategy: config.Strategy,
		index:    newIndex(),
	}

	// A missing or unreadable index starts the cache empty.
	if err := c.loadIndex(); err != nil {
		c.index = newIndex()
	}
	return c, nil
}

func newIndex() *Index {
	return &Index{Version: indexVersion, Entries: make(map[string]*Entry), Updated: time.Now()}
}

// Key derives a cache key from every input that affects an artifact.
func Key(inputs ...string) string {
	h := sha256.New()
	for _, input := range inputs {
		h.Write([]byte(input))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached artifact
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index.Entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if c.expired(entry) {
		c.removeLocked(key, entry)
		c.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.Path)
	if err != nil {
		c.removeLocked(key, entry)
		c.stats.Misses++
		return nil, false
	}

	entry.LastAccess = time.Now()
	entry.AccessCount++
	c.stats.Hits++
	return data, true
}

// Put stores the artifact compiled from source under key. Older artifacts of
// the same source are replaced.
func (c *Cache) Put(key, source string, data []byte) error {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.index.Entries[key]; ok && existing.Hash == hash {
		return nil
	}

	size := int64(len(data))
	c.evictLocked(size)

	path := filepath.Join(c.dir, "artifacts", Key(key)[:16]+"_"+hash[:8])
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	for k, e := range c.index.Entries {
		if source != "" && e.Source == source && k != key {
			c.removeLocked(k, e)
		}
	}
	if old, ok := c.index.Entries[key]; ok {
		c.removeLocked(key, old)
	}

	now := time.Now()
	c.index.Entries[key] = &Entry{
		Key:        key,
		Source:     source,
		Hash:       hash,
		Path:       path,
		Size:       size,
		Created:    now,
		LastAccess: now,
	}
	c.index.Updated = now
	c.stats.TotalSize += size
	c.stats.EntryCount = len(c.index.Entries)
	return nil
}

// Delete removes an entry from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.index.Entries[key]; ok {
		c.removeLocked(key, entry)
	}
}

// InvalidateSource removes every artifact compiled from source and reports
// how many were dropped.
func (c *Cache) InvalidateSource(source string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, entry := range c.index.Entries {
		if entry.Source == source {
			c.removeLocked(key, entry)
			count++
		}
	}
	return count
}

// Prune drops expired entries.
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, entry := range c.index.Entries {
		if c.expired(entry) {
			c.removeLocked(key, entry)
			count++
		}
	}
	return count
}

// Clear removes all cached entries
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	artifacts := filepath.Join(c.dir, "artifacts")
	if err := os.RemoveAll(artifacts); err != nil {
		return fmt.Errorf("failed to clear artifacts: %w", err)
	}
	if err := os.MkdirAll(artifacts, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	c.index = newIndex()
	c.stats = Stats{}
	return c.saveIndexLocked()
}

// Stats returns a snapshot of cache statistics
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Close persists the index.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveIndexLocked()
}

func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(c.dir, "index.json"))
	if err != nil {
		return err
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return err
	}
	if index.Version != indexVersion || index.Entries == nil {
		return fmt.Errorf("unsupported cache index version %q", index.Version)
	}

	c.index = &index
	for _, entry := range index.Entries {
		c.stats.TotalSize += entry.Size
	}
	c.stats.EntryCount = len(index.Entries)
	return nil
}

func (c *Cache) saveIndexLocked() error {
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(c.dir, "index.json.tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache index: %w", err)
	}
	return os.Rename(tmp, filepath.Join(c.dir, "index.json"))
}

func (c *Cache) expired(entry *Entry) bool {
	if c.maxAge <= 0 {
		return false
	}
	return time.Since(entry.Created) > c.maxAge
}

func (c *Cache) evictLocked(needed int64) {
	if c.maxSize <= 0 {
		return
	}

	for c.stats.TotalSize+needed > c.maxSize && len(c.index.Entries) > 0 {
		var victim *Entry
		for _, entry := range c.index.Entries {
			if victim == nil || c.before(entry, victim) {
				victim = entry
			}
		}
		c.removeLocked(victim.Key, victim)
		c.stats.Evictions++
	}
}

// before reports whether a should be evicted ahead of b. Ties fall back to
// the key so eviction order does not depend on map iteration.
func (c *Cache) before(a, b *Entry) bool {
	switch c.strategy {
	case LFU:
		if a.AccessCount != b.AccessCount {
			return a.AccessCount < b.AccessCount
		}
	case FIFO:
		if !a.Created.Equal(b.Created) {
			return a.Created.Before(b.Created)
		}
	default:
		if !a.LastAccess.Equal(b.LastAccess) {
			return a.LastAccess.Before(b.LastAccess)
		}
	}
	return strings.Compare(a.Key, b.Key) < 0
}

func (c *Cache) removeLocked(key string, entry *Entry) {
	if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to remove cache file %s: %v\n", entry.Path, err)
	}
	delete(c.index.Entries, key)
	c.stats.TotalSize -= entry.Size
	c.stats.EntryCount = len(c.index.Entries)
	c.index.Updated = time.Now()
}
