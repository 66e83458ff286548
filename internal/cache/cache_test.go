package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newCache(t *testing.T, config Config) *Cache {
	t.Helper()
	if config.Dir == "" {
		config.Dir = t.TempDir()
	}
	c, err := New(config)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	return c
}

func TestCache_GetPut(t *testing.T) {
	cache := newCache(t, Config{MaxSize: 1 << 20, MaxAge: time.Hour})

	key := Key("jinja", "button.html", "<button></button>")
	data := []byte("{% macro button() -%}")

	if err := cache.Put(key, "button.html", data); err != nil {
		t.Fatalf("Failed to put data: %v", err)
	}

	retrieved, found := cache.Get(key)
	if !found {
		t.Fatal("Data not found in cache")
	}
	if !bytes.Equal(retrieved, data) {
		t.Errorf("Retrieved data doesn't match: got %s, want %s", retrieved, data)
	}

	if _, found := cache.Get("non-existent"); found {
		t.Error("Found non-existent key")
	}

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %+v", stats)
	}
	if stats.EntryCount != 1 || stats.TotalSize != int64(len(data)) {
		t.Errorf("Unexpected size accounting: %+v", stats)
	}
}

func TestCache_PutReplacesSource(t *testing.T) {
	cache := newCache(t, Config{})

	old := Key("jinja", "v1")
	if err := cache.Put(old, "card.html", []byte("first")); err != nil {
		t.Fatalf("Failed to put data: %v", err)
	}
	updated := Key("jinja", "v2")
	if err := cache.Put(updated, "card.html", []byte("second")); err != nil {
		t.Fatalf("Failed to put data: %v", err)
	}

	if _, found := cache.Get(old); found {
		t.Error("Stale artifact of the same source survived")
	}
	if data, found := cache.Get(updated); !found || string(data) != "second" {
		t.Errorf("Get(updated) = %q, %v", data, found)
	}
	if n := cache.Stats().EntryCount; n != 1 {
		t.Errorf("Expected 1 entry, got %d", n)
	}
}

func TestCache_InvalidateSource(t *testing.T) {
	cache := newCache(t, Config{})

	cache.Put(Key("a"), "a.html", []byte("a"))
	cache.Put(Key("b"), "b.html", []byte("b"))

	if n := cache.InvalidateSource("a.html"); n != 1 {
		t.Errorf("Expected 1 invalidated entry, got %d", n)
	}
	if _, found := cache.Get(Key("a")); found {
		t.Error("Invalidated entry still present")
	}
	if _, found := cache.Get(Key("b")); !found {
		t.Error("Unrelated entry was invalidated")
	}

	cache.Delete(Key("b"))
	cache.Delete(Key("b"))
	if n := cache.Stats().EntryCount; n != 0 {
		t.Errorf("Expected empty cache, got %d entries", n)
	}
}

func TestCache_Eviction(t *testing.T) {
	tests := []struct {
		name     string
		strategy EvictionStrategy
		touch    string
		evicted  string
	}{
		{name: "LRU", strategy: LRU, touch: "key1", evicted: "key2"},
		{name: "LFU", strategy: LFU, touch: "key1", evicted: "key2"},
		{name: "FIFO", strategy: FIFO, touch: "key1", evicted: "key1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newCache(t, Config{MaxSize: 100, Strategy: tt.strategy})

			cache.Put("key1", "one", bytes.Repeat([]byte("a"), 40))
			time.Sleep(10 * time.Millisecond)
			cache.Put("key2", "two", bytes.Repeat([]byte("b"), 40))
			time.Sleep(10 * time.Millisecond)

			cache.Get(tt.touch)
			time.Sleep(10 * time.Millisecond)

			cache.Put("key3", "three", bytes.Repeat([]byte("c"), 40))

			for _, key := range []string{"key1", "key2", "key3"} {
				cache.mu.RLock()
				_, present := cache.index.Entries[key]
				cache.mu.RUnlock()
				if want := key != tt.evicted; present != want {
					t.Errorf("%s present = %v, want %v", key, present, want)
				}
			}
			if ev := cache.Stats().Evictions; ev != 1 {
				t.Errorf("Expected 1 eviction, got %d", ev)
			}
		})
	}
}

func TestCache_Expiration(t *testing.T) {
	cache := newCache(t, Config{MaxAge: 50 * time.Millisecond})

	cache.Put("short", "s.html", []byte("data"))
	if _, found := cache.Get("short"); !found {
		t.Fatal("Entry missing before expiry")
	}

	time.Sleep(80 * time.Millisecond)
	if n := cache.Prune(); n != 1 {
		t.Errorf("Expected Prune to drop 1 entry, got %d", n)
	}
	if _, found := cache.Get("short"); found {
		t.Error("Expired entry returned")
	}
}

func TestCache_Clear(t *testing.T) {
	dir := t.TempDir()
	cache := newCache(t, Config{Dir: dir})

	for i := 0; i < 5; i++ {
		cache.Put(fmt.Sprintf("key-%d", i), fmt.Sprintf("%d.html", i), []byte("data"))
	}
	if err := cache.Clear(); err != nil {
		t.Fatalf("Failed to clear cache: %v", err)
	}

	if stats := cache.Stats(); stats.EntryCount != 0 || stats.TotalSize != 0 {
		t.Errorf("Cache not empty after clear: %+v", stats)
	}
	files, err := os.ReadDir(filepath.Join(dir, "artifacts"))
	if err != nil {
		t.Fatalf("Failed to read artifacts dir: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("Expected no artifacts, found %d", len(files))
	}
}

func TestCache_Concurrent(t *testing.T) {
	cache := newCache(t, Config{MaxSize: 10 << 20})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				key := fmt.Sprintf("key-%d-%d", id, j)
				data := []byte(fmt.Sprintf("data-%d-%d", id, j))

				if err := cache.Put(key, key, data); err != nil {
					t.Errorf("Failed to put: %v", err)
				}
				retrieved, found := cache.Get(key)
				if !found || !bytes.Equal(retrieved, data) {
					t.Errorf("Data mismatch for key %s", key)
				}
				if j%10 == 0 {
					cache.Delete(key)
				}
			}
		}(i)
	}
	wg.Wait()

	stats := cache.Stats()
	if stats.EntryCount != 10*45 {
		t.Errorf("Expected %d entries, got %d", 10*45, stats.EntryCount)
	}
	if stats.TotalSize < 0 {
		t.Errorf("Invalid total size: %d", stats.TotalSize)
	}
}

func TestCache_KeyGeneration(t *testing.T) {
	key1 := Key("jinja", "strict", "<p></p>")
	key2 := Key("jinja", "strict", "<p></p>")
	key3 := Key("jinja", "", "<p></p>")

	if key1 != key2 {
		t.Error("Same inputs produced different keys")
	}
	if key1 == key3 {
		t.Error("Different inputs produced same key")
	}
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Input boundaries must affect the key")
	}
}

func TestCache_Persistence(t *testing.T) {
	dir := t.TempDir()

	cache1 := newCache(t, Config{Dir: dir})
	cache1.Put("persistent-key", "p.html", []byte("persistent-data"))
	if err := cache1.Close(); err != nil {
		t.Fatalf("Failed to close cache: %v", err)
	}

	cache2 := newCache(t, Config{Dir: dir})
	data, found := cache2.Get("persistent-key")
	if !found {
		t.Fatal("Persistent data not found after restart")
	}
	if string(data) != "persistent-data" {
		t.Errorf("Persistent data corrupted: got %s", data)
	}

	if err := os.WriteFile(filepath.Join(dir, "index.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	cache3 := newCache(t, Config{Dir: dir})
	if n := cache3.Stats().EntryCount; n != 0 {
		t.Errorf("Corrupt index should start empty, got %d entries", n)
	}
}
