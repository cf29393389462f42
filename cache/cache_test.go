package cache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyCache_BasicOperations(t *testing.T) {
	replyCache, err := NewReplyCache(filepath.Join(t.TempDir(), "cache"), 0)
	require.NoError(t, err)

	key := Key("gpt-4o-mini", "prompt text")

	reply, found := replyCache.Get(key)
	assert.False(t, found)
	assert.Empty(t, reply)

	require.NoError(t, replyCache.Set(key, "gpt-4o-mini", `{"summary":"ok"}`))

	reply, found = replyCache.Get(key)
	assert.True(t, found)
	assert.Equal(t, `{"summary":"ok"}`, reply)

	require.NoError(t, replyCache.Delete(key))
	_, found = replyCache.Get(key)
	assert.False(t, found)
	assert.NoError(t, replyCache.Delete(key), "deleting a missing entry is not an error")
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("m", "p"), Key("m", "p"))
	assert.NotEqual(t, Key("m1", "p"), Key("m2", "p"))
	assert.NotEqual(t, Key("m", "p1"), Key("m", "p2"))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
	assert.Len(t, Key("m", "p"), 32)
}

func TestReplyCache_MaxAge(t *testing.T) {
	replyCache, err := NewReplyCache(t.TempDir(), time.Nanosecond)
	require.NoError(t, err)

	key := Key("m", "p")
	require.NoError(t, replyCache.Set(key, "m", "reply"))
	time.Sleep(time.Millisecond)

	_, found := replyCache.Get(key)
	assert.False(t, found)
	assert.NoFileExists(t, filepath.Join(replyCache.Dir(), key+entrySuffix))
}

func TestReplyCache_CorruptEntryIsMiss(t *testing.T) {
	replyCache, err := NewReplyCache(t.TempDir(), 0)
	require.NoError(t, err)

	key := Key("m", "p")
	require.NoError(t, os.WriteFile(filepath.Join(replyCache.Dir(), key+entrySuffix), []byte("not gob"), 0o644))

	_, found := replyCache.Get(key)
	assert.False(t, found)
}

func TestReplyCache_Statistics(t *testing.T) {
	replyCache, err := NewReplyCache(filepath.Join(t.TempDir(), "cache"), 0)
	require.NoError(t, err)

	stats, err := replyCache.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, int64(0), stats.TotalSizeBytes)

	require.NoError(t, replyCache.Set(Key("m", "1"), "m", "reply one"))
	require.NoError(t, replyCache.Set(Key("m", "2"), "m", "reply two, longer"))
	replyCache.Get(Key("m", "1"))
	replyCache.Get(Key("m", "3"))

	stats, err = replyCache.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Greater(t, stats.TotalSizeBytes, int64(0))
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)
	assert.InDelta(t, 50.0, stats.HitRate(), 0.001)

	replyCache.ResetPerformanceStats()
	stats, err = replyCache.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalRequests)
	assert.Equal(t, 0.0, stats.HitRate())
}

func TestReplyCache_CleanExpired(t *testing.T) {
	replyCache, err := NewReplyCache(filepath.Join(t.TempDir(), "cache"), 0)
	require.NoError(t, err)

	require.NoError(t, replyCache.Set(Key("m", "old"), "m", "old reply"))
	time.Sleep(5 * time.Millisecond)

	removed, err := replyCache.CleanExpired(time.Nanosecond)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	require.NoError(t, replyCache.Set(Key("m", "new"), "m", "new reply"))
	removed, err = replyCache.CleanExpired(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	stats, err := replyCache.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
}

func TestReplyCache_Clear(t *testing.T) {
	replyCache, err := NewReplyCache(filepath.Join(t.TempDir(), "cache"), 0)
	require.NoError(t, err)
	require.NoError(t, replyCache.Set(Key("m", "p"), "m", "reply"))
	replyCache.Get(Key("m", "p"))
	replyCache.Get(Key("m", "missing"))

	require.NoError(t, replyCache.Clear())
	assert.DirExists(t, replyCache.Dir())

	stats, err := replyCache.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Entries)
	assert.Zero(t, stats.TotalRequests)
	assert.Zero(t, stats.CacheHits)
	assert.Zero(t, stats.CacheMisses)
}

func TestReplyCache_ConcurrentAccess(t *testing.T) {
	replyCache, err := NewReplyCache(t.TempDir(), 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := Key("m", string(rune('a'+i%4)))
			_ = replyCache.Set(key, "m", "reply")
			replyCache.Get(key)
		}(i)
	}
	wg.Wait()

	stats, err := replyCache.Stats()
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Entries)
	assert.Equal(t, int64(16), stats.TotalRequests)
}
