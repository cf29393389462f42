package cache

import (
	"sync"
	"time"
)

// CacheStats tracks cache performance metrics.
type CacheStats struct {
	TotalRequests int64
	CacheHits     int64
	CacheMisses   int64
	LastResetTime time.Time
	mutex         sync.RWMutex
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Dir            string
	Entries        int
	TotalSizeBytes int64
	TotalRequests  int64
	CacheHits      int64
	CacheMisses    int64
	Uptime         time.Duration
}

// HitRate is the percentage of requests served from the cache.
func (s Stats) HitRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(s.TotalRequests) * 100
}

func (s *CacheStats) recordHit() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.TotalRequests++
	s.CacheHits++
}

func (s *CacheStats) recordMiss() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.TotalRequests++
	s.CacheMisses++
}

func (s *CacheStats) snapshot() Stats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return Stats{
		TotalRequests: s.TotalRequests,
		CacheHits:     s.CacheHits,
		CacheMisses:   s.CacheMisses,
		Uptime:        time.Since(s.LastResetTime),
	}
}

// ResetPerformanceStats resets all performance counters.
func (c *ReplyCache) ResetPerformanceStats() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.TotalRequests = 0
	c.stats.CacheHits = 0
	c.stats.CacheMisses = 0
	c.stats.LastResetTime = time.Now()
}
