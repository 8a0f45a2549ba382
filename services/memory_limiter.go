package services

import (
	"sync"
	"time"
)

// MemoryLimiter is a per-process fixed window limiter for low-value traffic
// such as CSP violation reports. Each instance counts independently.
type MemoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	limit   int
	window  time.Duration
	maxKeys int
	buckets map[string]*memoryBucket
}

type memoryBucket struct {
	count     int
	windowEnd time.Time
}

func NewMemoryLimiter(limit int, window time.Duration, maxKeys int) *MemoryLimiter {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	return &MemoryLimiter{
		now:     time.Now,
		limit:   limit,
		window:  window,
		maxKeys: maxKeys,
		buckets: make(map[string]*memoryBucket),
	}
}

// Allow consumes one slot for key. When the key table is full and nothing has
// expired, new keys are refused rather than growing without bound.
func (m *MemoryLimiter) Allow(key string) bool {
	if m.limit <= 0 {
		return true
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.buckets[key]
	if !ok || now.After(bucket.windowEnd) {
		if !ok && len(m.buckets) >= m.maxKeys {
			m.gc(now)
			if len(m.buckets) >= m.maxKeys {
				return false
			}
		}
		bucket = &memoryBucket{windowEnd: now.Add(m.window)}
		m.buckets[key] = bucket
	}

	if bucket.count >= m.limit {
		return false
	}
	bucket.count++
	return true
}

func (m *MemoryLimiter) gc(now time.Time) {
	for key, bucket := range m.buckets {
		if now.After(bucket.windowEnd) {
			delete(m.buckets, key)
		}
	}
}
