package assistant

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// answerKey builds the cache key for a question asked against one rendered
// report. Context and question are hashed together so the key stays
// fixed-size no matter how large the report is; the separator byte keeps
// ("ab","c") and ("a","bc") from colliding.
func answerKey(reportContext, question string) string {
	h := sha256.New()
	h.Write([]byte(reportContext))
	h.Write([]byte{0})
	h.Write([]byte(question))
	return hex.EncodeToString(h.Sum(nil))
}

type answerEntry struct {
	answer    string
	cachedAt  time.Time
	expiresAt time.Time
}

// answerCache is a bounded TTL cache for assistant answers. Repeating a
// question against the same report returns the stored answer instead of
// spending upstream tokens again.
type answerCache struct {
	mu       sync.Mutex
	entries  map[string]answerEntry
	ttl      time.Duration
	maxSize  int
	hits     int64
	misses   int64
	stopChan chan struct{}
	stopOnce sync.Once
}

func newAnswerCache(ttl time.Duration, maxSize int) *answerCache {
	c := &answerCache{
		entries:  make(map[string]answerEntry),
		ttl:      ttl,
		maxSize:  maxSize,
		stopChan: make(chan struct{}),
	}

	go c.cleanup()

	return c
}

// Get retrieves a cached answer. Expired entries count as misses.
func (c *answerCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		c.misses++
		return "", false
	}

	c.hits++
	return entry.answer, true
}

// Set stores an answer. A non-positive TTL or size disables caching.
func (c *answerCache) Set(key, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize <= 0 || c.ttl <= 0 {
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	now := time.Now()
	c.entries[key] = answerEntry{
		answer:    answer,
		cachedAt:  now,
		expiresAt: now.Add(c.ttl),
	}
}

func (c *answerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counts since the cache was created.
func (c *answerCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *answerCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.cachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.cachedAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Stop terminates the background expiry sweep. Safe to call repeatedly.
func (c *answerCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}

func (c *answerCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		case <-c.stopChan:
			return
		}
	}
}
