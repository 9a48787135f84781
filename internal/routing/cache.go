package routing

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"foreman/internal/adapters/ai"
)

// ResponseCache is a bounded TTL cache of completions keyed by a request
// fingerprint. Expired entries are purged lazily on lookup; insertion beyond
// capacity evicts the least-recently-used entry, where a Get refreshes
// recency.
type ResponseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	entries map[string]*list.Element
	lru     *list.List // front = most recently used
	now     func() time.Time
}

type cacheEntry struct {
	key      string
	response Response
	storedAt time.Time
}

// NewResponseCache creates a cache holding at most maxSize entries.
func NewResponseCache(ttl time.Duration, maxSize int) *ResponseCache {
	return &ResponseCache{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// Get returns the cached response for an identical (model, messages,
// options) tuple, if present and fresh. A hit refreshes the entry's recency.
func (c *ResponseCache) Get(model string, messages []ai.Message, opts Options) (Response, bool) {
	key := fingerprint(model, messages, opts)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return Response{}, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.lru.Remove(elem)
		delete(c.entries, key)
		return Response{}, false
	}

	c.lru.MoveToFront(elem)
	return entry.response, true
}

// Set stores a response, evicting the least-recently-used entry when at
// capacity.
func (c *ResponseCache) Set(model string, messages []ai.Message, opts Options, resp Response) {
	key := fingerprint(model, messages, opts)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.response = resp
		entry.storedAt = c.now()
		c.lru.MoveToFront(elem)
		return
	}

	if c.lru.Len() >= c.maxSize {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}

	c.entries[key] = c.lru.PushFront(&cacheEntry{
		key:      key,
		response: resp,
		storedAt: c.now(),
	})
}

// Len returns the number of live entries, counting expired-but-unpurged ones.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// fingerprint derives a deterministic cache key from the canonicalized
// request tuple. The options struct has a fixed field order, so a straight
// JSON encoding is already canonical.
func fingerprint(model string, messages []ai.Message, opts Options) string {
	payload, _ := json.Marshal(struct {
		Model    string
		Messages []ai.Message
		Options  Options
	}{model, messages, opts})

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
