package cache

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// entry mirrors the on-disk cache format: the raw payload plus the
// epoch-seconds timestamp of when it was stored.
type entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp float64         `json:"timestamp"`
}

// Cache is a key -> payload store with lazy age-based expiry and
// best-effort file persistence. An empty path makes it memory-only.
type Cache struct {
	mu      sync.Mutex
	path    string
	maxAge  time.Duration
	entries map[string]entry
	log     *logrus.Entry

	now func() time.Time
}

// New loads a cache from path if it exists. A missing, unreadable, or
// corrupt file yields an empty cache, never an error.
func New(path string, maxAge time.Duration, log *logrus.Entry) *Cache {
	c := &Cache{
		path:    path,
		maxAge:  maxAge,
		entries: make(map[string]entry),
		log:     log,
		now:     time.Now,
	}
	c.load()
	return c
}

func (c *Cache) load() {
	if c.path == "" {
		return
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}

	var entries map[string]entry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.log.Warnf("Cache file %s is corrupt, starting empty: %v", c.path, err)
		return
	}
	c.entries = entries
	c.log.Debugf("Loaded %d cache entries from %s", len(entries), c.path)
}

// Get returns the payload stored for key. Entries older than the
// configured max age are reported as misses but left in place.
func (c *Cache) Get(key string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	age := float64(c.now().UnixNano())/1e9 - e.Timestamp
	if age > c.maxAge.Seconds() {
		return nil, false
	}
	return e.Data, true
}

// Put stores or refreshes the payload for key.
func (c *Cache) Put(key string, payload json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		Data:      payload,
		Timestamp: float64(c.now().UnixNano()) / 1e9,
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Flush persists the whole cache to its file. Failures are logged and
// swallowed; a write error never aborts the run.
func (c *Cache) Flush() {
	if c.path == "" {
		return
	}

	c.mu.Lock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.Unlock()
	if err != nil {
		c.log.Debugf("Cache marshal failed: %v", err)
		return
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		c.log.Debugf("Cache write to %s failed: %v", c.path, err)
	}
}
