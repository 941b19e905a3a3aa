package cache

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

type cachedEntry struct {
	Body        string `json:"body"`
	RetrievedAt int64  `json:"retrieved_at"`
}

// JSONFile is a cache persisted as a single JSON document. The file is
// loaded lazily and rewritten after every Put.
type JSONFile struct {
	path string
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]cachedEntry
	loaded  bool
	// saveMu serializes file writes
	saveMu sync.Mutex
}

// NewJSONFile returns a JSON file cache at path.
func NewJSONFile(path string, ttl time.Duration) *JSONFile {
	return &JSONFile{path: path, ttl: ttl, now: time.Now}
}

func (c *JSONFile) load() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return
	}
	c.entries = make(map[string]cachedEntry)
	c.loaded = true
	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}
	// a corrupt cache file is treated as empty
	_ = json.Unmarshal(data, &c.entries)
}

func (c *JSONFile) save() error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	c.mu.RLock()
	b, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, b, 0o644)
}

func (c *JSONFile) Get(key string) ([]byte, bool) {
	c.load()
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || expired(e.RetrievedAt, c.ttl, c.now()) {
		return nil, false
	}
	return []byte(e.Body), true
}

func (c *JSONFile) Put(key string, body []byte) error {
	if key == "" || len(body) == 0 {
		return nil
	}
	c.load()
	c.mu.Lock()
	c.entries[key] = cachedEntry{Body: string(body), RetrievedAt: c.now().Unix()}
	c.mu.Unlock()
	return c.save()
}

func (c *JSONFile) Purge() (int, error) {
	c.load()
	now := c.now()
	c.mu.Lock()
	n := 0
	for k, e := range c.entries {
		if expired(e.RetrievedAt, c.ttl, now) {
			delete(c.entries, k)
			n++
		}
	}
	c.mu.Unlock()
	if n == 0 {
		return 0, nil
	}
	return n, c.save()
}

func (c *JSONFile) Close() error { return nil }
