// Package cache keeps raw annotation responses so repeated runs over the
// same proteins do not hit the remote API again.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTTL is how long an entry stays fresh (7 days).
const DefaultTTL = 7 * 24 * time.Hour

// Store is a keyed response cache.
type Store interface {
	// Get returns the cached body for key if present and fresh.
	Get(key string) ([]byte, bool)
	Put(key string, body []byte) error
	// Purge drops expired entries and reports how many were removed.
	Purge() (int, error)
	Close() error
}

// Open returns the store named by kind: "json", "sqlite" or "none".
// An empty path selects a file under the user cache directory.
func Open(kind, path string, ttl time.Duration) (Store, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch kind {
	case "", "json":
		if path == "" {
			path = DefaultPath("proteins_cache.json")
		}
		return NewJSONFile(path, ttl), nil
	case "sqlite":
		if path == "" {
			path = DefaultPath("proteins_cache.db")
		}
		return OpenSQLite(path, ttl)
	case "none", "off":
		return Nop{}, nil
	}
	return nil, fmt.Errorf("unknown cache store %q (want json, sqlite or none)", kind)
}

// DefaultPath places name under the user cache directory, falling back to
// the temp directory.
func DefaultPath(name string) string {
	if dir, err := os.UserCacheDir(); err == nil {
		p := filepath.Join(dir, "pathovar")
		if err := os.MkdirAll(p, 0o755); err == nil {
			return filepath.Join(p, name)
		}
	}
	return filepath.Join(os.TempDir(), "pathovar_"+name)
}

func expired(retrievedAt int64, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Unix()-retrievedAt > int64(ttl.Seconds())
}

// Nop caches nothing.
type Nop struct{}

func (Nop) Get(string) ([]byte, bool) { return nil, false }
func (Nop) Put(string, []byte) error  { return nil }
func (Nop) Purge() (int, error)       { return 0, nil }
func (Nop) Close() error              { return nil }
