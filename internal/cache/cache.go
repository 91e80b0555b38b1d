// Package cache stores derived artifacts (solc output, parsed outlines) on
// disk under content-addressed keys.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Cache is a directory of key-named files. The zero Cache and a nil *Cache
// are disabled: every Load misses and every Store is a no-op.
type Cache struct {
	dir string
}

// New returns a cache rooted at dir. An empty dir disables caching.
func New(dir string) *Cache { return &Cache{dir: dir} }

// Default returns the per-user cache under ~/.verazt/cache.
func Default() (*Cache, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return New(filepath.Join(home, ".verazt", "cache")), nil
}

// Enabled reports whether the cache reads and writes files.
func (c *Cache) Enabled() bool { return c != nil && c.dir != "" }

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// Key computes a key from its parts. Parts are length-prefixed so that
// ("ab", "c") and ("a", "bc") differ.
func Key(parts ...string) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		l := len(p)
		for i := range n {
			n[i] = byte(l >> (8 * i))
		}
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) Load(key string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	b, err := os.ReadFile(filepath.Join(c.dir, key))
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c *Cache) Store(key string, data []byte) error {
	if !c.Enabled() {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.dir, key+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(c.dir, key))
}

// Clear removes every cached entry.
func (c *Cache) Clear() error {
	if !c.Enabled() {
		return nil
	}
	err := os.RemoveAll(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
