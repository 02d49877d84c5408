package service

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

const maxMemoryCacheEntries = 256

// ImageCache keeps fetched image bytes in memory and, when a directory is set, on disk
type ImageCache struct {
	dir string

	mu  sync.RWMutex
	mem map[string][]byte
}

// NewImageCache creates a cache rooted at dir. An empty dir keeps the cache in memory only.
func NewImageCache(dir string) *ImageCache {
	return &ImageCache{dir: dir, mem: make(map[string][]byte)}
}

// EnsureDir ensures the cache directory exists, creates it if it doesn't
func (c *ImageCache) EnsureDir() error {
	if c.dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return nil
}

// Path returns the cache file path for a source URL
func (c *ImageCache) Path(key string) string {
	sum := sha1.Sum([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".img")
}

// Get returns cached bytes for key
func (c *ImageCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	data, ok := c.mem[key]
	c.mu.RUnlock()
	if ok {
		return data, true
	}
	if c.dir == "" {
		return nil, false
	}

	data, err := os.ReadFile(c.Path(key))
	if err != nil {
		return nil, false
	}
	c.remember(key, data)
	return data, true
}

// Put stores bytes for key. Disk failures are logged and otherwise ignored.
func (c *ImageCache) Put(key string, data []byte) {
	c.remember(key, data)
	if c.dir == "" {
		return
	}

	path := c.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logrus.WithError(err).Warn("⚠️ Failed to create cache directory")
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		logrus.WithError(err).Warn("⚠️ Failed to write to cache")
		return
	}
	logrus.Debugf("✓ Image cached: %s", path)
}

func (c *ImageCache) remember(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.mem) >= maxMemoryCacheEntries {
		for k := range c.mem {
			delete(c.mem, k)
			break
		}
	}
	c.mem[key] = data
}
