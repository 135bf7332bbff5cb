package metadata

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Bump when the cached Descriptor layout changes.
const cacheSchemaVersion uint16 = 1

// DescriptorCache stores parsed descriptors on disk keyed by content digest.
// A nil *DescriptorCache is valid and caches nothing. Safe for concurrent use.
type DescriptorCache struct {
	mu  sync.RWMutex
	dir string
}

type cachePayload struct {
	Schema     uint16
	Descriptor *Descriptor
}

// OpenDescriptorCache opens a cache rooted at dir. An empty dir selects
// $XDG_CACHE_HOME/config-props-lsp, falling back to ~/.cache.
func OpenDescriptorCache(dir string) (*DescriptorCache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, "config-props-lsp")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DescriptorCache{dir: dir}, nil
}

func (c *DescriptorCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "descriptors", hex.EncodeToString(key[:])+".mp")
}

// Put writes d under its digest, replacing the file atomically.
func (c *DescriptorCache) Put(d *Descriptor) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(d.Digest)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := msgpack.NewEncoder(f).Encode(&cachePayload{Schema: cacheSchemaVersion, Descriptor: d}); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the descriptor stored under key. Entries written with another
// schema version are treated as missing.
func (c *DescriptorCache) Get(key Digest) (*Descriptor, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var payload cachePayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, err
	}
	if payload.Schema != cacheSchemaVersion || payload.Descriptor == nil || payload.Descriptor.Digest != key {
		return nil, false, nil
	}
	return payload.Descriptor, true, nil
}

// Dir returns the cache root.
func (c *DescriptorCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}
