package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hyperjump/ghostwriter/pkg/utils"
)

// DefaultCacheSize bounds the number of cached embeddings.
const DefaultCacheSize = 10000

// KeyFunc derives a cache key from the text being embedded.
type KeyFunc func(text string) string

// PrefixKey keys entries by the first n characters of the text. Texts sharing a
// prefix share an entry, which is the historical behaviour of the embedding cache.
func PrefixKey(n int) KeyFunc {
	return func(text string) string {
		return utils.TruncateRunes(text, n)
	}
}

// HashKey keys entries by the SHA-256 of the full text.
func HashKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Cache is a bounded, concurrency-safe LRU of embeddings.
type Cache struct {
	entries *lru.Cache[string, []float32]
	key     KeyFunc
}

// NewCache creates a cache holding up to size entries. A nil key defaults to PrefixKey(100).
func NewCache(size int, key KeyFunc) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if key == nil {
		key = PrefixKey(100)
	}
	entries, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &Cache{entries: entries, key: key}, nil
}

// Get returns the cached embedding for text if present.
func (c *Cache) Get(text string) ([]float32, bool) {
	return c.entries.Get(c.key(text))
}

// Set stores the embedding for text. Empty vectors are never cached.
func (c *Cache) Set(text string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	c.entries.Add(c.key(text), vec)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.entries.Purge()
}
