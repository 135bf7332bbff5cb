package lsp

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/woxQAQ/config-props-lsp/internal/document"
)

// documentCache keeps parsed documents keyed by syntax and content hash, so
// reconcile, completion and hover on unchanged text share one parse.
type documentCache struct {
	c *ristretto.Cache[string, *document.Document]
}

// newDocumentCache creates a cache holding up to maxCostBytes of source text.
func newDocumentCache(maxCostBytes int64) (*documentCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, *document.Document]{
		NumCounters: max(maxCostBytes/1024*10, 1000), // ~10x expected documents
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &documentCache{c: c}, nil
}

func cacheKey(text string, syntax document.Syntax) string {
	sum := sha256.Sum256([]byte(text))
	return syntax.String() + ":" + hex.EncodeToString(sum[:])
}

// Document returns the parsed form of text, parsing it on a miss.
func (c *documentCache) Document(text string, syntax document.Syntax) *document.Document {
	key := cacheKey(text, syntax)
	if doc, ok := c.c.Get(key); ok {
		return doc
	}
	doc := document.New(text, syntax)
	c.c.Set(key, doc, int64(len(text))+1)
	return doc
}

// Close shuts down the cache and releases resources.
func (c *documentCache) Close() {
	c.c.Close()
}
