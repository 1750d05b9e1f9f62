package embedding

import (
	"context"
	"strings"

	"github.com/patrickmn/go-cache"
)

// Cache memoizes text -> vector lookups in front of a Provider so repeated
// ingests and queries of the same text never hit the external backend twice.
// It is shared across all clients: identical text embeds identically regardless
// of owner. Client isolation happens downstream in the retrieval store.
//
// Provider failures propagate unchanged; retry policy belongs to the recovery
// layer, not here.
type Cache struct {
	provider Provider
	store    *cache.Cache
}

func NewCache(provider Provider) *Cache {
	// Entries never expire on their own: the vector for a given text is
	// immutable for the lifetime of the deployment's embedding model.
	return &Cache{
		provider: provider,
		store:    cache.New(cache.NoExpiration, 0),
	}
}

// NormalizeKey collapses whitespace and lowercases text so trivially
// different renderings of the same content share one cache entry.
func NormalizeKey(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// Get returns the vector for text, consulting the provider on a miss.
func (c *Cache) Get(ctx context.Context, text string) ([]float32, error) {
	key := NormalizeKey(text)

	if v, found := c.store.Get(key); found {
		return v.([]float32), nil
	}

	vector, err := c.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.store.Set(key, vector, cache.NoExpiration)
	return vector, nil
}

// Peek returns the cached vector for text without calling the provider.
func (c *Cache) Peek(text string) ([]float32, bool) {
	if v, found := c.store.Get(NormalizeKey(text)); found {
		return v.([]float32), true
	}
	return nil, false
}

// Export collects the cached entries for the given texts, keyed by their
// normalized form. Used to embed a cache snapshot into per-client persistence.
func (c *Cache) Export(texts []string) map[string][]float32 {
	entries := make(map[string][]float32, len(texts))
	for _, text := range texts {
		key := NormalizeKey(text)
		if v, found := c.store.Get(key); found {
			entries[key] = v.([]float32)
		}
	}
	return entries
}

// Import seeds the cache with previously exported entries. Keys are assumed
// to be normalized already. Inserting the same key twice is harmless.
func (c *Cache) Import(entries map[string][]float32) {
	for key, vector := range entries {
		c.store.Set(key, vector, cache.NoExpiration)
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}
