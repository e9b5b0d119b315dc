package scanner

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/modpreload/modpreload/internal/helpers"
)

const DefaultCacheSize = 512

type cacheEntry struct {
	text  string
	sites []ImportSite
	err   *ScanError
}

// Remembers scan results by content. The same text is scanned by more than
// one pass, for example once to find which units participate in preloading
// and again when their call sites are patched.
type Cache struct {
	scanner Scanner
	entries *lru.Cache[uint64, cacheEntry]
}

func NewCache(scanner Scanner, size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[uint64, cacheEntry](size)
	if err != nil {
		// Only returned for a non-positive size
		panic(err)
	}
	return &Cache{scanner: scanner, entries: entries}
}

func (c *Cache) Scan(text string) ([]ImportSite, *ScanError) {
	key := helpers.ContentHash(text)
	if entry, ok := c.entries.Get(key); ok && entry.text == text {
		return entry.sites, entry.err
	}
	sites, err := c.scanner.Scan(text)
	c.entries.Add(key, cacheEntry{text: text, sites: sites, err: err})
	return sites, err
}

func (c *Cache) Len() int {
	return c.entries.Len()
}
