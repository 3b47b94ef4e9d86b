package file

import "github.com/duckmesh/duckframe/internal/storage"

// Cache maps table names handed out by a Client to the files backing them.
// It belongs to one Client and is not safe for concurrent use. A later
// lookup of the same name from another directory replaces the entry.
type Cache struct {
	entries map[string]storage.Entry
}

func NewCache() *Cache {
	return &Cache{entries: map[string]storage.Entry{}}
}

func (c *Cache) Put(name string, entry storage.Entry) {
	c.entries[name] = entry
}

func (c *Cache) Get(name string) (storage.Entry, bool) {
	entry, ok := c.entries[name]
	return entry, ok
}

func (c *Cache) Len() int { return len(c.entries) }
