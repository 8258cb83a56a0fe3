package fetcher

import "sync"

// Entry is a gathered fact or the error that prevented gathering it.
type Entry struct {
	Value any
	Err   error
}

type Cache struct {
	data sync.Map
}

func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) Get(key string) (Entry, bool) {
	v, ok := c.data.Load(key)
	if !ok {
		return Entry{}, false
	}
	return v.(Entry), true
}

func (c *Cache) Set(key string, e Entry) {
	c.data.Store(key, e)
}
