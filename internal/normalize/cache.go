package normalize

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheKey struct {
	kind Kind
	raw  string
}

// Cache memoizes Key for string inputs. Safe for concurrent use.
type Cache struct {
	entries *lru.Cache[cacheKey, string]
}

// NewCache creates a memo holding at most size normalized keys.
func NewCache(size int) (*Cache, error) {
	entries, err := lru.New[cacheKey, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create normalize cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Key returns the same value as the package level Key.
func (c *Cache) Key(raw any, kind Kind) string {
	s, ok := raw.(string)
	if !ok || c == nil {
		return Key(raw, kind)
	}

	k := cacheKey{kind: kind, raw: s}
	if v, hit := c.entries.Get(k); hit {
		return v
	}
	v := Key(s, kind)
	c.entries.Add(k, v)
	return v
}

// Len reports how many keys are currently held.
func (c *Cache) Len() int {
	return c.entries.Len()
}
