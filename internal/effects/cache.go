package effects

import "sync"

// Cache keeps rendered sprites for layers that repeat from frame to frame.
// It holds at most budget bytes of pixels and evicts arbitrary entries to
// make room.
type Cache struct {
	budget int

	mu      sync.Mutex
	used    int
	sprites map[string]entry
}

type entry struct {
	sprite Sprite
	ok     bool
}

func NewCache(budget int) *Cache {
	return &Cache{budget: budget, sprites: make(map[string]entry)}
}

// Sprite returns the sprite stored under key, calling render on a miss.
// Misses that report false are remembered as well.
func (c *Cache) Sprite(key string, render func() (Sprite, bool)) (Sprite, bool) {
	c.mu.Lock()
	e, hit := c.sprites[key]
	c.mu.Unlock()
	if hit {
		return e.sprite, e.ok
	}

	s, ok := render()
	size := s.Size()
	if size > c.budget {
		return s, ok
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, exists := c.sprites[key]; exists {
		delete(c.sprites, key)
		c.used -= old.sprite.Size()
	}
	for k, old := range c.sprites {
		if c.used+size <= c.budget {
			break
		}
		delete(c.sprites, k)
		c.used -= old.sprite.Size()
	}
	c.sprites[key] = entry{sprite: s, ok: ok}
	c.used += size
	return s, ok
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sprites)
}

// Used returns the bytes held by cached sprites.
func (c *Cache) Used() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}
