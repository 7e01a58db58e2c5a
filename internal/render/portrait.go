package render

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/satindergrewal/promoreel/internal/style"
)

type portraitEntry struct {
	img image.Image
	err error
}

// PortraitCache decodes speaker images once per source and keeps them
// resized to the portrait slot. A miss decodes synchronously so the first
// frame after a change already shows the image.
type PortraitCache struct {
	size int

	mu      sync.Mutex
	entries map[string]portraitEntry
}

func NewPortraitCache(size int) *PortraitCache {
	return &PortraitCache{size: size, entries: make(map[string]portraitEntry)}
}

// Get returns the decoded image for src. It reports false for an empty
// source or one that failed to decode; failures are cached too.
func (c *PortraitCache) Get(src string) (image.Image, bool) {
	if src == "" {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[src]; ok {
		return e.img, e.err == nil
	}
	img, err := c.load(src)
	if err != nil {
		log.Printf("Portrait decode failed: %v", err)
	}
	c.entries[src] = portraitEntry{img: img, err: err}
	return img, err == nil
}

// Forget drops src so the next Get decodes it again.
func (c *PortraitCache) Forget(src string) {
	c.mu.Lock()
	delete(c.entries, src)
	c.mu.Unlock()
}

// Len returns the number of cached sources, including failures.
func (c *PortraitCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *PortraitCache) load(src string) (image.Image, error) {
	data, _, err := style.ReadImage(src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return imaging.Resize(img, c.size, c.size, imaging.Lanczos), nil
}
