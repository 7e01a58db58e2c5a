package render

import (
	"image"
	"sync"
	"sync/atomic"

	"github.com/fogleman/gg"
)

// Surface is the single render target. One writer draws into the back
// buffer; the finished frame is published to a front buffer that any number
// of readers (capture, MJPEG preview) sample.
type Surface struct {
	back   *gg.Context
	frames atomic.Uint64

	mu    sync.RWMutex
	front *image.RGBA
}

func NewSurface(width, height int) *Surface {
	return &Surface{
		back:  gg.NewContext(width, height),
		front: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// Draw runs paint on the back buffer and publishes the result. Only one
// goroutine may call Draw.
func (s *Surface) Draw(paint func(*gg.Context)) {
	paint(s.back)
	src := s.back.Image().(*image.RGBA)
	s.mu.Lock()
	copy(s.front.Pix, src.Pix)
	s.mu.Unlock()
	s.frames.Add(1)
}

// Snapshot returns a copy of the last published frame.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := image.NewRGBA(s.front.Rect)
	copy(out.Pix, s.front.Pix)
	return out
}

// CopyTo copies the last published frame into dst, which must have the
// surface's dimensions.
func (s *Surface) CopyTo(dst *image.RGBA) {
	s.mu.RLock()
	copy(dst.Pix, s.front.Pix)
	s.mu.RUnlock()
}

func (s *Surface) Bounds() image.Rectangle {
	return s.front.Rect
}

// Frames returns how many frames have been published.
func (s *Surface) Frames() uint64 {
	return s.frames.Load()
}
