// Package effects renders the soft-light passes the 2-D context lacks:
// gaussian glow, drop shadow and whole-element blur. Each pass draws into a
// scratch layer bounded to the affected region, blurs it with imaging and
// composites the result back onto the target context.
//
// Wide blurs run on a reduced copy of the layer that is scaled back up
// afterwards.
package effects

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// Layer describes one offscreen pass.
type Layer struct {
	// Bounds is the region of the target the pass may touch, in device pixels.
	Bounds image.Rectangle
	// Blur is the canvas-style blur length; the gaussian sigma is Blur/2.
	Blur float64
	// Tint, when non-nil, recolors every painted pixel keeping its coverage.
	Tint *color.NRGBA
	// Opacity scales the composited alpha. Zero is treated as 1.
	Opacity float64
	// Offset shifts the composited layer.
	OffsetX, OffsetY int
}

// Sprite is a finished layer placed at At in the target's device space.
type Sprite struct {
	Image image.Image
	At    image.Point
}

// Size returns the sprite's footprint in bytes.
func (s Sprite) Size() int {
	if s.Image == nil {
		return 0
	}
	b := s.Image.Bounds()
	return b.Dx() * b.Dy() * 4
}

// Composite draws s onto dc's pixels at the given opacity. It works in device
// space and ignores dc's transform and clip.
func (s Sprite) Composite(dc *gg.Context, opacity float64) {
	if s.Image == nil || opacity <= 0 {
		return
	}
	dst, ok := dc.Image().(*image.RGBA)
	if !ok {
		dc.Push()
		dc.Identity()
		dc.DrawImage(s.Image, s.At.X, s.At.Y)
		dc.Pop()
		return
	}
	sr := s.Image.Bounds()
	dr := image.Rectangle{Min: s.At, Max: s.At.Add(sr.Size())}
	if opacity >= 1 {
		draw.Draw(dst, dr, s.Image, sr.Min, draw.Over)
		return
	}
	a := uint8(opacity*255 + 0.5)
	if src, ok := s.Image.(*image.RGBA); ok {
		overFaded(dst, dr, src, sr.Min, uint32(a))
		return
	}
	draw.DrawMask(dst, dr, s.Image, sr.Min, image.NewUniform(color.Alpha{A: a}), image.Point{}, draw.Over)
}

// overFaded is draw.Over with a uniform alpha mask a (0-255), specialised for
// premultiplied sources.
func overFaded(dst *image.RGBA, dr image.Rectangle, src *image.RGBA, sp image.Point, a uint32) {
	r := dr.Intersect(dst.Rect)
	sp = sp.Add(r.Min.Sub(dr.Min))
	if r.Empty() {
		return
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		di := dst.PixOffset(r.Min.X, y)
		si := src.PixOffset(sp.X, sp.Y+y-r.Min.Y)
		for x := r.Min.X; x < r.Max.X; x, di, si = x+1, di+4, si+4 {
			sa := uint32(src.Pix[si+3]) * a / 255
			if sa == 0 {
				continue
			}
			inv := 255 - sa
			for c := 0; c < 3; c++ {
				dst.Pix[di+c] = uint8(uint32(src.Pix[si+c])*a/255 + uint32(dst.Pix[di+c])*inv/255)
			}
			dst.Pix[di+3] = uint8(sa + uint32(dst.Pix[di+3])*inv/255)
		}
	}
}

// Render paints into a scratch layer covering l.Bounds and applies the layer
// effect. paint draws in dc's device coordinates. It reports false when the
// bounds miss the target.
func Render(dc *gg.Context, l Layer, paint func(*gg.Context)) (Sprite, bool) {
	b := l.Bounds.Intersect(image.Rect(0, 0, dc.Width(), dc.Height()))
	if b.Empty() {
		return Sprite{}, false
	}
	scratch := gg.NewContext(b.Dx(), b.Dy())
	scratch.Translate(-float64(b.Min.X), -float64(b.Min.Y))
	paint(scratch)

	var img image.Image = scratch.Image()
	f := 1
	if l.Blur > 0 {
		sigma := l.Blur / 2
		f = reduction(sigma)
		img = imaging.Blur(shrink(img, f), sigma/float64(f))
	}
	opacity := l.Opacity
	if opacity == 0 {
		opacity = 1
	}
	if l.Tint != nil || opacity < 1 {
		img = recolor(img, l.Tint, opacity)
	}
	if f > 1 {
		img = imaging.Resize(img, b.Dx(), b.Dy(), imaging.Linear)
	}
	return Sprite{Image: img, At: b.Min.Add(image.Pt(l.OffsetX, l.OffsetY))}, true
}

// Draw renders the layer and composites it onto dc.
func Draw(dc *gg.Context, l Layer, paint func(*gg.Context)) {
	if s, ok := Render(dc, l, paint); ok {
		s.Composite(dc, 1)
	}
}

// Glow draws a blurred, tinted copy of paint beneath whatever the caller draws next.
func Glow(dc *gg.Context, bounds image.Rectangle, blur float64, c color.NRGBA, paint func(*gg.Context)) {
	if blur <= 0 || c.A == 0 {
		return
	}
	Draw(dc, Layer{Bounds: bounds.Inset(-int(math.Ceil(blur * 1.5))), Blur: blur, Tint: &c}, paint)
}

// Fill covers r with c, blending over what is there.
func Fill(dc *gg.Context, r image.Rectangle, c color.Color) {
	if dst, ok := dc.Image().(*image.RGBA); ok {
		draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Over)
		return
	}
	dc.SetColor(c)
	dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	dc.Fill()
}

// Around returns the square region of half-size r centered on (x, y) after
// mapping the center through dc's current transform.
func Around(dc *gg.Context, x, y, r float64) image.Rectangle {
	return AroundRect(dc, x, y, r, r)
}

// AroundRect is Around with separate horizontal and vertical half-sizes.
func AroundRect(dc *gg.Context, x, y, rx, ry float64) image.Rectangle {
	cx, cy := dc.TransformPoint(x, y)
	return image.Rect(int(cx-rx), int(cy-ry), int(math.Ceil(cx+rx)), int(math.Ceil(cy+ry)))
}

// reduction picks the downscale factor for a gaussian of the given sigma.
func reduction(sigma float64) int {
	switch {
	case sigma >= 6:
		return 4
	case sigma >= 3:
		return 2
	}
	return 1
}

func shrink(img image.Image, f int) image.Image {
	if f == 1 {
		return img
	}
	b := img.Bounds()
	return imaging.Resize(img, max(1, b.Dx()/f), max(1, b.Dy()/f), imaging.Box)
}

func recolor(src image.Image, tint *color.NRGBA, opacity float64) *image.NRGBA {
	n := imaging.Clone(src)
	for i := 0; i+3 < len(n.Pix); i += 4 {
		a := n.Pix[i+3]
		if a == 0 {
			continue
		}
		if tint != nil {
			n.Pix[i], n.Pix[i+1], n.Pix[i+2] = tint.R, tint.G, tint.B
			a = uint8(float64(a) * float64(tint.A) / 255)
		}
		n.Pix[i+3] = uint8(float64(a)*opacity + 0.5)
	}
	return n
}
