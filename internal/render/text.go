package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/satindergrewal/promoreel/internal/animator"
	"github.com/satindergrewal/promoreel/internal/effects"
)

type dropShadow struct {
	color  color.NRGBA
	blur   float64
	dx, dy int
}

// label is one animated line of text. (x, y) is the anchor point; ay selects
// the vertical anchor (0.5 middle, 0 baseline).
type label struct {
	face  font.Face
	text  string
	x, y  float64
	ay    float64
	color color.NRGBA
	glow  color.NRGBA
	tr    animator.Transform
	drop  *dropShadow
}

// drawLabel composites l onto dc. Labels with a fixed color are rendered once
// per geometry and reused; vertical offset and opacity are applied when
// compositing.
func (c *Composer) drawLabel(dc *gg.Context, l label) {
	tr := quantize(l.tr)
	if tr.Opacity <= 0 || math.Abs(tr.ScaleX) < 1e-3 || math.Abs(tr.ScaleY) < 1e-3 {
		return
	}
	text := animator.VisibleText(l.text, tr.TextFraction)
	if text == "" {
		return
	}
	col := l.color
	if tr.ColorOverride {
		col = tr.Color
	}
	shift := int(tr.OffsetY)
	tr.OffsetY = 0

	render := func() (effects.Sprite, bool) { return renderLabel(dc, l, tr, text, col) }
	var (
		s  effects.Sprite
		ok bool
	)
	if tr.ColorOverride {
		s, ok = render()
	} else {
		key := fmt.Sprintf("%p|%s|%v|%v|%v|%v|%v|%v|%v|%v|%v|%v",
			l.face, text, l.x, l.y, l.ay, tr.ScaleX, tr.ScaleY, tr.Rotation,
			tr.BlurRadius, tr.GlowRadius, col, l.drop)
		if tr.GlowRadius > 0 {
			key += fmt.Sprintf("|%v", l.glow)
		}
		s, ok = c.labels.Sprite(key, render)
	}
	if ok {
		s.At.Y += shift
		s.Composite(dc, tr.Opacity)
	}
}

// renderLabel draws the label at full opacity into a sprite covering its
// rotated extent plus room for glow, blur and shadow. The sprite may extend
// past the canvas so it can be shifted later.
func renderLabel(dc *gg.Context, l label, tr animator.Transform, text string, col color.NRGBA) (effects.Sprite, bool) {
	dc.SetFontFace(l.face)
	w, h := dc.MeasureString(text)
	hw, hh := w/2*math.Abs(tr.ScaleX), h*math.Abs(tr.ScaleY)
	sin, cos := math.Abs(math.Sin(tr.Rotation)), math.Abs(math.Cos(tr.Rotation))
	margin := 3*(tr.BlurRadius+tr.GlowRadius) + 20
	if l.drop != nil {
		margin += 1.5*l.drop.blur + float64(max(abs(l.drop.dx), abs(l.drop.dy)))
	}
	cy := l.y + tr.OffsetY
	bounds := effects.AroundRect(dc, l.x, cy, hw*cos+hh*sin+margin, hw*sin+hh*cos+margin)
	if bounds.Empty() {
		return effects.Sprite{}, false
	}

	layer := gg.NewContext(bounds.Dx(), bounds.Dy())
	local := image.Rect(0, 0, bounds.Dx(), bounds.Dy())
	ox, oy := dc.TransformPoint(l.x, cy)
	ox -= float64(bounds.Min.X)
	oy -= float64(bounds.Min.Y)
	paint := func(c *gg.Context) {
		c.Push()
		c.Translate(ox, oy)
		c.Scale(tr.ScaleX, tr.ScaleY)
		c.Rotate(tr.Rotation)
		c.SetFontFace(l.face)
		c.SetColor(col)
		c.DrawStringAnchored(text, 0, 0, 0.5, l.ay)
		c.Pop()
	}

	if tr.GlowRadius > 0 {
		effects.Glow(layer, local, tr.GlowRadius, l.glow, paint)
	}
	if l.drop != nil {
		sc := l.drop.color
		effects.Draw(layer, effects.Layer{
			Bounds: local, Blur: l.drop.blur, Tint: &sc, OffsetX: l.drop.dx, OffsetY: l.drop.dy,
		}, paint)
	}
	if tr.BlurRadius > 0 {
		// blur(px) is a gaussian with sigma px
		effects.Draw(layer, effects.Layer{Bounds: local, Blur: 2 * tr.BlurRadius}, paint)
	} else {
		paint(layer)
	}
	return effects.Sprite{Image: layer.Image(), At: bounds.Min}, true
}

// quantize snaps the geometric parts of tr so repeated frames share sprites.
func quantize(tr animator.Transform) animator.Transform {
	tr.OffsetY = math.Round(tr.OffsetY)
	tr.ScaleX = snap(tr.ScaleX, 100)
	tr.ScaleY = snap(tr.ScaleY, 100)
	tr.Rotation = snap(tr.Rotation, 100)
	tr.BlurRadius = snap(tr.BlurRadius, 2)
	tr.GlowRadius = math.Round(tr.GlowRadius)
	return tr
}

func snap(v, steps float64) float64 {
	return math.Round(v*steps) / steps
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
