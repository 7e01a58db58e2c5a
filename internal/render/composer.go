// Package render composes complete frames from a style.State and drives
// them onto the shared surface at a fixed rate.
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
	"github.com/satindergrewal/promoreel/internal/shape"
	"github.com/satindergrewal/promoreel/internal/style"
	"github.com/satindergrewal/promoreel/internal/theme"
	"github.com/satindergrewal/promoreel/internal/visualizer"
)

const (
	blobCount   = 5
	blobRadius  = 400
	blobAlpha   = 0.15
	floorBars   = 100
	floorHeight = 120
	bannerText  = "BREAKING NEWS"
	borderGlow  = 15

	staticBudget = 16 << 20
	labelBudget  = 48 << 20
)

var (
	placeholderFill = color.NRGBA{R: 0x1e, G: 0x29, B: 0x3b, A: 0xff}
	bannerColor     = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	brandingShadow  = dropShadow{color: color.NRGBA{A: 204}, blur: 10, dx: 4, dy: 4}
)

// Composer draws one frame per call. Between calls it keeps the portrait
// cache and rendered sprites for layers that repeat: the background blob per
// accent, each framed speaker, and text labels keyed by their geometry.
type Composer struct {
	fonts     *Fonts
	portraits *PortraitCache
	static    *effects.Cache
	labels    *effects.Cache
}

func NewComposer(fonts *Fonts, portraits *PortraitCache) *Composer {
	return &Composer{
		fonts:     fonts,
		portraits: portraits,
		static:    effects.NewCache(staticBudget),
		labels:    effects.NewCache(labelBudget),
	}
}

// Portraits exposes the cache so callers can forget replaced images.
func (c *Composer) Portraits() *PortraitCache {
	return c.portraits
}

// Compose draws the full scene for st at elapsed seconds. bins is the current
// frequency snapshot, nil when no audio is playing.
func (c *Composer) Compose(dc *gg.Context, st style.State, elapsed float64, bins []uint8) {
	pal := theme.PaletteFor(st.Theme)
	bg, header, accent, text := pal.Colors()

	dc.ResetClip()
	dc.Identity()
	dc.ClearPath()
	dc.SetColor(bg)
	dc.Clear()

	c.drawBlobs(dc, elapsed, accent)

	effects.Fill(dc, image.Rect(0, 0, theme.Width, theme.HeaderHeight), header)
	dc.SetColor(accent)
	dc.SetLineWidth(2)
	dc.DrawLine(0, theme.HeaderHeight, theme.Width, theme.HeaderHeight)
	dc.Stroke()

	baseY := 70.0
	if st.Template == theme.TemplateBreaking {
		dc.SetFontFace(c.fonts.Banner)
		dc.SetColor(bannerColor)
		dc.DrawStringAnchored(bannerText, theme.Width/2, 30, 0.5, 0)
		baseY = 90
	}

	titles := []struct {
		text  string
		hex   string
		face  font.Face
		y     float64
		delay float64
	}{
		{st.Title1, st.Title1Color, c.fonts.Title, baseY, 0},
		{st.Title2, st.Title2Color, c.fonts.Subtitle, baseY + 60, 0.4},
	}
	for _, t := range titles {
		base := theme.ParseColor(t.hex, text)
		c.drawLabel(dc, label{
			face:  t.face,
			text:  t.text,
			x:     theme.Width / 2,
			y:     t.y,
			ay:    0.5,
			color: base,
			glow:  accent,
			tr:    animator.Title(st.TitleAnim, elapsed, t.delay, base),
		})
	}

	c.drawSpeaker(dc, st.Left, theme.SpeakerInset, st.Shape, accent)
	c.drawSpeaker(dc, st.Right, theme.Width-theme.SpeakerInset-theme.SpeakerSize, st.Shape, accent)

	visualizer.Draw(dc, st.Mic, theme.MicX, theme.MicY, elapsed, bins, pal)

	for i, part := range st.Branding {
		c.drawLabel(dc, label{
			face:  c.fonts.Branding,
			text:  part,
			x:     theme.Width/2 + float64(i-1)*theme.BrandingSpacing,
			y:     theme.BrandingY,
			color: text,
			glow:  accent,
			tr:    animator.Branding(st.BrandAnim, elapsed, i, text),
			drop:  &brandingShadow,
		})
	}

	if len(bins) > 0 {
		drawFloor(dc, bins, accent)
	}
}

func (c *Composer) drawBlobs(dc *gg.Context, elapsed float64, accent color.NRGBA) {
	blob, _ := c.static.Sprite(fmt.Sprintf("blob|%v", accent), func() (effects.Sprite, bool) {
		const d = 2 * blobRadius
		layer := gg.NewContext(d, d)
		g := gg.NewRadialGradient(blobRadius, blobRadius, 0, blobRadius, blobRadius, blobRadius)
		g.AddColorStop(0, theme.WithAlpha(accent, blobAlpha))
		g.AddColorStop(1, color.NRGBA{})
		layer.SetFillStyle(g)
		layer.DrawRectangle(0, 0, d, d)
		layer.Fill()
		return effects.Sprite{Image: layer.Image()}, true
	})
	for i := 0; i < blobCount; i++ {
		fi := float64(i)
		px := (math.Sin(elapsed*0.2+fi*1.5) + 1) * theme.Width / 2
		py := (math.Cos(elapsed*0.3+fi*2) + 1) * theme.Height / 2
		blob.At = image.Pt(int(math.Round(px-blobRadius)), int(math.Round(py-blobRadius)))
		blob.Composite(dc, 1)
	}
}

// drawSpeaker composites the framed portrait whose left edge is at x. The
// frame is rendered once per portrait, shape, position and accent.
func (c *Composer) drawSpeaker(dc *gg.Context, sp style.Speaker, x float64, kind theme.Shape, accent color.NRGBA) {
	img, ready := c.portraits.Get(sp.Image)
	id := "placeholder"
	if ready {
		id = fmt.Sprintf("%p", img)
	}
	key := fmt.Sprintf("speaker|%v|%s|%v|%s", x, kind, accent, id)
	s, ok := c.static.Sprite(key, func() (effects.Sprite, bool) {
		const size = theme.SpeakerSize
		const half = size/2 + theme.PortraitBorder + borderGlow*3/2 + 1
		layer := gg.NewContext(2*half, 2*half)
		if !paintSpeaker(layer, img, ready, half-size/2, half-size/2, kind, accent) {
			return effects.Sprite{}, false
		}
		cx, cy := int(x)+size/2, theme.SpeakerY
		return effects.Sprite{Image: layer.Image(), At: image.Pt(cx-half, cy-half)}, true
	})
	if ok {
		s.Composite(dc, 1)
	}
}

// paintSpeaker draws a portrait clipped to kind with its glowing accent border,
// top-left corner at (x, y). It reports false for an unknown shape.
func paintSpeaker(dc *gg.Context, img image.Image, ready bool, x, y float64, kind theme.Shape, accent color.NRGBA) bool {
	const size = theme.SpeakerSize

	if !shape.Path(dc, x, y, size, kind) {
		return false
	}
	dc.Clip()
	if ready {
		dc.DrawImage(img, int(x), int(y))
	} else {
		dc.SetColor(placeholderFill)
		dc.DrawRectangle(x, y, size, size)
		dc.Fill()
	}
	dc.ResetClip()

	border := func(cx *gg.Context) {
		shape.Path(cx, x, y, size, kind)
		cx.SetColor(accent)
		cx.SetLineWidth(theme.PortraitBorder)
		cx.Stroke()
	}
	effects.Glow(dc, effects.Around(dc, x+size/2, y+size/2, size/2+theme.PortraitBorder), borderGlow, accent, border)
	border(dc)
	return true
}

func drawFloor(dc *gg.Context, bins []uint8, accent color.NRGBA) {
	w := float64(theme.Width) / floorBars
	fill := theme.WithAlpha(accent, 0.2)
	for i := 0; i < floorBars; i++ {
		h := int(math.Round(visualizer.Bin(bins, i) * floorHeight))
		if h <= 0 {
			continue
		}
		x0 := int(math.Round(float64(i) * w))
		x1 := int(math.Round(float64(i)*w + w - 1))
		effects.Fill(dc, image.Rect(x0, theme.Height-h, x1, theme.Height), fill)
	}
}
