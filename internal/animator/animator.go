// Package animator computes per-frame text transforms for headline and
// branding animations. Every function here is a pure function of time.
package animator

import (
	"image/color"
	"math"

	"github.com/satindergrewal/promoreel/internal/theme"
)

const (
	TitleCycle    = 6.0
	TitleRamp     = 0.8
	BrandingCycle = 4.0
	BrandingRamp  = 0.5
	BrandingDelay = 0.8 // per fragment
)

// Transform is the instantaneous state of one animated text element.
// Rotation is in radians; OffsetY is in pixels, positive downward.
type Transform struct {
	Opacity       float64
	ScaleX        float64
	ScaleY        float64
	OffsetY       float64
	Rotation      float64
	BlurRadius    float64
	GlowRadius    float64
	Color         color.NRGBA
	ColorOverride bool
	TextFraction  float64
}

// Identity returns a transform that draws the text unchanged in base.
func Identity(base color.NRGBA) Transform {
	return Transform{Opacity: 1, ScaleX: 1, ScaleY: 1, Color: base, TextFraction: 1}
}

// Progress returns clamp(((elapsed+delay) mod cycle)/ramp, 0, 1) together
// with the wrapped local time. Negative times wrap into [0, cycle).
func Progress(elapsed, delay, cycle, ramp float64) (p, local float64) {
	local = wrap(elapsed+delay, cycle)
	return clamp01(local / ramp), local
}

// Title animates a headline. delay shifts the phase of the element.
func Title(style theme.TitleAnim, elapsed, delay float64, base color.NRGBA) Transform {
	t := Identity(base)
	p, local := Progress(elapsed, delay, TitleCycle, TitleRamp)

	switch style {
	case theme.TitleFade:
		t.Opacity = p
	case theme.TitleSlideDown:
		t.OffsetY = (1 - p) * -60
		t.Opacity = p
	case theme.TitleZoom:
		t.ScaleX = 0.5 + 0.5*p
		t.ScaleY = t.ScaleX
		t.Opacity = p
	case theme.TitleTypewriter:
		t.TextFraction = p
	case theme.TitleBlur:
		t.BlurRadius = (1 - p) * 20
		t.Opacity = p
	case theme.TitleBounce:
		t.OffsetY = -math.Abs(math.Sin(local*10)) * 20 * (1 - p)
	case theme.TitleGlow:
		t.GlowRadius = math.Sin(elapsed*4)*15 + 15
	case theme.TitleRainbow:
		t.Color = theme.HSL(wrap(elapsed*60+delay*100, 360), 0.70, 0.60)
		t.ColorOverride = true
	case theme.TitleFlip:
		t.Rotation = (1 - p) * math.Pi / 2
	}
	return t
}

// Branding animates one of the channel-name fragments. Fragment part starts
// BrandingDelay*part after the beginning of each BrandingCycle. Typewriter and
// flip have no branding form and draw the fragment unchanged.
func Branding(style theme.BrandAnim, elapsed float64, part int, base color.NRGBA) Transform {
	t := Identity(base)
	local := wrap(elapsed, BrandingCycle) - float64(part)*BrandingDelay
	p := clamp01(math.Max(0, local) / BrandingRamp)

	switch style {
	case theme.BrandFade:
		t.Opacity = p
	case theme.BrandSlide:
		t.OffsetY = (1 - p) * 50
		t.Opacity = p
	case theme.BrandScale:
		t.ScaleX = p
		t.ScaleY = p
	case theme.BrandBlur:
		t.BlurRadius = (1 - p) * 20
		t.Opacity = p
	case theme.BrandGlow:
		t.GlowRadius = math.Sin(elapsed*5)*20 + 20
	case theme.BrandBounce:
		t.OffsetY = -math.Abs(math.Sin(local*10)) * 40 * (1 - p)
	case theme.BrandRotate:
		t.Rotation = (1 - p) * math.Pi
	case theme.BrandRainbow:
		t.Color = theme.HSL(wrap(elapsed*100+float64(part)*60, 360), 0.75, 0.65)
		t.ColorOverride = true
	}
	return t
}

// VisibleText returns the first floor(runes*fraction) runes of text.
func VisibleText(text string, fraction float64) string {
	if fraction >= 1 {
		return text
	}
	runes := []rune(text)
	n := int(math.Floor(float64(len(runes)) * clamp01(fraction)))
	return string(runes[:n])
}

func wrap(v, m float64) float64 {
	r := math.Mod(v, m)
	if r < 0 {
		r += m
	}
	if r >= m {
		r = 0
	}
	return r
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
