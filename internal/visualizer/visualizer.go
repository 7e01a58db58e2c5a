// Package visualizer draws the audio-reactive microphone centerpiece.
//
// Every style is a closed-form function of elapsed time, the mean volume of
// the low frequency bins and, for radial_bars and spectrum, the bins
// themselves. Bins are byte magnitudes as produced by audio.Analyser.
package visualizer

import (
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/satindergrewal/promoreel/internal/effects"
	"github.com/satindergrewal/promoreel/internal/theme"
)

// VolumeBins is the number of leading bins averaged into the volume and
// sampled cyclically by the bar styles.
const VolumeBins = 32

// Volume returns the mean of the first 32 bins normalized to [0,1].
// Missing bins count as zero.
func Volume(bins []uint8) float64 {
	if len(bins) == 0 {
		return 0
	}
	sum := 0
	for i := 0; i < VolumeBins && i < len(bins); i++ {
		sum += int(bins[i])
	}
	return float64(sum) / (VolumeBins * 255)
}

// Bin returns bins[i mod 32] normalized to [0,1], or 0 when absent.
func Bin(bins []uint8, i int) float64 {
	j := i % VolumeBins
	if j < 0 || j >= len(bins) {
		return 0
	}
	return float64(bins[j]) / 255
}

func ClassicScale(elapsed, volume float64) float64 {
	return 1 + 0.1*math.Sin(elapsed*6) + 0.6*volume
}

func NeonRingRadius(ring int, volume float64) float64 {
	return 60 + 120*volume + 20*float64(ring)
}

// RadialBar returns the angle and length of bar i of 36.
func RadialBar(i int, elapsed float64, bins []uint8) (angle, length float64) {
	return float64(i)/36*2*math.Pi + 0.5*elapsed, 50 + Bin(bins, i)*150
}

// ConcentricRing returns the radius and fade of ring i of 5. The sweep
// phase runs at twice the elapsed rate.
func ConcentricRing(i int, elapsed, volume float64) (radius, shift float64) {
	shift = math.Mod(elapsed*2+float64(i)/5, 1)
	if shift < 0 {
		shift++
	}
	return shift*200 + volume*100, shift
}

func PulseOrbRadius(layer int, volume float64) float64 {
	return 60 + 120*volume - 30*volume*float64(layer)
}

func SpectrumRadius(i int, bins []uint8) float64 {
	return 100 + 120*Bin(bins, i)
}

func LiquidRadius(theta, elapsed, volume float64) float64 {
	noise := math.Sin(theta*5+elapsed*2.5)*15 + math.Cos(theta*3-elapsed*3.75)*20
	return 80 + volume*100 + noise
}

// Draw renders style centered on (cx, cy). Unknown styles draw nothing and
// report false.
func Draw(dc *gg.Context, style theme.MicStyle, cx, cy, elapsed float64, bins []uint8, pal theme.Palette) bool {
	_, _, accent, text := pal.Colors()
	v := Volume(bins)

	switch style {
	case theme.MicClassic:
		classic(dc, cx, cy, elapsed, v, accent, text)
	case theme.MicNeonRing:
		neonRing(dc, cx, cy, elapsed, v, accent, text)
	case theme.MicRadialBars:
		radialBars(dc, cx, cy, elapsed, bins, accent, text)
	case theme.MicConcentric:
		concentric(dc, cx, cy, elapsed, v, accent)
	case theme.MicPulseOrb:
		pulseOrb(dc, cx, cy, elapsed, v, accent, text)
	case theme.MicSpectrum:
		spectrum(dc, cx, cy, bins, accent)
	case theme.MicLiquid:
		liquid(dc, cx, cy, elapsed, v, accent, text)
	default:
		return false
	}
	return true
}

func classic(dc *gg.Context, cx, cy, elapsed, v float64, accent, text color.NRGBA) {
	s := ClassicScale(elapsed, v)
	if s <= 0 {
		return
	}
	glyph := func(c *gg.Context) {
		c.Push()
		c.Translate(cx, cy)
		c.Scale(s, s)
		c.SetColor(text)
		c.DrawRoundedRectangle(-25, -60, 50, 80, 25)
		c.Fill()
		c.SetLineWidth(6 * s)
		c.NewSubPath()
		c.DrawArc(0, -5, 50, 0, math.Pi)
		c.Stroke()
		c.DrawLine(0, 45, 0, 75)
		c.Stroke()
		c.Pop()
	}
	effects.Glow(dc, effects.Around(dc, cx, cy, 90*s), 30, accent, glyph)
	glyph(dc)
}

func neonRing(dc *gg.Context, cx, cy, elapsed, v float64, accent, text color.NRGBA) {
	rings := func(c *gg.Context) {
		c.SetColor(accent)
		for i := 0; i < 3; i++ {
			spin := elapsed * float64(1+i)
			c.SetLineWidth(float64(10 - 2*i))
			c.NewSubPath()
			c.DrawArc(cx, cy, NeonRingRadius(i, v), spin, spin+math.Pi*1.5)
			c.Stroke()
		}
	}
	effects.Glow(dc, effects.Around(dc, cx, cy, NeonRingRadius(2, v)+10), 20, accent, rings)
	rings(dc)

	dc.SetColor(text)
	dc.DrawCircle(cx, cy, 40+v*20)
	dc.Fill()
}

func radialBars(dc *gg.Context, cx, cy, elapsed float64, bins []uint8, accent, text color.NRGBA) {
	for i := 0; i < 36; i++ {
		angle, h := RadialBar(i, elapsed, bins)
		dc.Push()
		dc.Translate(cx, cy)
		dc.Rotate(angle)
		// gradients are evaluated in device space
		x0, y0 := dc.TransformPoint(0, 50)
		x1, y1 := dc.TransformPoint(0, 50+h)
		g := gg.NewLinearGradient(x0, y0, x1, y1)
		g.AddColorStop(0, accent)
		g.AddColorStop(1, text)
		dc.SetFillStyle(g)
		dc.DrawRectangle(-4, 50, 8, h)
		dc.Fill()
		dc.Pop()
	}
}

func concentric(dc *gg.Context, cx, cy, elapsed, v float64, accent color.NRGBA) {
	for i := 0; i < 5; i++ {
		r, shift := ConcentricRing(i, elapsed, v)
		w := 6 * (1 - shift)
		if r <= 0 || w <= 0 {
			continue
		}
		dc.SetColor(theme.WithAlpha(accent, 1-shift))
		dc.SetLineWidth(w)
		dc.DrawCircle(cx, cy, r)
		dc.Stroke()
	}
}

func pulseOrb(dc *gg.Context, cx, cy, elapsed, v float64, accent, text color.NRGBA) {
	for i := 0; i < 3; i++ {
		r := PulseOrbRadius(i, v)
		if r <= 0 {
			continue
		}
		ox := cx + math.Sin(elapsed*3+float64(i))*10
		oy := cy + math.Cos(elapsed*3-float64(i))*10
		g := gg.NewRadialGradient(cx, cy, 0, cx, cy, r)
		g.AddColorStop(0, text)
		g.AddColorStop(0.4, accent)
		g.AddColorStop(1, color.NRGBA{})
		dc.SetFillStyle(g)
		dc.DrawCircle(ox, oy, r)
		dc.Fill()
	}
}

func spectrum(dc *gg.Context, cx, cy float64, bins []uint8, accent color.NRGBA) {
	if len(bins) == 0 {
		return
	}
	dc.ClearPath()
	for i := 0; i < 128; i++ {
		a := float64(i) / 128 * 2 * math.Pi
		r := SpectrumRadius(i, bins)
		dc.LineTo(cx+math.Cos(a)*r, cy+math.Sin(a)*r)
	}
	dc.ClosePath()
	dc.SetColor(accent)
	dc.SetLineWidth(8)
	dc.StrokePreserve()
	dc.SetColor(theme.WithAlpha(accent, 0.2))
	dc.Fill()
}

func liquid(dc *gg.Context, cx, cy, elapsed, v float64, accent, text color.NRGBA) {
	dc.ClearPath()
	for i := 0; i < 180; i++ {
		a := float64(i) / 180 * 2 * math.Pi
		r := LiquidRadius(a, elapsed, v)
		dc.LineTo(cx+math.Cos(a)*r, cy+math.Sin(a)*r)
	}
	dc.ClosePath()
	g := gg.NewRadialGradient(cx, cy, 0, cx, cy, 200)
	g.AddColorStop(0, text)
	g.AddColorStop(0.7, accent)
	g.AddColorStop(1, theme.WithAlpha(accent, 0))
	dc.SetFillStyle(g)
	dc.Fill()
}
