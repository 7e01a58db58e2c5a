package effects

import (
	"image"
	"image/color"
	"testing"

	"github.com/fogleman/gg"
)

func alphaAt(dc *gg.Context, x, y int) uint32 {
	_, _, _, a := dc.Image().At(x, y).RGBA()
	return a
}

func TestGlowSpreadsBeyondShape(t *testing.T) {
	dc := gg.NewContext(200, 200)
	accent := color.NRGBA{R: 96, G: 165, B: 250, A: 255}
	Glow(dc, image.Rect(60, 60, 140, 140), 20, accent, func(l *gg.Context) {
		l.DrawRectangle(80, 80, 40, 40)
		l.SetColor(color.White)
		l.Fill()
	})
	if alphaAt(dc, 100, 100) == 0 {
		t.Error("glow missing at shape center")
	}
	if alphaAt(dc, 74, 100) == 0 {
		t.Error("glow did not spread outside the shape")
	}
	if alphaAt(dc, 5, 5) != 0 {
		t.Error("glow leaked far outside its bounds")
	}
	r, g, b, _ := dc.Image().At(100, 100).RGBA()
	if !(b > r && b > g) {
		t.Errorf("glow not tinted with accent: %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestGlowDisabled(t *testing.T) {
	dc := gg.NewContext(50, 50)
	called := false
	Glow(dc, image.Rect(0, 0, 50, 50), 0, color.NRGBA{A: 255}, func(*gg.Context) { called = true })
	if called {
		t.Error("zero blur should skip the pass")
	}
}

func TestDrawOpacityAndOffset(t *testing.T) {
	dc := gg.NewContext(100, 100)
	Draw(dc, Layer{Bounds: image.Rect(0, 0, 100, 100), Opacity: 0.5, OffsetX: 10}, func(l *gg.Context) {
		l.DrawRectangle(0, 0, 20, 20)
		l.SetColor(color.White)
		l.Fill()
	})
	if alphaAt(dc, 5, 5) != 0 {
		t.Error("layer was not offset")
	}
	a := alphaAt(dc, 15, 5) >> 8
	if a < 120 || a > 135 {
		t.Errorf("alpha = %d, want about 128", a)
	}
}

func TestDrawOutsideSurfaceIsNoop(t *testing.T) {
	dc := gg.NewContext(10, 10)
	called := false
	Draw(dc, Layer{Bounds: image.Rect(20, 20, 30, 30)}, func(*gg.Context) { called = true })
	if called {
		t.Error("paint called for an empty region")
	}
}

func TestAround(t *testing.T) {
	dc := gg.NewContext(10, 10)
	dc.Translate(100, 50)
	if got := Around(dc, 0, 0, 10); got != image.Rect(90, 40, 110, 60) {
		t.Errorf("Around = %v", got)
	}
}

func TestCompositeOpacity(t *testing.T) {
	src := gg.NewContext(10, 10)
	src.SetColor(color.White)
	src.Clear()
	s := Sprite{Image: src.Image(), At: image.Pt(5, 5)}

	dc := gg.NewContext(20, 20)
	s.Composite(dc, 0.25)
	if a := alphaAt(dc, 8, 8) >> 8; a < 60 || a > 68 {
		t.Errorf("alpha = %d, want about 64", a)
	}
	if alphaAt(dc, 2, 2) != 0 {
		t.Error("sprite drawn outside its placement")
	}
	s.Composite(dc, 0)
	if a := alphaAt(dc, 8, 8) >> 8; a > 68 {
		t.Errorf("zero opacity still painted, alpha = %d", a)
	}
}

func TestWideBlurKeepsLayerSize(t *testing.T) {
	dc := gg.NewContext(300, 200)
	s, ok := Render(dc, Layer{Bounds: image.Rect(10, 20, 250, 180), Blur: 30}, func(l *gg.Context) {
		l.DrawCircle(130, 100, 30)
		l.SetColor(color.White)
		l.Fill()
	})
	if !ok {
		t.Fatal("layer not rendered")
	}
	if b := s.Image.Bounds(); b.Dx() != 240 || b.Dy() != 160 || s.At != image.Pt(10, 20) {
		t.Errorf("sprite %v at %v, want 240x160 at (10,20)", b, s.At)
	}
	_, _, _, center := s.Image.At(120, 80).RGBA()
	_, _, _, edge := s.Image.At(2, 2).RGBA()
	if center == 0 || center <= edge {
		t.Errorf("blurred alpha center %d, edge %d", center>>8, edge>>8)
	}
}

func TestFill(t *testing.T) {
	dc := gg.NewContext(10, 10)
	Fill(dc, image.Rect(2, 2, 5, 5), color.NRGBA{R: 255, A: 255})
	if r, _, _, _ := dc.Image().At(3, 3).RGBA(); r>>8 != 255 {
		t.Errorf("fill missing: r = %d", r>>8)
	}
	if alphaAt(dc, 6, 6) != 0 {
		t.Error("fill leaked outside its rectangle")
	}
}

func TestCacheRendersOnce(t *testing.T) {
	c := NewCache(1 << 20)
	calls := 0
	render := func() (Sprite, bool) {
		calls++
		return Sprite{Image: image.NewRGBA(image.Rect(0, 0, 10, 10))}, true
	}
	for i := 0; i < 3; i++ {
		if _, ok := c.Sprite("a", render); !ok {
			t.Fatal("cached sprite not ok")
		}
	}
	if calls != 1 {
		t.Errorf("render called %d times, want 1", calls)
	}
	if c.Used() != 400 {
		t.Errorf("Used = %d, want 400", c.Used())
	}

	failed := 0
	for i := 0; i < 2; i++ {
		c.Sprite("bad", func() (Sprite, bool) { failed++; return Sprite{}, false })
	}
	if failed != 1 {
		t.Errorf("failed render repeated %d times", failed)
	}
}

func TestCacheBudget(t *testing.T) {
	c := NewCache(1000) // two 10x10 sprites
	sprite := func() (Sprite, bool) {
		return Sprite{Image: image.NewRGBA(image.Rect(0, 0, 10, 10))}, true
	}
	for _, k := range []string{"a", "b", "c", "d"} {
		c.Sprite(k, sprite)
		if c.Used() > 1000 {
			t.Fatalf("after %q Used = %d over budget", k, c.Used())
		}
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}

	huge := func() (Sprite, bool) {
		return Sprite{Image: image.NewRGBA(image.Rect(0, 0, 100, 100))}, true
	}
	if s, ok := c.Sprite("huge", huge); !ok || s.Image == nil {
		t.Error("oversized sprite not returned")
	}
	if c.Len() != 2 {
		t.Error("oversized sprite was cached")
	}
}
