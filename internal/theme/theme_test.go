package theme

import (
	"image/color"
	"testing"
)

func TestPaletteForKnownThemes(t *testing.T) {
	for _, id := range Themes() {
		p := PaletteFor(id)
		for name, v := range map[string]string{
			"Background": p.Background, "Header": p.Header, "Accent": p.Accent, "Text": p.Text,
		} {
			if v == "" {
				t.Errorf("%s: %s is empty", id, name)
			}
			if got := ParseColor(v, color.NRGBA{R: 1, G: 2, B: 3}); got == (color.NRGBA{R: 1, G: 2, B: 3}) {
				t.Errorf("%s: %s = %q does not parse", id, name, v)
			}
		}
	}
	if len(Themes()) != 10 {
		t.Errorf("got %d themes, want 10", len(Themes()))
	}
}

func TestPaletteForUnknownFallsBack(t *testing.T) {
	got := PaletteFor("plaid")
	want := PaletteFor(DefaultTheme)
	if got != want {
		t.Errorf("PaletteFor(unknown) = %+v, want default %+v", got, want)
	}
	if got.Background != "#0f172a" {
		t.Errorf("default background = %q, want #0f172a", got.Background)
	}
}

func TestPaletteColors(t *testing.T) {
	bg, header, accent, text := PaletteFor(Cream).Colors()
	if bg != (color.NRGBA{0xff, 0xfb, 0xeb, 0xff}) {
		t.Errorf("bg = %v", bg)
	}
	if header != (color.NRGBA{0xfe, 0xf3, 0xc7, 0xff}) {
		t.Errorf("header = %v", header)
	}
	if accent != (color.NRGBA{0xd9, 0x77, 0x06, 0xff}) {
		t.Errorf("accent = %v", accent)
	}
	if text != (color.NRGBA{0x45, 0x1a, 0x03, 0xff}) {
		t.Errorf("text = %v", text)
	}
}

func TestParseColor(t *testing.T) {
	fallback := color.NRGBA{R: 9, A: 255}
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#3b82f6", color.NRGBA{0x3b, 0x82, 0xf6, 0xff}},
		{"#fff", color.NRGBA{0xff, 0xff, 0xff, 0xff}},
		{"not-a-color", fallback},
		{"", fallback},
	}
	for _, tt := range tests {
		if got := ParseColor(tt.in, fallback); got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEnumValidity(t *testing.T) {
	if !MicLiquid.Valid() || MicStyle("laser").Valid() {
		t.Error("MicStyle.Valid mismatch")
	}
	if !ShapeHexagon.Valid() || Shape("star").Valid() {
		t.Error("Shape.Valid mismatch")
	}
	if !TitleSlideDown.Valid() || TitleAnim("slide").Valid() {
		t.Error("TitleAnim.Valid mismatch")
	}
	if !BrandRotate.Valid() || BrandAnim("zoom").Valid() {
		t.Error("BrandAnim.Valid mismatch")
	}
	if !TemplateBreaking.Valid() || TitleTemplate("tabloid").Valid() {
		t.Error("TitleTemplate.Valid mismatch")
	}
	if len(MicStyles()) != 7 || len(Shapes()) != 5 || len(TitleAnims()) != 10 || len(BrandAnims()) != 10 || len(TitleTemplates()) != 10 {
		t.Error("unexpected enumeration sizes")
	}
}

func TestWithAlpha(t *testing.T) {
	c := WithAlpha(color.NRGBA{R: 10, A: 255}, 0.2)
	if c.A != 51 || c.R != 10 {
		t.Errorf("WithAlpha = %v", c)
	}
	if WithAlpha(c, 2).A != 255 || WithAlpha(c, -1).A != 0 {
		t.Error("WithAlpha does not clamp")
	}
}
