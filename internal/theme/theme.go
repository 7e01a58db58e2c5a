package theme

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Frame geometry shared by the composer, the shape rasterizer and the encoders.
const (
	Width           = 1280
	Height          = 720
	HeaderHeight    = 180
	SpeakerY        = 380 // vertical center of both portraits
	SpeakerSize     = 310
	SpeakerInset    = 160
	BrandingY       = Height - 85
	BrandingSpacing = 210
	PortraitBorder  = 6
	RoundedCorner   = 40
	MicX            = Width / 2
	MicY            = SpeakerY
)

// ID names a color theme.
type ID string

const (
	Midnight ID = "midnight"
	DeepSea  ID = "deepsea"
	BloodRed ID = "bloodred"
	Forest   ID = "forest"
	Gold     ID = "gold"
	Carbon   ID = "carbon"
	Neon     ID = "neon"
	Sunset   ID = "sunset"
	Cream    ID = "cream"
	Contrast ID = "contrast"

	DefaultTheme = Midnight
)

// Palette is the four-color tuple applied uniformly across one frame.
// Colors are stored as CSS hex strings.
type Palette struct {
	Background string `json:"background"`
	Header     string `json:"header"`
	Accent     string `json:"accent"`
	Text       string `json:"text"`
}

var palettes = map[ID]Palette{
	Midnight: {"#0f172a", "#1e293b", "#60a5fa", "#f8fafc"},
	DeepSea:  {"#020617", "#1e1b4b", "#38bdf8", "#e2e8f0"},
	BloodRed: {"#180808", "#450a0a", "#f87171", "#fee2e2"},
	Forest:   {"#06201b", "#064e3b", "#4ade80", "#ecfdf5"},
	Gold:     {"#1c1917", "#44403c", "#fbbf24", "#fffbeb"},
	Carbon:   {"#0a0a0a", "#262626", "#a3a3a3", "#fafafa"},
	Neon:     {"#0f0720", "#2e1065", "#c084fc", "#f5f3ff"},
	Sunset:   {"#1c0a00", "#7c2d12", "#fb923c", "#fff7ed"},
	Cream:    {"#fffbeb", "#fef3c7", "#d97706", "#451a03"},
	Contrast: {"#000000", "#171717", "#ffffff", "#e5e5e5"},
}

var themeOrder = []ID{Midnight, DeepSea, BloodRed, Forest, Gold, Carbon, Neon, Sunset, Cream, Contrast}

// PaletteFor returns the palette for id, or the default palette when id is unknown.
func PaletteFor(id ID) Palette {
	if p, ok := palettes[id]; ok {
		return p
	}
	return palettes[DefaultTheme]
}

// Valid reports whether id names a known theme.
func (id ID) Valid() bool {
	_, ok := palettes[id]
	return ok
}

// Themes lists the theme identifiers in display order.
func Themes() []ID {
	out := make([]ID, len(themeOrder))
	copy(out, themeOrder)
	return out
}

// Colors resolves the palette's hex strings.
func (p Palette) Colors() (bg, header, accent, text color.NRGBA) {
	return ParseColor(p.Background, color.NRGBA{A: 255}),
		ParseColor(p.Header, color.NRGBA{A: 255}),
		ParseColor(p.Accent, color.NRGBA{R: 255, G: 255, B: 255, A: 255}),
		ParseColor(p.Text, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
}

// ParseColor parses a "#rrggbb" or "#rgb" string, returning fallback on error.
func ParseColor(s string, fallback color.NRGBA) color.NRGBA {
	c, err := colorful.Hex(s)
	if err != nil {
		return fallback
	}
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// WithAlpha returns c with its alpha replaced by a in [0,1].
func WithAlpha(c color.NRGBA, a float64) color.NRGBA {
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	c.A = uint8(a*255 + 0.5)
	return c
}

// HSL converts hue in degrees and saturation/lightness in [0,1] to an opaque color.
func HSL(h, s, l float64) color.NRGBA {
	r, g, b := colorful.Hsl(h, s, l).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
