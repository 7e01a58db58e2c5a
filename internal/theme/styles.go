package theme

// TitleTemplate selects the header layout.
type TitleTemplate string

const (
	TemplateModern      TitleTemplate = "modern"
	TemplateBreaking    TitleTemplate = "breaking"
	TemplateMinimalist  TitleTemplate = "minimalist"
	TemplatePodcast     TitleTemplate = "podcast"
	TemplateTalkShow    TitleTemplate = "talkshow"
	TemplateElection    TitleTemplate = "election"
	TemplateDocumentary TitleTemplate = "documentary"
	TemplateSocial      TitleTemplate = "social"
	TemplateLateNight   TitleTemplate = "latenight"
	TemplateRetro       TitleTemplate = "retro"
)

// TitleAnim selects the headline animation.
type TitleAnim string

const (
	TitleNone       TitleAnim = "none"
	TitleFade       TitleAnim = "fade"
	TitleSlideDown  TitleAnim = "slide_down"
	TitleZoom       TitleAnim = "zoom"
	TitleTypewriter TitleAnim = "typewriter"
	TitleBlur       TitleAnim = "blur"
	TitleBounce     TitleAnim = "bounce"
	TitleGlow       TitleAnim = "glow"
	TitleRainbow    TitleAnim = "rainbow"
	TitleFlip       TitleAnim = "flip"
)

// BrandAnim selects the branding-fragment animation.
type BrandAnim string

const (
	BrandFade       BrandAnim = "fade"
	BrandSlide      BrandAnim = "slide"
	BrandScale      BrandAnim = "scale"
	BrandTypewriter BrandAnim = "typewriter"
	BrandBlur       BrandAnim = "blur"
	BrandGlow       BrandAnim = "glow"
	BrandBounce     BrandAnim = "bounce"
	BrandRotate     BrandAnim = "rotate"
	BrandFlip       BrandAnim = "flip"
	BrandRainbow    BrandAnim = "rainbow"
)

// Shape selects the portrait clip outline.
type Shape string

const (
	ShapeCircle  Shape = "circle"
	ShapeSquare  Shape = "square"
	ShapeRounded Shape = "rounded"
	ShapeHexagon Shape = "hexagon"
	ShapeDiamond Shape = "diamond"
)

// MicStyle selects the audio-reactive centerpiece.
type MicStyle string

const (
	MicClassic    MicStyle = "classic"
	MicNeonRing   MicStyle = "neon_ring"
	MicRadialBars MicStyle = "radial_bars"
	MicConcentric MicStyle = "concentric"
	MicPulseOrb   MicStyle = "pulse_orb"
	MicSpectrum   MicStyle = "spectrum"
	MicLiquid     MicStyle = "liquid"
)

var (
	titleTemplates = []TitleTemplate{TemplateModern, TemplateBreaking, TemplateMinimalist, TemplatePodcast,
		TemplateTalkShow, TemplateElection, TemplateDocumentary, TemplateSocial, TemplateLateNight, TemplateRetro}
	titleAnims = []TitleAnim{TitleNone, TitleFade, TitleSlideDown, TitleZoom, TitleTypewriter,
		TitleBlur, TitleBounce, TitleGlow, TitleRainbow, TitleFlip}
	brandAnims = []BrandAnim{BrandFade, BrandSlide, BrandScale, BrandTypewriter, BrandBlur,
		BrandGlow, BrandBounce, BrandRotate, BrandFlip, BrandRainbow}
	shapes    = []Shape{ShapeCircle, ShapeSquare, ShapeRounded, ShapeHexagon, ShapeDiamond}
	micStyles = []MicStyle{MicClassic, MicNeonRing, MicRadialBars, MicConcentric, MicPulseOrb, MicSpectrum, MicLiquid}
)

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func clone[T any](list []T) []T {
	out := make([]T, len(list))
	copy(out, list)
	return out
}

func (t TitleTemplate) Valid() bool { return contains(titleTemplates, t) }
func (a TitleAnim) Valid() bool     { return contains(titleAnims, a) }
func (a BrandAnim) Valid() bool     { return contains(brandAnims, a) }
func (s Shape) Valid() bool         { return contains(shapes, s) }
func (m MicStyle) Valid() bool      { return contains(micStyles, m) }

func TitleTemplates() []TitleTemplate { return clone(titleTemplates) }
func TitleAnims() []TitleAnim         { return clone(titleAnims) }
func BrandAnims() []BrandAnim         { return clone(brandAnims) }
func Shapes() []Shape                 { return clone(shapes) }
func MicStyles() []MicStyle           { return clone(micStyles) }
