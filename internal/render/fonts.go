package render

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// Fonts holds one face per text role. Faces are not safe for concurrent
// use; only the render loop draws with them.
type Fonts struct {
	Title    font.Face
	Subtitle font.Face
	Branding font.Face
	Banner   font.Face
}

const (
	titleSize    = 52
	subtitleSize = 38
	brandingSize = 82
	bannerSize   = 24
)

// LoadFonts parses the bold face at path, or the bundled Go Bold face when
// path is empty. Bengali headlines need a path to a font that covers them.
func LoadFonts(path string) (*Fonts, error) {
	src := gobold.TTF
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		src = data
	}
	f, err := opentype.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	face := func(size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	}
	var fonts Fonts
	for _, slot := range []struct {
		dst  *font.Face
		size float64
	}{
		{&fonts.Title, titleSize},
		{&fonts.Subtitle, subtitleSize},
		{&fonts.Branding, brandingSize},
		{&fonts.Banner, bannerSize},
	} {
		fc, err := face(slot.size)
		if err != nil {
			return nil, fmt.Errorf("font face %.0fpx: %w", slot.size, err)
		}
		*slot.dst = fc
	}
	return &fonts, nil
}
