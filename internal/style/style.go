// Package style holds the user-editable scene description the renderer
// reads once per frame.
package style

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/satindergrewal/promoreel/internal/theme"
)

// Speaker is one portrait slot.
type Speaker struct {
	Image string `yaml:"image" json:"image"` // file path or data: URL; empty draws a placeholder
	Name  string `yaml:"name" json:"name"`
}

// State is the full scene description. Enumerated fields may hold unknown
// identifiers; every drawing routine falls back for those.
type State struct {
	Title1      string              `yaml:"title1" json:"title1"`
	Title1Color string              `yaml:"title1_color" json:"title1Color"`
	Title2      string              `yaml:"title2" json:"title2"`
	Title2Color string              `yaml:"title2_color" json:"title2Color"`
	Template    theme.TitleTemplate `yaml:"template" json:"template"`
	TitleAnim   theme.TitleAnim     `yaml:"title_anim" json:"titleAnim"`
	BrandAnim   theme.BrandAnim     `yaml:"brand_anim" json:"brandAnim"`
	Shape       theme.Shape         `yaml:"shape" json:"shape"`
	Theme       theme.ID            `yaml:"theme" json:"theme"`
	Mic         theme.MicStyle      `yaml:"mic" json:"mic"`
	Left        Speaker             `yaml:"left" json:"left"`
	Right       Speaker             `yaml:"right" json:"right"`
	Audio       string              `yaml:"audio" json:"audio"`
	Branding    [3]string           `yaml:"branding" json:"branding"`
}

// DefaultBranding is the channel name drawn across the bottom of the frame.
var DefaultBranding = [3]string{"রাজনীতি", "ও", "জনমত"}

// Default returns the scene shown on first launch.
func Default() State {
	return State{
		Title1:      "ভোটের মাঠে রাজনীতিবিদদের ভণ্ডামি ফাঁস!",
		Title1Color: "#ffffff",
		Title2:      "টুপি-পাঞ্জাবি পড়েও রক্ষা নেই",
		Title2Color: "#3b82f6",
		Template:    theme.TemplateModern,
		TitleAnim:   theme.TitleFade,
		BrandAnim:   theme.BrandSlide,
		Shape:       theme.ShapeCircle,
		Theme:       theme.DefaultTheme,
		Mic:         theme.MicClassic,
		Left:        Speaker{Name: "Speaker 1"},
		Right:       Speaker{Name: "Speaker 2"},
		Branding:    DefaultBranding,
	}
}

// Unknown lists the enumerated fields holding identifiers the renderer does
// not recognize.
func (s State) Unknown() []string {
	var out []string
	check := func(field string, ok bool, v any) {
		if !ok {
			out = append(out, fmt.Sprintf("%s=%v", field, v))
		}
	}
	check("template", s.Template.Valid(), s.Template)
	check("title_anim", s.TitleAnim.Valid(), s.TitleAnim)
	check("brand_anim", s.BrandAnim.Valid(), s.BrandAnim)
	check("shape", s.Shape.Valid(), s.Shape)
	check("theme", s.Theme.Valid(), s.Theme)
	check("mic", s.Mic.Valid(), s.Mic)
	return out
}

// LoadFile reads a YAML scene file. Keys absent from the file keep their
// Default values.
func LoadFile(path string) (State, error) {
	st := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return st, fmt.Errorf("read style file: %w", err)
	}
	if err := yaml.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parse style file: %w", err)
	}
	applyDefaults(&st)
	return st, nil
}

func applyDefaults(st *State) {
	for i, part := range st.Branding {
		if part == "" {
			st.Branding[i] = DefaultBranding[i]
		}
	}
	if st.Title1Color == "" {
		st.Title1Color = "#ffffff"
	}
	if st.Title2Color == "" {
		st.Title2Color = "#3b82f6"
	}
}

// Store is the single shared State. The API writes it, the render loop
// reads a copy per frame.
type Store struct {
	mu sync.RWMutex
	st State
}

func NewStore(st State) *Store {
	return &Store{st: st}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st
}

// Update applies fn to the state under the write lock and returns the result.
func (s *Store) Update(fn func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.st)
	applyDefaults(&s.st)
	return s.st
}
