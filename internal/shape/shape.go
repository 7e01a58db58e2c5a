// Package shape builds the closed outlines used to clip and frame speaker portraits.
package shape

import (
	"math"

	"github.com/fogleman/gg"
	"github.com/satindergrewal/promoreel/internal/theme"
)

// Point is a vertex in surface coordinates.
type Point struct {
	X, Y float64
}

// Vertices returns the corner points of a polygonal shape whose bounding box
// has its top-left corner at (x, y). Circle and rounded shapes have no finite
// vertex list and report false, as do unknown kinds.
func Vertices(x, y, size float64, kind theme.Shape) ([]Point, bool) {
	switch kind {
	case theme.ShapeSquare:
		return []Point{{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}}, true
	case theme.ShapeHexagon:
		cx, cy, r := x+size/2, y+size/2, size/2
		pts := make([]Point, 6)
		for i := range pts {
			a := math.Pi / 3 * float64(i)
			pts[i] = Point{cx + r*math.Cos(a), cy + r*math.Sin(a)}
		}
		return pts, true
	case theme.ShapeDiamond:
		return []Point{
			{x + size/2, y},
			{x + size, y + size/2},
			{x + size/2, y + size},
			{x, y + size/2},
		}, true
	}
	return nil, false
}

// Path replaces the current path on dc with the closed outline of kind.
// It returns false and leaves the path empty when kind is unknown.
func Path(dc *gg.Context, x, y, size float64, kind theme.Shape) bool {
	dc.ClearPath()
	switch kind {
	case theme.ShapeCircle:
		dc.NewSubPath()
		dc.DrawArc(x+size/2, y+size/2, size/2, 0, 2*math.Pi)
		dc.ClosePath()
		return true
	case theme.ShapeRounded:
		dc.DrawRoundedRectangle(x, y, size, size, theme.RoundedCorner)
		return true
	}
	pts, ok := Vertices(x, y, size, kind)
	if !ok {
		return false
	}
	dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.ClosePath()
	return true
}
