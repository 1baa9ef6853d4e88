package model

import (
	"fmt"
	"math"
)

// Rect is an axis-aligned box in top-down page coordinates: the origin is
// the top-left corner of the page and Y grows downward, so Y0 is the top edge.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// NewRect builds a Rect and normalizes inverted coordinates.
func NewRect(x0, y0, x1, y1 float64) Rect {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Area returns zero for degenerate rectangles.
func (r Rect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width() * r.Height()
}

func (r Rect) CenterX() float64 { return (r.X0 + r.X1) / 2 }
func (r Rect) CenterY() float64 { return (r.Y0 + r.Y1) / 2 }

// IsEmpty reports whether the rectangle has no positive area.
func (r Rect) IsEmpty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

// Intersect returns the overlapping part of r and o, or the zero Rect.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		X0: math.Max(r.X0, o.X0),
		Y0: math.Max(r.Y0, o.Y0),
		X1: math.Min(r.X1, o.X1),
		Y1: math.Min(r.Y1, o.Y1),
	}
	if out.IsEmpty() {
		return Rect{}
	}
	return out
}

// Intersects reports whether r and o share any area.
func (r Rect) Intersects(o Rect) bool {
	return !r.Intersect(o).IsEmpty()
}

// Union returns the smallest rectangle containing both. The zero Rect is
// treated as the identity so Union can be folded over a slice.
func (r Rect) Union(o Rect) Rect {
	if r == (Rect{}) {
		return o
	}
	if o == (Rect{}) {
		return r
	}
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

// OverlapRatio is the share of r's own area covered by o.
func (r Rect) OverlapRatio(o Rect) float64 {
	area := r.Area()
	if area <= 0 {
		return 0
	}
	return r.Intersect(o).Area() / area
}

// HorizontalOverlap is the x-overlap of r and o relative to the narrower of the two.
func (r Rect) HorizontalOverlap(o Rect) float64 {
	overlap := math.Min(r.X1, o.X1) - math.Max(r.X0, o.X0)
	if overlap <= 0 {
		return 0
	}
	narrow := math.Min(r.Width(), o.Width())
	if narrow <= 0 {
		return 0
	}
	return math.Min(1, overlap/narrow)
}

// VerticalGap is the empty space between r and o along Y; zero when they overlap vertically.
func (r Rect) VerticalGap(o Rect) float64 {
	switch {
	case o.Y0 >= r.Y1:
		return o.Y0 - r.Y1
	case r.Y0 >= o.Y1:
		return r.Y0 - o.Y1
	default:
		return 0
	}
}

// EdgeDistance is the Euclidean distance between the closest edges of r and o.
func (r Rect) EdgeDistance(o Rect) float64 {
	if r.Intersects(o) {
		return 0
	}
	dx := math.Max(0, math.Max(o.X0-r.X1, r.X0-o.X1))
	dy := math.Max(0, math.Max(o.Y0-r.Y1, r.Y0-o.Y1))
	return math.Hypot(dx, dy)
}

// Expand grows the rectangle by the given margins.
func (r Rect) Expand(top, bottom, left, right float64) Rect {
	return Rect{X0: r.X0 - left, Y0: r.Y0 - top, X1: r.X1 + right, Y1: r.Y1 + bottom}
}

// Clip limits r to bounds. The result may be empty.
func (r Rect) Clip(bounds Rect) Rect {
	return Rect{
		X0: math.Max(r.X0, bounds.X0),
		Y0: math.Max(r.Y0, bounds.Y0),
		X1: math.Min(r.X1, bounds.X1),
		Y1: math.Min(r.Y1, bounds.Y1),
	}
}

// Contains reports whether o lies entirely within r.
func (r Rect) Contains(o Rect) bool {
	return o.X0 >= r.X0 && o.Y0 >= r.Y0 && o.X1 <= r.X1 && o.Y1 <= r.Y1
}

func (r Rect) String() string {
	return fmt.Sprintf("[%.1f %.1f %.1f %.1f]", r.X0, r.Y0, r.X1, r.Y1)
}

// Margins records how far an exclusion box was grown around a detected figure.
type Margins struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}
