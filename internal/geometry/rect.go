package geometry

import (
	"fmt"
	"image"
)

// Point is an integer pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Rect is an axis-aligned rectangle defined by its top-left corner and size.
//
// Width and Height are never negative. A zero-area Rect is legal but never
// survives the matcher's filters.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRect returns a Rect at (left, top) of the given size.
// It panics if width or height is negative.
func NewRect(left, top, width, height int) Rect {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("geometry: negative rect size %dx%d", width, height))
	}
	return Rect{Left: left, Top: top, Width: width, Height: height}
}

// Right returns the inclusive right column.
func (r Rect) Right() int { return r.Left + r.Width - 1 }

// Bottom returns the inclusive bottom row.
func (r Rect) Bottom() int { return r.Top + r.Height - 1 }

// Area returns Width*Height in 64-bit arithmetic.
func (r Rect) Area() int64 { return int64(r.Width) * int64(r.Height) }

// Center returns the integer midpoint (left+width/2, top+height/2).
func (r Rect) Center() Point {
	return Point{X: r.Left + r.Width/2, Y: r.Top + r.Height/2}
}

// Contains reports whether p lies within r's inclusive bounds.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right() && p.Y >= r.Top && p.Y <= r.Bottom()
}

// AspectRatio returns Width/Height, or 0 for a zero-height rect.
func (r Rect) AspectRatio() float64 {
	if r.Height == 0 {
		return 0
	}
	return float64(r.Width) / float64(r.Height)
}

// Image converts r to the half-open image.Rectangle used by the image packages.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Left+r.Width, r.Top+r.Height)
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.Left, r.Top)
}

// IoU computes the intersection-over-union of a and b.
//
// The intersection uses inclusive bounds. When it is empty the result is 0;
// otherwise it is intersection/(area(a)+area(b)-intersection), with areas in
// int64.
func IoU(a, b Rect) float64 {
	left := max(a.Left, b.Left)
	top := max(a.Top, b.Top)
	right := min(a.Right(), b.Right())
	bottom := min(a.Bottom(), b.Bottom())
	if left > right || top > bottom {
		return 0
	}

	inter := int64(right-left+1) * int64(bottom-top+1)
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
