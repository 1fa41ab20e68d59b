package geometry

// Contour is an ordered sequence of points tracing a connected edge boundary.
// No closure or convexity is implied.
type Contour struct {
	Points []Point `json:"points"`
}

// Len returns the number of points on the contour.
func (c Contour) Len() int { return len(c.Points) }

// BoundingRect returns the tight enclosing rectangle of c's points.
//
// Every point lies inside the result and each side touches at least one
// point. Calling it with an empty contour is a programming error and panics.
func BoundingRect(c Contour) Rect {
	if len(c.Points) == 0 {
		panic("geometry: BoundingRect of empty contour")
	}

	minX, minY := c.Points[0].X, c.Points[0].Y
	maxX, maxY := minX, minY
	for _, p := range c.Points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	return Rect{Left: minX, Top: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}
}

// EdgeMap is a binary foreground grid stored row-major.
type EdgeMap struct {
	Width  int
	Height int
	Pix    []bool
}

// NewEdgeMap allocates an all-background map.
func NewEdgeMap(width, height int) *EdgeMap {
	return &EdgeMap{Width: width, Height: height, Pix: make([]bool, width*height)}
}

// At reports whether (x, y) is foreground. Out-of-range coordinates are background.
func (m *EdgeMap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Set marks (x, y). Out-of-range coordinates are ignored.
func (m *EdgeMap) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// Count returns the number of foreground pixels.
func (m *EdgeMap) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}
