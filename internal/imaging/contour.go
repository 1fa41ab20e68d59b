package imaging

import "github.com/ironsheep/quiz-tapper/internal/geometry"

// neighbors lists the 8-neighborhood clockwise (y grows downward),
// starting east.
var neighbors = [8]geometry.Point{
	{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: -1, Y: 1},
	{X: -1, Y: 0}, {X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
}

func neighborIndex(from, to geometry.Point) int {
	d := geometry.Point{X: to.X - from.X, Y: to.Y - from.Y}
	for i, n := range neighbors {
		if n == d {
			return i
		}
	}
	return -1
}

// TraceContours follows every outer and hole border of the foreground in m.
//
// # Algorithm
//
// This is the border following of Suzuki and Abe (1985) without the
// hierarchy bookkeeping. The map is copied into a zero-padded label grid
// and scanned in raster order:
//
//  1. A foreground pixel labelled 1 with background on its left starts an
//     outer border. Any positive pixel with background on its right starts
//     a hole border.
//  2. From the start pixel the first non-zero neighbor is found clockwise,
//     beginning at the background pixel that triggered the start. None means
//     an isolated pixel, which becomes a one-point contour.
//  3. The border is then walked counterclockwise around each current pixel.
//     Each visited pixel is labelled -n when its east neighbor was examined
//     and found empty, otherwise n if still unlabelled, so that no border is
//     started twice.
//  4. The walk ends when it returns to the start pixel via the first step.
//
// Contours are emitted in the order their start pixels are met, with points
// in traversal order and image coordinates.
func TraceContours(m *geometry.EdgeMap) []geometry.Contour {
	w, h := m.Width+2, m.Height+2
	label := make([]int32, w*h)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] {
				label[(y+1)*w+x+1] = 1
			}
		}
	}
	at := func(p geometry.Point) int32 { return label[p.Y*w+p.X] }
	set := func(p geometry.Point, v int32) { label[p.Y*w+p.X] = v }

	var contours []geometry.Contour
	nbd := int32(1)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			cur := label[y*w+x]
			if cur == 0 {
				continue
			}

			start := geometry.Point{X: x, Y: y}
			var from geometry.Point
			switch {
			case cur == 1 && label[y*w+x-1] == 0:
				from = geometry.Point{X: x - 1, Y: y}
			case cur >= 1 && label[y*w+x+1] == 0:
				from = geometry.Point{X: x + 1, Y: y}
			default:
				continue
			}
			nbd++

			// Clockwise search for the first step.
			first := geometry.Point{X: -1}
			dir := neighborIndex(start, from)
			for k := 0; k < 8; k++ {
				n := neighbors[(dir+k)%8]
				p := geometry.Point{X: start.X + n.X, Y: start.Y + n.Y}
				if at(p) != 0 {
					first = p
					break
				}
			}
			if first.X < 0 {
				set(start, -nbd)
				contours = append(contours, geometry.Contour{Points: []geometry.Point{{X: x - 1, Y: y - 1}}})
				continue
			}

			var pts []geometry.Point
			prev, pos := first, start
			for {
				// Counterclockwise search around pos, starting after prev.
				dir := neighborIndex(pos, prev)
				eastEmpty := false
				var next geometry.Point
				for k := 1; k <= 8; k++ {
					idx := (dir - k + 16) % 8
					n := neighbors[idx]
					p := geometry.Point{X: pos.X + n.X, Y: pos.Y + n.Y}
					if at(p) != 0 {
						next = p
						break
					}
					if idx == 0 {
						eastEmpty = true
					}
				}

				if eastEmpty {
					set(pos, -nbd)
				} else if at(pos) == 1 {
					set(pos, nbd)
				}
				pts = append(pts, geometry.Point{X: pos.X - 1, Y: pos.Y - 1})

				if next == start && pos == first {
					break
				}
				prev, pos = pos, next
			}
			contours = append(contours, geometry.Contour{Points: pts})
		}
	}
	return contours
}
