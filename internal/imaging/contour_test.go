package imaging

import (
	"testing"

	"github.com/ironsheep/quiz-tapper/internal/geometry"
)

func edgeMapFromRows(rows ...string) *geometry.EdgeMap {
	m := geometry.NewEdgeMap(len(rows[0]), len(rows))
	for y, row := range rows {
		for x, ch := range row {
			m.Set(x, y, ch == '#')
		}
	}
	return m
}

func TestTraceContours_SinglePixel(t *testing.T) {
	m := edgeMapFromRows(
		"...",
		".#.",
		"...",
	)
	contours := TraceContours(m)
	if len(contours) != 1 {
		t.Fatalf("contours: got %d, want 1", len(contours))
	}
	if got := contours[0].Points; len(got) != 1 || got[0] != (geometry.Point{X: 1, Y: 1}) {
		t.Errorf("points: got %v, want [(1, 1)]", got)
	}
}

func TestTraceContours_HorizontalPair(t *testing.T) {
	m := edgeMapFromRows(
		"....",
		".##.",
		"....",
	)
	contours := TraceContours(m)
	if len(contours) != 1 {
		t.Fatalf("contours: got %d, want 1", len(contours))
	}
	want := []geometry.Point{{X: 1, Y: 1}, {X: 2, Y: 1}}
	got := contours[0].Points
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("points: got %v, want %v", got, want)
	}
}

func TestTraceContours_FilledBlock(t *testing.T) {
	m := edgeMapFromRows(
		".....",
		".###.",
		".###.",
		".###.",
		".....",
	)
	contours := TraceContours(m)
	if len(contours) != 1 {
		t.Fatalf("contours: got %d, want 1 (no hole)", len(contours))
	}
	if n := contours[0].Len(); n != 8 {
		t.Errorf("points: got %d, want 8 border pixels", n)
	}
	want := geometry.Rect{Left: 1, Top: 1, Width: 3, Height: 3}
	if r := geometry.BoundingRect(contours[0]); r != want {
		t.Errorf("bounding rect: got %v, want %v", r, want)
	}
}

func TestTraceContours_RingHasOuterAndHoleBorder(t *testing.T) {
	m := edgeMapFromRows(
		".......",
		".#####.",
		".#...#.",
		".#...#.",
		".#####.",
		".......",
	)
	contours := TraceContours(m)
	if len(contours) != 2 {
		t.Fatalf("contours: got %d, want 2", len(contours))
	}

	outer := contours[0]
	if outer.Len() != 14 {
		t.Errorf("outer points: got %d, want 14", outer.Len())
	}
	if outer.Points[0] != (geometry.Point{X: 1, Y: 1}) {
		t.Errorf("outer start: got %v, want (1, 1)", outer.Points[0])
	}

	want := geometry.Rect{Left: 1, Top: 1, Width: 5, Height: 4}
	for i, c := range contours {
		if r := geometry.BoundingRect(c); r != want {
			t.Errorf("contour %d bounding rect: got %v, want %v", i, r, want)
		}
	}
}

func TestTraceContours_TouchesImageBorder(t *testing.T) {
	m := edgeMapFromRows(
		"###",
		"#.#",
		"###",
	)
	contours := TraceContours(m)
	if len(contours) != 2 {
		t.Fatalf("contours: got %d, want 2", len(contours))
	}
	for _, c := range contours {
		for _, p := range c.Points {
			if p.X < 0 || p.Y < 0 || p.X >= 3 || p.Y >= 3 {
				t.Fatalf("point %v outside the map", p)
			}
		}
	}
}

func TestTraceContours_SeparateShapesInRasterOrder(t *testing.T) {
	m := edgeMapFromRows(
		"......",
		"....#.",
		"......",
		".##...",
		"......",
	)
	contours := TraceContours(m)
	if len(contours) != 2 {
		t.Fatalf("contours: got %d, want 2", len(contours))
	}
	if contours[0].Points[0] != (geometry.Point{X: 4, Y: 1}) {
		t.Errorf("first contour starts at %v, want (4, 1)", contours[0].Points[0])
	}
	if contours[1].Points[0] != (geometry.Point{X: 1, Y: 3}) {
		t.Errorf("second contour starts at %v, want (1, 3)", contours[1].Points[0])
	}
}

func TestTraceContours_Empty(t *testing.T) {
	if got := TraceContours(geometry.NewEdgeMap(10, 10)); len(got) != 0 {
		t.Errorf("contours: got %d, want 0", len(got))
	}
}

func TestCannyExtractor(t *testing.T) {
	img := createEdgeTestImage(80, 80)

	edges, contours, err := CannyExtractor{Options: DefaultEdgeOptions()}.Extract(img)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if edges.Width != 80 || edges.Height != 80 {
		t.Errorf("edge map: got %dx%d, want 80x80", edges.Width, edges.Height)
	}
	if len(contours) == 0 {
		t.Fatal("expected contours around the square")
	}

	// The largest contour encloses the square's border.
	var best geometry.Rect
	for _, c := range contours {
		if r := geometry.BoundingRect(c); r.Area() > best.Area() {
			best = r
		}
	}
	if absInt(best.Left-20) > 3 || absInt(best.Right()-59) > 3 || absInt(best.Top-20) > 3 || absInt(best.Bottom()-59) > 3 {
		t.Errorf("largest contour %v does not match the square at 20..59", best)
	}
}

func TestCannyExtractor_EmptyImage(t *testing.T) {
	if _, _, err := (CannyExtractor{}).Extract(nil); err == nil {
		t.Error("Extract should fail for a nil image")
	}
}
