package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/quiz-tapper/internal/geometry"
)

// Box is a labelled rectangle to draw on an overlay.
type Box struct {
	Rect  geometry.Rect
	Label string
	Color color.Color
}

// Palette returns n visually distinct, fully opaque colors, evenly spaced in
// hue.
func Palette(n int) []color.Color {
	out := make([]color.Color, n)
	for i := range out {
		c := colorful.Hsv(float64(i)*360/float64(max(n, 1)), 0.85, 0.95)
		r, g, b := c.RGB255()
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

// ParseHexColor parses "#RRGGBB" into an opaque color.
func ParseHexColor(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Overlay draws hollow boxes with text labels on a copy of img.
//
// Each box gets a stroke of the given thickness; labels sit inside the box's
// top-left corner on a dark background. Boxes are clipped to the image.
func Overlay(img image.Image, boxes []Box, thickness int) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	thickness = max(thickness, 1)
	for _, b := range boxes {
		r := b.Rect.Image().Intersect(bounds)
		if r.Empty() {
			continue
		}
		c := b.Color
		if c == nil {
			c = color.RGBA{R: 255, A: 255}
		}
		strokeRect(out, r, c, thickness)
		if b.Label != "" {
			drawLabel(out, r.Min.X+thickness+2, r.Min.Y+thickness+2, b.Label, color.White, color.RGBA{A: 180})
		}
	}
	return out
}

// LayoutBoxes builds the standard overlay for a detection result: the
// choices labelled A to D in palette colors and the core region in white.
// core may be nil when only candidates are known.
func LayoutBoxes(choices []geometry.Rect, core *geometry.Rect) []Box {
	colors := Palette(len(choices))
	boxes := make([]Box, 0, len(choices)+1)
	for i, r := range choices {
		label := fmt.Sprintf("#%d", i)
		if i < 26 {
			label = string(rune('A' + i))
		}
		boxes = append(boxes, Box{Rect: r, Label: label, Color: colors[i]})
	}
	if core != nil {
		boxes = append(boxes, Box{Rect: *core, Label: "core", Color: color.White})
	}
	return boxes
}

func strokeRect(img *image.RGBA, r image.Rectangle, c color.Color, t int) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(r), src, image.Point{}, draw.Over)
	}
}

// drawLabel renders text with basicfont.Face7x13 on a filled background.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(fg), Face: face}
	width := d.MeasureString(text).Ceil()
	height := face.Metrics().Height.Ceil()

	box := image.Rect(x-1, y-1, x+width+1, y+height+1).Intersect(img.Bounds())
	draw.Draw(img, box, image.NewUniform(bg), image.Point{}, draw.Over)

	d.Dot = fixed.P(x, y+face.Metrics().Ascent.Ceil())
	d.DrawString(text)
}
