package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"

	"github.com/ironsheep/quiz-tapper/internal/geometry"
)

// EdgeOptions tunes Canny edge detection.
type EdgeOptions struct {
	// Low and High are hysteresis thresholds on the Sobel gradient magnitude
	// of the 0-255 luminance image.
	Low  float64
	High float64

	// BlurRadius is the Gaussian radius applied before differentiation.
	// Zero disables blurring.
	BlurRadius float64
}

// DefaultEdgeOptions returns the thresholds the layout matcher was tuned
// against: low 50, high 150, blur radius 1.4.
func DefaultEdgeOptions() EdgeOptions {
	return EdgeOptions{Low: 50, High: 150, BlurRadius: 1.4}
}

// Edges runs Canny edge detection and returns the binary edge map.
//
// # Algorithm
//
//  1. Grayscale conversion (bild effect.Grayscale)
//
//  2. Gaussian blur (bild blur.Gaussian) to suppress noise
//
//  3. Gradient computation: Sobel operators for X and Y gradients
//     magnitude = sqrt(Gx² + Gy²)
//     direction = atan2(Gy, Gx)
//
//  4. Non-maximum suppression: thin edges to 1-pixel width by keeping only
//     local maxima in the gradient direction
//
//  5. Hysteresis: pixels at or above High seed edges, which then grow
//     through 8-connected pixels at or above Low
//
// The returned map has the image's size with (0, 0) at the image's Min.
func Edges(img image.Image, opts EdgeOptions) *geometry.EdgeMap {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var src image.Image = effect.Grayscale(img)
	if opts.BlurRadius > 0 {
		src = blur.Gaussian(src, opts.BlurRadius)
	}
	lum := luminance(src)

	magnitude := make([]float64, width*height)
	direction := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			at := func(dx, dy int) float64 {
				return lum[clamp(y+dy, 0, height-1)*width+clamp(x+dx, 0, width-1)]
			}
			gx := -at(-1, -1) + at(1, -1) - 2*at(-1, 0) + 2*at(1, 0) - at(-1, 1) + at(1, 1)
			gy := -at(-1, -1) - 2*at(0, -1) - at(1, -1) + at(-1, 1) + 2*at(0, 1) + at(1, 1)
			magnitude[y*width+x] = math.Sqrt(gx*gx + gy*gy)
			direction[y*width+x] = math.Atan2(gy, gx)
		}
	}

	suppressed := make([]float64, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			angle := direction[i]
			mag := magnitude[i]

			// Compare against the two neighbors along the gradient direction
			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1, n2 = magnitude[i-1], magnitude[i+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1, n2 = magnitude[i-width+1], magnitude[i+width-1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1, n2 = magnitude[i-width], magnitude[i+width]
			default:
				n1, n2 = magnitude[i-width-1], magnitude[i+width+1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	return hysteresis(suppressed, width, height, opts.Low, opts.High)
}

func hysteresis(mag []float64, width, height int, low, high float64) *geometry.EdgeMap {
	out := geometry.NewEdgeMap(width, height)
	stack := make([]int, 0, 1024)
	for i, v := range mag {
		if v >= high && !out.Pix[i] {
			out.Pix[i] = true
			stack = append(stack, i)
		}
		for len(stack) > 0 {
			j := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := j%width, j/width
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					k := ny*width + nx
					if !out.Pix[k] && mag[k] >= low {
						out.Pix[k] = true
						stack = append(stack, k)
					}
				}
			}
		}
	}
	return out
}

// luminance flattens a grayscale-valued image into row-major 0-255 floats.
func luminance(img image.Image) []float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, w*h)

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+w]
			for x, v := range row {
				out[y*w+x] = float64(v)
			}
		}
	case *image.RGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+4*w]
			for x := 0; x < w; x++ {
				out[y*w+x] = float64(row[4*x])
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				out[y*w+x] = float64(g.Y)
			}
		}
	}
	return out
}

// EdgeImage renders an edge map as a grayscale image with edges in white.
func EdgeImage(m *geometry.EdgeMap) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v {
			img.Pix[i] = 255
		}
	}
	return img
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
