//go:build gocv

package imaging

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ironsheep/quiz-tapper/internal/geometry"
)

func init() {
	newDefaultExtractor = func(opts EdgeOptions) Extractor {
		return GoCVExtractor{Options: opts}
	}
}

// GoCVExtractor runs Canny and border following in OpenCV. It is selected by
// DefaultExtractor when built with the gocv tag.
type GoCVExtractor struct {
	Options EdgeOptions
}

// Extract implements Extractor.
func (e GoCVExtractor) Extract(img image.Image) (*geometry.EdgeMap, []geometry.Contour, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, nil, errors.New("empty image")
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	if e.Options.BlurRadius > 0 {
		gocv.GaussianBlur(gray, &gray, image.Pt(5, 5), e.Options.BlurRadius, 0, gocv.BorderDefault)
	}

	edgesMat := gocv.NewMat()
	defer edgesMat.Close()
	gocv.Canny(gray, &edgesMat, float32(e.Options.Low), float32(e.Options.High))

	width, height := edgesMat.Cols(), edgesMat.Rows()
	edges := geometry.NewEdgeMap(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if edgesMat.GetUCharAt(y, x) != 0 {
				edges.Pix[y*width+x] = true
			}
		}
	}

	found := gocv.FindContours(edgesMat, gocv.RetrievalList, gocv.ChainApproxNone)
	defer found.Close()

	contours := make([]geometry.Contour, 0, found.Size())
	for i := 0; i < found.Size(); i++ {
		pts := found.At(i).ToPoints()
		c := geometry.Contour{Points: make([]geometry.Point, len(pts))}
		for j, p := range pts {
			c.Points[j] = geometry.Point{X: p.X, Y: p.Y}
		}
		contours = append(contours, c)
	}
	return edges, contours, nil
}
