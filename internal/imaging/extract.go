package imaging

import (
	"errors"
	"image"

	"github.com/ironsheep/quiz-tapper/internal/geometry"
)

// Extractor turns a screenshot into its binary edge map and the contours
// traced from it.
type Extractor interface {
	Extract(img image.Image) (*geometry.EdgeMap, []geometry.Contour, error)
}

// CannyExtractor is the pure Go Extractor: Edges followed by TraceContours.
type CannyExtractor struct {
	Options EdgeOptions
}

// Extract implements Extractor.
func (e CannyExtractor) Extract(img image.Image) (*geometry.EdgeMap, []geometry.Contour, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, nil, errors.New("empty image")
	}
	edges := Edges(img, e.Options)
	return edges, TraceContours(edges), nil
}

// newDefaultExtractor is replaced by builds that link OpenCV.
var newDefaultExtractor = func(opts EdgeOptions) Extractor {
	return CannyExtractor{Options: opts}
}

// DefaultExtractor returns the best Extractor compiled into this binary.
func DefaultExtractor(opts EdgeOptions) Extractor {
	return newDefaultExtractor(opts)
}
