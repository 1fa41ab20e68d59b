package device

import (
	"fmt"
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ironsheep/quiz-tapper/internal/geometry"
)

const (
	// tapInset shrinks the tap area by 1/tapInset of its size on every side.
	tapInset = 6
	// tapSigma is the spread of tap offsets in units of the shrunken area.
	tapSigma = 0.25
)

// Sampler draws tap points clustered around the middle of a rectangle.
type Sampler struct {
	mu     sync.Mutex
	normal distuv.Normal
}

// NewSampler returns a Sampler drawing from src, or from the global source
// when src is nil.
func NewSampler(src rand.Source) *Sampler {
	return &Sampler{normal: distuv.Normal{Mu: 0.5, Sigma: tapSigma, Src: src}}
}

// NewSeededSampler returns a deterministic Sampler.
func NewSeededSampler(seed uint64) *Sampler {
	return NewSampler(rand.NewSource(seed))
}

// RandomPoint returns a point inside r.
//
// r must start at non-negative coordinates and be at least 3x3. Rectangles
// thinner than 5 pixels in either direction yield their center. Otherwise r
// is shrunk by a sixth of its size on each side and x and y are drawn
// independently from Normal(0.5, 0.25), redrawing values outside [0, 1),
// then scaled into the shrunken rectangle.
func (s *Sampler) RandomPoint(r geometry.Rect) (geometry.Point, error) {
	if r.Left < 0 || r.Top < 0 {
		return geometry.Point{}, fmt.Errorf("tap area %v has negative origin", r)
	}
	if r.Width < 3 || r.Height < 3 {
		return geometry.Point{}, fmt.Errorf("tap area %v smaller than 3x3", r)
	}
	if r.Width < 5 || r.Height < 5 {
		return r.Center(), nil
	}

	inner := geometry.Rect{
		Left:   r.Left + r.Width/tapInset,
		Top:    r.Top + r.Height/tapInset,
		Width:  r.Width - r.Width/tapInset*2,
		Height: r.Height - r.Height/tapInset*2,
	}

	s.mu.Lock()
	x, y := s.unit(), s.unit()
	s.mu.Unlock()

	return geometry.Point{
		X: inner.Left + int(float64(inner.Width)*x),
		Y: inner.Top + int(float64(inner.Height)*y),
	}, nil
}

func (s *Sampler) unit() float64 {
	for {
		v := s.normal.Rand()
		if v >= 0 && v < 1 {
			return v
		}
	}
}
