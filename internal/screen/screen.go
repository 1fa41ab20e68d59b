// Package screen runs the layout matcher on decoded screenshots.
package screen

import (
	"errors"
	"image"
	"time"

	"github.com/ironsheep/quiz-tapper/internal/detection"
	"github.com/ironsheep/quiz-tapper/internal/geometry"
	"github.com/ironsheep/quiz-tapper/internal/imaging"
	"github.com/ironsheep/quiz-tapper/internal/logging"
)

// Analysis is the outcome of one screenshot.
type Analysis struct {
	Match    *detection.LayoutMatch
	Failure  *detection.DetectionFailure
	Edges    *geometry.EdgeMap
	Contours []geometry.Contour
	Elapsed  time.Duration
}

// Matched reports whether a layout was found.
func (a *Analysis) Matched() bool { return a.Match != nil }

// Overlay draws the match, or the rejected candidates, onto img.
func (a *Analysis) Overlay(img image.Image) *image.RGBA {
	switch {
	case a.Match != nil:
		return imaging.Overlay(img, imaging.LayoutBoxes(a.Match.Choices[:], &a.Match.Core), 3)
	case a.Failure != nil:
		return imaging.Overlay(img, imaging.LayoutBoxes(a.Failure.Candidates, nil), 3)
	}
	return imaging.Overlay(img, nil, 1)
}

// Analyzer extracts edges and contours from a screenshot and matches the
// quiz layout.
type Analyzer struct {
	extractor imaging.Extractor
	matcher   *detection.Matcher
	log       logging.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithExtractor overrides the edge and contour extractor.
func WithExtractor(e imaging.Extractor) Option {
	return func(a *Analyzer) { a.extractor = e }
}

// WithLogger sets the logger for the analyzer and its matcher.
func WithLogger(l logging.Logger) Option {
	return func(a *Analyzer) { a.log = logging.Or(l) }
}

// NewAnalyzer returns an Analyzer using imaging.DefaultExtractor with the
// default Canny thresholds unless overridden.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{log: logging.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	if a.extractor == nil {
		a.extractor = imaging.DefaultExtractor(imaging.DefaultEdgeOptions())
	}
	a.matcher = detection.NewMatcher(detection.WithLogger(a.log))
	return a
}

// Analyze runs detection on img.
//
// A frame without a settled layout is not an error: the returned Analysis
// has Failure set and err is nil. err is non-nil only when extraction fails
// or the matcher reports detection.ErrCoreInvariant; in the latter case the
// Analysis is still returned for diagnostics.
func (a *Analyzer) Analyze(img image.Image) (*Analysis, error) {
	start := time.Now()
	edges, contours, err := a.extractor.Extract(img)
	if err != nil {
		return nil, err
	}

	res := &Analysis{Edges: edges, Contours: contours}
	match, err := a.matcher.MatchPage(edges, contours)
	res.Elapsed = time.Since(start)
	if err != nil {
		if f, ok := detection.IsFailure(err); ok {
			res.Failure = f
			return res, nil
		}
		if errors.Is(err, detection.ErrCoreInvariant) {
			return res, err
		}
		return nil, err
	}

	res.Match = match
	a.log.Debugf("matched in %s: core %v", res.Elapsed, match.Core)
	return res, nil
}

// Report is the JSON view of an Analysis shared by the CLI, MCP tools and
// HTTP API.
type Report struct {
	Matched    bool                        `json:"matched"`
	Core       *geometry.Rect              `json:"core,omitempty"`
	Choices    []geometry.Rect             `json:"choices,omitempty"`
	Failure    *detection.DetectionFailure `json:"failure,omitempty"`
	EdgePixels int                         `json:"edge_pixels"`
	Contours   int                         `json:"contours"`
	ElapsedMS  int64                       `json:"elapsed_ms"`
}

// Report summarizes a.
func (a *Analysis) Report() Report {
	r := Report{
		Matched:   a.Matched(),
		Failure:   a.Failure,
		Contours:  len(a.Contours),
		ElapsedMS: a.Elapsed.Milliseconds(),
	}
	if a.Edges != nil {
		r.EdgePixels = a.Edges.Count()
	}
	if a.Match != nil {
		core := a.Match.Core
		r.Core = &core
		r.Choices = append([]geometry.Rect(nil), a.Match.Choices[:]...)
	}
	return r
}
