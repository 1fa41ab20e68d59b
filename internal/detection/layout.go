package detection

import (
	"errors"
	"sort"

	"github.com/ironsheep/quiz-tapper/internal/geometry"
	"github.com/ironsheep/quiz-tapper/internal/logging"
)

// Tuning constants. They were fitted against real captures; changing any of
// them changes which frames match.
const (
	// ChoiceCount is the number of answer bars a quiz page shows.
	ChoiceCount = 4

	// NMSThreshold is the IoU above which two rectangles are duplicates.
	NMSThreshold = 0.6

	// MinAspect and MaxAspect bound a choice bar's width/height ratio.
	MinAspect = 5.0
	MaxAspect = 8.0

	// MaxSpread is the tolerance in pixels for width, left edge and column
	// alignment across the four bars.
	MaxSpread = 3

	// DensityThreshold is the minimum points per row for a content row.
	DensityThreshold = 42

	// CoreAlign is the pixel grid the core region is snapped to.
	CoreAlign = 28
)

// LayoutMatch is a successfully recognized quiz page.
//
// Choices are ordered top to bottom, so Choices[0] is answer A.
type LayoutMatch struct {
	Core    geometry.Rect              `json:"core"`
	Choices [ChoiceCount]geometry.Rect `json:"choices"`
}

// Choice returns the bar for a zero-based answer index.
func (m *LayoutMatch) Choice(index int) (geometry.Rect, bool) {
	if index < 0 || index >= ChoiceCount {
		return geometry.Rect{}, false
	}
	return m.Choices[index], true
}

// Matcher recognizes the quiz layout in traced screenshots. A Matcher holds
// no per-call state and is safe for concurrent use.
type Matcher struct {
	log logging.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger routes the matcher's diagnostics to l.
func WithLogger(l logging.Logger) Option {
	return func(m *Matcher) {
		m.log = logging.Or(l)
	}
}

// NewMatcher returns a Matcher. Without options it logs nowhere.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{log: logging.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MatchPage is shorthand for NewMatcher().MatchPage.
func MatchPage(edges *geometry.EdgeMap, contours []geometry.Contour) (*LayoutMatch, error) {
	return NewMatcher().MatchPage(edges, contours)
}

// MatchPage locates the four choice bars and the question core.
//
// edges supplies the image dimensions; contours must have been traced from
// it. The returned error is a *DetectionFailure when the frame does not show
// a settled layout (retry with a fresh capture), or wraps ErrCoreInvariant
// when the geometry is impossible (do not retry).
//
// # Algorithm
//
//  1. Drop contours with fewer points than the image width, or whose
//     bounding box is narrower than half the image.
//  2. Collapse duplicates of the remaining bounding boxes with suppress.
//  3. Keep boxes whose aspect ratio is within [MinAspect, MaxAspect].
//  4. Require exactly ChoiceCount boxes.
//  5. Require uniform width and left edge within MaxSpread, and the first
//     two boxes in scan order to share a right edge within MaxSpread.
//  6. Sort by top and reject vertically overlapping neighbors.
//  7. Locate the core above the topmost bar with locateCore over the row
//     density of all contours.
func (m *Matcher) MatchPage(edges *geometry.EdgeMap, contours []geometry.Contour) (*LayoutMatch, error) {
	if edges == nil {
		return nil, errors.New("edge map is nil")
	}
	width, height := edges.Width, edges.Height
	m.log.Debugf("contours: %d", len(contours))

	rects := make([]geometry.Rect, 0, 8)
	for _, c := range contours {
		if c.Len() < width {
			continue
		}
		r := geometry.BoundingRect(c)
		if r.Width < width/2 {
			continue
		}
		rects = append(rects, r)
	}
	m.log.Debugf("rects: %d", len(rects))

	rects = suppress(rects)
	m.log.Debugf("nms: %d", len(rects))

	bars := rects[:0:0]
	for _, r := range rects {
		if ar := r.AspectRatio(); ar >= MinAspect && ar <= MaxAspect {
			bars = append(bars, r)
		}
	}
	m.log.Debugf("aspect: %d", len(bars))

	if len(bars) != ChoiceCount {
		return nil, m.reject(fail(ReasonCount, bars, "want %d bars, have %d", ChoiceCount, len(bars)))
	}
	if f := checkConsistency(bars); f != nil {
		return nil, m.reject(f)
	}

	sorted := make([]geometry.Rect, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Top < sorted[j].Top })
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Bottom() >= sorted[i].Top {
			return nil, m.reject(fail(ReasonOverlap, sorted, "bar %d bottom %d reaches bar %d top %d",
				i-1, sorted[i-1].Bottom(), i, sorted[i].Top))
		}
	}

	first := sorted[0]
	center := first.Top + first.Height
	hist := RowDensity(contours, height)
	core, err := locateCore(hist, center, first.Height, width, height)
	if err != nil {
		m.log.Errorf("core: %v", err)
		return nil, err
	}
	m.log.Tracef("core: %v from center %d box_h %d", core, center, first.Height)

	match := &LayoutMatch{Core: core}
	copy(match.Choices[:], sorted)
	return match, nil
}

func (m *Matcher) reject(f *DetectionFailure) error {
	m.log.Debugf("%v", f)
	return f
}

// checkConsistency rejects frames captured while the bars are still
// animating in. bars is in scan order.
//
// Widths and left edges must each spread less than MaxSpread. The gap check
// compares the right edges of the first two bars in scan order: a literal
// distance between one bar's right edge and the next bar's left edge is
// always large for bars that pass the aspect filter.
func checkConsistency(bars []geometry.Rect) *DetectionFailure {
	minW, maxW := bars[0].Width, bars[0].Width
	minL, maxL := bars[0].Left, bars[0].Left
	for _, r := range bars[1:] {
		minW, maxW = min(minW, r.Width), max(maxW, r.Width)
		minL, maxL = min(minL, r.Left), max(maxL, r.Left)
	}
	if maxW-minW > MaxSpread {
		return fail(ReasonWidth, bars, "width spread %d", maxW-minW)
	}
	if maxL-minL > MaxSpread {
		return fail(ReasonLeft, bars, "left spread %d", maxL-minL)
	}
	if gap := bars[1].Right() - bars[0].Right(); gap <= -MaxSpread || gap >= MaxSpread {
		return fail(ReasonGap, bars, "right edge offset %d", gap)
	}
	return nil
}
