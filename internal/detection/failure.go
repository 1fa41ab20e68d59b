package detection

import (
	"errors"
	"fmt"

	"github.com/ironsheep/quiz-tapper/internal/geometry"
)

// Reason classifies why a page did not match the quiz layout.
type Reason int

const (
	// ReasonCount: the candidate set did not settle to exactly four bars.
	ReasonCount Reason = iota + 1
	// ReasonWidth: the bars differ in width by more than MaxSpread.
	ReasonWidth
	// ReasonLeft: the bars' left edges differ by more than MaxSpread.
	ReasonLeft
	// ReasonGap: the first two bars in scan order are not column aligned.
	ReasonGap
	// ReasonOverlap: two vertically adjacent bars overlap.
	ReasonOverlap
)

func (r Reason) String() string {
	switch r {
	case ReasonCount:
		return "count"
	case ReasonWidth:
		return "width"
	case ReasonLeft:
		return "left"
	case ReasonGap:
		return "gap"
	case ReasonOverlap:
		return "overlap"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// MarshalText lets a Reason appear by name in JSON output.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses a name produced by MarshalText.
func (r *Reason) UnmarshalText(text []byte) error {
	for c := ReasonCount; c <= ReasonOverlap; c++ {
		if c.String() == string(text) {
			*r = c
			return nil
		}
	}
	return fmt.Errorf("unknown detection failure reason %q", text)
}

// DetectionFailure is the recoverable outcome of MatchPage: the screenshot
// does not currently show a settled quiz layout. Candidates holds the
// rectangles under consideration when the check failed, possibly empty.
type DetectionFailure struct {
	Reason     Reason          `json:"reason"`
	Detail     string          `json:"detail,omitempty"`
	Candidates []geometry.Rect `json:"candidates"`
}

func (f *DetectionFailure) Error() string {
	if f.Detail == "" {
		return fmt.Sprintf("layout not matched (%s, %d candidates)", f.Reason, len(f.Candidates))
	}
	return fmt.Sprintf("layout not matched (%s: %s, %d candidates)", f.Reason, f.Detail, len(f.Candidates))
}

// ErrCoreInvariant is returned (wrapped) when the located core region is no
// taller than one alignment unit. Callers must treat it as fatal and never
// retry or crop.
var ErrCoreInvariant = errors.New("core region invariant violated")

// IsFailure reports whether err is a DetectionFailure and returns it.
func IsFailure(err error) (*DetectionFailure, bool) {
	var f *DetectionFailure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func fail(reason Reason, candidates []geometry.Rect, format string, args ...interface{}) *DetectionFailure {
	out := make([]geometry.Rect, len(candidates))
	copy(out, candidates)
	return &DetectionFailure{
		Reason:     reason,
		Detail:     fmt.Sprintf(format, args...),
		Candidates: out,
	}
}
