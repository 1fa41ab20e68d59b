// Package runner drives the answering loop: capture the screen, wait for a
// settled quiz layout, ask the answerer, tap the chosen bar, repeat.
package runner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/ironsheep/quiz-tapper/internal/answerer"
	"github.com/ironsheep/quiz-tapper/internal/detection"
	"github.com/ironsheep/quiz-tapper/internal/geometry"
	"github.com/ironsheep/quiz-tapper/internal/imaging"
	"github.com/ironsheep/quiz-tapper/internal/logging"
	"github.com/ironsheep/quiz-tapper/internal/ocr"
	"github.com/ironsheep/quiz-tapper/internal/screen"
	"github.com/ironsheep/quiz-tapper/internal/storage"
)

// ErrNoQuestion is returned by Step when MatchRetries screenshots in a row
// showed no settled layout.
var ErrNoQuestion = errors.New("no question on screen")

// Capturer takes screenshots.
type Capturer interface {
	Screencap(ctx context.Context) (image.Image, error)
}

// Tapper taps somewhere inside a rectangle.
type Tapper interface {
	TapRandom(ctx context.Context, r geometry.Rect) (geometry.Point, error)
}

// Detector finds the quiz layout in a screenshot.
type Detector interface {
	Analyze(img image.Image) (*screen.Analysis, error)
}

// Settings controls pacing.
type Settings struct {
	MatchRetries int
	RetryDelay   time.Duration
	AnswerDelay  time.Duration
	// MaxQuestions stops Run after this many questions; 0 means no limit.
	MaxQuestions int
}

// Turn records one answered question.
type Turn struct {
	Number   int
	Match    *detection.LayoutMatch
	Hint     string
	Result   *answerer.Result
	Tapped   geometry.Point
	Attempts int
	// Repeated is set when the OCR hint matches the previous question's,
	// which usually means the last tap did not register.
	Repeated bool
}

// Report summarizes a Run.
type Report struct {
	Questions int
	Skipped   int
	Stopped   string
	Usage     answerer.Summary
}

// Runner owns the loop. It is not safe for concurrent use.
type Runner struct {
	capture  Capturer
	tapper   Tapper
	detector Detector
	answerer answerer.Answerer
	settings Settings

	ocr  ocr.Reader
	sink storage.Sink
	log  logging.Logger

	lastHint string

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithOCR adds OCR text of the question to every prompt.
func WithOCR(r ocr.Reader) Option {
	return func(rn *Runner) { rn.ocr = r }
}

// WithSink stores failure overlays and answered crops.
func WithSink(s storage.Sink) Option {
	return func(rn *Runner) { rn.sink = s }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(rn *Runner) { rn.log = logging.Or(l) }
}

// New returns a Runner.
func New(c Capturer, t Tapper, d Detector, a answerer.Answerer, s Settings, opts ...Option) *Runner {
	if s.MatchRetries < 1 {
		s.MatchRetries = 1
	}
	r := &Runner{
		capture:  c,
		tapper:   t,
		detector: d,
		answerer: a,
		settings: s,
		sink:     storage.Discard{},
		log:      logging.Nop(),
		sleep:    sleep,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run answers questions until MaxQuestions is reached, no question shows up
// within MatchRetries screenshots, or ctx is canceled. Those endings return
// a nil error. Capture, tap and answerer transport errors and
// detection.ErrCoreInvariant abort the loop.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rep := &Report{}
	defer func() { rep.Usage = r.answerer.Meter().Summary() }()

	for n := 1; r.settings.MaxQuestions == 0 || n <= r.settings.MaxQuestions; n++ {
		turn, err := r.Step(ctx, n)
		switch {
		case err == nil:
			rep.Questions++
			s := r.answerer.Meter().Summary()
			r.log.Infof("question %d: answer %s, tapped %v (%d+%d tokens, total %d tokens, cost %.4f)",
				n, turn.Result.Answer, turn.Tapped, turn.Result.PromptTokens, turn.Result.CompletionTokens,
				s.Tokens(), s.Cost)
		case errors.Is(err, answerer.ErrNoAnswer):
			rep.Skipped++
			r.log.Warnf("question %d skipped: %v", n, err)
		case errors.Is(err, ErrNoQuestion):
			r.log.Infof("no question on screen, stopping")
			rep.Stopped = "no question"
			return rep, nil
		case ctx.Err() != nil:
			rep.Stopped = "canceled"
			return rep, nil
		default:
			rep.Stopped = "error"
			return rep, err
		}

		if err := r.sleep(ctx, r.settings.AnswerDelay); err != nil {
			rep.Stopped = "canceled"
			return rep, nil
		}
	}
	rep.Stopped = "max questions"
	return rep, nil
}

// Step answers a single question.
func (r *Runner) Step(ctx context.Context, n int) (*Turn, error) {
	img, an, attempts, err := r.awaitLayout(ctx)
	if err != nil {
		return nil, err
	}
	turn := &Turn{Number: n, Match: an.Match, Attempts: attempts}

	crop, err := imaging.CropRect(img, imaging.ClipToImage(img, an.Match.Core))
	if err != nil {
		return nil, fmt.Errorf("crop core: %w", err)
	}
	turn.Hint = r.hint(ctx, crop)
	if sameQuestion(turn.Hint, r.lastHint) {
		turn.Repeated = true
		r.log.Warnf("question %d reads like the previous one; the last tap may not have registered", n)
	}
	r.lastHint = turn.Hint

	res, err := r.answerer.Answer(ctx, answerer.Question{Image: crop, Hint: turn.Hint})
	r.save(ctx, storage.FrameName("crops", r.now(), fmt.Sprintf("q%d", n), "jpg"), crop)
	if err != nil {
		return nil, fmt.Errorf("answer question %d: %w", n, err)
	}
	turn.Result = res

	choice, ok := an.Match.Choice(res.Answer.Index())
	if !ok {
		return nil, fmt.Errorf("answer %s has no choice bar", res.Answer)
	}
	p, err := r.tapper.TapRandom(ctx, choice)
	if err != nil {
		return nil, fmt.Errorf("tap %s: %w", res.Answer, err)
	}
	turn.Tapped = p
	return turn, nil
}

func (r *Runner) awaitLayout(ctx context.Context) (image.Image, *screen.Analysis, int, error) {
	for attempt := 1; attempt <= r.settings.MatchRetries; attempt++ {
		img, err := r.capture.Screencap(ctx)
		if err != nil {
			return nil, nil, attempt, fmt.Errorf("screencap: %w", err)
		}

		an, err := r.detector.Analyze(img)
		if err != nil {
			if an != nil && errors.Is(err, detection.ErrCoreInvariant) {
				r.save(ctx, storage.FrameName("failures", r.now(), "invariant", "png"), an.Overlay(img))
			}
			return nil, nil, attempt, fmt.Errorf("analyze: %w", err)
		}
		if an.Matched() {
			return img, an, attempt, nil
		}

		r.log.Debugf("attempt %d/%d: %v", attempt, r.settings.MatchRetries, an.Failure)
		if an.Failure != nil {
			r.save(ctx, storage.FrameName("failures", r.now(), an.Failure.Reason.String(), "png"), an.Overlay(img))
		}
		if attempt < r.settings.MatchRetries {
			if err := r.sleep(ctx, r.settings.RetryDelay); err != nil {
				return nil, nil, attempt, err
			}
		}
	}
	return nil, nil, r.settings.MatchRetries, ErrNoQuestion
}

func (r *Runner) hint(ctx context.Context, crop image.Image) string {
	if r.ocr == nil {
		return ""
	}
	res, err := r.ocr.Read(ctx, crop)
	if err != nil {
		if errors.Is(err, ocr.ErrUnavailable) {
			r.log.Debugf("ocr hint skipped: %v", err)
		} else {
			r.log.Warnf("ocr hint failed: %v", err)
		}
		return ""
	}
	return res.Hint()
}

func (r *Runner) save(ctx context.Context, name string, img image.Image) {
	loc, err := r.sink.Save(ctx, name, img)
	if err != nil {
		r.log.Warnf("save %s: %v", name, err)
		return
	}
	if loc != "" {
		r.log.Debugf("saved %s", loc)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
