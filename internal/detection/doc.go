// Package detection recognizes the quiz page layout in a traced screenshot.
//
// A quiz page shows a question block above four equal-width answer bars
// stacked vertically. Given the edge map of a screenshot and the contours
// traced from it, MatchPage returns the four bars ordered top to bottom and
// the core region holding the question, or a *DetectionFailure describing
// why the frame does not show a settled layout.
//
// # Pipeline
//
//  1. Filtering: keep contours that span most of the screen width
//  2. Deduplication: greedy, order-sensitive non-maximum suppression
//  3. Shape: keep wide bars with an aspect ratio in [5, 8]
//  4. Validation: exactly four bars, uniform width and left edge, no overlap
//  5. Core localization: a row-density scan above and below the first bar
//
// Everything is pure geometry over integer pixels. No color, OCR or learned
// model is involved.
//
// # Errors
//
// A *DetectionFailure is expected while the quiz UI animates in; callers
// retry with a fresh capture. An error wrapping ErrCoreInvariant means the
// page geometry is impossible and the attempt must be abandoned.
//
// # Thread Safety
//
// MatchPage holds no state between calls. A single Matcher may serve many
// goroutines.
package detection
