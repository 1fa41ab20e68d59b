package detection

import "github.com/ironsheep/quiz-tapper/internal/geometry"

// suppress removes near-duplicate rectangles in a single greedy pass.
//
// # Algorithm
//
// Candidates are visited in input order against an accepted list that starts
// empty:
//
//  1. Find the first accepted rectangle whose IoU with the candidate exceeds
//     NMSThreshold.
//  2. If one exists, the candidate replaces it in place when its area is
//     strictly larger; otherwise the candidate is dropped. Later accepted
//     rectangles are not consulted.
//  3. If none exists, the candidate is appended.
//
// The result depends on input order. It is not the sorted-by-score NMS used
// by object detectors and must not be replaced by one.
func suppress(rects []geometry.Rect) []geometry.Rect {
	accepted := make([]geometry.Rect, 0, len(rects))
	for _, cand := range rects {
		dup := -1
		for i, kept := range accepted {
			if geometry.IoU(cand, kept) > NMSThreshold {
				dup = i
				break
			}
		}
		if dup < 0 {
			accepted = append(accepted, cand)
			continue
		}
		if cand.Area() > accepted[dup].Area() {
			accepted[dup] = cand
		}
	}
	return accepted
}
