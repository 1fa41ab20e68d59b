package detection

import (
	"fmt"

	"github.com/ironsheep/quiz-tapper/internal/geometry"
)

// RowDensity counts contour points per image row. Points outside
// [0, height) are ignored.
func RowDensity(contours []geometry.Contour, height int) []int {
	hist := make([]int, height)
	for _, c := range contours {
		for _, p := range c.Points {
			if p.Y >= 0 && p.Y < height {
				hist[p.Y]++
			}
		}
	}
	return hist
}

// locateCore finds the question block around center using the row density
// histogram.
//
// # Algorithm
//
// A row is content when its density is at least DensityThreshold.
//
//  1. Upward scan: walk rows center-1 down to 0 tracking begin, the last
//     content row seen (initially center). When a content row lies more than
//     boxH+1 rows above begin, the block ends: top = begin - 3/4*boxH,
//     saturating at 0. An exhausted scan leaves top at 0.
//  2. Downward scan: walk rows center up to imgH-1 the same way. On a gap,
//     bottom = min(begin + boxH/2, imgH). An exhausted scan leaves bottom at
//     imgH.
//  3. Alignment: h = bottom-top must exceed CoreAlign. h is truncated to a
//     multiple of CoreAlign; top and bottom are rounded up to one. When the
//     aligned span is taller than h, top moves down by CoreAlign/2 to center
//     the window.
//
// The window may run past the image bottom after alignment; callers that
// crop it clip to the image themselves.
func locateCore(hist []int, center, boxH, imgW, imgH int) (geometry.Rect, error) {
	top := 0
	begin := center
	for i := min(center, len(hist)) - 1; i >= 0; i-- {
		if hist[i] < DensityThreshold {
			continue
		}
		if begin-i > boxH+1 {
			off := boxH / 4 * 3
			top = max(begin, off) - off
			break
		}
		begin = i
	}

	bottom := imgH
	begin = center
	for i := center; i < imgH && i < len(hist); i++ {
		if hist[i] < DensityThreshold {
			continue
		}
		if i-begin > boxH+1 {
			bottom = min(begin+boxH/2, imgH)
			break
		}
		begin = i
	}

	h := bottom - top
	if h <= CoreAlign {
		return geometry.Rect{}, fmt.Errorf("%w: height %d (top %d, bottom %d)", ErrCoreInvariant, h, top, bottom)
	}
	h = h / CoreAlign * CoreAlign
	top = alignUp(top)
	if alignUp(bottom)-top > h {
		top += CoreAlign / 2
	}

	return geometry.Rect{Left: 0, Top: top, Width: imgW, Height: h}, nil
}

func alignUp(v int) int {
	return (v + CoreAlign - 1) / CoreAlign * CoreAlign
}
