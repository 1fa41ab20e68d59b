// Package geometry provides the integer pixel primitives shared by the
// layout detection pipeline.
//
// # Types
//
//   - Point: an (x, y) pixel coordinate
//   - Rect: an axis-aligned rectangle with inclusive pixel bounds
//   - Contour: an ordered polyline of points traced from an edge map
//   - EdgeMap: a binary foreground grid
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// A Rect's Right and Bottom are inclusive: a Rect at (10, 20) of size 5x3
// covers columns 10..14 and rows 20..22.
//
// # Thread Safety
//
// Every function in this package is pure. Values may be shared between
// goroutines freely.
package geometry
