// Package imaging prepares screenshots for layout detection and renders
// detection results.
//
// # Edge Extraction
//
// Edges runs Canny edge detection (bild grayscale and Gaussian blur, Sobel
// gradients, non-maximum suppression, hysteresis) and returns a binary
// geometry.EdgeMap. TraceContours follows every border in that map. The
// Extractor interface bundles both steps; builds with the gocv tag swap in an
// OpenCV implementation through DefaultExtractor.
//
// # Cropping and Encoding
//
// CropRect and CropCore cut a detected region out of a screenshot. Encode
// produces PNG or JPEG bytes for answer backends and transports.
//
// # Overlays
//
// Overlay draws labelled boxes for debugging: LayoutBoxes builds the standard
// set for a match, with choices labelled A to D.
//
// # Image Loading
//
// Decode normalizes any supported image so its bounds start at (0, 0).
// ImageCache caches decoded files by path.
//
// # Thread Safety
//
// All functions are safe for concurrent use. ImageCache uses internal
// locking.
package imaging
