// Package ocr reads the question text out of a cropped quiz region so it
// can be passed to the answerer as a hint.
//
// The Tesseract backend (gosseract/v2) needs CGO and the Tesseract shared
// library:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-chi-sim
//   - macOS: brew install tesseract tesseract-lang
//
// Builds without CGO get a reader whose Read always returns ErrUnavailable.
// Callers treat that as "no hint" and carry on.
//
// Language codes are Tesseract's ("chi_sim", "eng", ...). Several can be
// combined; the default is chi_sim+eng.
package ocr
