//go:build !cgo

package ocr

import (
	"context"
	"image"
)

type unavailable struct{}

func newTesseract(Options) (Reader, error) { return unavailable{}, nil }

func (unavailable) Read(context.Context, image.Image) (*Result, error) {
	return nil, ErrUnavailable
}

func (unavailable) Close() error { return nil }
