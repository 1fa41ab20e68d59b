//go:build cgo

package ocr

import (
	"context"
	"fmt"
	"image"
	"sync"

	diskimaging "github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/quiz-tapper/internal/geometry"
	"github.com/ironsheep/quiz-tapper/internal/imaging"
)

// Tesseract is a Reader backed by a single gosseract client. Calls are
// serialized since the client is not safe for concurrent use.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
	opts   Options
}

func newTesseract(opts Options) (Reader, error) {
	client := gosseract.NewClient()
	if opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(opts.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(opts.languages()...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation: %w", err)
	}
	return &Tesseract{client: client, opts: opts}, nil
}

// Read runs OCR over img.
func (t *Tesseract) Read(ctx context.Context, img image.Image) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := imaging.Encode(img, diskimaging.PNG)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		// Word boxes are optional.
		return &Result{Text: text, Words: []Word{}}, nil
	}

	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		conf := box.Confidence / 100.0
		if box.Word == "" || conf < t.opts.MinConfidence {
			continue
		}
		b := box.Box
		words = append(words, Word{
			Text:       box.Word,
			Confidence: conf,
			Box:        geometry.NewRect(b.Min.X, b.Min.Y, b.Dx(), b.Dy()),
		})
	}
	return &Result{Text: text, Words: words}, nil
}

// Close releases the Tesseract handle.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
