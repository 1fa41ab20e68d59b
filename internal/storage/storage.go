// Package storage persists diagnostic frames: failed detections, overlays
// and the crops sent to the answerer.
package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	diskimaging "github.com/disintegration/imaging"

	"github.com/ironsheep/quiz-tapper/internal/imaging"
)

// ErrInvalidName is returned for names that are empty, absolute or escape
// the sink root.
var ErrInvalidName = errors.New("invalid frame name")

// Sink stores an image under a relative name such as
// "failures/20261017-101500.000-left.png" and returns where it went.
// The extension picks the encoding (png, jpg or jpeg).
type Sink interface {
	Save(ctx context.Context, name string, img image.Image) (string, error)
}

// FrameName builds a timestamped name under dir with the given suffix and
// extension.
func FrameName(dir string, at time.Time, suffix, ext string) string {
	base := at.Format("20060102-150405.000")
	if suffix != "" {
		base += "-" + suffix
	}
	return path.Join(dir, base+"."+strings.TrimPrefix(ext, "."))
}

func cleanName(name string) (string, error) {
	if name == "" || path.IsAbs(name) || strings.Contains(name, `\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return clean, nil
}

func formatOf(name string) (diskimaging.Format, string, error) {
	return imaging.Format(strings.TrimPrefix(path.Ext(name), "."))
}

// FileSink writes frames below a local directory.
type FileSink struct {
	root string
}

// NewFileSink returns a sink rooted at dir, creating it if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create frame directory: %w", err)
	}
	return &FileSink{root: dir}, nil
}

// Save writes img to root/name and returns the file path.
func (s *FileSink) Save(ctx context.Context, name string, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if _, _, err := formatOf(clean); err != nil {
		return "", err
	}
	dst := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create frame directory: %w", err)
	}
	if err := diskimaging.Save(img, dst, diskimaging.JPEGQuality(90)); err != nil {
		return "", fmt.Errorf("save frame: %w", err)
	}
	return dst, nil
}

// Discard drops every frame.
type Discard struct{}

// Save returns an empty location.
func (Discard) Save(context.Context, string, image.Image) (string, error) { return "", nil }
