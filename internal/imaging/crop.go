package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/quiz-tapper/internal/geometry"
)

// CropResult contains a cropped region encoded as base64.
type CropResult struct {
	// Region is the cropped rectangle in source image coordinates.
	Region geometry.Rect `json:"region"`

	// ImageBase64 is the encoded crop.
	ImageBase64 string `json:"image_base64"`

	// MimeType is "image/png" or "image/jpeg".
	MimeType string `json:"mime_type"`
}

// CropRect extracts r from img.
//
// r is in the image's own coordinates, so for screenshots whose bounds start
// at (0, 0) it can be passed straight from a LayoutMatch. The region must lie
// inside the image and have a positive size.
func CropRect(img image.Image, r geometry.Rect) (*image.NRGBA, error) {
	bounds := img.Bounds()
	region := r.Image()

	if r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("invalid crop region %v: empty", r)
	}
	if !region.In(bounds) {
		return nil, fmt.Errorf("crop region %v outside image bounds (%d,%d)-(%d,%d)",
			r, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}

	return imaging.Crop(img, region), nil
}

// ClipToImage intersects r with the bounds of img. A region entirely outside
// the image comes back with zero size.
func ClipToImage(img image.Image, r geometry.Rect) geometry.Rect {
	c := r.Image().Intersect(img.Bounds())
	return geometry.NewRect(c.Min.X, c.Min.Y, c.Dx(), c.Dy())
}

// Format resolves a user-supplied format name. Empty means PNG.
func Format(name string) (imaging.Format, string, error) {
	switch strings.ToLower(name) {
	case "", "png":
		return imaging.PNG, "image/png", nil
	case "jpg", "jpeg":
		return imaging.JPEG, "image/jpeg", nil
	}
	return 0, "", fmt.Errorf("unsupported image format %q: want png or jpeg", name)
}

// Encode serializes img in the given format. JPEG uses quality 90.
func Encode(img image.Image, format imaging.Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeBase64 encodes img with Encode and returns base64 text.
func EncodeBase64(img image.Image, format imaging.Format) (string, error) {
	data, err := Encode(img, format)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// CropCore crops r out of img and encodes it for transport. The core region
// may extend below the screenshot, so r is clipped to the image first and
// the clipped rectangle is reported as Region.
//
// Parameters:
//   - img: The screenshot.
//   - r: The region, typically LayoutMatch.Core.
//   - format: "png" (default) or "jpeg".
func CropCore(img image.Image, r geometry.Rect, format string) (*CropResult, error) {
	f, mime, err := Format(format)
	if err != nil {
		return nil, err
	}
	r = ClipToImage(img, r)
	cropped, err := CropRect(img, r)
	if err != nil {
		return nil, err
	}
	encoded, err := EncodeBase64(cropped, f)
	if err != nil {
		return nil, err
	}
	return &CropResult{Region: r, ImageBase64: encoded, MimeType: mime}, nil
}
