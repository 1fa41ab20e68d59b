package ocr

import (
	"context"
	"errors"
	"image"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ironsheep/quiz-tapper/internal/geometry"
)

// ErrUnavailable is returned by readers built without Tesseract support.
var ErrUnavailable = errors.New("ocr: tesseract support not compiled in")

// DefaultLanguages is used when Options.Languages is empty.
var DefaultLanguages = []string{"chi_sim", "eng"}

// Word is one recognized word.
type Word struct {
	Text string `json:"text"`
	// Confidence is in [0, 1].
	Confidence float64       `json:"confidence"`
	Box        geometry.Rect `json:"box"`
}

// Result is the text recognized in one image.
type Result struct {
	Text  string `json:"text"`
	Words []Word `json:"words"`
}

// Hint returns the recognized text with whitespace runs collapsed. Spaces
// between two CJK characters are dropped since Tesseract inserts them
// between every glyph.
func (r *Result) Hint() string {
	if r == nil {
		return ""
	}
	return normalize(r.Text)
}

// Reader recognizes text in an image.
type Reader interface {
	Read(ctx context.Context, img image.Image) (*Result, error)
	Close() error
}

// Options configures a Reader.
type Options struct {
	Languages []string
	// TessdataPrefix overrides the directory containing *.traineddata.
	TessdataPrefix string
	// MinConfidence drops words below this confidence from Result.Words.
	MinConfidence float64
}

func (o Options) languages() []string {
	if len(o.Languages) == 0 {
		return DefaultLanguages
	}
	return o.Languages
}

// New returns the best Reader for this build.
func New(opts Options) (Reader, error) {
	return newTesseract(opts)
}

func normalize(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	if len(fields) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(fields[0])
	last, _ := utf8.DecodeLastRuneInString(fields[0])
	for _, f := range fields[1:] {
		first, _ := utf8.DecodeRuneInString(f)
		if !isCJK(last) || !isCJK(first) {
			sb.WriteByte(' ')
		}
		sb.WriteString(f)
		last, _ = utf8.DecodeLastRuneInString(f)
	}
	return sb.String()
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) || unicode.In(r, unicode.Hiragana, unicode.Katakana) ||
		(r >= 0x3000 && r <= 0x303f) || (r >= 0xff00 && r <= 0xffef)
}
