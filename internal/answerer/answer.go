// Package answerer asks a multimodal model which choice answers the quiz
// question in a cropped screenshot, and tracks what that costs.
package answerer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"unicode/utf8"
)

// Prompt instructs the model to reply with the option letter only.
const Prompt = "回答图片里的选择题。你的回答会被代码解析，只需要回答选项，不需要多余的解释。需要保证正确性，不能随便回答。如果不确定答案，请回答正确的可能性最大的那个，即使不确定也不需要任何解释和说明"

// hintPrefix introduces OCR text appended to Prompt.
const hintPrefix = "\n题目文字（OCR 识别，可能有误）：\n"

// answerMarker precedes the letter in verbose replies.
const answerMarker = "答案"

// ErrNoAnswer is returned when a reply contains no usable option letter.
var ErrNoAnswer = errors.New("no answer letter in reply")

// Answer is a choice letter. Its value is the zero-based index of the
// choice bar, top to bottom.
type Answer int

const (
	A Answer = iota
	B
	C
	D
)

// Index returns the choice index.
func (a Answer) Index() int { return int(a) }

func (a Answer) String() string {
	if a < A || a > D {
		return fmt.Sprintf("Answer(%d)", int(a))
	}
	return string(rune('A' + a))
}

// AnswerFromLetter maps A-D (any case) to an Answer.
func AnswerFromLetter(r rune) (Answer, error) {
	switch r {
	case 'A', 'a':
		return A, nil
	case 'B', 'b':
		return B, nil
	case 'C', 'c':
		return C, nil
	case 'D', 'd':
		return D, nil
	}
	return 0, fmt.Errorf("%w: %q is not A-D", ErrNoAnswer, r)
}

// ParseAnswer extracts the option letter from a model reply.
//
// A reply that is a single character is the letter itself. Otherwise the
// first ASCII letter after "答案" is used. Replies without that marker fall
// back to the last A-D letter that is not part of a longer word.
func ParseAnswer(reply string) (Answer, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return 0, ErrNoAnswer
	}
	if utf8.RuneCountInString(reply) == 1 {
		r, _ := utf8.DecodeRuneInString(reply)
		return AnswerFromLetter(r)
	}

	if i := strings.Index(reply, answerMarker); i >= 0 {
		for _, r := range reply[i+len(answerMarker):] {
			if isASCIILetter(r) {
				return AnswerFromLetter(r)
			}
		}
		return 0, fmt.Errorf("%w: nothing after %s in %q", ErrNoAnswer, answerMarker, reply)
	}

	runes := []rune(reply)
	for i := len(runes) - 1; i >= 0; i-- {
		r := runes[i]
		if _, err := AnswerFromLetter(r); err != nil {
			continue
		}
		if i > 0 && isASCIILetter(runes[i-1]) {
			continue
		}
		if i < len(runes)-1 && isASCIILetter(runes[i+1]) {
			continue
		}
		return AnswerFromLetter(r)
	}
	return 0, fmt.Errorf("%w: %q", ErrNoAnswer, reply)
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// Result is one answered question.
type Result struct {
	Answer           Answer `json:"answer"`
	Reply            string `json:"reply"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
}

// Question is what gets sent to the model.
type Question struct {
	// Image is the cropped core region.
	Image image.Image
	// Hint is optional OCR text of the question.
	Hint string
}

func (q Question) prompt() string {
	if strings.TrimSpace(q.Hint) == "" {
		return Prompt
	}
	return Prompt + hintPrefix + strings.TrimSpace(q.Hint)
}

// Answerer answers quiz questions.
type Answerer interface {
	Answer(ctx context.Context, q Question) (*Result, error)
	Meter() *Meter
}
