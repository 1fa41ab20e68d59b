package answerer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	diskimaging "github.com/disintegration/imaging"

	"github.com/ironsheep/quiz-tapper/internal/imaging"
)

// OpenAI talks to any chat-completions endpoint that accepts image_url
// content parts.
type OpenAI struct {
	url   string
	model string
	key   string
	options
}

// NewOpenAI returns a backend posting to url (the full chat-completions
// URL) with the given model and bearer key.
func NewOpenAI(url, model, key string, opts ...Option) *OpenAI {
	return &OpenAI{url: url, model: model, key: key, options: buildOptions(opts)}
}

// Meter returns the usage meter.
func (o *OpenAI) Meter() *Meter { return o.meter }

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

// Answer sends the question image and prompt and parses the reply.
func (o *OpenAI) Answer(ctx context.Context, q Question) (*Result, error) {
	b64, err := imaging.EncodeBase64(q.Image, diskimaging.JPEG)
	if err != nil {
		return nil, fmt.Errorf("encode question: %w", err)
	}

	body := map[string]any{
		"model": o.model,
		"messages": []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{
						"type":      "image_url",
						"image_url": map[string]any{"url": "data:image/jpeg;base64," + b64},
					},
					map[string]any{"type": "text", "text": q.prompt()},
				},
			},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.key != "" {
		req.Header.Set("Authorization", "Bearer "+o.key)
	}

	resp, err := o.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("openai decode: %w", err)
	}
	o.meter.Add(out.Usage.PromptTokens, out.Usage.CompletionTokens)
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", ErrNoAnswer)
	}

	reply := out.Choices[0].Message.Content
	o.log.Debugf("openai reply %q (%d+%d tokens)", reply, out.Usage.PromptTokens, out.Usage.CompletionTokens)

	ans, err := ParseAnswer(reply)
	if err != nil {
		return nil, err
	}
	return &Result{
		Answer:           ans,
		Reply:            reply,
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
	}, nil
}
