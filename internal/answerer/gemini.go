package answerer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	diskimaging "github.com/disintegration/imaging"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ironsheep/quiz-tapper/internal/imaging"
)

// Gemini answers through the Google Generative AI SDK.
type Gemini struct {
	client *genai.Client
	model  string
	options
}

// NewGemini connects a client for model using apiKey. Close releases it.
func NewGemini(ctx context.Context, model, apiKey string, opts ...Option) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: cl, model: model, options: buildOptions(opts)}, nil
}

// Meter returns the usage meter.
func (g *Gemini) Meter() *Meter { return g.meter }

// Close releases the underlying client.
func (g *Gemini) Close() error { return g.client.Close() }

// Answer sends the question image and prompt and parses the reply.
func (g *Gemini) Answer(ctx context.Context, q Question) (*Result, error) {
	data, err := imaging.Encode(q.Image, diskimaging.JPEG)
	if err != nil {
		return nil, fmt.Errorf("encode question: %w", err)
	}

	m := g.client.GenerativeModel(g.model)
	resp, err := m.GenerateContent(ctx,
		&genai.Blob{MIMEType: "image/jpeg", Data: data},
		genai.Text(q.prompt()),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	return g.result(resp)
}

func (g *Gemini) result(resp *genai.GenerateContentResponse) (*Result, error) {
	in, out := usageOf(resp)
	g.meter.Add(in, out)

	reply := firstText(resp)
	g.log.Debugf("gemini reply %q (%d+%d tokens)", reply, in, out)
	if reply == "" {
		return nil, fmt.Errorf("%w: empty response", ErrNoAnswer)
	}
	ans, err := ParseAnswer(reply)
	if err != nil {
		return nil, err
	}
	return &Result{Answer: ans, Reply: reply, PromptTokens: in, CompletionTokens: out}, nil
}

func usageOf(resp *genai.GenerateContentResponse) (int64, int64) {
	if resp == nil || resp.UsageMetadata == nil {
		return 0, 0
	}
	return int64(resp.UsageMetadata.PromptTokenCount), int64(resp.UsageMetadata.CandidatesTokenCount)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			return s
		}
	}
	return ""
}
