package answerer

import (
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Pricing is the model price in currency units per million tokens.
type Pricing struct {
	InputPerMillion  float64 `json:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million"`
}

// Cost prices a token count.
func (p Pricing) Cost(promptTokens, completionTokens int64) float64 {
	return float64(promptTokens)/1e6*p.InputPerMillion + float64(completionTokens)/1e6*p.OutputPerMillion
}

// Meter accumulates token usage across questions. It is safe for
// concurrent use.
type Meter struct {
	mu         sync.Mutex
	pricing    Pricing
	prompt     int64
	completion int64
	costs      []float64
}

// NewMeter returns an empty Meter.
func NewMeter(p Pricing) *Meter {
	return &Meter{pricing: p}
}

// Add records one question's usage.
func (m *Meter) Add(promptTokens, completionTokens int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompt += promptTokens
	m.completion += completionTokens
	m.costs = append(m.costs, m.pricing.Cost(promptTokens, completionTokens))
}

// Summary is a snapshot of a Meter.
type Summary struct {
	Questions        int     `json:"questions"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	Cost             float64 `json:"cost"`
	MeanCost         float64 `json:"mean_cost"`
}

// Tokens returns the total token count.
func (s Summary) Tokens() int64 { return s.PromptTokens + s.CompletionTokens }

// Summary returns the accumulated totals.
func (m *Meter) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Summary{
		Questions:        len(m.costs),
		PromptTokens:     m.prompt,
		CompletionTokens: m.completion,
		Cost:             m.pricing.Cost(m.prompt, m.completion),
	}
	if len(m.costs) > 0 {
		s.MeanCost = stat.Mean(m.costs, nil)
	}
	return s
}
