package model

import (
	"context"
	"fmt"
	"sync"
)

// Request captures the normalized generation input produced by agent handlers.
type Request struct {
	// Instructions is the optional system prompt.
	Instructions string `json:"instructions,omitempty"`
	// Prompt is the user content to complete.
	Prompt string `json:"prompt"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the completed model output.
type Response struct {
	Text         string     `json:"text"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        TokenUsage `json:"usage"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the minimal interface required by llm agent handlers to drive
// generation.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// Embedder produces embedding vectors for text, consumed by embedding agent
// handlers.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// It returns canned completions keyed by prompt, or a deterministic echo
// when no canned response matches.
type MockModel struct {
	mu        sync.RWMutex
	info      Info
	responses map[string]string
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	m.mu.RLock()
	text, ok := m.responses[req.Prompt]
	m.mu.RUnlock()
	if !ok {
		text = fmt.Sprintf("Mock response to: %s", req.Prompt)
	}
	return &Response{
		Text:         text,
		FinishReason: "stop",
		Usage: TokenUsage{
			PromptTokens:     len(req.Prompt) / 4,
			CompletionTokens: len(text) / 4,
			TotalTokens:      (len(req.Prompt) + len(text)) / 4,
		},
	}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

// MockEmbedder is a deterministic Embedder for tests: it hashes runes into a
// fixed-size vector.
type MockEmbedder struct {
	Dimensions int
}

// Embed implements Embedder.
func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	dims := m.Dimensions
	if dims <= 0 {
		dims = 8
	}
	vec := make([]float64, dims)
	for i, r := range text {
		vec[i%dims] += float64(r) / 1000
	}
	return vec, nil
}
