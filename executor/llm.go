package executor

import (
	"context"
	"fmt"

	"github.com/flowmesh/flowmesh/model"
)

// LLMHandler drives text generation through a model.Model. The prompt is
// read from the input's "prompt", "text" or "response" field so upstream
// agent outputs forward naturally into the next generation.
type LLMHandler struct {
	model model.Model
}

// NewLLMHandler creates the built-in llm_agent handler.
func NewLLMHandler(m model.Model) *LLMHandler {
	return &LLMHandler{model: m}
}

// Execute implements Handler.
func (h *LLMHandler) Execute(ctx context.Context, inv Invocation) (map[string]any, error) {
	prompt := firstString(inv.Input, "prompt", "text", "response")
	if prompt == "" {
		return nil, fmt.Errorf("input carries no prompt")
	}

	resp, err := h.model.Generate(ctx, model.Request{
		Instructions: inv.Definition.Environment["instructions"],
		Prompt:       prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	info := h.model.Info()
	return map[string]any{
		"response":      resp.Text,
		"text":          resp.Text,
		"model":         info.Name,
		"provider":      info.Provider,
		"tokens":        resp.Usage.TotalTokens,
		"finish_reason": resp.FinishReason,
	}, nil
}
