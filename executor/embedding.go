package executor

import (
	"context"
	"fmt"

	"github.com/flowmesh/flowmesh/model"
)

// EmbeddingHandler produces embedding vectors through a model.Embedder.
type EmbeddingHandler struct {
	embedder model.Embedder
}

// NewEmbeddingHandler creates the built-in embedding_agent handler.
func NewEmbeddingHandler(e model.Embedder) *EmbeddingHandler {
	return &EmbeddingHandler{embedder: e}
}

// Execute implements Handler.
func (h *EmbeddingHandler) Execute(ctx context.Context, inv Invocation) (map[string]any, error) {
	text := firstString(inv.Input, "text", "prompt", "content", "response")
	if text == "" {
		return nil, fmt.Errorf("input carries no text to embed")
	}

	vec, err := h.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	return map[string]any{
		"embedding":  vec,
		"dimensions": len(vec),
		"text":       text,
	}, nil
}
