package executor

import (
	"context"
	"fmt"

	"github.com/flowmesh/flowmesh/memory"
)

// Retriever is the narrow search contract consumed by retrieval agents.
// memory.DocumentIndex satisfies it; vector stores can be plugged in the
// same way.
type Retriever interface {
	Search(tenantID, query string, limit int) []memory.Document
}

// RetrievalHandler answers retrieval queries against the tenant's indexed
// documents. The querying tenant comes from the verified capability token,
// never from the input, preserving tenant isolation.
type RetrievalHandler struct {
	retriever Retriever
}

// NewRetrievalHandler creates the built-in retrieval_agent handler.
func NewRetrievalHandler(r Retriever) *RetrievalHandler {
	return &RetrievalHandler{retriever: r}
}

// Execute implements Handler.
func (h *RetrievalHandler) Execute(ctx context.Context, inv Invocation) (map[string]any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	query := firstString(inv.Input, "query", "text", "prompt")
	if query == "" {
		return nil, fmt.Errorf("input carries no query")
	}
	limit := intOption(inv.Input, "top_k", 5)

	tenantID := ""
	if inv.Token != nil {
		tenantID = inv.Token.TenantID
	}

	docs := h.retriever.Search(tenantID, query, limit)
	return map[string]any{
		"documents": docs,
		"count":     len(docs),
		"query":     query,
	}, nil
}
