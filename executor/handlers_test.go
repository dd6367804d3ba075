package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/core"
	"github.com/flowmesh/flowmesh/memory"
	"github.com/flowmesh/flowmesh/model"
)

func invocation(env map[string]string, input map[string]any) Invocation {
	return Invocation{
		Definition: core.AgentDefinition{
			AgentID:     "agent-1",
			AgentType:   "test",
			Environment: env,
		},
		Input:  input,
		Token:  &core.CapabilityToken{Subject: "tester", TenantID: "tenant-a"},
		Memory: memory.NewManager(),
	}
}

func TestDataProcessorOperations(t *testing.T) {
	h := NewDataProcessorHandler()

	tests := []struct {
		operation string
		input     map[string]any
		check     func(t *testing.T, out map[string]any)
	}{
		{
			operation: "uppercase",
			input:     map[string]any{"text": "hello"},
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, "HELLO", out["text"])
			},
		},
		{
			operation: "lowercase",
			input:     map[string]any{"text": "HeLLo"},
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, "hello", out["text"])
			},
		},
		{
			operation: "word_count",
			input:     map[string]any{"text": "one two three"},
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, 3, out["word_count"])
				assert.Equal(t, "one two three", out["text"], "word_count keeps the text")
			},
		},
		{
			operation: "passthrough",
			input:     map[string]any{"text": "as is", "extra": 1},
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, "as is", out["text"])
				assert.Equal(t, 1, out["extra"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.operation, func(t *testing.T) {
			inv := invocation(map[string]string{"operation": tt.operation}, tt.input)

			out, err := h.Execute(context.Background(), inv)
			require.NoError(t, err)

			tt.check(t, out)
			assert.Equal(t, tt.operation, out["operation"])
			assert.Equal(t, true, out["processed"])
		})
	}
}

func TestDataProcessorStoresLastOutput(t *testing.T) {
	h := NewDataProcessorHandler()
	inv := invocation(map[string]string{"operation": "uppercase"}, map[string]any{"text": "hi"})

	_, err := h.Execute(context.Background(), inv)
	require.NoError(t, err)

	v, ok := inv.Memory.GetAgentMemory("agent-1", "last_output")
	require.True(t, ok)
	assert.Equal(t, "HI", v.(map[string]any)["text"])
}

func TestLLMHandlerGeneratesFromForwardedInput(t *testing.T) {
	m := model.NewMockModel("test-model")
	m.AddResponse("summarize this", "a summary")
	h := NewLLMHandler(m)

	inv := invocation(map[string]string{"instructions": "be brief"}, map[string]any{"text": "summarize this"})

	out, err := h.Execute(context.Background(), inv)
	require.NoError(t, err)

	assert.Equal(t, "a summary", out["response"])
	assert.Equal(t, "a summary", out["text"], "text mirror keeps chains forwarding")
	assert.Equal(t, "test-model", out["model"])
	assert.Equal(t, "mock", out["provider"])
}

func TestLLMHandlerRequiresPrompt(t *testing.T) {
	h := NewLLMHandler(model.NewMockModel("test-model"))

	_, err := h.Execute(context.Background(), invocation(nil, map[string]any{"unrelated": 1}))
	assert.Error(t, err)
}

func TestEmbeddingHandler(t *testing.T) {
	h := NewEmbeddingHandler(&model.MockEmbedder{Dimensions: 4})

	out, err := h.Execute(context.Background(), invocation(nil, map[string]any{"text": "embed me"}))
	require.NoError(t, err)

	assert.Equal(t, 4, out["dimensions"])
	assert.Len(t, out["embedding"], 4)
	assert.Equal(t, "embed me", out["text"])

	_, err = h.Execute(context.Background(), invocation(nil, map[string]any{}))
	assert.Error(t, err)
}

func TestRetrievalHandlerScopesToTokenTenant(t *testing.T) {
	idx := memory.NewDocumentIndex()
	idx.Add("tenant-a", "flowmesh orchestrates agents", nil)
	idx.Add("tenant-b", "flowmesh for another tenant", nil)

	h := NewRetrievalHandler(idx)

	out, err := h.Execute(context.Background(), invocation(nil, map[string]any{"query": "flowmesh"}))
	require.NoError(t, err)

	assert.Equal(t, 1, out["count"], "only the token tenant's documents are visible")
	docs := out["documents"].([]memory.Document)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "orchestrates")
}

func TestRetrievalHandlerHonorsTopK(t *testing.T) {
	idx := memory.NewDocumentIndex()
	for range 10 {
		idx.Add("tenant-a", "repeated entry", nil)
	}

	h := NewRetrievalHandler(idx)

	out, err := h.Execute(context.Background(), invocation(nil, map[string]any{
		"query": "repeated",
		"top_k": float64(3), // as produced by JSON decoding
	}))
	require.NoError(t, err)
	assert.Equal(t, 3, out["count"])
}

func TestIntegrationHandlerPostsInputAsJSON(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}))
	defer srv.Close()

	h := NewIntegrationHandler(nil)
	inv := invocation(map[string]string{"endpoint": srv.URL}, map[string]any{"ticket": "T-1"})

	out, err := h.Execute(context.Background(), inv)
	require.NoError(t, err)

	assert.Equal(t, "T-1", received["ticket"])
	assert.Equal(t, 200, out["status_code"])
	assert.Equal(t, map[string]any{"result": "ok"}, out["response"])
}

func TestIntegrationHandlerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	h := NewIntegrationHandler(nil)
	inv := invocation(map[string]string{"endpoint": srv.URL}, nil)

	_, err := h.Execute(context.Background(), inv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestIntegrationHandlerRequiresEndpoint(t *testing.T) {
	h := NewIntegrationHandler(nil)

	_, err := h.Execute(context.Background(), invocation(nil, nil))
	assert.Error(t, err)
}
