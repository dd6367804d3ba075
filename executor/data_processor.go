package executor

import (
	"context"
	"strings"
)

// DataProcessorHandler performs deterministic in-process transformations on
// the "text" field of the input. The operation comes from the definition's
// environment ("operation": uppercase, lowercase, word_count or passthrough).
// All other input keys are forwarded untouched so chained agents keep their
// context.
type DataProcessorHandler struct{}

// NewDataProcessorHandler creates the built-in data_processor handler.
func NewDataProcessorHandler() *DataProcessorHandler {
	return &DataProcessorHandler{}
}

// Execute implements Handler.
func (h *DataProcessorHandler) Execute(ctx context.Context, inv Invocation) (map[string]any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	op := inv.Definition.Environment["operation"]
	if op == "" {
		op = "passthrough"
	}

	output := copyInput(inv.Input)
	text := firstString(inv.Input, "text", "prompt", "content")

	switch op {
	case "uppercase":
		output["text"] = strings.ToUpper(text)
	case "lowercase":
		output["text"] = strings.ToLower(text)
	case "word_count":
		output["word_count"] = len(strings.Fields(text))
	case "passthrough":
		// input forwarded untouched
	}
	output["operation"] = op
	output["processed"] = true

	if inv.Memory != nil {
		_ = inv.Memory.StoreAgentMemory(inv.Definition.AgentID, "last_output", output, 0)
	}
	return output, nil
}
