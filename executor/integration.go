package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// IntegrationHandler invokes an external HTTP tool. The target endpoint and
// method come from the definition's environment ("endpoint", "method"); the
// call input is sent as the JSON body. The response body is decoded as JSON
// when possible and returned verbatim otherwise.
type IntegrationHandler struct {
	client *http.Client
}

// NewIntegrationHandler creates the built-in integration_agent handler. A
// nil client falls back to http.DefaultClient; per-call deadlines come from
// the executor's timeout context either way.
func NewIntegrationHandler(client *http.Client) *IntegrationHandler {
	if client == nil {
		client = http.DefaultClient
	}
	return &IntegrationHandler{client: client}
}

// Execute implements Handler.
func (h *IntegrationHandler) Execute(ctx context.Context, inv Invocation) (map[string]any, error) {
	endpoint := inv.Definition.Environment["endpoint"]
	if endpoint == "" {
		return nil, fmt.Errorf("integration agent %q has no endpoint configured", inv.Definition.AgentID)
	}
	method := inv.Definition.Environment["method"]
	if method == "" {
		method = http.MethodPost
	}

	payload, err := json.Marshal(inv.Input)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	output := map[string]any{"status_code": resp.StatusCode}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err == nil {
		output["response"] = decoded
	} else {
		output["response"] = string(body)
	}
	return output, nil
}
