// Package testutil provides shared fixtures for package tests: signed
// capability tokens, a scriptable executor stub and execution context
// builders.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/capability"
	"github.com/flowmesh/flowmesh/core"
	"github.com/flowmesh/flowmesh/logging"
	"github.com/flowmesh/flowmesh/memory"
	"github.com/flowmesh/flowmesh/workflow"
)

// Secret is the HMAC secret used by test tokens.
const Secret = "test-secret"

// Codec returns a capability codec signing with Secret.
func Codec() *capability.Codec {
	return capability.NewCodec(Secret)
}

// FullCaps grants everything the builtin agent types and workflow operations
// require.
func FullCaps() []core.Capability {
	return []core.Capability{
		{Resource: "workflows", Actions: []string{"create", "execute", "cancel"}},
		{Resource: "data", Actions: []string{"process"}},
		{Resource: "llm", Actions: []string{"generate", "embed"}},
		{Resource: "retrieval", Actions: []string{"search"}},
		{Resource: "integration", Actions: []string{"call"}},
	}
}

// SignToken signs a capability token for subject in tenant with the given
// capabilities. With no capabilities it grants FullCaps.
func SignToken(t *testing.T, subject, tenantID string, caps ...core.Capability) string {
	t.Helper()

	if len(caps) == 0 {
		caps = FullCaps()
	}

	raw, err := Codec().Sign(&core.CapabilityToken{
		Subject:      subject,
		TenantID:     tenantID,
		Capabilities: caps,
	})
	require.NoError(t, err)

	return raw
}

// Token builds an unsigned token value for direct use with gates and
// executors.
func Token(subject, tenantID string) *core.CapabilityToken {
	return &core.CapabilityToken{
		Subject:      subject,
		TenantID:     tenantID,
		Capabilities: FullCaps(),
	}
}

// StubExecutor is a scriptable core.Executor for strategy and context tests.
// Handle decides each result; when nil every call completes with its input
// echoed under "echo" plus the agent id.
type StubExecutor struct {
	// Handle computes the result for one call.
	Handle func(def core.AgentDefinition, input map[string]any) core.AgentResult

	// Delay is slept before each call completes, for join-order tests.
	Delay time.Duration

	mu    sync.Mutex
	calls []string
}

func (s *StubExecutor) Execute(ctx context.Context, def core.AgentDefinition, input map[string]any, _ *core.CapabilityToken) core.AgentResult {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return core.FailedResult(ctx.Err(), 0)
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, def.AgentID)
	s.mu.Unlock()

	if s.Handle != nil {
		return s.Handle(def, input)
	}

	return core.CompletedResult(map[string]any{
		"agent_id": def.AgentID,
		"echo":     input,
	}, 0)
}

func (s *StubExecutor) Supports(string) bool { return true }

// Calls returns the agent ids executed so far, in completion order.
func (s *StubExecutor) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.calls))
	copy(out, s.calls)

	return out
}

var _ core.Executor = (*StubExecutor)(nil)

// Workflow builds a minimal workflow execution of the given type over the
// agents, owned by tenant "tenant-a".
func Workflow(wfType core.WorkflowType, agents ...core.AgentDefinition) *core.WorkflowExecution {
	return &core.WorkflowExecution{
		WorkflowID:   "wf_" + core.NewID(),
		WorkflowType: wfType,
		TenantID:     "tenant-a",
		CreatedBy:    "tester",
		Agents:       agents,
		Status:       core.StatusRunning,
		CreatedAt:    time.Now(),
	}
}

// Agent builds an agent definition with a one-minute timeout.
func Agent(id, agentType string) core.AgentDefinition {
	return core.AgentDefinition{
		AgentID:   id,
		AgentType: agentType,
		Name:      id,
		Timeout:   time.Minute,
	}
}

// ExecContext wires a workflow to the stub executor with fresh in-memory
// stores.
func ExecContext(wf *core.WorkflowExecution, exec core.Executor) *core.ExecContext {
	return core.NewExecContext(
		wf,
		Token("tester", wf.TenantID),
		exec,
		memory.NewManager(),
		workflow.NewInMemoryStateStore(),
		logging.NoOpLogger{},
	)
}
