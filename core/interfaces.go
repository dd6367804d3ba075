package core

import (
	"context"
	"time"
)

// Executor runs exactly one agent step given its definition and input,
// returning the uniform result envelope. Every external agent integration is
// accessed through this single call. An execution failure (timeout, provider
// error) is reported inside the returned envelope, never as a Go error; the
// caller decides how failures affect downstream control flow.
type Executor interface {
	Execute(ctx context.Context, def AgentDefinition, input map[string]any, token *CapabilityToken) AgentResult

	// Supports reports whether the executor can dispatch the given agent
	// type. Used at workflow creation so unknown types fail fast.
	Supports(agentType string) bool
}

// MemoryManager provides agent-scoped and tenant-shared memory with lazy
// expiry plus per-agent inbound message queues. Implementations must be safe
// for concurrent use by agents of the same or different workflows.
type MemoryManager interface {
	// StoreAgentMemory writes a value into the agent's private namespace.
	// A zero ttl means the entry never expires.
	StoreAgentMemory(agentID, key string, value any, ttl time.Duration) error
	// GetAgentMemory reads from the agent's private namespace. A read past
	// the entry's expiry behaves as absent and removes the entry.
	GetAgentMemory(agentID, key string) (any, bool)

	// StoreSharedMemory writes a value into the tenant's shared namespace.
	StoreSharedMemory(tenantID, key string, value any, ttl time.Duration) error
	// GetSharedMemory reads from the tenant's shared namespace with the same
	// lazy-expiry semantics as GetAgentMemory.
	GetSharedMemory(tenantID, key string) (any, bool)

	// SendMessage appends a message to the recipient agent's queue.
	SendMessage(msg AgentMessage) error
	// ReceiveMessages drains the agent's queue. An empty msgType removes and
	// returns the entire queue; a non-empty msgType removes only entries of
	// that type. Expired messages are pruned and never returned.
	ReceiveMessages(agentID string, msgType MessageType) []AgentMessage

	// CleanupAgent drops the agent's private memory and message queue. Called
	// once a workflow using that agent id reaches a terminal state.
	CleanupAgent(agentID string)
}

// WorkflowStore persists WorkflowExecution records. There is a single logical
// writer per workflow id at any time; Get returns an isolated copy. Save must
// reject a snapshot that would change the status of a record already in a
// terminal status with ErrWorkflowTerminal; saves keeping the terminal status
// are accepted so late results can still be attached.
type WorkflowStore interface {
	Create(wf *WorkflowExecution) error
	Get(workflowID string) (*WorkflowExecution, error)
	Save(wf *WorkflowExecution) error
}

// StateStore tracks per-agent run-time state within workflow executions.
// State is keyed by (workflowID, agentID); one AgentState exists per agent id
// per execution.
type StateStore interface {
	Set(workflowID string, state *AgentState)
	Update(workflowID, agentID string, fn func(*AgentState))
	Get(workflowID, agentID string) (*AgentState, bool)
	All(workflowID string) map[string]*AgentState
	Drop(workflowID string)
}
