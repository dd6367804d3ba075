package core

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a new unique identifier string (UUID v4).
func NewID() string { return uuid.NewString() }

// WorkflowType selects the strategy governing execution order, concurrency
// and failure propagation among a workflow's agents.
type WorkflowType string

const (
	// WorkflowSequential executes agents in list order, forwarding each
	// agent's output to the next.
	WorkflowSequential WorkflowType = "sequential"
	// WorkflowParallel executes all agents concurrently against the same input.
	WorkflowParallel WorkflowType = "parallel"
	// WorkflowConditional gates each agent behind a configured predicate.
	WorkflowConditional WorkflowType = "conditional"
	// WorkflowPipeline is sequential with stage annotations; a failing stage
	// halts the remaining stages.
	WorkflowPipeline WorkflowType = "pipeline"
	// WorkflowMapReduce fans mapper agents out across input chunks and then
	// runs reducer agents over the collected map results.
	WorkflowMapReduce WorkflowType = "map_reduce"
)

// Valid reports whether t names a known workflow type.
func (t WorkflowType) Valid() bool {
	switch t {
	case WorkflowSequential, WorkflowParallel, WorkflowConditional, WorkflowPipeline, WorkflowMapReduce:
		return true
	}
	return false
}

// Status represents the lifecycle state of a workflow or an agent run.
// Workflows start at StatusIdle and move through StatusRunning into exactly
// one terminal state; there is no transition out of a terminal state.
type Status string

const (
	// StatusIdle means created but not yet executing.
	StatusIdle Status = "idle"
	// StatusRunning means execution is in flight.
	StatusRunning Status = "running"
	// StatusWaiting means blocked on an external dependency.
	StatusWaiting Status = "waiting"
	// StatusCompleted is the successful terminal state.
	StatusCompleted Status = "completed"
	// StatusFailed is the unsuccessful terminal state.
	StatusFailed Status = "failed"
	// StatusCancelled is the terminal state reached via cancellation.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s is one of the three terminal states.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// AgentDefinition is the immutable specification of a single workflow step.
// It is authored when a workflow is created and never mutated afterwards.
type AgentDefinition struct {
	AgentID              string            `json:"agent_id" validate:"required"`
	AgentType            string            `json:"agent_type" validate:"required"`
	Name                 string            `json:"name"`
	Description          string            `json:"description,omitempty"`
	CapabilitiesRequired []string          `json:"capabilities_required,omitempty"`
	MemoryLimitMB        int               `json:"memory_limit_mb,omitempty" validate:"gte=0"`
	Timeout              time.Duration     `json:"timeout,omitempty" validate:"gte=0"`
	RetryCount           int               `json:"retry_count,omitempty" validate:"gte=0"`
	Environment          map[string]string `json:"environment,omitempty"`
}

// MessageType categorizes inter-agent messages.
type MessageType string

const (
	// MessageData carries payload data between agents.
	MessageData MessageType = "data"
	// MessageControl carries coordination signals.
	MessageControl MessageType = "control"
	// MessageError reports a failure to another agent.
	MessageError MessageType = "error"
	// MessageHeartbeat signals liveness.
	MessageHeartbeat MessageType = "heartbeat"
)

// AgentMessage is a point-to-point message between agents. It is produced by
// one agent's execution and consumed (removed) by the addressed agent's next
// read. Expired messages are never delivered.
type AgentMessage struct {
	MessageID string      `json:"message_id"`
	FromAgent string      `json:"from_agent"`
	ToAgent   string      `json:"to_agent"`
	Type      MessageType `json:"type"`
	Content   any         `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
}

// Expired reports whether the message's expiry has passed at the given time.
func (m AgentMessage) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && now.After(*m.ExpiresAt)
}

// AgentState is the mutable run-time record of one agent within one workflow
// execution. It is created when the agent starts running, mutated only by the
// strategy runner owning that execution, and read by status queries.
type AgentState struct {
	AgentID      string         `json:"agent_id"`
	Status       Status         `json:"status"`
	CurrentTask  string         `json:"current_task,omitempty"`
	MemoryUsedMB int            `json:"memory_used_mb"`
	Invocations  int            `json:"invocations"`
	StartedAt    time.Time      `json:"started_at"`
	LastActivity time.Time      `json:"last_activity"`
	ErrorMessage string         `json:"error_message,omitempty"`
	OutputData   map[string]any `json:"output_data,omitempty"`
}

// Clone returns a deep copy of the state safe for independent mutation.
func (s *AgentState) Clone() *AgentState {
	clone := *s
	if s.OutputData != nil {
		clone.OutputData = make(map[string]any, len(s.OutputData))
		for k, v := range s.OutputData {
			clone.OutputData[k] = v
		}
	}
	return &clone
}

// WorkflowExecution is the tenant-owned record of one workflow: its ordered
// agent definitions, strategy configuration and status lifecycle. It is
// created on CreateWorkflow and mutated in place by ExecuteWorkflow and
// CancelWorkflow; it is never shared across tenants.
type WorkflowExecution struct {
	WorkflowID   string            `json:"workflow_id"`
	Name         string            `json:"name,omitempty"`
	WorkflowType WorkflowType      `json:"workflow_type"`
	TenantID     string            `json:"tenant_id"`
	CreatedBy    string            `json:"created_by"`
	Agents       []AgentDefinition `json:"agents"`
	Config       map[string]any    `json:"workflow_config,omitempty"`
	Status       Status            `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	Results      *WorkflowResult   `json:"results,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// Clone returns a deep copy of the workflow record (agents, config, results)
// safe for independent mutation by callers.
func (w *WorkflowExecution) Clone() *WorkflowExecution {
	clone := *w
	clone.Agents = make([]AgentDefinition, len(w.Agents))
	copy(clone.Agents, w.Agents)
	if w.Config != nil {
		clone.Config = make(map[string]any, len(w.Config))
		for k, v := range w.Config {
			clone.Config[k] = v
		}
	}
	if w.StartedAt != nil {
		t := *w.StartedAt
		clone.StartedAt = &t
	}
	if w.CompletedAt != nil {
		t := *w.CompletedAt
		clone.CompletedAt = &t
	}
	if w.Results != nil {
		r := *w.Results
		clone.Results = &r
	}
	return &clone
}

// AgentIDs returns the ordered agent identifiers of the workflow.
func (w *WorkflowExecution) AgentIDs() []string {
	ids := make([]string, len(w.Agents))
	for i, a := range w.Agents {
		ids[i] = a.AgentID
	}
	return ids
}

// MemoryEntry is a single stored memory value carrying its creation time and
// optional expiry. A read past ExpiresAt behaves as absent and removes the
// entry (lazy expiry).
type MemoryEntry struct {
	Value     any        `json:"value"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the entry's expiry has passed at the given time.
func (e MemoryEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}
