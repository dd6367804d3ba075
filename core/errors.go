package core

import (
	"errors"
	"fmt"
)

// ErrWorkflowNotFound is returned when a referenced workflow id does not
// exist in the workflow store.
var ErrWorkflowNotFound = errors.New("workflow not found")

// ErrWorkflowTerminal is returned by workflow stores when a save would move a
// workflow out of a terminal status. Terminal states are never left; a record
// in a terminal status may only be re-saved with the same status, for example
// to attach late results after a cancel.
var ErrWorkflowTerminal = errors.New("workflow is in a terminal status")

// AuthorizationError indicates a capability token is missing a required grant
// or names a different tenant than the resource it targets. It is surfaced
// before any state mutation so callers can distinguish "not authorized" from
// "not found" and from internal failures.
type AuthorizationError struct {
	Subject  string
	TenantID string
	Resource string
	Action   string
	Reason   string
}

// Error implements the error interface.
func (e *AuthorizationError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("authorization failed for %q on %s:%s: %s", e.Subject, e.Resource, e.Action, e.Reason)
	}
	return fmt.Sprintf("authorization failed for %q: %s", e.Subject, e.Reason)
}

// AgentExecutionError wraps the failure of a single agent step. It is
// recorded inside the results map rather than propagated, except under the
// pipeline strategy where it additionally halts further stages.
type AgentExecutionError struct {
	AgentID string
	Err     error
}

// Error implements the error interface.
func (e *AgentExecutionError) Error() string {
	return fmt.Sprintf("agent %s execution failed: %v", e.AgentID, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *AgentExecutionError) Unwrap() error { return e.Err }

// OrchestratorError wraps a failure of the strategy-dispatch machinery itself
// (unknown workflow type, malformed configuration, illegal state transition).
// Unlike agent failures it propagates out of ExecuteWorkflow and flips the
// workflow to failed.
type OrchestratorError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *OrchestratorError) Error() string {
	return fmt.Sprintf("orchestrator %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *OrchestratorError) Unwrap() error { return e.Err }
