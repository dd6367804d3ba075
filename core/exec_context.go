package core

import (
	"context"
	"fmt"
	"time"

	"github.com/flowmesh/flowmesh/logging"
)

// ExecContext carries the wiring a strategy runner needs for one workflow
// execution: the workflow record, the caller's verified token and the shared
// services. A single ExecContext is owned by exactly one in-flight execution;
// the stores it references are safe for concurrent use.
type ExecContext struct {
	Workflow *WorkflowExecution
	Token    *CapabilityToken
	Executor Executor
	Memory   MemoryManager
	States   StateStore
	Logger   logging.Logger
}

// NewExecContext builds an execution context. A nil logger is substituted
// with a NoOpLogger.
func NewExecContext(
	wf *WorkflowExecution,
	token *CapabilityToken,
	executor Executor,
	memory MemoryManager,
	states StateStore,
	logger logging.Logger,
) *ExecContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &ExecContext{
		Workflow: wf,
		Token:    token,
		Executor: executor,
		Memory:   memory,
		States:   states,
		Logger:   logger,
	}
}

// RunAgent executes one agent step through the executor, tracking the agent's
// run-time state around the call. The returned envelope reports failures
// in-band; RunAgent never returns an error.
//
// A state already marked cancelled is not resurrected: a call that completes
// after cancellation still records its output, but the status stays cancelled.
func (ec *ExecContext) RunAgent(ctx context.Context, def AgentDefinition, input map[string]any) AgentResult {
	now := time.Now()
	task := def.Name
	if task == "" {
		task = fmt.Sprintf("%s step", def.AgentType)
	}

	if _, ok := ec.States.Get(ec.Workflow.WorkflowID, def.AgentID); ok {
		ec.States.Update(ec.Workflow.WorkflowID, def.AgentID, func(s *AgentState) {
			if s.Status.Terminal() {
				return
			}
			s.Status = StatusRunning
			s.CurrentTask = task
			s.LastActivity = now
		})
	} else {
		ec.States.Set(ec.Workflow.WorkflowID, &AgentState{
			AgentID:      def.AgentID,
			Status:       StatusRunning,
			CurrentTask:  task,
			StartedAt:    now,
			LastActivity: now,
		})
	}

	res := ec.Executor.Execute(ctx, def, input, ec.Token)

	ec.States.Update(ec.Workflow.WorkflowID, def.AgentID, func(s *AgentState) {
		s.LastActivity = time.Now()
		s.Invocations++
		s.CurrentTask = ""
		if s.Status == StatusCancelled {
			s.OutputData = res.Output
			return
		}
		switch res.Status {
		case ResultCompleted:
			s.Status = StatusCompleted
			s.OutputData = res.Output
		case ResultFailed:
			s.Status = StatusFailed
			s.ErrorMessage = res.Error
		}
	})

	if res.Status == ResultFailed {
		ec.Logger.Warn("agent execution failed",
			"workflow_id", ec.Workflow.WorkflowID,
			"agent_id", def.AgentID,
			"agent_type", def.AgentType,
			"error", res.Error)
	} else {
		ec.Logger.Debug("agent execution finished",
			"workflow_id", ec.Workflow.WorkflowID,
			"agent_id", def.AgentID,
			"processing_time", res.ProcessingTime)
	}

	return res
}
