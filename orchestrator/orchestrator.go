package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/flowmesh/flowmesh/capability"
	"github.com/flowmesh/flowmesh/core"
	"github.com/flowmesh/flowmesh/logging"
	"github.com/flowmesh/flowmesh/memory"
	"github.com/flowmesh/flowmesh/registry"
	"github.com/flowmesh/flowmesh/strategy"
	"github.com/flowmesh/flowmesh/workflow"
)

// CreateRequest describes a workflow to be registered with CreateWorkflow.
type CreateRequest struct {
	// WorkflowType selects the execution strategy.
	WorkflowType core.WorkflowType

	// Name is an optional human-readable label.
	Name string

	// Agents lists the agent definitions in declaration order.
	Agents []core.AgentDefinition

	// Config carries strategy-specific settings, for example the
	// "conditions" block of a conditional workflow.
	Config map[string]any
}

// StatusReport is the projection returned by WorkflowStatus.
type StatusReport struct {
	Workflow    *core.WorkflowExecution    `json:"workflow"`
	AgentStates map[string]*core.AgentState `json:"agent_states"`
}

// Options configures the Orchestrator.
type Options struct {
	// Store persists workflow executions. Defaults to an in-memory store.
	Store core.WorkflowStore

	// States tracks per-agent runtime state. Defaults to an in-memory store.
	States core.StateStore

	// Memory is the shared memory manager handed to agents. Defaults to a
	// fresh in-memory manager.
	Memory core.MemoryManager

	// Registry validates agent definitions and applies type defaults.
	Registry *registry.Registry

	// Runners are the strategy runners keyed by workflow type. Defaults to
	// strategy.DefaultRunners.
	Runners []strategy.Runner

	// Logger receives orchestration logs.
	Logger logging.Logger
}

// Orchestrator coordinates multi-agent workflow execution. It owns the
// workflow store, dispatches runs to strategy runners and guards every
// operation with capability and tenant checks.
type Orchestrator struct {
	executor core.Executor
	gate     *capability.Gate
	store    core.WorkflowStore
	states   core.StateStore
	memory   core.MemoryManager
	registry *registry.Registry
	runners  map[core.WorkflowType]strategy.Runner
	logger   logging.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New creates an Orchestrator around the given executor and capability gate.
func New(executor core.Executor, gate *capability.Gate, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Logger: logging.NewDefaultSlogLogger(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		opts.Store = workflow.NewInMemoryStore()
	}

	if opts.States == nil {
		opts.States = workflow.NewInMemoryStateStore()
	}

	if opts.Memory == nil {
		opts.Memory = memory.NewManager(func(o *memory.ManagerOptions) {
			o.Logger = opts.Logger
		})
	}

	if opts.Registry == nil {
		opts.Registry = registry.New()
	}

	if len(opts.Runners) == 0 {
		opts.Runners = strategy.DefaultRunners()
	}

	runners := make(map[core.WorkflowType]strategy.Runner, len(opts.Runners))
	for _, r := range opts.Runners {
		runners[r.Type()] = r
	}

	return &Orchestrator{
		executor: executor,
		gate:     gate,
		store:    opts.Store,
		states:   opts.States,
		memory:   opts.Memory,
		registry: opts.Registry,
		runners:  runners,
		logger:   opts.Logger,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Memory returns the memory manager shared with agent handlers.
func (o *Orchestrator) Memory() core.MemoryManager {
	return o.memory
}

// CreateWorkflow validates the request against the capability token and the
// agent type registry, persists a new workflow execution in idle status and
// returns its identifier. Nothing is stored when any validation fails.
func (o *Orchestrator) CreateWorkflow(ctx context.Context, req CreateRequest, rawToken string) (string, error) {
	token, err := o.gate.Authenticate(rawToken)
	if err != nil {
		return "", err
	}

	if err := o.gate.Verify(token, "workflows", "create"); err != nil {
		return "", err
	}

	if !req.WorkflowType.Valid() {
		return "", &core.OrchestratorError{
			Op:  "create_workflow",
			Err: fmt.Errorf("unknown workflow type %q", req.WorkflowType),
		}
	}

	if _, ok := o.runners[req.WorkflowType]; !ok {
		return "", &core.OrchestratorError{
			Op:  "create_workflow",
			Err: fmt.Errorf("no runner registered for workflow type %q", req.WorkflowType),
		}
	}

	if len(req.Agents) == 0 {
		return "", &core.OrchestratorError{
			Op:  "create_workflow",
			Err: errors.New("workflow requires at least one agent"),
		}
	}

	agents := make([]core.AgentDefinition, len(req.Agents))
	copy(agents, req.Agents)

	seen := make(map[string]struct{}, len(agents))
	for i := range agents {
		if err := o.registry.ValidateDefinition(&agents[i]); err != nil {
			return "", &core.OrchestratorError{Op: "create_workflow", Err: err}
		}

		if _, dup := seen[agents[i].AgentID]; dup {
			return "", &core.OrchestratorError{
				Op:  "create_workflow",
				Err: fmt.Errorf("duplicate agent id %q", agents[i].AgentID),
			}
		}

		seen[agents[i].AgentID] = struct{}{}

		if !o.executor.Supports(agents[i].AgentType) {
			return "", &core.OrchestratorError{
				Op:  "create_workflow",
				Err: fmt.Errorf("no handler registered for agent type %q", agents[i].AgentType),
			}
		}

		o.registry.ApplyDefaults(&agents[i])
	}

	if err := o.gate.VerifyAgentRequirements(token, agents); err != nil {
		return "", err
	}

	now := time.Now()

	wf := &core.WorkflowExecution{
		WorkflowID:   "wf_" + core.NewID(),
		Name:         req.Name,
		WorkflowType: req.WorkflowType,
		TenantID:     token.TenantID,
		CreatedBy:    token.Subject,
		Agents:       agents,
		Config:       req.Config,
		Status:       core.StatusIdle,
		CreatedAt:    now,
	}

	if err := o.store.Create(wf); err != nil {
		return "", &core.OrchestratorError{Op: "create_workflow", Err: err}
	}

	o.logger.Info("workflow created",
		"workflow_id", wf.WorkflowID,
		"workflow_type", wf.WorkflowType,
		"tenant_id", wf.TenantID,
		"agents", len(agents),
	)

	return wf.WorkflowID, nil
}

// ExecuteWorkflow runs an idle workflow to completion under the given token.
// The workflow transitions to running before dispatch and reaches a terminal
// status before the call returns, except when it was cancelled mid-run, in
// which case the cancelled status is preserved while late results are still
// recorded.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, workflowID string, input map[string]any, rawToken string) (*core.WorkflowResult, error) {
	token, err := o.gate.Authenticate(rawToken)
	if err != nil {
		return nil, err
	}

	wf, err := o.store.Get(workflowID)
	if err != nil {
		return nil, err
	}

	if err := o.gate.VerifyTenant(token, wf.TenantID); err != nil {
		return nil, err
	}

	if err := o.gate.Verify(token, "workflows", "execute"); err != nil {
		return nil, err
	}

	if wf.Status != core.StatusIdle {
		return nil, &core.OrchestratorError{
			Op:  "execute_workflow",
			Err: fmt.Errorf("workflow %s is %s, expected %s", workflowID, wf.Status, core.StatusIdle),
		}
	}

	runner, ok := o.runners[wf.WorkflowType]
	if !ok {
		return nil, &core.OrchestratorError{
			Op:  "execute_workflow",
			Err: fmt.Errorf("no runner registered for workflow type %q", wf.WorkflowType),
		}
	}

	started := time.Now()
	wf.Status = core.StatusRunning
	wf.StartedAt = &started

	if err := o.store.Save(wf); err != nil {
		return nil, &core.OrchestratorError{Op: "execute_workflow", Err: err}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.trackCancel(workflowID, cancel)
	defer o.untrackCancel(workflowID)

	o.logger.Info("workflow execution started",
		"workflow_id", workflowID,
		"workflow_type", wf.WorkflowType,
		"tenant_id", wf.TenantID,
	)

	ec := core.NewExecContext(wf, token, o.executor, o.memory, o.states, o.logger)

	result, runErr := runner.Run(runCtx, ec, input)

	return o.finish(wf, result, runErr)
}

// finish records the outcome of a run on the stored workflow. A workflow that
// was cancelled while running keeps its cancelled status; results from agents
// that completed after the cancel are still attached.
func (o *Orchestrator) finish(wf *core.WorkflowExecution, result *core.WorkflowResult, runErr error) (*core.WorkflowResult, error) {
	stored, err := o.recordOutcome(wf.WorkflowID, result, runErr)
	if err != nil {
		return nil, &core.OrchestratorError{Op: "execute_workflow", Err: err}
	}

	for _, agentID := range stored.AgentIDs() {
		o.memory.CleanupAgent(agentID)
	}

	if runErr != nil {
		o.logger.Error("workflow execution failed",
			"workflow_id", stored.WorkflowID,
			"status", stored.Status,
			"error", runErr,
		)

		var oe *core.OrchestratorError
		if errors.As(runErr, &oe) {
			return nil, runErr
		}

		return nil, &core.OrchestratorError{Op: "execute_workflow", Err: runErr}
	}

	o.logger.Info("workflow execution finished",
		"workflow_id", stored.WorkflowID,
		"status", stored.Status,
	)

	return result, nil
}

// recordOutcome writes the run outcome to the store. The store refuses to
// move a record out of a terminal status, so a cancel landing between the
// read and the write surfaces as a rejected save; the outcome is then
// re-applied against the fresh record, which keeps the cancelled status and
// still attaches the late results.
func (o *Orchestrator) recordOutcome(workflowID string, result *core.WorkflowResult, runErr error) (*core.WorkflowExecution, error) {
	for {
		stored, err := o.store.Get(workflowID)
		if err != nil {
			return nil, err
		}

		done := time.Now()

		switch {
		case stored.Status == core.StatusCancelled:
			stored.Results = result
		case runErr != nil:
			stored.Status = core.StatusFailed
			stored.ErrorMessage = runErr.Error()
			stored.CompletedAt = &done
		default:
			stored.Status = core.StatusCompleted
			stored.Results = result
			stored.CompletedAt = &done
		}

		saveErr := o.store.Save(stored)
		if saveErr == nil {
			return stored, nil
		}

		if errors.Is(saveErr, core.ErrWorkflowTerminal) {
			continue
		}

		return nil, saveErr
	}
}

// WorkflowStatus returns the stored workflow together with the runtime state
// of its agents. The token must belong to the workflow's tenant.
func (o *Orchestrator) WorkflowStatus(ctx context.Context, workflowID, rawToken string) (*StatusReport, error) {
	token, err := o.gate.Authenticate(rawToken)
	if err != nil {
		return nil, err
	}

	wf, err := o.store.Get(workflowID)
	if err != nil {
		return nil, err
	}

	if err := o.gate.VerifyTenant(token, wf.TenantID); err != nil {
		return nil, err
	}

	return &StatusReport{
		Workflow:    wf,
		AgentStates: o.states.All(workflowID),
	}, nil
}

// CancelWorkflow marks a non-terminal workflow and the known states of its
// agents as cancelled and signals the in-flight run, if any, to stop. The
// token must belong to the workflow's tenant.
func (o *Orchestrator) CancelWorkflow(ctx context.Context, workflowID, rawToken string) error {
	token, err := o.gate.Authenticate(rawToken)
	if err != nil {
		return err
	}

	wf, err := o.store.Get(workflowID)
	if err != nil {
		return err
	}

	if err := o.gate.VerifyTenant(token, wf.TenantID); err != nil {
		return err
	}

	if wf.Status.Terminal() {
		return &core.OrchestratorError{
			Op:  "cancel_workflow",
			Err: fmt.Errorf("workflow %s is already %s", workflowID, wf.Status),
		}
	}

	now := time.Now()
	wf.Status = core.StatusCancelled
	wf.CompletedAt = &now

	if err := o.store.Save(wf); err != nil {
		return &core.OrchestratorError{Op: "cancel_workflow", Err: err}
	}

	for _, agentID := range wf.AgentIDs() {
		o.states.Update(workflowID, agentID, func(s *core.AgentState) {
			s.Status = core.StatusCancelled
			s.CurrentTask = ""
			s.LastActivity = now
		})
	}

	o.signalCancel(workflowID)

	o.logger.Info("workflow cancelled",
		"workflow_id", workflowID,
		"tenant_id", wf.TenantID,
	)

	return nil
}

func (o *Orchestrator) trackCancel(workflowID string, cancel context.CancelFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.cancels[workflowID] = cancel
}

func (o *Orchestrator) untrackCancel(workflowID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.cancels, workflowID)
}

func (o *Orchestrator) signalCancel(workflowID string) {
	o.mu.Lock()
	cancel, ok := o.cancels[workflowID]
	o.mu.Unlock()

	if ok {
		cancel()
	}
}
