package orchestrator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/capability"
	"github.com/flowmesh/flowmesh/core"
	"github.com/flowmesh/flowmesh/executor"
	"github.com/flowmesh/flowmesh/internal/testutil"
	"github.com/flowmesh/flowmesh/memory"
	"github.com/flowmesh/flowmesh/orchestrator"
	"github.com/flowmesh/flowmesh/workflow"
)

func newTestOrchestrator(t *testing.T, exec core.Executor) *orchestrator.Orchestrator {
	t.Helper()

	if exec == nil {
		e := executor.New(memory.NewManager())
		e.RegisterHandler("data_processor", executor.NewDataProcessorHandler())
		exec = e
	}

	gate := capability.NewGate(testutil.Codec())

	return orchestrator.New(exec, gate)
}

func createRequest() orchestrator.CreateRequest {
	return orchestrator.CreateRequest{
		WorkflowType: core.WorkflowSequential,
		Name:         "text-chain",
		Agents: []core.AgentDefinition{
			{AgentID: "upper", AgentType: "data_processor", Environment: map[string]string{"operation": "uppercase"}},
			{AgentID: "counter", AgentType: "data_processor", Environment: map[string]string{"operation": "word_count"}},
		},
	}
}

func TestCreateWorkflow(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	token := testutil.SignToken(t, "alice", "tenant-a")

	id, err := o.CreateWorkflow(context.Background(), createRequest(), token)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	status, err := o.WorkflowStatus(context.Background(), id, token)
	require.NoError(t, err)
	assert.Equal(t, core.StatusIdle, status.Workflow.Status)
	assert.Equal(t, "tenant-a", status.Workflow.TenantID)
	assert.Equal(t, "alice", status.Workflow.CreatedBy)
	assert.Empty(t, status.AgentStates, "no agent runs before execution")

	// Registry defaults were applied to the stored definitions.
	require.Len(t, status.Workflow.Agents, 2)
	assert.Equal(t, 30*time.Second, status.Workflow.Agents[0].Timeout)
	assert.Equal(t, []string{"data.process"}, status.Workflow.Agents[0].CapabilitiesRequired)
}

func TestCreateWorkflowValidation(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	token := testutil.SignToken(t, "alice", "tenant-a")

	t.Run("bad token", func(t *testing.T) {
		_, err := o.CreateWorkflow(context.Background(), createRequest(), "garbage")
		var authErr *core.AuthorizationError
		require.ErrorAs(t, err, &authErr)
	})

	t.Run("missing create grant", func(t *testing.T) {
		readonly := testutil.SignToken(t, "bob", "tenant-a",
			core.Capability{Resource: "workflows", Actions: []string{"execute"}})
		_, err := o.CreateWorkflow(context.Background(), createRequest(), readonly)
		var authErr *core.AuthorizationError
		require.ErrorAs(t, err, &authErr)
	})

	t.Run("unknown workflow type", func(t *testing.T) {
		req := createRequest()
		req.WorkflowType = "round_robin"
		_, err := o.CreateWorkflow(context.Background(), req, token)
		var oErr *core.OrchestratorError
		require.ErrorAs(t, err, &oErr)
	})

	t.Run("no agents", func(t *testing.T) {
		req := createRequest()
		req.Agents = nil
		_, err := o.CreateWorkflow(context.Background(), req, token)
		var oErr *core.OrchestratorError
		require.ErrorAs(t, err, &oErr)
	})

	t.Run("duplicate agent id", func(t *testing.T) {
		req := createRequest()
		req.Agents[1].AgentID = req.Agents[0].AgentID
		_, err := o.CreateWorkflow(context.Background(), req, token)
		var oErr *core.OrchestratorError
		require.ErrorAs(t, err, &oErr)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("unhandled agent type", func(t *testing.T) {
		req := createRequest()
		req.Agents[0].AgentType = "quantum_agent"
		_, err := o.CreateWorkflow(context.Background(), req, token)
		var oErr *core.OrchestratorError
		require.ErrorAs(t, err, &oErr)
		assert.Contains(t, err.Error(), "quantum_agent")
	})

	t.Run("uncovered agent capability", func(t *testing.T) {
		narrow := testutil.SignToken(t, "carol", "tenant-a",
			core.Capability{Resource: "workflows", Actions: []string{"create"}})
		_, err := o.CreateWorkflow(context.Background(), createRequest(), narrow)
		var authErr *core.AuthorizationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "data.process", authErr.Resource)
	})
}

func TestExecuteWorkflowEndToEnd(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	token := testutil.SignToken(t, "alice", "tenant-a")

	id, err := o.CreateWorkflow(context.Background(), createRequest(), token)
	require.NoError(t, err)

	result, err := o.ExecuteWorkflow(context.Background(), id, map[string]any{"text": "hello flow mesh"}, token)
	require.NoError(t, err)

	require.Len(t, result.AgentResults, 2)
	assert.Equal(t, core.ResultCompleted, result.AgentResults["upper"].Status)
	assert.Equal(t, core.ResultCompleted, result.AgentResults["counter"].Status)
	assert.Equal(t, 3, result.FinalOutput["word_count"])
	assert.Equal(t, "HELLO FLOW MESH", result.FinalOutput["text"], "uppercase output forwarded into the counter")

	status, err := o.WorkflowStatus(context.Background(), id, token)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, status.Workflow.Status)
	require.NotNil(t, status.Workflow.StartedAt)
	require.NotNil(t, status.Workflow.CompletedAt)
	require.NotNil(t, status.Workflow.Results)

	require.Len(t, status.AgentStates, 2)
	for id, st := range status.AgentStates {
		assert.Equal(t, core.StatusCompleted, st.Status, id)
		assert.Equal(t, 1, st.Invocations, id)
	}
}

func TestExecuteWorkflowNotFound(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	token := testutil.SignToken(t, "alice", "tenant-a")

	_, err := o.ExecuteWorkflow(context.Background(), "wf_missing", nil, token)
	assert.ErrorIs(t, err, core.ErrWorkflowNotFound)
}

func TestExecuteWorkflowTenantIsolation(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	owner := testutil.SignToken(t, "alice", "tenant-a")
	intruder := testutil.SignToken(t, "mallory", "tenant-b")

	id, err := o.CreateWorkflow(context.Background(), createRequest(), owner)
	require.NoError(t, err)

	_, err = o.ExecuteWorkflow(context.Background(), id, nil, intruder)
	var authErr *core.AuthorizationError
	require.ErrorAs(t, err, &authErr)

	_, err = o.WorkflowStatus(context.Background(), id, intruder)
	require.ErrorAs(t, err, &authErr)

	err = o.CancelWorkflow(context.Background(), id, intruder)
	require.ErrorAs(t, err, &authErr)

	// The cross-tenant attempts left the workflow untouched.
	status, err := o.WorkflowStatus(context.Background(), id, owner)
	require.NoError(t, err)
	assert.Equal(t, core.StatusIdle, status.Workflow.Status)
}

func TestExecuteWorkflowRejectsNonIdle(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	token := testutil.SignToken(t, "alice", "tenant-a")

	id, err := o.CreateWorkflow(context.Background(), createRequest(), token)
	require.NoError(t, err)

	_, err = o.ExecuteWorkflow(context.Background(), id, map[string]any{"text": "x"}, token)
	require.NoError(t, err)

	_, err = o.ExecuteWorkflow(context.Background(), id, map[string]any{"text": "x"}, token)
	var oErr *core.OrchestratorError
	require.ErrorAs(t, err, &oErr)
	assert.Contains(t, err.Error(), "idle")
}

func TestExecuteWorkflowMissingExecuteGrant(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	full := testutil.SignToken(t, "alice", "tenant-a")
	createOnly := testutil.SignToken(t, "alice", "tenant-a",
		core.Capability{Resource: "workflows", Actions: []string{"create"}},
		core.Capability{Resource: "data", Actions: []string{"process"}})

	id, err := o.CreateWorkflow(context.Background(), createRequest(), createOnly)
	require.NoError(t, err)

	_, err = o.ExecuteWorkflow(context.Background(), id, nil, createOnly)
	var authErr *core.AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "execute", authErr.Action)

	// The grant check happens before any mutation.
	status, err := o.WorkflowStatus(context.Background(), id, full)
	require.NoError(t, err)
	assert.Equal(t, core.StatusIdle, status.Workflow.Status)
}

func TestCancelWorkflow(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	token := testutil.SignToken(t, "alice", "tenant-a")

	id, err := o.CreateWorkflow(context.Background(), createRequest(), token)
	require.NoError(t, err)

	require.NoError(t, o.CancelWorkflow(context.Background(), id, token))

	status, err := o.WorkflowStatus(context.Background(), id, token)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCancelled, status.Workflow.Status)
	require.NotNil(t, status.Workflow.CompletedAt)

	// Terminal workflows cannot be cancelled again or executed.
	var oErr *core.OrchestratorError
	require.ErrorAs(t, o.CancelWorkflow(context.Background(), id, token), &oErr)

	_, err = o.ExecuteWorkflow(context.Background(), id, nil, token)
	require.ErrorAs(t, err, &oErr)
}

func TestCancelWorkflowMidRun(t *testing.T) {
	var once sync.Once
	started := make(chan struct{})
	release := make(chan struct{})

	stub := &testutil.StubExecutor{
		Handle: func(def core.AgentDefinition, _ map[string]any) core.AgentResult {
			once.Do(func() { close(started) })
			<-release
			return core.CompletedResult(map[string]any{"late": def.AgentID}, 0)
		},
	}

	o := newTestOrchestrator(t, stub)
	token := testutil.SignToken(t, "alice", "tenant-a")

	req := createRequest()
	id, err := o.CreateWorkflow(context.Background(), req, token)
	require.NoError(t, err)

	type execResult struct {
		result *core.WorkflowResult
		err    error
	}
	done := make(chan execResult, 1)
	go func() {
		res, err := o.ExecuteWorkflow(context.Background(), id, map[string]any{"text": "x"}, token)
		done <- execResult{res, err}
	}()

	<-started
	require.NoError(t, o.CancelWorkflow(context.Background(), id, token))
	close(release)

	out := <-done
	require.NoError(t, out.err)
	require.NotNil(t, out.result)

	// The externally visible status stays cancelled even though the
	// in-flight agent completed afterwards and its result was recorded.
	status, err := o.WorkflowStatus(context.Background(), id, token)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCancelled, status.Workflow.Status)
	require.NotNil(t, status.Workflow.Results)

	st, ok := status.AgentStates["upper"]
	require.True(t, ok)
	assert.Equal(t, core.StatusCancelled, st.Status)
	assert.Equal(t, map[string]any{"late": "upper"}, st.OutputData, "late output recorded without resurrecting the state")
}

func TestExecuteWorkflowRunnerErrorFailsWorkflow(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	token := testutil.SignToken(t, "alice", "tenant-a")

	req := createRequest()
	req.WorkflowType = core.WorkflowConditional
	req.Config = map[string]any{"conditions": "not a map"}

	id, err := o.CreateWorkflow(context.Background(), req, token)
	require.NoError(t, err)

	_, err = o.ExecuteWorkflow(context.Background(), id, nil, token)
	var oErr *core.OrchestratorError
	require.ErrorAs(t, err, &oErr)

	status, err := o.WorkflowStatus(context.Background(), id, token)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, status.Workflow.Status)
	assert.NotEmpty(t, status.Workflow.ErrorMessage)
	require.NotNil(t, status.Workflow.CompletedAt)
}

// hookedStore runs a callback before delegating each save, letting tests
// interleave another orchestrator call into the window between a run
// finishing and its outcome being stored.
type hookedStore struct {
	*workflow.InMemoryStore
	beforeSave func(wf *core.WorkflowExecution)
}

func (s *hookedStore) Save(wf *core.WorkflowExecution) error {
	if s.beforeSave != nil {
		s.beforeSave(wf)
	}
	return s.InMemoryStore.Save(wf)
}

func TestCancelDuringCompletionSaveKeepsCancelled(t *testing.T) {
	store := &hookedStore{InMemoryStore: workflow.NewInMemoryStore()}

	e := executor.New(memory.NewManager())
	e.RegisterHandler("data_processor", executor.NewDataProcessorHandler())

	o := orchestrator.New(e, capability.NewGate(testutil.Codec()), func(opts *orchestrator.Options) {
		opts.Store = store
	})
	token := testutil.SignToken(t, "alice", "tenant-a")

	id, err := o.CreateWorkflow(context.Background(), createRequest(), token)
	require.NoError(t, err)

	// Land a cancel after the run produced its results but before the
	// completed status is written.
	var once sync.Once
	store.beforeSave = func(wf *core.WorkflowExecution) {
		if wf.Status != core.StatusCompleted {
			return
		}
		once.Do(func() {
			require.NoError(t, o.CancelWorkflow(context.Background(), id, token))
		})
	}

	result, err := o.ExecuteWorkflow(context.Background(), id, map[string]any{"text": "hello flow mesh"}, token)
	require.NoError(t, err)
	require.NotNil(t, result)

	// The cancel won: the workflow stays cancelled and the late results are
	// attached to the cancelled record.
	status, err := o.WorkflowStatus(context.Background(), id, token)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCancelled, status.Workflow.Status)
	require.NotNil(t, status.Workflow.Results)
	assert.Equal(t, 3, status.Workflow.Results.FinalOutput["word_count"])
}

func TestCancelledRunnerErrorStillReturnsError(t *testing.T) {
	store := &hookedStore{InMemoryStore: workflow.NewInMemoryStore()}

	e := executor.New(memory.NewManager())
	e.RegisterHandler("data_processor", executor.NewDataProcessorHandler())

	o := orchestrator.New(e, capability.NewGate(testutil.Codec()), func(opts *orchestrator.Options) {
		opts.Store = store
	})
	token := testutil.SignToken(t, "alice", "tenant-a")

	req := createRequest()
	req.WorkflowType = core.WorkflowConditional
	req.Config = map[string]any{"conditions": "not a map"}

	id, err := o.CreateWorkflow(context.Background(), req, token)
	require.NoError(t, err)

	var once sync.Once
	store.beforeSave = func(wf *core.WorkflowExecution) {
		if wf.Status != core.StatusFailed {
			return
		}
		once.Do(func() {
			require.NoError(t, o.CancelWorkflow(context.Background(), id, token))
		})
	}

	// The runner error reaches the caller even though the concurrent cancel
	// decided the stored status.
	_, err = o.ExecuteWorkflow(context.Background(), id, nil, token)
	var oErr *core.OrchestratorError
	require.ErrorAs(t, err, &oErr)

	status, err := o.WorkflowStatus(context.Background(), id, token)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCancelled, status.Workflow.Status)
}

func TestWorkflowStatusNotFound(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	token := testutil.SignToken(t, "alice", "tenant-a")

	_, err := o.WorkflowStatus(context.Background(), "wf_missing", token)
	assert.ErrorIs(t, err, core.ErrWorkflowNotFound)
}
