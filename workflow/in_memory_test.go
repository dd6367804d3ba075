package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/core"
)

func sampleWorkflow() *core.WorkflowExecution {
	return &core.WorkflowExecution{
		WorkflowID:   "wf_1",
		WorkflowType: core.WorkflowSequential,
		TenantID:     "tenant-a",
		Agents: []core.AgentDefinition{
			{AgentID: "a", AgentType: "data_processor"},
		},
		Status: core.StatusIdle,
	}
}

func TestInMemoryStoreCreateGet(t *testing.T) {
	store := NewInMemoryStore()

	require.NoError(t, store.Create(sampleWorkflow()))

	wf, err := store.Get("wf_1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusIdle, wf.Status)

	_, err = store.Get("wf_missing")
	assert.ErrorIs(t, err, core.ErrWorkflowNotFound)
}

func TestInMemoryStoreGetReturnsIsolatedCopy(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.Create(sampleWorkflow()))

	first, err := store.Get("wf_1")
	require.NoError(t, err)
	first.Status = core.StatusFailed
	first.Agents[0].AgentID = "mutated"

	second, err := store.Get("wf_1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusIdle, second.Status)
	assert.Equal(t, "a", second.Agents[0].AgentID)
}

func TestInMemoryStoreSave(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.Create(sampleWorkflow()))

	wf, err := store.Get("wf_1")
	require.NoError(t, err)
	wf.Status = core.StatusRunning
	require.NoError(t, store.Save(wf))

	saved, err := store.Get("wf_1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusRunning, saved.Status)

	assert.ErrorIs(t, store.Save(&core.WorkflowExecution{WorkflowID: "wf_missing"}), core.ErrWorkflowNotFound)
}

func TestInMemoryStoreSaveKeepsTerminalStatus(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.Create(sampleWorkflow()))

	wf, err := store.Get("wf_1")
	require.NoError(t, err)
	wf.Status = core.StatusCancelled
	require.NoError(t, store.Save(wf))

	// A stale snapshot cannot move the record out of its terminal status.
	stale, err := store.Get("wf_1")
	require.NoError(t, err)
	stale.Status = core.StatusCompleted
	assert.ErrorIs(t, store.Save(stale), core.ErrWorkflowTerminal)

	saved, err := store.Get("wf_1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCancelled, saved.Status)

	// Re-saving with the same terminal status is allowed, for example to
	// attach results produced after the cancel.
	saved.Results = &core.WorkflowResult{FinalOutput: map[string]any{"late": true}}
	require.NoError(t, store.Save(saved))

	again, err := store.Get("wf_1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCancelled, again.Status)
	require.NotNil(t, again.Results)
}

func TestInMemoryStateStoreSetGetUpdate(t *testing.T) {
	store := NewInMemoryStateStore()

	store.Set("wf_1", &core.AgentState{AgentID: "a", Status: core.StatusRunning})

	st, ok := store.Get("wf_1", "a")
	require.True(t, ok)
	assert.Equal(t, core.StatusRunning, st.Status)

	store.Update("wf_1", "a", func(s *core.AgentState) {
		s.Status = core.StatusCompleted
		s.Invocations++
	})

	st, ok = store.Get("wf_1", "a")
	require.True(t, ok)
	assert.Equal(t, core.StatusCompleted, st.Status)
	assert.Equal(t, 1, st.Invocations)

	// Updating an unknown state is a no-op, not a panic.
	store.Update("wf_1", "missing", func(s *core.AgentState) { s.Invocations++ })
	_, ok = store.Get("wf_1", "missing")
	assert.False(t, ok)
}

func TestInMemoryStateStoreAllScopedToWorkflow(t *testing.T) {
	store := NewInMemoryStateStore()

	store.Set("wf_1", &core.AgentState{AgentID: "a"})
	store.Set("wf_1", &core.AgentState{AgentID: "b"})
	store.Set("wf_2", &core.AgentState{AgentID: "c"})

	all := store.All("wf_1")
	assert.Len(t, all, 2)
	assert.Contains(t, all, "a")
	assert.Contains(t, all, "b")

	store.Drop("wf_1")
	assert.Empty(t, store.All("wf_1"))
	assert.Len(t, store.All("wf_2"), 1)
}

func TestInMemoryStateStoreGetReturnsClone(t *testing.T) {
	store := NewInMemoryStateStore()
	store.Set("wf_1", &core.AgentState{AgentID: "a", OutputData: map[string]any{"k": "v"}})

	st, ok := store.Get("wf_1", "a")
	require.True(t, ok)
	st.OutputData["k"] = "mutated"

	again, _ := store.Get("wf_1", "a")
	assert.Equal(t, "v", again.OutputData["k"])
}
