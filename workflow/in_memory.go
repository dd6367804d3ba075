// Package workflow contains in-memory implementations of the workflow and
// agent-state stores. The store contracts live in the core package; both
// implementations here are volatile and process-local, best suited to tests
// and single-instance deployments. Swap in a durable backend for
// multi-instance setups.
package workflow

import (
	"fmt"
	"sync"

	"github.com/flowmesh/flowmesh/core"
)

// InMemoryStore is a volatile core.WorkflowStore keeping workflow records in
// a process-local map. It is safe for concurrent access; each returned record
// is cloned to prevent external mutation of internal state.
type InMemoryStore struct {
	mu        sync.RWMutex
	workflows map[string]*core.WorkflowExecution
}

// NewInMemoryStore constructs an empty in-memory workflow store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{workflows: make(map[string]*core.WorkflowExecution)}
}

// Create stores a clone of a new workflow record.
func (s *InMemoryStore) Create(wf *core.WorkflowExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[wf.WorkflowID] = wf.Clone()
	return nil
}

// Get returns a clone of the stored record or core.ErrWorkflowNotFound.
func (s *InMemoryStore) Get(workflowID string) (*core.WorkflowExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[workflowID]
	if !ok {
		return nil, core.ErrWorkflowNotFound
	}
	return wf.Clone(), nil
}

// Save stores a clone of the provided record snapshot, replacing the
// previous one. A record already in a terminal status accepts only saves that
// keep that status; attempts to change it fail with core.ErrWorkflowTerminal.
func (s *InMemoryStore) Save(wf *core.WorkflowExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.workflows[wf.WorkflowID]
	if !ok {
		return core.ErrWorkflowNotFound
	}
	if prev.Status.Terminal() && wf.Status != prev.Status {
		return fmt.Errorf("workflow %s is %s: %w", wf.WorkflowID, prev.Status, core.ErrWorkflowTerminal)
	}
	s.workflows[wf.WorkflowID] = wf.Clone()
	return nil
}

var _ core.WorkflowStore = (*InMemoryStore)(nil)

// InMemoryStateStore is a volatile core.StateStore keyed by workflow id then
// agent id. It is safe for concurrent access by agents of the same workflow
// running in parallel.
type InMemoryStateStore struct {
	mu     sync.RWMutex
	states map[string]map[string]*core.AgentState
}

// NewInMemoryStateStore constructs an empty state store.
func NewInMemoryStateStore() *InMemoryStateStore {
	return &InMemoryStateStore{states: make(map[string]map[string]*core.AgentState)}
}

// Set stores a clone of the agent state for the workflow.
func (s *InMemoryStateStore) Set(workflowID string, state *core.AgentState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[workflowID]; !ok {
		s.states[workflowID] = make(map[string]*core.AgentState)
	}
	s.states[workflowID][state.AgentID] = state.Clone()
}

// Update applies fn to the stored state under the lock. Missing states are a
// no-op.
func (s *InMemoryStateStore) Update(workflowID, agentID string, fn func(*core.AgentState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[workflowID][agentID]; ok {
		fn(st)
	}
}

// Get returns a clone of one agent's state.
func (s *InMemoryStateStore) Get(workflowID, agentID string) (*core.AgentState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[workflowID][agentID]
	if !ok {
		return nil, false
	}
	return st.Clone(), true
}

// All returns clones of every agent state recorded for the workflow.
func (s *InMemoryStateStore) All(workflowID string) map[string]*core.AgentState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]*core.AgentState, len(s.states[workflowID]))
	for agentID, st := range s.states[workflowID] {
		result[agentID] = st.Clone()
	}
	return result
}

// Drop removes all state recorded for the workflow.
func (s *InMemoryStateStore) Drop(workflowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, workflowID)
}

var _ core.StateStore = (*InMemoryStateStore)(nil)
