package strategy

import (
	"context"
	"sync"

	"github.com/flowmesh/flowmesh/core"
)

// ParallelRunner launches every agent concurrently against the same input.
//
// There is no data forwarding between agents; each result is collected
// independently and a failing agent does not affect its siblings. Run
// returns only once every launched agent has settled, succeeded or failed
// (a fan-out/join barrier).
type ParallelRunner struct{}

// NewParallelRunner creates the parallel strategy runner.
func NewParallelRunner() *ParallelRunner {
	return &ParallelRunner{}
}

// Type implements Runner.
func (r *ParallelRunner) Type() core.WorkflowType { return core.WorkflowParallel }

// Run implements Runner.
func (r *ParallelRunner) Run(ctx context.Context, ec *core.ExecContext, input map[string]any) (*core.WorkflowResult, error) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]core.AgentResult, len(ec.Workflow.Agents))
	)

	for _, def := range ec.Workflow.Agents {
		wg.Add(1)
		go func(def core.AgentDefinition) {
			defer wg.Done()
			res := ec.RunAgent(ctx, def, input)
			mu.Lock()
			results[def.AgentID] = res
			mu.Unlock()
		}(def)
	}

	wg.Wait()

	return &core.WorkflowResult{
		WorkflowType: core.WorkflowParallel,
		AgentResults: results,
	}, nil
}
