package strategy

import (
	"context"

	"github.com/flowmesh/flowmesh/core"
)

// SequentialRunner executes agents in list order with output forwarding.
//
// Each agent receives the current data: initially the workflow input, then
// the output of the last agent that produced one. Individual agent failures
// are recorded and execution continues to the next agent regardless; this
// strategy never short-circuits. The final output is the last produced
// output, or the original input if no agent produced one.
type SequentialRunner struct{}

// NewSequentialRunner creates the sequential strategy runner.
func NewSequentialRunner() *SequentialRunner {
	return &SequentialRunner{}
}

// Type implements Runner.
func (r *SequentialRunner) Type() core.WorkflowType { return core.WorkflowSequential }

// Run implements Runner.
func (r *SequentialRunner) Run(ctx context.Context, ec *core.ExecContext, input map[string]any) (*core.WorkflowResult, error) {
	results := make(map[string]core.AgentResult, len(ec.Workflow.Agents))
	current := input

	for _, def := range ec.Workflow.Agents {
		res := ec.RunAgent(ctx, def, current)
		results[def.AgentID] = res
		if res.Status == core.ResultCompleted && res.Output != nil {
			current = res.Output
		}
	}

	return &core.WorkflowResult{
		WorkflowType: core.WorkflowSequential,
		FinalOutput:  current,
		AgentResults: results,
	}, nil
}
