package strategy

import (
	"context"

	"github.com/flowmesh/flowmesh/core"
)

// Stage annotation keys merged into every forwarded pipeline input.
const (
	// PipelineStageKey carries the 0-based stage index.
	PipelineStageKey = "_pipeline_stage"
	// PipelineTotalKey carries the total stage count.
	PipelineTotalKey = "_pipeline_total"
)

// PipelineRunner executes agents in order like the sequential strategy but
// annotates each stage's input with its position, and treats a stage failure
// as a stop signal: the failure is recorded and no subsequent agent is
// invoked. Callers detect the truncation by comparing the result count with
// the agent count.
type PipelineRunner struct{}

// NewPipelineRunner creates the pipeline strategy runner.
func NewPipelineRunner() *PipelineRunner {
	return &PipelineRunner{}
}

// Type implements Runner.
func (r *PipelineRunner) Type() core.WorkflowType { return core.WorkflowPipeline }

// Run implements Runner.
func (r *PipelineRunner) Run(ctx context.Context, ec *core.ExecContext, input map[string]any) (*core.WorkflowResult, error) {
	agents := ec.Workflow.Agents
	results := make(map[string]core.AgentResult, len(agents))
	current := input

	for i, def := range agents {
		staged := make(map[string]any, len(current)+2)
		for k, v := range current {
			staged[k] = v
		}
		staged[PipelineStageKey] = i
		staged[PipelineTotalKey] = len(agents)

		res := ec.RunAgent(ctx, def, staged)
		results[def.AgentID] = res

		if res.Status == core.ResultFailed {
			ec.Logger.Warn("pipeline halted by stage failure",
				"workflow_id", ec.Workflow.WorkflowID,
				"agent_id", def.AgentID,
				"stage", i)
			break
		}
		if res.Output != nil {
			current = res.Output
		}
	}

	return &core.WorkflowResult{
		WorkflowType: core.WorkflowPipeline,
		FinalOutput:  current,
		AgentResults: results,
	}, nil
}
