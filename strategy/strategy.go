package strategy

import (
	"context"

	"github.com/flowmesh/flowmesh/core"
)

// Runner executes all agents of one workflow under a specific strategy,
// producing the aggregated result. Implementations record individual agent
// failures inside the result and return an error only for failures of the
// strategy machinery itself (for example malformed configuration), which the
// orchestrator treats as fatal for the whole run.
type Runner interface {
	// Type names the workflow type this runner serves.
	Type() core.WorkflowType

	Run(ctx context.Context, ec *core.ExecContext, input map[string]any) (*core.WorkflowResult, error)
}

// DefaultRunners returns one runner per built-in workflow type.
func DefaultRunners() []Runner {
	return []Runner{
		NewSequentialRunner(),
		NewParallelRunner(),
		NewConditionalRunner(),
		NewPipelineRunner(),
		NewMapReduceRunner(),
	}
}
