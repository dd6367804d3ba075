package strategy

import (
	"context"
	"fmt"
	"reflect"

	"github.com/flowmesh/flowmesh/core"
)

// ConditionType names a recognized predicate kind. The set is closed;
// configurations carrying other kinds still execute the agent (fail open)
// with a warning logged.
type ConditionType string

const (
	// ConditionAlways executes the agent unconditionally (the default when
	// no condition is configured).
	ConditionAlways ConditionType = "always"
	// ConditionNever skips the agent unconditionally.
	ConditionNever ConditionType = "never"
	// ConditionInputContains executes when an input field equals a value.
	ConditionInputContains ConditionType = "input_contains"
	// ConditionPreviousSuccess executes when the preceding agent completed.
	ConditionPreviousSuccess ConditionType = "previous_success"
	// ConditionPreviousFailure executes when the preceding agent failed.
	ConditionPreviousFailure ConditionType = "previous_failure"
)

// Condition is the typed predicate configured per agent under
// workflow_config["conditions"].
type Condition struct {
	Type  ConditionType `json:"type"`
	Field string        `json:"field,omitempty"`
	Value any           `json:"value,omitempty"`
}

// ConditionalRunner executes agents in order, gating each behind its
// configured predicate. A false predicate records {status: skipped} without
// invoking the agent; an executed agent behaves exactly as in the sequential
// strategy (failures recorded, loop never aborted). Predicate evaluation for
// agent k only ever sees results from agents 1..k-1.
type ConditionalRunner struct{}

// NewConditionalRunner creates the conditional strategy runner.
func NewConditionalRunner() *ConditionalRunner {
	return &ConditionalRunner{}
}

// Type implements Runner.
func (r *ConditionalRunner) Type() core.WorkflowType { return core.WorkflowConditional }

// Run implements Runner.
func (r *ConditionalRunner) Run(ctx context.Context, ec *core.ExecContext, input map[string]any) (*core.WorkflowResult, error) {
	conditions, err := parseConditions(ec.Workflow.Config)
	if err != nil {
		return nil, err
	}

	agents := ec.Workflow.Agents
	results := make(map[string]core.AgentResult, len(agents))

	for i, def := range agents {
		cond := Condition{Type: ConditionAlways}
		if c, ok := conditions[def.AgentID]; ok {
			cond = c
		}

		prevID := ""
		if i > 0 {
			prevID = agents[i-1].AgentID
		}

		if !r.evaluate(ec, cond, input, results, prevID) {
			results[def.AgentID] = core.SkippedResult()
			ec.Logger.Debug("agent skipped by condition",
				"workflow_id", ec.Workflow.WorkflowID,
				"agent_id", def.AgentID,
				"condition", string(cond.Type))
			continue
		}

		results[def.AgentID] = ec.RunAgent(ctx, def, input)
	}

	return &core.WorkflowResult{
		WorkflowType: core.WorkflowConditional,
		AgentResults: results,
	}, nil
}

// evaluate applies the predicate against the workflow input and the results
// collected so far. Unknown predicate kinds execute the agent.
func (r *ConditionalRunner) evaluate(ec *core.ExecContext, cond Condition, input map[string]any, results map[string]core.AgentResult, prevID string) bool {
	switch cond.Type {
	case ConditionAlways:
		return true
	case ConditionNever:
		return false
	case ConditionInputContains:
		v, ok := input[cond.Field]
		return ok && reflect.DeepEqual(v, cond.Value)
	case ConditionPreviousSuccess:
		prev, ok := results[prevID]
		return ok && prev.Status == core.ResultCompleted
	case ConditionPreviousFailure:
		prev, ok := results[prevID]
		return ok && prev.Status == core.ResultFailed
	default:
		ec.Logger.Warn("unknown condition kind, executing agent",
			"workflow_id", ec.Workflow.WorkflowID,
			"condition", string(cond.Type))
		return true
	}
}

// parseConditions extracts the typed condition map from the opaque workflow
// configuration. A malformed conditions block is an orchestrator-fatal error.
func parseConditions(cfg map[string]any) (map[string]Condition, error) {
	raw, ok := cfg["conditions"]
	if !ok {
		return map[string]Condition{}, nil
	}

	block, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("workflow_config conditions must be a map, got %T", raw)
	}

	conditions := make(map[string]Condition, len(block))
	for agentID, v := range block {
		entry, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("condition for agent %q must be a map, got %T", agentID, v)
		}
		cond := Condition{Type: ConditionAlways}
		if t, ok := entry["type"].(string); ok {
			cond.Type = ConditionType(t)
		}
		if f, ok := entry["field"].(string); ok {
			cond.Field = f
		}
		cond.Value = entry["value"]
		conditions[agentID] = cond
	}
	return conditions, nil
}
