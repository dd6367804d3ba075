package core

// ResultStatus is the outcome classification of a single agent call.
type ResultStatus string

const (
	// ResultCompleted indicates the agent produced an output.
	ResultCompleted ResultStatus = "completed"
	// ResultFailed indicates the agent call failed (timeout, provider error,
	// invalid input). Failures are recorded inside the results map, they do
	// not abort the workflow except under the pipeline strategy.
	ResultFailed ResultStatus = "failed"
	// ResultSkipped indicates a conditional predicate evaluated false and the
	// agent was never invoked.
	ResultSkipped ResultStatus = "skipped"
)

// AgentResult is the uniform envelope returned for every agent call. Every
// agent_id that was scheduled to run ends up with exactly one AgentResult in
// the results map; agents never reached (pipeline short-circuit) are absent.
type AgentResult struct {
	Status ResultStatus `json:"status"`
	// Output is the data produced by a completed agent. Under forwarding
	// strategies it becomes the next agent's input.
	Output map[string]any `json:"output,omitempty"`
	Error  string         `json:"error,omitempty"`
	// ProcessingTime is the wall-clock duration of the call in seconds.
	ProcessingTime float64 `json:"processing_time"`
}

// CompletedResult builds a successful envelope.
func CompletedResult(output map[string]any, seconds float64) AgentResult {
	return AgentResult{Status: ResultCompleted, Output: output, ProcessingTime: seconds}
}

// FailedResult builds a failure envelope from an error.
func FailedResult(err error, seconds float64) AgentResult {
	return AgentResult{Status: ResultFailed, Error: err.Error(), ProcessingTime: seconds}
}

// SkippedResult builds the envelope recorded for agents gated off by a
// conditional predicate.
func SkippedResult() AgentResult {
	return AgentResult{Status: ResultSkipped}
}

// WorkflowResult is the aggregated outcome of one workflow execution. The
// populated fields depend on the strategy: forwarding strategies fill
// FinalOutput and AgentResults, map-reduce fills MapResults and ReduceResults.
type WorkflowResult struct {
	WorkflowType  WorkflowType           `json:"workflow_type"`
	FinalOutput   map[string]any         `json:"final_output,omitempty"`
	AgentResults  map[string]AgentResult `json:"agent_results,omitempty"`
	MapResults    map[string]AgentResult `json:"map_results,omitempty"`
	ReduceResults map[string]AgentResult `json:"reduce_results,omitempty"`
}
