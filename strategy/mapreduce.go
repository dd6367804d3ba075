package strategy

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/flowmesh/flowmesh/core"
)

// MapReduceRunner partitions agents into mappers (agent_type ending in
// "_mapper") and reducers (ending in "_reducer"), fans every mapper out
// across every input chunk concurrently, then runs each reducer once,
// sequentially, over the collected map results.
//
// Map task keys follow "{agent_id}_chunk_{i}". Mapper failures are captured
// per task; the reduce phase starts only after every map task has settled.
type MapReduceRunner struct {
	maxConcurrency int
}

// MapReduceOptions configure the map phase fan-out.
type MapReduceOptions struct {
	// MaxConcurrency bounds the number of concurrently running map tasks.
	MaxConcurrency int
}

// NewMapReduceRunner creates the map-reduce strategy runner.
func NewMapReduceRunner(optFns ...func(o *MapReduceOptions)) *MapReduceRunner {
	opts := MapReduceOptions{MaxConcurrency: 8}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &MapReduceRunner{maxConcurrency: opts.MaxConcurrency}
}

// Type implements Runner.
func (r *MapReduceRunner) Type() core.WorkflowType { return core.WorkflowMapReduce }

// Run implements Runner.
func (r *MapReduceRunner) Run(ctx context.Context, ec *core.ExecContext, input map[string]any) (*core.WorkflowResult, error) {
	mappers, reducers := partition(ec.Workflow.Agents)
	chunks := chunkInputs(input)

	var (
		mu         sync.Mutex
		mapResults = make(map[string]core.AgentResult, len(chunks)*len(mappers))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrency)

	for i, chunk := range chunks {
		for _, def := range mappers {
			key := fmt.Sprintf("%s_chunk_%d", def.AgentID, i)
			g.Go(func() error {
				res := ec.RunAgent(gctx, def, chunk)
				mu.Lock()
				mapResults[key] = res
				mu.Unlock()
				// Mapper failures are recorded per task, never propagated.
				return nil
			})
		}
	}
	_ = g.Wait()

	reduceInput := map[string]any{"map_results": mapResults}
	reduceResults := make(map[string]core.AgentResult, len(reducers))
	for _, def := range reducers {
		reduceResults[def.AgentID] = ec.RunAgent(ctx, def, reduceInput)
	}

	return &core.WorkflowResult{
		WorkflowType:  core.WorkflowMapReduce,
		MapResults:    mapResults,
		ReduceResults: reduceResults,
	}, nil
}

// partition splits the workflow's agents into mappers and reducers by their
// agent_type suffix. Agents with neither suffix take no part in the run.
func partition(agents []core.AgentDefinition) (mappers, reducers []core.AgentDefinition) {
	for _, def := range agents {
		switch {
		case strings.HasSuffix(def.AgentType, "_mapper"):
			mappers = append(mappers, def)
		case strings.HasSuffix(def.AgentType, "_reducer"):
			reducers = append(reducers, def)
		}
	}
	return mappers, reducers
}

// chunkInputs derives the per-mapper inputs from the workflow input: each
// element of input["chunks"] becomes one chunk (wrapped when it is not
// already a map), or the whole input is a single chunk when absent.
func chunkInputs(input map[string]any) []map[string]any {
	raw, ok := input["chunks"].([]any)
	if !ok || len(raw) == 0 {
		return []map[string]any{input}
	}
	chunks := make([]map[string]any, len(raw))
	for i, v := range raw {
		if m, ok := v.(map[string]any); ok {
			chunks[i] = m
			continue
		}
		chunks[i] = map[string]any{"chunk": v, "chunk_index": i}
	}
	return chunks
}
