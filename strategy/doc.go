// Package strategy contains the execution strategy runners coordinating a
// workflow's agents. The package focuses on three concerns:
//
//  1. A common Runner contract dispatched by the orchestrator
//  2. Concrete coordination patterns (sequential, parallel, conditional,
//     pipeline, map-reduce)
//  3. Per-agent failure isolation: an agent failure becomes a recorded
//     result entry, never a runner error, except where the pipeline strategy
//     uses it as a stop signal
//
// Execution model:
//   - A runner's Run receives the workflow context plus a *core.ExecContext
//   - RunAgent on the context performs the actual executor call and state
//     bookkeeping
//   - A runner error (malformed configuration) is orchestrator-fatal and
//     flips the workflow to failed
//
// Ordering guarantees follow the strategy: sequential, conditional and
// pipeline never start agent k+1 before agent k's call returns; parallel and
// the map phase of map-reduce only guarantee the join point.
package strategy
