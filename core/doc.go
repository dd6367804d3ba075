// Package core provides the foundational domain types, interfaces and the
// execution context used by FlowMesh. It defines the core abstractions for:
//
//   - Agent definitions (immutable step specifications inside a workflow)
//   - Workflow executions (tenant-owned records with a status lifecycle)
//   - Result envelopes (per-agent and per-workflow outcome shapes)
//   - Capability tokens (resource/action grants consumed for authorization)
//   - Pluggable stores for workflow records, run-time agent state and memory
//
// The package intentionally keeps implementation concerns (strategy runners,
// agent handlers, persistence) out of scope, exposing small interfaces to
// enable custom backends and extensions. All exported identifiers include
// concise documentation to aid discoverability and external consumption.
package core
