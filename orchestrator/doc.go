// Package orchestrator is the public entry point of FlowMesh. The
// Orchestrator validates and stores workflow definitions, dispatches
// execution to the strategy runner matching the workflow type, tracks the
// workflow and agent-state lifecycle and answers status and cancel queries.
// Every operation authenticates a capability token and enforces tenant
// isolation before touching state.
package orchestrator
