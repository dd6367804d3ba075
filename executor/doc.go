// Package executor runs single agent steps behind one uniform call. A
// handler registry maps agent type names to implementations; the registry is
// consulted at workflow creation so unknown types fail fast rather than at
// execution time. The executor bounds every call to the definition's timeout,
// retries up to the definition's retry budget and converts any failure
// (including timeouts) into the same failed result envelope.
//
// Built-in handlers cover the five catalogue types: data_processor,
// llm_agent, embedding_agent, retrieval_agent and integration_agent.
// A "_mapper" or "_reducer" suffixed type dispatches to its base type's
// handler.
package executor
