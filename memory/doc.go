// Package memory contains the in-process MemoryManager implementation plus a
// small substring-search document index used by retrieval agents. The
// MemoryManager contract and MemoryEntry type reside in the core package;
// depend on core.MemoryManager in your code and select an implementation at
// wiring time.
//
// Expiry is lazy: an entry whose time-to-live has elapsed is treated as
// absent and removed on its next access. A background sweeper can be started
// for memory hygiene but is not required for correctness.
package memory
