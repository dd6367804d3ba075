// Package registry holds the static catalogue of built-in agent types with
// their declared capability requirements and memory/time budgets. The
// catalogue is used for validation and defaulting at workflow creation, not
// for execution dispatch.
package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/flowmesh/flowmesh/core"
)

// Built-in agent type names. Custom types are allowed as long as the
// executor has a handler for them; mapper/reducer variants of a known type
// use the "_mapper" / "_reducer" suffix.
const (
	TypeDataProcessor = "data_processor"
	TypeLLMAgent      = "llm_agent"
	TypeEmbedding     = "embedding_agent"
	TypeRetrieval     = "retrieval_agent"
	TypeIntegration   = "integration_agent"
)

// TypeSpec describes one agent type: the capabilities its instances require
// and the budgets applied when a definition leaves them unset.
type TypeSpec struct {
	Type                 string
	Description          string
	RequiredCapabilities []string
	DefaultTimeout       time.Duration
	DefaultRetryCount    int
	DefaultMemoryLimitMB int
}

// Registry is the catalogue of known agent types. The built-in catalogue is
// installed by New; additional custom types may be registered at wiring time.
type Registry struct {
	specs    map[string]TypeSpec
	validate *validator.Validate
}

// New creates a registry pre-populated with the built-in agent types.
func New() *Registry {
	r := &Registry{
		specs:    make(map[string]TypeSpec),
		validate: validator.New(),
	}
	for _, spec := range builtins() {
		r.specs[spec.Type] = spec
	}
	return r
}

func builtins() []TypeSpec {
	return []TypeSpec{
		{
			Type:                 TypeDataProcessor,
			Description:          "Deterministic in-process data transformation",
			RequiredCapabilities: []string{"data.process"},
			DefaultTimeout:       30 * time.Second,
			DefaultRetryCount:    0,
			DefaultMemoryLimitMB: 128,
		},
		{
			Type:                 TypeLLMAgent,
			Description:          "Text generation via an LLM provider",
			RequiredCapabilities: []string{"llm.generate"},
			DefaultTimeout:       120 * time.Second,
			DefaultRetryCount:    2,
			DefaultMemoryLimitMB: 256,
		},
		{
			Type:                 TypeEmbedding,
			Description:          "Embedding vector generation",
			RequiredCapabilities: []string{"llm.embed"},
			DefaultTimeout:       60 * time.Second,
			DefaultRetryCount:    2,
			DefaultMemoryLimitMB: 256,
		},
		{
			Type:                 TypeRetrieval,
			Description:          "Document retrieval over indexed tenant data",
			RequiredCapabilities: []string{"retrieval.search"},
			DefaultTimeout:       30 * time.Second,
			DefaultRetryCount:    1,
			DefaultMemoryLimitMB: 128,
		},
		{
			Type:                 TypeIntegration,
			Description:          "External HTTP tool invocation",
			RequiredCapabilities: []string{"integration.call"},
			DefaultTimeout:       60 * time.Second,
			DefaultRetryCount:    1,
			DefaultMemoryLimitMB: 128,
		},
	}
}

// Register adds or replaces a custom type spec.
func (r *Registry) Register(spec TypeSpec) {
	r.specs[spec.Type] = spec
}

// Lookup resolves an agent type to its spec. A "_mapper" or "_reducer"
// suffixed type resolves to its base type's spec.
func (r *Registry) Lookup(agentType string) (TypeSpec, bool) {
	if spec, ok := r.specs[agentType]; ok {
		return spec, true
	}
	if base, ok := baseType(agentType); ok {
		if spec, ok := r.specs[base]; ok {
			return spec, true
		}
	}
	return TypeSpec{}, false
}

// Known reports whether the agent type (or its mapper/reducer base) is in
// the catalogue.
func (r *Registry) Known(agentType string) bool {
	_, ok := r.Lookup(agentType)
	return ok
}

// ValidateDefinition checks the structural validity of a definition: required
// fields, non-negative budgets. Catalogue membership is not required here;
// the executor's handler set is the authority on dispatchable types.
func (r *Registry) ValidateDefinition(def *core.AgentDefinition) error {
	if err := r.validate.Struct(def); err != nil {
		return fmt.Errorf("invalid agent definition %q: %w", def.AgentID, err)
	}
	return nil
}

// ApplyDefaults fills unset budgets and capability requirements of a
// definition from its type spec. Definitions of unknown types are left
// untouched.
func (r *Registry) ApplyDefaults(def *core.AgentDefinition) {
	spec, ok := r.Lookup(def.AgentType)
	if !ok {
		return
	}
	if def.Timeout == 0 {
		def.Timeout = spec.DefaultTimeout
	}
	if def.RetryCount == 0 {
		def.RetryCount = spec.DefaultRetryCount
	}
	if def.MemoryLimitMB == 0 {
		def.MemoryLimitMB = spec.DefaultMemoryLimitMB
	}
	if len(def.CapabilitiesRequired) == 0 {
		def.CapabilitiesRequired = append([]string(nil), spec.RequiredCapabilities...)
	}
}

// baseType strips a mapper/reducer suffix, reporting whether one was present.
func baseType(agentType string) (string, bool) {
	for _, suffix := range []string{"_mapper", "_reducer"} {
		if strings.HasSuffix(agentType, suffix) {
			return strings.TrimSuffix(agentType, suffix), true
		}
	}
	return agentType, false
}
