// Package flowmesh provides a high-level façade over the workflow
// orchestrator and its services (executor, capability gate, memory and
// logging) enabling rapid construction of multi-agent workflow systems.
// Most applications interact with this package by:
//  1. Creating a FlowMesh via New() (optionally overriding default in-memory services)
//  2. Issuing capability tokens for their tenants (IssueToken)
//  3. Creating and executing workflows (CreateWorkflow, ExecuteWorkflow)
//
// The façade delegates orchestration to orchestrator.Orchestrator while
// keeping setup and usage ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply a language
// model, durable configuration and a structured logger.
package flowmesh

import (
	"context"
	"errors"

	"github.com/flowmesh/flowmesh/capability"
	"github.com/flowmesh/flowmesh/config"
	"github.com/flowmesh/flowmesh/core"
	"github.com/flowmesh/flowmesh/executor"
	"github.com/flowmesh/flowmesh/logging"
	"github.com/flowmesh/flowmesh/memory"
	"github.com/flowmesh/flowmesh/model"
	"github.com/flowmesh/flowmesh/orchestrator"
	"github.com/flowmesh/flowmesh/registry"
	"github.com/flowmesh/flowmesh/strategy"
)

// Options configures the FlowMesh instance.
type Options struct {
	// Config supplies tuning values. Defaults to config.Default() with the
	// capability secret passed to New.
	Config *config.Config

	// Model backs llm_agent handlers. Defaults to a deterministic mock,
	// which is suitable for local development only.
	Model model.Model

	// Embedder backs embedding_agent handlers. Defaults to a deterministic
	// mock embedder.
	Embedder model.Embedder

	// Store persists workflow executions (defaults to in-memory).
	Store core.WorkflowStore

	// States tracks per-agent runtime state (defaults to in-memory).
	States core.StateStore

	// Memory is the shared agent memory manager (defaults to in-memory).
	Memory core.MemoryManager

	// Registry validates agent definitions (defaults to the builtin types).
	Registry *registry.Registry

	// Runners overrides the strategy runner set.
	Runners []strategy.Runner

	// Logger (defaults to a structured logger built from Config.Logging).
	Logger logging.Logger
}

// FlowMesh is the high-level façade aggregating the orchestrator and its
// supporting services.
type FlowMesh struct {
	opts  Options
	orch  *orchestrator.Orchestrator
	exec  *executor.Executor
	codec *capability.Codec
	index *memory.DocumentIndex
	mem   core.MemoryManager
}

// New creates a FlowMesh instance signing capability tokens with secret. Any
// unset service is initialized with an in-memory implementation.
func New(secret string, optFns ...func(o *Options)) (*FlowMesh, error) {
	if secret == "" {
		return nil, errors.New("flowmesh: capability secret must not be empty")
	}

	opts := Options{
		Config:   config.Default(),
		Model:    model.NewMockModel("flowmesh-mock"),
		Embedder: &model.MockEmbedder{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.New(&logging.LoggerConfig{
			Level:  logging.ParseLevel(opts.Config.Logging.Level),
			Format: opts.Config.Logging.Format,
		})
	}

	if opts.Memory == nil {
		opts.Memory = memory.NewManager(func(o *memory.ManagerOptions) {
			o.Logger = opts.Logger
		})
	}

	cache, err := executor.NewResultCache(
		opts.Config.Orchestrator.ResultCacheMaxBytes,
		opts.Config.Orchestrator.ResultCacheTTL,
	)
	if err != nil {
		return nil, err
	}

	index := memory.NewDocumentIndex()

	exec := executor.New(opts.Memory, func(o *executor.Options) {
		o.DefaultTimeout = opts.Config.Orchestrator.DefaultTimeout
		o.Cache = cache
		o.Logger = opts.Logger
	})

	exec.RegisterHandler(registry.TypeDataProcessor, executor.NewDataProcessorHandler())
	exec.RegisterHandler(registry.TypeLLMAgent, executor.NewLLMHandler(opts.Model))
	exec.RegisterHandler(registry.TypeEmbedding, executor.NewEmbeddingHandler(opts.Embedder))
	exec.RegisterHandler(registry.TypeRetrieval, executor.NewRetrievalHandler(index))
	exec.RegisterHandler(registry.TypeIntegration, executor.NewIntegrationHandler(nil))

	codec := capability.NewCodec(secret)

	gate := capability.NewGate(codec, func(o *capability.GateOptions) {
		o.Logger = opts.Logger
	})

	if len(opts.Runners) == 0 {
		opts.Runners = []strategy.Runner{
			strategy.NewSequentialRunner(),
			strategy.NewParallelRunner(),
			strategy.NewConditionalRunner(),
			strategy.NewPipelineRunner(),
			strategy.NewMapReduceRunner(func(o *strategy.MapReduceOptions) {
				o.MaxConcurrency = opts.Config.Orchestrator.MapReduceConcurrency
			}),
		}
	}

	orch := orchestrator.New(exec, gate, func(o *orchestrator.Options) {
		o.Store = opts.Store
		o.States = opts.States
		o.Memory = opts.Memory
		o.Registry = opts.Registry
		o.Runners = opts.Runners
		o.Logger = opts.Logger
	})

	return &FlowMesh{
		opts:  opts,
		orch:  orch,
		exec:  exec,
		codec: codec,
		index: index,
		mem:   opts.Memory,
	}, nil
}

// IssueToken signs a capability token for the given subject and tenant.
func (f *FlowMesh) IssueToken(subject, tenantID string, caps []core.Capability) (string, error) {
	return f.codec.Sign(&core.CapabilityToken{
		Subject:      subject,
		TenantID:     tenantID,
		Capabilities: caps,
	})
}

// CreateWorkflow registers a workflow definition and returns its identifier.
func (f *FlowMesh) CreateWorkflow(ctx context.Context, req orchestrator.CreateRequest, token string) (string, error) {
	return f.orch.CreateWorkflow(ctx, req, token)
}

// ExecuteWorkflow runs a workflow to completion with the given input.
func (f *FlowMesh) ExecuteWorkflow(ctx context.Context, workflowID string, input map[string]any, token string) (*core.WorkflowResult, error) {
	return f.orch.ExecuteWorkflow(ctx, workflowID, input, token)
}

// WorkflowStatus reports the workflow record and the state of its agents.
func (f *FlowMesh) WorkflowStatus(ctx context.Context, workflowID, token string) (*orchestrator.StatusReport, error) {
	return f.orch.WorkflowStatus(ctx, workflowID, token)
}

// CancelWorkflow marks a non-terminal workflow as cancelled.
func (f *FlowMesh) CancelWorkflow(ctx context.Context, workflowID, token string) error {
	return f.orch.CancelWorkflow(ctx, workflowID, token)
}

// RegisterHandler adds or replaces the executor handler for an agent type.
func (f *FlowMesh) RegisterHandler(agentType string, h executor.Handler) {
	f.exec.RegisterHandler(agentType, h)
}

// Index exposes the document index that retrieval agents search.
func (f *FlowMesh) Index() *memory.DocumentIndex {
	return f.index
}

// Memory exposes the shared agent memory manager.
func (f *FlowMesh) Memory() core.MemoryManager {
	return f.mem
}

// StartSweeper launches the background cleanup of expired memory entries and
// messages when the configured memory manager supports it. It returns false
// when a custom manager without sweeping was supplied or the interval is zero.
func (f *FlowMesh) StartSweeper(ctx context.Context) bool {
	interval := f.opts.Config.Memory.SweepInterval
	if interval <= 0 {
		return false
	}

	m, ok := f.mem.(*memory.Manager)
	if !ok {
		return false
	}

	m.StartSweeper(ctx, interval)

	return true
}
