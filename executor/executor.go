package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/flowmesh/flowmesh/core"
	"github.com/flowmesh/flowmesh/logging"
)

// Invocation carries everything a handler needs for one agent call.
type Invocation struct {
	Definition core.AgentDefinition
	Input      map[string]any
	Token      *core.CapabilityToken
	Memory     core.MemoryManager
}

// Handler executes the type-specific behavior of one agent call. A handler
// must respect context cancellation; the executor bounds the context with the
// definition's timeout.
type Handler interface {
	Execute(ctx context.Context, inv Invocation) (map[string]any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, inv Invocation) (map[string]any, error)

// Execute implements Handler.
func (f HandlerFunc) Execute(ctx context.Context, inv Invocation) (map[string]any, error) {
	return f(ctx, inv)
}

// Options configure the executor.
type Options struct {
	// DefaultTimeout bounds calls whose definition carries no timeout.
	DefaultTimeout time.Duration
	// Cache enables result caching for cacheable agent types. Nil disables
	// caching.
	Cache *ResultCache
	// CacheableTypes lists the agent types whose handlers are deterministic
	// enough to serve from cache.
	CacheableTypes []string
	// Logger receives execution diagnostics.
	Logger logging.Logger
}

// Executor dispatches agent calls to registered type handlers. It implements
// core.Executor; all methods are safe for concurrent use.
type Executor struct {
	mu        sync.RWMutex
	handlers  map[string]Handler
	memory    core.MemoryManager
	cache     *ResultCache
	cacheable map[string]bool

	defaultTimeout time.Duration
	logger         logging.Logger
}

// New creates an executor with an empty handler registry.
func New(memory core.MemoryManager, optFns ...func(o *Options)) *Executor {
	opts := Options{
		DefaultTimeout: 60 * time.Second,
		CacheableTypes: []string{"data_processor", "embedding_agent"},
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	cacheable := make(map[string]bool, len(opts.CacheableTypes))
	for _, t := range opts.CacheableTypes {
		cacheable[t] = true
	}

	return &Executor{
		handlers:       make(map[string]Handler),
		memory:         memory,
		cache:          opts.Cache,
		cacheable:      cacheable,
		defaultTimeout: opts.DefaultTimeout,
		logger:         opts.Logger,
	}
}

// RegisterHandler binds an agent type name to a handler implementation.
func (e *Executor) RegisterHandler(agentType string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[agentType] = h
}

// Supports reports whether the executor can dispatch the given agent type,
// either directly or through its mapper/reducer base type.
func (e *Executor) Supports(agentType string) bool {
	_, ok := e.resolve(agentType)
	return ok
}

// resolve finds the handler for an agent type, falling back to the base type
// for "_mapper" / "_reducer" suffixed names.
func (e *Executor) resolve(agentType string) (Handler, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if h, ok := e.handlers[agentType]; ok {
		return h, true
	}
	for _, suffix := range []string{"_mapper", "_reducer"} {
		if strings.HasSuffix(agentType, suffix) {
			if h, ok := e.handlers[strings.TrimSuffix(agentType, suffix)]; ok {
				return h, true
			}
		}
	}
	return nil, false
}

// Execute implements core.Executor. The call is bounded by the definition's
// timeout and retried up to its retry budget; timeouts and handler errors
// produce the same failed envelope shape. Execute never panics the workflow;
// it reports every failure in-band.
func (e *Executor) Execute(ctx context.Context, def core.AgentDefinition, input map[string]any, token *core.CapabilityToken) core.AgentResult {
	start := time.Now()

	handler, ok := e.resolve(def.AgentType)
	if !ok {
		err := &core.AgentExecutionError{
			AgentID: def.AgentID,
			Err:     fmt.Errorf("no handler registered for agent type %q", def.AgentType),
		}
		return core.FailedResult(err, time.Since(start).Seconds())
	}

	cacheKey := ""
	if e.cache != nil && e.cacheable[def.AgentType] {
		cacheKey = e.cache.Key(def, input)
		if output, ok := e.cache.Get(cacheKey); ok {
			e.logger.Debug("result cache hit", "agent_id", def.AgentID, "agent_type", def.AgentType)
			return core.CompletedResult(output, time.Since(start).Seconds())
		}
	}

	timeout := def.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	inv := Invocation{Definition: def, Input: input, Token: token, Memory: e.memory}

	var output map[string]any
	var err error
	attempts := def.RetryCount + 1
	for attempt := 0; attempt < attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		output, err = handler.Execute(callCtx, inv)
		cancel()
		if err == nil {
			break
		}
		// A cancelled workflow context makes further attempts pointless.
		if ctx.Err() != nil {
			break
		}
		if attempt < attempts-1 {
			e.logger.Debug("agent call retrying",
				"agent_id", def.AgentID, "attempt", attempt+1, "error", err.Error())
		}
	}

	elapsed := time.Since(start).Seconds()
	if err != nil {
		return core.FailedResult(&core.AgentExecutionError{AgentID: def.AgentID, Err: err}, elapsed)
	}

	if cacheKey != "" {
		e.cache.Set(cacheKey, output)
	}
	return core.CompletedResult(output, elapsed)
}

var _ core.Executor = (*Executor)(nil)
