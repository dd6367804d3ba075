package memory

import (
	"context"
	"sync"
	"time"

	"github.com/flowmesh/flowmesh/core"
	"github.com/flowmesh/flowmesh/logging"
)

// Manager is the process-local core.MemoryManager. It holds per-agent
// private memory, per-tenant shared memory and per-agent inbound message
// queues. All namespaces are guarded by a single RWMutex; entries past their
// expiry are evicted lazily on read.
type Manager struct {
	mu     sync.RWMutex
	agents map[string]map[string]core.MemoryEntry // agentID -> key -> entry
	shared map[string]map[string]core.MemoryEntry // tenantID -> key -> entry
	queues map[string][]core.AgentMessage         // agentID -> pending messages

	now    func() time.Time
	logger logging.Logger
}

// ManagerOptions configure optional Manager collaborators.
type ManagerOptions struct {
	Logger logging.Logger
	// Clock overrides the time source, used by tests to exercise expiry
	// without sleeping.
	Clock func() time.Time
}

// NewManager creates an empty memory manager.
func NewManager(optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{Logger: logging.NoOpLogger{}, Clock: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{
		agents: make(map[string]map[string]core.MemoryEntry),
		shared: make(map[string]map[string]core.MemoryEntry),
		queues: make(map[string][]core.AgentMessage),
		now:    opts.Clock,
		logger: opts.Logger,
	}
}

// StoreAgentMemory writes a value into the agent's private namespace. A zero
// ttl means the entry never expires.
func (m *Manager) StoreAgentMemory(agentID, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[agentID]; !ok {
		m.agents[agentID] = make(map[string]core.MemoryEntry)
	}
	m.agents[agentID][key] = m.newEntry(value, ttl)
	return nil
}

// GetAgentMemory reads from the agent's private namespace, lazily evicting
// an expired entry.
func (m *Manager) GetAgentMemory(agentID, key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(m.agents, agentID, key)
}

// StoreSharedMemory writes a value into the tenant's shared namespace.
func (m *Manager) StoreSharedMemory(tenantID, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shared[tenantID]; !ok {
		m.shared[tenantID] = make(map[string]core.MemoryEntry)
	}
	m.shared[tenantID][key] = m.newEntry(value, ttl)
	return nil
}

// GetSharedMemory reads from the tenant's shared namespace with the same
// lazy-expiry semantics as GetAgentMemory.
func (m *Manager) GetSharedMemory(tenantID, key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(m.shared, tenantID, key)
}

// SendMessage appends a message to the recipient agent's queue, assigning a
// message id and timestamp when unset.
func (m *Manager) SendMessage(msg core.AgentMessage) error {
	if msg.MessageID == "" {
		msg.MessageID = "msg_" + core.NewID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[msg.ToAgent] = append(m.queues[msg.ToAgent], msg)
	return nil
}

// ReceiveMessages drains the agent's queue. An empty msgType removes and
// returns the entire queue; a non-empty msgType removes only entries of that
// type, opportunistically pruning expired entries of other types in the same
// pass. Expired messages are never returned.
func (m *Manager) ReceiveMessages(agentID string, msgType core.MessageType) []core.AgentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	queue, ok := m.queues[agentID]
	if !ok {
		return nil
	}

	now := m.now()
	var received []core.AgentMessage
	var remaining []core.AgentMessage
	for _, msg := range queue {
		if msg.Expired(now) {
			continue
		}
		if msgType == "" || msg.Type == msgType {
			received = append(received, msg)
			continue
		}
		remaining = append(remaining, msg)
	}

	if len(remaining) == 0 {
		delete(m.queues, agentID)
	} else {
		m.queues[agentID] = remaining
	}
	return received
}

// CleanupAgent drops the agent's private memory and message queue. Called
// once a workflow using the agent id reaches a terminal state to bound
// memory growth.
func (m *Manager) CleanupAgent(agentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.agents, agentID)
	delete(m.queues, agentID)
}

// StartSweeper launches a background goroutine that periodically removes
// expired entries and messages until ctx is done. Lazy expiry alone is
// sufficient for correctness; the sweeper only bounds the footprint of
// entries that are never read again.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := m.sweep()
				if removed > 0 {
					m.logger.Debug("memory sweep removed expired entries", "count", removed)
				}
			}
		}
	}()
}

// sweep removes all expired entries and messages, returning the number removed.
func (m *Manager) sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for _, ns := range []map[string]map[string]core.MemoryEntry{m.agents, m.shared} {
		for owner, entries := range ns {
			for key, entry := range entries {
				if entry.Expired(now) {
					delete(entries, key)
					removed++
				}
			}
			if len(entries) == 0 {
				delete(ns, owner)
			}
		}
	}
	for agentID, queue := range m.queues {
		kept := queue[:0]
		for _, msg := range queue {
			if msg.Expired(now) {
				removed++
				continue
			}
			kept = append(kept, msg)
		}
		if len(kept) == 0 {
			delete(m.queues, agentID)
		} else {
			m.queues[agentID] = kept
		}
	}
	return removed
}

func (m *Manager) newEntry(value any, ttl time.Duration) core.MemoryEntry {
	entry := core.MemoryEntry{Value: value, CreatedAt: m.now()}
	if ttl > 0 {
		expires := entry.CreatedAt.Add(ttl)
		entry.ExpiresAt = &expires
	}
	return entry
}

// getLocked reads an entry under the held write lock, evicting it when past
// expiry. The write lock is required because a read may delete.
func (m *Manager) getLocked(ns map[string]map[string]core.MemoryEntry, owner, key string) (any, bool) {
	entries, ok := ns[owner]
	if !ok {
		return nil, false
	}
	entry, ok := entries[key]
	if !ok {
		return nil, false
	}
	if entry.Expired(m.now()) {
		delete(entries, key)
		return nil, false
	}
	return entry.Value, true
}

var _ core.MemoryManager = (*Manager)(nil)
