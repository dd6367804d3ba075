package executor

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/flowmesh/flowmesh/core"
)

// ResultCache caches deterministic handler outputs in a ristretto-backed
// in-process cache. Entries expire after a bounded TTL so stale results do
// not outlive upstream data changes.
type ResultCache struct {
	c   *ristretto.Cache[string, []byte]
	ttl time.Duration
}

// NewResultCache creates a cache holding at most maxCostBytes of serialized
// outputs, each entry living for ttl.
func NewResultCache(maxCostBytes int64, ttl time.Duration) (*ResultCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &ResultCache{c: c, ttl: ttl}, nil
}

// Key derives a stable cache key from the agent type, its environment and
// the call input.
func (rc *ResultCache) Key(def core.AgentDefinition, input map[string]any) string {
	h := sha256.New()
	h.Write([]byte(def.AgentType))
	h.Write([]byte{0})
	envKeys := make([]string, 0, len(def.Environment))
	for k := range def.Environment {
		envKeys = append(envKeys, k)
	}
	sort.Strings(envKeys)
	for _, k := range envKeys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(def.Environment[k]))
		h.Write([]byte{0})
	}
	if payload, err := json.Marshal(input); err == nil {
		h.Write(payload)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached output map.
func (rc *ResultCache) Get(key string) (map[string]any, bool) {
	data, ok := rc.c.Get(key)
	if !ok {
		return nil, false
	}
	var output map[string]any
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, false
	}
	return output, true
}

// Set stores an output map under the key with the cache TTL.
func (rc *ResultCache) Set(key string, output map[string]any) {
	data, err := json.Marshal(output)
	if err != nil {
		return
	}
	rc.c.SetWithTTL(key, data, int64(len(data)), rc.ttl)
}

// Close shuts down the cache and releases resources.
func (rc *ResultCache) Close() {
	rc.c.Close()
}
