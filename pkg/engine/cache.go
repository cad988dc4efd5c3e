package engine

import (
	"sync"

	"github.com/esly-abro/JKhomes-sub000/pkg/models"
	"github.com/esly-abro/JKhomes-sub000/pkg/workflow"
)

// compiledCache memoizes Compile per definition version. Definitions are
// immutable once active, so (id, version) fully identifies a compiled graph.
type compiledCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	version  int
	compiled *workflow.CompiledWorkflow
}

func newCompiledCache() *compiledCache {
	return &compiledCache{entries: make(map[string]*cacheEntry)}
}

func (c *compiledCache) Get(def *models.WorkflowDefinition) (*workflow.CompiledWorkflow, error) {
	c.mu.RLock()
	entry, ok := c.entries[def.ID]
	c.mu.RUnlock()

	if ok && entry.version == def.Version {
		return entry.compiled, nil
	}

	compiled, err := workflow.Compile(def)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[def.ID] = &cacheEntry{version: def.Version, compiled: compiled}
	c.mu.Unlock()

	return compiled, nil
}
