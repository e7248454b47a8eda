package cache

import (
	"sync"

	"github.com/supremacy-go/combat/pkg/core"
)

// FactionCache maps faction ids to their serializable reference so report
// writers do not have to consult the world for every record.
type FactionCache struct {
	mu       sync.RWMutex
	factions map[int]core.FactionRef
}

// NewFactionCache creates a new FactionCache
func NewFactionCache() *FactionCache {
	return &FactionCache{
		factions: make(map[int]core.FactionRef),
	}
}

// Get retrieves a faction by id
func (c *FactionCache) Get(id int) (core.FactionRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.factions[id]
	return f, ok
}

// Name returns the faction name, or a placeholder for unknown ids
func (c *FactionCache) Name(id int) string {
	if f, ok := c.Get(id); ok {
		return f.Name
	}
	return "Unknown"
}

// Set stores a faction reference
func (c *FactionCache) Set(f core.FactionRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factions[f.ID] = f
}

// Reset clears all factions from the cache
func (c *FactionCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factions = make(map[int]core.FactionRef)
}
