package cache

import (
	"maps"
	"slices"
	"sync"

	"github.com/supremacy-go/combat/internal/combat"
)

type updateKey struct {
	combatID int
	faction  combat.FactionID
}

// UpdateCache keeps the latest CombatUpdate each faction received, so a
// client that reconnects can be sent its current view without waiting for
// the next round.
type UpdateCache struct {
	mu      sync.RWMutex
	updates map[updateKey]combat.CombatUpdate
}

func NewUpdateCache() *UpdateCache {
	return &UpdateCache{
		updates: make(map[updateKey]combat.CombatUpdate),
	}
}

// Put stores u, replacing an older update for the same combat and faction.
// Updates from an earlier round never replace a later one.
func (c *UpdateCache) Put(u combat.CombatUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := updateKey{u.CombatID, u.Owner}
	if old, ok := c.updates[k]; ok && old.RoundNumber > u.RoundNumber {
		return
	}
	c.updates[k] = u
}

func (c *UpdateCache) Get(combatID int, faction combat.FactionID) (combat.CombatUpdate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.updates[updateKey{combatID, faction}]
	return u, ok
}

// ForCombat returns the cached updates of a combat ordered by faction.
func (c *UpdateCache) ForCombat(combatID int) []combat.CombatUpdate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []combat.CombatUpdate
	for k, u := range c.updates {
		if k.combatID == combatID {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b combat.CombatUpdate) int { return int(a.Owner) - int(b.Owner) })
	return out
}

// Combats returns the ids of every combat with a cached update.
func (c *UpdateCache) Combats() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[int]struct{})
	for k := range c.updates {
		seen[k.combatID] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Delete drops every update of a combat.
func (c *UpdateCache) Delete(combatID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	maps.DeleteFunc(c.updates, func(k updateKey, _ combat.CombatUpdate) bool {
		return k.combatID == combatID
	})
}

func (c *UpdateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.updates)
}

func (c *UpdateCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = make(map[updateKey]combat.CombatUpdate)
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}

func (c *SafeCounter) Dec() {
	c.mu.Lock()
	c.v--
	c.mu.Unlock()
}
