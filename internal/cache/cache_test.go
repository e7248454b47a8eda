package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supremacy-go/combat/internal/combat"
)

func update(combatID, owner, round int) combat.CombatUpdate {
	return combat.CombatUpdate{
		CombatID:    combatID,
		Owner:       combat.FactionID(owner),
		RoundNumber: round,
	}
}

func TestUpdateCache_PutAndGet(t *testing.T) {
	c := NewUpdateCache()

	c.Put(update(1, 2, 1))

	got, ok := c.Get(1, 2)
	require.True(t, ok)
	assert.Equal(t, 1, got.RoundNumber)

	_, ok = c.Get(1, 3)
	assert.False(t, ok)
	_, ok = c.Get(2, 2)
	assert.False(t, ok)
}

func TestUpdateCache_LaterRoundWins(t *testing.T) {
	c := NewUpdateCache()

	c.Put(update(1, 2, 3))
	c.Put(update(1, 2, 2))

	got, _ := c.Get(1, 2)
	assert.Equal(t, 3, got.RoundNumber, "stale round must not replace a newer one")

	c.Put(update(1, 2, 4))
	got, _ = c.Get(1, 2)
	assert.Equal(t, 4, got.RoundNumber)
	assert.Equal(t, 1, c.Len())
}

func TestUpdateCache_ForCombat(t *testing.T) {
	c := NewUpdateCache()
	c.Put(update(1, 3, 1))
	c.Put(update(1, 1, 1))
	c.Put(update(2, 2, 1))

	got := c.ForCombat(1)
	require.Len(t, got, 2)
	assert.Equal(t, combat.FactionID(1), got[0].Owner)
	assert.Equal(t, combat.FactionID(3), got[1].Owner)

	assert.Empty(t, c.ForCombat(9))
	assert.Equal(t, []int{1, 2}, c.Combats())
}

func TestUpdateCache_Delete(t *testing.T) {
	c := NewUpdateCache()
	c.Put(update(1, 1, 1))
	c.Put(update(1, 2, 1))
	c.Put(update(2, 1, 1))

	c.Delete(1)

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(2, 1)
	assert.True(t, ok)
}

func TestUpdateCache_Reset(t *testing.T) {
	c := NewUpdateCache()
	c.Put(update(1, 1, 1))

	c.Reset()

	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Combats())
}

func TestUpdateCache_Concurrent(t *testing.T) {
	c := NewUpdateCache()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(round int) {
			defer wg.Done()
			c.Put(update(1, 1, round))
			c.Get(1, 1)
			c.ForCombat(1)
		}(i)
	}
	wg.Wait()

	got, ok := c.Get(1, 1)
	require.True(t, ok)
	assert.Equal(t, 49, got.RoundNumber)
}

// SafeCounter tests

func TestSafeCounter_InitialValue(t *testing.T) {
	c := &SafeCounter{}
	assert.Equal(t, int(0), c.Value())
}

func TestSafeCounter_Set(t *testing.T) {
	c := &SafeCounter{}

	c.Set(42)
	assert.Equal(t, int(42), c.Value())

	c.Set(100)
	assert.Equal(t, int(100), c.Value())

	c.Set(0)
	assert.Equal(t, int(0), c.Value())
}

func TestSafeCounter_Inc(t *testing.T) {
	c := &SafeCounter{}

	c.Inc()
	assert.Equal(t, int(1), c.Value())

	c.Inc()
	c.Inc()
	assert.Equal(t, int(3), c.Value())
}

func TestSafeCounter_Concurrent(t *testing.T) {
	c := &SafeCounter{}
	var wg sync.WaitGroup

	// Concurrent increments
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()

	assert.Equal(t, int(1000), c.Value())
}

func TestSafeCounter_Dec(t *testing.T) {
	c := &SafeCounter{}
	c.Set(2)
	c.Dec()
	assert.Equal(t, 1, c.Value())
}
