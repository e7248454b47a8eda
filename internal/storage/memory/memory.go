// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"slices"
	"sync"

	"github.com/supremacy-go/combat/internal/config"
	"github.com/supremacy-go/combat/internal/storage"
	v1 "github.com/supremacy-go/combat/internal/storage/memory/export/v1"
	"github.com/supremacy-go/combat/pkg/core"
)

// Backend stores combat reports in memory and exports each combat to JSON
// once it ends. Several combats may be recorded at the same time.
type Backend struct {
	cfg     config.MemoryConfig
	combats map[int]*v1.CombatData

	lastExportPath     string
	lastExportMetadata core.UploadMetadata
	exported           []storage.ExportedFile
	mu                 sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		combats: make(map[int]*v1.CombatData),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartCombat begins recording a new combat
func (b *Backend) StartCombat(c *core.Combat) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.combats[c.ID]; ok {
		return fmt.Errorf("combat %d already recording", c.ID)
	}
	b.combats[c.ID] = &v1.CombatData{
		Combat: c,
		Units:  make(map[int]*v1.UnitRecord),
	}
	return nil
}

// EndCombat finalizes and exports the combat data
func (b *Backend) EndCombat(r *core.CombatResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := b.combat(r.CombatID)
	if err != nil {
		return err
	}
	data.Result = r
	delete(b.combats, r.CombatID)

	return b.exportJSON(data)
}

// RecordRound records a round summary
func (b *Backend) RecordRound(s *core.RoundSummary) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := b.combat(s.CombatID)
	if err != nil {
		return err
	}
	data.Rounds = append(data.Rounds, *s)
	return nil
}

// RecordUnitState records a unit snapshot
func (b *Backend) RecordUnitState(s *core.UnitState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := b.combat(s.CombatID)
	if err != nil {
		return err
	}
	if rec, ok := data.Units[s.ObjectID]; ok {
		rec.States.Set(s.Round, *s)
		return nil
	}
	data.Units[s.ObjectID] = v1.NewUnitRecord(*s)
	return nil
}

// RecordSitRep records a situation report entry
func (b *Backend) RecordSitRep(s *core.SitRep) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := b.combat(s.CombatID)
	if err != nil {
		return err
	}
	data.SitReps = append(data.SitReps, *s)
	return nil
}

// Combats returns the ids of combats still being recorded
func (b *Backend) Combats() []int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]int, 0, len(b.combats))
	for id := range b.combats {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// GetUnitState returns the state of a unit at the end of a round
func (b *Backend) GetUnitState(combatID, objectID, round int) (core.UnitState, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.combats[combatID]
	if !ok {
		return core.UnitState{}, false
	}
	rec, ok := data.Units[objectID]
	if !ok {
		return core.UnitState{}, false
	}
	s, err := rec.States.At(round)
	return s, err == nil
}

// combat must be called with b.mu held
func (b *Backend) combat(id int) (*v1.CombatData, error) {
	data, ok := b.combats[id]
	if !ok {
		return nil, fmt.Errorf("combat %d is not recording", id)
	}
	return data, nil
}
