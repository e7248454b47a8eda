package combat

import (
	"sync"

	"github.com/supremacy-go/combat/pkg/core"
)

type fakeWorld struct {
	mu        sync.Mutex
	factions  map[FactionID]Faction
	status    map[[2]FactionID]DiplomaticStatus
	neighbors []core.Location
	colonies  []Colony
	firepower map[core.Location]int
	turn      int
	synced    map[ObjectID]int
	relocated map[ObjectID]core.Location
}

func newFakeWorld(factions ...Faction) *fakeWorld {
	w := &fakeWorld{
		factions:  make(map[FactionID]Faction),
		status:    make(map[[2]FactionID]DiplomaticStatus),
		firepower: make(map[core.Location]int),
		synced:    make(map[ObjectID]int),
		relocated: make(map[ObjectID]core.Location),
	}
	for _, f := range factions {
		w.factions[f.ID] = f
	}
	return w
}

func (w *fakeWorld) setStatus(a, b FactionID, s DiplomaticStatus) {
	w.status[[2]FactionID{a, b}] = s
	w.status[[2]FactionID{b, a}] = s
}

func (w *fakeWorld) Faction(id FactionID) (Faction, bool) {
	f, ok := w.factions[id]
	return f, ok
}

func (w *fakeWorld) Status(a, b FactionID) (DiplomaticStatus, bool) {
	if a == b {
		return StatusSelf, true
	}
	s, ok := w.status[[2]FactionID{a, b}]
	return s, ok
}

func (w *fakeWorld) Neighbors(core.Location) []core.Location { return w.neighbors }

func (w *fakeWorld) NearestOwnedColony(_ core.Location, owner FactionID) (Colony, bool) {
	for _, c := range w.colonies {
		if c.Owner == owner {
			return c, true
		}
	}
	return Colony{}, false
}

func (w *fakeWorld) HostileFirepowerAt(loc core.Location, _ FactionID) int {
	return w.firepower[loc]
}

func (w *fakeWorld) ColonyAt(loc core.Location) (Colony, bool) {
	for _, c := range w.colonies {
		if c.Location == loc {
			return c, true
		}
	}
	return Colony{}, false
}

func (w *fakeWorld) WeaponsTechLevel(FactionID) int { return 2 }
func (w *fakeWorld) TurnNumber() int                { return w.turn }

func (w *fakeWorld) SyncUnit(u *CombatUnit) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.synced[u.SourceID()] = u.HullStrength()
}

func (w *fakeWorld) RelocateUnit(u *CombatUnit, to core.Location) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.relocated[u.SourceID()] = to
}

func (w *fakeWorld) AssimilateUnit(u *CombatUnit, _ FactionID, to core.Location) {
	w.RelocateUnit(u, to)
}

// fixedRandom always rolls the same values. Intn is clamped to n-1.
type fixedRandom struct {
	f float64
	i int
}

func (r fixedRandom) Float64() float64 { return r.f }

func (r fixedRandom) Intn(n int) int { return min(r.i, n-1) }

var (
	warship = UnitDesign{
		Name:           "Warship",
		ShipType:       ShipCruiser,
		HullStrength:   100,
		ShieldStrength: 50,
		Beams:          []WeaponMount{{Damage: 100, Count: 1}},
	}
	freighter = UnitDesign{
		Name:         "Freighter",
		ShipType:     ShipTransport,
		HullStrength: 40,
	}
	outpost = UnitDesign{
		Name:           "Outpost",
		HullStrength:   300,
		ShieldStrength: 100,
		Beams:          []WeaponMount{{Damage: 50, Count: 2}},
		IsStation:      true,
	}
)

func newUnit(id ObjectID, owner FactionID, d UnitDesign) *CombatUnit {
	return NewCombatUnit(UnitSource{
		ObjectID: id,
		Owner:    owner,
		Name:     d.Name,
		Design:   d,
		Hull:     d.HullStrength,
		Shield:   d.ShieldStrength,
	})
}

func newAssets(owner FactionID, units ...*CombatUnit) *CombatAssets {
	a := NewCombatAssets(owner, core.Location{X: 5, Y: 5})
	for _, u := range units {
		a.Add(u)
	}
	return a
}
