// internal/world/galaxy.go
package world

import (
	"cmp"
	"slices"
	"sync"

	"github.com/supremacy-go/combat/internal/combat"
	"github.com/supremacy-go/combat/pkg/core"
)

// DefaultRechargeRate is applied to weapon mounts that do not set one.
const DefaultRechargeRate = 0.8

// Ship is a ship or station living on the galaxy map.
type Ship struct {
	ID          combat.ObjectID
	Owner       combat.FactionID
	Name        string
	Design      combat.UnitDesign
	Rank        combat.ExperienceRank
	Hero        bool
	Hull        int
	Shield      int
	Cloaked     bool
	Camouflaged bool
	Location    core.Location
	Destroyed   bool
}

func (s *Ship) source() combat.UnitSource {
	return combat.UnitSource{
		ObjectID:      s.ID,
		Owner:         s.Owner,
		Name:          s.Name,
		Design:        s.Design,
		Rank:          s.Rank,
		Hero:          s.Hero,
		Hull:          s.Hull,
		Shield:        s.Shield,
		IsCloaked:     s.Cloaked,
		IsCamouflaged: s.Camouflaged,
	}
}

// Firepower is the full-charge damage of the ship's weapons.
func (s *Ship) Firepower() int {
	total := 0
	for _, m := range slices.Concat(s.Design.Beams, s.Design.Torpedoes) {
		total += m.Damage * max(m.Count, 1)
	}
	return total
}

type relation struct{ a, b combat.FactionID }

// Galaxy is an in-memory simulation implementing combat.World and
// combat.UnitSync. It is safe for concurrent use by several engines.
type Galaxy struct {
	mu        sync.RWMutex
	turn      int
	width     int
	height    int
	factions  map[combat.FactionID]combat.Faction
	tech      map[combat.FactionID]int
	relations map[relation]combat.DiplomaticStatus
	colonies  map[core.Location]combat.Colony
	ships     map[combat.ObjectID]*Ship
}

var (
	_ combat.World    = (*Galaxy)(nil)
	_ combat.UnitSync = (*Galaxy)(nil)
)

// NewGalaxy creates an empty galaxy of width × height sectors.
func NewGalaxy(width, height, turn int) *Galaxy {
	return &Galaxy{
		turn:      turn,
		width:     width,
		height:    height,
		factions:  make(map[combat.FactionID]combat.Faction),
		tech:      make(map[combat.FactionID]int),
		relations: make(map[relation]combat.DiplomaticStatus),
		colonies:  make(map[core.Location]combat.Colony),
		ships:     make(map[combat.ObjectID]*Ship),
	}
}

// AddFaction registers a faction and its weapons tech level.
func (g *Galaxy) AddFaction(f combat.Faction, weaponsTech int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.factions[f.ID] = f
	g.tech[f.ID] = weaponsTech
}

// SetStatus records a symmetric diplomatic status between a and b.
func (g *Galaxy) SetStatus(a, b combat.FactionID, s combat.DiplomaticStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.relations[relation{a, b}] = s
	g.relations[relation{b, a}] = s
}

// AddColony places a colony. A sector holds at most one colony.
func (g *Galaxy) AddColony(c combat.Colony) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.colonies[c.Location] = c
}

// AddShip places a ship or station. Weapon mounts without a recharge rate
// get DefaultRechargeRate.
func (g *Galaxy) AddShip(s *Ship) {
	for i := range s.Design.Beams {
		if s.Design.Beams[i].RechargeRate == 0 {
			s.Design.Beams[i].RechargeRate = DefaultRechargeRate
		}
	}
	for i := range s.Design.Torpedoes {
		if s.Design.Torpedoes[i].RechargeRate == 0 {
			s.Design.Torpedoes[i].RechargeRate = DefaultRechargeRate
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ships[s.ID] = s
}

// Ship returns a copy of the ship with the given id.
func (g *Galaxy) Ship(id combat.ObjectID) (Ship, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.ships[id]
	if !ok {
		return Ship{}, false
	}
	return *s, true
}

// SetTurn advances the galaxy clock.
func (g *Galaxy) SetTurn(turn int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.turn = turn
}

func (g *Galaxy) Faction(id combat.FactionID) (combat.Faction, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	f, ok := g.factions[id]
	return f, ok
}

// Factions returns every faction ordered by id.
func (g *Galaxy) Factions() []combat.Faction {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]combat.Faction, 0, len(g.factions))
	for _, f := range g.factions {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b combat.Faction) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (g *Galaxy) Status(a, b combat.FactionID) (combat.DiplomaticStatus, bool) {
	if a == b {
		return combat.StatusSelf, true
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.relations[relation{a, b}]
	return s, ok
}

func (g *Galaxy) inBounds(l core.Location) bool {
	return l.X >= 0 && l.Y >= 0 && l.X < g.width && l.Y < g.height
}

// Neighbors returns the up to eight sectors around loc inside the map.
func (g *Galaxy) Neighbors(loc core.Location) []core.Location {
	out := make([]core.Location, 0, 8)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			n := core.Location{X: loc.X + dx, Y: loc.Y + dy}
			if g.inBounds(n) {
				out = append(out, n)
			}
		}
	}
	return out
}

// NearestOwnedColony picks the closest colony of owner; ties go to the
// colony whose name sorts first.
func (g *Galaxy) NearestOwnedColony(loc core.Location, owner combat.FactionID) (combat.Colony, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var best combat.Colony
	found := false
	for _, c := range g.colonies {
		if c.Owner != owner {
			continue
		}
		if !found {
			best, found = c, true
			continue
		}
		d, bd := loc.Distance(c.Location), loc.Distance(best.Location)
		if d < bd || (d == bd && c.Name < best.Name) {
			best = c
		}
	}
	return best, found
}

// HostileFirepowerAt sums the firepower of armed objects at loc whose owner
// owner would engage.
func (g *Galaxy) HostileFirepowerAt(loc core.Location, owner combat.FactionID) int {
	byOwner := make(map[combat.FactionID]int)
	g.mu.RLock()
	for _, s := range g.ships {
		if s.Destroyed || s.Location != loc || s.Owner == owner {
			continue
		}
		byOwner[s.Owner] += s.Firepower()
	}
	g.mu.RUnlock()

	total := 0
	for other, firepower := range byOwner {
		if combat.WillEngage(g, owner, other) {
			total += firepower
		}
	}
	return total
}

func (g *Galaxy) ColonyAt(loc core.Location) (combat.Colony, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.colonies[loc]
	return c, ok
}

func (g *Galaxy) WeaponsTechLevel(owner combat.FactionID) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tech[owner]
}

func (g *Galaxy) TurnNumber() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.turn
}

// SyncUnit copies the meters and visibility of u back onto its ship.
func (g *Galaxy) SyncUnit(u *combat.CombatUnit) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.ships[u.SourceID()]
	if !ok {
		return
	}
	s.Hull = u.HullStrength()
	s.Shield = u.ShieldStrength()
	s.Cloaked = u.IsCloaked()
	s.Camouflaged = u.IsCamouflaged()
	s.Destroyed = u.IsDestroyed()
}

func (g *Galaxy) RelocateUnit(u *combat.CombatUnit, to core.Location) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.ships[u.SourceID()]; ok {
		s.Location = to
	}
}

// AssimilateUnit hands the ship over to by and moves it to to.
func (g *Galaxy) AssimilateUnit(u *combat.CombatUnit, by combat.FactionID, to core.Location) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.ships[u.SourceID()]; ok {
		s.Owner = by
		s.Location = to
	}
}
