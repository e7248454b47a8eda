// internal/world/assets.go
package world

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/supremacy-go/combat/internal/combat"
	"github.com/supremacy-go/combat/pkg/core"
)

// CombatAssetsAt snapshots every faction present at loc into combat assets.
// Ships camouflaged at least as well as the best opposing scan stay hidden
// and are left out. Camouflaged ships that are seen lose their camouflage,
// and the owner gets a situation report for each. Nothing is returned when
// fewer than two factions are present.
func (g *Galaxy) CombatAssetsAt(loc core.Location) ([]*combat.CombatAssets, []core.SitRep) {
	g.mu.Lock()
	defer g.mu.Unlock()

	present := g.shipsAtLocked(loc)
	owners := make(map[combat.FactionID]bool)
	for _, s := range present {
		owners[s.Owner] = true
	}
	if len(owners) < 2 {
		return nil, nil
	}

	byOwner := make(map[combat.FactionID]*combat.CombatAssets)
	var order []combat.FactionID
	var sitreps []core.SitRep
	for _, s := range present {
		scan := maxOpposingScan(present, s.Owner)
		if s.Camouflaged && s.Design.CamouflageStrength >= scan && !s.Design.IsStation {
			continue
		}
		a, ok := byOwner[s.Owner]
		if !ok {
			a = combat.NewCombatAssets(s.Owner, loc)
			byOwner[s.Owner] = a
			order = append(order, s.Owner)
		}
		u := combat.NewCombatUnit(s.source())
		if s.Camouflaged {
			u.Decamouflage()
			s.Camouflaged = false
			sitreps = append(sitreps, core.SitRep{
				FactionID: int(s.Owner),
				ObjectID:  int(s.ID),
				Kind:      core.SitRepDecamouflaged,
				Text:      fmt.Sprintf("%s was detected by scans of strength %d", s.Name, scan),
				Location:  loc,
			})
		}
		a.Add(u)
	}

	if len(order) < 2 {
		return nil, nil
	}
	slices.Sort(order)
	out := make([]*combat.CombatAssets, 0, len(order))
	for _, id := range order {
		out = append(out, byOwner[id])
	}
	return out, sitreps
}

// CombatLocations lists, in map order, the sectors where at least two
// factions that will engage each other meet.
func (g *Galaxy) CombatLocations() []core.Location {
	g.mu.RLock()
	owners := make(map[core.Location][]combat.FactionID)
	for _, s := range g.ships {
		if s.Destroyed || slices.Contains(owners[s.Location], s.Owner) {
			continue
		}
		owners[s.Location] = append(owners[s.Location], s.Owner)
	}
	g.mu.RUnlock()

	var out []core.Location
	for loc, ids := range owners {
		if g.anyWillEngage(ids) {
			out = append(out, loc)
		}
	}
	slices.SortFunc(out, func(a, b core.Location) int {
		if c := cmp.Compare(a.Y, b.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.X, b.X)
	})
	return out
}

func (g *Galaxy) anyWillEngage(ids []combat.FactionID) bool {
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			if combat.WillEngage(g, a, b) || combat.WillEngage(g, b, a) {
				return true
			}
		}
	}
	return false
}

func (g *Galaxy) shipsAtLocked(loc core.Location) []*Ship {
	var out []*Ship
	for _, s := range g.ships {
		if !s.Destroyed && s.Location == loc {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b *Ship) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func maxOpposingScan(ships []*Ship, owner combat.FactionID) int {
	best := 0
	for _, s := range ships {
		if s.Owner != owner {
			best = max(best, s.Design.ScanStrength)
		}
	}
	return best
}
