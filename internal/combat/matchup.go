package combat

import (
	"cmp"
	"slices"
)

// matchup is the row of the firing table for one faction.
type matchup struct {
	faction   FactionID
	primary   TargetSelection
	secondary TargetSelection
}

// matchups builds the firing table in participant order. Factions without
// units left are not part of it.
func (b *battle) matchups() []matchup {
	var table []matchup
	for _, a := range b.Assets {
		units := alive(a.ActiveUnits())
		if len(units) == 0 {
			continue
		}
		f, known := b.World.Faction(a.OwnerID())
		var m matchup
		if known && !f.IsHuman {
			m = b.aiMatchup(f)
		} else {
			m = b.humanMatchup(a.OwnerID(), units)
		}
		table = append(table, m)
		b.table[m.faction] = m
		b.Logger.Debug("matchup",
			"faction", m.faction,
			"primary", m.primary.String(),
			"secondary", m.secondary.String())
	}
	return table
}

func (b *battle) humanMatchup(owner FactionID, units []*CombatUnit) matchup {
	m := matchup{faction: owner, primary: HoldFire(), secondary: HoldFire()}
	if t, ok := b.Primaries(owner); ok {
		m.primary = t.Dominant(units)
	}
	if t, ok := b.Secondaries(owner); ok {
		m.secondary = t.Dominant(units)
	}
	m.primary = b.validTarget(owner, m.primary)
	m.secondary = b.validTarget(owner, m.secondary)

	return mirrorSlots(m)
}

// mirrorSlots fills a slot without a faction from the other one. A faction
// target beats a sentinel, and an empty slot takes return fire from the other.
func mirrorSlots(m matchup) matchup {
	_, primaryIsFaction := m.primary.Faction()
	_, secondaryIsFaction := m.secondary.Faction()
	switch {
	case !primaryIsFaction && secondaryIsFaction:
		m.primary = m.secondary
	case primaryIsFaction && !secondaryIsFaction:
		m.secondary = m.primary
	case m.primary.IsNone() && m.secondary.IsReturnFireOnly():
		m.primary = m.secondary
	case m.secondary.IsNone() && m.primary.IsReturnFireOnly():
		m.secondary = m.primary
	}
	return m
}

// validTarget downgrades a faction target that is absent, the owner itself
// or not hostile to return fire.
func (b *battle) validTarget(owner FactionID, t TargetSelection) TargetSelection {
	id, ok := t.Faction()
	if !ok {
		return t
	}
	if _, present := b.AssetsOf(id); !present || !WillEngage(b.World, owner, id) {
		return ReturnFireOnly()
	}
	return t
}

func (b *battle) aiMatchup(f Faction) matchup {
	m := matchup{faction: f.ID, primary: ReturnFireOnly(), secondary: ReturnFireOnly()}
	if f.IsAggressive() {
		hostiles := b.hostiles(f.ID)
		hostiles = slices.DeleteFunc(hostiles, func(a *CombatAssets) bool {
			return len(alive(a.ActiveUnits())) == 0
		})
		slices.SortStableFunc(hostiles, func(x, y *CombatAssets) int {
			return cmp.Compare(b.Strengths[x.OwnerID()].Strength, b.Strengths[y.OwnerID()].Strength)
		})
		if len(hostiles) > 0 {
			m.primary = TargetFaction(hostiles[0].OwnerID())
			m.secondary = m.primary
		}
		if len(hostiles) > 1 {
			m.secondary = TargetFaction(hostiles[1].OwnerID())
		}
	}
	for _, a := range b.Assets {
		if a.OwnerID() == f.ID || len(alive(a.ActiveUnits())) == 0 {
			continue
		}
		if !AreNotAtWar(b.World, f.ID, a.OwnerID()) {
			m.primary = TargetFaction(a.OwnerID())
			m.secondary = m.primary
			break
		}
	}
	return m
}
