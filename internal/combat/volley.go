package combat

import (
	"math"
	"slices"
)

// volley applies firepower from src to units of def. The first target is
// forced when given; firepower left over after destroying a target carries on
// to the next one.
func (b *battle) volley(src *CombatUnit, firepower int, def *CombatAssets, first *CombatUnit) {
	remaining := float64(firepower)
	target := first
	if target == nil {
		target = b.chooseTarget(src, def)
	}
	for remaining > 0 && target != nil {
		mult := b.modifier(src, target)
		if mult <= 0 {
			return
		}
		dealt := remaining * mult
		capacity := float64(target.Absorbable())
		target.TakeDamage(int(dealt))
		b.lastTarget[src.OwnerID()] = target
		b.Logger.Debug("volley",
			"source", src.SourceID(),
			"target", target.SourceID(),
			"damage", int(dealt),
			"shield", target.ShieldStrength(),
			"hull", target.HullStrength())
		if dealt <= capacity {
			return
		}
		remaining -= capacity / mult
		target = b.chooseTarget(src, def)
	}
}

// chooseTarget picks the unit of def that src fires on next, or nil when def
// has nothing left.
func (b *battle) chooseTarget(src *CombatUnit, def *CombatAssets) *CombatUnit {
	units := alive(def.ActiveUnits())
	if len(units) == 0 {
		return nil
	}
	if st := def.Station(); st != nil && !st.IsDestroyed() && !b.inFormation(def) {
		return st
	}
	if last := b.lastTarget[src.OwnerID()]; last != nil && last.OwnerID() == def.OwnerID() && slices.Contains(units, last) {
		health := 1.0
		if total := last.Hull().Maximum() + last.Shield().Maximum(); total > 0 {
			health = float64(last.Absorbable()) / float64(total)
		}
		base := b.Tuning.TargetFocusBase
		if chance(b.Random, base+(1-base)*(1-health)) {
			return last
		}
	}

	var preferred []*CombatUnit
	switch b.Order(src) {
	case Rush:
		preferred = b.withOrder(units, Retreat)
	case Transports:
		if !b.inFormation(def) {
			for _, u := range units {
				if IsTransport(u) {
					preferred = append(preferred, u)
				}
			}
		}
		if len(preferred) == 0 {
			preferred = b.withOrder(units, Retreat)
		}
	}
	if len(preferred) > 0 {
		units = preferred
	}
	return units[b.Random.Intn(len(units))]
}

func (b *battle) withOrder(units []*CombatUnit, s Stance) []*CombatUnit {
	var out []*CombatUnit
	for _, u := range units {
		if b.Order(u) == s {
			out = append(out, u)
		}
	}
	return out
}

func (b *battle) inFormation(a *CombatAssets) bool {
	for _, u := range alive(a.CombatShips()) {
		if b.Order(u) == Formation {
			return true
		}
	}
	return false
}

// modifier is the product of every damage multiplier for src hitting target,
// including the random spread.
func (b *battle) modifier(src, target *CombatUnit) float64 {
	t := b.Tuning
	return b.accuracy(src) *
		b.damageControlFactor(target) *
		b.orderBonus(src, target) *
		t.scissor(src.ShipType(), target.ShipType()) *
		t.favorTheBold(b.turn, b.strengthRatio(src.OwnerID(), target.OwnerID())) *
		t.pacing(b.turn) *
		b.commandModifier(src, target.OwnerID()) *
		between(b.Random, t.RandomMin, t.RandomMax)
}

func (b *battle) accuracy(u *CombatUnit) float64 {
	acc := b.Tuning.rank(u.Rank()).Accuracy
	if u.IsHero() {
		acc += b.Tuning.HeroAccuracy
	}
	return acc
}

func (b *battle) damageControl(u *CombatUnit) float64 {
	dc := b.Tuning.rank(u.Rank()).DamageControl
	if u.IsHero() {
		dc += b.Tuning.HeroDamageControl
	}
	if !u.IsMobile() {
		dc += b.Tuning.StationDamageControl
	}
	return dc + float64(u.Maneuverability())/100
}

func (b *battle) damageControlFactor(u *CombatUnit) float64 {
	return math.Max(b.Tuning.MinDamageFactor, b.Tuning.DamageControlBase-b.damageControl(u))
}

func (b *battle) orderBonus(src, target *CombatUnit) float64 {
	t := b.Tuning.Orders
	theirs := b.Order(target)
	switch b.Order(src) {
	case Engage:
		if theirs == Rush || theirs == Formation {
			return t.EngageVsRushOrFormation
		}
	case Transports:
		if IsTransport(target) {
			return t.RaidVsTransport
		}
	case Rush:
		if theirs == Retreat || theirs == Transports {
			return t.RushVsRetreatOrRaid
		}
	case Formation:
		if theirs == Transports || theirs == Rush {
			return t.FormationVsRaidOrRush
		}
	}
	return 1
}

func (b *battle) strengthRatio(att, def FactionID) float64 {
	d := b.Strengths[def].Strength
	if d <= 0 {
		return 1
	}
	return float64(b.Strengths[att].Strength) / float64(d)
}

// commandModifier penalizes escorts firing into a fleet led by command ships,
// unless command ships make up a large share of it.
func (b *battle) commandModifier(src *CombatUnit, def FactionID) float64 {
	if !src.ShipType().IsEscort() {
		return 1
	}
	a, ok := b.AssetsOf(def)
	if !ok {
		return 1
	}
	ships := alive(a.CombatShips())
	command := 0
	for _, u := range ships {
		if u.ShipType() == ShipCommand {
			command++
		}
	}
	if command == 0 {
		return 1
	}
	if float64(command)/float64(len(ships)) > b.Tuning.CommandShipShare {
		return b.Tuning.CommandShipBonus
	}
	return b.Tuning.CommandShipPenalty
}
