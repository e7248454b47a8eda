package combat

import (
	"slices"

	"github.com/supremacy-go/combat/pkg/core"
)

// aftermath moves destroyed units out of the fight, rolls retreats and sends
// AI units that have no reason to stay home.
func (b *battle) aftermath() {
	opposition := make(map[FactionID]Opposition, len(b.Assets))
	for _, a := range b.Assets {
		opposition[a.OwnerID()] = b.opposition(a)
	}

	for _, a := range b.Assets {
		b.collectDestroyed(a)
	}
	for _, a := range b.Assets {
		b.rollRetreats(a, opposition[a.OwnerID()])
	}
	for _, a := range b.Assets {
		if f, ok := b.World.Faction(a.OwnerID()); ok && !f.IsHuman && !b.staysInCombat(f, a) {
			b.withdraw(a)
		}
	}
}

func (b *battle) collectDestroyed(a *CombatAssets) {
	for _, u := range slices.Concat(a.CombatShips(), a.NonCombatShips()) {
		if u.IsDestroyed() {
			a.MoveTo(u, BucketDestroyed)
			b.Report(core.SitRepDestroyed, u, "%s (%s) was destroyed", u.Name(), u.Design().Name)
		}
	}
	if st := a.Station(); st != nil && st.IsDestroyed() {
		a.MoveTo(st, BucketDestroyed)
		b.Report(core.SitRepDestroyed, st, "station %s was destroyed", st.Name())
	}
}

// opposition summarizes the stances of the combat ships of every faction
// hostile to a.
func (b *battle) opposition(a *CombatAssets) Opposition {
	var opp Opposition
	hostileFirepower := 0
	for _, h := range b.hostiles(a.OwnerID()) {
		hostileFirepower += b.Strengths[h.OwnerID()].Firepower
		for _, u := range alive(h.CombatShips()) {
			switch b.Order(u) {
			case Rush:
				opp.Rushing = true
			case Engage:
				opp.Engaging = true
			case Formation:
				opp.InFormation = true
			case Hail:
				opp.Hailing = true
			case Retreat:
				opp.Retreating = true
			case Transports:
				opp.Raiding = true
			}
		}
	}
	opp.WeaponRatio = hostileFirepower * 10 / (b.Strengths[a.OwnerID()].Firepower + 1)
	return opp
}

func (b *battle) rollRetreats(a *CombatAssets, opp Opposition) {
	for _, u := range slices.Concat(a.CombatShips(), a.NonCombatShips()) {
		if b.Order(u) != Retreat {
			continue
		}
		if WasRetreatSuccessful(b.Random, b.Tuning, opp, b.Number) {
			a.MoveTo(u, BucketEscaped)
			b.Report(core.SitRepRetreated, u, "%s retreated from the battle", u.Name())
			continue
		}
		b.Logger.Debug("retreat failed", "unit", u.SourceID(), "name", u.Name())
		if opp.Rushing {
			u.TakeDamage(int(float64(u.HullStrength()) * b.Tuning.RushedRetreatHullLoss))
			if u.IsDestroyed() {
				a.MoveTo(u, BucketDestroyed)
				b.Report(core.SitRepDestroyed, u, "%s was destroyed while trying to retreat", u.Name())
			}
		}
	}
}

// staysInCombat decides whether an AI faction holds its ground: at home, next
// to a friendly station, escorting the first colony or construction fleet,
// when not hostile to the first other faction present, or while still armed.
func (b *battle) staysInCombat(f Faction, a *CombatAssets) bool {
	if a.Location() == f.Home {
		return true
	}
	for _, other := range b.Assets {
		st := other.Station()
		if st == nil || st.IsDestroyed() {
			continue
		}
		if other.OwnerID() == f.ID || WillFightAlongside(b.World, f.ID, other.OwnerID()) {
			return true
		}
	}
	if owner, ok := b.firstSettlerOwner(); ok && owner == f.ID {
		return true
	}
	for _, other := range b.Assets {
		if other.OwnerID() == f.ID {
			continue
		}
		if !WillEngage(b.World, f.ID, other.OwnerID()) {
			return true
		}
		break
	}
	firepower := 0
	for _, u := range a.CombatShips() {
		firepower += u.MaxFirepower()
	}
	return firepower >= b.Tuning.StayFirepowerThreshold
}

func (b *battle) firstSettlerOwner() (FactionID, bool) {
	for _, a := range b.Assets {
		for _, u := range a.NonCombatShips() {
			if u.ShipType() == ShipColony || u.ShipType() == ShipConstruction {
				return a.OwnerID(), true
			}
		}
	}
	return 0, false
}

func (b *battle) withdraw(a *CombatAssets) {
	for _, u := range slices.Concat(a.CombatShips(), a.NonCombatShips()) {
		a.MoveTo(u, BucketEscaped)
		b.Report(core.SitRepRetreated, u, "%s withdrew from the battle", u.Name())
	}
}
