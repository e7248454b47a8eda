package combat

// UnitStrength is the durability-weighted value of a unit: firepower plus
// shield and hull scaled by maneuverability. Stations ignore maneuverability.
func UnitStrength(u *CombatUnit) int {
	if u == nil || u.IsDestroyed() {
		return 0
	}
	durability := float64(u.ShieldStrength() + u.HullStrength())
	if u.IsMobile() {
		durability *= 1 + float64(u.Maneuverability())/24
	}
	return u.Firepower() + int(durability)
}

// FactionStrength aggregates the units of one faction.
type FactionStrength struct {
	Faction   FactionID
	Firepower int
	Strength  int
}

// StrengthOf sums the firepower and strength of the surviving units of a.
func StrengthOf(a *CombatAssets) FactionStrength {
	s := FactionStrength{Faction: a.OwnerID()}
	for _, u := range a.ActiveUnits() {
		s.Firepower += u.Firepower()
		s.Strength += UnitStrength(u)
	}
	return s
}

func strengths(assets []*CombatAssets) map[FactionID]FactionStrength {
	out := make(map[FactionID]FactionStrength, len(assets))
	for _, a := range assets {
		out[a.OwnerID()] = StrengthOf(a)
	}
	return out
}
