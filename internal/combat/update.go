package combat

import "github.com/supremacy-go/combat/pkg/core"

// UnitView is a detached copy of a unit's state.
type UnitView struct {
	ObjectID      ObjectID
	Owner         FactionID
	Name          string
	Design        string
	ShipType      ShipType
	Rank          ExperienceRank
	Hull          int
	MaxHull       int
	Shield        int
	MaxShield     int
	Firepower     int
	IsStation     bool
	IsCloaked     bool
	IsCamouflaged bool
	IsAssimilated bool
}

func viewOf(u *CombatUnit) UnitView {
	return UnitView{
		ObjectID:      u.SourceID(),
		Owner:         u.OwnerID(),
		Name:          u.Name(),
		Design:        u.Design().Name,
		ShipType:      u.ShipType(),
		Rank:          u.Rank(),
		Hull:          u.HullStrength(),
		MaxHull:       u.Hull().Maximum(),
		Shield:        u.ShieldStrength(),
		MaxShield:     u.Shield().Maximum(),
		Firepower:     u.Firepower(),
		IsStation:     u.IsStation(),
		IsCloaked:     u.IsCloaked(),
		IsCamouflaged: u.IsCamouflaged(),
		IsAssimilated: u.IsAssimilated(),
	}
}

func viewsOf(units []*CombatUnit) []UnitView {
	out := make([]UnitView, 0, len(units))
	for _, u := range units {
		out = append(out, viewOf(u))
	}
	return out
}

// AssetsView is a detached copy of one faction's assets.
type AssetsView struct {
	Owner            FactionID
	Location         core.Location
	Station          *UnitView
	CombatShips      []UnitView
	NonCombatShips   []UnitView
	EscapedShips     []UnitView
	DestroyedShips   []UnitView
	AssimilatedShips []UnitView
	Strength         FactionStrength
}

// ViewOf copies the current state of a.
func ViewOf(a *CombatAssets) AssetsView {
	v := AssetsView{
		Owner:            a.OwnerID(),
		Location:         a.Location(),
		CombatShips:      viewsOf(a.CombatShips()),
		NonCombatShips:   viewsOf(a.NonCombatShips()),
		EscapedShips:     viewsOf(a.EscapedShips()),
		DestroyedShips:   viewsOf(a.DestroyedShips()),
		AssimilatedShips: viewsOf(a.AssimilatedShips()),
		Strength:         StrengthOf(a),
	}
	if st := a.Station(); st != nil {
		sv := viewOf(st)
		v.Station = &sv
	}
	return v
}

// Opponent describes another faction as seen by the update's owner.
type Opponent struct {
	Faction   FactionID
	Name      string
	Status    DiplomaticStatus
	Firepower int
}

// CombatUpdate is the per-faction snapshot broadcast after every round.
// It shares no memory with the engine.
type CombatUpdate struct {
	CombatID       int
	RoundNumber    int
	IsStandoff     bool
	IsOver         bool
	Owner          FactionID
	Location       core.Location
	FriendlyAssets []AssetsView
	HostileAssets  []AssetsView
	Opponents      []Opponent
	SitReps        []core.SitRep

	FriendlyStrength int
	HostileStrength  int
}

// FriendlyFirepower sums the firepower of every friendly faction.
func (u CombatUpdate) FriendlyFirepower() int {
	total := 0
	for _, a := range u.FriendlyAssets {
		total += a.Strength.Firepower
	}
	return total
}

// HostileFirepower sums the firepower of every hostile faction.
func (u CombatUpdate) HostileFirepower() int {
	total := 0
	for _, a := range u.HostileAssets {
		total += a.Strength.Firepower
	}
	return total
}

func buildUpdate(w World, combatID, round int, standoff, over bool, owner *CombatAssets, all []*CombatAssets, sitreps []core.SitRep) CombatUpdate {
	u := CombatUpdate{
		CombatID:    combatID,
		RoundNumber: round,
		IsStandoff:  standoff,
		IsOver:      over,
		Owner:       owner.OwnerID(),
		Location:    owner.Location(),
	}
	self := ViewOf(owner)
	u.FriendlyAssets = append(u.FriendlyAssets, self)
	u.FriendlyStrength += self.Strength.Strength
	for _, other := range all {
		if other == owner {
			continue
		}
		v := ViewOf(other)
		status, _ := w.Status(owner.OwnerID(), other.OwnerID())
		opp := Opponent{Faction: other.OwnerID(), Status: status, Firepower: v.Strength.Firepower}
		if f, ok := w.Faction(other.OwnerID()); ok {
			opp.Name = f.Name
		}
		u.Opponents = append(u.Opponents, opp)
		if WillFightAlongside(w, owner.OwnerID(), other.OwnerID()) {
			u.FriendlyAssets = append(u.FriendlyAssets, v)
			u.FriendlyStrength += v.Strength.Strength
		} else {
			u.HostileAssets = append(u.HostileAssets, v)
			u.HostileStrength += v.Strength.Strength
		}
	}
	for _, s := range sitreps {
		if s.FactionID == int(owner.OwnerID()) {
			u.SitReps = append(u.SitReps, s)
		}
	}
	return u
}
