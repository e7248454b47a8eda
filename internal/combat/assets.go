package combat

import (
	"slices"

	"github.com/supremacy-go/combat/pkg/core"
)

// Bucket names the list of a CombatAssets a unit currently sits in.
type Bucket int

const (
	BucketNone Bucket = iota
	BucketCombat
	BucketNonCombat
	BucketEscaped
	BucketDestroyed
	BucketAssimilated
	BucketStation
)

func (b Bucket) String() string {
	switch b {
	case BucketCombat:
		return "combat"
	case BucketNonCombat:
		return "non-combat"
	case BucketEscaped:
		return core.UnitEscaped
	case BucketDestroyed:
		return core.UnitDestroyed
	case BucketAssimilated:
		return core.UnitAssimilated
	case BucketStation:
		return "station"
	default:
		return "none"
	}
}

// CombatAssets is one faction's units at the combat location.
type CombatAssets struct {
	combatID int
	ownerID  FactionID
	location core.Location

	combatShips      []*CombatUnit
	nonCombatShips   []*CombatUnit
	escapedShips     []*CombatUnit
	destroyedShips   []*CombatUnit
	assimilatedShips []*CombatUnit
	station          *CombatUnit

	// RetreatDestination is set once units of this faction escaped.
	RetreatDestination *core.Location
}

// NewCombatAssets creates an empty asset group.
func NewCombatAssets(owner FactionID, location core.Location) *CombatAssets {
	return &CombatAssets{ownerID: owner, location: location}
}

func (a *CombatAssets) CombatID() int           { return a.combatID }
func (a *CombatAssets) OwnerID() FactionID      { return a.ownerID }
func (a *CombatAssets) Location() core.Location { return a.location }
func (a *CombatAssets) Station() *CombatUnit    { return a.station }

func (a *CombatAssets) CombatShips() []*CombatUnit      { return a.combatShips }
func (a *CombatAssets) NonCombatShips() []*CombatUnit   { return a.nonCombatShips }
func (a *CombatAssets) EscapedShips() []*CombatUnit     { return a.escapedShips }
func (a *CombatAssets) DestroyedShips() []*CombatUnit   { return a.destroyedShips }
func (a *CombatAssets) AssimilatedShips() []*CombatUnit { return a.assimilatedShips }

// SetCombatID stamps the owning combat.
func (a *CombatAssets) SetCombatID(id int) {
	a.combatID = id
}

// Add places a unit into the combat or non-combat list, or as the station.
func (a *CombatAssets) Add(u *CombatUnit) {
	switch {
	case u.IsStation():
		a.station = u
	case u.IsCombatant():
		a.combatShips = append(a.combatShips, u)
	default:
		a.nonCombatShips = append(a.nonCombatShips, u)
	}
}

// SetStation replaces the station.
func (a *CombatAssets) SetStation(u *CombatUnit) {
	a.station = u
}

// BucketOf returns the list the unit is currently in.
func (a *CombatAssets) BucketOf(u *CombatUnit) Bucket {
	if a.station != nil && a.station.Equal(u) {
		return BucketStation
	}
	for _, b := range []Bucket{BucketCombat, BucketNonCombat, BucketEscaped, BucketDestroyed, BucketAssimilated} {
		if slices.ContainsFunc(*a.list(b), u.Equal) {
			return b
		}
	}
	return BucketNone
}

// MoveTo removes the unit from whatever list holds it and appends it to dst.
// A station leaving its slot clears the slot.
func (a *CombatAssets) MoveTo(u *CombatUnit, dst Bucket) {
	src := a.BucketOf(u)
	if src == dst {
		return
	}
	switch src {
	case BucketStation:
		a.station = nil
	case BucketNone:
	default:
		l := a.list(src)
		*l = slices.DeleteFunc(*l, u.Equal)
	}
	if dst == BucketStation {
		a.station = u
		return
	}
	if l := a.list(dst); l != nil {
		*l = append(*l, u)
	}
}

func (a *CombatAssets) list(b Bucket) *[]*CombatUnit {
	switch b {
	case BucketCombat:
		return &a.combatShips
	case BucketNonCombat:
		return &a.nonCombatShips
	case BucketEscaped:
		return &a.escapedShips
	case BucketDestroyed:
		return &a.destroyedShips
	case BucketAssimilated:
		return &a.assimilatedShips
	}
	return nil
}

// HasSurvivingAssets reports whether any ship is still in the fight or the
// station stands.
func (a *CombatAssets) HasSurvivingAssets() bool {
	return len(a.combatShips) > 0 || len(a.nonCombatShips) > 0 ||
		(a.station != nil && !a.station.IsDestroyed())
}

// HasEscapedAssets reports whether any ship escaped.
func (a *CombatAssets) HasEscapedAssets() bool {
	return len(a.escapedShips) > 0
}

// ActiveUnits returns combat ships, non-combat ships and the standing station.
func (a *CombatAssets) ActiveUnits() []*CombatUnit {
	units := make([]*CombatUnit, 0, len(a.combatShips)+len(a.nonCombatShips)+1)
	units = append(units, a.combatShips...)
	units = append(units, a.nonCombatShips...)
	if a.station != nil && !a.station.IsDestroyed() {
		units = append(units, a.station)
	}
	return units
}

// AllUnits returns every unit in every list.
func (a *CombatAssets) AllUnits() []*CombatUnit {
	units := a.ActiveUnits()
	if a.station != nil && a.station.IsDestroyed() {
		units = append(units, a.station)
	}
	units = append(units, a.escapedShips...)
	units = append(units, a.destroyedShips...)
	units = append(units, a.assimilatedShips...)
	return units
}

// Find looks up a unit by source object.
func (a *CombatAssets) Find(id ObjectID) (*CombatUnit, bool) {
	for _, u := range a.AllUnits() {
		if u.SourceID() == id {
			return u, true
		}
	}
	return nil, false
}

// Firepower sums the current firepower of active units.
func (a *CombatAssets) Firepower() int {
	total := 0
	for _, u := range a.ActiveUnits() {
		total += u.Firepower()
	}
	return total
}

// IsTransport reports whether a ship is a troop transport.
func IsTransport(u *CombatUnit) bool { return u.ShipType() == ShipTransport }

// IsSpy reports whether a ship is a spy ship.
func IsSpy(u *CombatUnit) bool { return u.ShipType() == ShipSpy }

// IsDiplomatic reports whether a ship is a diplomatic ship.
func IsDiplomatic(u *CombatUnit) bool { return u.ShipType() == ShipDiplomatic }

// Equal compares asset groups by combat and owner.
func (a *CombatAssets) Equal(other *CombatAssets) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.combatID == other.combatID && a.ownerID == other.ownerID
}
