package combat

import (
	"fmt"

	"github.com/supremacy-go/combat/pkg/core"
)

// DiplomaticStatus is the stance of one faction towards another.
type DiplomaticStatus int

const (
	StatusNoContact DiplomaticStatus = iota
	StatusSelf
	StatusAtWar
	StatusNeutral
	StatusPeace
	StatusFriendly
	StatusAffiliated
	StatusAllied
	StatusOwnerIsMember
	StatusCounterpartyIsMember
)

var statusNames = map[DiplomaticStatus]string{
	StatusNoContact:            "NoContact",
	StatusSelf:                 "Self",
	StatusAtWar:                "AtWar",
	StatusNeutral:              "Neutral",
	StatusPeace:                "Peace",
	StatusFriendly:             "Friendly",
	StatusAffiliated:           "Affiliated",
	StatusAllied:               "Allied",
	StatusOwnerIsMember:        "OwnerIsMember",
	StatusCounterpartyIsMember: "CounterpartyIsMember",
}

func (s DiplomaticStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("DiplomaticStatus(%d)", int(s))
}

// ParseDiplomaticStatus maps a status name to its value.
func ParseDiplomaticStatus(s string) (DiplomaticStatus, error) {
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return StatusNoContact, fmt.Errorf("unknown diplomatic status %q", s)
}

// Trait is an AI personality trait that biases target selection.
type Trait string

const (
	TraitWarlike       Trait = "Warlike"
	TraitHostile       Trait = "Hostile"
	TraitExpansionist  Trait = "Expansionist"
	TraitXenophobic    Trait = "Xenophobic"
	TraitPeaceful      Trait = "Peaceful"
	TraitCompassionate Trait = "Compassionate"
)

func (t Trait) aggressive() bool {
	switch t {
	case TraitWarlike, TraitHostile, TraitExpansionist, TraitXenophobic:
		return true
	}
	return false
}

// Faction is the read-only view of a civilization taking part in combat.
type Faction struct {
	ID                  FactionID
	Name                string
	ShortName           string
	IsHuman             bool
	Assimilates         bool
	Traits              []Trait
	Home                core.Location
	CombatEffectiveness float64
}

// IsAggressive reports whether any of the faction's traits favour attacking.
func (f Faction) IsAggressive() bool {
	for _, t := range f.Traits {
		if t.aggressive() {
			return true
		}
	}
	return false
}

// Ref converts the faction to its serializable form.
func (f Faction) Ref() core.FactionRef {
	return core.FactionRef{ID: int(f.ID), Name: f.Name, ShortName: f.ShortName, IsHuman: f.IsHuman}
}

// Colony is the part of a colony the combat helpers consult.
type Colony struct {
	Name          string
	Owner         FactionID
	Location      core.Location
	GroundCombat  int // percent bonus from active buildings
	GroundDefense int // percent bonus from active buildings
}

// World is the simulation the engine consults read-only.
type World interface {
	Faction(id FactionID) (Faction, bool)
	// Status returns the diplomatic status of a towards b; ok is false when
	// the two have no diplomatic record.
	Status(a, b FactionID) (DiplomaticStatus, bool)
	Neighbors(loc core.Location) []core.Location
	NearestOwnedColony(loc core.Location, owner FactionID) (Colony, bool)
	HostileFirepowerAt(loc core.Location, owner FactionID) int
	ColonyAt(loc core.Location) (Colony, bool)
	WeaponsTechLevel(owner FactionID) int
	TurnNumber() int
}

// UnitSync is implemented by worlds that want post-round unit state copied
// back onto their own objects.
type UnitSync interface {
	SyncUnit(u *CombatUnit)
	RelocateUnit(u *CombatUnit, to core.Location)
	AssimilateUnit(u *CombatUnit, by FactionID, to core.Location)
}
