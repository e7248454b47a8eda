package combat

import (
	"fmt"
	"strings"
)

// Stance is the order given to a unit for a round.
type Stance int

const (
	Engage Stance = iota
	Retreat
	Hail
	Standby
	LandTroops
	Rush
	Transports
	Formation
)

var stanceNames = []string{"Engage", "Retreat", "Hail", "Standby", "LandTroops", "Rush", "Transports", "Formation"}

func (s Stance) String() string {
	if s < 0 || int(s) >= len(stanceNames) {
		return fmt.Sprintf("Stance(%d)", int(s))
	}
	return stanceNames[s]
}

// ParseStance accepts stance names case-insensitively; "Raid" is an alias for
// Transports.
func ParseStance(s string) (Stance, error) {
	if strings.EqualFold(s, "raid") {
		return Transports, nil
	}
	for i, name := range stanceNames {
		if strings.EqualFold(name, s) {
			return Stance(i), nil
		}
	}
	return Engage, fmt.Errorf("unknown stance %q", s)
}

// IsAggressive reports whether the stance opens fire.
func (s Stance) IsAggressive() bool {
	switch s {
	case Engage, Rush, Transports, Formation:
		return true
	}
	return false
}

type targetKind int

const (
	targetNone targetKind = iota
	targetReturnFire
	targetFaction
)

// TargetSelection is the faction a unit fires on: nobody, only whoever shoots
// at it, or a specific faction.
type TargetSelection struct {
	kind    targetKind
	faction FactionID
}

// NoTarget holds fire entirely.
func NoTarget() TargetSelection { return TargetSelection{kind: targetNone} }

// ReturnFireOnly fires only in retaliation.
func ReturnFireOnly() TargetSelection { return TargetSelection{kind: targetReturnFire} }

// TargetFaction fires on the given faction.
func TargetFaction(id FactionID) TargetSelection {
	return TargetSelection{kind: targetFaction, faction: id}
}

// HoldFire is the selection used when a unit has none.
func HoldFire() TargetSelection { return NoTarget() }

func (t TargetSelection) IsNone() bool           { return t.kind == targetNone }
func (t TargetSelection) IsReturnFireOnly() bool { return t.kind == targetReturnFire }

// Faction returns the targeted faction, if any.
func (t TargetSelection) Faction() (FactionID, bool) {
	return t.faction, t.kind == targetFaction
}

// AllowsReturnFire reports whether units with this selection retaliate.
func (t TargetSelection) AllowsReturnFire() bool {
	return t.kind != targetNone
}

func (t TargetSelection) String() string {
	switch t.kind {
	case targetReturnFire:
		return "ReturnFireOnly"
	case targetFaction:
		return fmt.Sprintf("Faction(%d)", int(t.faction))
	default:
		return "None"
	}
}

// submission is the part shared by orders and target maps: one faction's
// per-unit choices for one combat.
type submission[V any] struct {
	owner    FactionID
	combatID int
	values   map[ObjectID]V
}

func newSubmission[V any](owner FactionID, combatID int) submission[V] {
	return submission[V]{owner: owner, combatID: combatID, values: make(map[ObjectID]V)}
}

func (s *submission[V]) Owner() FactionID { return s.owner }
func (s *submission[V]) CombatID() int    { return s.combatID }
func (s *submission[V]) Len() int         { return len(s.values) }

func (s *submission[V]) set(id ObjectID, v V) { s.values[id] = v }

func (s *submission[V]) get(id ObjectID) (V, bool) {
	v, ok := s.values[id]
	return v, ok
}

func (s *submission[V]) equal(other *submission[V], eq func(a, b V) bool) bool {
	if s.owner != other.owner || s.combatID != other.combatID || len(s.values) != len(other.values) {
		return false
	}
	for id, v := range s.values {
		ov, ok := other.values[id]
		if !ok || !eq(v, ov) {
			return false
		}
	}
	return true
}

// CombatOrders maps each unit of one faction to its stance.
type CombatOrders struct {
	submission[Stance]
}

// NewCombatOrders creates an empty order set.
func NewCombatOrders(owner FactionID, combatID int) *CombatOrders {
	return &CombatOrders{submission: newSubmission[Stance](owner, combatID)}
}

// SetOrder records the stance of a unit.
func (o *CombatOrders) SetOrder(u *CombatUnit, s Stance) {
	o.set(u.SourceID(), s)
}

// Order returns the stance of a unit, or ErrMissingOrder.
func (o *CombatOrders) Order(u *CombatUnit) (Stance, error) {
	s, ok := o.get(u.SourceID())
	if !ok {
		return Engage, fmt.Errorf("%w %d (%s)", ErrMissingOrder, u.SourceID(), u.Name())
	}
	return s, nil
}

// Equal compares two order sets.
func (o *CombatOrders) Equal(other *CombatOrders) bool {
	return o.equal(&other.submission, func(a, b Stance) bool { return a == b })
}

type targetMap struct {
	submission[TargetSelection]
}

// Target returns the selection of a unit; units without one hold fire.
func (t *targetMap) Target(u *CombatUnit) TargetSelection {
	if sel, ok := t.get(u.SourceID()); ok {
		return sel
	}
	return HoldFire()
}

// Dominant returns the most common selection, ties going to the selection of
// the earliest unit in units.
func (t *targetMap) Dominant(units []*CombatUnit) TargetSelection {
	counts := make(map[TargetSelection]int)
	var order []TargetSelection
	for _, u := range units {
		sel := t.Target(u)
		if counts[sel] == 0 {
			order = append(order, sel)
		}
		counts[sel]++
	}
	best := HoldFire()
	bestCount := 0
	for _, sel := range order {
		if counts[sel] > bestCount {
			best, bestCount = sel, counts[sel]
		}
	}
	return best
}

// Equal compares two target maps.
func (t *targetMap) Equal(other *targetMap) bool {
	return t.equal(&other.submission, func(a, b TargetSelection) bool { return a == b })
}

// CombatTargetPrimaries maps each unit of one faction to its first target.
type CombatTargetPrimaries struct {
	targetMap
}

// NewCombatTargetPrimaries creates an empty primary target map.
func NewCombatTargetPrimaries(owner FactionID, combatID int) *CombatTargetPrimaries {
	return &CombatTargetPrimaries{targetMap{newSubmission[TargetSelection](owner, combatID)}}
}

// SetTargetOne records the primary target of a unit.
func (t *CombatTargetPrimaries) SetTargetOne(u *CombatUnit, sel TargetSelection) {
	t.set(u.SourceID(), sel)
}

// CombatTargetSecondaries maps each unit of one faction to its second target.
type CombatTargetSecondaries struct {
	targetMap
}

// NewCombatTargetSecondaries creates an empty secondary target map.
func NewCombatTargetSecondaries(owner FactionID, combatID int) *CombatTargetSecondaries {
	return &CombatTargetSecondaries{targetMap{newSubmission[TargetSelection](owner, combatID)}}
}

// SetTargetTwo records the secondary target of a unit.
func (t *CombatTargetSecondaries) SetTargetTwo(u *CombatUnit, sel TargetSelection) {
	t.set(u.SourceID(), sel)
}
