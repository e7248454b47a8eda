package combat

import (
	"cmp"
	"math"
	"slices"

	"github.com/supremacy-go/combat/pkg/core"
)

// WillEngage reports whether a and b fight each other when they meet.
// Factions without a diplomatic record are hostile.
func WillEngage(w World, a, b FactionID) bool {
	if a == b {
		return false
	}
	status, ok := w.Status(a, b)
	if !ok {
		return true
	}
	switch status {
	case StatusSelf, StatusFriendly, StatusAffiliated, StatusAllied,
		StatusOwnerIsMember, StatusCounterpartyIsMember:
		return false
	}
	return true
}

// AreNotAtWar is true unless a and b are explicitly at war.
func AreNotAtWar(w World, a, b FactionID) bool {
	status, ok := w.Status(a, b)
	return !ok || status != StatusAtWar
}

// WillFightAlongside reports whether a and b take the same side.
func WillFightAlongside(w World, a, b FactionID) bool {
	status, ok := w.Status(a, b)
	if !ok {
		return false
	}
	switch status {
	case StatusAffiliated, StatusAllied, StatusOwnerIsMember, StatusCounterpartyIsMember:
		return true
	}
	return false
}

// CalculateRetreatDestination picks the neighbouring sector with the least
// hostile firepower, breaking ties by the greatest distance from the nearest
// friendly colony. It returns false when the location has no neighbours.
func CalculateRetreatDestination(w World, assets *CombatAssets) (core.Location, bool) {
	type candidate struct {
		loc       core.Location
		firepower int
		distance  int
	}
	colony, hasColony := w.NearestOwnedColony(assets.Location(), assets.OwnerID())

	var candidates []candidate
	for _, n := range w.Neighbors(assets.Location()) {
		c := candidate{loc: n, firepower: w.HostileFirepowerAt(n, assets.OwnerID())}
		if hasColony {
			c.distance = n.Distance(colony.Location)
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return core.Location{}, false
	}
	slices.SortStableFunc(candidates, func(x, y candidate) int {
		if c := cmp.Compare(x.firepower, y.firepower); c != 0 {
			return c
		}
		return cmp.Compare(y.distance, x.distance)
	})
	return candidates[0].loc, true
}

// ComputeGroundDefenseMultiplier returns the ground defence multiplier of a
// colony, never below 0.1.
func ComputeGroundDefenseMultiplier(colony *Colony) float64 {
	if colony == nil {
		return 0
	}
	return math.Max(0.1, 1.0+0.01*float64(colony.GroundDefense))
}

// ComputeGroundCombatStrength returns the strength of population troops of
// faction at loc. The local building bonus only applies to the colony owner.
func ComputeGroundCombatStrength(w World, faction FactionID, loc core.Location, population int) int {
	colony, ok := w.ColonyAt(loc)
	if !ok {
		return 0
	}
	f, ok := w.Faction(faction)
	if !ok {
		return 0
	}
	localBonus := 0
	if colony.Owner == faction {
		localBonus = colony.GroundCombat
	}
	raceMod := math.Max(0.1, math.Min(2.0, f.CombatEffectiveness))
	weaponTechMod := 1.0 + 0.1*float64(w.WeaponsTechLevel(faction))
	localMod := 1.0 + 0.01*float64(localBonus)
	return int(float64(population) * weaponTechMod * raceMod * localMod)
}

// GenerateBlanketOrders gives every unit of assets the same stance.
// Non-combatants stand by instead of attacking and the station never
// retreats.
func GenerateBlanketOrders(assets *CombatAssets, stance Stance) *CombatOrders {
	orders := NewCombatOrders(assets.OwnerID(), assets.CombatID())
	for _, u := range assets.CombatShips() {
		orders.SetOrder(u, stance)
	}
	for _, u := range assets.NonCombatShips() {
		s := stance
		switch stance {
		case Engage, Rush, Transports, Formation:
			s = Standby
		}
		orders.SetOrder(u, s)
	}
	if st := assets.Station(); st != nil && st.OwnerID() == assets.OwnerID() {
		s := stance
		if s == Retreat {
			s = Engage
		}
		orders.SetOrder(st, s)
	}
	return orders
}

// GenerateTargetPrimary points every unit of assets at target.
func GenerateTargetPrimary(assets *CombatAssets, target TargetSelection) *CombatTargetPrimaries {
	targets := NewCombatTargetPrimaries(assets.OwnerID(), assets.CombatID())
	for _, u := range assets.ActiveUnits() {
		targets.SetTargetOne(u, target)
	}
	return targets
}

// GenerateTargetSecondary points every unit of assets at target.
func GenerateTargetSecondary(assets *CombatAssets, target TargetSelection) *CombatTargetSecondaries {
	targets := NewCombatTargetSecondaries(assets.OwnerID(), assets.CombatID())
	for _, u := range assets.ActiveUnits() {
		targets.SetTargetTwo(u, target)
	}
	return targets
}

// Opposition summarizes the stances the enemies of a retreating unit hold.
type Opposition struct {
	Rushing     bool
	Engaging    bool
	InFormation bool
	Hailing     bool
	Retreating  bool
	Raiding     bool
	// WeaponRatio is opposing firepower divided by the retreating side's.
	WeaponRatio int
}

// WasRetreatSuccessful rolls whether a unit escapes in the given round.
func WasRetreatSuccessful(r Random, t Tuning, opp Opposition, round int) bool {
	if opp.InFormation || opp.Hailing || opp.Retreating {
		return true
	}
	modifier := 0
	if opp.WeaponRatio > 6 {
		modifier = -10
	}
	if opp.Engaging {
		modifier += 15
	}
	if opp.Rushing || opp.Raiding {
		modifier -= 10
	}
	if round > 2 {
		modifier += 25
	}
	roll := r.Intn(100) + 1
	return float64(roll) <= t.BaseChanceToRetreat*100+float64(modifier)
}
