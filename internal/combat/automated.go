package combat

import (
	"context"
	"slices"

	"github.com/supremacy-go/combat/pkg/core"
)

// AutomatedResolver fights a round without player involvement beyond the
// submitted orders and targets.
type AutomatedResolver struct{}

// NewAutomatedResolver returns the default resolver.
func NewAutomatedResolver() *AutomatedResolver {
	return &AutomatedResolver{}
}

// Resolve runs pre-combat attrition, the firing loop and post-round
// bookkeeping for one round.
func (a *AutomatedResolver) Resolve(ctx context.Context, r *Round) error {
	b := newBattle(r)
	b.easyRetreat()
	b.decloak()
	b.decamouflage()
	b.assimilate()

	table := b.matchups()
	b.fight(table)
	b.aftermath()
	return nil
}

// battle is the working state of one resolved round.
type battle struct {
	*Round
	turn       int
	lastTarget map[FactionID]*CombatUnit // shared with the engine across rounds
	shots      map[FactionID]int
	caps       map[FactionID]int
	table      map[FactionID]matchup
}

func newBattle(r *Round) *battle {
	if r.lastTarget == nil {
		r.lastTarget = make(map[FactionID]*CombatUnit)
	}
	b := &battle{
		Round:      r,
		turn:       r.World.TurnNumber(),
		lastTarget: r.lastTarget,
		shots:      make(map[FactionID]int),
		caps:       make(map[FactionID]int),
		table:      make(map[FactionID]matchup),
	}
	for _, a := range r.Assets {
		armed := 0
		for _, u := range a.ActiveUnits() {
			if u.MaxFirepower() > 0 {
				armed++
			}
		}
		b.caps[a.OwnerID()] = armed * r.Tuning.ShotsPerArmedUnit
	}
	return b
}

func alive(units []*CombatUnit) []*CombatUnit {
	return slices.DeleteFunc(slices.Clone(units), func(u *CombatUnit) bool { return u.IsDestroyed() })
}

// hostiles returns the assets of every other faction f will engage.
func (b *battle) hostiles(f FactionID) []*CombatAssets {
	var out []*CombatAssets
	for _, a := range b.Assets {
		if a.OwnerID() != f && WillEngage(b.World, f, a.OwnerID()) {
			out = append(out, a)
		}
	}
	return out
}

// easyRetreat lets cloaked and light hulls ordered to retreat slip away early.
func (b *battle) easyRetreat() {
	if b.Number >= b.Tuning.EasyRetreatBeforeRound {
		return
	}
	for _, a := range b.Assets {
		for _, u := range alive(a.CombatShips()) {
			if b.Order(u) != Retreat {
				continue
			}
			if !u.IsCloaked() && u.ShipType() != ShipScout && u.ShipType() != ShipFrigate {
				continue
			}
			if chance(b.Random, b.Tuning.EasyRetreatChance) {
				a.MoveTo(u, BucketEscaped)
				b.Report(core.SitRepRetreated, u, "%s slipped away from the battle", u.Name())
				b.Logger.Debug("easy retreat", "unit", u.SourceID(), "name", u.Name())
			}
		}
	}
}

func (b *battle) decloak() {
	if b.Number >= b.Tuning.DecloakBeforeRound {
		return
	}
	for _, a := range b.Assets {
		for _, u := range a.ActiveUnits() {
			if u.IsCloaked() {
				u.Decloak()
				b.Report(core.SitRepDecloaked, u, "%s was forced to decloak", u.Name())
			}
		}
	}
}

// decamouflage exposes units whose camouflage is weaker than the best scanner
// among their enemies.
func (b *battle) decamouflage() {
	for _, a := range b.Assets {
		maxScan := 0
		for _, h := range b.hostiles(a.OwnerID()) {
			for _, u := range h.ActiveUnits() {
				maxScan = max(maxScan, u.ScanStrength())
			}
		}
		for _, u := range a.ActiveUnits() {
			if u.IsCamouflaged() && u.CamouflageStrength() < maxScan {
				u.Decamouflage()
				b.Report(core.SitRepDecamouflaged, u, "%s was detected by scans of strength %d", u.Name(), maxScan)
			}
		}
	}
}

// assimilate gives every assimilating faction one roll per hostile faction to
// take over a random combat ship.
func (b *battle) assimilate() {
	for _, a := range b.Assets {
		f, ok := b.World.Faction(a.OwnerID())
		if !ok || !f.Assimilates || len(alive(a.CombatShips())) == 0 {
			continue
		}
		for _, h := range b.hostiles(f.ID) {
			if hf, ok := b.World.Faction(h.OwnerID()); ok && hf.Assimilates {
				continue
			}
			ships := alive(h.CombatShips())
			if len(ships) == 0 || !chance(b.Random, b.Tuning.BaseChanceToAssimilate) {
				continue
			}
			u := ships[b.Random.Intn(len(ships))]
			u.markAssimilated(f.ID)
			h.MoveTo(u, BucketAssimilated)
			b.Report(core.SitRepAssimilated, u, "%s was assimilated by the %s", u.Name(), f.Name)
			b.Logger.Info("unit assimilated", "unit", u.SourceID(), "name", u.Name(), "by", f.ID)
		}
	}
}

// fight runs the round-robin firing loop over the matchup table.
func (b *battle) fight(table []matchup) {
	n := len(table)
	if n == 0 {
		return
	}
	slot, idx, skips := 0, 0, 0
	for iter := 0; iter < b.Tuning.MaxIterations; iter++ {
		m := table[idx]
		target := m.primary
		if slot == 1 {
			target = m.secondary
		}
		if def, ok := b.canFire(m.faction, target); ok {
			skips = 0
			b.exchange(m.faction, def)
		} else {
			skips++
		}
		if skips >= 2*n {
			return
		}
		idx++
		if idx == n {
			idx = 0
			slot ^= 1
		}
	}
	b.Logger.Warn("firing loop hit iteration cap", "iterations", b.Tuning.MaxIterations)
}

func (b *battle) attackers(f FactionID) []*CombatUnit {
	a, ok := b.AssetsOf(f)
	if !ok {
		return nil
	}
	return slices.DeleteFunc(a.ActiveUnits(), func(u *CombatUnit) bool {
		return u.IsDestroyed() || u.Firepower() == 0 || !b.Order(u).IsAggressive()
	})
}

func (b *battle) canFire(f FactionID, target TargetSelection) (*CombatAssets, bool) {
	if b.shots[f] >= b.caps[f] {
		return nil, false
	}
	id, ok := target.Faction()
	if !ok {
		return nil, false
	}
	def, ok := b.AssetsOf(id)
	if !ok || len(alive(def.ActiveUnits())) == 0 {
		return nil, false
	}
	return def, len(b.attackers(f)) > 0
}

// exchange lets one random unit of f open fire on def and def answer with the
// same amount of firepower.
func (b *battle) exchange(f FactionID, def *CombatAssets) {
	attackers := b.attackers(f)
	u := attackers[b.Random.Intn(len(attackers))]
	b.shots[f]++

	firepower := u.DischargeAll()
	b.Logger.Debug("attack",
		"attacker", u.SourceID(),
		"faction", f,
		"defender", def.OwnerID(),
		"firepower", firepower)
	b.volley(u, firepower, def, nil)

	own, ok := b.AssetsOf(f)
	if !ok {
		return
	}
	b.retaliate(def, own, u, firepower)
}

func (b *battle) retaliate(def, att *CombatAssets, first *CombatUnit, firepower int) {
	if !b.returnsFire(def.OwnerID()) {
		return
	}
	remaining := firepower
	for _, d := range alive(def.ActiveUnits()) {
		if remaining <= 0 {
			return
		}
		if d.Firepower() == 0 || b.Order(d) == Retreat {
			continue
		}
		released := d.Discharge(remaining)
		remaining -= released
		target := first
		if target.IsDestroyed() {
			target = nil
		}
		b.Logger.Debug("return fire",
			"defender", d.SourceID(),
			"faction", def.OwnerID(),
			"firepower", released)
		b.volley(d, released, att, target)
	}
}

// returnsFire reports whether f is allowed to shoot back this round.
func (b *battle) returnsFire(f FactionID) bool {
	m, ok := b.table[f]
	return ok && (m.primary.AllowsReturnFire() || m.secondary.AllowsReturnFire())
}
