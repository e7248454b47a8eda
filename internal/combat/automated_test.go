package combat

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supremacy-go/combat/pkg/core"
)

func newTestBattle(w World, number int, assets []*CombatAssets, orders ...*CombatOrders) *battle {
	r := &Round{
		CombatID:    1,
		Number:      number,
		Location:    core.Location{X: 5, Y: 5},
		Assets:      assets,
		Strengths:   strengths(assets),
		World:       w,
		Tuning:      DefaultTuning(),
		Random:      fixedRandom{},
		Logger:      slog.New(slog.DiscardHandler),
		orders:      make(map[FactionID]*CombatOrders),
		primaries:   make(map[FactionID]*CombatTargetPrimaries),
		secondaries: make(map[FactionID]*CombatTargetSecondaries),
	}
	for _, o := range orders {
		r.orders[o.Owner()] = o
	}
	return newBattle(r)
}

func ordersFor(a *CombatAssets, stances map[*CombatUnit]Stance) *CombatOrders {
	o := GenerateBlanketOrders(a, Engage)
	for u, s := range stances {
		o.SetOrder(u, s)
	}
	return o
}

func TestHumanMatchup(t *testing.T) {
	w := warWorld()
	w.factions[4] = Faction{ID: 4, Name: "Bajorans", IsHuman: true}
	w.setStatus(1, 4, StatusAllied)

	ship := newUnit(1, 1, warship)
	a := newAssets(1, ship)
	enemy := newAssets(2, newUnit(2, 2, warship))
	ally := newAssets(4, newUnit(4, 4, warship))

	// a zero secondary is not submitted
	tests := []struct {
		name      string
		primary   TargetSelection
		secondary TargetSelection
		want      [2]TargetSelection
	}{
		{"secondary mirrors primary", TargetFaction(2), NoTarget(), [2]TargetSelection{TargetFaction(2), TargetFaction(2)}},
		{"absent faction", TargetFaction(9), NoTarget(), [2]TargetSelection{ReturnFireOnly(), ReturnFireOnly()}},
		{"ally is not a target", TargetFaction(4), NoTarget(), [2]TargetSelection{ReturnFireOnly(), ReturnFireOnly()}},
		{"hold fire", HoldFire(), NoTarget(), [2]TargetSelection{HoldFire(), HoldFire()}},
		{"primary mirrors secondary", ReturnFireOnly(), TargetFaction(2), [2]TargetSelection{TargetFaction(2), TargetFaction(2)}},
		{"return fire fills an empty slot", NoTarget(), ReturnFireOnly(), [2]TargetSelection{ReturnFireOnly(), ReturnFireOnly()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBattle(w, 1, []*CombatAssets{a, enemy, ally})
			b.primaries[1] = GenerateTargetPrimary(a, tt.primary)
			if !tt.secondary.IsNone() {
				b.secondaries[1] = GenerateTargetSecondary(a, tt.secondary)
			}
			m := b.humanMatchup(1, a.ActiveUnits())
			assert.Equal(t, tt.want[0], m.primary)
			assert.Equal(t, tt.want[1], m.secondary)
		})
	}
}

func TestAIMatchup(t *testing.T) {
	w := warWorld()
	w.factions[1] = Faction{ID: 1, Name: "Cardassians", Traits: []Trait{TraitWarlike}}
	w.setStatus(1, 2, StatusNeutral)
	w.setStatus(1, 3, StatusNeutral)

	a := newAssets(1, newUnit(1, 1, warship))
	strong := newAssets(2, newUnit(2, 2, warship), newUnit(3, 2, warship))
	weak := newAssets(3, newUnit(4, 3, freighter))

	t.Run("aggressive targets the weakest first", func(t *testing.T) {
		b := newTestBattle(w, 1, []*CombatAssets{a, strong, weak})
		m := b.aiMatchup(w.factions[1])
		assert.Equal(t, TargetFaction(3), m.primary)
		assert.Equal(t, TargetFaction(2), m.secondary)
	})

	t.Run("war overrides preference", func(t *testing.T) {
		w.setStatus(1, 2, StatusAtWar)
		defer w.setStatus(1, 2, StatusNeutral)
		b := newTestBattle(w, 1, []*CombatAssets{a, strong, weak})
		m := b.aiMatchup(w.factions[1])
		assert.Equal(t, TargetFaction(2), m.primary)
		assert.Equal(t, TargetFaction(2), m.secondary)
	})

	t.Run("peaceful only returns fire", func(t *testing.T) {
		peaceful := Faction{ID: 1, Name: "Cardassians", Traits: []Trait{TraitPeaceful}}
		b := newTestBattle(w, 1, []*CombatAssets{a, strong, weak})
		m := b.aiMatchup(peaceful)
		assert.True(t, m.primary.IsReturnFireOnly())
		assert.True(t, m.secondary.IsReturnFireOnly())
	})
}

func TestDecloakBeforeCutoff(t *testing.T) {
	cloaked := func() *CombatUnit {
		return NewCombatUnit(UnitSource{ObjectID: 1, Owner: 1, Name: "Bird", Design: warship, Hull: 100, Shield: 50, IsCloaked: true})
	}
	w := warWorld()

	early := cloaked()
	b := newTestBattle(w, 6, []*CombatAssets{newAssets(1, early), newAssets(2, newUnit(2, 2, warship))})
	b.decloak()
	assert.False(t, early.IsCloaked())
	require.Len(t, b.SitReps(), 1)
	assert.Equal(t, core.SitRepDecloaked, b.SitReps()[0].Kind)

	late := cloaked()
	b = newTestBattle(w, 7, []*CombatAssets{newAssets(1, late), newAssets(2, newUnit(2, 2, warship))})
	b.decloak()
	assert.True(t, late.IsCloaked())
}

func TestDecamouflageAgainstBetterScanners(t *testing.T) {
	hidden := UnitDesign{Name: "Shade", ShipType: ShipSpy, HullStrength: 20, CamouflageStrength: 3}
	scanner := warship
	scanner.ScanStrength = 4

	weak := NewCombatUnit(UnitSource{ObjectID: 1, Owner: 1, Name: "Shade", Design: hidden, Hull: 20, IsCamouflaged: true})
	b := newTestBattle(warWorld(), 1, []*CombatAssets{newAssets(1, weak), newAssets(2, newUnit(2, 2, scanner))})
	b.decamouflage()
	assert.False(t, weak.IsCamouflaged())

	hidden.CamouflageStrength = 4
	strong := NewCombatUnit(UnitSource{ObjectID: 1, Owner: 1, Name: "Shade", Design: hidden, Hull: 20, IsCamouflaged: true})
	b = newTestBattle(warWorld(), 1, []*CombatAssets{newAssets(1, strong), newAssets(2, newUnit(2, 2, scanner))})
	b.decamouflage()
	assert.True(t, strong.IsCamouflaged())
}

func TestEasyRetreat(t *testing.T) {
	scout := newUnit(1, 1, UnitDesign{Name: "Runner", ShipType: ShipScout, HullStrength: 30, Beams: []WeaponMount{{Damage: 1}}})
	cruiser := newUnit(3, 1, warship)
	a := newAssets(1, scout, cruiser)
	orders := ordersFor(a, map[*CombatUnit]Stance{scout: Retreat, cruiser: Retreat})

	b := newTestBattle(warWorld(), 2, []*CombatAssets{a, newAssets(2, newUnit(2, 2, warship))}, orders)
	b.easyRetreat()
	assert.Equal(t, BucketEscaped, a.BucketOf(scout))
	assert.Equal(t, BucketCombat, a.BucketOf(cruiser), "heavy hulls must roll a regular retreat")

	scout2 := newUnit(1, 1, scout.Design())
	a2 := newAssets(1, scout2)
	b = newTestBattle(warWorld(), 3, []*CombatAssets{a2, newAssets(2, newUnit(2, 2, warship))}, ordersFor(a2, map[*CombatUnit]Stance{scout2: Retreat}))
	b.easyRetreat()
	assert.Equal(t, BucketCombat, a2.BucketOf(scout2))
}

func TestAssimilation(t *testing.T) {
	w := warWorld()
	w.factions[3] = Faction{ID: 3, Name: "Borg", Assimilates: true}

	victim := newUnit(1, 1, warship)
	a := newAssets(1, victim)
	borg := newAssets(3, newUnit(3, 3, warship))

	b := newTestBattle(w, 1, []*CombatAssets{a, borg})
	b.assimilate()

	assert.Equal(t, BucketAssimilated, a.BucketOf(victim))
	by, ok := victim.AssimilatedBy()
	assert.True(t, ok)
	assert.Equal(t, FactionID(3), by)

	b.Random = fixedRandom{f: 0.05}
	other := newUnit(5, 1, warship)
	a.Add(other)
	b.assimilate()
	assert.Equal(t, BucketCombat, a.BucketOf(other))
}

func TestVolleyCarriesLeftoverFirepower(t *testing.T) {
	src := newUnit(1, 1, warship)
	first := newUnit(2, 2, freighter)
	second := newUnit(3, 2, freighter)
	def := newAssets(2, first, second)

	b := newTestBattle(warWorld(), 1, []*CombatAssets{newAssets(1, src), def})
	b.volley(src, 1000, def, first)

	assert.True(t, first.IsDestroyed())
	assert.True(t, second.IsDestroyed())
}

func TestVolleyStopsWhenAbsorbed(t *testing.T) {
	src := newUnit(1, 1, warship)
	first := newUnit(2, 2, warship)
	second := newUnit(3, 2, warship)
	def := newAssets(2, first, second)

	b := newTestBattle(warWorld(), 1, []*CombatAssets{newAssets(1, src), def})
	b.volley(src, 100, def, first)

	assert.Equal(t, 97, first.Absorbable())
	assert.Equal(t, 150, second.Absorbable())
	assert.Same(t, first, b.lastTarget[1])
}

func TestTargetFocusCarriesAcrossRounds(t *testing.T) {
	src := newUnit(1, 1, warship)
	x := newUnit(2, 2, warship)
	y := newUnit(3, 2, warship)
	att := newAssets(1, src)
	def := newAssets(2, x, y)

	first := newTestBattle(warWorld(), 1, []*CombatAssets{att, def})
	first.volley(src, 100, def, x)
	require.Same(t, x, first.lastTarget[1])

	// the random pick would be y
	next := *first.Round
	next.Number = 2
	next.Random = fixedRandom{i: 1}
	assert.Same(t, x, newBattle(&next).chooseTarget(src, def))

	fresh := newTestBattle(warWorld(), 2, []*CombatAssets{att, def})
	fresh.Random = fixedRandom{i: 1}
	assert.Same(t, y, fresh.chooseTarget(src, def))
}

func TestChooseTargetPrefersStation(t *testing.T) {
	src := newUnit(1, 1, warship)
	station := newUnit(10, 2, outpost)
	ship := newUnit(2, 2, warship)
	def := newAssets(2, ship, station)

	b := newTestBattle(warWorld(), 1, []*CombatAssets{newAssets(1, src), def})
	assert.Same(t, station, b.chooseTarget(src, def))

	b = newTestBattle(warWorld(), 1, []*CombatAssets{newAssets(1, src), def}, ordersFor(def, map[*CombatUnit]Stance{ship: Formation}))
	assert.Same(t, ship, b.chooseTarget(src, def), "formation screens the station")
}

func TestChooseTargetRaidPrefersTransports(t *testing.T) {
	src := newUnit(1, 1, warship)
	att := newAssets(1, src)
	ship := newUnit(2, 2, warship)
	cargo := newUnit(3, 2, freighter)
	def := newAssets(2, ship, cargo)

	b := newTestBattle(warWorld(), 1, []*CombatAssets{att, def}, ordersFor(att, map[*CombatUnit]Stance{src: Transports}))
	assert.Same(t, cargo, b.chooseTarget(src, def))

	b = newTestBattle(warWorld(), 1, []*CombatAssets{att, def},
		ordersFor(att, map[*CombatUnit]Stance{src: Transports}),
		ordersFor(def, map[*CombatUnit]Stance{ship: Formation}))
	assert.Same(t, ship, b.chooseTarget(src, def))
}

func TestOrderBonus(t *testing.T) {
	src := newUnit(1, 1, warship)
	att := newAssets(1, src)
	target := newUnit(2, 2, warship)
	cargo := newUnit(3, 2, freighter)
	def := newAssets(2, target, cargo)

	tests := []struct {
		name   string
		mine   Stance
		theirs Stance
		hit    *CombatUnit
		want   float64
	}{
		{"engage vs rush", Engage, Rush, target, 1.2},
		{"engage vs formation", Engage, Formation, target, 1.2},
		{"engage vs engage", Engage, Engage, target, 1},
		{"raid vs transport", Transports, Engage, cargo, 1.25},
		{"rush vs retreat", Rush, Retreat, target, 1.25},
		{"formation vs rush", Formation, Rush, target, 1.2},
		{"hail", Hail, Rush, target, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBattle(warWorld(), 1, []*CombatAssets{att, def},
				ordersFor(att, map[*CombatUnit]Stance{src: tt.mine}),
				ordersFor(def, map[*CombatUnit]Stance{target: tt.theirs}))
			assert.InDelta(t, tt.want, b.orderBonus(src, tt.hit), 1e-9)
		})
	}
}

func TestCommandModifier(t *testing.T) {
	escortDesign := warship
	escortDesign.ShipType = ShipFrigate
	commandDesign := warship
	commandDesign.ShipType = ShipCommand

	escort := newUnit(1, 1, escortDesign)
	cruiser := newUnit(2, 1, warship)
	att := newAssets(1, escort, cruiser)

	fleet := func(command, others int) *CombatAssets {
		a := newAssets(2)
		id := ObjectID(100)
		for range command {
			id++
			a.Add(newUnit(id, 2, commandDesign))
		}
		for range others {
			id++
			a.Add(newUnit(id, 2, warship))
		}
		return a
	}

	tests := []struct {
		name string
		src  *CombatUnit
		def  *CombatAssets
		want float64
	}{
		{"no command ships", escort, fleet(0, 3), 1},
		{"escorted command ship", escort, fleet(1, 3), 0.8},
		{"command heavy fleet", escort, fleet(2, 1), 1.05},
		{"line ships are unaffected", cruiser, fleet(1, 3), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBattle(warWorld(), 1, []*CombatAssets{att, tt.def})
			assert.InDelta(t, tt.want, b.commandModifier(tt.src, 2), 1e-9)
		})
	}
}

func TestDamageControlFactor(t *testing.T) {
	b := newTestBattle(warWorld(), 1, nil)

	assert.InDelta(t, 0.95, b.damageControlFactor(newUnit(1, 1, warship)), 1e-9)
	assert.InDelta(t, 0.40, b.damageControlFactor(newUnit(2, 1, outpost)), 1e-9)

	hero := NewCombatUnit(UnitSource{ObjectID: 3, Owner: 1, Name: "Enterprise!", Design: warship, Hull: 100})
	assert.InDelta(t, 0.40, b.damageControlFactor(hero), 1e-9)
	assert.InDelta(t, 1.5, b.accuracy(hero), 1e-9)

	nimble := warship
	nimble.Maneuverability = 200
	assert.InDelta(t, 0.1, b.damageControlFactor(newUnit(4, 1, nimble)), 1e-9)
}

func TestRushedRetreatLosesHull(t *testing.T) {
	unshielded := warship
	unshielded.ShieldStrength = 0
	runner := newUnit(1, 1, unshielded)
	a := newAssets(1, runner)
	b := newTestBattle(warWorld(), 3, []*CombatAssets{a, newAssets(2, newUnit(2, 2, warship))},
		ordersFor(a, map[*CombatUnit]Stance{runner: Retreat}))
	b.Random = fixedRandom{i: 99}

	b.rollRetreats(a, Opposition{Rushing: true})

	assert.Equal(t, BucketCombat, a.BucketOf(runner))
	assert.Equal(t, 50, runner.HullStrength())
}

func TestUnarmedAIWithdraws(t *testing.T) {
	w := warWorld()
	w.factions[2] = Faction{ID: 2, Name: "Ferengi", Home: core.Location{X: 0, Y: 0}}

	human := newAssets(1, newUnit(1, 1, warship))
	traders := newAssets(2, newUnit(2, 2, freighter))

	b := newTestBattle(w, 1, []*CombatAssets{human, traders})
	b.aftermath()
	assert.True(t, traders.HasEscapedAssets())
	assert.False(t, human.HasEscapedAssets())

	w.factions[2] = Faction{ID: 2, Name: "Ferengi", Home: core.Location{X: 5, Y: 5}}
	homeTraders := newAssets(2, newUnit(3, 2, freighter))
	b = newTestBattle(w, 1, []*CombatAssets{human, homeTraders})
	b.aftermath()
	assert.False(t, homeTraders.HasEscapedAssets(), "AI factions hold their home sector")
}

func TestAutomatedResolverRound(t *testing.T) {
	shipA := newUnit(1, 1, warship)
	shipB := newUnit(2, 2, warship)
	a := newAssets(1, shipA)
	b := newAssets(2, shipB)
	bt := newTestBattle(warWorld(), 1, []*CombatAssets{a, b})
	bt.primaries[1] = GenerateTargetPrimary(a, TargetFaction(2))
	bt.primaries[2] = GenerateTargetPrimary(b, TargetFaction(1))

	require.NoError(t, NewAutomatedResolver().Resolve(context.Background(), bt.Round))

	assert.Equal(t, 97, shipA.Absorbable())
	assert.Equal(t, 97, shipB.Absorbable())
	assert.Zero(t, shipA.Firepower())
	assert.Zero(t, shipB.Firepower())
}
