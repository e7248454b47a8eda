package combat

import (
	"errors"
	"fmt"
)

// RankModifiers are the accuracy and damage control of one experience rank.
type RankModifiers struct {
	Accuracy      float64 `yaml:"accuracy"`
	DamageControl float64 `yaml:"damageControl"`
}

// RatioModifier applies Modifier when a strength ratio crosses Ratio.
type RatioModifier struct {
	Ratio    float64 `yaml:"ratio"`
	Modifier float64 `yaml:"modifier"`
}

// FavorTheBold rewards an outgunned attacker and penalizes an overwhelming
// one. Underdog steps apply when attacker/defender strength is below Ratio,
// overdog steps when it is above. The first matching step wins.
type FavorTheBold struct {
	FromTurn int             `yaml:"fromTurn"`
	Underdog []RatioModifier `yaml:"underdog"`
	Overdog  []RatioModifier `yaml:"overdog"`
}

// PacingStep scales all damage from a world turn onwards.
type PacingStep struct {
	FromTurn int     `yaml:"fromTurn"`
	Modifier float64 `yaml:"modifier"`
}

// OrderBonuses are damage multipliers for favourable stance matchups.
type OrderBonuses struct {
	EngageVsRushOrFormation float64 `yaml:"engageVsRushOrFormation"`
	RaidVsTransport         float64 `yaml:"raidVsTransport"`
	RushVsRetreatOrRaid     float64 `yaml:"rushVsRetreatOrRaid"`
	FormationVsRaidOrRush   float64 `yaml:"formationVsRaidOrRush"`
}

// Tuning holds every balance constant of the automated resolver.
type Tuning struct {
	DecloakBeforeRound     int     `yaml:"decloakBeforeRound"`
	EasyRetreatBeforeRound int     `yaml:"easyRetreatBeforeRound"`
	EasyRetreatChance      float64 `yaml:"easyRetreatChance"`
	BaseChanceToAssimilate float64 `yaml:"baseChanceToAssimilate"`
	BaseChanceToRetreat    float64 `yaml:"baseChanceToRetreat"`
	RushedRetreatHullLoss  float64 `yaml:"rushedRetreatHullLoss"`

	RandomMin float64 `yaml:"randomMin"`
	RandomMax float64 `yaml:"randomMax"`

	Experience           map[string]RankModifiers `yaml:"experience"`
	HeroAccuracy         float64                  `yaml:"heroAccuracy"`
	HeroDamageControl    float64                  `yaml:"heroDamageControl"`
	StationDamageControl float64                  `yaml:"stationDamageControl"`
	DamageControlBase    float64                  `yaml:"damageControlBase"`
	MinDamageFactor      float64                  `yaml:"minDamageFactor"`

	CommandShipPenalty float64 `yaml:"commandShipPenalty"`
	CommandShipBonus   float64 `yaml:"commandShipBonus"`
	CommandShipShare   float64 `yaml:"commandShipShare"`

	Orders  OrderBonuses                  `yaml:"orders"`
	Scissor map[string]map[string]float64 `yaml:"scissor"`

	FavorTheBold FavorTheBold `yaml:"favorTheBold"`
	Pacing       []PacingStep `yaml:"pacing"`

	ShotsPerArmedUnit      int     `yaml:"shotsPerArmedUnit"`
	MaxIterations          int     `yaml:"maxIterations"`
	TargetFocusBase        float64 `yaml:"targetFocusBase"`
	StayFirepowerThreshold int     `yaml:"stayFirepowerThreshold"`
}

// DefaultTuning returns the shipped balance.
func DefaultTuning() Tuning {
	return Tuning{
		DecloakBeforeRound:     7,
		EasyRetreatBeforeRound: 3,
		EasyRetreatChance:      0.9,
		BaseChanceToAssimilate: 0.05,
		BaseChanceToRetreat:    0.5,
		RushedRetreatHullLoss:  0.5,

		RandomMin: 0.8,
		RandomMax: 1.3,

		Experience: map[string]RankModifiers{
			RankUnknown.String():   {Accuracy: 0.70, DamageControl: 0.55},
			RankGreen.String():     {Accuracy: 0.75, DamageControl: 0.57},
			RankRegular.String():   {Accuracy: 0.85, DamageControl: 0.59},
			RankVeteran.String():   {Accuracy: 0.95, DamageControl: 0.61},
			RankElite.String():     {Accuracy: 1.0, DamageControl: 0.63},
			RankLegendary.String(): {Accuracy: 1.1, DamageControl: 0.65},
		},
		HeroAccuracy:         0.8,
		HeroDamageControl:    0.55,
		StationDamageControl: 0.55,
		DamageControlBase:    1.5,
		MinDamageFactor:      0.1,

		CommandShipPenalty: 0.8,
		CommandShipBonus:   1.05,
		CommandShipShare:   1.0 / 3.0,

		Orders: OrderBonuses{
			EngageVsRushOrFormation: 1.2,
			RaidVsTransport:         1.25,
			RushVsRetreatOrRaid:     1.25,
			FormationVsRaidOrRush:   1.2,
		},
		Scissor: map[string]map[string]float64{
			ShipDestroyer.String():     {ShipCommand.String(): 1.2, ShipScout.String(): 1.2},
			ShipFrigate.String():       {ShipTransport.String(): 1.15, ShipColony.String(): 1.15, ShipConstruction.String(): 1.15},
			ShipStrikeCruiser.String(): {ShipCruiser.String(): 1.1},
			ShipCommand.String():       {ShipCruiser.String(): 1.1, ShipHeavyCruiser.String(): 1.1},
			ShipHeavyCruiser.String():  {ShipDestroyer.String(): 1.1, ShipFrigate.String(): 1.1},
		},

		FavorTheBold: FavorTheBold{
			FromTurn: 10,
			Underdog: []RatioModifier{{Ratio: 0.5, Modifier: 1.3}, {Ratio: 0.8, Modifier: 1.15}},
			Overdog:  []RatioModifier{{Ratio: 4, Modifier: 0.7}, {Ratio: 2, Modifier: 0.85}},
		},
		Pacing: []PacingStep{{FromTurn: 0, Modifier: 1.0}, {FromTurn: 150, Modifier: 1.1}, {FromTurn: 300, Modifier: 1.2}},

		ShotsPerArmedUnit:      2,
		MaxIterations:          10000,
		TargetFocusBase:        0.5,
		StayFirepowerThreshold: 1,
	}
}

// Validate rejects tables the resolver cannot work with.
func (t Tuning) Validate() error {
	var errs []error
	if t.RandomMin <= 0 || t.RandomMax < t.RandomMin {
		errs = append(errs, fmt.Errorf("invalid random range [%v, %v]", t.RandomMin, t.RandomMax))
	}
	if t.ShotsPerArmedUnit <= 0 {
		errs = append(errs, errors.New("shotsPerArmedUnit must be positive"))
	}
	if t.MaxIterations <= 0 {
		errs = append(errs, errors.New("maxIterations must be positive"))
	}
	for r := RankUnknown; r <= RankLegendary; r++ {
		if _, ok := t.Experience[r.String()]; !ok {
			errs = append(errs, fmt.Errorf("experience table is missing rank %s", r))
		}
	}
	for attacker, row := range t.Scissor {
		if ParseShipType(attacker) == ShipUnknown {
			errs = append(errs, fmt.Errorf("scissor: unknown ship type %q", attacker))
		}
		for target := range row {
			if ParseShipType(target) == ShipUnknown {
				errs = append(errs, fmt.Errorf("scissor %s: unknown ship type %q", attacker, target))
			}
		}
	}
	return errors.Join(errs...)
}

func (t Tuning) rank(r ExperienceRank) RankModifiers {
	if m, ok := t.Experience[r.String()]; ok {
		return m
	}
	return t.Experience[RankUnknown.String()]
}

func (t Tuning) scissor(attacker, target ShipType) float64 {
	if m, ok := t.Scissor[attacker.String()][target.String()]; ok {
		return m
	}
	return 1
}

func (t Tuning) favorTheBold(turn int, ratio float64) float64 {
	if turn < t.FavorTheBold.FromTurn {
		return 1
	}
	for _, s := range t.FavorTheBold.Underdog {
		if ratio < s.Ratio {
			return s.Modifier
		}
	}
	for _, s := range t.FavorTheBold.Overdog {
		if ratio > s.Ratio {
			return s.Modifier
		}
	}
	return 1
}

func (t Tuning) pacing(turn int) float64 {
	m := 1.0
	for _, s := range t.Pacing {
		if turn >= s.FromTurn {
			m = s.Modifier
		}
	}
	return m
}
