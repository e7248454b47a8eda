// pkg/core/rounds.go
package core

import "time"

// FactionRound holds one faction's aggregate figures at the end of a round
type FactionRound struct {
	FactionID     int  `json:"factionId"`
	Firepower     int  `json:"firepower"`
	Strength      int  `json:"strength"`
	Combatants    int  `json:"combatants"`
	NonCombatants int  `json:"nonCombatants"`
	Escaped       int  `json:"escaped"`
	Destroyed     int  `json:"destroyed"`
	Assimilated   int  `json:"assimilated"`
	HasStation    bool `json:"hasStation"`
	StationAlive  bool `json:"stationAlive"`
}

// RoundSummary is recorded after each resolved round
type RoundSummary struct {
	CombatID   int            `json:"combatId"`
	Round      int            `json:"round"`
	Standoff   bool           `json:"standoff"`
	Factions   []FactionRound `json:"factions"`
	RecordedAt time.Time      `json:"recordedAt"`
}

// Unit status values used in UnitState.Status
const (
	UnitActive      = "active"
	UnitEscaped     = "escaped"
	UnitDestroyed   = "destroyed"
	UnitAssimilated = "assimilated"
)

// UnitState is a per-unit snapshot taken after each round
type UnitState struct {
	CombatID  int    `json:"combatId"`
	Round     int    `json:"round"`
	ObjectID  int    `json:"objectId"`
	OwnerID   int    `json:"ownerId"`
	Name      string `json:"name"`
	Design    string `json:"design"`
	ShipType  string `json:"shipType"`
	Hull      int    `json:"hull"`
	MaxHull   int    `json:"maxHull"`
	Shield    int    `json:"shield"`
	MaxShield int    `json:"maxShield"`
	Firepower int    `json:"firepower"`
	IsStation bool   `json:"isStation"`
	Status    string `json:"status"`
}

// SitRepKind classifies a situation report entry
type SitRepKind string

const (
	SitRepDestroyed     SitRepKind = "destroyed"
	SitRepRetreated     SitRepKind = "retreated"
	SitRepAssimilated   SitRepKind = "assimilated"
	SitRepDecloaked     SitRepKind = "decloaked"
	SitRepDecamouflaged SitRepKind = "decamouflaged"
	SitRepCombatOver    SitRepKind = "combat_over"
)

// SitRep is a situation report entry addressed to one faction
type SitRep struct {
	CombatID  int        `json:"combatId"`
	Round     int        `json:"round"`
	FactionID int        `json:"factionId"`
	ObjectID  int        `json:"objectId"`
	Kind      SitRepKind `json:"kind"`
	Text      string     `json:"text"`
	Location  Location   `json:"location"`
}
