// Package v1 contains the v1 export format for combat reports.
// This format is consumed by the report frontend.
package v1

import "github.com/supremacy-go/combat/pkg/core"

// FormatVersion is written into every export
const FormatVersion = 1

// Export is the root JSON structure for v1 format
type Export struct {
	Version    int           `json:"version"`
	CombatID   int           `json:"combatId"`
	UUID       string        `json:"uuid"`
	Tag        string        `json:"tag"`
	Location   core.Location `json:"location"`
	TurnNumber int           `json:"turnNumber"`
	StartTime  string        `json:"startTime"`
	EndTime    string        `json:"endTime,omitempty"`
	Rounds     int           `json:"rounds"`
	Standoff   bool          `json:"standoff"`
	Factions   []Faction     `json:"factions"`
	Units      []Unit        `json:"units"`
	Timeline   []Round       `json:"timeline"`
	SitReps    [][]any       `json:"sitreps"`
}

// Faction is a participant with its outcome
type Faction struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	IsHuman   bool   `json:"isHuman"`
	Survived  bool   `json:"survived"`
}

// Unit is a ship or station with its per-round history.
// States[n] holds the unit at the end of round n: [hull, shield, firepower, status].
type Unit struct {
	ID        int     `json:"id"`
	Owner     int     `json:"owner"`
	Name      string  `json:"name"`
	Design    string  `json:"design"`
	ShipType  string  `json:"shipType"`
	IsStation bool    `json:"isStation"`
	MaxHull   int     `json:"maxHull"`
	MaxShield int     `json:"maxShield"`
	Fate      string  `json:"fate"`
	States    [][]any `json:"states"`
}

// Round is one entry of the combat timeline
type Round struct {
	Round    int                 `json:"round"`
	Standoff bool                `json:"standoff"`
	Factions []core.FactionRound `json:"factions"`
}
