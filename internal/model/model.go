package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&ReportInfo{},
	&Combat{},
	&CombatFaction{},
	&CombatRound{},
	&UnitState{},
	&SitRep{},
	&CombatPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// ReportInfo contains group information about the instance
type ReportInfo struct {
	gorm.Model
	GroupName        string `json:"groupName" gorm:"size:127"`
	GroupDescription string `json:"groupDescription" gorm:"size:255"`
	GroupWebsite     string `json:"groupURL" gorm:"size:255"`
}

func (*ReportInfo) TableName() string {
	return "report_infos"
}

// CombatPerformance is the model for writer performance metrics
type CombatPerformance struct {
	Time                time.Time         `json:"time" gorm:"index:idx_perf_time"`
	ActiveCombats       int               `json:"activeCombats"`
	WriteQueueLengths   WriteQueueLengths `json:"writeQueueLengths" gorm:"embedded;embeddedPrefix:writequeue_"`
	LastWriteDurationMs float32           `json:"lastWriteDurationMs"`
}

func (*CombatPerformance) TableName() string {
	return "combat_performances"
}

// WriteQueueLengths is the model for the write queue lengths
type WriteQueueLengths struct {
	Rounds     uint16 `json:"rounds"`
	UnitStates uint16 `json:"unitStates"`
	SitReps    uint16 `json:"sitReps"`
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Combat is the main model for a recorded combat.
// EngineID is the id the engine assigned; it is only unique per process.
type Combat struct {
	gorm.Model
	EngineID   int            `json:"engineId" gorm:"index:idx_combat_engine_id"`
	UUID       string         `json:"uuid" gorm:"size:36;uniqueIndex"`
	LocationX  int            `json:"locationX"`
	LocationY  int            `json:"locationY"`
	TurnNumber int            `json:"turnNumber"`
	Tag        string         `json:"tag" gorm:"size:127"`
	StartTime  time.Time      `json:"startTime" gorm:"index:idx_combat_start"`
	EndTime    sql.NullTime   `json:"endTime"`
	Rounds     int            `json:"rounds"`
	Standoff   bool           `json:"standoff" gorm:"default:false"`
	Survivors  datatypes.JSON `json:"survivors" gorm:"type:jsonb;default:'[]'"`

	Factions       []CombatFaction
	RoundSummaries []CombatRound
	UnitStates     []UnitState
	SitReps        []SitRep
}

func (*Combat) TableName() string {
	return "combats"
}

// CombatFaction is a faction taking part in a combat
type CombatFaction struct {
	ID        uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	CombatID  uint   `json:"combatId" gorm:"index:idx_combatfaction_combat_id"`
	Combat    Combat `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:CombatID;"`
	FactionID int    `json:"factionId"`
	Name      string `json:"name" gorm:"size:127"`
	ShortName string `json:"shortName" gorm:"size:32"`
	IsHuman   bool   `json:"isHuman" gorm:"default:false"`
}

func (*CombatFaction) TableName() string {
	return "combat_factions"
}

// CombatRound holds the per-faction aggregates at the end of a round
type CombatRound struct {
	ID       uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time     time.Time      `json:"time"`
	CombatID uint           `json:"combatId" gorm:"index:idx_combatround_combat_id"`
	Combat   Combat         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:CombatID;"`
	Round    int            `json:"round" gorm:"index:idx_combatround_round"`
	Standoff bool           `json:"standoff" gorm:"default:false"`
	Factions datatypes.JSON `json:"factions" gorm:"type:jsonb;default:'[]'"` // []core.FactionRound
}

func (*CombatRound) TableName() string {
	return "combat_rounds"
}

// UnitState is a ship or station snapshot taken after a round
type UnitState struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	CombatID  uint      `json:"combatId" gorm:"index:idx_unitstate_combat_id"`
	Combat    Combat    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:CombatID;"`
	Round     int       `json:"round" gorm:"index:idx_unitstate_round"`
	ObjectID  int       `json:"objectId" gorm:"index:idx_unitstate_object_id"`
	OwnerID   int       `json:"ownerId"`
	Name      string    `json:"name" gorm:"size:127"`
	Design    string    `json:"design" gorm:"size:127"`
	ShipType  string    `json:"shipType" gorm:"size:32"`
	Hull      int       `json:"hull"`
	MaxHull   int       `json:"maxHull"`
	Shield    int       `json:"shield"`
	MaxShield int       `json:"maxShield"`
	Firepower int       `json:"firepower"`
	IsStation bool      `json:"isStation" gorm:"default:false"`
	Status    string    `json:"status" gorm:"size:16"` // active, escaped, destroyed, assimilated
}

func (*UnitState) TableName() string {
	return "unit_states"
}

// SitRep is a situation report entry addressed to one faction
type SitRep struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	CombatID  uint      `json:"combatId" gorm:"index:idx_sitrep_combat_id"`
	Combat    Combat    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:CombatID;"`
	Round     int       `json:"round"`
	FactionID int       `json:"factionId" gorm:"index:idx_sitrep_faction_id"`
	ObjectID  int       `json:"objectId"`
	Kind      string    `json:"kind" gorm:"size:32"`
	Text      string    `json:"text" gorm:"size:500"`
	LocationX int       `json:"locationX"`
	LocationY int       `json:"locationY"`
}

func (*SitRep) TableName() string {
	return "sitreps"
}
