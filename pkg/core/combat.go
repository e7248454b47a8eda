// pkg/core/combat.go
package core

import (
	"fmt"
	"time"
)

// Location is a sector coordinate on the galaxy grid
type Location struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Distance returns the number of sector steps between two locations.
// Diagonal moves cost one step, so this is the Chebyshev distance.
func (l Location) Distance(other Location) int {
	dx := l.X - other.X
	if dx < 0 {
		dx = -dx
	}
	dy := l.Y - other.Y
	if dy < 0 {
		dy = -dy
	}
	return max(dx, dy)
}

func (l Location) String() string {
	return fmt.Sprintf("(%d, %d)", l.X, l.Y)
}

// FactionRef identifies a faction taking part in a combat
type FactionRef struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	IsHuman   bool   `json:"isHuman"`
}

// Combat represents a recorded combat
type Combat struct {
	ID         int          `json:"id"`
	UUID       string       `json:"uuid"`
	Location   Location     `json:"location"`
	TurnNumber int          `json:"turnNumber"`
	Tag        string       `json:"tag"`
	StartTime  time.Time    `json:"startTime"`
	Factions   []FactionRef `json:"factions"`
}

// CombatResult is written once a combat is over
type CombatResult struct {
	CombatID  int       `json:"combatId"`
	Rounds    int       `json:"rounds"`
	Standoff  bool      `json:"standoff"`
	Survivors []int     `json:"survivors"`
	EndTime   time.Time `json:"endTime"`
}

// UploadMetadata contains combat metadata for upload to the report frontend
type UploadMetadata struct {
	CombatID   int
	CombatUUID string
	Location   string
	Rounds     int
	Tag        string
}
