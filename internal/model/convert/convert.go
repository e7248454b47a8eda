package convert

import (
	"encoding/json"

	"github.com/supremacy-go/combat/internal/model"
	"github.com/supremacy-go/combat/pkg/core"
)

// CombatToCore converts a GORM Combat to a core.Combat.
// GORM Combat.EngineID maps to core Combat.ID.
func CombatToCore(c model.Combat) core.Combat {
	factions := make([]core.FactionRef, 0, len(c.Factions))
	for _, f := range c.Factions {
		factions = append(factions, core.FactionRef{
			ID:        f.FactionID,
			Name:      f.Name,
			ShortName: f.ShortName,
			IsHuman:   f.IsHuman,
		})
	}
	return core.Combat{
		ID:         c.EngineID,
		UUID:       c.UUID,
		Location:   core.Location{X: c.LocationX, Y: c.LocationY},
		TurnNumber: c.TurnNumber,
		Tag:        c.Tag,
		StartTime:  c.StartTime,
		Factions:   factions,
	}
}

// CombatResultToCore returns the outcome stored on a combat row, or false
// if the combat never ended.
func CombatResultToCore(c model.Combat) (core.CombatResult, bool) {
	if !c.EndTime.Valid {
		return core.CombatResult{}, false
	}
	var survivors []int
	if len(c.Survivors) > 0 {
		_ = json.Unmarshal(c.Survivors, &survivors)
	}
	return core.CombatResult{
		CombatID:  c.EngineID,
		Rounds:    c.Rounds,
		Standoff:  c.Standoff,
		Survivors: survivors,
		EndTime:   c.EndTime.Time,
	}, true
}

// CombatRoundToCore converts a GORM CombatRound. engineID is the id of the
// owning combat as the engine knows it.
func CombatRoundToCore(r model.CombatRound, engineID int) core.RoundSummary {
	var factions []core.FactionRound
	if len(r.Factions) > 0 {
		_ = json.Unmarshal(r.Factions, &factions)
	}
	return core.RoundSummary{
		CombatID:   engineID,
		Round:      r.Round,
		Standoff:   r.Standoff,
		Factions:   factions,
		RecordedAt: r.Time,
	}
}

// UnitStateToCore converts a GORM UnitState.
func UnitStateToCore(s model.UnitState, engineID int) core.UnitState {
	return core.UnitState{
		CombatID:  engineID,
		Round:     s.Round,
		ObjectID:  s.ObjectID,
		OwnerID:   s.OwnerID,
		Name:      s.Name,
		Design:    s.Design,
		ShipType:  s.ShipType,
		Hull:      s.Hull,
		MaxHull:   s.MaxHull,
		Shield:    s.Shield,
		MaxShield: s.MaxShield,
		Firepower: s.Firepower,
		IsStation: s.IsStation,
		Status:    s.Status,
	}
}

// SitRepToCore converts a GORM SitRep.
func SitRepToCore(s model.SitRep, engineID int) core.SitRep {
	return core.SitRep{
		CombatID:  engineID,
		Round:     s.Round,
		FactionID: s.FactionID,
		ObjectID:  s.ObjectID,
		Kind:      core.SitRepKind(s.Kind),
		Text:      s.Text,
		Location:  core.Location{X: s.LocationX, Y: s.LocationY},
	}
}
