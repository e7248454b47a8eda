// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"database/sql"
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/supremacy-go/combat/internal/model"
	"github.com/supremacy-go/combat/pkg/core"
)

// toJSON marshals v for a jsonb column, falling back to an empty array.
func toJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}

// CoreToCombat converts a core.Combat to a GORM model.Combat.
// core.Combat.ID maps to GORM Combat.EngineID; the DB assigns its own ID.
func CoreToCombat(c core.Combat) model.Combat {
	factions := make([]model.CombatFaction, 0, len(c.Factions))
	for _, f := range c.Factions {
		factions = append(factions, model.CombatFaction{
			FactionID: f.ID,
			Name:      f.Name,
			ShortName: f.ShortName,
			IsHuman:   f.IsHuman,
		})
	}
	return model.Combat{
		EngineID:   c.ID,
		UUID:       c.UUID,
		LocationX:  c.Location.X,
		LocationY:  c.Location.Y,
		TurnNumber: c.TurnNumber,
		Tag:        c.Tag,
		StartTime:  c.StartTime,
		Survivors:  datatypes.JSON("[]"),
		Factions:   factions,
	}
}

// ApplyResult copies the outcome of a combat onto its GORM row.
func ApplyResult(m *model.Combat, r core.CombatResult) {
	m.Rounds = r.Rounds
	m.Standoff = r.Standoff
	m.Survivors = toJSON(r.Survivors)
	m.EndTime = sql.NullTime{Time: r.EndTime, Valid: !r.EndTime.IsZero()}
}

// CoreToCombatRound converts a core.RoundSummary. CombatID is left for the
// writer to stamp with the DB id.
func CoreToCombatRound(s core.RoundSummary) model.CombatRound {
	return model.CombatRound{
		Time:     s.RecordedAt,
		Round:    s.Round,
		Standoff: s.Standoff,
		Factions: toJSON(s.Factions),
	}
}

// CoreToUnitState converts a core.UnitState.
func CoreToUnitState(s core.UnitState) model.UnitState {
	return model.UnitState{
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

// CoreToSitRep converts a core.SitRep.
func CoreToSitRep(s core.SitRep) model.SitRep {
	return model.SitRep{
		Round:     s.Round,
		FactionID: s.FactionID,
		ObjectID:  s.ObjectID,
		Kind:      string(s.Kind),
		Text:      s.Text,
		LocationX: s.Location.X,
		LocationY: s.Location.Y,
	}
}
