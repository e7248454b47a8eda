package v1

import (
	"cmp"
	"slices"
	"time"

	"github.com/supremacy-go/combat/internal/queue"
	"github.com/supremacy-go/combat/pkg/core"
)

// CombatData contains all the data needed to build an export
type CombatData struct {
	Combat  *core.Combat
	Result  *core.CombatResult
	Rounds  []core.RoundSummary
	Units   map[int]*UnitRecord
	SitReps []core.SitRep
}

// UnitRecord groups a unit with its state history
type UnitRecord struct {
	Unit   core.UnitState
	States *queue.RoundMap[core.UnitState]
}

// NewUnitRecord starts a record from the first reported state
func NewUnitRecord(s core.UnitState) *UnitRecord {
	r := &UnitRecord{Unit: s, States: queue.NewRoundMap[core.UnitState]()}
	r.States.Set(s.Round, s)
	return r
}

// Build creates an Export from the combat data
func Build(data *CombatData) Export {
	export := Export{
		Version:    FormatVersion,
		CombatID:   data.Combat.ID,
		UUID:       data.Combat.UUID,
		Tag:        data.Combat.Tag,
		Location:   data.Combat.Location,
		TurnNumber: data.Combat.TurnNumber,
		StartTime:  data.Combat.StartTime.UTC().Format(time.RFC3339),
		Factions:   make([]Faction, 0, len(data.Combat.Factions)),
		Units:      make([]Unit, 0, len(data.Units)),
		Timeline:   make([]Round, 0, len(data.Rounds)),
		SitReps:    make([][]any, 0, len(data.SitReps)),
	}

	survivors := map[int]bool{}
	if data.Result != nil {
		export.EndTime = data.Result.EndTime.UTC().Format(time.RFC3339)
		export.Rounds = data.Result.Rounds
		export.Standoff = data.Result.Standoff
		for _, id := range data.Result.Survivors {
			survivors[id] = true
		}
	}

	for _, f := range data.Combat.Factions {
		export.Factions = append(export.Factions, Faction{
			ID:        f.ID,
			Name:      f.Name,
			ShortName: f.ShortName,
			IsHuman:   f.IsHuman,
			Survived:  survivors[f.ID],
		})
	}

	lastRound := 0
	for _, r := range data.Rounds {
		export.Timeline = append(export.Timeline, Round{
			Round:    r.Round,
			Standoff: r.Standoff,
			Factions: r.Factions,
		})
		lastRound = max(lastRound, r.Round)
	}
	slices.SortFunc(export.Timeline, func(a, b Round) int { return cmp.Compare(a.Round, b.Round) })
	for _, rec := range data.Units {
		if rounds := rec.States.Rounds(); len(rounds) > 0 {
			lastRound = max(lastRound, rounds[len(rounds)-1])
		}
	}
	if export.Rounds == 0 {
		export.Rounds = lastRound
	}

	// The frontend indexes states by round number, so every unit gets
	// lastRound+1 entries; rounds before the unit appeared are null.
	for _, rec := range data.Units {
		unit := Unit{
			ID:        rec.Unit.ObjectID,
			Owner:     rec.Unit.OwnerID,
			Name:      rec.Unit.Name,
			Design:    rec.Unit.Design,
			ShipType:  rec.Unit.ShipType,
			IsStation: rec.Unit.IsStation,
			MaxHull:   rec.Unit.MaxHull,
			MaxShield: rec.Unit.MaxShield,
			Fate:      core.UnitActive,
			States:    make([][]any, lastRound+1),
		}
		for r := 0; r <= lastRound; r++ {
			s, err := rec.States.At(r)
			if err != nil {
				continue
			}
			unit.States[r] = []any{s.Hull, s.Shield, s.Firepower, s.Status}
		}
		if last, ok := rec.States.Last(); ok {
			unit.Fate = last.Status
		}
		export.Units = append(export.Units, unit)
	}
	slices.SortFunc(export.Units, func(a, b Unit) int { return cmp.Compare(a.ID, b.ID) })

	// Format: [round, factionId, kind, objectId, text]
	for _, s := range data.SitReps {
		export.SitReps = append(export.SitReps, []any{
			s.Round,
			s.FactionID,
			string(s.Kind),
			s.ObjectID,
			s.Text,
		})
	}

	return export
}
