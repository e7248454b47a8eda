package model_test

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supremacy-go/combat/internal/database"
	"github.com/supremacy-go/combat/internal/model"
)

func TestTimesReadBackFromSqliteFile(t *testing.T) {
	db, err := database.GetSqliteDB(filepath.Join(t.TempDir(), "combats.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	require.NoError(t, database.Setup(db))

	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	c := model.Combat{
		EngineID:  4,
		UUID:      "c0ffee00-0000-4000-8000-000000000004",
		StartTime: start,
		EndTime:   sql.NullTime{Time: end, Valid: true},
		Survivors: []byte("[1]"),
	}
	require.NoError(t, db.Create(&c).Error)
	require.NoError(t, db.Create(&model.CombatRound{CombatID: c.ID, Round: 1, Time: start, Factions: []byte("[]")}).Error)
	require.NoError(t, db.Create(&model.UnitState{CombatID: c.ID, Round: 1, ObjectID: 7, Time: start}).Error)
	require.NoError(t, db.Create(&model.SitRep{CombatID: c.ID, Round: 1, Kind: "destroyed", Time: end}).Error)
	require.NoError(t, db.Create(&model.CombatPerformance{Time: end, ActiveCombats: 1}).Error)

	var got model.Combat
	require.NoError(t, db.Preload("RoundSummaries").Preload("UnitStates").Preload("SitReps").First(&got, c.ID).Error)
	assert.True(t, got.StartTime.Equal(start))
	require.True(t, got.EndTime.Valid)
	assert.True(t, got.EndTime.Time.Equal(end))
	require.Len(t, got.RoundSummaries, 1)
	assert.True(t, got.RoundSummaries[0].Time.Equal(start))
	require.Len(t, got.UnitStates, 1)
	assert.True(t, got.UnitStates[0].Time.Equal(start))
	require.Len(t, got.SitReps, 1)
	assert.True(t, got.SitReps[0].Time.Equal(end))

	var perf model.CombatPerformance
	require.NoError(t, db.Take(&perf).Error)
	assert.True(t, perf.Time.Equal(end))
}
