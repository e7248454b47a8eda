package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/supremacy-go/combat/internal/model"
	"github.com/supremacy-go/combat/internal/model/convert"
	"github.com/supremacy-go/combat/internal/storage"
	v1 "github.com/supremacy-go/combat/internal/storage/memory/export/v1"
	"github.com/supremacy-go/combat/pkg/core"
)

// exportCombats writes one gzipped report per combat. A key is either the
// row id or the combat UUID.
func exportCombats(db *gorm.DB, keys []string, outputDir string) ([]storage.ExportedFile, error) {
	fmt.Println("Getting JSON for combats: ", keys)

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var exported []storage.ExportedFile
	for _, key := range keys {
		txStart := time.Now()
		row, err := findCombat(db, key)
		if err != nil {
			return exported, err
		}
		data, err := loadCombatData(db, row)
		if err != nil {
			return exported, fmt.Errorf("combat %s: %w", key, err)
		}
		export := v1.Build(data)

		filename := fmt.Sprintf("combat_%d_%s_%s.json.gz", export.CombatID, data.Combat.StartTime.Format("20060102_150405"), export.UUID)
		path := filepath.Join(outputDir, filename)
		if err := writeGzipJSON(path, export); err != nil {
			return exported, err
		}
		Logger.Info("Exported combat", "key", key, "path", path, "duration", time.Since(txStart))

		exported = append(exported, storage.ExportedFile{
			Path: path,
			Metadata: core.UploadMetadata{
				CombatID:   export.CombatID,
				CombatUUID: export.UUID,
				Location:   export.Location.String(),
				Rounds:     export.Rounds,
				Tag:        export.Tag,
			},
		})
	}
	return exported, nil
}

func findCombat(db *gorm.DB, key string) (model.Combat, error) {
	var row model.Combat
	q := db.Model(&model.Combat{}).Preload("Factions")
	if id, err := strconv.ParseUint(key, 10, 64); err == nil {
		q = q.Where("id = ?", id)
	} else {
		q = q.Where("uuid = ?", key)
	}
	if err := q.First(&row).Error; err != nil {
		return row, fmt.Errorf("error getting combat %s: %w", key, err)
	}
	return row, nil
}

// loadCombatData reads everything recorded for a combat row.
func loadCombatData(db *gorm.DB, row model.Combat) (*v1.CombatData, error) {
	c := convert.CombatToCore(row)
	data := &v1.CombatData{
		Combat: &c,
		Units:  make(map[int]*v1.UnitRecord),
	}
	if r, ok := convert.CombatResultToCore(row); ok {
		data.Result = &r
	}

	var rounds []model.CombatRound
	if err := db.Where("combat_id = ?", row.ID).Order("round ASC").Find(&rounds).Error; err != nil {
		return nil, fmt.Errorf("error getting rounds: %w", err)
	}
	for _, r := range rounds {
		data.Rounds = append(data.Rounds, convert.CombatRoundToCore(r, row.EngineID))
	}

	var states []model.UnitState
	if err := db.Where("combat_id = ?", row.ID).Order("round ASC, object_id ASC").Find(&states).Error; err != nil {
		return nil, fmt.Errorf("error getting unit states: %w", err)
	}
	for _, s := range states {
		state := convert.UnitStateToCore(s, row.EngineID)
		if rec, ok := data.Units[state.ObjectID]; ok {
			rec.States.Set(state.Round, state)
			continue
		}
		data.Units[state.ObjectID] = v1.NewUnitRecord(state)
	}

	var sitreps []model.SitRep
	if err := db.Where("combat_id = ?", row.ID).Order("round ASC, id ASC").Find(&sitreps).Error; err != nil {
		return nil, fmt.Errorf("error getting sitreps: %w", err)
	}
	for _, s := range sitreps {
		data.SitReps = append(data.SitReps, convert.SitRepToCore(s, row.EngineID))
	}
	return data, nil
}

func writeGzipJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(data); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gz.Close()
}
