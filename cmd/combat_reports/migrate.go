package main

import (
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/supremacy-go/combat/internal/database"
	"github.com/supremacy-go/combat/internal/model"
)

// migrateBackups copies the combats of every SQLite backup in dir into dst.
// Combats whose UUID dst already holds are skipped. Each migrated backup is
// renamed to <name>.migrated.
func migrateBackups(dst *gorm.DB, dir string) error {
	sqlitePaths, err := database.GetBackupDBPaths(dir)
	if err != nil {
		return fmt.Errorf("error getting backup database paths: %w", err)
	}
	if err := database.Setup(dst); err != nil {
		return err
	}

	var successfulMigrations []string
	for _, sqlitePath := range sqlitePaths {
		src, err := database.GetSqliteDB(sqlitePath)
		if err != nil {
			return fmt.Errorf("error getting sqlite database: %w", err)
		}

		migrated, err := migrateDB(src, dst)
		if err != nil {
			return fmt.Errorf("migrating %s: %w", sqlitePath, err)
		}
		Logger.Info("Migrated backup", "path", sqlitePath, "combats", migrated)

		sqlConnection, err := src.DB()
		if err != nil {
			Logger.Error("Error getting sqlite connection", "error", err)
			continue
		}
		if err := sqlConnection.Close(); err != nil {
			Logger.Error("Error closing sqlite connection", "error", err)
		}
		if err := os.Rename(sqlitePath, sqlitePath+".migrated"); err != nil {
			Logger.Error("Error renaming sqlite file", "error", err)
		}
		successfulMigrations = append(successfulMigrations, sqlitePath)
	}

	Logger.Info("Successfully migrated backups",
		"count", len(successfulMigrations),
		"paths", successfulMigrations)
	return nil
}

// migrateDB copies every combat with its records from src to dst in one
// transaction and returns the number of combats copied.
func migrateDB(src, dst *gorm.DB) (int, error) {
	var combats []model.Combat
	err := src.Model(&model.Combat{}).
		Preload("Factions").
		Preload("RoundSummaries").
		Preload("UnitStates").
		Preload("SitReps").
		Order("id ASC").
		Find(&combats).Error
	if err != nil {
		return 0, fmt.Errorf("error reading combats: %w", err)
	}

	migrated := 0
	err = dst.Transaction(func(tx *gorm.DB) error {
		for i := range combats {
			c := &combats[i]
			var n int64
			if err := tx.Model(&model.Combat{}).Where("uuid = ?", c.UUID).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				Logger.Debug("Combat already present, skipping", "uuid", c.UUID)
				continue
			}

			resetIDs(c)
			if err := tx.Create(c).Error; err != nil {
				return fmt.Errorf("error inserting combat %s: %w", c.UUID, err)
			}
			migrated++
		}
		return nil
	})
	return migrated, err
}

// resetIDs clears primary and foreign keys so that dst assigns new ones.
func resetIDs(c *model.Combat) {
	c.ID = 0
	for i := range c.Factions {
		c.Factions[i].ID, c.Factions[i].CombatID = 0, 0
	}
	for i := range c.RoundSummaries {
		c.RoundSummaries[i].ID, c.RoundSummaries[i].CombatID = 0, 0
	}
	for i := range c.UnitStates {
		c.UnitStates[i].ID, c.UnitStates[i].CombatID = 0, 0
	}
	for i := range c.SitReps {
		c.SitReps[i].ID, c.SitReps[i].CombatID = 0, 0
	}
}
