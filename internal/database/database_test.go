package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supremacy-go/combat/internal/model"
)

func TestPostgresDSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "db.local")
	viper.Set("db.port", "5433")
	viper.Set("db.username", "combat")
	viper.Set("db.password", "secret")
	viper.Set("db.database", "reports")

	assert.Equal(t,
		"host=db.local port=5433 user=combat password=secret dbname=reports sslmode=disable",
		PostgresDSN())
}

func TestSetup(t *testing.T) {
	db, err := GetSqliteDB(filepath.Join(t.TempDir(), "setup.db"))
	require.NoError(t, err)

	require.NoError(t, Setup(db))
	require.NoError(t, Setup(db), "setup is idempotent")

	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}

	var infos []model.ReportInfo
	require.NoError(t, db.Find(&infos).Error)
	assert.Len(t, infos, 1)
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	dir := t.TempDir()
	db, err := GetSqliteDB(filepath.Join(dir, "live.db"))
	require.NoError(t, err)
	require.NoError(t, Setup(db))

	out := filepath.Join(dir, "dump.db")
	require.NoError(t, DumpMemoryDBToDisk(db, out))
	require.NoError(t, DumpMemoryDBToDisk(db, out), "existing dump is replaced")

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.Error(t, DumpMemoryDBToDisk(db, ""))
}

func TestManagerDumpMemoryToDisk(t *testing.T) {
	dir := t.TempDir()
	db, err := GetSqliteDB(filepath.Join(dir, "live.db"))
	require.NoError(t, err)

	m := NewManager(zerolog.Nop())
	m.DB = db
	m.SqliteFilePath = filepath.Join(dir, "manager.db")
	require.NoError(t, m.Setup())
	require.NoError(t, m.DumpMemoryToDisk())

	_, err = os.Stat(m.SqliteFilePath)
	assert.NoError(t, err)
}

func TestGetBackupDBPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.db", "b.db", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "c.db"), 0755))

	paths, err := GetBackupDBPaths(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.db"), filepath.Join(dir, "b.db")}, paths)

	_, err = GetBackupDBPaths(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
