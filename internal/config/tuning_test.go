package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supremacy-go/combat/internal/combat"
)

func TestLoadTuning_EmptyPath(t *testing.T) {
	tuning, err := LoadTuning("")
	require.NoError(t, err)
	assert.Equal(t, combat.DefaultTuning(), tuning)
}

func TestLoadTuning_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "balance.yaml")
	doc := `
randomMin: 0.9
randomMax: 1.1
favorTheBold:
  fromTurn: 20
  underdog:
    - {ratio: 0.5, modifier: 1.5}
pacing:
  - {fromTurn: 0, modifier: 1.0}
  - {fromTurn: 50, modifier: 2.0}
scissor:
  Scout:
    Transport: 1.4
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	tuning, err := LoadTuning(path)
	require.NoError(t, err)

	def := combat.DefaultTuning()
	assert.Equal(t, 0.9, tuning.RandomMin)
	assert.Equal(t, 1.1, tuning.RandomMax)
	assert.Equal(t, 20, tuning.FavorTheBold.FromTurn)
	assert.Len(t, tuning.FavorTheBold.Underdog, 1)
	assert.Equal(t, def.FavorTheBold.Overdog, tuning.FavorTheBold.Overdog)
	assert.Len(t, tuning.Pacing, 2)
	assert.Equal(t, 1.4, tuning.Scissor["Scout"]["Transport"])
	assert.Equal(t, def.ShotsPerArmedUnit, tuning.ShotsPerArmedUnit)
	assert.Equal(t, def.Experience, tuning.Experience)
}

func TestLoadTuning_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadTuning(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "reading tuning file")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("randomMin: [1, 2"), 0644))
	_, err = LoadTuning(bad)
	assert.ErrorContains(t, err, "parsing tuning file")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("randomMin: 2\nrandomMax: 1\n"), 0644))
	_, err = LoadTuning(invalid)
	assert.ErrorContains(t, err, "invalid tuning file")
}
