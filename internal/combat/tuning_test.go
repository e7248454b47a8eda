package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTuningIsValid(t *testing.T) {
	assert.NoError(t, DefaultTuning().Validate())
}

func TestTuningValidate(t *testing.T) {
	tn := DefaultTuning()
	tn.RandomMin = 2
	tn.ShotsPerArmedUnit = 0
	delete(tn.Experience, "Elite")
	tn.Scissor["Battleship"] = map[string]float64{"Cruiser": 2}

	err := tn.Validate()
	assert.ErrorContains(t, err, "random range")
	assert.ErrorContains(t, err, "shotsPerArmedUnit")
	assert.ErrorContains(t, err, "Elite")
	assert.ErrorContains(t, err, "Battleship")
}

func TestExperienceTable(t *testing.T) {
	tn := DefaultTuning()
	assert.InDelta(t, 0.70, tn.rank(RankUnknown).Accuracy, 1e-9)
	assert.InDelta(t, 0.55, tn.rank(RankUnknown).DamageControl, 1e-9)
	assert.InDelta(t, 1.1, tn.rank(RankLegendary).Accuracy, 1e-9)
	assert.InDelta(t, 0.65, tn.rank(RankLegendary).DamageControl, 1e-9)
}

func TestScissor(t *testing.T) {
	tn := DefaultTuning()
	assert.Equal(t, 1.2, tn.scissor(ShipDestroyer, ShipCommand))
	assert.Equal(t, 1.15, tn.scissor(ShipFrigate, ShipColony))
	assert.Equal(t, 1.0, tn.scissor(ShipCommand, ShipDestroyer))
}

func TestFavorTheBold(t *testing.T) {
	tn := DefaultTuning()
	tests := []struct {
		turn  int
		ratio float64
		want  float64
	}{
		{1, 0.1, 1},
		{50, 0.3, 1.3},
		{50, 0.6, 1.15},
		{50, 1, 1},
		{50, 3, 0.85},
		{50, 5, 0.7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tn.favorTheBold(tt.turn, tt.ratio), "turn %d ratio %v", tt.turn, tt.ratio)
	}
}

func TestPacing(t *testing.T) {
	tn := DefaultTuning()
	assert.Equal(t, 1.0, tn.pacing(0))
	assert.Equal(t, 1.0, tn.pacing(149))
	assert.Equal(t, 1.1, tn.pacing(150))
	assert.Equal(t, 1.2, tn.pacing(1000))
}
