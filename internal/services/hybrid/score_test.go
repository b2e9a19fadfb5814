package hybrid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
)

func ruled(score float64, allPassed bool) Outcome {
	return Outcome{Crop: "Test", HasRules: true, Score: score, AllChecksPassed: allPassed}
}

func TestCombineTiers(t *testing.T) {
	c := DefaultScoreCombiner()
	cases := []struct {
		name     string
		ml       float64
		outcome  Outcome
		warnings int
		final    float64
		tier     entities.Quality
	}{
		{"excellent", 90, ruled(100, true), 0, 94, entities.QualityExcellent},
		{"high score without all checks is good", 95, ruled(90, false), 1, 88, entities.QualityGood},
		{"two warnings cap at moderate", 95, ruled(90, false), 2, 83, entities.QualityModerate},
		{"scenario", 42, ruled(88.3, false), 1, 55.52, entities.QualityModerate},
		{"fair", 40, ruled(40, false), 0, 40, entities.QualityFair},
		{"penalty clamps at zero", 10, ruled(20, false), 3, 0, entities.QualityPoor},
		{"no rules uses confidence only", 77, Outcome{Crop: "Quinoa"}, 0, 77, entities.QualityGood},
		{"no rules is never excellent", 99, Outcome{Crop: "Quinoa", AllChecksPassed: true}, 0, 99, entities.QualityGood},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := c.Combine(tc.ml, tc.outcome, tc.warnings)
			assert.InDelta(t, tc.final, s.Final, 1e-9)
			assert.Equal(t, tc.tier, s.Tier)
			assert.False(t, s.Clamped)
		})
	}
}

func TestCombineWarningPenaltyLaw(t *testing.T) {
	c := DefaultScoreCombiner()
	for _, ml := range []float64{0, 12.5, 42, 75, 100} {
		for _, rule := range []float64{0, 33.3, 88.3, 100} {
			for w := 0; w <= 25; w++ {
				s := c.Combine(ml, ruled(rule, false), w)
				want := math.Min(100, math.Max(0, 0.6*ml+0.4*rule-5*float64(w)))
				assert.InDelta(t, want, s.Final, 1e-9)
				assert.GreaterOrEqual(t, s.Final, 0.0)
				assert.LessOrEqual(t, s.Final, 100.0)
			}
		}
	}
}

func TestCombineOutOfBounds(t *testing.T) {
	c := DefaultScoreCombiner()

	s := c.Combine(150, Outcome{Crop: "Quinoa"}, 0)
	assert.True(t, s.Clamped)
	assert.Equal(t, 150.0, s.Base)
	assert.Equal(t, 100.0, s.Final)

	s = c.Combine(-20, ruled(10, false), 0)
	assert.True(t, s.Clamped)
	assert.Equal(t, 0.0, s.Final)

	s = c.Combine(math.NaN(), Outcome{}, 0)
	assert.True(t, s.Clamped)
	assert.Equal(t, 0.0, s.Final)
	assert.Equal(t, entities.QualityPoor, s.Tier)
}

func TestCombineCustomWeights(t *testing.T) {
	c := ScoreCombiner{MLWeight: 0.5, RuleWeight: 0.5, WarningPenalty: 10}
	s := c.Combine(60, ruled(80, false), 2)
	assert.InDelta(t, 50, s.Final, 1e-9)
	assert.Equal(t, entities.QualityModerate, s.Tier)
}
