package hybrid

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
)

func hasPrefix(list []string, prefix string) bool {
	for _, s := range list {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func TestNewOrchestratorNilClassifier(t *testing.T) {
	_, err := NewOrchestrator(nil, crops("Jute", 42))
	assert.ErrorIs(t, err, ErrNilClassifier)
}

func TestAnalyzeScenario(t *testing.T) {
	o, err := NewOrchestrator(loamy(46), crops("Jute", 42, cand("Mango", 30)), WithAcceptancePolicy(PolicySoil))
	require.NoError(t, err)

	res, err := o.Analyze(context.Background(), scenarioInput())
	require.NoError(t, err)

	assert.Equal(t, "Loamy", res.SoilAnalysis.PredictedType)
	assert.Equal(t, 46.0, res.SoilAnalysis.Confidence)

	rec := res.CropRecommendation
	assert.Equal(t, "Jute", rec.RecommendedCrop)
	assert.Equal(t, 42.0, rec.MLConfidence)
	assert.Equal(t, entities.SourceMLTop, rec.Source)
	assert.False(t, rec.UsedFallback)
	assert.Empty(t, rec.OriginalMLPrediction)
	assert.Equal(t, []entities.Candidate{cand("Mango", 30)}, rec.Alternatives)

	rv := res.RuleValidation
	require.True(t, rv.HasRules)
	require.NotNil(t, rv.ValidationScore)
	assert.Equal(t, 88.3, *rv.ValidationScore)
	assert.False(t, rv.AllChecksPassed)
	assert.Len(t, rv.Validations, 6)
	assert.False(t, rv.Validations["nutrients"].Passed)
	assert.Equal(t, []string{"nutrient_deficient"}, rv.Validations["nutrients"].Codes)
	assert.True(t, rv.Validations["temperature"].Passed)
	assert.False(t, rv.Validations["temperature"].Optimal)

	assert.Equal(t, []string{"Nitrogen: Jute needs HIGH nitrogen, current level is Moderate"}, res.Warnings)
	assert.InDelta(t, 55.52, res.FinalScore, 1e-9)
	assert.InDelta(t, 55.5, res.FinalScore, 0.05)
	assert.Equal(t, entities.QualityModerate, res.RecommendationQuality)

	require.Len(t, res.AlternativeCrops, 5)
	assert.Equal(t, "Mango", res.AlternativeCrops[0].Crop)
	assert.Equal(t, 96.7, res.AlternativeCrops[0].ValidationScore)
	assert.Zero(t, res.AlternativeCrops[0].WarningsCount)
	assert.Greater(t, res.AlternativeCrops[0].ValidationScore, *rv.ValidationScore)

	assert.Contains(t, res.Suggestions, "Temperature 25°C is acceptable for Jute (optimal: 27-35°C)")
	assert.Contains(t, res.Suggestions, "Soil classification confidence is low (46%) - consider physical soil testing for accurate results")
	assert.Contains(t, res.Suggestions, "Mango scores higher under the crop rules (96.7 vs 88.3) - consider it as an alternative")
	assert.False(t, hasPrefix(res.Suggestions, "Selected "))

	assert.Equal(t, scenarioInput(), res.InputSummary)
}

func TestAnalyzeStrictPolicyFallsBack(t *testing.T) {
	o, err := NewOrchestrator(loamy(46), crops("Jute", 42, cand("Mango", 30)))
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, o.Policy())

	res, err := o.Analyze(context.Background(), scenarioInput())
	require.NoError(t, err)

	rec := res.CropRecommendation
	assert.Equal(t, "Mango", rec.RecommendedCrop)
	assert.Equal(t, "Jute", rec.OriginalMLPrediction)
	assert.True(t, rec.UsedFallback)
	assert.Equal(t, entities.SourceMLAlternative, rec.Source)
	assert.Equal(t, []entities.Candidate{cand("Jute", 42)}, rec.Alternatives)

	assert.Empty(t, res.Warnings)
	assert.InDelta(t, 0.6*30+0.4*96.7, res.FinalScore, 1e-9)
	assert.Equal(t, entities.QualityModerate, res.RecommendationQuality)
	assert.Equal(t, "Selected Mango (better suited than the classifier's first choice: Jute)", res.Suggestions[0])
	assert.Contains(t, res.Suggestions, "Crops skipped after rule validation: Jute")
}

func TestAnalyzeRoundTripWithoutWarnings(t *testing.T) {
	o, err := NewOrchestrator(loamy(91), crops("Mango", 85))
	require.NoError(t, err)

	res, err := o.Analyze(context.Background(), mangoInput())
	require.NoError(t, err)

	require.True(t, res.RuleValidation.AllChecksPassed)
	assert.Empty(t, res.Warnings)
	assert.InDelta(t, 0.6*res.CropRecommendation.MLConfidence+0.4**res.RuleValidation.ValidationScore, res.FinalScore, 1e-9)
	assert.Equal(t, entities.QualityExcellent, res.RecommendationQuality)
	assert.False(t, hasPrefix(res.Suggestions, "Soil classification confidence is low"))
}

func TestAnalyzeMissingRules(t *testing.T) {
	o, err := NewOrchestrator(loamy(80), crops("Quinoa", 64.5, cand("Mango", 20)))
	require.NoError(t, err)

	res, err := o.Analyze(context.Background(), scenarioInput())
	require.NoError(t, err)

	assert.Equal(t, "Quinoa", res.CropRecommendation.RecommendedCrop)
	assert.False(t, res.RuleValidation.HasRules)
	assert.Nil(t, res.RuleValidation.ValidationScore)
	assert.Empty(t, res.RuleValidation.Validations)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 64.5, res.FinalScore)
}

func TestAnalyzeEmptyPool(t *testing.T) {
	o, err := NewOrchestrator(loamy(80), crops("", 0))
	require.NoError(t, err)

	res, err := o.Analyze(context.Background(), scenarioInput())
	require.NoError(t, err)
	assert.Equal(t, "", res.CropRecommendation.RecommendedCrop)
	assert.False(t, res.RuleValidation.HasRules)
	assert.Equal(t, 0.0, res.FinalScore)
	assert.Equal(t, entities.QualityPoor, res.RecommendationQuality)
}

func TestAnalyzeClassifierFailure(t *testing.T) {
	boom := errors.New("model server down")

	t.Run("soil", func(t *testing.T) {
		soil, crop := &fakeSoil{err: boom}, crops("Jute", 42)
		o, err := NewOrchestrator(soil, crop)
		require.NoError(t, err)

		res, err := o.Analyze(context.Background(), scenarioInput())
		assert.Nil(t, res)
		assert.ErrorIs(t, err, boom)
		var ce *ClassifierError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, PortSoil, ce.Port)
		assert.Zero(t, crop.calls)
	})

	t.Run("crop", func(t *testing.T) {
		o, err := NewOrchestrator(loamy(90), &fakeCrop{err: boom})
		require.NoError(t, err)

		res, err := o.Analyze(context.Background(), scenarioInput())
		assert.Nil(t, res)
		var ce *ClassifierError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, PortCrop, ce.Port)
		assert.Contains(t, err.Error(), "crop classifier")
	})
}

func TestAnalyzeDeterministic(t *testing.T) {
	o, err := NewOrchestrator(loamy(46), crops("Jute", 42, cand("Mango", 30), cand("Rice", 12)))
	require.NoError(t, err)

	first, err := o.Analyze(context.Background(), scenarioInput())
	require.NoError(t, err)
	want, err := json.Marshal(first)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		res, err := o.Analyze(context.Background(), scenarioInput())
		require.NoError(t, err)
		got, err := json.Marshal(res)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got))
	}
}

func TestAnalyzeProperties(t *testing.T) {
	inputs := []entities.EnvironmentalInput{
		scenarioInput(), mangoInput(),
		{Nitrogen: 20, Phosphorus: 70, Potassium: 30, Temperature: 15, Humidity: 40, PH: 5.2, Rainfall: 60},
		{Nitrogen: 120, Phosphorus: 20, Potassium: 90, Temperature: 33, Humidity: 90, PH: 7.8, Rainfall: 280},
		{Nitrogen: 0, Phosphorus: 0, Potassium: 0, Temperature: -5, Humidity: 5, PH: 3, Rainfall: 0},
	}
	for _, policy := range []AcceptancePolicy{PolicyStrict, PolicySoil} {
		for _, in := range inputs {
			for _, top := range []string{"Jute", "Mango", "Rice", "Quinoa"} {
				for _, conf := range []float64{0, 35, 99.9} {
					o, err := NewOrchestrator(loamy(conf), crops(top, conf, cand("Coffee", conf/2)), WithAcceptancePolicy(policy))
					require.NoError(t, err)
					res, err := o.Analyze(context.Background(), in)
					require.NoError(t, err)

					assert.GreaterOrEqual(t, res.FinalScore, 0.0)
					assert.LessOrEqual(t, res.FinalScore, 100.0)
					if res.RecommendationQuality == entities.QualityExcellent {
						assert.True(t, res.RuleValidation.AllChecksPassed)
					}

					base := res.CropRecommendation.MLConfidence
					if res.RuleValidation.HasRules {
						base = 0.6*base + 0.4**res.RuleValidation.ValidationScore
					}
					want := math.Min(100, math.Max(0, base-5*float64(len(res.Warnings))))
					assert.InDelta(t, want, res.FinalScore, 1e-9)
				}
			}
		}
	}
}

func TestRankCatalog(t *testing.T) {
	o, err := NewOrchestrator(loamy(80), crops("Jute", 42))
	require.NoError(t, err)

	all := o.RankCatalog("Sandy", scenarioInput(), 0)
	require.NotEmpty(t, all)
	for i, rc := range all {
		assert.NotEqual(t, "Jute", rc.Crop, "jute does not grow on sandy soil")
		if i > 0 {
			assert.LessOrEqual(t, rc.ValidationScore, all[i-1].ValidationScore)
		}
	}

	top := o.RankCatalog("Loamy", scenarioInput(), 5)
	names := make([]string, 0, len(top))
	for _, rc := range top {
		names = append(names, rc.Crop)
	}
	assert.Equal(t, []string{"Mango", "Banana", "Papaya", "Coconut", "Orange"}, names)

	assert.Empty(t, o.RankCatalog("Gravel", scenarioInput(), 5))
}

func TestWithCatalog(t *testing.T) {
	c, err := NewCatalog([]entities.CropRule{testRule("alpha")})
	require.NoError(t, err)
	o, err := NewOrchestrator(loamy(80), crops("alpha", 60), WithCatalog(c), WithAlternativesLimit(0), WithSoilConfidenceThreshold(90))
	require.NoError(t, err)
	assert.Equal(t, 1, o.Catalog().Len())

	res, err := o.Analyze(context.Background(), scenarioInput())
	require.NoError(t, err)
	assert.Equal(t, "alpha", res.CropRecommendation.RecommendedCrop)
	assert.Len(t, res.AlternativeCrops, 1)
	assert.True(t, hasPrefix(res.Suggestions, "Soil classification confidence is low"))
}
