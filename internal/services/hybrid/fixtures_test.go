package hybrid

import (
	"context"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
)

// scenarioInput is the reference field: N80 P50 K60, 25°C, 75%, pH 6.5, 200mm.
func scenarioInput() entities.EnvironmentalInput {
	return entities.EnvironmentalInput{
		Nitrogen: 80, Phosphorus: 50, Potassium: 60,
		Temperature: 25, Humidity: 75, PH: 6.5, Rainfall: 200,
	}
}

// mangoInput is scenarioInput with a humidity every Mango check accepts as optimal.
func mangoInput() entities.EnvironmentalInput {
	in := scenarioInput()
	in.Humidity = 60
	return in
}

type fakeSoil struct {
	pred  entities.SoilPrediction
	err   error
	calls int
}

func (f *fakeSoil) Classify(_ context.Context, _ entities.EnvironmentalInput) (entities.SoilPrediction, error) {
	f.calls++
	return f.pred, f.err
}

type fakeCrop struct {
	pred  entities.CropPrediction
	err   error
	calls int
}

func (f *fakeCrop) Recommend(_ context.Context, _ entities.EnvironmentalInput) (entities.CropPrediction, error) {
	f.calls++
	return f.pred, f.err
}

func loamy(conf float64) *fakeSoil {
	return &fakeSoil{pred: entities.SoilPrediction{
		Label:        "Loamy",
		Confidence:   conf,
		Distribution: map[string]float64{"Loamy": conf, "Clayey": 100 - conf},
	}}
}

func crops(top string, conf float64, alts ...entities.Candidate) *fakeCrop {
	return &fakeCrop{pred: entities.CropPrediction{Label: top, Confidence: conf, Alternatives: alts}}
}

func cand(label string, conf float64) entities.Candidate {
	return entities.Candidate{Label: label, Confidence: conf}
}

// testRule returns a rule every dimension of which scenarioInput satisfies
// only partially, so it never passes the strict policy.
func testRule(key string) entities.CropRule {
	return entities.CropRule{
		Key:                key,
		PH:                 rng(5, 8),
		PHOptimal:          rng(6, 7),
		PreferredSoils:     []string{"Loamy"},
		AcceptableSoils:    []string{"Silty"},
		Rainfall:           rng(100, 300),
		RainfallOptimal:    rng(150, 250),
		Temperature:        rng(20, 40),
		TemperatureOptimal: rng(28, 35),
		Humidity:           rng(40, 100),
		NitrogenNeed:       moderate,
		PhosphorusNeed:     moderate,
		PotassiumNeed:      moderate,
	}
}
