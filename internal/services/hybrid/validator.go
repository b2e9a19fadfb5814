package hybrid

import (
	"math"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
)

// Tier is the band a measurement falls in for one dimension.
type Tier string

const (
	TierOptimal    Tier = "optimal"
	TierAcceptable Tier = "acceptable"
	TierFailing    Tier = "failing"
)

type tierScores struct{ optimal, acceptable, failing float64 }

// Per-dimension scores. Nutrients have no middle band: any deficiency is a
// failure scored at 0.6.
var dimensionScores = map[Dimension]tierScores{
	DimPH:          {1.0, 0.7, 0.0},
	DimSoil:        {1.0, 0.7, 0.0},
	DimRainfall:    {1.0, 0.7, 0.3},
	DimTemperature: {1.0, 0.7, 0.2},
	DimHumidity:    {1.0, 0.8, 0.4},
	DimNutrients:   {1.0, 0.6, 0.6},
}

func (s tierScores) of(t Tier) float64 {
	switch t {
	case TierOptimal:
		return s.optimal
	case TierAcceptable:
		return s.acceptable
	default:
		return s.failing
	}
}

type DimensionOutcome struct {
	Dimension Dimension
	Tier      Tier
	Score     float64
	Findings  []Finding
}

func (d DimensionOutcome) Passed() bool  { return d.Tier != TierFailing }
func (d DimensionOutcome) Optimal() bool { return d.Tier == TierOptimal }

// Outcome is the validation of one crop against one input. Score is only
// meaningful when HasRules is true.
type Outcome struct {
	Crop            string
	HasRules        bool
	Score           float64
	AllChecksPassed bool
	Dimensions      []DimensionOutcome
	Findings        []Finding
	Description     string
}

func (o Outcome) Warnings() []Finding   { return o.filter(SeverityWarning) }
func (o Outcome) Advisories() []Finding { return o.filter(SeverityAdvisory) }

func (o Outcome) WarningCount() int {
	n := 0
	for _, f := range o.Findings {
		if f.IsWarning() {
			n++
		}
	}
	return n
}

// Dimension returns the outcome of a single dimension.
func (o Outcome) Dimension(d Dimension) (DimensionOutcome, bool) {
	for _, do := range o.Dimensions {
		if do.Dimension == d {
			return do, true
		}
	}
	return DimensionOutcome{}, false
}

func (o Outcome) filter(s Severity) []Finding {
	var out []Finding
	for _, f := range o.Findings {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

// Validator checks crops of a catalog against environmental inputs. It holds
// no state besides the catalog.
type Validator struct {
	catalog *Catalog
}

func NewValidator(c *Catalog) *Validator {
	return &Validator{catalog: c}
}

// Validate scores crop on soilType and in. A crop missing from the catalog
// yields HasRules=false and no findings.
func (v *Validator) Validate(crop, soilType string, in entities.EnvironmentalInput) Outcome {
	rule, ok := v.catalog.Lookup(crop)
	if !ok {
		return Outcome{Crop: strings.TrimSpace(crop)}
	}

	dims := []DimensionOutcome{
		checkBanded(DimPH, rule.Name, in.PH, rule.PHOptimal, rule.PH,
			CodePHSuboptimal, CodePHOutOfRange, CodePHOutOfRange),
		checkSoil(rule, soilType),
		checkBanded(DimRainfall, rule.Name, in.Rainfall, rule.RainfallOptimal, rule.Rainfall,
			CodeRainfallSuboptimal, CodeRainfallLow, CodeRainfallHigh),
		checkBanded(DimTemperature, rule.Name, in.Temperature, rule.TemperatureOptimal, rule.Temperature,
			CodeTemperatureSuboptimal, CodeTemperatureLow, CodeTemperatureHigh),
		checkBanded(DimHumidity, rule.Name, in.Humidity, rule.HumidityOptimal(), rule.Humidity,
			CodeHumiditySuboptimal, CodeHumidityOutOfRange, CodeHumidityOutOfRange),
		checkNutrients(rule, in),
	}

	out := Outcome{
		Crop:            rule.Name,
		HasRules:        true,
		AllChecksPassed: true,
		Dimensions:      dims,
		Description:     rule.Description,
	}
	scores := make([]float64, 0, len(dims))
	for _, d := range dims {
		scores = append(scores, d.Score)
		out.Findings = append(out.Findings, d.Findings...)
		if !d.Optimal() {
			out.AllChecksPassed = false
		}
	}
	out.Score = ruleScore(scores)
	return out
}

// ruleScore is the mean dimension score on a 0-100 scale, one decimal.
func ruleScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	return round1(stat.Mean(scores, nil) * 100)
}

func round1(v float64) float64 {
	r, err := stats.Round(v, 1)
	if err != nil {
		return 0
	}
	return r
}

func checkBanded(dim Dimension, crop string, v float64, optimal, acceptable entities.Range, suboptimal, below, above Code) DimensionOutcome {
	f := Finding{Dimension: dim, Crop: crop, Observed: v, Requirement: acceptable}
	var tier Tier
	switch {
	case !finite(v):
		tier, f.Code, f.Severity = TierFailing, CodeInvalidMeasurement, SeverityWarning
	case optimal.Contains(v):
		return dimension(dim, TierOptimal)
	case acceptable.Contains(v):
		tier, f.Code, f.Severity = TierAcceptable, suboptimal, SeverityAdvisory
		f.Requirement = optimal
	case v < acceptable.Min:
		tier, f.Code, f.Severity = TierFailing, below, SeverityWarning
	default:
		tier, f.Code, f.Severity = TierFailing, above, SeverityWarning
	}
	d := dimension(dim, tier)
	d.Findings = []Finding{f}
	return d
}

func checkSoil(rule entities.CropRule, soil string) DimensionOutcome {
	soil = strings.TrimSpace(soil)
	switch {
	case soil != "" && rule.PrefersSoil(soil):
		return dimension(DimSoil, TierOptimal)
	case soil != "" && rule.AcceptsSoil(soil):
		d := dimension(DimSoil, TierAcceptable)
		d.Findings = []Finding{{
			Code: CodeSoilAcceptable, Dimension: DimSoil, Severity: SeverityAdvisory,
			Crop: rule.Name, Soil: soil, Soils: rule.PreferredSoils,
		}}
		return d
	default:
		d := dimension(DimSoil, TierFailing)
		d.Findings = []Finding{{
			Code: CodeSoilUnsuitable, Dimension: DimSoil, Severity: SeverityWarning,
			Crop: rule.Name, Soil: soil, Soils: rule.SuitableSoils(),
		}}
		return d
	}
}

// checkNutrients only penalizes unmet High needs. Excess of a nutrient the
// crop needs little of is reported but does not lower the score.
func checkNutrients(rule entities.CropRule, in entities.EnvironmentalInput) DimensionOutcome {
	checks := []struct {
		nutrient entities.Nutrient
		value    float64
		need     entities.NutrientLevel
	}{
		{entities.Nitrogen, in.Nitrogen, rule.NitrogenNeed},
		{entities.Phosphorus, in.Phosphorus, rule.PhosphorusNeed},
		{entities.Potassium, in.Potassium, rule.PotassiumNeed},
	}

	deficient := false
	var findings []Finding
	for _, c := range checks {
		f := Finding{Dimension: DimNutrients, Crop: rule.Name, Observed: c.value, Nutrient: c.nutrient, Need: c.need}
		if !finite(c.value) {
			f.Code, f.Severity = CodeInvalidMeasurement, SeverityWarning
			findings = append(findings, f)
			deficient = true
			continue
		}
		f.Level = entities.ClassifyNutrient(c.nutrient, c.value)
		switch {
		case c.need == entities.NutrientHigh && f.Level != entities.NutrientHigh:
			f.Code, f.Severity = CodeNutrientDeficient, SeverityWarning
			deficient = true
		case c.need == entities.NutrientLow && f.Level == entities.NutrientHigh:
			f.Code, f.Severity = CodeNutrientExcess, SeverityAdvisory
		default:
			continue
		}
		findings = append(findings, f)
	}

	tier := TierOptimal
	if deficient {
		tier = TierFailing
	}
	d := dimension(DimNutrients, tier)
	d.Findings = findings
	return d
}

func dimension(dim Dimension, t Tier) DimensionOutcome {
	return DimensionOutcome{Dimension: dim, Tier: t, Score: dimensionScores[dim].of(t)}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
