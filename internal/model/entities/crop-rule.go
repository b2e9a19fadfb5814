package entities

import "strings"

// NutrientLevel is both the need of a crop and the observed level of a nutrient.
type NutrientLevel string

const (
	NutrientLow      NutrientLevel = "Low"
	NutrientModerate NutrientLevel = "Moderate"
	NutrientHigh     NutrientLevel = "High"
)

// Range is an inclusive [Min, Max] band.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Within reports whether r lies entirely inside outer.
func (r Range) Within(outer Range) bool { return r.Min >= outer.Min && r.Max <= outer.Max }

func (r Range) Valid() bool { return r.Min <= r.Max }

// CropRule holds the agronomic constraints of one crop. Built once at
// startup and never mutated; slices must be treated as read-only.
type CropRule struct {
	Key  string `json:"key"`  // catalog identifier, lower case (e.g. "rice")
	Name string `json:"name"` // display name (e.g. "Rice")

	PH        Range `json:"ph"`
	PHOptimal Range `json:"ph_optimal"`

	PreferredSoils  []string `json:"preferred_soils"`
	AcceptableSoils []string `json:"acceptable_soils"`

	Rainfall        Range `json:"rainfall"`         // mm
	RainfallOptimal Range `json:"rainfall_optimal"` // mm

	Temperature        Range `json:"temperature"`         // °C
	TemperatureOptimal Range `json:"temperature_optimal"` // °C

	Humidity Range `json:"humidity"` // %

	NitrogenNeed   NutrientLevel `json:"nitrogen_need"`
	PhosphorusNeed NutrientLevel `json:"phosphorus_need"`
	PotassiumNeed  NutrientLevel `json:"potassium_need"`

	Description string `json:"description"`
}

// HumidityOptimal is the band around the midpoint of the acceptable humidity
// range, 30% of its width on each side.
func (r CropRule) HumidityOptimal() Range {
	mid := (r.Humidity.Min + r.Humidity.Max) / 2
	half := (r.Humidity.Max - r.Humidity.Min) * 0.3
	return Range{Min: mid - half, Max: mid + half}
}

func (r CropRule) PrefersSoil(soil string) bool { return containsFold(r.PreferredSoils, soil) }
func (r CropRule) AcceptsSoil(soil string) bool { return containsFold(r.AcceptableSoils, soil) }
func (r CropRule) SuitableSoils() []string {
	out := make([]string, 0, len(r.PreferredSoils)+len(r.AcceptableSoils))
	out = append(out, r.PreferredSoils...)
	return append(out, r.AcceptableSoils...)
}

// NormalizeCropKey is the canonical catalog key of a crop label.
func NormalizeCropKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

func containsFold(list []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
