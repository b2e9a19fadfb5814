package entities

// Nutrient identifies one of the three macro nutrients.
type Nutrient string

const (
	Nitrogen   Nutrient = "nitrogen"
	Phosphorus Nutrient = "phosphorus"
	Potassium  Nutrient = "potassium"
)

// nutrient bands: below Low is Low, above High is High, Moderate otherwise
var nutrientBands = map[Nutrient]Range{
	Nitrogen:   {Min: 40, Max: 80},
	Phosphorus: {Min: 30, Max: 60},
	Potassium:  {Min: 40, Max: 70},
}

// ClassifyNutrient maps a measured amount to a level.
func ClassifyNutrient(n Nutrient, value float64) NutrientLevel {
	b, ok := nutrientBands[n]
	if !ok {
		b = Range{Min: 40, Max: 70}
	}
	switch {
	case value < b.Min:
		return NutrientLow
	case value > b.Max:
		return NutrientHigh
	default:
		return NutrientModerate
	}
}
