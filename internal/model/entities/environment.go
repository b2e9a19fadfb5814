package entities

import "math"

// EnvironmentalInput is one set of field measurements fed to both classifiers
// and to the rule validator.
type EnvironmentalInput struct {
	Nitrogen    float64 `json:"nitrogen" validate:"gte=0,lte=300"`     // kg/ha
	Phosphorus  float64 `json:"phosphorus" validate:"gte=0,lte=300"`   // kg/ha
	Potassium   float64 `json:"potassium" validate:"gte=0,lte=300"`    // kg/ha
	Temperature float64 `json:"temperature" validate:"gte=-10,lte=60"` // °C
	Humidity    float64 `json:"humidity" validate:"gte=0,lte=100"`     // %
	PH          float64 `json:"ph" validate:"gte=0,lte=14"`
	Rainfall    float64 `json:"rainfall" validate:"gte=0,lte=5000"` // mm
}

// Finite reports whether every measurement is a real number.
func (in EnvironmentalInput) Finite() bool {
	for _, v := range in.values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (in EnvironmentalInput) values() [7]float64 {
	return [7]float64{in.Nitrogen, in.Phosphorus, in.Potassium, in.Temperature, in.Humidity, in.PH, in.Rainfall}
}
