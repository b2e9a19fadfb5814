package hybrid

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
)

// Dimension names one constraint checked by the Validator. The values are the
// keys of rule_validation.validations.
type Dimension string

const (
	DimPH          Dimension = "ph"
	DimSoil        Dimension = "soil_type"
	DimRainfall    Dimension = "rainfall"
	DimTemperature Dimension = "temperature"
	DimHumidity    Dimension = "humidity"
	DimNutrients   Dimension = "nutrients"
)

// Severity of a finding: warnings count against the final score, advisories
// only turn into suggestions.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityAdvisory Severity = "advisory"
)

type Code string

const (
	CodePHOutOfRange          Code = "ph_out_of_range"
	CodePHSuboptimal          Code = "ph_suboptimal"
	CodeSoilUnsuitable        Code = "soil_unsuitable"
	CodeSoilAcceptable        Code = "soil_acceptable"
	CodeRainfallLow           Code = "rainfall_low"
	CodeRainfallHigh          Code = "rainfall_high"
	CodeRainfallSuboptimal    Code = "rainfall_suboptimal"
	CodeTemperatureLow        Code = "temperature_low"
	CodeTemperatureHigh       Code = "temperature_high"
	CodeTemperatureSuboptimal Code = "temperature_suboptimal"
	CodeHumidityOutOfRange    Code = "humidity_out_of_range"
	CodeHumiditySuboptimal    Code = "humidity_suboptimal"
	CodeNutrientDeficient     Code = "nutrient_deficient"
	CodeNutrientExcess        Code = "nutrient_excess"
	CodeInvalidMeasurement    Code = "invalid_measurement"
)

// Finding is one structured observation about a (crop, input) pair. Text is
// produced separately by Render so policy can be tested without strings.
type Finding struct {
	Code      Code      `json:"code"`
	Dimension Dimension `json:"dimension"`
	Severity  Severity  `json:"severity"`
	Crop      string    `json:"crop"`

	Observed    float64        `json:"observed"`
	Requirement entities.Range `json:"requirement"`

	// soil findings
	Soil  string   `json:"soil,omitempty"`
	Soils []string `json:"soils,omitempty"`

	// nutrient findings
	Nutrient entities.Nutrient      `json:"nutrient,omitempty"`
	Need     entities.NutrientLevel `json:"need,omitempty"`
	Level    entities.NutrientLevel `json:"level,omitempty"`
}

func (f Finding) IsWarning() bool { return f.Severity == SeverityWarning }

// Render turns a finding into the sentence shown to farmers.
func Render(f Finding) string {
	req := fmtRange(f.Requirement)
	switch f.Code {
	case CodePHOutOfRange:
		return fmt.Sprintf("pH %s is unsuitable for %s (acceptable: %s)", num(f.Observed), f.Crop, req)
	case CodePHSuboptimal:
		return fmt.Sprintf("Adjust pH to %s for optimal %s growth (current: %s)", req, f.Crop, num(f.Observed))
	case CodeSoilUnsuitable:
		return fmt.Sprintf("%s soil is not suitable for %s (suitable: %s)", f.Soil, f.Crop, strings.Join(f.Soils, ", "))
	case CodeSoilAcceptable:
		return fmt.Sprintf("Consider %s soil for better %s results", strings.Join(f.Soils, ", "), f.Crop)
	case CodeRainfallLow:
		return fmt.Sprintf("Insufficient rainfall for %s: %smm (minimum: %smm) - consider irrigation", f.Crop, num(f.Observed), num(f.Requirement.Min))
	case CodeRainfallHigh:
		return fmt.Sprintf("Excessive rainfall may affect %s: %smm (maximum: %smm)", f.Crop, num(f.Observed), num(f.Requirement.Max))
	case CodeRainfallSuboptimal:
		return fmt.Sprintf("Rainfall %smm is acceptable for %s (optimal: %smm)", num(f.Observed), f.Crop, req)
	case CodeTemperatureLow:
		return fmt.Sprintf("Temperature %s°C is too low for %s (minimum: %s°C)", num(f.Observed), f.Crop, num(f.Requirement.Min))
	case CodeTemperatureHigh:
		return fmt.Sprintf("Temperature %s°C is too high for %s (maximum: %s°C)", num(f.Observed), f.Crop, num(f.Requirement.Max))
	case CodeTemperatureSuboptimal:
		return fmt.Sprintf("Temperature %s°C is acceptable for %s (optimal: %s°C)", num(f.Observed), f.Crop, req)
	case CodeHumidityOutOfRange:
		return fmt.Sprintf("Humidity %s%% is outside the range for %s (%s%%) - consider humidity management", num(f.Observed), f.Crop, req)
	case CodeHumiditySuboptimal:
		return fmt.Sprintf("Humidity %s%% is acceptable for %s (optimal: %s%%)", num(f.Observed), f.Crop, req)
	case CodeNutrientDeficient:
		return fmt.Sprintf("%s: %s needs %s %s, current level is %s", displayName(string(f.Nutrient)), f.Crop, strings.ToUpper(string(f.Need)), f.Nutrient, f.Level)
	case CodeNutrientExcess:
		return fmt.Sprintf("Excess %s detected, %s needs %s %s", f.Nutrient, f.Crop, strings.ToUpper(string(f.Need)), f.Nutrient)
	case CodeInvalidMeasurement:
		return fmt.Sprintf("Invalid %s measurement, %s cannot be validated", f.Dimension, f.Crop)
	default:
		return fmt.Sprintf("%s: %s", f.Dimension, f.Code)
	}
}

// RenderAll renders findings in order.
func RenderAll(fs []Finding) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, Render(f))
	}
	return out
}

func fmtRange(r entities.Range) string { return num(r.Min) + "-" + num(r.Max) }

// num prints 6.5 as "6.5" and 200 as "200", at most two decimals.
func num(v float64) string { return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) }
