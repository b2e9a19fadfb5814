package messages

import "time"

// TelemetryReading arrives on telemetry/{field}. A reading may carry any
// subset of the measurements; absent ones are left untouched in storage.
type TelemetryReading struct {
	FieldID     string    `json:"field_id"`
	SensorID    string    `json:"sensor_id,omitempty"`
	Nitrogen    *float64  `json:"nitrogen,omitempty"`
	Phosphorus  *float64  `json:"phosphorus,omitempty"`
	Potassium   *float64  `json:"potassium,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	Humidity    *float64  `json:"humidity,omitempty"`
	PH          *float64  `json:"ph,omitempty"`
	Rainfall    *float64  `json:"rainfall,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Values returns the measurements present in the reading, keyed by field name.
func (r TelemetryReading) Values() map[string]float64 {
	out := make(map[string]float64, 7)
	for k, v := range map[string]*float64{
		"nitrogen":    r.Nitrogen,
		"phosphorus":  r.Phosphorus,
		"potassium":   r.Potassium,
		"temperature": r.Temperature,
		"humidity":    r.Humidity,
		"ph":          r.PH,
		"rainfall":    r.Rainfall,
	} {
		if v != nil {
			out[k] = *v
		}
	}
	return out
}
