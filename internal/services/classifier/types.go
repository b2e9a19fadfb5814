package classifier

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
)

// ---------- Model server payloads ----------

// soilPayload accepts predicted_type/label/soil_type and confidences either
// as fractions or percentages, numbers or strings.
type soilPayload struct {
	entities.SoilPrediction
}

func (p *soilPayload) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	p.Label = firstString(m, "predicted_type", "label", "soil_type")
	p.Confidence, _ = number(m["confidence"])

	if raw, ok := m["all_probabilities"].(map[string]any); ok {
		p.Distribution = make(map[string]float64, len(raw))
		for k, v := range raw {
			if f, ok := number(v); ok {
				p.Distribution[k] = f
			}
		}
	}
	p.scale()
	return nil
}

// scale converts 0-1 confidences to percentages. A payload is taken as
// fractional when every value it carries is within [0,1].
func (p *soilPayload) scale() {
	fractional := p.Confidence <= 1
	for _, v := range p.Distribution {
		fractional = fractional && v <= 1
	}
	if !fractional {
		return
	}
	p.Confidence = pct(p.Confidence)
	for k, v := range p.Distribution {
		p.Distribution[k] = pct(v)
	}
}

type cropPayload struct {
	entities.CropPrediction
}

func (p *cropPayload) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	p.Label = firstString(m, "recommended_crop", "crop", "label")
	p.Confidence, _ = number(m["confidence"])

	if raw, ok := m["alternatives"].([]any); ok {
		p.Alternatives = make([]entities.Candidate, 0, len(raw))
		for _, item := range raw {
			switch x := item.(type) {
			case map[string]any:
				c := entities.Candidate{Label: firstString(x, "crop", "label", "recommended_crop")}
				c.Confidence, _ = number(x["confidence"])
				p.Alternatives = append(p.Alternatives, c)
			case string:
				// bare labels carry no confidence
				p.Alternatives = append(p.Alternatives, entities.Candidate{Label: x})
			}
		}
	}
	p.scale()
	return nil
}

func (p *cropPayload) scale() {
	fractional := p.Confidence <= 1
	for _, a := range p.Alternatives {
		fractional = fractional && a.Confidence <= 1
	}
	if !fractional {
		return
	}
	p.Confidence = pct(p.Confidence)
	for i := range p.Alternatives {
		p.Alternatives[i].Confidence = pct(p.Alternatives[i].Confidence)
	}
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func pct(v float64) float64 {
	return math.Round(v*100*100) / 100
}
