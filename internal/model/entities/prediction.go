package entities

// SoilPrediction is the output of the soil-type classifier.
type SoilPrediction struct {
	Label        string             `json:"predicted_type"`
	Confidence   float64            `json:"confidence"` // %
	Distribution map[string]float64 `json:"all_probabilities"`
}

// Candidate is one crop label with the confidence the crop classifier gave it.
type Candidate struct {
	Label      string  `json:"crop"`
	Confidence float64 `json:"confidence"` // %
}

// CropPrediction is the output of the crop classifier. Alternatives are
// ordered by the classifier and may repeat the top label.
type CropPrediction struct {
	Label        string      `json:"recommended_crop"`
	Confidence   float64     `json:"confidence"` // %
	Alternatives []Candidate `json:"alternatives"`
}

func (p CropPrediction) Top() Candidate {
	return Candidate{Label: p.Label, Confidence: p.Confidence}
}
