package entities

// Quality is the discrete tier of a recommendation.
type Quality string

const (
	QualityExcellent Quality = "Excellent"
	QualityGood      Quality = "Good"
	QualityModerate  Quality = "Moderate"
	QualityFair      Quality = "Fair"
	QualityPoor      Quality = "Poor"
)

// CandidateSource tells where the recommended crop came from.
type CandidateSource string

const (
	SourceMLTop         CandidateSource = "ml_top"
	SourceMLAlternative CandidateSource = "ml_alternative"
	SourceCatalog       CandidateSource = "catalog"
)

// AnalysisResult is the full answer to one analysis request. Field order is
// the serialization order.
type AnalysisResult struct {
	SoilAnalysis          SoilAnalysis       `json:"soil_analysis"`
	CropRecommendation    CropRecommendation `json:"crop_recommendation"`
	RuleValidation        RuleValidation     `json:"rule_validation"`
	FinalScore            float64            `json:"final_score"`
	RecommendationQuality Quality            `json:"recommendation_quality"`
	Warnings              []string           `json:"warnings"`
	Suggestions           []string           `json:"suggestions"`
	AlternativeCrops      []RankedCrop       `json:"alternative_crops"`
	InputSummary          EnvironmentalInput `json:"input_summary"`
}

type SoilAnalysis struct {
	PredictedType    string             `json:"predicted_type"`
	Confidence       float64            `json:"confidence"`
	AllProbabilities map[string]float64 `json:"all_probabilities"`
}

type CropRecommendation struct {
	RecommendedCrop      string          `json:"recommended_crop"`
	MLConfidence         float64         `json:"ml_confidence"`
	Alternatives         []Candidate     `json:"alternatives"`
	OriginalMLPrediction string          `json:"original_ml_prediction,omitempty"`
	Source               CandidateSource `json:"source"`
	UsedFallback         bool            `json:"used_fallback"`
}

type RuleValidation struct {
	HasRules        bool                           `json:"has_rules"`
	ValidationScore *float64                       `json:"validation_score"` // nil without rules
	AllChecksPassed bool                           `json:"all_checks_passed"`
	Validations     map[string]DimensionValidation `json:"validations"`
	CropDescription string                         `json:"crop_description"`
}

type DimensionValidation struct {
	Passed  bool     `json:"passed"`
	Optimal bool     `json:"optimal"`
	Score   float64  `json:"score"`
	Codes   []string `json:"codes,omitempty"`
	Details []string `json:"details,omitempty"`
}

// RankedCrop is a catalog crop scored by the rules alone.
type RankedCrop struct {
	Crop            string  `json:"crop"`
	ValidationScore float64 `json:"validation_score"`
	AllPassed       bool    `json:"all_passed"`
	WarningsCount   int     `json:"warnings_count"`
	Description     string  `json:"description"`
}
