package hybrid

import (
	"math"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisoil/pkg/logging"
)

// ScoreCombiner blends classifier confidence and rule score into the final
// score. The zero value is not usable; start from DefaultScoreCombiner.
type ScoreCombiner struct {
	MLWeight       float64 `koanf:"ml_weight" validate:"gte=0,lte=1"`
	RuleWeight     float64 `koanf:"rule_weight" validate:"gte=0,lte=1"`
	WarningPenalty float64 `koanf:"warning_penalty" validate:"gte=0"`
}

func DefaultScoreCombiner() ScoreCombiner {
	return ScoreCombiner{MLWeight: 0.6, RuleWeight: 0.4, WarningPenalty: 5}
}

// Score is the outcome of Combine. Base is the blended score before the
// warning penalty; Clamped is set when Base itself was out of bounds.
type Score struct {
	Final   float64
	Base    float64
	Tier    entities.Quality
	Clamped bool
}

// Combine computes final = clamp(base - penalty*warnings, 0, 100) where base
// is the weighted blend when the crop has rules and the bare confidence
// otherwise. The penalty is never capped on its own.
func (c ScoreCombiner) Combine(mlConfidence float64, o Outcome, warnings int) Score {
	base := mlConfidence
	if o.HasRules {
		base = c.MLWeight*mlConfidence + c.RuleWeight*o.Score
	}

	s := Score{Base: base}
	if base < 0 || base > 100 || math.IsNaN(base) {
		s.Clamped = true
		scoreClamped.Inc()
		logging.Component("hybrid").Warn().
			Str("crop", o.Crop).
			Float64("ml_confidence", mlConfidence).
			Float64("rule_score", o.Score).
			Float64("base", base).
			Msg("base score out of bounds, clamping")
		base = clamp(base, 0, 100)
	}

	s.Final = clamp(base-c.WarningPenalty*float64(warnings), 0, 100)
	s.Tier = qualityTier(s.Final, o.HasRules && o.AllChecksPassed, warnings)
	return s
}

func qualityTier(final float64, allPassed bool, warnings int) entities.Quality {
	switch {
	case final >= 80 && allPassed:
		return entities.QualityExcellent
	case final >= 70 && warnings <= 1:
		return entities.QualityGood
	case final >= 50:
		return entities.QualityModerate
	case final >= 30:
		return entities.QualityFair
	default:
		return entities.QualityPoor
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}
