package hybrid

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisoil/pkg/logging"
)

// SoilClassifier predicts the soil type of a field.
type SoilClassifier interface {
	Classify(ctx context.Context, in entities.EnvironmentalInput) (entities.SoilPrediction, error)
}

// CropClassifier predicts the crop best suited to a field.
type CropClassifier interface {
	Recommend(ctx context.Context, in entities.EnvironmentalInput) (entities.CropPrediction, error)
}

const (
	PortSoil = "soil"
	PortCrop = "crop"
)

// ClassifierError wraps a failure of one of the classifiers. No result is
// ever produced alongside it.
type ClassifierError struct {
	Port string
	Err  error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("hybrid: %s classifier: %v", e.Port, e.Err)
}

func (e *ClassifierError) Unwrap() error { return e.Err }

var ErrNilClassifier = errors.New("hybrid: nil classifier")

const (
	defaultSoilConfidenceThreshold = 70.0
	defaultAlternativesLimit       = 5
	skippedShown                   = 2
)

type Option func(*Orchestrator)

// WithCatalog replaces the built-in rule table.
func WithCatalog(c *Catalog) Option { return func(o *Orchestrator) { o.catalog = c } }

func WithAcceptancePolicy(p AcceptancePolicy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

func WithScoreCombiner(c ScoreCombiner) Option {
	return func(o *Orchestrator) { o.combiner = c }
}

// WithSoilConfidenceThreshold sets the soil confidence (%) below which soil
// testing is suggested.
func WithSoilConfidenceThreshold(pct float64) Option {
	return func(o *Orchestrator) { o.soilThreshold = pct }
}

// WithAlternativesLimit caps alternative_crops; 0 or less keeps every
// soil-compatible crop.
func WithAlternativesLimit(n int) Option {
	return func(o *Orchestrator) { o.altLimit = n }
}

// Orchestrator runs one analysis end to end. It keeps no per-request state
// and is safe for concurrent use.
type Orchestrator struct {
	soil SoilClassifier
	crop CropClassifier

	catalog       *Catalog
	policy        AcceptancePolicy
	combiner      ScoreCombiner
	soilThreshold float64
	altLimit      int

	validator *Validator
	ranker    *Ranker
	log       *zerolog.Logger
}

func NewOrchestrator(soil SoilClassifier, crop CropClassifier, opts ...Option) (*Orchestrator, error) {
	if soil == nil || crop == nil {
		return nil, ErrNilClassifier
	}
	o := &Orchestrator{
		soil:          soil,
		crop:          crop,
		catalog:       DefaultCatalog(),
		policy:        PolicyStrict,
		combiner:      DefaultScoreCombiner(),
		soilThreshold: defaultSoilConfidenceThreshold,
		altLimit:      defaultAlternativesLimit,
		log:           logging.Component("hybrid"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.catalog == nil {
		o.catalog = DefaultCatalog()
	}
	o.validator = NewValidator(o.catalog)
	o.ranker = NewRanker(o.catalog, o.validator, o.policy)
	return o, nil
}

func (o *Orchestrator) Catalog() *Catalog        { return o.catalog }
func (o *Orchestrator) Policy() AcceptancePolicy { return o.ranker.Policy() }

// Analyze classifies the input, picks a validated crop and scores it. A
// classifier failure aborts the analysis with a *ClassifierError.
func (o *Orchestrator) Analyze(ctx context.Context, in entities.EnvironmentalInput) (*entities.AnalysisResult, error) {
	soil, err := o.soil.Classify(ctx, in)
	if err != nil {
		analysisErrors.WithLabelValues(PortSoil).Inc()
		return nil, &ClassifierError{Port: PortSoil, Err: err}
	}
	crop, err := o.crop.Recommend(ctx, in)
	if err != nil {
		analysisErrors.WithLabelValues(PortCrop).Inc()
		return nil, &ClassifierError{Port: PortCrop, Err: err}
	}

	sel := o.ranker.SelectBest(soil.Label, crop.Top(), crop.Alternatives, in)
	warnings := sel.Outcome.Warnings()
	score := o.combiner.Combine(sel.Confidence, sel.Outcome, len(warnings))
	alternatives := o.RankCatalog(soil.Label, in, o.altLimit)

	res := &entities.AnalysisResult{
		SoilAnalysis: entities.SoilAnalysis{
			PredictedType:    soil.Label,
			Confidence:       soil.Confidence,
			AllProbabilities: copyDistribution(soil.Distribution),
		},
		CropRecommendation: entities.CropRecommendation{
			RecommendedCrop: sel.Crop,
			MLConfidence:    sel.Confidence,
			Alternatives:    otherCandidates(crop, sel.Crop),
			Source:          sel.Source,
			UsedFallback:    sel.UsedFallback,
		},
		RuleValidation:        ruleValidation(sel.Outcome),
		FinalScore:            score.Final,
		RecommendationQuality: score.Tier,
		Warnings:              RenderAll(warnings),
		Suggestions:           o.suggestions(soil, crop, sel, alternatives),
		AlternativeCrops:      alternatives,
		InputSummary:          in,
	}
	if top := strings.TrimSpace(crop.Label); top != "" && !strings.EqualFold(top, sel.Crop) {
		res.CropRecommendation.OriginalMLPrediction = top
	}

	analysesTotal.WithLabelValues(string(score.Tier)).Inc()
	selectionSource.WithLabelValues(string(sel.Source), strconv.FormatBool(sel.UsedFallback)).Inc()
	finalScore.Observe(score.Final)

	o.log.Debug().
		Str("soil", soil.Label).
		Str("ml_crop", crop.Label).
		Str("crop", sel.Crop).
		Str("source", string(sel.Source)).
		Bool("fallback", sel.UsedFallback).
		Float64("score", score.Final).
		Str("quality", string(score.Tier)).
		Int("warnings", len(warnings)).
		Msg("analysis done")
	return res, nil
}

// RankCatalog scores every catalog crop that grows on soil, best first, ties
// in catalog order. limit <= 0 returns all of them.
func (o *Orchestrator) RankCatalog(soil string, in entities.EnvironmentalInput, limit int) []entities.RankedCrop {
	out := make([]entities.RankedCrop, 0, o.catalog.Len())
	for _, key := range o.catalog.AllCrops() {
		v := o.validator.Validate(key, soil, in)
		if d, ok := v.Dimension(DimSoil); !ok || !d.Passed() {
			continue
		}
		out = append(out, entities.RankedCrop{
			Crop:            v.Crop,
			ValidationScore: v.Score,
			AllPassed:       v.AllChecksPassed,
			WarningsCount:   v.WarningCount(),
			Description:     v.Description,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ValidationScore > out[j].ValidationScore })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (o *Orchestrator) suggestions(soil entities.SoilPrediction, crop entities.CropPrediction, sel Selection, alts []entities.RankedCrop) []string {
	out := []string{}

	if top := strings.TrimSpace(crop.Label); top != "" && !strings.EqualFold(top, sel.Crop) {
		out = append(out, fmt.Sprintf("Selected %s (better suited than the classifier's first choice: %s)", sel.Crop, top))
	}
	out = append(out, RenderAll(sel.Outcome.Advisories())...)

	if len(sel.Skipped) > 0 {
		names := make([]string, 0, skippedShown)
		for i, s := range sel.Skipped {
			if i == skippedShown {
				break
			}
			names = append(names, s.Crop)
		}
		out = append(out, "Crops skipped after rule validation: "+strings.Join(names, ", "))
	}

	if soil.Confidence < o.soilThreshold {
		out = append(out, fmt.Sprintf("Soil classification confidence is low (%s%%) - consider physical soil testing for accurate results", num(soil.Confidence)))
	}

	if sel.Outcome.HasRules {
		for _, a := range alts {
			if strings.EqualFold(a.Crop, sel.Crop) || a.ValidationScore <= sel.Outcome.Score {
				continue
			}
			out = append(out, fmt.Sprintf("%s scores higher under the crop rules (%s vs %s) - consider it as an alternative",
				a.Crop, num(a.ValidationScore), num(sel.Outcome.Score)))
		}
	}
	return out
}

func ruleValidation(o Outcome) entities.RuleValidation {
	rv := entities.RuleValidation{
		HasRules:        o.HasRules,
		AllChecksPassed: o.HasRules && o.AllChecksPassed,
		Validations:     make(map[string]entities.DimensionValidation, len(o.Dimensions)),
		CropDescription: o.Description,
	}
	if !o.HasRules {
		return rv
	}
	score := o.Score
	rv.ValidationScore = &score
	for _, d := range o.Dimensions {
		dv := entities.DimensionValidation{Passed: d.Passed(), Optimal: d.Optimal(), Score: d.Score}
		for _, f := range d.Findings {
			dv.Codes = append(dv.Codes, string(f.Code))
			dv.Details = append(dv.Details, Render(f))
		}
		rv.Validations[string(d.Dimension)] = dv
	}
	return rv
}

// otherCandidates lists the classifier's candidates except the chosen crop.
func otherCandidates(p entities.CropPrediction, chosen string) []entities.Candidate {
	out := []entities.Candidate{}
	for _, c := range mlCandidates(p.Top(), p.Alternatives) {
		if !strings.EqualFold(c.Label, chosen) {
			out = append(out, c)
		}
	}
	return out
}

func copyDistribution(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
