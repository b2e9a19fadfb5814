package hybrid

import (
	"fmt"
	"sort"
	"strings"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
)

// AcceptancePolicy decides when a candidate ends the search.
type AcceptancePolicy string

const (
	// PolicyStrict accepts the first candidate passing every check at its
	// optimal tier.
	PolicyStrict AcceptancePolicy = "strict"
	// PolicySoil accepts the first candidate whose soil check does not fail.
	// Rule scores are not compared, so the accepted crop may score below a
	// higher ranked candidate rejected on soil alone.
	PolicySoil AcceptancePolicy = "soil"
)

// catalog picks have no classifier confidence; the rule score scaled by this
// factor stands in for it.
const catalogConfidenceFactor = 0.7

func ParseAcceptancePolicy(s string) (AcceptancePolicy, error) {
	switch AcceptancePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicySoil:
		return PolicySoil, nil
	default:
		return "", fmt.Errorf("unknown acceptance policy %q", s)
	}
}

func (p AcceptancePolicy) accepts(o Outcome) bool {
	if p == PolicySoil {
		d, ok := o.Dimension(DimSoil)
		return ok && d.Passed()
	}
	return o.AllChecksPassed
}

// SkippedCandidate is an ML candidate that was validated and rejected.
type SkippedCandidate struct {
	Crop     string
	Score    float64
	Warnings []Finding
}

// Selection is the crop picked by the Ranker together with its validation.
type Selection struct {
	Crop         string
	Confidence   float64
	Source       entities.CandidateSource
	Outcome      Outcome
	UsedFallback bool
	Skipped      []SkippedCandidate
}

// Ranker walks the candidate sequence through the Validator.
type Ranker struct {
	catalog   *Catalog
	validator *Validator
	policy    AcceptancePolicy
}

func NewRanker(c *Catalog, v *Validator, policy AcceptancePolicy) *Ranker {
	if policy == "" {
		policy = PolicyStrict
	}
	return &Ranker{catalog: c, validator: v, policy: policy}
}

func (r *Ranker) Policy() AcceptancePolicy { return r.policy }

type scanned struct {
	crop       string
	confidence float64 // classifier confidence, 0 for catalog crops
	source     entities.CandidateSource
	outcome    Outcome
}

// SelectBest returns the first acceptable candidate in priority order: the
// top prediction, the alternatives by descending confidence, then catalog
// crops not yet tried by descending rule score. When none is acceptable the
// best scored candidate wins, ties going to the higher classifier confidence
// and then to the earlier one.
func (r *Ranker) SelectBest(soil string, top entities.Candidate, alternatives []entities.Candidate, in entities.EnvironmentalInput) Selection {
	ml := mlCandidates(top, alternatives)
	if len(ml) == 0 {
		return emptyPool(top)
	}

	tried := make(map[string]struct{}, r.catalog.Len())
	var seen []scanned
	var skipped []SkippedCandidate

	for i, c := range ml {
		src := entities.SourceMLAlternative
		if i == 0 && c.Label == strings.TrimSpace(top.Label) {
			src = entities.SourceMLTop
		}
		tried[entities.NormalizeCropKey(c.Label)] = struct{}{}

		out := r.validator.Validate(c.Label, soil, in)
		if !out.HasRules {
			// nothing to validate against: trust the classifier's first
			// choice, skip anything else
			if src == entities.SourceMLTop {
				out.Crop = c.Label
				return Selection{Crop: c.Label, Confidence: c.Confidence, Source: src, Outcome: out}
			}
			continue
		}
		if r.policy.accepts(out) {
			return Selection{
				Crop:         c.Label,
				Confidence:   c.Confidence,
				Source:       src,
				Outcome:      out,
				UsedFallback: src != entities.SourceMLTop,
				Skipped:      skipped,
			}
		}
		seen = append(seen, scanned{crop: c.Label, confidence: c.Confidence, source: src, outcome: out})
		skipped = append(skipped, SkippedCandidate{Crop: c.Label, Score: out.Score, Warnings: out.Warnings()})
	}

	for _, sc := range r.scanCatalog(soil, in, tried) {
		if r.policy.accepts(sc.outcome) {
			return catalogSelection(sc, skipped)
		}
		seen = append(seen, sc)
	}

	if len(seen) == 0 {
		return emptyPool(top)
	}
	best := seen[0]
	for _, sc := range seen[1:] {
		if sc.outcome.Score > best.outcome.Score ||
			(sc.outcome.Score == best.outcome.Score && sc.confidence > best.confidence) {
			best = sc
		}
	}
	if best.source == entities.SourceCatalog {
		return catalogSelection(best, skipped)
	}
	return Selection{
		Crop:         best.crop,
		Confidence:   best.confidence,
		Source:       best.source,
		Outcome:      best.outcome,
		UsedFallback: true,
		Skipped:      withoutCrop(skipped, best.crop),
	}
}

func withoutCrop(skipped []SkippedCandidate, crop string) []SkippedCandidate {
	out := make([]SkippedCandidate, 0, len(skipped))
	for _, s := range skipped {
		if !strings.EqualFold(s.Crop, crop) {
			out = append(out, s)
		}
	}
	return out
}

// scanCatalog validates every crop not in tried, best rule score first, ties
// in catalog order.
func (r *Ranker) scanCatalog(soil string, in entities.EnvironmentalInput, tried map[string]struct{}) []scanned {
	var out []scanned
	for _, key := range r.catalog.AllCrops() {
		if _, ok := tried[key]; ok {
			continue
		}
		o := r.validator.Validate(key, soil, in)
		out = append(out, scanned{crop: o.Crop, source: entities.SourceCatalog, outcome: o})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].outcome.Score > out[j].outcome.Score })
	return out
}

func catalogSelection(sc scanned, skipped []SkippedCandidate) Selection {
	return Selection{
		Crop:         sc.crop,
		Confidence:   round1(sc.outcome.Score * catalogConfidenceFactor),
		Source:       entities.SourceCatalog,
		Outcome:      sc.outcome,
		UsedFallback: true,
		Skipped:      skipped,
	}
}

func emptyPool(top entities.Candidate) Selection {
	label := strings.TrimSpace(top.Label)
	return Selection{
		Crop:       label,
		Confidence: top.Confidence,
		Source:     entities.SourceMLTop,
		Outcome:    Outcome{Crop: label},
	}
}

// mlCandidates is the top prediction followed by the alternatives sorted by
// descending confidence. Blank labels and repeated crops are dropped.
func mlCandidates(top entities.Candidate, alternatives []entities.Candidate) []entities.Candidate {
	alts := append([]entities.Candidate(nil), alternatives...)
	sort.SliceStable(alts, func(i, j int) bool { return alts[i].Confidence > alts[j].Confidence })

	out := make([]entities.Candidate, 0, len(alts)+1)
	seen := make(map[string]struct{}, len(alts)+1)
	for _, c := range append([]entities.Candidate{top}, alts...) {
		c.Label = strings.TrimSpace(c.Label)
		key := entities.NormalizeCropKey(c.Label)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
