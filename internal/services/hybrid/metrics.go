package hybrid

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrisoil_analyses_total",
			Help: "Analyses completed, by recommendation quality",
		},
		[]string{"quality"},
	)

	analysisErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrisoil_analysis_errors_total",
			Help: "Analyses aborted by a classifier failure",
		},
		[]string{"port"},
	)

	selectionSource = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agrisoil_selection_source_total",
			Help: "Recommended crops by origin (ml_top, ml_alternative, catalog) and fallback use",
		},
		[]string{"source", "fallback"},
	)

	finalScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agrisoil_final_score",
			Help:    "Distribution of final recommendation scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	scoreClamped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agrisoil_score_out_of_bounds_total",
			Help: "Blended scores outside 0-100 that had to be clamped",
		},
	)
)
