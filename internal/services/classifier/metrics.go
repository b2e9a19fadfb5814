package classifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agrisoil_classifier_calls_total",
		Help: "Classifier calls by transport, port and outcome.",
	}, []string{"transport", "port", "outcome"})

	callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agrisoil_classifier_call_duration_seconds",
		Help:    "Classifier call latency including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"transport", "port"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agrisoil_classifier_retries_total",
		Help: "Retried classifier attempts.",
	}, []string{"port"})

	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "agrisoil_classifier_breaker_state",
		Help: "Circuit breaker state per endpoint (0 closed, 1 half-open, 2 open).",
	}, []string{"endpoint"})
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
