package advisor

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeonardoBeccarini/agrisoil/internal/model"
	"github.com/LeonardoBeccarini/agrisoil/internal/services/hybrid"
	"github.com/LeonardoBeccarini/agrisoil/internal/services/telemetry"
	"github.com/LeonardoBeccarini/agrisoil/pkg/logging"
)

// Connection is the part of mqtt.Client the health endpoints look at.
type Connection interface {
	IsConnectionOpen() bool
}

// RouterDeps are the collaborators of the ops/HTTP surface. MQTT and
// Breakers may be nil.
type RouterDeps struct {
	Service  *Service
	Engine   *hybrid.Orchestrator
	MQTT     Connection
	Breakers func() map[string]string
	Started  time.Time
}

const maxRequestBody = 64 << 10

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", d.health)
	r.Get("/readyz", d.ready)
	r.Get("/status", d.status)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/analyze", d.analyze)
	return r
}

func (d RouterDeps) mqttConnected() bool {
	return d.MQTT != nil && d.MQTT.IsConnectionOpen()
}

func (d RouterDeps) breakerStates() map[string]string {
	if d.Breakers == nil {
		return map[string]string{}
	}
	return d.Breakers()
}

func (d RouterDeps) health(w http.ResponseWriter, _ *http.Request) {
	type resp struct {
		Status        string `json:"status"`
		MQTTConnected bool   `json:"mqtt_connected"`
		EngineLoaded  bool   `json:"engine_loaded"`
	}
	st := resp{MQTTConnected: d.mqttConnected(), EngineLoaded: d.Engine != nil}
	switch {
	case st.MQTTConnected && st.EngineLoaded:
		st.Status = "ok"
	case st.EngineLoaded:
		st.Status = "degraded"
	default:
		st.Status = "down"
	}
	writeJSON(w, http.StatusOK, st)
}

// ready is 200 only when the engine is loaded, the broker is reachable and
// no classifier breaker is open.
func (d RouterDeps) ready(w http.ResponseWriter, _ *http.Request) {
	ready := d.Engine != nil && d.mqttConnected()
	for _, st := range d.breakerStates() {
		if st == "open" {
			ready = false
		}
	}
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]bool{"ready": ready})
}

func (d RouterDeps) status(w http.ResponseWriter, _ *http.Request) {
	type resp struct {
		Status           string            `json:"status"`
		RuleEngine       string            `json:"rule_engine"`
		CatalogCrops     int               `json:"catalog_crops"`
		AcceptancePolicy string            `json:"acceptance_policy"`
		Classifiers      map[string]string `json:"classifiers"`
		MQTTConnected    bool              `json:"mqtt_connected"`
		UptimeSeconds    float64           `json:"uptime_seconds"`
	}
	st := resp{
		Status:        "ok",
		RuleEngine:    "unavailable",
		Classifiers:   d.breakerStates(),
		MQTTConnected: d.mqttConnected(),
	}
	if d.Engine != nil {
		st.RuleEngine = "loaded"
		st.CatalogCrops = d.Engine.Catalog().Len()
		st.AcceptancePolicy = string(d.Engine.Policy())
	} else {
		st.Status = "degraded"
	}
	if !d.Started.IsZero() {
		st.UptimeSeconds = time.Since(d.Started).Seconds()
	}
	writeJSON(w, http.StatusOK, st)
}

// analyze runs a request synchronously; the result is returned, not
// published.
func (d RouterDeps) analyze(w http.ResponseWriter, r *http.Request) {
	var req model.AnalysisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}
	evt, err := d.Service.Process(r.Context(), req)
	code := statusFor(err)
	if err != nil && code >= 500 {
		logging.Component("advisor").Error().Err(err).Str("request_id", evt.RequestID).Msg("analyze failed")
	}
	writeJSON(w, code, evt)
}

func statusFor(err error) int {
	var ce *hybrid.ClassifierError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, telemetry.ErrIncompleteTelemetry), errors.Is(err, ErrNoInput):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ce):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
