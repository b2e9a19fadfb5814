package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/LeonardoBeccarini/agrisoil/internal/model"
	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisoil/internal/model/messages"
	"github.com/LeonardoBeccarini/agrisoil/pkg/dedup"
	"github.com/LeonardoBeccarini/agrisoil/pkg/logging"
	"github.com/LeonardoBeccarini/agrisoil/pkg/rabbitmq"
)

const (
	SourceRequest   = "request"
	SourceTelemetry = "telemetry"

	defaultResultTopic = "analysis/result/{field}/{request}"
)

var (
	ErrInvalidRequest = errors.New("advisor: invalid request")
	ErrInvalidInput   = errors.New("advisor: input out of bounds")
	ErrNoInput        = errors.New("advisor: no input and no telemetry source")
)

// Analyzer runs one analysis; *hybrid.Orchestrator satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, in entities.EnvironmentalInput) (*entities.AnalysisResult, error)
}

// TelemetrySource resolves the latest measurements of a field.
type TelemetrySource interface {
	Latest(ctx context.Context, fieldID string) (entities.EnvironmentalInput, time.Time, error)
}

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "agrisoil_advisor_requests_total",
	Help: "Analysis requests handled by status and input source.",
}, []string{"status", "input_source"})

type Option func(*Service)

// WithTelemetry lets requests without measurements name a field instead.
func WithTelemetry(src TelemetrySource) Option { return func(s *Service) { s.telemetry = src } }

// WithResultTopic sets the topic template; {field} and {request} are
// substituted.
func WithResultTopic(tmpl string) Option {
	return func(s *Service) {
		if strings.TrimSpace(tmpl) != "" {
			s.resultTopic = tmpl
		}
	}
}

func WithTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }

func WithDeduper(d *dedup.Deduper) Option { return func(s *Service) { s.deduper = d } }

// Service answers analysis requests arriving over MQTT or HTTP.
type Service struct {
	analyzer    Analyzer
	publisher   rabbitmq.IPublisher
	telemetry   TelemetrySource
	deduper     *dedup.Deduper
	validate    *validator.Validate
	resultTopic string
	timeout     time.Duration
	now         func() time.Time
	newID       func() string
}

func New(a Analyzer, p rabbitmq.IPublisher, opts ...Option) *Service {
	s := &Service{
		analyzer:    a,
		publisher:   p,
		deduper:     dedup.New(10*time.Minute, 20000),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		resultTopic: defaultResultTopic,
		timeout:     10 * time.Second,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle returns the MQTT handler for analysis/request/{field}. Every
// request that gets past deduplication yields exactly one event on the
// result topic; only a failed publish is returned as an error.
func (s *Service) Handle(ctx context.Context) rabbitmq.Handler {
	log := logging.Component("advisor")
	return func(topic string, msg mqtt.Message) error {
		key := dedup.KeyOf([]byte(topic), msg.Payload())
		if s.deduper != nil && !s.deduper.ShouldProcess(key) {
			log.Debug().Str("topic", topic).Msg("duplicate delivery dropped")
			return nil
		}

		var req model.AnalysisRequest
		if err := json.Unmarshal(msg.Payload(), &req); err != nil {
			evt := s.failure(model.AnalysisRequest{}, topic, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err))
			return s.publish(evt, key)
		}
		if req.FieldID == "" {
			req.FieldID = fieldFromTopic(topic)
		}

		evt, _ := s.Process(ctx, req)
		return s.publish(evt, key)
	}
}

// Process runs one request and builds its result event. The returned
// error mirrors an ERROR event for callers that map it to a status code.
func (s *Service) Process(ctx context.Context, req model.AnalysisRequest) (model.AnalysisResultEvent, error) {
	log := logging.Component("advisor")
	if strings.TrimSpace(req.RequestID) == "" {
		req.RequestID = s.newID()
	}

	in, source, err := s.resolveInput(ctx, req)
	if err != nil {
		return s.failure(req, "", source, err), err
	}

	actx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.analyzer.Analyze(actx, in)
	if err != nil {
		log.Warn().Err(err).Str("request_id", req.RequestID).Str("field_id", req.FieldID).Msg("analysis failed")
		return s.failure(req, "", source, err), err
	}

	requestsTotal.WithLabelValues(messages.StatusOK, source).Inc()
	log.Info().
		Str("request_id", req.RequestID).
		Str("field_id", req.FieldID).
		Str("crop", res.CropRecommendation.RecommendedCrop).
		Float64("final_score", res.FinalScore).
		Str("quality", string(res.RecommendationQuality)).
		Msg("analysis done")
	return model.AnalysisResultEvent{
		RequestID:   req.RequestID,
		FieldID:     req.FieldID,
		Status:      messages.StatusOK,
		InputSource: source,
		Result:      res,
		Timestamp:   s.now().UTC(),
	}, nil
}

func (s *Service) resolveInput(ctx context.Context, req model.AnalysisRequest) (entities.EnvironmentalInput, string, error) {
	if req.Input != nil {
		if err := s.checkInput(*req.Input); err != nil {
			return entities.EnvironmentalInput{}, SourceRequest, err
		}
		return *req.Input, SourceRequest, nil
	}

	if s.telemetry == nil {
		return entities.EnvironmentalInput{}, SourceTelemetry, ErrNoInput
	}
	if strings.TrimSpace(req.FieldID) == "" {
		return entities.EnvironmentalInput{}, SourceTelemetry, fmt.Errorf("%w: field_id required without input", ErrInvalidRequest)
	}
	in, asOf, err := s.telemetry.Latest(ctx, req.FieldID)
	if err != nil {
		return entities.EnvironmentalInput{}, SourceTelemetry, err
	}
	if err := s.checkInput(in); err != nil {
		return entities.EnvironmentalInput{}, SourceTelemetry, err
	}
	logging.Component("advisor").Debug().
		Str("field_id", req.FieldID).
		Time("as_of", asOf).
		Msg("input resolved from telemetry")
	return in, SourceTelemetry, nil
}

func (s *Service) checkInput(in entities.EnvironmentalInput) error {
	if !in.Finite() {
		return fmt.Errorf("%w: non-finite measurement", ErrInvalidInput)
	}
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func (s *Service) failure(req model.AnalysisRequest, topic, source string, err error) model.AnalysisResultEvent {
	if req.RequestID == "" {
		req.RequestID = s.newID()
	}
	if req.FieldID == "" && topic != "" {
		req.FieldID = fieldFromTopic(topic)
	}
	requestsTotal.WithLabelValues(messages.StatusError, source).Inc()
	return model.AnalysisResultEvent{
		RequestID:   req.RequestID,
		FieldID:     req.FieldID,
		Status:      messages.StatusError,
		Error:       err.Error(),
		InputSource: source,
		Timestamp:   s.now().UTC(),
	}
}

func (s *Service) publish(evt model.AnalysisResultEvent, dedupKey string) error {
	topic := s.topicFor(evt)
	if err := s.publisher.PublishJSON(topic, evt); err != nil {
		// let the broker redelivery through
		if s.deduper != nil {
			s.deduper.Forget(dedupKey)
		}
		return fmt.Errorf("publish result %s: %w", evt.RequestID, err)
	}
	return nil
}

func (s *Service) topicFor(evt model.AnalysisResultEvent) string {
	field := evt.FieldID
	if field == "" {
		field = "unknown"
	}
	return strings.NewReplacer("{field}", field, "{request}", evt.RequestID).Replace(s.resultTopic)
}

// fieldFromTopic reads {field} from analysis/request/{field}.
func fieldFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 3 {
		return strings.TrimSpace(parts[2])
	}
	return ""
}
