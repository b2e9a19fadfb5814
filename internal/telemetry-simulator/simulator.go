package simulator

import (
	"context"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"

	"github.com/LeonardoBeccarini/agrisoil/internal/model"
	"github.com/LeonardoBeccarini/agrisoil/internal/model/messages"
	"github.com/LeonardoBeccarini/agrisoil/pkg/dedup"
	"github.com/LeonardoBeccarini/agrisoil/pkg/logging"
	"github.com/LeonardoBeccarini/agrisoil/pkg/rabbitmq"
)

// Simulator publishes a field's telemetry at a fixed interval and logs the
// recommendations the advisor sends back for that field.
type Simulator struct {
	fieldID   string
	sensorID  string
	generator *Generator
	publisher rabbitmq.IPublisher
	consumer  rabbitmq.IConsumer
	deduper   *dedup.Deduper
}

func New(fieldID, sensorID string, gen *Generator, pub rabbitmq.IPublisher, results rabbitmq.IConsumer) *Simulator {
	return &Simulator{
		fieldID:   fieldID,
		sensorID:  sensorID,
		generator: gen,
		publisher: pub,
		consumer:  results,
		deduper:   dedup.New(2*time.Minute, 10000),
	}
}

func (s *Simulator) Topic() string { return "telemetry/" + s.fieldID }

// Start publishes until ctx is done.
func (s *Simulator) Start(ctx context.Context, interval time.Duration) {
	log := logging.Component("simulator")
	if s.consumer != nil {
		s.consumer.SetHandler(s.handleResult)
		go func() {
			if err := s.consumer.ConsumeMessage(ctx); err != nil {
				log.Error().Err(err).Msg("result consumer stopped")
			}
		}()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.PublishOnce(); err != nil {
				log.Error().Err(err).Str("field_id", s.fieldID).Msg("publish failed")
			}
		}
	}
}

func (s *Simulator) PublishOnce() error {
	r := s.generator.Next(s.fieldID, s.sensorID)
	logging.Component("simulator").Debug().
		Str("field_id", r.FieldID).
		Interface("values", r.Values()).
		Msg("telemetry published")
	return s.publisher.PublishJSON(s.Topic(), r)
}

func (s *Simulator) handleResult(topic string, msg mqtt.Message) error {
	if !s.deduper.ShouldProcess(dedup.KeyOf(msg.Payload())) {
		return nil
	}
	log := logging.Component("simulator")

	var evt model.AnalysisResultEvent
	if err := json.Unmarshal(msg.Payload(), &evt); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("undecodable result")
		return nil
	}
	if evt.FieldID != s.fieldID {
		return nil
	}
	if evt.Status != messages.StatusOK || evt.Result == nil {
		log.Warn().Str("request_id", evt.RequestID).Str("error", evt.Error).Msg("analysis failed")
		return nil
	}
	log.Info().
		Str("request_id", evt.RequestID).
		Str("crop", evt.Result.CropRecommendation.RecommendedCrop).
		Float64("final_score", evt.Result.FinalScore).
		Str("quality", string(evt.Result.RecommendationQuality)).
		Msg("recommendation received")
	return nil
}
