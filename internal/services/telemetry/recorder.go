package telemetry

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/agrisoil/internal/model"
	"github.com/LeonardoBeccarini/agrisoil/pkg/logging"
)

// PointWriter is satisfied by api.WriteAPIBlocking.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Recorder stores telemetry readings received over MQTT so that
// InfluxSource can resolve them later.
type Recorder struct {
	writer      PointWriter
	measurement string
	now         func() time.Time
}

func NewRecorder(w PointWriter, measurement string) *Recorder {
	if measurement == "" {
		measurement = "field_telemetry"
	}
	return &Recorder{writer: w, measurement: sanitizeMeasurement(measurement), now: time.Now}
}

// Handle decodes a reading from telemetry/{field}. Malformed payloads are
// logged and dropped so the stream keeps flowing.
func (r *Recorder) Handle(ctx context.Context) func(topic string, msg mqtt.Message) error {
	log := logging.Component("telemetry")
	return func(topic string, msg mqtt.Message) error {
		var reading model.TelemetryReading
		if err := json.Unmarshal(msg.Payload(), &reading); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("invalid telemetry payload")
			return nil
		}
		if reading.FieldID == "" {
			reading.FieldID = fieldFromTopic(topic)
		}
		p, err := r.point(reading)
		if err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("telemetry dropped")
			return nil
		}
		if err := r.writer.WritePoint(ctx, p); err != nil {
			return fmt.Errorf("telemetry write %s: %w", reading.FieldID, err)
		}
		log.Debug().Str("field_id", reading.FieldID).Int("values", len(p.FieldList())).Msg("telemetry stored")
		return nil
	}
}

func (r *Recorder) point(reading model.TelemetryReading) (*write.Point, error) {
	if strings.TrimSpace(reading.FieldID) == "" {
		return nil, ErrEmptyField
	}
	fields := make(map[string]interface{}, 7)
	for k, v := range reading.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		fields[k] = v
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("no measurements for field %s", reading.FieldID)
	}
	tags := map[string]string{"field_id": reading.FieldID}
	if reading.SensorID != "" {
		tags["sensor_id"] = reading.SensorID
	}
	t := reading.Timestamp
	if t.IsZero() {
		t = r.now()
	}
	return influxdb2.NewPoint(r.measurement, tags, fields, t), nil
}

// fieldFromTopic reads {field} from telemetry/{field}[/...].
func fieldFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func sanitizeMeasurement(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_', r == ':', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
