package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/query"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
)

var (
	ErrIncompleteTelemetry = errors.New("telemetry: incomplete measurements")
	ErrEmptyField          = errors.New("telemetry: empty field id")
)

// Measurement fields, one per EnvironmentalInput member.
var Fields = []string{"nitrogen", "phosphorus", "potassium", "temperature", "humidity", "ph", "rainfall"}

type InfluxConfig struct {
	URL         string        `koanf:"url"`
	Token       string        `koanf:"token"`
	Org         string        `koanf:"org"`
	Bucket      string        `koanf:"bucket"`
	Measurement string        `koanf:"measurement"`
	Lookback    time.Duration `koanf:"lookback"`
	Timeout     time.Duration `koanf:"timeout"`
}

func (c InfluxConfig) Enabled() bool {
	return c.URL != "" && c.Token != "" && c.Org != "" && c.Bucket != ""
}

// Records is the part of api.QueryTableResult the source reads.
type Records interface {
	Next() bool
	Record() *query.FluxRecord
	Err() error
	Close() error
}

// QueryFunc runs a Flux query.
type QueryFunc func(ctx context.Context, flux string) (Records, error)

// InfluxSource resolves the latest measurements of a field.
type InfluxSource struct {
	query       QueryFunc
	bucket      string
	measurement string
	lookback    time.Duration
	timeout     time.Duration
}

// NewInfluxSource queries through client's QueryAPI.
func NewInfluxSource(client influxdb2.Client, cfg InfluxConfig) *InfluxSource {
	q := client.QueryAPI(cfg.Org)
	return NewInfluxSourceWithQuery(func(ctx context.Context, flux string) (Records, error) {
		res, err := q.Query(ctx, flux)
		if err != nil {
			return nil, err
		}
		return res, nil
	}, cfg)
}

func NewInfluxSourceWithQuery(q QueryFunc, cfg InfluxConfig) *InfluxSource {
	if cfg.Measurement == "" {
		cfg.Measurement = "field_telemetry"
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 24 * time.Hour
	}
	return &InfluxSource{
		query:       q,
		bucket:      cfg.Bucket,
		measurement: cfg.Measurement,
		lookback:    cfg.Lookback,
		timeout:     cfg.Timeout,
	}
}

func buildLatestFlux(bucket, measurement, fieldID string, lookback time.Duration) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q and r.field_id == %q)
  |> filter(fn: (r) => contains(value: r._field, set: [%s]))
  |> last()
  |> keep(columns: ["_time","_field","_value"])
`, bucket, int(lookback.Minutes()), measurement, fieldID, quoted(Fields))
}

// Latest returns the newest value of every measurement of fieldID and the
// time of the oldest of them.
func (s *InfluxSource) Latest(ctx context.Context, fieldID string) (entities.EnvironmentalInput, time.Time, error) {
	fieldID = strings.TrimSpace(fieldID)
	if fieldID == "" {
		return entities.EnvironmentalInput{}, time.Time{}, ErrEmptyField
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.query(ctx, buildLatestFlux(s.bucket, s.measurement, fieldID, s.lookback))
	if err != nil {
		return entities.EnvironmentalInput{}, time.Time{}, fmt.Errorf("telemetry query %s: %w", fieldID, err)
	}
	defer func() { _ = res.Close() }()

	values := make(map[string]float64, len(Fields))
	var asOf time.Time
	for res.Next() {
		rec := res.Record()
		v, ok := toFloat(rec.Value())
		if !ok {
			continue
		}
		values[rec.Field()] = v
		if t := rec.Time(); asOf.IsZero() || t.Before(asOf) {
			asOf = t
		}
	}
	if err := res.Err(); err != nil {
		return entities.EnvironmentalInput{}, time.Time{}, fmt.Errorf("telemetry iterate %s: %w", fieldID, err)
	}

	if missing := missingFields(values); len(missing) > 0 {
		return entities.EnvironmentalInput{}, time.Time{},
			fmt.Errorf("%w for field %s: missing %s", ErrIncompleteTelemetry, fieldID, strings.Join(missing, ", "))
	}
	return entities.EnvironmentalInput{
		Nitrogen:    values["nitrogen"],
		Phosphorus:  values["phosphorus"],
		Potassium:   values["potassium"],
		Temperature: values["temperature"],
		Humidity:    values["humidity"],
		PH:          values["ph"],
		Rainfall:    values["rainfall"],
	}, asOf.UTC(), nil
}

func missingFields(values map[string]float64) []string {
	var out []string
	for _, f := range Fields {
		if _, ok := values[f]; !ok {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func quoted(ss []string) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = strconv.Quote(s)
	}
	return strings.Join(q, ",")
}
