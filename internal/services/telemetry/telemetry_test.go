package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/query"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
)

type records struct {
	recs   []*query.FluxRecord
	i      int
	err    error
	closed bool
}

func (r *records) Next() bool {
	if r.i >= len(r.recs) {
		return false
	}
	r.i++
	return true
}
func (r *records) Record() *query.FluxRecord { return r.recs[r.i-1] }
func (r *records) Err() error                { return r.err }
func (r *records) Close() error              { r.closed = true; return nil }

func rec(field string, v any, at time.Time) *query.FluxRecord {
	return query.NewFluxRecord(0, map[string]interface{}{"_field": field, "_value": v, "_time": at})
}

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func fullRecords() []*query.FluxRecord {
	return []*query.FluxRecord{
		rec("nitrogen", 80.0, t0),
		rec("phosphorus", int64(50), t0),
		rec("potassium", 60.0, t0.Add(-time.Hour)),
		rec("temperature", 25.0, t0),
		rec("humidity", "75", t0),
		rec("ph", 6.5, t0),
		rec("rainfall", 200.0, t0),
	}
}

func TestLatest(t *testing.T) {
	var flux string
	res := &records{recs: fullRecords()}
	src := NewInfluxSourceWithQuery(func(_ context.Context, q string) (Records, error) {
		flux = q
		return res, nil
	}, InfluxConfig{Bucket: "agri", Lookback: 6 * time.Hour})

	in, asOf, err := src.Latest(context.Background(), " north-1 ")
	require.NoError(t, err)
	assert.Equal(t, entities.EnvironmentalInput{Nitrogen: 80, Phosphorus: 50, Potassium: 60, Temperature: 25, Humidity: 75, PH: 6.5, Rainfall: 200}, in)
	assert.Equal(t, t0.Add(-time.Hour), asOf)
	assert.True(t, res.closed)

	assert.Contains(t, flux, `from(bucket: "agri")`)
	assert.Contains(t, flux, `range(start: -360m)`)
	assert.Contains(t, flux, `r._measurement == "field_telemetry" and r.field_id == "north-1"`)
	assert.Contains(t, flux, `"nitrogen","phosphorus"`)
	assert.Contains(t, flux, `last()`)
}

func TestLatestIncomplete(t *testing.T) {
	recs := fullRecords()[:5]
	src := NewInfluxSourceWithQuery(func(context.Context, string) (Records, error) {
		return &records{recs: recs}, nil
	}, InfluxConfig{Bucket: "agri"})

	_, _, err := src.Latest(context.Background(), "north-1")
	assert.ErrorIs(t, err, ErrIncompleteTelemetry)
	assert.ErrorContains(t, err, "missing ph, rainfall")
}

func TestLatestErrors(t *testing.T) {
	boom := errors.New("influx down")

	src := NewInfluxSourceWithQuery(func(context.Context, string) (Records, error) { return nil, boom }, InfluxConfig{})
	_, _, err := src.Latest(context.Background(), "f1")
	assert.ErrorIs(t, err, boom)

	src = NewInfluxSourceWithQuery(func(context.Context, string) (Records, error) {
		return &records{recs: fullRecords(), err: boom}, nil
	}, InfluxConfig{})
	_, _, err = src.Latest(context.Background(), "f1")
	assert.ErrorIs(t, err, boom)

	_, _, err = src.Latest(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyField)
}

type pointSink struct{ points []*write.Point }

func (s *pointSink) WritePoint(_ context.Context, p ...*write.Point) error {
	s.points = append(s.points, p...)
	return nil
}

type message struct {
	topic   string
	payload string
}

func (m message) Duplicate() bool   { return false }
func (m message) Qos() byte         { return 1 }
func (m message) Retained() bool    { return false }
func (m message) Topic() string     { return m.topic }
func (m message) MessageID() uint16 { return 7 }
func (m message) Payload() []byte   { return []byte(m.payload) }
func (m message) Ack()              {}

func TestRecorderHandle(t *testing.T) {
	sink := &pointSink{}
	r := NewRecorder(sink, "field telemetry")
	r.now = func() time.Time { return t0 }
	h := r.Handle(context.Background())

	require.NoError(t, h("telemetry/north-1", message{"telemetry/north-1", `{"sensor_id":"s1","ph":6.5,"humidity":75}`}))
	require.Len(t, sink.points, 1)
	p := sink.points[0]
	assert.Equal(t, "field_telemetry", p.Name())
	assert.Equal(t, t0, p.Time())

	tags := map[string]string{}
	for _, tg := range p.TagList() {
		tags[tg.Key] = tg.Value
	}
	assert.Equal(t, map[string]string{"field_id": "north-1", "sensor_id": "s1"}, tags)

	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, map[string]any{"ph": 6.5, "humidity": 75.0}, fields)
}

func TestRecorderDropsBadReadings(t *testing.T) {
	sink := &pointSink{}
	h := NewRecorder(sink, "").Handle(context.Background())

	assert.NoError(t, h("telemetry/f1", message{"telemetry/f1", `not json`}))
	assert.NoError(t, h("telemetry/f1", message{"telemetry/f1", `{"field_id":"f1"}`}))
	assert.NoError(t, h("telemetry", message{"telemetry", `{"ph":7}`}))
	assert.Empty(t, sink.points)
}
