package simulator

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/LeonardoBeccarini/agrisoil/internal/model"
)

// bound is the plausible range of one measurement.
type bound struct{ lo, hi float64 }

var bounds = map[string]bound{
	"nitrogen":    {0, 140},
	"phosphorus":  {5, 145},
	"potassium":   {5, 205},
	"temperature": {8, 44},
	"humidity":    {14, 100},
	"ph":          {3.5, 9.9},
	"rainfall":    {20, 300},
}

const (
	// fraction of a bound's span a reading moves per step (1 sigma)
	stepFraction = 0.02
	// pull back towards the profile per step
	reversion = 0.1
)

// Generator produces a bounded random walk around a field profile. It is
// safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	profile map[string]float64
	current map[string]float64
	noise   distuv.Normal
	now     func() time.Time
}

// NewGenerator starts the walk at profile. The same seed yields the same
// sequence.
func NewGenerator(profile model.EnvironmentalInput, seed uint64) *Generator {
	p := map[string]float64{
		"nitrogen":    profile.Nitrogen,
		"phosphorus":  profile.Phosphorus,
		"potassium":   profile.Potassium,
		"temperature": profile.Temperature,
		"humidity":    profile.Humidity,
		"ph":          profile.PH,
		"rainfall":    profile.Rainfall,
	}
	cur := make(map[string]float64, len(p))
	for k, v := range p {
		p[k] = clamp(v, bounds[k])
		cur[k] = p[k]
	}
	return &Generator{
		profile: p,
		current: cur,
		noise:   distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)},
		now:     time.Now,
	}
}

// Next advances every measurement one step and returns the reading.
func (g *Generator) Next(fieldID, sensorID string) model.TelemetryReading {
	g.mu.Lock()
	defer g.mu.Unlock()

	vals := make(map[string]*float64, len(g.current))
	for _, k := range fieldOrder {
		b := bounds[k]
		v := g.current[k]
		v += reversion*(g.profile[k]-v) + g.noise.Rand()*stepFraction*(b.hi-b.lo)
		v = round2(clamp(v, b))
		g.current[k] = v
		vals[k] = &v
	}
	return model.TelemetryReading{
		FieldID:     fieldID,
		SensorID:    sensorID,
		Nitrogen:    vals["nitrogen"],
		Phosphorus:  vals["phosphorus"],
		Potassium:   vals["potassium"],
		Temperature: vals["temperature"],
		Humidity:    vals["humidity"],
		PH:          vals["ph"],
		Rainfall:    vals["rainfall"],
		Timestamp:   g.now().UTC(),
	}
}

// map iteration order would make seeded runs differ
var fieldOrder = []string{"nitrogen", "phosphorus", "potassium", "temperature", "humidity", "ph", "rainfall"}

func clamp(v float64, b bound) float64 {
	return math.Max(b.lo, math.Min(b.hi, v))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
