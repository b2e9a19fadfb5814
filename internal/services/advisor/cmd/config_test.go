package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisoil/internal/services/hybrid"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.MQTT.Host)
	assert.Equal(t, 1883, cfg.MQTT.Port)
	assert.Equal(t, "analysis/request/#", cfg.Topics.Request)
	assert.Equal(t, "http", cfg.Classifier.Transport)
	assert.Equal(t, 3*time.Second, cfg.Classifier.HTTP.Timeout)
	assert.Equal(t, "strict", cfg.Engine.AcceptancePolicy)
	assert.InDelta(t, 0.6, cfg.Engine.Score.MLWeight, 1e-9)
	assert.False(t, cfg.Influx.Enabled())
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mqtt:
  host: broker
engine:
  acceptance_policy: soil
  analysis_timeout: 4s
influx:
  url: http://influx:8086
  token: t
  org: farm
  bucket: telemetry
`), 0o600))
	t.Setenv(configPathEnv, path)
	t.Setenv("AGRISOIL_MQTT__PORT", "8883")
	t.Setenv("AGRISOIL_ENGINE__ACCEPTANCE_POLICY", "strict")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "broker", cfg.MQTT.Host)
	assert.Equal(t, 8883, cfg.MQTT.Port)
	assert.Equal(t, "strict", cfg.Engine.AcceptancePolicy)
	assert.Equal(t, 4*time.Second, cfg.Engine.AnalysisTimeout)
	assert.True(t, cfg.Influx.Enabled())
	assert.Equal(t, 24*time.Hour, cfg.Influx.Lookback)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv("AGRISOIL_CLASSIFIER__TRANSPORT", "grpc")

	_, err := loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GRPCAddr")

	t.Setenv("AGRISOIL_CLASSIFIER__TRANSPORT", "carrier-pigeon")
	_, err = loadConfig()
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "mqtt.client_id", envKey("AGRISOIL_MQTT__CLIENT_ID"))
	assert.Equal(t, "influx.url", envKey("AGRISOIL_INFLUX__URL"))
}

type stubModels struct{}

func (stubModels) Classify(context.Context, entities.EnvironmentalInput) (entities.SoilPrediction, error) {
	return entities.SoilPrediction{Label: "Loamy", Confidence: 80}, nil
}

func (stubModels) Recommend(context.Context, entities.EnvironmentalInput) (entities.CropPrediction, error) {
	return entities.CropPrediction{Label: "Rice", Confidence: 80}, nil
}

func TestNewEngine(t *testing.T) {
	o, err := newEngine(defaultConfig().Engine, stubModels{})
	require.NoError(t, err)
	assert.Equal(t, hybrid.DefaultCatalog().Len(), o.Catalog().Len())
	assert.Equal(t, hybrid.PolicyStrict, o.Policy())

	cfg := defaultConfig().Engine
	cfg.AcceptancePolicy = "lenient"
	_, err = newEngine(cfg, stubModels{})
	assert.Error(t, err)

	_, err = newEngine(defaultConfig().Engine, nil)
	assert.ErrorIs(t, err, hybrid.ErrNilClassifier)
}

func TestNewEngineCatalogPath(t *testing.T) {
	dir := t.TempDir()

	cfg := defaultConfig().Engine
	cfg.CatalogPath = filepath.Join(dir, "missing.json")
	_, err := newEngine(cfg, stubModels{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"key":"teff"}]`), 0o600))
	cfg.CatalogPath = bad
	_, err = newEngine(cfg, stubModels{})
	assert.ErrorIs(t, err, hybrid.ErrInvalidRule)

	good := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(good, []byte(`[{
		"key": "teff",
		"ph": {"min": 5, "max": 8}, "ph_optimal": {"min": 6, "max": 7},
		"preferred_soils": ["Loamy"],
		"rainfall": {"min": 100, "max": 300}, "rainfall_optimal": {"min": 150, "max": 250},
		"temperature": {"min": 10, "max": 30}, "temperature_optimal": {"min": 18, "max": 27},
		"humidity": {"min": 40, "max": 90},
		"nitrogen_need": "moderate", "phosphorus_need": "moderate", "potassium_need": "moderate"
	}]`), 0o600))
	cfg.CatalogPath = good
	o, err := newEngine(cfg, stubModels{})
	require.NoError(t, err)
	assert.Equal(t, 1, o.Catalog().Len())
}
