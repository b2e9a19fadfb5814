package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/LeonardoBeccarini/agrisoil/internal/services/classifier"
	"github.com/LeonardoBeccarini/agrisoil/internal/services/hybrid"
	"github.com/LeonardoBeccarini/agrisoil/internal/services/telemetry"
	"github.com/LeonardoBeccarini/agrisoil/pkg/logging"
	"github.com/LeonardoBeccarini/agrisoil/pkg/rabbitmq"
)

const (
	configPathEnv = "CONFIG_PATH"
	envPrefix     = "AGRISOIL_"
)

type Config struct {
	Log        logging.Config         `koanf:"log"`
	MQTT       rabbitmq.Config        `koanf:"mqtt"`
	HTTP       HTTPConfig             `koanf:"http"`
	Topics     TopicsConfig           `koanf:"topics"`
	Classifier ClassifierConfig       `koanf:"classifier"`
	Engine     EngineConfig           `koanf:"engine"`
	Influx     telemetry.InfluxConfig `koanf:"influx"`
	Dedup      DedupConfig            `koanf:"dedup"`
}

type HTTPConfig struct {
	Addr              string        `koanf:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

type TopicsConfig struct {
	Request   string `koanf:"request" validate:"required"`
	Result    string `koanf:"result" validate:"required"`
	Telemetry string `koanf:"telemetry"` // empty disables ingestion
}

type ClassifierConfig struct {
	Transport   string                `koanf:"transport" validate:"oneof=http grpc"`
	HTTP        classifier.HTTPConfig `koanf:"http"`
	GRPCAddr    string                `koanf:"grpc_addr" validate:"required_if=Transport grpc"`
	GRPCTimeout time.Duration         `koanf:"grpc_timeout"`
	GRPCListen  string                `koanf:"grpc_listen"` // re-exposes the classifiers over gRPC when set
}

type EngineConfig struct {
	CatalogPath             string               `koanf:"catalog_path"`
	AcceptancePolicy        string               `koanf:"acceptance_policy" validate:"omitempty,oneof=strict soil"`
	SoilConfidenceThreshold float64              `koanf:"soil_confidence_threshold" validate:"gte=0,lte=100"`
	AlternativesLimit       int                  `koanf:"alternatives_limit"`
	AnalysisTimeout         time.Duration        `koanf:"analysis_timeout" validate:"gt=0"`
	Score                   hybrid.ScoreCombiner `koanf:"score"`
}

type DedupConfig struct {
	TTL time.Duration `koanf:"ttl"`
	Max int           `koanf:"max"`
}

func defaultConfig() Config {
	host, _ := os.Hostname()
	return Config{
		Log: logging.Config{Level: "info", Format: "json"},
		MQTT: rabbitmq.Config{
			Host:           "localhost",
			Port:           1883,
			User:           "guest",
			Password:       "guest",
			ClientID:       "agrisoil-advisor-" + firstNonEmpty(host, "local"),
			CleanSession:   false,
			ConnectRetries: 4,
			ConnectTimeout: 5 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Topics: TopicsConfig{
			Request: "analysis/request/#",
			Result:  "analysis/result/{field}/{request}",
		},
		Classifier: ClassifierConfig{
			Transport:   "http",
			HTTP:        classifier.DefaultHTTPConfig(),
			GRPCTimeout: 3 * time.Second,
		},
		Engine: EngineConfig{
			AcceptancePolicy:        string(hybrid.PolicyStrict),
			SoilConfidenceThreshold: 70,
			AlternativesLimit:       5,
			AnalysisTimeout:         10 * time.Second,
			Score:                   hybrid.DefaultScoreCombiner(),
		},
		Influx: telemetry.InfluxConfig{
			Measurement: "field_telemetry",
			Lookback:    24 * time.Hour,
			Timeout:     3 * time.Second,
		},
		Dedup: DedupConfig{TTL: 10 * time.Minute, Max: 20000},
	}
}

// loadConfig layers struct defaults, an optional YAML file named by
// CONFIG_PATH and AGRISOIL_* variables. Nested keys use a double
// underscore: AGRISOIL_MQTT__CLIENT_ID -> mqtt.client_id.
func loadConfig() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}
	if path := strings.TrimSpace(os.Getenv(configPathEnv)); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
