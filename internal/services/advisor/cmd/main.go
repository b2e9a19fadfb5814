package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/LeonardoBeccarini/agrisoil/internal/services/advisor"
	"github.com/LeonardoBeccarini/agrisoil/internal/services/classifier"
	"github.com/LeonardoBeccarini/agrisoil/internal/services/hybrid"
	"github.com/LeonardoBeccarini/agrisoil/internal/services/telemetry"
	"github.com/LeonardoBeccarini/agrisoil/pkg/dedup"
	"github.com/LeonardoBeccarini/agrisoil/pkg/logging"
	"github.com/LeonardoBeccarini/agrisoil/pkg/rabbitmq"
)

type classifiers interface {
	hybrid.SoilClassifier
	hybrid.CropClassifier
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("config")
	}
	logging.Init(cfg.Log)
	log := logging.Component("main")
	started := time.Now()

	// --- Classifiers ---
	var (
		models   classifiers
		breakers func() map[string]string
	)
	switch cfg.Classifier.Transport {
	case "grpc":
		gc, err := classifier.DialGRPC(cfg.Classifier.GRPCAddr, cfg.Classifier.GRPCTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("classifier dial")
		}
		defer gc.Close()
		models = gc
	default:
		hc := classifier.NewHTTPClient(cfg.Classifier.HTTP, nil)
		models, breakers = hc, hc.BreakerStates
	}

	// --- Engine ---
	engine, err := newEngine(cfg.Engine, models)
	if err != nil {
		log.Fatal().Err(err).Msg("engine init")
	}
	log.Info().
		Int("catalog_crops", engine.Catalog().Len()).
		Str("acceptance_policy", string(engine.Policy())).
		Str("classifier_transport", cfg.Classifier.Transport).
		Msg("rule engine loaded")

	// --- Telemetry (optional) ---
	opts := []advisor.Option{
		advisor.WithResultTopic(cfg.Topics.Result),
		advisor.WithTimeout(cfg.Engine.AnalysisTimeout),
		advisor.WithDeduper(dedup.New(cfg.Dedup.TTL, cfg.Dedup.Max)),
	}
	var recorder *telemetry.Recorder
	if cfg.Influx.Enabled() {
		ic := influxdb2.NewClientWithOptions(cfg.Influx.URL, cfg.Influx.Token,
			influxdb2.DefaultOptions().SetHTTPRequestTimeout(uint(cfg.Influx.Timeout.Seconds())))
		defer ic.Close()
		opts = append(opts, advisor.WithTelemetry(telemetry.NewInfluxSource(ic, cfg.Influx)))
		if cfg.Topics.Telemetry != "" {
			recorder = telemetry.NewRecorder(ic.WriteAPIBlocking(cfg.Influx.Org, cfg.Influx.Bucket), cfg.Influx.Measurement)
		}
		log.Info().Str("url", cfg.Influx.URL).Str("bucket", cfg.Influx.Bucket).Msg("telemetry source enabled")
	} else {
		log.Warn().Msg("influx not configured; requests must carry their own input")
	}

	// --- MQTT ---
	mq, err := rabbitmq.Connect(ctx, cfg.MQTT)
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt connect")
	}
	defer rabbitmq.Close(mq)

	svc := advisor.New(engine, rabbitmq.NewPublisher(mq, 1, false), opts...)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return rabbitmq.NewConsumer(mq, 1, svc.Handle(gctx), cfg.Topics.Request).ConsumeMessage(gctx)
	})
	if recorder != nil {
		g.Go(func() error {
			return rabbitmq.NewConsumer(mq, 0, recorder.Handle(gctx), cfg.Topics.Telemetry).ConsumeMessage(gctx)
		})
	}

	// --- HTTP ---
	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: advisor.NewRouter(advisor.RouterDeps{
			Service:  svc,
			Engine:   engine,
			MQTT:     mq,
			Breakers: breakers,
			Started:  started,
		}),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	// --- gRPC facade (optional) ---
	if cfg.Classifier.GRPCListen != "" {
		gs := grpc.NewServer()
		classifier.RegisterClassifierServer(gs, models, models)
		g.Go(func() error {
			lis, err := net.Listen("tcp", cfg.Classifier.GRPCListen)
			if err != nil {
				return err
			}
			log.Info().Str("addr", cfg.Classifier.GRPCListen).Msg("grpc classifier facade listening")
			return gs.Serve(lis)
		})
		g.Go(func() error {
			<-gctx.Done()
			gs.GracefulStop()
			return nil
		})
	}

	log.Info().Str("request_topic", cfg.Topics.Request).Str("result_topic", cfg.Topics.Result).Msg("advisor running")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("advisor stopped")
		return
	}
	log.Info().Msg("advisor stopped")
}

func newEngine(cfg EngineConfig, models classifiers) (*hybrid.Orchestrator, error) {
	catalog := hybrid.DefaultCatalog()
	if cfg.CatalogPath != "" {
		c, err := hybrid.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		catalog = c
	}
	policy, err := hybrid.ParseAcceptancePolicy(cfg.AcceptancePolicy)
	if err != nil {
		return nil, err
	}
	return hybrid.NewOrchestrator(models, models,
		hybrid.WithCatalog(catalog),
		hybrid.WithAcceptancePolicy(policy),
		hybrid.WithScoreCombiner(cfg.Score),
		hybrid.WithSoilConfidenceThreshold(cfg.SoilConfidenceThreshold),
		hybrid.WithAlternativesLimit(cfg.AlternativesLimit),
	)
}
