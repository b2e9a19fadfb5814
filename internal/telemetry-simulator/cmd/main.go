package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
	simulator "github.com/LeonardoBeccarini/agrisoil/internal/telemetry-simulator"
	"github.com/LeonardoBeccarini/agrisoil/pkg/logging"
	"github.com/LeonardoBeccarini/agrisoil/pkg/rabbitmq"
)

func main() {
	fieldID := flag.String("field-id", "field1", "field identifier")
	sensorID := flag.String("sensor-id", "station1", "sensor identifier")
	host := flag.String("mqtt-host", "localhost", "broker host")
	port := flag.Int("mqtt-port", 1883, "broker port")
	user := flag.String("mqtt-user", "guest", "broker user")
	pass := flag.String("mqtt-password", "guest", "broker password")
	interval := flag.Duration("interval", 10*time.Second, "publish interval")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "random walk seed")
	logLevel := flag.String("log-level", "info", "log level")

	in := entities.EnvironmentalInput{}
	flag.Float64Var(&in.Nitrogen, "nitrogen", 80, "nitrogen profile (kg/ha)")
	flag.Float64Var(&in.Phosphorus, "phosphorus", 50, "phosphorus profile (kg/ha)")
	flag.Float64Var(&in.Potassium, "potassium", 60, "potassium profile (kg/ha)")
	flag.Float64Var(&in.Temperature, "temperature", 25, "temperature profile (°C)")
	flag.Float64Var(&in.Humidity, "humidity", 75, "humidity profile (%)")
	flag.Float64Var(&in.PH, "ph", 6.5, "pH profile")
	flag.Float64Var(&in.Rainfall, "rainfall", 200, "rainfall profile (mm)")
	flag.Parse()

	logging.Init(logging.Config{Level: *logLevel, Format: "console"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := rabbitmq.Connect(ctx, rabbitmq.Config{
		Host:     *host,
		Port:     *port,
		User:     *user,
		Password: *pass,
		ClientID: "telemetry-sim-" + *fieldID + "-" + *sensorID,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("mqtt connect")
	}
	defer rabbitmq.Close(client)

	results := rabbitmq.NewConsumer(client, 1, nil, "analysis/result/"+*fieldID+"/#")
	sim := simulator.New(*fieldID, *sensorID, simulator.NewGenerator(in, *seed), rabbitmq.NewPublisher(client, 0, false), results)

	logging.Info().Str("topic", sim.Topic()).Dur("interval", *interval).Msg("telemetry simulator running")
	sim.Start(ctx, *interval)
}
