// Package rabbitmq connects to the RabbitMQ MQTT plugin (or any MQTT 3.1.1
// broker) and wraps subscribe/publish for the services.
package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/agrisoil/pkg/logging"
)

type Config struct {
	Host           string        `koanf:"host" validate:"required"`
	Port           int           `koanf:"port" validate:"gt=0,lte=65535"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	ClientID       string        `koanf:"client_id" validate:"required"`
	CleanSession   bool          `koanf:"clean_session"`
	ConnectRetries uint64        `koanf:"connect_retries"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

func (c Config) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

// Connect dials the broker, retrying with exponential backoff. The client
// is disconnected when ctx is done.
func Connect(ctx context.Context, cfg Config) (mqtt.Client, error) {
	log := logging.Component("mqtt")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL())
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(cfg.CleanSession)
	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("connection lost")
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info().Str("broker", cfg.BrokerURL()).Msg("connected")
	})

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	retries := cfg.ConnectRetries
	if retries == 0 {
		retries = 4
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	var client mqtt.Client
	err := backoff.RetryNotify(func() error {
		client = mqtt.NewClient(opts)
		token := client.Connect()
		if !token.WaitTimeout(timeout) {
			return fmt.Errorf("connect timeout after %s", timeout)
		}
		return token.Error()
	}, backoff.WithContext(backoff.WithMaxRetries(bo, retries), ctx), func(err error, next time.Duration) {
		log.Warn().Err(err).Dur("retry_in", next).Msg("broker connect failed")
	})
	if err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.BrokerURL(), err)
	}

	go func() {
		<-ctx.Done()
		Close(client)
	}()
	return client, nil
}

func Close(client mqtt.Client) {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		logging.Component("mqtt").Info().Msg("connection closed")
	}
}
