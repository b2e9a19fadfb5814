package rabbitmq

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"

	"github.com/LeonardoBeccarini/agrisoil/pkg/logging"
)

// IPublisher publishes JSON documents to a topic.
type IPublisher interface {
	PublishJSON(topic string, v any) error
}

type Publisher struct {
	client   mqtt.Client
	qos      byte
	retained bool
	timeout  time.Duration
}

var _ IPublisher = (*Publisher)(nil)

func NewPublisher(client mqtt.Client, qos byte, retained bool) *Publisher {
	return &Publisher{client: client, qos: qos, retained: retained, timeout: 10 * time.Second}
}

func (p *Publisher) PublishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}
	token := p.client.Publish(topic, p.qos, p.retained, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	logging.Component("mqtt").Debug().Str("topic", topic).Int("bytes", len(payload)).Msg("published")
	return nil
}
