package rabbitmq

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/agrisoil/pkg/logging"
)

// Handler processes one delivery. Errors are logged, never redelivered
// by the consumer itself.
type Handler func(topic string, msg mqtt.Message) error

type IConsumer interface {
	ConsumeMessage(ctx context.Context) error
	SetHandler(h Handler)
}

// Consumer subscribes a handler to one or more topic filters.
type Consumer struct {
	client  mqtt.Client
	topics  []string
	qos     byte
	timeout time.Duration
	handler Handler
}

var _ IConsumer = (*Consumer)(nil)

func NewConsumer(client mqtt.Client, qos byte, handler Handler, topics ...string) *Consumer {
	return &Consumer{
		client:  client,
		topics:  topics,
		qos:     qos,
		timeout: 10 * time.Second,
		handler: handler,
	}
}

func (c *Consumer) SetHandler(h Handler) { c.handler = h }

// ConsumeMessage subscribes every topic and blocks until ctx is done. A
// failed subscription is returned immediately.
func (c *Consumer) ConsumeMessage(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("rabbitmq: no handler for %v", c.topics)
	}
	log := logging.Component("mqtt")

	filters := make(map[string]byte, len(c.topics))
	for _, t := range c.topics {
		filters[t] = c.qos
	}
	token := c.client.SubscribeMultiple(filters, func(_ mqtt.Client, msg mqtt.Message) {
		if err := c.handler(msg.Topic(), msg); err != nil {
			log.Error().Err(err).Str("topic", msg.Topic()).Msg("handler failed")
		}
	})
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("rabbitmq: subscribe %v: timeout", c.topics)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("rabbitmq: subscribe %v: %w", c.topics, err)
	}
	log.Info().Strs("topics", c.topics).Uint8("qos", c.qos).Msg("subscribed")

	<-ctx.Done()

	c.client.Unsubscribe(c.topics...).WaitTimeout(c.timeout)
	return nil
}
