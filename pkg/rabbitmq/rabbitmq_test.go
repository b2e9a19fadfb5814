package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type message struct {
	topic   string
	payload []byte
}

func (m message) Duplicate() bool   { return false }
func (m message) Qos() byte         { return 1 }
func (m message) Retained() bool    { return false }
func (m message) Topic() string     { return m.topic }
func (m message) MessageID() uint16 { return 1 }
func (m message) Payload() []byte   { return m.payload }
func (m message) Ack()              {}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient implements the subset of mqtt.Client the package uses.
type fakeClient struct {
	mqtt.Client

	mu           sync.Mutex
	subErr       error
	filters      map[string]byte
	callback     mqtt.MessageHandler
	unsubscribed []string
	published    []published
}

func (c *fakeClient) SubscribeMultiple(filters map[string]byte, cb mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters, c.callback = filters, cb
	return doneToken{err: c.subErr}
}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribed = append(c.unsubscribed, topics...)
	return doneToken{}
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return doneToken{}
}

func (c *fakeClient) deliver(topic string, payload string) {
	c.mu.Lock()
	cb := c.callback
	c.mu.Unlock()
	cb(c, message{topic: topic, payload: []byte(payload)})
}

func (c *fakeClient) subscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callback != nil
}

func TestConsumerDeliversAndUnsubscribes(t *testing.T) {
	client := &fakeClient{}
	got := make(chan string, 2)
	c := NewConsumer(client, 1, func(topic string, msg mqtt.Message) error {
		got <- topic + " " + string(msg.Payload())
		return errors.New("logged, not fatal")
	}, "analysis/request/#", "telemetry/+")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.ConsumeMessage(ctx) }()

	require.Eventually(t, client.subscribed, time.Second, 5*time.Millisecond)
	assert.Equal(t, map[string]byte{"analysis/request/#": 1, "telemetry/+": 1}, client.filters)

	client.deliver("analysis/request/f1", "{}")
	assert.Equal(t, "analysis/request/f1 {}", <-got)

	cancel()
	require.NoError(t, <-done)
	assert.ElementsMatch(t, []string{"analysis/request/#", "telemetry/+"}, client.unsubscribed)
}

func TestConsumerSubscribeError(t *testing.T) {
	client := &fakeClient{subErr: errors.New("not authorized")}
	c := NewConsumer(client, 1, func(string, mqtt.Message) error { return nil }, "a/#")
	err := c.ConsumeMessage(context.Background())
	assert.ErrorContains(t, err, "not authorized")
}

func TestConsumerWithoutHandler(t *testing.T) {
	c := NewConsumer(&fakeClient{}, 0, nil, "a/#")
	assert.Error(t, c.ConsumeMessage(context.Background()))
}

func TestPublishJSON(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, 1, false)

	require.NoError(t, p.PublishJSON("analysis/result/f1/r1", map[string]any{"status": "OK", "final_score": 55.52}))
	require.Len(t, client.published, 1)
	msg := client.published[0]
	assert.Equal(t, "analysis/result/f1/r1", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.False(t, msg.retained)

	var back map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &back))
	assert.Equal(t, "OK", back["status"])

	assert.Error(t, p.PublishJSON("x", make(chan int)))
}

func TestBrokerURL(t *testing.T) {
	assert.Equal(t, "tcp://rabbitmq:1883", Config{Host: "rabbitmq", Port: 1883}.BrokerURL())
}
